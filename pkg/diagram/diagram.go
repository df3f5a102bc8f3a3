// Package diagram draws a run's stage graph.
// Supports Mermaid flowchart and ASCII formats.
package diagram

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/ormasoftchile/flowgraph/pkg/kernel/eval"
	"github.com/ormasoftchile/flowgraph/pkg/kernel/graph"
	"github.com/ormasoftchile/flowgraph/pkg/kernel/status"
)

// Format represents the output diagram format.
type Format string

const (
	FormatMermaid Format = "mermaid"
	FormatASCII   Format = "ascii"
)

// Generate produces a diagram of g. The name heads the ASCII rendering.
func Generate(g *graph.Graph, name string, format Format) (string, error) {
	if g == nil {
		return "", fmt.Errorf("nil graph")
	}
	switch format {
	case FormatMermaid:
		return generateMermaid(g), nil
	case FormatASCII:
		return generateASCII(g, name), nil
	default:
		return "", fmt.Errorf("unsupported diagram format: %s", format)
	}
}

// --- Mermaid flowchart ---

func generateMermaid(g *graph.Graph) string {
	var b strings.Builder
	b.WriteString("flowchart TD\n")

	nodes := g.Nodes()
	if len(nodes) == 0 {
		return b.String()
	}

	b.WriteString("    START([Start]) --> " + safeID(nodes[0].ID) + "\n")
	for _, n := range nodes {
		b.WriteString("    " + nodeDefinition(n) + "\n")
	}
	for _, n := range nodes {
		for _, e := range n.Edges() {
			if g.NodeByID(e) == nil {
				continue
			}
			b.WriteString(fmt.Sprintf("    %s --> %s\n", safeID(n.ID), safeID(e)))
		}
	}
	for _, n := range nodes {
		if style := statusStyle(n.Status); style != "" {
			b.WriteString(fmt.Sprintf("    style %s %s\n", safeID(n.ID), style))
		}
	}
	return b.String()
}

func nodeDefinition(n *graph.Node) string {
	id := safeID(n.ID)
	label := statusIcon(n.Status) + " " + escMermaid(n.DisplayName)
	if d := n.Timing.TotalDurationMillis; d > 0 {
		label += "<br/>" + eval.FormatMillis(d)
	}
	switch {
	case n.IsSynthetic():
		return fmt.Sprintf(`%s[["%s"]]`, id, label)
	case n.Type == graph.TypeParallel:
		return fmt.Sprintf(`%s[/"%s"/]`, id, label)
	default:
		return fmt.Sprintf(`%s["%s"]`, id, label)
	}
}

func statusStyle(s status.RunStatus) string {
	if s.Unset() {
		return "fill:#eee,stroke:#999,stroke-dasharray:4 4"
	}
	switch s.State {
	case status.StateRunning:
		return "fill:#07a,stroke:#058,color:#fff"
	case status.StatePaused, status.StateQueued:
		return "fill:#e60,stroke:#c40,color:#fff"
	case status.StateSkipped, status.StateNotBuilt:
		return "fill:#ccc,stroke:#999"
	}
	switch s.Result {
	case status.ResultSuccess:
		return "fill:#0d6,stroke:#0a5,color:#fff"
	case status.ResultFailure:
		return "fill:#d33,stroke:#a11,color:#fff"
	case status.ResultUnstable:
		return "fill:#fc0,stroke:#c90"
	case status.ResultAborted:
		return "fill:#777,stroke:#555,color:#fff"
	}
	return ""
}

// --- ASCII ---

func generateASCII(g *graph.Graph, name string) string {
	var b strings.Builder
	if name == "" {
		name = "Run"
	}

	stages := stageSequence(g)
	if len(stages) == 0 {
		b.WriteString(name + " (empty)\n")
		return b.String()
	}

	// Compute uniform box width so every box and connector aligns.
	const indent = 8
	boxWidth := computeUniformBoxWidth(stages, name)
	connCol := indent + 1 + boxWidth/2 // +1 accounts for the └/┌ border character
	pad := strings.Repeat(" ", indent)
	connPad := strings.Repeat(" ", connCol)

	headerText := centerPad(name, boxWidth)
	mid := boxWidth / 2
	b.WriteString(pad + "╔" + strings.Repeat("═", boxWidth) + "╗\n")
	b.WriteString(pad + "║" + headerText + "║\n")
	b.WriteString(pad + "╚" + strings.Repeat("═", mid) + "╤" + strings.Repeat("═", boxWidth-mid-1) + "╝\n")
	b.WriteString(connPad + "│\n")

	for i, s := range stages {
		writeASCIIStage(&b, s, indent, boxWidth)

		if branches := branchesOf(g, s); len(branches) > 0 {
			b.WriteString(connPad + "│\n")

			var brLines []string
			for _, br := range branches {
				brLines = append(brLines, "  "+nodeLabel(br)+" ")
			}

			// Branch box width = widest content line, minimum 9 (for diamond)
			brWidth := 9
			for _, l := range brLines {
				if w := runewidth.StringWidth(l); w > brWidth {
					brWidth = w
				}
			}
			// Ensure odd width so ◇ and ┬ land at center
			if brWidth%2 == 0 {
				brWidth++
			}
			brHalf := brWidth / 2

			brPad := strings.Repeat(" ", max(connCol-brHalf-1, 0))
			b.WriteString(brPad + "┌" + strings.Repeat("─", brHalf) + "◇" + strings.Repeat("─", brHalf) + "┐\n")
			for _, l := range brLines {
				lw := runewidth.StringWidth(l)
				b.WriteString(brPad + "│" + l + strings.Repeat(" ", brWidth-lw) + "│\n")
			}
			b.WriteString(brPad + "└" + strings.Repeat("─", brHalf) + "┬" + strings.Repeat("─", brHalf) + "┘\n")
		}

		if i < len(stages)-1 {
			b.WriteString(connPad + "│\n")
		}
	}
	return b.String()
}

// stageSequence returns the stages in execution order.
func stageSequence(g *graph.Graph) []*graph.Node {
	var out []*graph.Node
	for _, n := range g.Nodes() {
		if n.Type == graph.TypeStage {
			out = append(out, n)
		}
	}
	return out
}

func branchesOf(g *graph.Graph, stage *graph.Node) []*graph.Node {
	var out []*graph.Node
	for _, c := range g.Children(stage) {
		if c.Type == graph.TypeParallel {
			out = append(out, c)
		}
	}
	return out
}

// computeUniformBoxWidth returns the widest interior width needed
// across all stages and the header name.
func computeUniformBoxWidth(stages []*graph.Node, name string) int {
	w := 22
	if nw := runewidth.StringWidth(name) + 4; nw > w {
		w = nw
	}
	for _, s := range stages {
		if sw := runewidth.StringWidth(" " + nodeLabel(s) + " "); sw > w {
			w = sw
		}
	}
	return w
}

// centerPad centers s within width using spaces, based on display width.
func centerPad(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return s
	}
	total := width - sw
	left := total / 2
	right := total - left
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", right)
}

func writeASCIIStage(b *strings.Builder, s *graph.Node, indent, boxWidth int) {
	content := " " + nodeLabel(s) + " "
	contentWidth := runewidth.StringWidth(content)

	pad := strings.Repeat(" ", indent)
	mid := boxWidth / 2

	b.WriteString(pad + "┌" + strings.Repeat("─", boxWidth) + "┐\n")
	b.WriteString(pad + "│" + content + strings.Repeat(" ", boxWidth-contentWidth) + "│\n")
	if s.CauseOfBlockage != "" {
		line := " ⏳ " + truncate(s.CauseOfBlockage, boxWidth-4)
		lw := runewidth.StringWidth(line)
		b.WriteString(pad + "│" + line + strings.Repeat(" ", max(boxWidth-lw, 0)) + "│\n")
	}
	b.WriteString(pad + "└" + strings.Repeat("─", mid) + "┬" + strings.Repeat("─", boxWidth-mid-1) + "┘\n")
}

// nodeLabel is icon, name and, once known, the duration.
func nodeLabel(n *graph.Node) string {
	label := statusIcon(n.Status) + " " + n.DisplayName
	if d := n.Timing.TotalDurationMillis; d > 0 {
		label += " (" + eval.FormatMillis(d) + ")"
	}
	return label
}

func statusIcon(s status.RunStatus) string {
	if s.Unset() {
		return "·"
	}
	switch s.State {
	case status.StateRunning:
		return "▶"
	case status.StatePaused:
		return "⏸"
	case status.StateQueued:
		return "⏳"
	case status.StateSkipped:
		return "⏭"
	case status.StateNotBuilt:
		return "○"
	}
	switch s.Result {
	case status.ResultSuccess:
		return "✔"
	case status.ResultFailure:
		return "✘"
	case status.ResultUnstable:
		return "!"
	case status.ResultAborted:
		return "⊘"
	}
	return "?"
}

// --- string helpers ---

func safeID(id string) string {
	r := strings.NewReplacer("-", "_", " ", "_", ".", "_")
	return "n" + r.Replace(id)
}

func escMermaid(s string) string {
	s = strings.ReplaceAll(s, `"`, "#quot;")
	s = strings.ReplaceAll(s, `'`, "#apos;")
	return s
}

func truncate(s string, max int) string {
	if max < 4 || len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
