// Package report summarises a run as markdown and renders it for the
// terminal with glamour.
package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/ormasoftchile/flowgraph/pkg/kernel/eval"
	"github.com/ormasoftchile/flowgraph/pkg/kernel/graph"
	"github.com/ormasoftchile/flowgraph/pkg/kernel/status"
)

// Markdown summarises the graph of b: a table of stages and branches, then
// the steps that failed or wait for input.
func Markdown(b *graph.Builder) string {
	var sb strings.Builder
	exec := b.Execution()
	if exec == nil {
		return "# Run\n\nNo execution.\n"
	}

	title := exec.Name
	if title == "" {
		title = exec.ID
	}
	fmt.Fprintf(&sb, "# %s\n\n", escape(title))
	switch {
	case exec.Building:
		sb.WriteString("**Status:** running\n\n")
	default:
		fmt.Fprintf(&sb, "**Status:** %s in %s\n\n", strings.ToLower(exec.Result),
			eval.FormatMillis(exec.EndMillis-exec.StartMillis))
	}

	g := b.Graph()
	if g.Len() == 0 {
		sb.WriteString("No stages.\n")
		return sb.String()
	}

	sb.WriteString("| Node | Type | Result | State | Duration | Paused |\n")
	sb.WriteString("|---|---|---|---|---|---|\n")
	for _, n := range g.Nodes() {
		name := escape(n.DisplayName)
		if n.Type == graph.TypeParallel {
			name = "↳ " + name
		}
		result, state := string(n.Status.Result), string(n.Status.State)
		if n.Status.Unset() {
			result, state = string(status.ResultUnknown), "-"
		}
		fmt.Fprintf(&sb, "| %s | %s | %s | %s | %s | %s |\n",
			name, strings.ToLower(string(n.Type)), result, state,
			eval.FormatMillis(n.Timing.TotalDurationMillis),
			eval.FormatMillis(n.Timing.PauseDurationMillis))
	}

	var blocked []*graph.Node
	for _, n := range g.Nodes() {
		if n.CauseOfBlockage != "" {
			blocked = append(blocked, n)
		}
	}
	if len(blocked) > 0 {
		sb.WriteString("\n## Waiting\n\n")
		for _, n := range blocked {
			fmt.Fprintf(&sb, "- **%s**: %s\n", escape(n.DisplayName), escape(n.CauseOfBlockage))
		}
	}

	var failed, waiting []*graph.Node
	for _, s := range b.AllSteps() {
		switch {
		case s.Status.State == status.StatePaused:
			waiting = append(waiting, s)
		case s.Status.Result == status.ResultFailure || s.Status.Result == status.ResultAborted:
			failed = append(failed, s)
		}
	}
	if len(failed) > 0 {
		sb.WriteString("\n## Failed steps\n\n")
		for _, s := range failed {
			msg := ""
			if s.Raw != nil && s.Raw.Error != nil {
				msg = ": " + escape(s.Raw.Error.Message)
			}
			fmt.Fprintf(&sb, "- `%s` %s%s\n", s.ID, escape(s.DisplayName), msg)
		}
	}
	if len(waiting) > 0 {
		sb.WriteString("\n## Waiting for input\n\n")
		for _, s := range waiting {
			fmt.Fprintf(&sb, "- `%s` %s\n", s.ID, escape(s.DisplayName))
		}
	}
	return sb.String()
}

// Render converts markdown to styled terminal output. Style is a glamour
// standard style name ("dark", "light", "notty", "ascii"); empty picks one
// from the terminal.
func Render(md, style string, width int) (string, error) {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	if style == "" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(style))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", fmt.Errorf("create renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return out, nil
}

func escape(s string) string {
	return strings.NewReplacer("|", `\|`, "\n", " ").Replace(s)
}
