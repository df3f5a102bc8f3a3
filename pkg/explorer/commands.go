package explorer

import (
	"fmt"
	"strings"
	"time"

	"github.com/ormasoftchile/flowgraph/pkg/diagram"
	"github.com/ormasoftchile/flowgraph/pkg/kernel/eval"
	"github.com/ormasoftchile/flowgraph/pkg/kernel/graph"
	"github.com/ormasoftchile/flowgraph/pkg/kernel/status"
	"github.com/ormasoftchile/flowgraph/pkg/kernel/trace"
	"github.com/ormasoftchile/flowgraph/pkg/report"
)

// handleNodes lists the stages and branches that pass the current filter.
func (e *Explorer) handleNodes() {
	nodes, err := e.filter.Apply(e.graph.Nodes())
	if err != nil {
		fmt.Fprintf(e.output, "Error: %v\n", err)
		return
	}
	if len(nodes) == 0 {
		fmt.Fprintf(e.output, "No nodes.\n")
		return
	}
	for _, n := range nodes {
		indent := ""
		if n.Type == graph.TypeParallel {
			indent = "  "
		}
		fmt.Fprintf(e.output, "  %s%-4s %s\n", indent, n.ID, summary(n))
	}
}

// handleNode prints everything known about one node.
func (e *Explorer) handleNode(id string) {
	if id == "" {
		fmt.Fprintf(e.output, "Usage: node <id>\n")
		return
	}
	n := e.graph.NodeByID(id)
	if n == nil {
		fmt.Fprintf(e.output, "No node %q.\n", id)
		return
	}
	e.printDetail(n)
	if parents := n.Parents(); len(parents) > 0 {
		fmt.Fprintf(e.output, "  parents:  %s\n", strings.Join(parents, ", "))
	}
	if edges := n.Edges(); len(edges) > 0 {
		fmt.Fprintf(e.output, "  edges:    %s\n", strings.Join(edges, ", "))
	}
	if n.CauseOfBlockage != "" {
		fmt.Fprintf(e.output, "  waiting:  %s\n", n.CauseOfBlockage)
	}
}

// handleSteps lists the steps of a node, or of the whole run.
func (e *Explorer) handleSteps(id string) {
	var steps []*graph.Node
	if id == "" {
		steps = e.builder.AllSteps()
	} else {
		if e.builder.NodeByID(id) == nil {
			fmt.Fprintf(e.output, "No node %q in the current scan.\n", id)
			return
		}
		steps = e.builder.Steps(id)
	}
	if len(steps) == 0 {
		fmt.Fprintf(e.output, "No steps.\n")
		return
	}
	for _, s := range steps {
		line := fmt.Sprintf("  %-4s %s", s.ID, summary(s))
		if s.Raw != nil && s.Raw.Error != nil {
			line += "  error: " + s.Raw.Error.Message
		}
		fmt.Fprintln(e.output, line)
	}
}

func (e *Explorer) handleStep(id string) {
	if id == "" {
		fmt.Fprintf(e.output, "Usage: step <id>\n")
		return
	}
	s := e.builder.StepByID(id)
	if s == nil {
		fmt.Fprintf(e.output, "No step %q.\n", id)
		return
	}
	e.printDetail(s)
	if s.Raw != nil {
		if s.Raw.Error != nil {
			fmt.Fprintf(e.output, "  error:    %s\n", s.Raw.Error.Message)
		}
		if s.Raw.PausedForInput {
			fmt.Fprintf(e.output, "  input:    waiting\n")
		}
	}
}

func (e *Explorer) printDetail(n *graph.Node) {
	fmt.Fprintf(e.output, "%s [%s]\n", n.DisplayName, n.ID)
	fmt.Fprintf(e.output, "  type:     %s\n", n.Type)
	fmt.Fprintf(e.output, "  status:   %s\n", n.Status)
	if t := n.Timing.StartTimeMillis; t > 0 {
		fmt.Fprintf(e.output, "  started:  %s\n", time.UnixMilli(t).UTC().Format(time.RFC3339))
	}
	fmt.Fprintf(e.output, "  duration: %s\n", eval.FormatMillis(n.Timing.TotalDurationMillis))
	if p := n.Timing.PauseDurationMillis; p > 0 {
		fmt.Fprintf(e.output, "  paused:   %s\n", eval.FormatMillis(p))
	}
}

// handleWhere sets the node filter. Without an expression it clears it.
func (e *Explorer) handleWhere(src string) {
	f, err := eval.Compile(src)
	if err != nil {
		fmt.Fprintf(e.output, "Error: %v\n", err)
		return
	}
	e.filter = f
	if src == "" {
		fmt.Fprintf(e.output, "Filter cleared.\n")
		return
	}
	fmt.Fprintf(e.output, "Filter: %s\n", f)
}

// handleFuture shows the stages of a finished run that this run has not
// reached yet.
func (e *Explorer) handleFuture(path string) {
	if path == "" {
		fmt.Fprintf(e.output, "Usage: future <completed-trace>\n")
		return
	}
	exec, err := trace.LoadFile(path)
	if err != nil {
		fmt.Fprintf(e.output, "Error: %v\n", err)
		return
	}
	before := e.graph.Len()
	last := graph.Build(exec, e.opts...).Graph()
	e.graph = graph.Union(e.graph, graph.Placeholders(last))
	fmt.Fprintf(e.output, "Added %d placeholder nodes.\n", e.graph.Len()-before)
}

func (e *Explorer) handleDiagram(format string) {
	if format == "" {
		format = string(diagram.FormatASCII)
	}
	out, err := diagram.Generate(e.graph, e.name(), diagram.Format(format))
	if err != nil {
		fmt.Fprintf(e.output, "Error: %v\n", err)
		return
	}
	fmt.Fprint(e.output, out)
}

func (e *Explorer) handleReport() {
	fmt.Fprint(e.output, report.Markdown(e.builder))
}

func (e *Explorer) handleHelp() {
	fmt.Fprintf(e.output, `Commands:
  nodes (ls)            List stages and branches passing the filter
  node (n) <id>         Show a stage or branch
  steps (s) [id]        List the steps of a node, or of the whole run
  step <id>             Show a step
  where (w) [expr]      Filter nodes, e.g. where result == "FAILURE"; no expr clears
  future <trace>        Add placeholders from a completed run of the same pipeline
  diagram (d) [format]  Draw the graph: ascii (default) or mermaid
  report                Print a markdown summary
  reload (r)            Rescan the trace and merge it into the graph
  help (?)              Show this help
  quit (q)              Exit the explorer
`)
}

// summary is status, name and duration on one line.
func summary(n *graph.Node) string {
	st := "pending"
	if !n.Status.Unset() {
		st = strings.ToLower(string(n.Status.Result))
		if n.Status.State != status.StateFinished {
			st = strings.ToLower(string(n.Status.State))
		}
	}
	line := fmt.Sprintf("%-10s %s", st, n.DisplayName)
	if d := n.Timing.TotalDurationMillis; d > 0 {
		line += "  " + eval.FormatMillis(d)
	}
	return line
}
