package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ormasoftchile/flowgraph/pkg/kernel/eval"
	"github.com/ormasoftchile/flowgraph/pkg/kernel/graph"
	"github.com/ormasoftchile/flowgraph/pkg/present"
)

const defaultNodeFormat = `{{.id}}	{{.type}}	{{.name}}	{{default "UNKNOWN" .result}}	{{default "-" .state}}	{{ms .duration}}`

var (
	nodesWhere  string
	nodesFormat string
	nodesJSON   bool
	nodesFuture string
)

var nodesCmd = &cobra.Command{
	Use:   "nodes [trace]",
	Short: "List the stages and parallel branches of a run",
	Long: `List the stages and parallel branches of a run in execution order.

The trace is a .jsonl stream or a flowgraph/v0 YAML/JSON document, given as a
path or as a run id in the traces directory. --where filters with an expression
over id, name, type, result, state, duration, pause, start, synthetic, parents,
edges and cause, e.g. --where 'type == "STAGE" && result == "FAILURE"'.`,
	Args: cobra.ExactArgs(1),
	RunE: runNodes,
}

func runNodes(cmd *cobra.Command, args []string) error {
	filter, err := eval.Compile(nodesWhere)
	if err != nil {
		return err
	}
	b, err := scanTrace(args[0])
	if err != nil {
		return err
	}
	g := b.Graph()
	if nodesFuture != "" {
		last, err := scanTrace(nodesFuture)
		if err != nil {
			return fmt.Errorf("--future: %w", err)
		}
		g = graph.Union(g, graph.Placeholders(last.Graph()))
	}
	nodes, err := filter.Apply(g.Nodes())
	if err != nil {
		return err
	}
	if nodesJSON {
		return writeJSON(os.Stdout, present.Nodes(runPaths(b), g, nodes))
	}
	return writeTemplate(os.Stdout, nodesFormat, nodes)
}

func writeTemplate(w io.Writer, format string, nodes []*graph.Node) error {
	for _, n := range nodes {
		line, err := eval.Render(format, n)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, line)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runPaths(b *graph.Builder) present.Paths {
	return present.Paths{Base: "/runs/" + b.Execution().ID}
}

// --- steps ---

var (
	stepsJSON   bool
	stepsFormat string
)

var stepsCmd = &cobra.Command{
	Use:   "steps [trace] [node]",
	Short: "List the steps of a stage or branch, or of the whole run",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runSteps,
}

func runSteps(cmd *cobra.Command, args []string) error {
	b, err := scanTrace(args[0])
	if err != nil {
		return err
	}
	var steps []*graph.Node
	if len(args) == 2 {
		if b.NodeByID(args[1]) == nil {
			return fmt.Errorf("node %s: not a stage or branch of %s", args[1], runName(b.Execution()))
		}
		steps = b.Steps(args[1])
	} else {
		steps = b.AllSteps()
	}
	if stepsJSON {
		return writeJSON(os.Stdout, present.Steps(runPaths(b), steps))
	}
	return writeTemplate(os.Stdout, stepsFormat, steps)
}

// --- union ---

var unionJSON bool

var unionCmd = &cobra.Command{
	Use:   "union [current] [previous]",
	Short: "Merge a run's graph with one returned earlier",
	Long: `Merge the graph of the current trace with the graph of an earlier trace of
the same run. Nodes the current scan has not reached are kept from the earlier
graph, so a polling client never sees nodes disappear.`,
	Args: cobra.ExactArgs(2),
	RunE: runUnion,
}

func runUnion(cmd *cobra.Command, args []string) error {
	cur, err := scanTrace(args[0])
	if err != nil {
		return err
	}
	prev, err := scanTrace(args[1])
	if err != nil {
		return err
	}
	g := cur.Union(prev.Graph())
	if unionJSON {
		return writeJSON(os.Stdout, present.Nodes(runPaths(cur), g, g.Nodes()))
	}
	return writeTemplate(os.Stdout, defaultNodeFormat, g.Nodes())
}

func init() {
	nodesCmd.Flags().StringVar(&nodesWhere, "where", "", "Filter expression")
	nodesCmd.Flags().StringVar(&nodesFormat, "format", defaultNodeFormat, "Go template per node")
	nodesCmd.Flags().BoolVar(&nodesJSON, "json", false, "Output as JSON")
	nodesCmd.Flags().StringVar(&nodesFuture, "future", "", "Completed run whose remaining stages are shown as placeholders")

	stepsCmd.Flags().BoolVar(&stepsJSON, "json", false, "Output as JSON")
	stepsCmd.Flags().StringVar(&stepsFormat, "format", `{{.id}}	{{.name}}	{{default "UNKNOWN" .result}}	{{default "-" .state}}	{{ms .duration}}`, "Go template per step")

	unionCmd.Flags().BoolVar(&unionJSON, "json", false, "Output as JSON")

	rootCmd.AddCommand(nodesCmd)
	rootCmd.AddCommand(stepsCmd)
	rootCmd.AddCommand(unionCmd)
}
