// Package explorer implements the interactive REPL for browsing the graph
// of a run.
package explorer

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"

	"github.com/ormasoftchile/flowgraph/pkg/kernel/eval"
	"github.com/ormasoftchile/flowgraph/pkg/kernel/flow"
	"github.com/ormasoftchile/flowgraph/pkg/kernel/graph"
)

// Loader reads the current state of a run.
type Loader func() (*flow.Execution, error)

// Explorer browses one run. Every reload is unioned into the graph already
// shown, so nodes never disappear between reloads.
type Explorer struct {
	load    Loader
	opts    []graph.Option
	builder *graph.Builder
	graph   *graph.Graph
	filter  *eval.Filter
	output  io.Writer
	rl      *readline.Instance
}

// New creates an explorer and performs the first scan.
func New(load Loader, opts ...graph.Option) (*Explorer, error) {
	e := &Explorer{
		load:   load,
		opts:   opts,
		graph:  graph.Empty(),
		output: os.Stdout,
	}
	e.filter, _ = eval.Compile("")
	if err := e.reload(); err != nil {
		return nil, err
	}
	return e, nil
}

// SetOutput redirects command output.
func (e *Explorer) SetOutput(w io.Writer) { e.output = w }

var commands = []string{"nodes", "node", "steps", "step", "where", "future",
	"diagram ascii", "diagram mermaid", "report", "reload", "help", "quit"}

// Run starts the interactive REPL loop.
func (e *Explorer) Run(ctx context.Context) error {
	completer := readline.NewPrefixCompleter()
	for _, cmd := range commands {
		completer.Children = append(completer.Children, readline.PcItem(cmd))
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          e.prompt(),
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return fmt.Errorf("init readline: %w", err)
	}
	e.rl = rl
	defer rl.Close()

	fmt.Fprintf(e.output, "flowgraph explorer: %s, %d nodes\n", e.name(), e.graph.Len())
	fmt.Fprintf(e.output, "Type 'help' for available commands.\n\n")

	for {
		if ctx.Err() != nil {
			return nil
		}
		rl.SetPrompt(e.prompt())
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				return nil
			}
			return err
		}
		if e.Exec(line) {
			return nil
		}
	}
}

// Exec runs one command line and reports whether the user asked to quit.
func (e *Explorer) Exec(line string) bool {
	parts := strings.Fields(strings.TrimSpace(line))
	if len(parts) == 0 {
		return false
	}
	arg := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), parts[0]))

	switch parts[0] {
	case "nodes", "ls":
		e.handleNodes()
	case "node", "n":
		e.handleNode(arg)
	case "steps", "s":
		e.handleSteps(arg)
	case "step":
		e.handleStep(arg)
	case "where", "w":
		e.handleWhere(arg)
	case "future":
		e.handleFuture(arg)
	case "diagram", "d":
		e.handleDiagram(arg)
	case "report":
		e.handleReport()
	case "reload", "r":
		if err := e.reload(); err != nil {
			fmt.Fprintf(e.output, "Error: %v\n", err)
			return false
		}
		fmt.Fprintf(e.output, "Reloaded: %d nodes.\n", e.graph.Len())
	case "help", "?":
		e.handleHelp()
	case "quit", "q", "exit":
		fmt.Fprintf(e.output, "Exiting explorer.\n")
		return true
	default:
		fmt.Fprintf(e.output, "Unknown command: %q. Type 'help' for available commands.\n", parts[0])
	}
	return false
}

func (e *Explorer) reload() error {
	exec, err := e.load()
	if err != nil {
		return fmt.Errorf("load run: %w", err)
	}
	e.builder = graph.Build(exec, e.opts...)
	e.graph = graph.Union(e.builder.Graph(), e.graph)
	return nil
}

func (e *Explorer) name() string {
	exec := e.builder.Execution()
	if exec == nil {
		return "run"
	}
	if exec.Name != "" {
		return exec.Name
	}
	return exec.ID
}

// prompt is flowgraph[name | state]> with the filter appended when set.
func (e *Explorer) prompt() string {
	state := "running"
	if exec := e.builder.Execution(); exec != nil && !exec.Building {
		state = strings.ToLower(exec.Result)
	}
	if f := e.filter.String(); f != "" {
		return fmt.Sprintf("flowgraph[%s | %s | where %s]> ", e.name(), state, f)
	}
	return fmt.Sprintf("flowgraph[%s | %s]> ", e.name(), state)
}
