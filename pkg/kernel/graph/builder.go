package graph

import (
	"log/slog"

	"github.com/ormasoftchile/flowgraph/pkg/kernel/flow"
	"github.com/ormasoftchile/flowgraph/pkg/kernel/scan"
	"github.com/ormasoftchile/flowgraph/pkg/kernel/status"
)

// Option configures a Builder.
type Option func(*config)

type config struct {
	computer status.Computer
	clock    status.Clock
	log      *slog.Logger
	dump     bool
}

// WithClock sets the clock used for running nodes and synthetic stages.
func WithClock(c status.Clock) Option {
	return func(cfg *config) { cfg.clock = c }
}

// WithComputer replaces the status and timing computer.
func WithComputer(c status.Computer) Option {
	return func(cfg *config) { cfg.computer = c }
}

// WithLogger sets the logger for consistency errors and node dumps.
func WithLogger(l *slog.Logger) Option {
	return func(cfg *config) { cfg.log = l }
}

// WithNodeDump logs every scan event at debug level.
func WithNodeDump(on bool) Option {
	return func(cfg *config) { cfg.dump = on }
}

// Builder holds the graph of one scan and answers step queries against the
// same execution.
type Builder struct {
	exec  *flow.Execution
	cfg   config
	graph *Graph
}

// Build scans exec once and returns the resulting builder. A nil execution
// yields an empty graph.
func Build(exec *flow.Execution, opts ...Option) *Builder {
	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.clock == nil {
		cfg.clock = status.SystemClock{}
	}
	if cfg.computer == nil {
		cfg.computer = status.NewComputer(cfg.clock)
	}
	if cfg.log == nil {
		cfg.log = slog.Default()
	}

	b := &Builder{exec: exec, cfg: cfg}
	if exec == nil {
		b.graph = Empty()
		return b
	}
	v := newVisitor(exec, &b.cfg)
	scan.VisitSimpleChunks(exec, v, scan.StageFinder{})
	b.graph = v.result()
	return b
}

// Graph returns the built graph.
func (b *Builder) Graph() *Graph { return b.graph }

// Nodes returns the stage and branch nodes in execution order.
func (b *Builder) Nodes() []*Node { return b.graph.Nodes() }

// NodeByID returns one stage or branch node, or nil.
func (b *Builder) NodeByID(id string) *Node { return b.graph.NodeByID(id) }

// Execution returns the scanned execution.
func (b *Builder) Execution() *flow.Execution { return b.exec }
