// Package flowtest builds execution traces for tests. Node ids are assigned
// sequentially from "2" and every node is stamped with the builder clock.
package flowtest

import (
	"strconv"

	"github.com/ormasoftchile/flowgraph/pkg/kernel/flow"
)

// Option adjusts a node before it is appended.
type Option func(*flow.Node)

// Failed marks the node with an error.
func Failed(msg string) Option {
	return func(n *flow.Node) { n.Error = &flow.NodeError{Message: msg} }
}

// Aborted marks the node as interrupted.
func Aborted(msg string) Option {
	return func(n *flow.Node) { n.Error = &flow.NodeError{Message: msg, Aborted: true} }
}

// Warn attaches a warning to the node.
func Warn(msg string) Option {
	return func(n *flow.Node) { n.Warning = msg }
}

// Paused records time spent paused inside the node.
func Paused(ms int64) Option {
	return func(n *flow.Node) { n.PauseMillis = ms }
}

// AwaitingInput marks an atom as waiting for user input.
func AwaitingInput() Option {
	return func(n *flow.Node) { n.PausedForInput = true }
}

// NotExecuted marks the node as skipped by the engine.
func NotExecuted() Option {
	return func(n *flow.Node) { n.NotExecuted = true }
}

// Skipped tags a stage start as statically skipped.
func Skipped(reason string) Option {
	return Tag(flow.TagStageStatus, reason)
}

// Synthetic tags a stage start as engine generated.
func Synthetic() Option {
	return Tag(flow.TagSyntheticStage, "")
}

// Tag sets a tag on the node.
func Tag(key, value string) Option {
	return func(n *flow.Node) {
		if n.Tags == nil {
			n.Tags = map[string]string{}
		}
		n.Tags[key] = value
	}
}

// Queued records why an agent allocation is waiting.
func Queued(reason string) Option {
	return func(n *flow.Node) { n.Queued = reason }
}

// Builder accumulates nodes for one execution.
type Builder struct {
	exec   *flow.Execution
	nextID int
	now    int64
	start  *flow.Node
}

// New returns a builder for a building run whose clock starts at 1000.
func New(runID string) *Builder {
	return &Builder{
		exec:   &flow.Execution{ID: runID, Name: runID, Building: true, StartMillis: 1000},
		nextID: 2,
		now:    1000,
	}
}

// Now returns the builder clock.
func (b *Builder) Now() int64 { return b.now }

// Tick advances the builder clock.
func (b *Builder) Tick(ms int64) { b.now += ms }

func (b *Builder) add(n *flow.Node, opts []Option) *flow.Node {
	n.ID = strconv.Itoa(b.nextID)
	b.nextID++
	n.StartMillis = b.now
	for _, opt := range opts {
		opt(n)
	}
	b.exec.Nodes = append(b.exec.Nodes, n)
	return n
}

// FlowStart appends the flow start and returns a cursor positioned on it.
func (b *Builder) FlowStart() *Cursor {
	b.start = b.add(&flow.Node{Kind: flow.KindFlowStart, Name: "Start of Pipeline"}, nil)
	return &Cursor{b: b, tip: []string{b.start.ID}}
}

// Execution returns the trace built so far. Heads are derived from the
// childless nodes unless the run was finished with FlowEnd.
func (b *Builder) Execution() *flow.Execution {
	b.exec.Heads = nil
	b.exec.Reindex()
	return b.exec
}

// Cursor appends nodes after its tip.
type Cursor struct {
	b     *Builder
	tip   []string
	start *flow.Node // branch start when the cursor walks a parallel branch
}

// Tick advances the builder clock.
func (c *Cursor) Tick(ms int64) *Cursor {
	c.b.Tick(ms)
	return c
}

func (c *Cursor) append(n *flow.Node, opts []Option) *flow.Node {
	n.Parents = append([]string(nil), c.tip...)
	n = c.b.add(n, opts)
	c.tip = []string{n.ID}
	return n
}

// Atom appends a step.
func (c *Cursor) Atom(function string, opts ...Option) *flow.Node {
	return c.append(&flow.Node{Kind: flow.KindAtom, Function: function, Name: function}, opts)
}

// Input appends an input step waiting for a response.
func (c *Cursor) Input(opts ...Option) *flow.Node {
	return c.Atom(flow.FunctionInput, append([]Option{AwaitingInput()}, opts...)...)
}

// StageStart opens a stage block.
func (c *Cursor) StageStart(label string, opts ...Option) *flow.Node {
	return c.append(&flow.Node{Kind: flow.KindBlockStart, Function: flow.FunctionStage, Name: "Stage : Start", Label: label}, opts)
}

// AgentStart opens the outer block of an agent allocation.
func (c *Cursor) AgentStart(opts ...Option) *flow.Node {
	return c.append(&flow.Node{Kind: flow.KindBlockStart, Function: flow.FunctionNode, Name: "Allocate node : Start"}, opts)
}

// BodyStart opens the body block of a step.
func (c *Cursor) BodyStart(function string, opts ...Option) *flow.Node {
	return c.append(&flow.Node{Kind: flow.KindBlockStart, Function: function, Body: true, Name: "Body : Start"}, opts)
}

// BlockEnd closes start.
func (c *Cursor) BlockEnd(start *flow.Node, opts ...Option) *flow.Node {
	return c.append(&flow.Node{Kind: flow.KindBlockEnd, Function: start.Function, StartID: start.ID, Name: start.Function + " : End"}, opts)
}

// FlowEnd closes the run with result and marks it finished.
func (c *Cursor) FlowEnd(result string, opts ...Option) *flow.Node {
	n := c.append(&flow.Node{Kind: flow.KindFlowEnd, StartID: c.b.start.ID, Name: "End of Pipeline"}, opts)
	c.b.exec.Building = false
	c.b.exec.Result = result
	c.b.exec.EndMillis = c.b.now
	return n
}

// Parallel opens a parallel step.
func (c *Cursor) Parallel(opts ...Option) *Fork {
	start := c.append(&flow.Node{Kind: flow.KindBlockStart, Function: flow.FunctionParallel, Name: "Execute in parallel : Start"}, opts)
	return &Fork{b: c.b, parent: c, start: start}
}

// EndBranch closes the branch the cursor walks.
func (c *Cursor) EndBranch(opts ...Option) *flow.Node {
	return c.BlockEnd(c.start, opts...)
}

// Fork is an open parallel step.
type Fork struct {
	b        *Builder
	parent   *Cursor
	start    *flow.Node
	branches []*Cursor
}

// Start returns the parallel block start.
func (f *Fork) Start() *flow.Node { return f.start }

// Branch opens a named branch and returns a cursor inside it.
func (f *Fork) Branch(name string, opts ...Option) *Cursor {
	bc := &Cursor{b: f.b, tip: []string{f.start.ID}}
	bc.start = bc.append(&flow.Node{
		Kind:       flow.KindBlockStart,
		Function:   flow.FunctionParallel,
		Body:       true,
		Name:       "Branch: " + name,
		ThreadName: name,
	}, opts)
	f.branches = append(f.branches, bc)
	return bc
}

// Join closes the parallel after every branch ended and moves the parent
// cursor past it.
func (f *Fork) Join(opts ...Option) *Cursor {
	var tips []string
	for _, bc := range f.branches {
		tips = append(tips, bc.tip...)
	}
	f.parent.tip = tips
	f.parent.append(&flow.Node{Kind: flow.KindBlockEnd, Function: flow.FunctionParallel, StartID: f.start.ID, Name: "Execute in parallel : End"}, opts)
	return f.parent
}

// BranchStart returns the block start of the branch the cursor walks.
func (c *Cursor) BranchStart() *flow.Node { return c.start }

// Tip returns the ids the next node will be appended after.
func (c *Cursor) Tip() []string { return append([]string(nil), c.tip...) }
