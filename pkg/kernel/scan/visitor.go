// Package scan walks an execution trace backward from its current heads and
// reports chunk, parallel and atom events to a Visitor.
package scan

import "github.com/ormasoftchile/flowgraph/pkg/kernel/flow"

// Visitor receives scan events. Nodes arrive in reverse execution order;
// before is the node preceding a boundary, after the node following it.
type Visitor interface {
	ChunkStart(start, before *flow.Node)
	ChunkEnd(end, after *flow.Node)
	ParallelStart(parallelStart, branch *flow.Node)
	ParallelEnd(parallelStart, parallelEnd *flow.Node)
	ParallelBranchStart(parallelStart, branchStart *flow.Node)
	// ParallelBranchEnd gets a nil branchEnd for a branch with no node past its start.
	ParallelBranchEnd(parallelStart, branchEnd *flow.Node)
	AtomNode(before, atom, after *flow.Node)
}

// NopVisitor ignores every event. Embed it to implement part of Visitor.
type NopVisitor struct{}

func (NopVisitor) ChunkStart(start, before *flow.Node) {}
func (NopVisitor) ChunkEnd(end, after *flow.Node) {}
func (NopVisitor) ParallelStart(parallelStart, branch *flow.Node) {}
func (NopVisitor) ParallelEnd(parallelStart, parallelEnd *flow.Node) {}
func (NopVisitor) ParallelBranchStart(parallelStart, branchStart *flow.Node) {}
func (NopVisitor) ParallelBranchEnd(parallelStart, branchEnd *flow.Node) {}
func (NopVisitor) AtomNode(before, atom, after *flow.Node) {}

// Chunk remembers the boundaries and pause total of the chunk being scanned.
type Chunk struct {
	First       *flow.Node
	Last        *flow.Node
	Before      *flow.Node
	After       *flow.Node
	PauseMillis int64
}

// Reset clears the chunk for the next one.
func (c *Chunk) Reset() {
	*c = Chunk{}
}

// Open records the chunk end, which the backward scan reaches first.
func (c *Chunk) Open(end, after *flow.Node) {
	c.Last = end
	c.After = after
}

// Close records the first node of the chunk.
func (c *Chunk) Close(start, before *flow.Node) {
	c.First = start
	c.Before = before
}
