package scan

import "github.com/ormasoftchile/flowgraph/pkg/kernel/flow"

// ChunkFinder decides where chunks begin and end.
type ChunkFinder interface {
	// StartInsideChunk reports whether the heads are inside a chunk, so the
	// scan opens one before visiting anything.
	StartInsideChunk() bool
	IsChunkStart(exec *flow.Execution, n, before *flow.Node) bool
	// IsChunkEnd gets later, the node visited just before n.
	IsChunkEnd(exec *flow.Execution, n, later *flow.Node) bool
}

// StageFinder chunks a trace by stage, block scoped or marker based.
type StageFinder struct{}

func (StageFinder) StartInsideChunk() bool { return true }

func (StageFinder) IsChunkStart(_ *flow.Execution, n, _ *flow.Node) bool {
	return flow.IsStage(n)
}

func (f StageFinder) IsChunkEnd(exec *flow.Execution, n, later *flow.Node) bool {
	if n.Kind == flow.KindBlockEnd {
		if start := exec.StartOf(n); start != nil && f.IsChunkStart(exec, start, nil) {
			return true
		}
	}
	// a marker stage ends where the next one starts
	return later != nil && f.IsChunkStart(exec, later, nil)
}
