package graph

import (
	"slices"
	"strings"

	"github.com/ormasoftchile/flowgraph/pkg/kernel/flow"
	"github.com/ormasoftchile/flowgraph/pkg/kernel/scan"
	"github.com/ormasoftchile/flowgraph/pkg/kernel/status"
)

// fork marks where the branch stacks stood when a parallel end was reached.
type fork struct {
	end    *flow.Node
	starts int
	ends   int
}

// visitor is the traversal state of one scan. Nodes are emitted in scan
// order, which is reverse execution order.
type visitor struct {
	exec *flow.Execution
	cfg  *config

	chunk scan.Chunk
	out   []*Node
	index map[string]*Node

	firstExecuted  *flow.Node
	nextStage      *Node
	pending        []*Node // branches not yet attached to a stage, in attach order
	forks          []fork
	nestedStages   []*flow.Node
	nestedBranches []*flow.Node
	branchPauses   []int64
	branchEnds     []*flow.Node
	endPauses      []int64 // chunk pause when each branch end was reached
	pendingInputs  []*flow.Node
	agent          *flow.Node
}

var _ scan.Visitor = (*visitor)(nil)

func newVisitor(exec *flow.Execution, cfg *config) *visitor {
	return &visitor{exec: exec, cfg: cfg, index: make(map[string]*Node)}
}

func (v *visitor) dump(event string, n *flow.Node) {
	if !v.cfg.dump || n == nil {
		return
	}
	v.cfg.log.Debug("node dump",
		"event", event,
		"id", n.ID,
		"name", n.DisplayName(),
		"function", n.Function,
		"kind", string(n.Kind))
}

// parallelEnd returns the end of the innermost parallel being scanned.
func (v *visitor) parallelEnd() *flow.Node {
	if len(v.forks) == 0 {
		return nil
	}
	return v.forks[len(v.forks)-1].end
}

func (v *visitor) emit(n *Node) {
	if _, dup := v.index[n.ID]; dup {
		v.cfg.log.Warn("duplicate node skipped", "run", v.exec.ID, "id", n.ID)
		return
	}
	v.out = append(v.out, n)
	v.index[n.ID] = n
}

func (v *visitor) result() *Graph {
	nodes := slices.Clone(v.out)
	slices.Reverse(nodes)
	return newGraph(nodes)
}

func (v *visitor) ChunkStart(start, before *flow.Node) {
	v.dump("chunkStart", start)
	if v.parallelEnd() != nil {
		// stages inside a parallel belong to their branch
		v.markExecuted(start)
		return
	}
	if n := len(v.nestedStages); n > 0 && v.nestedStages[n-1].StartID == start.ID {
		v.nestedStages = v.nestedStages[:n-1]
		if n > 1 {
			v.markExecuted(start)
			return
		}
	}

	v.chunk.Close(start, before)
	v.handleChunkDone()
	v.resetChunk()
	if flow.IsSyntheticStage(start) {
		return
	}
	v.markExecuted(start)
}

func (v *visitor) markExecuted(n *flow.Node) {
	if flow.IsExecuted(n) {
		v.firstExecuted = n
	}
}

// nested reports whether end belongs to a chunk inside the one being scanned.
func (v *visitor) nested(end *flow.Node) bool {
	if v.parallelEnd() != nil {
		return v.chunk.Last != nil
	}
	n := len(v.nestedStages)
	return n > 0 && v.nestedStages[n-1].ID != end.ID
}

func (v *visitor) ChunkEnd(end, after *flow.Node) {
	v.dump("chunkEnd", end)
	if !v.nested(end) {
		v.chunk.Open(end, after)
	}
	if v.parallelEnd() == nil {
		v.captureOrphans()
	}

	// a stage end may enclose nested stages
	if v.parallelEnd() == nil && end.Kind == flow.KindBlockEnd {
		start := v.exec.StartOf(end)
		if !flow.IsSyntheticStage(start) && flow.IsStage(start) {
			// the scanner can deliver the same chunk end twice
			if n := len(v.nestedStages); n == 0 || v.nestedStages[n-1].ID != end.ID {
				v.nestedStages = append(v.nestedStages, end)
			}
		}
	}
	v.firstExecuted = nil

	// marker stages have no block end; the end node is content
	if !end.IsBlockEnd() {
		v.AtomNode(nil, end, after)
	}
}

// handleChunkDone turns a fully scanned chunk into a stage.
func (v *visitor) handleChunkDone() {
	first := v.chunk.First
	if first == nil {
		return
	}
	v.dump("chunkDone", first)
	if flow.IsSyntheticStage(first) {
		return
	}
	var timing status.TimingInfo
	if v.firstExecuted != nil && v.chunk.Last != nil {
		if t := v.cfg.computer.ComputeTiming(v.exec, v.chunk.PauseMillis, v.firstExecuted, v.chunk.Last, v.chunk.After); t != nil {
			timing = *t
		}
	}

	var st status.RunStatus
	skipped := flow.IsSkippedStage(first)
	switch {
	case skipped:
		st = status.New(status.ResultNotBuilt, status.StateSkipped)
	case v.firstExecuted == nil:
		st = status.FromGeneric(status.NotExecuted)
	case v.chunk.Last != nil:
		st = status.FromGeneric(v.cfg.computer.ComputeStatus(v.exec, v.chunk.Before, v.firstExecuted, v.chunk.Last, v.chunk.After))
	default:
		st = status.FromGeneric(v.cfg.computer.ComputeGenericStatus(v.exec, v.firstExecuted))
	}
	if len(v.pendingInputs) > 0 {
		st = status.New(status.ResultUnknown, status.StatePaused)
	}

	stage := newNode(first, TypeStage, st, timing)
	stage.CauseOfBlockage = v.exec.CauseOfBlockage(first, v.agent)
	v.emit(stage)

	if !skipped && len(v.pending) > 0 {
		for _, p := range v.pending {
			p.addParent(stage.ID)
			stage.addEdge(p.ID)
		}
	} else if v.nextStage != nil {
		v.nextStage.addParent(stage.ID)
		stage.addEdge(v.nextStage.ID)
	}
	v.pending = nil
	v.nextStage = stage
}

func (v *visitor) resetChunk() {
	v.chunk.Reset()
	v.firstExecuted = nil
	v.pendingInputs = nil
}

func (v *visitor) ParallelStart(parallelStart, branch *flow.Node) {
	v.dump("parallelStart", parallelStart)
	v.dump("branch", branch)

	mark := fork{}
	if n := len(v.forks); n > 0 {
		mark = v.forks[n-1]
		v.forks = v.forks[:n-1]
	}
	starts := slices.Clone(v.nestedBranches[min(mark.starts, len(v.nestedBranches)):])
	ends := slices.Clone(v.branchEnds[min(mark.ends, len(v.branchEnds)):])
	pauses := slices.Clone(v.branchPauses[len(v.branchPauses)-len(starts):])
	v.nestedBranches = v.nestedBranches[:len(v.nestedBranches)-len(starts)]
	v.branchPauses = v.branchPauses[:len(v.branchPauses)-len(starts)]
	v.branchEnds = v.branchEnds[:len(v.branchEnds)-len(ends)]
	v.endPauses = v.endPauses[:len(v.endPauses)-len(ends)]

	if len(starts) != len(ends) {
		v.cfg.log.Error("parallel branch starts and ends do not pair up",
			"run", v.exec.ID,
			"parallel", parallelStart.ID,
			"starts", len(starts),
			"ends", len(ends))
		return
	}

	branches := make([]*Node, 0, len(starts))
	for i := len(starts) - 1; i >= 0; i-- {
		br := v.branchNode(parallelStart, starts[i], ends[i], mark.end, pauses[i])
		if v.nextStage != nil {
			br.addEdge(v.nextStage.ID)
			v.nextStage.addParent(br.ID)
		}
		branches = append(branches, br)
	}
	slices.SortStableFunc(branches, func(a, b *Node) int {
		return strings.Compare(a.DisplayName, b.DisplayName)
	})
	v.pending = append(v.pending, branches...)
	// emitted backward so execution order lists them by name
	for i := len(branches) - 1; i >= 0; i-- {
		v.emit(branches[i])
	}
}

func (v *visitor) branchNode(parallelStart, start, end, parallelEnd *flow.Node, pause int64) *Node {
	var timing status.TimingInfo
	var st status.RunStatus
	if end == nil {
		// still running: time it from its own start
		now := v.cfg.clock.NowMillis()
		begin := now
		if start.StartMillis != 0 {
			begin = start.StartMillis
		}
		timing = status.TimingInfo{
			TotalDurationMillis: now - begin,
			PauseDurationMillis: min(pause, now-begin),
			StartTimeMillis:     begin,
		}
		st = status.New(status.ResultUnknown, status.StateRunning)
		return newNode(start, TypeParallel, st, timing)
	}

	after := v.chunk.After
	if end.IsBlockEnd() {
		// a closed branch ends when its end node was written
		after = end
	}
	if t := v.cfg.computer.ComputeTiming(v.exec, pause, start, end, after); t != nil {
		timing = *t
	}
	switch {
	case end.Kind == flow.KindAtom && flow.IsPausedForInput(end) && v.exec.IsActive(end):
		st = status.New(status.ResultUnknown, status.StatePaused)
	case end.Kind == flow.KindAtom:
		st = status.FromGeneric(v.cfg.computer.ComputeGenericStatus(v.exec, end))
	default:
		st = status.FromGeneric(v.cfg.computer.ComputeStatus(v.exec, parallelStart, start, end, parallelEnd))
	}
	return newNode(start, TypeParallel, st, timing)
}

func (v *visitor) ParallelEnd(parallelStart, parallelEnd *flow.Node) {
	v.dump("parallelEnd", parallelEnd)
	v.captureOrphans()
	v.forks = append(v.forks, fork{
		end:    parallelEnd,
		starts: len(v.nestedBranches),
		ends:   len(v.branchEnds),
	})
}

func (v *visitor) ParallelBranchStart(parallelStart, branchStart *flow.Node) {
	v.dump("parallelBranchStart", branchStart)
	var pause int64
	if n := len(v.endPauses); n > len(v.branchPauses) {
		pause = v.chunk.PauseMillis - v.endPauses[len(v.branchPauses)]
	}
	v.nestedBranches = append(v.nestedBranches, branchStart)
	v.branchPauses = append(v.branchPauses, pause)
}

func (v *visitor) ParallelBranchEnd(parallelStart, branchEnd *flow.Node) {
	v.dump("parallelBranchEnd", branchEnd)
	v.branchEnds = append(v.branchEnds, branchEnd)
	v.endPauses = append(v.endPauses, v.chunk.PauseMillis)
}

func (v *visitor) AtomNode(before, atom, after *flow.Node) {
	v.dump("atomNode", atom)
	if atom.Kind == flow.KindFlowStart {
		v.captureOrphans()
		return
	}
	if flow.IsAgentStart(atom) {
		v.agent = atom
	}
	v.markExecuted(atom)
	v.chunk.PauseMillis += atom.PauseMillis
	if flow.IsPausedForInput(atom) && v.exec.IsActive(atom) {
		v.pendingInputs = append(v.pendingInputs, atom)
	}
}

// captureOrphans wraps pending branches in a synthetic stage when no stage
// encloses them.
func (v *visitor) captureOrphans() {
	if len(v.pending) == 0 {
		return
	}
	if v.firstExecuted != nil && flow.IsStage(v.firstExecuted) {
		return
	}
	syn := newSyntheticStage(v.pending, v.index, v.cfg.clock)
	v.emit(syn)
	v.pending = nil
	v.nextStage = syn
}
