package scan

import "github.com/ormasoftchile/flowgraph/pkg/kernel/flow"

type eventKind int

const (
	eventNone eventKind = iota
	eventParallelStart
	eventParallelEnd
	eventBranchStart
	eventBranchEnd
)

// VisitSimpleChunks walks exec from its current heads back to the flow start
// and reports events to v. Parallel branches are walked one after the other,
// each from its end back to its start, between the parallel end and the
// parallel start events. A nil execution produces no events.
func VisitSimpleChunks(exec *flow.Execution, v Visitor, finder ChunkFinder) {
	heads := exec.CurrentHeads()
	if len(heads) == 0 {
		return
	}
	w := &walker{exec: exec, v: v, finder: finder, seen: make(map[string]bool)}
	if finder.StartInsideChunk() {
		v.ChunkEnd(heads[0], nil)
		if !heads[0].IsBlockEnd() {
			// ChunkEnd already handed the head over as content
			w.delivered = heads[0]
		}
	}
	// heads inside open parallels are walked fork by fork, outermost last
	for len(heads) > 0 {
		p := w.walkFork(heads)
		if p == nil {
			return
		}
		parent := exec.FirstParent(p)
		if parent == nil {
			return
		}
		heads = []*flow.Node{parent}
	}
}

type walker struct {
	exec      *flow.Execution
	v         Visitor
	finder    ChunkFinder
	prev      *flow.Node
	delivered *flow.Node
	seen      map[string]bool
}

// visit reports n and the boundary events it carries.
func (w *walker) visit(n *flow.Node, kind eventKind, parallelStart *flow.Node) {
	if w.seen[n.ID] {
		return
	}
	w.seen[n.ID] = true

	later := w.prev
	before := w.exec.FirstParent(n)
	boundary := false
	if w.finder.IsChunkStart(w.exec, n, before) {
		w.v.ChunkStart(n, before)
		boundary = true
	}
	if w.finder.IsChunkEnd(w.exec, n, later) {
		w.v.ChunkEnd(n, later)
		boundary = true
	}
	if !boundary && n != w.delivered {
		w.v.AtomNode(before, n, later)
	}

	switch kind {
	case eventParallelEnd:
		w.v.ParallelEnd(parallelStart, n)
	case eventParallelStart:
		w.v.ParallelStart(n, later)
	case eventBranchEnd:
		w.v.ParallelBranchEnd(parallelStart, n)
	case eventBranchStart:
		w.v.ParallelBranchStart(parallelStart, n)
	}
	w.prev = n
}

// walk visits n and its first-parent ancestors. Inside a branch of
// parallelStart it stops after visiting the branch start.
func (w *walker) walk(n *flow.Node, parallelStart *flow.Node) {
	for n != nil {
		if w.seen[n.ID] {
			return
		}
		if w.exec.IsParallelEnd(n) {
			start := w.exec.StartOf(n)
			w.visit(n, eventParallelEnd, start)
			for _, id := range n.Parents {
				if end := w.exec.Node(id); end != nil {
					w.walkBranch(start, end)
				}
			}
			w.visit(start, eventParallelStart, start)
			n = w.exec.FirstParent(start)
			continue
		}
		if parallelStart != nil && n.FirstParent() == parallelStart.ID {
			w.visit(n, eventBranchStart, parallelStart)
			return
		}
		w.visit(n, eventNone, nil)
		n = w.exec.FirstParent(n)
	}
}

// walkBranch walks one branch of parallelStart from its last node.
func (w *walker) walkBranch(parallelStart, end *flow.Node) {
	if end.FirstParent() == parallelStart.ID {
		// the branch has not got past its start
		w.v.ParallelBranchEnd(parallelStart, nil)
		w.visit(end, eventBranchStart, parallelStart)
		return
	}
	w.visit(end, eventBranchEnd, parallelStart)
	w.walk(w.exec.FirstParent(end), parallelStart)
}

// walkFork walks several heads that are still inside one parallel and
// returns its start, or nil when the heads share no parallel.
func (w *walker) walkFork(heads []*flow.Node) *flow.Node {
	p := w.commonParallel(heads)
	if p == nil {
		w.walk(heads[0], nil)
		return nil
	}
	w.v.ParallelEnd(p, heads[0])
	for _, g := range w.groupByBranch(p, heads) {
		if inner := w.commonParallel(g); inner == nil || inner.ID == p.ID {
			w.walkBranch(p, g[0])
			continue
		}
		// a nested parallel is still running inside this branch
		w.v.ParallelBranchEnd(p, g[0])
		if inner := w.walkFork(g); inner != nil {
			w.walk(w.exec.FirstParent(inner), p)
		}
	}
	w.visit(p, eventParallelStart, p)
	return p
}

// commonParallel returns the innermost open parallel start enclosing every head.
func (w *walker) commonParallel(heads []*flow.Node) *flow.Node {
	for _, cand := range w.exec.EnclosingBlocks(heads[0]) {
		if !flow.IsParallelStart(cand) {
			continue
		}
		shared := true
		for _, h := range heads[1:] {
			if !w.encloses(cand, h) {
				shared = false
				break
			}
		}
		if shared {
			return cand
		}
	}
	return nil
}

func (w *walker) encloses(block, n *flow.Node) bool {
	for _, b := range w.exec.EnclosingBlocks(n) {
		if b.ID == block.ID {
			return true
		}
	}
	return false
}

// branchOf returns the start of the branch of p that holds n.
func (w *walker) branchOf(p, n *flow.Node) *flow.Node {
	if n.FirstParent() == p.ID {
		return n
	}
	if start := w.exec.StartOf(n); start != nil && start.FirstParent() == p.ID {
		return start
	}
	for _, b := range w.exec.EnclosingBlocks(n) {
		if b.FirstParent() == p.ID {
			return b
		}
	}
	return nil
}

// groupByBranch groups heads by branch, in order of first appearance.
func (w *walker) groupByBranch(p *flow.Node, heads []*flow.Node) [][]*flow.Node {
	var order []string
	groups := make(map[string][]*flow.Node)
	for _, h := range heads {
		key := h.ID
		if b := w.branchOf(p, h); b != nil {
			key = b.ID
		}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], h)
	}
	out := make([][]*flow.Node, 0, len(order))
	for _, k := range order {
		out = append(out, groups[k])
	}
	return out
}
