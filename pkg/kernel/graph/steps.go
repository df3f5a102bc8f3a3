package graph

import (
	"cmp"
	"slices"

	"github.com/ormasoftchile/flowgraph/pkg/kernel/flow"
	"github.com/ormasoftchile/flowgraph/pkg/kernel/scan"
	"github.com/ormasoftchile/flowgraph/pkg/kernel/status"
)

// stepVisitor collects the atoms of one stage or branch.
type stepVisitor struct {
	scan.NopVisitor
	exec   *flow.Execution
	cfg    *config
	target *flow.Node
	seen   map[string]bool
	steps  []*Node
}

func (v *stepVisitor) ChunkEnd(end, after *flow.Node) {
	if !end.IsBlockEnd() {
		v.AtomNode(nil, end, after)
	}
}

func (v *stepVisitor) AtomNode(_, atom, _ *flow.Node) {
	if atom.Kind != flow.KindAtom || v.seen[atom.ID] || !v.owns(atom) {
		return
	}
	v.seen[atom.ID] = true
	v.steps = append(v.steps, v.stepNode(atom))
}

// owns reports whether atom runs inside the target.
func (v *stepVisitor) owns(atom *flow.Node) bool {
	if flow.IsStage(atom) {
		return false
	}
	if v.target.Kind == flow.KindAtom {
		// a marker stage holds everything up to the next marker
		for cur := v.exec.FirstParent(atom); cur != nil; cur = v.exec.FirstParent(cur) {
			if flow.IsStage(cur) && cur.Kind == flow.KindAtom {
				return cur.ID == v.target.ID
			}
		}
		return false
	}
	for _, b := range v.exec.EnclosingBlocks(atom) {
		if b.ID == v.target.ID {
			return true
		}
	}
	return false
}

func (v *stepVisitor) stepNode(atom *flow.Node) *Node {
	var st status.RunStatus
	if flow.IsPausedForInput(atom) && v.exec.IsActive(atom) {
		st = status.New(status.ResultUnknown, status.StatePaused)
	} else {
		st = status.FromGeneric(v.cfg.computer.ComputeGenericStatus(v.exec, atom))
	}
	var timing status.TimingInfo
	if t := v.cfg.computer.ComputeTiming(v.exec, atom.PauseMillis, atom, atom, v.exec.Successor(atom)); t != nil {
		timing = *t
	}
	return newNode(atom, TypeStep, st, timing)
}

// Steps returns the steps of the stage or branch with the given id in
// execution order. The steps of a synthetic stage are those of its
// branches. Unknown ids yield an empty list.
func (b *Builder) Steps(nodeID string) []*Node {
	if b.exec == nil {
		return []*Node{}
	}
	if n := b.graph.NodeByID(nodeID); n != nil && n.IsSynthetic() {
		steps := []*Node{}
		for _, br := range b.graph.Children(n) {
			if br.Type == TypeParallel {
				steps = append(steps, b.Steps(br.ID)...)
			}
		}
		return steps
	}

	target := scan.FindFirstMatch(b.exec, func(n *flow.Node) bool {
		return n.ID == nodeID && (flow.IsStage(n) || flow.IsParallelBranch(n))
	})
	if target == nil {
		return []*Node{}
	}
	v := &stepVisitor{exec: b.exec, cfg: &b.cfg, target: target, seen: make(map[string]bool)}
	scan.VisitSimpleChunks(b.exec, v, scan.StageFinder{})
	// the scan delivers branches one after the other; order by append position
	order := make(map[string]int, len(b.exec.Nodes))
	for i, n := range b.exec.Nodes {
		order[n.ID] = i
	}
	steps := append([]*Node{}, v.steps...)
	slices.SortStableFunc(steps, func(x, y *Node) int {
		return cmp.Compare(order[x.ID], order[y.ID])
	})
	return steps
}

// AllSteps returns every step of the run in execution order.
func (b *Builder) AllSteps() []*Node {
	steps := []*Node{}
	if b.exec == nil {
		return steps
	}
	v := &stepVisitor{exec: b.exec, cfg: &b.cfg}
	for _, n := range b.exec.Nodes {
		if n.Kind == flow.KindAtom && !flow.IsStage(n) {
			steps = append(steps, v.stepNode(n))
		}
	}
	return steps
}

// StepByID returns the step with the given id, or nil.
func (b *Builder) StepByID(id string) *Node {
	if b.exec == nil {
		return nil
	}
	atom := b.exec.Node(id)
	if atom == nil || atom.Kind != flow.KindAtom || flow.IsStage(atom) {
		return nil
	}
	v := &stepVisitor{exec: b.exec, cfg: &b.cfg}
	return v.stepNode(atom)
}
