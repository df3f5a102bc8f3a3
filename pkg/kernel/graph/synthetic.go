package graph

import (
	"fmt"
	"slices"
	"strings"

	"github.com/ormasoftchile/flowgraph/pkg/kernel/flow"
	"github.com/ormasoftchile/flowgraph/pkg/kernel/status"
)

const syntheticLabel = "Parallel"

// syntheticID derives the id of a fabricated stage from the node it stands in for.
func syntheticID(id, label string) string {
	return fmt.Sprintf("%s-%s-synthetic", id, strings.ToLower(label))
}

// newSyntheticStage fabricates the stage that holds branches declared outside
// any stage. branches are in attach order; the first one names the stage.
func newSyntheticStage(branches []*Node, index map[string]*Node, clock status.Clock) *Node {
	first := branches[0]
	raw := &flow.Node{
		ID:       syntheticID(first.ID, syntheticLabel),
		Kind:     flow.KindBlockStart,
		Function: flow.FunctionStage,
		Name:     syntheticLabel,
		Label:    syntheticLabel,
		Origin:   flow.OriginSynthetic,
	}
	if p, ok := index[first.FirstParent()]; ok && p.Raw != nil {
		raw.Parents = slices.Clone(p.Raw.Parents)
	} else if first.Raw != nil {
		// hangs off the parallel start it stands in for
		raw.Parents = slices.Clone(first.Raw.Parents[:min(1, len(first.Raw.Parents))])
	}
	if first.Raw != nil {
		raw.StartMillis = first.Raw.StartMillis
	}

	syn := &Node{
		ID:          raw.ID,
		DisplayName: raw.DisplayName(),
		Type:        TypeStage,
		Status:      aggregateStatus(branches),
		Timing:      aggregateTiming(branches, clock),
		Raw:         raw,
	}
	for _, br := range branches {
		br.addParent(syn.ID)
		syn.addEdge(br.ID)
	}
	return syn
}

// aggregateStatus folds branch statuses: the stage is finished once every
// branch is, and failed when any branch failed.
func aggregateStatus(branches []*Node) status.RunStatus {
	finished, paused := true, false
	failed, unknown := false, false
	for _, br := range branches {
		switch br.Status.State {
		case status.StateFinished:
		case status.StatePaused:
			paused = true
			finished = false
		default:
			finished = false
		}
		switch br.Status.Result {
		case status.ResultFailure:
			failed = true
		case status.ResultUnknown, "":
			unknown = true
		}
	}

	st := status.RunStatus{Result: status.ResultSuccess, State: status.StateRunning}
	switch {
	case finished:
		st.State = status.StateFinished
	case paused:
		st.State = status.StatePaused
	}
	switch {
	case failed:
		st.Result = status.ResultFailure
	case unknown:
		st.Result = status.ResultUnknown
	}
	return st
}

func aggregateTiming(branches []*Node, clock status.Clock) status.TimingInfo {
	t := status.TimingInfo{StartTimeMillis: clock.NowMillis()}
	for _, br := range branches {
		t.TotalDurationMillis += br.Timing.TotalDurationMillis
		t.PauseDurationMillis += br.Timing.PauseDurationMillis
	}
	return t
}
