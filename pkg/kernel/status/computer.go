package status

import (
	"time"

	"github.com/ormasoftchile/flowgraph/pkg/kernel/flow"
)

// Clock supplies wall-clock time in epoch milliseconds.
type Clock interface {
	NowMillis() int64
}

// SystemClock reads the real time.
type SystemClock struct{}

func (SystemClock) NowMillis() int64 { return time.Now().UnixMilli() }

// FixedClock always returns the same instant.
type FixedClock int64

func (c FixedClock) NowMillis() int64 { return int64(c) }

// Computer derives status and timing for a contiguous run of nodes.
// before and after are the nodes just outside the run and may be nil.
type Computer interface {
	ComputeStatus(exec *flow.Execution, before, first, last, after *flow.Node) GenericStatus
	// ComputeTiming returns nil when there is nothing to time.
	ComputeTiming(exec *flow.Execution, pauseMillis int64, first, last, after *flow.Node) *TimingInfo
	ComputeGenericStatus(exec *flow.Execution, n *flow.Node) GenericStatus
}

// NewComputer returns the default Computer reading time from clock.
func NewComputer(clock Clock) Computer {
	if clock == nil {
		clock = SystemClock{}
	}
	return &computer{clock: clock}
}

type computer struct {
	clock Clock
}

func (c *computer) ComputeStatus(exec *flow.Execution, before, first, last, after *flow.Node) GenericStatus {
	if exec == nil || last == nil {
		return NotExecuted
	}
	if !flow.IsExecuted(last) {
		return NotExecuted
	}
	lastChunk := after == nil || exec.IsCurrentHead(last)
	if lastChunk {
		if exec.Building {
			// all the action may be on other branches
			if len(exec.Heads) > 1 && last.Kind == flow.KindBlockEnd {
				// only when the chunk is the branch itself
				if start := exec.StartOf(last); start == first && flow.IsParallelBranch(start) {
					if last.Error != nil {
						return Failure
					}
					return Success
				}
			}
			if flow.IsPausedForInput(last) {
				return PausedPendingInput
			}
			return InProgress
		}
		return FromRunResult(exec.Result)
	}
	return fromNode(last)
}

// fromNode classifies a node the flow has already moved past.
func fromNode(n *flow.Node) GenericStatus {
	switch {
	case n.Error != nil && n.Error.Aborted:
		return Aborted
	case n.Error != nil:
		return Failure
	case n.Warning != "":
		return Unstable
	}
	return Success
}

func (c *computer) ComputeTiming(exec *flow.Execution, pauseMillis int64, first, last, after *flow.Node) *TimingInfo {
	if exec == nil || first == nil || last == nil {
		return nil
	}
	if !flow.IsExecuted(last) {
		return &TimingInfo{}
	}
	start := first.StartMillis
	var end int64
	switch {
	case after != nil:
		end = after.StartMillis
	case exec.Building:
		end = c.clock.NowMillis()
	default:
		end = exec.EndMillis
	}
	duration := end - start
	if duration < 0 {
		duration = 0
	}
	if pauseMillis < 0 {
		pauseMillis = -pauseMillis
	}
	return &TimingInfo{
		TotalDurationMillis: duration,
		PauseDurationMillis: min(pauseMillis, duration),
		StartTimeMillis:     start,
	}
}

func (c *computer) ComputeGenericStatus(exec *flow.Execution, n *flow.Node) GenericStatus {
	switch {
	case n == nil || !flow.IsExecuted(n):
		return NotExecuted
	case exec.IsActive(n) && flow.IsPausedForInput(n):
		return PausedPendingInput
	case exec.IsActive(n):
		return InProgress
	}
	return fromNode(n)
}
