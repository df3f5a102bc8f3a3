// Package status computes the status and timing of contiguous runs of
// execution nodes.
package status

import "github.com/ormasoftchile/flowgraph/pkg/kernel/flow"

// Result is the outcome half of a RunStatus.
type Result string

const (
	ResultSuccess  Result = "SUCCESS"
	ResultUnstable Result = "UNSTABLE"
	ResultFailure  Result = "FAILURE"
	ResultNotBuilt Result = "NOT_BUILT"
	ResultUnknown  Result = "UNKNOWN"
	ResultAborted  Result = "ABORTED"
)

// State is the lifecycle half of a RunStatus.
type State string

const (
	StateQueued   State = "QUEUED"
	StateRunning  State = "RUNNING"
	StatePaused   State = "PAUSED"
	StateSkipped  State = "SKIPPED"
	StateNotBuilt State = "NOT_BUILT"
	StateFinished State = "FINISHED"
)

// GenericStatus is the engine-level classification of a chunk.
type GenericStatus string

const (
	PausedPendingInput GenericStatus = "PAUSED_PENDING_INPUT"
	Aborted            GenericStatus = "ABORTED"
	Failure            GenericStatus = "FAILURE"
	InProgress         GenericStatus = "IN_PROGRESS"
	Unstable           GenericStatus = "UNSTABLE"
	Success            GenericStatus = "SUCCESS"
	NotExecuted        GenericStatus = "NOT_EXECUTED"
	Queued             GenericStatus = "QUEUED"
)

// RunStatus pairs a result with a state. The zero value means unset.
type RunStatus struct {
	Result Result `json:"result,omitempty" yaml:"result,omitempty"`
	State  State  `json:"state,omitempty"  yaml:"state,omitempty"`
}

// New builds an explicit status.
func New(result Result, state State) RunStatus {
	return RunStatus{Result: result, State: state}
}

// Unset reports whether neither half has been assigned.
func (s RunStatus) Unset() bool {
	return s.Result == "" && s.State == ""
}

func (s RunStatus) String() string {
	if s.Unset() {
		return "unset"
	}
	return string(s.Result) + "/" + string(s.State)
}

// FromGeneric maps an engine classification onto a RunStatus.
func FromGeneric(g GenericStatus) RunStatus {
	switch g {
	case PausedPendingInput:
		return New(ResultUnknown, StatePaused)
	case Aborted:
		return New(ResultAborted, StateFinished)
	case Failure:
		return New(ResultFailure, StateFinished)
	case InProgress:
		return New(ResultUnknown, StateRunning)
	case Unstable:
		return New(ResultUnstable, StateFinished)
	case Success:
		return New(ResultSuccess, StateFinished)
	case NotExecuted:
		return New(ResultNotBuilt, StateNotBuilt)
	case Queued:
		return New(ResultUnknown, StateQueued)
	}
	return RunStatus{}
}

// FromRunResult maps the result recorded on a finished execution.
func FromRunResult(r string) GenericStatus {
	switch r {
	case flow.ResultSuccess:
		return Success
	case flow.ResultUnstable:
		return Unstable
	case flow.ResultFailure:
		return Failure
	case flow.ResultAborted:
		return Aborted
	case flow.ResultNotBuilt:
		return NotExecuted
	}
	return InProgress
}

// TimingInfo summarises when a chunk ran. Values are immutable once attached.
type TimingInfo struct {
	TotalDurationMillis int64 `json:"totalDurationMillis" yaml:"totalDurationMillis"`
	PauseDurationMillis int64 `json:"pauseDurationMillis" yaml:"pauseDurationMillis"`
	StartTimeMillis     int64 `json:"startTimeMillis"     yaml:"startTimeMillis"`
}
