package status

import (
	"testing"

	"github.com/ormasoftchile/flowgraph/pkg/kernel/flow"
	"github.com/ormasoftchile/flowgraph/pkg/kernel/flow/flowtest"
)

func TestFromGeneric(t *testing.T) {
	tests := []struct {
		in   GenericStatus
		want RunStatus
	}{
		{PausedPendingInput, New(ResultUnknown, StatePaused)},
		{Aborted, New(ResultAborted, StateFinished)},
		{Failure, New(ResultFailure, StateFinished)},
		{InProgress, New(ResultUnknown, StateRunning)},
		{Unstable, New(ResultUnstable, StateFinished)},
		{Success, New(ResultSuccess, StateFinished)},
		{NotExecuted, New(ResultNotBuilt, StateNotBuilt)},
		{Queued, New(ResultUnknown, StateQueued)},
		{"bogus", RunStatus{}},
	}
	for _, tt := range tests {
		if got := FromGeneric(tt.in); got != tt.want {
			t.Errorf("FromGeneric(%s) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRunStatus_Unset(t *testing.T) {
	if !(RunStatus{}).Unset() {
		t.Error("zero value should be unset")
	}
	if New(ResultUnknown, StateRunning).Unset() {
		t.Error("explicit status should not be unset")
	}
	if got := (RunStatus{}).String(); got != "unset" {
		t.Errorf("String() = %q, want unset", got)
	}
}

// finished returns a completed single-stage run: 2 start, 3 stage, 4 sh, 5 stage end, 6 end.
func finished(opts ...flowtest.Option) *flow.Execution {
	b := flowtest.New("run")
	c := b.FlowStart()
	s := c.StageStart("build")
	c.Atom("sh")
	c.Tick(1000)
	c.BlockEnd(s, opts...)
	c.FlowEnd(flow.ResultSuccess)
	return b.Execution()
}

func TestComputeStatus_Finished(t *testing.T) {
	tests := []struct {
		name string
		opts []flowtest.Option
		want GenericStatus
	}{
		{"success", nil, Success},
		{"failure", []flowtest.Option{flowtest.Failed("exit 1")}, Failure},
		{"aborted", []flowtest.Option{flowtest.Aborted("interrupted")}, Aborted},
		{"unstable", []flowtest.Option{flowtest.Warn("flaky")}, Unstable},
		{"not executed", []flowtest.Option{flowtest.NotExecuted()}, NotExecuted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := finished(tt.opts...)
			c := NewComputer(FixedClock(0))
			got := c.ComputeStatus(exec, exec.Node("2"), exec.Node("4"), exec.Node("5"), exec.Node("6"))
			if got != tt.want {
				t.Errorf("status = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestComputeStatus_LastChunkUsesRunResult(t *testing.T) {
	exec := finished()
	exec.Result = flow.ResultFailure
	c := NewComputer(FixedClock(0))
	if got := c.ComputeStatus(exec, nil, exec.Node("4"), exec.Node("6"), nil); got != Failure {
		t.Errorf("status = %s, want FAILURE", got)
	}
}

func TestComputeStatus_Building(t *testing.T) {
	b := flowtest.New("run")
	c := b.FlowStart()
	c.StageStart("build")
	sh := c.Atom("sh")
	exec := b.Execution()

	comp := NewComputer(FixedClock(5000))
	if got := comp.ComputeStatus(exec, nil, sh, sh, nil); got != InProgress {
		t.Errorf("status = %s, want IN_PROGRESS", got)
	}
	timing := comp.ComputeTiming(exec, 0, sh, sh, nil)
	if timing == nil || timing.TotalDurationMillis != 4000 {
		t.Errorf("timing = %+v, want 4000ms", timing)
	}
}

func TestComputeStatus_PendingInput(t *testing.T) {
	b := flowtest.New("run")
	c := b.FlowStart()
	c.StageStart("approve")
	in := c.Input()
	exec := b.Execution()
	comp := NewComputer(FixedClock(0))
	if got := comp.ComputeStatus(exec, nil, in, in, nil); got != PausedPendingInput {
		t.Errorf("status = %s, want PAUSED_PENDING_INPUT", got)
	}
	if got := comp.ComputeGenericStatus(exec, in); got != PausedPendingInput {
		t.Errorf("generic = %s, want PAUSED_PENDING_INPUT", got)
	}
}

func TestComputeStatus_FinishedBranchWhileOthersRun(t *testing.T) {
	b := flowtest.New("run")
	c := b.FlowStart()
	fork := c.Parallel()
	a := fork.Branch("a")
	a.Atom("sh")
	aEnd := a.EndBranch(flowtest.Failed("boom"))
	bb := fork.Branch("b")
	bb.Atom("sleep")
	exec := b.Execution()

	comp := NewComputer(FixedClock(0))
	got := comp.ComputeStatus(exec, fork.Start(), a.BranchStart(), aEnd, nil)
	if got != Failure {
		t.Errorf("status = %s, want FAILURE", got)
	}
}

func TestComputeStatus_EnclosingStageOfFinishedBranch(t *testing.T) {
	b := flowtest.New("run")
	c := b.FlowStart()
	stage := c.StageStart("test")
	fork := c.Parallel()
	a := fork.Branch("a")
	a.Atom("sh")
	aEnd := a.EndBranch()
	bb := fork.Branch("b")
	bb.Atom("sleep")
	exec := b.Execution()

	comp := NewComputer(FixedClock(0))
	if got := comp.ComputeStatus(exec, nil, stage, aEnd, nil); got != InProgress {
		t.Errorf("stage status = %s, want IN_PROGRESS", got)
	}
	if got := comp.ComputeStatus(exec, fork.Start(), a.BranchStart(), aEnd, nil); got != Success {
		t.Errorf("branch status = %s, want SUCCESS", got)
	}
}

func TestComputeTiming(t *testing.T) {
	exec := finished()
	comp := NewComputer(FixedClock(99999))
	tests := []struct {
		name  string
		pause int64
		after *flow.Node
		want  TimingInfo
	}{
		{"until next node", 0, exec.Node("6"), TimingInfo{1000, 0, 1000}},
		{"pause capped by duration", 5000, exec.Node("6"), TimingInfo{1000, 1000, 1000}},
		{"negative pause", -200, exec.Node("6"), TimingInfo{1000, 200, 1000}},
		{"no after uses run end", 0, nil, TimingInfo{1000, 0, 1000}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := comp.ComputeTiming(exec, tt.pause, exec.Node("4"), exec.Node("5"), tt.after)
			if got == nil || *got != tt.want {
				t.Errorf("timing = %+v, want %+v", got, tt.want)
			}
		})
	}
	if got := comp.ComputeTiming(exec, 0, nil, exec.Node("5"), nil); got != nil {
		t.Errorf("timing without first = %+v, want nil", got)
	}
}

func TestComputeGenericStatus(t *testing.T) {
	exec := finished(flowtest.Failed("boom"))
	comp := NewComputer(nil)
	if got := comp.ComputeGenericStatus(exec, exec.Node("5")); got != Failure {
		t.Errorf("generic = %s, want FAILURE", got)
	}
	if got := comp.ComputeGenericStatus(exec, exec.Node("4")); got != Success {
		t.Errorf("generic = %s, want SUCCESS", got)
	}
	if got := comp.ComputeGenericStatus(exec, nil); got != NotExecuted {
		t.Errorf("generic(nil) = %s, want NOT_EXECUTED", got)
	}
}
