package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/ormasoftchile/flowgraph/pkg/kernel/flow"
	"github.com/ormasoftchile/flowgraph/pkg/kernel/flow/flowtest"
	"github.com/ormasoftchile/flowgraph/pkg/kernel/status"
)

func TestWatchCmd_IntervalParsing(t *testing.T) {
	cases := []struct {
		input    string
		expected time.Duration
	}{
		{"2s", 2 * time.Second},
		{"500ms", 500 * time.Millisecond},
		{"1m", time.Minute},
	}

	for _, tc := range cases {
		d, err := time.ParseDuration(tc.input)
		if err != nil {
			t.Errorf("failed to parse %q: %v", tc.input, err)
			continue
		}
		if d != tc.expected {
			t.Errorf("parsed %q = %v, want %v", tc.input, d, tc.expected)
		}
	}
}

func TestStatusIcon(t *testing.T) {
	cases := []struct {
		status   status.RunStatus
		expected string
	}{
		{status.RunStatus{}, "·"},
		{status.New(status.ResultUnknown, status.StateRunning), "▶"},
		{status.New(status.ResultUnknown, status.StatePaused), "⏸"},
		{status.New(status.ResultSuccess, status.StateFinished), "✓"},
		{status.New(status.ResultFailure, status.StateFinished), "✗"},
		{status.New(status.ResultUnstable, status.StateFinished), "!"},
	}
	for _, tc := range cases {
		if got := statusIcon(tc.status); got != tc.expected {
			t.Errorf("statusIcon(%v) = %q, want %q", tc.status, got, tc.expected)
		}
	}
}

// build is a run inside its build stage; finished it has completed.
func build(finished bool) *flow.Execution {
	b := flowtest.New("nightly")
	c := b.FlowStart()
	s := c.StageStart("build")
	c.Atom("sh")
	if finished {
		c.Tick(1500)
		c.BlockEnd(s)
		c.FlowEnd(flow.ResultSuccess)
	}
	return b.Execution()
}

func TestWatchPlainLoop(t *testing.T) {
	running, done := build(false), build(true)
	scans := []*flow.Execution{running, running, done}
	calls := 0
	load := func() (*flow.Execution, error) {
		exec := scans[calls]
		calls++
		return exec, nil
	}

	var out bytes.Buffer
	if err := watchPlainLoop(context.Background(), &out, load, time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if calls != 3 {
		t.Errorf("scans = %d, want 3", calls)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	// running build, finished build, stop notice; the repeated scan prints nothing
	if len(lines) != 3 {
		t.Fatalf("output:\n%s", out.String())
	}
	if !strings.Contains(lines[0], "▶ build") || !strings.Contains(lines[1], "✓ build 1.5s") {
		t.Errorf("output:\n%s", out.String())
	}
	if !strings.Contains(lines[2], "run finished SUCCESS") {
		t.Errorf("stop line = %q", lines[2])
	}
}

func TestWatchPlainLoop_Cancelled(t *testing.T) {
	exec := flowtest.New("nightly").Execution()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	load := func() (*flow.Execution, error) { return exec, nil }
	if err := watchPlainLoop(ctx, &bytes.Buffer{}, load, time.Hour); err != nil {
		t.Fatal(err)
	}
}
