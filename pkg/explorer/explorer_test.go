package explorer

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ormasoftchile/flowgraph/pkg/kernel/flow"
	"github.com/ormasoftchile/flowgraph/pkg/kernel/flow/flowtest"
	"github.com/ormasoftchile/flowgraph/pkg/kernel/graph"
	"github.com/ormasoftchile/flowgraph/pkg/kernel/status"
)

// finished is build, then test with branches unit and lint (lint failed).
// Ids: 3 build, 4 its step, 6 test, 8 unit, 11 lint.
func finished() *flow.Execution {
	b := flowtest.New("nightly")
	c := b.FlowStart()
	s := c.StageStart("build")
	c.Atom("sh")
	c.Tick(1500)
	c.BlockEnd(s)
	t := c.StageStart("test")
	fork := c.Parallel()
	unit := fork.Branch("unit")
	unit.Atom("go")
	unit.EndBranch()
	lint := fork.Branch("lint")
	lint.Atom("vet", flowtest.Failed("vet found issues"))
	lint.EndBranch(flowtest.Failed("lint"))
	fork.Join()
	c.BlockEnd(t, flowtest.Failed("lint"))
	c.FlowEnd(flow.ResultFailure)
	return b.Execution()
}

// inBuild is a later run of the same pipeline still inside build.
func inBuild() *flow.Execution {
	b := flowtest.New("nightly")
	c := b.FlowStart()
	c.StageStart("build")
	c.Atom("sh")
	return b.Execution()
}

func newExplorer(t *testing.T, execs ...*flow.Execution) (*Explorer, *bytes.Buffer) {
	t.Helper()
	calls := 0
	load := func() (*flow.Execution, error) {
		exec := execs[min(calls, len(execs)-1)]
		calls++
		return exec, nil
	}
	e, err := New(load, graph.WithClock(status.FixedClock(50_000)))
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	e.SetOutput(&buf)
	return e, &buf
}

func run(e *Explorer, buf *bytes.Buffer, line string) string {
	buf.Reset()
	e.Exec(line)
	return buf.String()
}

func TestExplorerNodes(t *testing.T) {
	e, buf := newExplorer(t, finished())
	out := run(e, buf, "nodes")
	for _, want := range []string{"build  1.5s", "test", "unit", "failure    lint"} {
		if !strings.Contains(out, want) {
			t.Errorf("nodes missing %q:\n%s", want, out)
		}
	}
}

func TestExplorerWhere(t *testing.T) {
	e, buf := newExplorer(t, finished())
	if out := run(e, buf, `where result == "FAILURE"`); !strings.Contains(out, "Filter:") {
		t.Fatalf("where: %s", out)
	}
	if !strings.Contains(e.prompt(), `where result == "FAILURE"`) {
		t.Errorf("prompt = %q", e.prompt())
	}
	out := run(e, buf, "nodes")
	if strings.Contains(out, "build") || !strings.Contains(out, "lint") || !strings.Contains(out, "test") {
		t.Errorf("filtered nodes:\n%s", out)
	}

	if out := run(e, buf, "where result =="); !strings.Contains(out, "Error") {
		t.Errorf("bad filter accepted: %s", out)
	}
	if out := run(e, buf, "where"); !strings.Contains(out, "Filter cleared") {
		t.Errorf("clear: %s", out)
	}
	if out := run(e, buf, "nodes"); !strings.Contains(out, "build") {
		t.Errorf("cleared filter still applied:\n%s", out)
	}
}

func TestExplorerNode(t *testing.T) {
	e, buf := newExplorer(t, finished())
	out := run(e, buf, "node 3")
	for _, want := range []string{"build [3]", "type:     STAGE", "duration: 1.5s", "edges:    6"} {
		if !strings.Contains(out, want) {
			t.Errorf("node missing %q:\n%s", want, out)
		}
	}
	if out := run(e, buf, "node 999"); !strings.Contains(out, `No node "999"`) {
		t.Errorf("unknown node: %s", out)
	}
	if out := run(e, buf, "node"); !strings.Contains(out, "Usage") {
		t.Errorf("missing id: %s", out)
	}
}

func TestExplorerSteps(t *testing.T) {
	e, buf := newExplorer(t, finished())
	out := run(e, buf, "steps 3")
	if !strings.Contains(out, "sh") || strings.Contains(out, "vet") {
		t.Errorf("build steps:\n%s", out)
	}
	out = run(e, buf, "steps 11")
	if !strings.Contains(out, "error: vet found issues") {
		t.Errorf("lint steps:\n%s", out)
	}
	out = run(e, buf, "steps")
	for _, want := range []string{"sh", "go", "vet"} {
		if !strings.Contains(out, want) {
			t.Errorf("all steps missing %q:\n%s", want, out)
		}
	}
	if out := run(e, buf, "step 4"); !strings.Contains(out, "sh [4]") {
		t.Errorf("step: %s", out)
	}
}

func TestExplorerReloadKeepsNodes(t *testing.T) {
	e, buf := newExplorer(t, finished(), inBuild())
	if out := run(e, buf, "reload"); !strings.Contains(out, "Reloaded: 4 nodes") {
		t.Fatalf("reload: %s", out)
	}
	if out := run(e, buf, "nodes"); !strings.Contains(out, "lint") {
		t.Errorf("a shorter scan dropped nodes:\n%s", out)
	}
}

func TestExplorerFuture(t *testing.T) {
	data, err := flow.Marshal(finished())
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "last.yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	e, buf := newExplorer(t, inBuild())
	if out := run(e, buf, "future "+path); !strings.Contains(out, "Added 3 placeholder nodes") {
		t.Fatalf("future: %s", out)
	}
	if out := run(e, buf, "nodes"); !strings.Contains(out, "pending    lint") {
		t.Errorf("placeholders missing:\n%s", out)
	}
}

func TestExplorerDiagramAndReport(t *testing.T) {
	e, buf := newExplorer(t, finished())
	if out := run(e, buf, "diagram"); !strings.Contains(out, "╔") || !strings.Contains(out, "nightly") {
		t.Errorf("diagram:\n%s", out)
	}
	if out := run(e, buf, "diagram mermaid"); !strings.HasPrefix(out, "flowchart TD") {
		t.Errorf("mermaid:\n%s", out)
	}
	if out := run(e, buf, "diagram svg"); !strings.Contains(out, "Error") {
		t.Errorf("svg accepted: %s", out)
	}
	if out := run(e, buf, "report"); !strings.HasPrefix(out, "# nightly") {
		t.Errorf("report:\n%s", out)
	}
}

func TestExplorerHelpAndQuit(t *testing.T) {
	e, buf := newExplorer(t, finished())
	out := run(e, buf, "help")
	for _, cmd := range []string{"nodes", "node", "steps", "step", "where", "future", "diagram", "report", "reload", "help", "quit"} {
		if !strings.Contains(out, cmd) {
			t.Errorf("help output missing command %q", cmd)
		}
	}
	if out := run(e, buf, "frobnicate"); !strings.Contains(out, "Unknown command") {
		t.Errorf("unknown: %s", out)
	}
	if e.Exec("   ") {
		t.Error("blank line should not quit")
	}
	if !e.Exec("quit") {
		t.Error("quit should end the loop")
	}
}

func TestExplorerPrompt(t *testing.T) {
	e, _ := newExplorer(t, inBuild())
	if got := e.prompt(); got != "flowgraph[nightly | running]> " {
		t.Errorf("prompt = %q", got)
	}
	e, _ = newExplorer(t, finished())
	if got := e.prompt(); got != "flowgraph[nightly | failure]> " {
		t.Errorf("prompt = %q", got)
	}
}
