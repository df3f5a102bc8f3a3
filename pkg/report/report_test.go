package report

import (
	"strings"
	"testing"

	"github.com/ormasoftchile/flowgraph/pkg/kernel/flow"
	"github.com/ormasoftchile/flowgraph/pkg/kernel/flow/flowtest"
	"github.com/ormasoftchile/flowgraph/pkg/kernel/graph"
	"github.com/ormasoftchile/flowgraph/pkg/kernel/status"
)

func failedRun() *graph.Builder {
	b := flowtest.New("nightly")
	c := b.FlowStart()
	s := c.StageStart("build")
	c.Atom("sh")
	c.Tick(2000)
	c.BlockEnd(s)
	t := c.StageStart("test")
	c.Atom("make", flowtest.Failed("exit status 2"))
	c.Tick(500)
	c.BlockEnd(t, flowtest.Failed("exit status 2"))
	c.FlowEnd(flow.ResultFailure)
	return graph.Build(b.Execution(), graph.WithClock(status.FixedClock(0)))
}

func TestMarkdown(t *testing.T) {
	md := Markdown(failedRun())
	for _, want := range []string{
		"# nightly",
		"**Status:** failure in 2.5s",
		"| build | stage | SUCCESS | FINISHED | 2s | 0s |",
		"| test | stage | FAILURE | FINISHED | 500ms | 0s |",
		"## Failed steps",
		"make: exit status 2",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("missing %q in:\n%s", want, md)
		}
	}
}

func TestMarkdown_Running(t *testing.T) {
	b := flowtest.New("deploy")
	c := b.FlowStart()
	c.StageStart("approve")
	c.Input()
	md := Markdown(graph.Build(b.Execution(), graph.WithClock(status.FixedClock(1000))))
	if !strings.Contains(md, "**Status:** running") {
		t.Errorf("missing running status:\n%s", md)
	}
	if !strings.Contains(md, "## Waiting for input") || !strings.Contains(md, "input") {
		t.Errorf("missing input section:\n%s", md)
	}
}

func TestMarkdown_Empty(t *testing.T) {
	if md := Markdown(graph.Build(nil)); !strings.Contains(md, "No execution") {
		t.Errorf("got %q", md)
	}
}

func TestRender(t *testing.T) {
	out, err := Render(Markdown(failedRun()), "ascii", 80)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(out, "nightly") || !strings.Contains(out, "exit status 2") {
		t.Errorf("rendered output lost content:\n%s", out)
	}
}
