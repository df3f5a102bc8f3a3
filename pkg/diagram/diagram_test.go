package diagram

import (
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"

	"github.com/ormasoftchile/flowgraph/pkg/kernel/flow"
	"github.com/ormasoftchile/flowgraph/pkg/kernel/flow/flowtest"
	"github.com/ormasoftchile/flowgraph/pkg/kernel/graph"
	"github.com/ormasoftchile/flowgraph/pkg/kernel/status"
)

// sample is build, then test with branches unit and lint (lint failed).
// Ids: 3 build, 6 test, 8 unit, 11 lint.
func sample() *graph.Graph {
	b := flowtest.New("run")
	c := b.FlowStart()
	s := c.StageStart("build")
	c.Atom("sh")
	c.Tick(1500)
	c.BlockEnd(s)
	t := c.StageStart("test")
	fork := c.Parallel()
	unit := fork.Branch("unit")
	unit.Atom("sh")
	c.Tick(200)
	unit.EndBranch()
	lint := fork.Branch("lint")
	lint.Atom("sh")
	lint.EndBranch(flowtest.Failed("lint"))
	fork.Join()
	c.BlockEnd(t, flowtest.Failed("lint"))
	c.FlowEnd(flow.ResultFailure)
	return graph.Build(b.Execution(), graph.WithClock(status.FixedClock(0))).Graph()
}

func TestGenerateMermaid(t *testing.T) {
	out, err := Generate(sample(), "run", FormatMermaid)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{
		"flowchart TD",
		"START([Start]) --> n3",
		`n3["✔ build<br/>1.5s"]`,
		"n3 --> n6",
		"n6 --> n8",
		"n6 --> n11",
		`n8[/"✔ unit<br/>200ms"/]`,
		"style n11 fill:#d33",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestGenerateMermaid_Synthetic(t *testing.T) {
	b := flowtest.New("run")
	c := b.FlowStart()
	fork := c.Parallel()
	a := fork.Branch("a")
	a.Atom("sh")
	a.EndBranch()
	fork.Join()
	c.FlowEnd(flow.ResultSuccess)
	g := graph.Build(b.Execution(), graph.WithClock(status.FixedClock(0))).Graph()

	out, err := Generate(g, "", FormatMermaid)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `n4_parallel_synthetic[["✔ Parallel"]]`) {
		t.Errorf("missing synthetic stage in:\n%s", out)
	}
}

func TestGenerateMermaid_Placeholder(t *testing.T) {
	g := graph.Placeholders(sample())
	out, _ := Generate(g, "run", FormatMermaid)
	if !strings.Contains(out, "style n3 fill:#eee") || !strings.Contains(out, `n3["· build"]`) {
		t.Errorf("placeholders should render dashed without duration:\n%s", out)
	}
}

func TestGenerateASCII(t *testing.T) {
	out, err := Generate(sample(), "nightly", FormatASCII)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"nightly", "✔ build (1.5s)", "✘ test", "✔ unit (200ms)", "✘ lint", "◇"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}

	// every box line of the stage column has the same display width
	widths := map[int]bool{}
	for _, line := range strings.Split(out, "\n") {
		trimmed := strings.TrimLeft(line, " ")
		if strings.HasPrefix(trimmed, "┌") && !strings.Contains(trimmed, "◇") ||
			strings.HasPrefix(trimmed, "╔") {
			widths[runewidth.StringWidth(line)] = true
		}
	}
	if len(widths) != 1 {
		t.Errorf("stage boxes have differing widths %v:\n%s", widths, out)
	}
}

func TestGenerateASCII_Empty(t *testing.T) {
	out, err := Generate(graph.Empty(), "nothing", FormatASCII)
	if err != nil {
		t.Fatal(err)
	}
	if out != "nothing (empty)\n" {
		t.Errorf("got %q", out)
	}
}

func TestGenerate_Errors(t *testing.T) {
	if _, err := Generate(nil, "", FormatMermaid); err == nil {
		t.Error("expected error for nil graph")
	}
	if _, err := Generate(graph.Empty(), "", Format("svg")); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestSafeID(t *testing.T) {
	if got := safeID("4-parallel-synthetic"); got != "n4_parallel_synthetic" {
		t.Errorf("safeID = %q", got)
	}
}
