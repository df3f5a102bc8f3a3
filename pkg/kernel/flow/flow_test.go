package flow_test

import (
	"strings"
	"testing"

	"github.com/ormasoftchile/flowgraph/pkg/kernel/flow"
	"github.com/ormasoftchile/flowgraph/pkg/kernel/flow/flowtest"
)

const linearDoc = `
apiVersion: flowgraph/v0
run:
  id: run-1
  result: SUCCESS
  startMillis: 1000
  endMillis: 2000
  nodes:
    - id: "2"
      kind: flow_start
    - id: "3"
      kind: block_start
      function: stage
      label: build
      parents: ["2"]
      startMillis: 1000
    - id: "4"
      kind: atom
      function: sh
      parents: ["3"]
      startMillis: 1000
    - id: "5"
      kind: block_end
      function: stage
      startId: "3"
      parents: ["4"]
      startMillis: 2000
    - id: "6"
      kind: flow_end
      startId: "2"
      parents: ["5"]
      startMillis: 2000
`

func TestLoad_Linear(t *testing.T) {
	doc, err := flow.Load(strings.NewReader(linearDoc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	run := doc.Run
	if run.ID != "run-1" {
		t.Errorf("id = %q, want run-1", run.ID)
	}
	if len(run.Nodes) != 5 {
		t.Fatalf("nodes = %d, want 5", len(run.Nodes))
	}
	heads := run.CurrentHeads()
	if len(heads) != 1 || heads[0].ID != "6" {
		t.Errorf("heads = %v, want [6]", run.Heads)
	}
	if got := run.StartOf(run.Node("5")); got == nil || got.ID != "3" {
		t.Errorf("StartOf(5) = %v, want 3", got)
	}
	if got := run.EndOf(run.Node("3")); got == nil || got.ID != "5" {
		t.Errorf("EndOf(3) = %v, want 5", got)
	}
	if errs := flow.Validate(doc); len(errs) > 0 {
		t.Errorf("unexpected validation errors: %v", errs)
	}
}

func TestLoad_JSON(t *testing.T) {
	js := `{"apiVersion":"flowgraph/v0","run":{"id":"r","building":true,"nodes":[{"id":"2","kind":"flow_start"},{"id":"3","kind":"atom","parents":["2"]}]}}`
	doc, err := flow.Load(strings.NewReader(js))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !doc.Run.Building {
		t.Error("building = false, want true")
	}
	if !doc.Run.IsCurrentHead(doc.Run.Node("3")) {
		t.Error("node 3 should be the current head")
	}
}

func TestLoad_UnknownField(t *testing.T) {
	doc := `
apiVersion: flowgraph/v0
run:
  id: r
  colour: blue
  nodes: []
`
	if _, err := flow.Load(strings.NewReader(doc)); err == nil {
		t.Fatal("expected structural error for unknown field")
	}
}

func TestLoad_MissingRun(t *testing.T) {
	if _, err := flow.Load(strings.NewReader("apiVersion: flowgraph/v0\n")); err == nil {
		t.Fatal("expected error for missing run")
	}
}

func TestMarshal_RoundTrip(t *testing.T) {
	b := flowtest.New("rt")
	c := b.FlowStart()
	s := c.StageStart("build")
	c.Atom("sh", flowtest.Paused(20))
	c.BlockEnd(s, flowtest.Failed("boom"))
	c.FlowEnd(flow.ResultFailure)

	data, err := flow.Marshal(b.Execution())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	doc, err := flow.Load(strings.NewReader(string(data)))
	if err != nil {
		t.Fatalf("load: %v\n%s", err, data)
	}
	end := doc.Run.Node("5")
	if end == nil || end.Error == nil || end.Error.Message != "boom" {
		t.Errorf("block end error lost: %+v", end)
	}
	if doc.Run.Node("4").PauseMillis != 20 {
		t.Errorf("pause = %d, want 20", doc.Run.Node("4").PauseMillis)
	}
}

func TestPredicates(t *testing.T) {
	b := flowtest.New("p")
	c := b.FlowStart()
	st := c.StageStart("build")
	skipped := c.StageStart("deploy", flowtest.Skipped(flow.StageSkippedForConditional))
	synth := c.StageStart("Declarative: Checkout SCM", flowtest.Synthetic())
	agent := c.AgentStart()
	fork := c.Parallel()
	br := fork.Branch("a")
	in := br.Input()
	exec := b.Execution()

	tests := []struct {
		name string
		got  bool
		want bool
	}{
		{"stage is stage", flow.IsStage(st), true},
		{"branch is not stage", flow.IsStage(br.BranchStart()), false},
		{"branch start is branch", flow.IsParallelBranch(br.BranchStart()), true},
		{"input parent is branch", exec.Node(in.Parents[0]) == br.BranchStart(), true},
		{"skipped", flow.IsSkippedStage(skipped), true},
		{"stage not skipped", flow.IsSkippedStage(st), false},
		{"synthetic", flow.IsSyntheticStage(synth), true},
		{"agent start", flow.IsAgentStart(agent), true},
		{"parallel start", flow.IsParallelStart(fork.Start()), true},
		{"branch start is not parallel start", flow.IsParallelStart(exec.Node(in.Parents[0])), false},
		{"input paused", flow.IsPausedForInput(in), true},
		{"executed", flow.IsExecuted(st), true},
		{"nil not stage", flow.IsStage(nil), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		node flow.Node
		want string
	}{
		{flow.Node{ID: "1", ThreadName: "a", Label: "b", Name: "c"}, "a"},
		{flow.Node{ID: "1", Label: "b", Name: "c"}, "b"},
		{flow.Node{ID: "1", Name: "c", Function: "sh"}, "c"},
		{flow.Node{ID: "1", Function: "sh"}, "sh"},
		{flow.Node{ID: "1"}, "1"},
	}
	for _, tt := range tests {
		if got := tt.node.DisplayName(); got != tt.want {
			t.Errorf("DisplayName(%+v) = %q, want %q", tt.node, got, tt.want)
		}
	}
}

func TestEnclosingBlocks(t *testing.T) {
	b := flowtest.New("e")
	c := b.FlowStart()
	done := c.StageStart("done")
	c.Atom("sh")
	c.BlockEnd(done)
	st := c.StageStart("test")
	fork := c.Parallel()
	br := fork.Branch("a")
	atom := br.Atom("sh")
	exec := b.Execution()

	blocks := exec.EnclosingBlocks(atom)
	var ids []string
	for _, n := range blocks {
		ids = append(ids, n.ID)
	}
	want := []string{br.BranchStart().ID, fork.Start().ID, st.ID}
	if strings.Join(ids, ",") != strings.Join(want, ",") {
		t.Errorf("enclosing = %v, want %v", ids, want)
	}
	if !exec.IsActive(st) {
		t.Error("open stage should be active while building")
	}
	if exec.IsActive(done) {
		t.Error("closed stage should not be active")
	}
}

func TestCauseOfBlockage(t *testing.T) {
	b := flowtest.New("q")
	c := b.FlowStart()
	st := c.StageStart("build")
	agent := c.AgentStart(flowtest.Queued("Waiting for next available executor"))
	other := &flow.Node{ID: "x"}
	exec := b.Execution()

	if got := exec.CauseOfBlockage(st, agent); got != "Waiting for next available executor" {
		t.Errorf("cause = %q", got)
	}
	if got := exec.CauseOfBlockage(other, agent); got != "" {
		t.Errorf("cause for unrelated stage = %q, want empty", got)
	}
	if got := exec.CauseOfBlockage(st, nil); got != "" {
		t.Errorf("cause without agent = %q, want empty", got)
	}
}

func TestCauseOfBlockage_ThroughBody(t *testing.T) {
	b := flowtest.New("q")
	c := b.FlowStart()
	st := c.StageStart("build")
	c.BodyStart(flow.FunctionStage)
	agent := c.AgentStart(flowtest.Queued("queued"))
	if got := b.Execution().CauseOfBlockage(st, agent); got != "queued" {
		t.Errorf("cause = %q, want queued", got)
	}
}
