package flow

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func findError(errs []*ValidationError, phase, substr string) bool {
	for _, e := range errs {
		if e.Phase == phase && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

func TestValidateDomain(t *testing.T) {
	tests := []struct {
		name  string
		nodes []*Node
		heads []string
		want  string
	}{
		{
			name: "duplicate id",
			nodes: []*Node{
				{ID: "2", Kind: KindFlowStart},
				{ID: "2", Kind: KindAtom, Parents: []string{"2"}},
			},
			want: `duplicate node id "2"`,
		},
		{
			name: "unknown parent",
			nodes: []*Node{
				{ID: "2", Kind: KindFlowStart},
				{ID: "3", Kind: KindAtom, Parents: []string{"9"}},
			},
			want: `unknown parent "9"`,
		},
		{
			name: "orphan node",
			nodes: []*Node{
				{ID: "2", Kind: KindFlowStart},
				{ID: "3", Kind: KindAtom},
			},
			want: "has no parent",
		},
		{
			name: "block end without start",
			nodes: []*Node{
				{ID: "2", Kind: KindFlowStart},
				{ID: "3", Kind: KindBlockEnd, Parents: []string{"2"}},
			},
			want: "needs a startId",
		},
		{
			name: "block end closing an atom",
			nodes: []*Node{
				{ID: "2", Kind: KindFlowStart},
				{ID: "3", Kind: KindAtom, Parents: []string{"2"}},
				{ID: "4", Kind: KindBlockEnd, StartID: "3", Parents: []string{"3"}},
			},
			want: "not a block_start",
		},
		{
			name: "input on a block",
			nodes: []*Node{
				{ID: "2", Kind: KindFlowStart},
				{ID: "3", Kind: KindBlockStart, PausedForInput: true, Parents: []string{"2"}},
			},
			want: "only atom steps",
		},
		{
			name: "unknown head",
			nodes: []*Node{
				{ID: "2", Kind: KindFlowStart},
			},
			heads: []string{"7"},
			want:  `unknown head "7"`,
		},
		{
			name: "cycle",
			nodes: []*Node{
				{ID: "2", Kind: KindFlowStart},
				{ID: "3", Kind: KindAtom, Parents: []string{"4"}},
				{ID: "4", Kind: KindAtom, Parents: []string{"3"}},
			},
			want: "cycle",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run := &Execution{ID: "r", Building: true, Nodes: tt.nodes, Heads: tt.heads}
			run.Reindex()
			errs := ValidateDomain(&Document{APIVersion: APIVersion, Run: run})
			if !findError(errs, "domain", tt.want) {
				t.Errorf("expected %q, got: %v", tt.want, errs)
			}
		})
	}
}

func TestValidateDomain_FinishedWithoutResult(t *testing.T) {
	run := &Execution{ID: "r", Nodes: []*Node{{ID: "2", Kind: KindFlowStart}}}
	run.Reindex()
	errs := ValidateDomain(&Document{APIVersion: APIVersion, Run: run})
	if len(errs) != 1 || errs[0].Severity != "warning" {
		t.Fatalf("expected one warning, got: %v", errs)
	}
	if HasErrors(errs) {
		t.Error("warnings must not count as errors")
	}
}

func TestValidateSemantic_BadKind(t *testing.T) {
	run := &Execution{ID: "r", Building: true, Nodes: []*Node{{ID: "2", Kind: "loop"}}}
	errs := validateSemantic(&Document{APIVersion: APIVersion, Run: run})
	if len(errs) == 0 {
		t.Fatal("expected semantic error for unknown kind")
	}
	if errs[0].Phase != "semantic" {
		t.Errorf("phase = %q, want semantic", errs[0].Phase)
	}
}

func TestValidateFile_Structural(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("apiVersion: flowgraph/v0\nrun: [1, 2]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	doc, errs := ValidateFile(path)
	if doc != nil {
		t.Error("expected nil document on structural failure")
	}
	if len(errs) != 1 || errs[0].Phase != "structural" {
		t.Fatalf("expected one structural error, got: %v", errs)
	}
}

func TestGenerateJSONSchema(t *testing.T) {
	data, err := GenerateJSONSchema()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	var s map[string]any
	if err := json.Unmarshal(data, &s); err != nil {
		t.Fatalf("schema is not JSON: %v", err)
	}
	if s["$id"] != SchemaID {
		t.Errorf("$id = %v, want %s", s["$id"], SchemaID)
	}
	if !strings.Contains(string(data), "flow_start") {
		t.Error("schema should enumerate node kinds")
	}
}
