package flow

import (
	"encoding/json"
	"fmt"
	"strings"

	sjsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// ValidationError represents a single validation finding with location context.
type ValidationError struct {
	Phase    string `json:"phase"` // structural, semantic, domain
	Path     string `json:"path"`  // e.g. "run.nodes[3].parents[0]"
	Message  string `json:"message"`
	Severity string `json:"severity"` // error, warning
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Phase, e.Path, e.Message)
}

// ValidateFile runs the three validation phases on a trace document:
// structural (strict decode), semantic (JSON Schema) and domain (graph rules).
func ValidateFile(path string) (*Document, []*ValidationError) {
	doc, err := LoadFile(path)
	if err != nil {
		return nil, []*ValidationError{{
			Phase:    "structural",
			Message:  err.Error(),
			Severity: "error",
		}}
	}
	return doc, Validate(doc)
}

// Validate runs the semantic and domain phases on a decoded document.
func Validate(doc *Document) []*ValidationError {
	var errs []*ValidationError
	errs = append(errs, validateSemantic(doc)...)
	errs = append(errs, ValidateDomain(doc)...)
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func semanticError(format string, args ...any) []*ValidationError {
	return []*ValidationError{{
		Phase:    "semantic",
		Message:  fmt.Sprintf(format, args...),
		Severity: "error",
	}}
}

// validateSemantic validates the document against the generated JSON Schema.
func validateSemantic(doc *Document) []*ValidationError {
	data, err := json.Marshal(doc)
	if err != nil {
		return semanticError("marshal for schema validation: %v", err)
	}
	schemaJSON, err := GenerateJSONSchema()
	if err != nil {
		return semanticError("generate schema: %v", err)
	}
	var schemaDoc any
	if err := json.Unmarshal(schemaJSON, &schemaDoc); err != nil {
		return semanticError("unmarshal schema: %v", err)
	}

	c := sjsonschema.NewCompiler()
	if err := c.AddResource("flowgraph-v0.json", schemaDoc); err != nil {
		return semanticError("add schema resource: %v", err)
	}
	sch, err := c.Compile("flowgraph-v0.json")
	if err != nil {
		return semanticError("compile schema: %v", err)
	}

	var inst any
	if err := json.Unmarshal(data, &inst); err != nil {
		return semanticError("unmarshal document: %v", err)
	}
	if err := sch.Validate(inst); err != nil {
		ve, ok := err.(*sjsonschema.ValidationError)
		if !ok {
			return semanticError("%v", err)
		}
		var errs []*ValidationError
		for _, cause := range flattenValidationErrors(ve) {
			errs = append(errs, &ValidationError{
				Phase:    "semantic",
				Path:     strings.Join(cause.InstanceLocation, "/"),
				Message:  fmt.Sprintf("%v", cause.ErrorKind),
				Severity: "error",
			})
		}
		return errs
	}
	return nil
}

// flattenValidationErrors recursively collects all leaf validation errors.
func flattenValidationErrors(ve *sjsonschema.ValidationError) []*sjsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*sjsonschema.ValidationError{ve}
	}
	var flat []*sjsonschema.ValidationError
	for _, cause := range ve.Causes {
		flat = append(flat, flattenValidationErrors(cause)...)
	}
	return flat
}

// ValidateDomain checks the graph rules JSON Schema cannot express: unique
// ids, resolvable references, block pairing and acyclic parent links.
func ValidateDomain(doc *Document) []*ValidationError {
	var errs []*ValidationError
	add := func(path, format string, args ...any) {
		errs = append(errs, &ValidationError{
			Phase:    "domain",
			Path:     path,
			Message:  fmt.Sprintf(format, args...),
			Severity: "error",
		})
	}

	if doc.APIVersion != APIVersion {
		add("apiVersion", "unrecognized apiVersion %q, expected %q", doc.APIVersion, APIVersion)
	}
	run := doc.Run
	if run == nil {
		add("run", "run is required")
		return errs
	}

	seen := make(map[string]int, len(run.Nodes))
	for i, n := range run.Nodes {
		if prev, dup := seen[n.ID]; dup {
			add(fmt.Sprintf("run.nodes[%d].id", i), "duplicate node id %q (first at nodes[%d])", n.ID, prev)
			continue
		}
		seen[n.ID] = i
	}

	starts := 0
	for i, n := range run.Nodes {
		path := fmt.Sprintf("run.nodes[%d]", i)
		if n.Kind == KindFlowStart {
			starts++
			if len(n.Parents) > 0 {
				add(path+".parents", "flow start must not have parents")
			}
		} else if len(n.Parents) == 0 {
			add(path+".parents", "node %q has no parent", n.ID)
		}
		for j, p := range n.Parents {
			if _, ok := seen[p]; !ok {
				add(fmt.Sprintf("%s.parents[%d]", path, j), "unknown parent %q", p)
			}
		}
		switch n.Kind {
		case KindBlockEnd, KindFlowEnd:
			start := run.Node(n.StartID)
			switch {
			case n.StartID == "":
				add(path+".startId", "block end %q needs a startId", n.ID)
			case start == nil:
				add(path+".startId", "unknown start %q", n.StartID)
			case n.Kind == KindBlockEnd && start.Kind != KindBlockStart:
				add(path+".startId", "start %q is a %s, not a block_start", n.StartID, start.Kind)
			case n.Kind == KindFlowEnd && start.Kind != KindFlowStart:
				add(path+".startId", "start %q is a %s, not a flow_start", n.StartID, start.Kind)
			}
		default:
			if n.StartID != "" {
				add(path+".startId", "only block ends carry a startId")
			}
		}
		if n.PausedForInput && n.Kind != KindAtom {
			add(path+".pausedForInput", "only atom steps can wait for input")
		}
	}
	if len(run.Nodes) > 0 && starts != 1 {
		add("run.nodes", "expected exactly one flow_start, found %d", starts)
	}

	for i, h := range run.Heads {
		if _, ok := seen[h]; !ok {
			add(fmt.Sprintf("run.heads[%d]", i), "unknown head %q", h)
		}
	}
	if !run.Building && run.Result == "" && len(run.Nodes) > 0 {
		errs = append(errs, &ValidationError{
			Phase:    "domain",
			Path:     "run.result",
			Message:  "finished run has no result",
			Severity: "warning",
		})
	}

	if cyc := parentCycle(run); cyc != "" {
		add("run.nodes", "parent links form a cycle through %q", cyc)
	}
	return errs
}

// parentCycle returns the id of a node on a parent cycle, or "".
func parentCycle(run *Execution) string {
	const (
		white = iota
		grey
		black
	)
	color := make(map[string]int, len(run.Nodes))
	var visit func(id string) string
	visit = func(id string) string {
		switch color[id] {
		case grey:
			return id
		case black:
			return ""
		}
		color[id] = grey
		if n := run.Node(id); n != nil {
			for _, p := range n.Parents {
				if c := visit(p); c != "" {
					return c
				}
			}
		}
		color[id] = black
		return ""
	}
	for _, n := range run.Nodes {
		if c := visit(n.ID); c != "" {
			return c
		}
	}
	return ""
}

// HasErrors reports whether any finding has error severity.
func HasErrors(errs []*ValidationError) bool {
	for _, e := range errs {
		if e.Severity == "error" {
			return true
		}
	}
	return false
}
