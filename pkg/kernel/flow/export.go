package flow

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// SchemaID is the canonical id of the trace document schema.
const SchemaID = "https://github.com/ormasoftchile/flowgraph/schemas/flowgraph-v0.json"

// GenerateJSONSchema produces a JSON Schema Draft 2020-12 document from the
// flowgraph/v0 Document Go types.
func GenerateJSONSchema() ([]byte, error) {
	r := new(jsonschema.Reflector)
	s := r.Reflect(&Document{})
	s.ID = SchemaID
	s.Title = "Execution trace: flowgraph/v0"
	s.Description = "Schema for flowgraph/v0 execution trace documents (Draft 2020-12)"

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal trace schema: %w", err)
	}
	return data, nil
}
