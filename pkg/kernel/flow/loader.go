package flow

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFile reads and structurally decodes a flowgraph/v0 trace document
// (YAML, or JSON which yaml.v3 accepts as well).
func LoadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open trace document: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load reads a flowgraph/v0 trace document from a reader.
func Load(r io.Reader) (*Document, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true) // strict: reject unknown fields
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("structural decode: %w", err)
	}
	if doc.Run == nil {
		return nil, fmt.Errorf("structural decode: missing run")
	}
	doc.Run.Reindex()
	return &doc, nil
}

// Marshal encodes an execution as a flowgraph/v0 YAML document.
func Marshal(e *Execution) ([]byte, error) {
	data, err := yaml.Marshal(&Document{APIVersion: APIVersion, Run: e})
	if err != nil {
		return nil, fmt.Errorf("marshal trace document: %w", err)
	}
	return data, nil
}
