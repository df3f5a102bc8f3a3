package trace

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ormasoftchile/flowgraph/pkg/kernel/flow"
)

const maxLine = 1024 * 1024

// Read replays a JSONL stream into an execution. The stream may stop at any
// event: a run without run_complete is still building.
func Read(r io.Reader) (*flow.Execution, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, maxLine), maxLine)

	exec := &flow.Execution{Building: true}
	pos := make(map[string]int)
	line := 0
	for scanner.Scan() {
		raw := scanner.Bytes()
		line++
		if len(raw) == 0 {
			continue
		}
		var evt Event
		if err := json.Unmarshal(raw, &evt); err != nil {
			return nil, fmt.Errorf("line %d: invalid JSON: %w", line, err)
		}
		if exec.ID == "" {
			exec.ID = evt.RunID
		}

		switch evt.Type {
		case EventRunStart:
			exec.Name, _ = evt.Data["name"].(string)
			exec.StartMillis = int64Of(evt.Data["start_millis"])
		case EventNode:
			if evt.Node == nil || evt.Node.ID == "" {
				return nil, fmt.Errorf("line %d: node event without node id", line)
			}
			if i, ok := pos[evt.Node.ID]; ok {
				exec.Nodes[i] = evt.Node
				continue
			}
			pos[evt.Node.ID] = len(exec.Nodes)
			exec.Nodes = append(exec.Nodes, evt.Node)
		case EventHeads:
			exec.Heads = exec.Heads[:0]
			if heads, ok := evt.Data["heads"].([]any); ok {
				for _, h := range heads {
					if id, ok := h.(string); ok {
						exec.Heads = append(exec.Heads, id)
					}
				}
			}
		case EventRunComplete:
			exec.Building = false
			exec.Result, _ = evt.Data["result"].(string)
			exec.EndMillis = int64Of(evt.Data["end_millis"])
			exec.Heads = nil
		default:
			return nil, fmt.Errorf("line %d: unknown event type %q", line, evt.Type)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}
	if exec.Name == "" {
		exec.Name = exec.ID
	}
	exec.Reindex()
	return exec, nil
}

func int64Of(v any) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	}
	return 0
}

// ReadFile replays a JSONL trace file.
func ReadFile(path string) (*flow.Execution, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	defer f.Close()
	exec, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return exec, nil
}

// IsStream reports whether path names a JSONL stream rather than a document.
func IsStream(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".jsonl")
}

// LoadFile loads an execution from either a JSONL stream or a YAML/JSON
// trace document, by extension.
func LoadFile(path string) (*flow.Execution, error) {
	if IsStream(path) {
		return ReadFile(path)
	}
	doc, err := flow.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc.Run, nil
}

// ValidateFile loads a stream or document and runs the semantic and domain
// validation phases on it. A load failure is a structural finding.
func ValidateFile(path string) (*flow.Execution, []*flow.ValidationError) {
	if !IsStream(path) {
		doc, errs := flow.ValidateFile(path)
		if doc == nil {
			return nil, errs
		}
		return doc.Run, errs
	}
	exec, err := ReadFile(path)
	if err != nil {
		return nil, []*flow.ValidationError{{
			Phase:    "structural",
			Message:  err.Error(),
			Severity: "error",
		}}
	}
	return exec, flow.Validate(&flow.Document{APIVersion: flow.APIVersion, Run: exec})
}
