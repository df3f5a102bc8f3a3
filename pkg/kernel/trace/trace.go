// Package trace implements the append-only JSONL stream an engine writes
// while a run progresses: one event per appended node, framed by run start
// and run complete events and chained by hash.
package trace

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ormasoftchile/flowgraph/pkg/kernel/flow"
)

// EventType enumerates the trace event types.
type EventType string

const (
	EventRunStart    EventType = "run_start"
	EventNode        EventType = "node"
	EventHeads       EventType = "heads"
	EventRunComplete EventType = "run_complete"
)

// SigningKeyEnv names the variable holding the HMAC key for trace signatures.
const SigningKeyEnv = "FLOWGRAPH_TRACE_SIGNING_KEY"

var genesisHash = strings.Repeat("0", 64)

// Event is a single line of the JSONL stream.
type Event struct {
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	RunID     string         `json:"run_id"`
	PrevHash  string         `json:"prev_hash"`
	Node      *flow.Node     `json:"node,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// Writer appends events to a JSONL stream. It is safe for concurrent use.
type Writer struct {
	mu       sync.Mutex
	w        io.Writer
	closer   io.Closer
	runID    string
	prevHash string
	now      func() time.Time
}

// NewWriter creates a writer on w. An empty runID gets a fresh UUID.
func NewWriter(w io.Writer, runID string) *Writer {
	if runID == "" {
		runID = uuid.NewString()
	}
	return &Writer{
		w:        w,
		runID:    runID,
		prevHash: genesisHash,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// NewFileWriter creates a writer appending to a JSONL file.
func NewFileWriter(path, runID string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	tw := NewWriter(f, runID)
	tw.closer = f
	return tw, nil
}

// RunID returns the run the writer records.
func (tw *Writer) RunID() string { return tw.runID }

// Close closes the underlying file, if the writer opened one.
func (tw *Writer) Close() error {
	if tw.closer == nil {
		return nil
	}
	return tw.closer.Close()
}

func (tw *Writer) emit(evt Event) error {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	return tw.write(evt)
}

// write appends evt; the caller holds mu.
func (tw *Writer) write(evt Event) error {
	evt.Timestamp = tw.now()
	evt.RunID = tw.runID
	evt.PrevHash = tw.prevHash
	line, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", evt.Type, err)
	}
	h := sha256.Sum256(line)
	tw.prevHash = hex.EncodeToString(h[:])
	if _, err := tw.w.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write %s event: %w", evt.Type, err)
	}
	return nil
}

// EmitRunStart opens the run.
func (tw *Writer) EmitRunStart(name string, startMillis int64) error {
	return tw.emit(Event{Type: EventRunStart, Data: map[string]any{
		"name":         name,
		"start_millis": startMillis,
	}})
}

// EmitNode appends a node. A node with an id already in the stream replaces
// the earlier record, so actions added later (errors, pauses) can be
// written again.
func (tw *Writer) EmitNode(n *flow.Node) error {
	if n == nil || n.ID == "" {
		return fmt.Errorf("emit node: missing id")
	}
	return tw.emit(Event{Type: EventNode, Node: n})
}

// EmitHeads pins the current heads instead of deriving them.
func (tw *Writer) EmitHeads(heads []string) error {
	return tw.emit(Event{Type: EventHeads, Data: map[string]any{"heads": heads}})
}

// EmitRunComplete closes the run with its result. When the signing key is
// set the event carries an HMAC over the chain hash.
func (tw *Writer) EmitRunComplete(result string, endMillis int64) error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	chain := tw.prevHash
	data := map[string]any{
		"result":     result,
		"end_millis": endMillis,
		"chain_hash": chain,
	}
	if key := os.Getenv(SigningKeyEnv); key != "" {
		data["signature"] = sign(key, chain)
	}
	return tw.write(Event{Type: EventRunComplete, Data: data})
}

func sign(key, chain string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(chain))
	return hex.EncodeToString(mac.Sum(nil))
}

// Record writes exec to the stream: run start, every node in order, the
// heads of a building run, and run complete once it has finished.
func (tw *Writer) Record(exec *flow.Execution) error {
	return tw.RecordEach(exec, nil)
}

// RecordEach is Record with a hook called after every node, which lets the
// caller pace the stream.
func (tw *Writer) RecordEach(exec *flow.Execution, after func(*flow.Node) error) error {
	if err := tw.EmitRunStart(exec.Name, exec.StartMillis); err != nil {
		return err
	}
	for _, n := range exec.Nodes {
		if err := tw.EmitNode(n); err != nil {
			return err
		}
		if after != nil {
			if err := after(n); err != nil {
				return err
			}
		}
	}
	if exec.Building {
		if len(exec.Heads) > 0 {
			return tw.EmitHeads(exec.Heads)
		}
		return nil
	}
	return tw.EmitRunComplete(exec.Result, exec.EndMillis)
}
