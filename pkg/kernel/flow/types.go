// Package flow defines the flowgraph/v0 execution trace: the raw nodes an
// engine appends while a run progresses, and the run that owns them.
package flow

import "errors"

// API version constant for flowgraph/v0 trace documents.
const APIVersion = "flowgraph/v0"

// ErrNodeNotFound is returned when a node id does not resolve in an execution.
var ErrNodeNotFound = errors.New("node not found")

// ---------------------------------------------------------------------------
// Document
// ---------------------------------------------------------------------------

// Document is the top-level flowgraph/v0 trace document.
type Document struct {
	APIVersion string     `yaml:"apiVersion" json:"apiVersion" jsonschema:"enum=flowgraph/v0"`
	Run        *Execution `yaml:"run"        json:"run"`
}

// ---------------------------------------------------------------------------
// Node
// ---------------------------------------------------------------------------

// Kind classifies a raw node by its position in a block.
type Kind string

const (
	KindFlowStart  Kind = "flow_start"
	KindFlowEnd    Kind = "flow_end"
	KindBlockStart Kind = "block_start"
	KindBlockEnd   Kind = "block_end"
	KindAtom       Kind = "atom"
)

// Origin tells real engine nodes apart from nodes fabricated by the graph builder.
type Origin string

const (
	OriginReal      Origin = "REAL"
	OriginSynthetic Origin = "SYNTHETIC"
)

// Well-known step functions.
const (
	FunctionStage    = "stage"
	FunctionParallel = "parallel"
	FunctionNode     = "node"
	FunctionInput    = "input"
)

// Tag names and values attached by the engine.
const (
	TagStageStatus    = "STAGE_STATUS"
	TagSyntheticStage = "SYNTHETIC_STAGE"

	StageSkippedForConditional = "SKIPPED_FOR_CONDITIONAL"
	StageSkippedForFailure     = "SKIPPED_FOR_FAILURE"
	StageSkippedForUnstable    = "SKIPPED_FOR_UNSTABLE"
	StageSkippedForRestart     = "SKIPPED_FOR_RESTART"
)

// Node is one raw execution node. The graph builder never mutates it.
type Node struct {
	ID       string   `yaml:"id"                 json:"id" jsonschema:"minLength=1"`
	Name     string   `yaml:"name,omitempty"     json:"name,omitempty"`
	Function string   `yaml:"function,omitempty" json:"function,omitempty"`
	Kind     Kind     `yaml:"kind"               json:"kind" jsonschema:"enum=flow_start,enum=flow_end,enum=block_start,enum=block_end,enum=atom"`
	Parents  []string `yaml:"parents,omitempty"  json:"parents,omitempty"`
	StartID  string   `yaml:"startId,omitempty"  json:"startId,omitempty"` // block ends only
	Body     bool     `yaml:"body,omitempty"     json:"body,omitempty"`    // block start of a step body

	StartMillis    int64             `yaml:"startMillis,omitempty"    json:"startMillis,omitempty"`
	PauseMillis    int64             `yaml:"pauseMillis,omitempty"    json:"pauseMillis,omitempty" jsonschema:"minimum=0"`
	NotExecuted    bool              `yaml:"notExecuted,omitempty"    json:"notExecuted,omitempty"`
	PausedForInput bool              `yaml:"pausedForInput,omitempty" json:"pausedForInput,omitempty"`
	Label          string            `yaml:"label,omitempty"          json:"label,omitempty"`
	ThreadName     string            `yaml:"threadName,omitempty"     json:"threadName,omitempty"`
	Tags           map[string]string `yaml:"tags,omitempty"           json:"tags,omitempty"`
	Error          *NodeError        `yaml:"error,omitempty"          json:"error,omitempty"`
	Warning        string            `yaml:"warning,omitempty"        json:"warning,omitempty"`
	Queued         string            `yaml:"queued,omitempty"         json:"queued,omitempty"` // why an agent allocation is waiting
	Origin         Origin            `yaml:"origin,omitempty"         json:"origin,omitempty" jsonschema:"enum=REAL,enum=SYNTHETIC"`
}

// NodeError records the failure carried by a node.
type NodeError struct {
	Message string `yaml:"message"           json:"message"`
	Aborted bool   `yaml:"aborted,omitempty" json:"aborted,omitempty"`
}

// DisplayName returns the name a user would recognise: branch name, then
// label, then step name, then function, then id.
func (n *Node) DisplayName() string {
	for _, s := range []string{n.ThreadName, n.Label, n.Name, n.Function} {
		if s != "" {
			return s
		}
	}
	return n.ID
}

// IsSynthetic reports whether the node was fabricated rather than recorded.
func (n *Node) IsSynthetic() bool {
	return n.Origin == OriginSynthetic
}

// IsBlockEnd reports whether the node closes a block (the flow end included).
func (n *Node) IsBlockEnd() bool {
	return n.Kind == KindBlockEnd || n.Kind == KindFlowEnd
}

// FirstParent returns the id of the first parent, or "".
func (n *Node) FirstParent() string {
	if len(n.Parents) == 0 {
		return ""
	}
	return n.Parents[0]
}
