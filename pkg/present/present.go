// Package present renders semantic nodes and steps as the JSON documents
// clients consume. Every document carries _links so a client can walk from
// a run to its nodes and from a node to its steps.
package present

import (
	"time"

	"github.com/ormasoftchile/flowgraph/pkg/kernel/graph"
	"github.com/ormasoftchile/flowgraph/pkg/kernel/status"
)

// Link is one hypermedia reference.
type Link struct {
	Href string `json:"href"`
}

// Links holds the references of a document, keyed by relation.
type Links map[string]Link

// Edge references a child node.
type Edge struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// NodeView is the wire form of a stage or parallel branch.
type NodeView struct {
	ID                  string  `json:"id"`
	DisplayName         string  `json:"displayName"`
	Type                string  `json:"type"`
	Result              string  `json:"result"`
	State               *string `json:"state"`
	StartTime           *string `json:"startTime"`
	DurationInMillis    int64   `json:"durationInMillis"`
	PauseDurationMillis int64   `json:"pauseDurationMillis"`
	CauseOfBlockage     string  `json:"causeOfBlockage,omitempty"`
	FirstParent         *string `json:"firstParent"`
	Edges               []Edge  `json:"edges"`
	Synthetic           bool    `json:"synthetic,omitempty"`
	Links               Links   `json:"_links"`
}

// StepView is the wire form of a step.
type StepView struct {
	ID                  string  `json:"id"`
	DisplayName         string  `json:"displayName"`
	Type                string  `json:"type"`
	Result              string  `json:"result"`
	State               *string `json:"state"`
	StartTime           *string `json:"startTime"`
	DurationInMillis    int64   `json:"durationInMillis"`
	PauseDurationMillis int64   `json:"pauseDurationMillis"`
	Input               bool    `json:"input,omitempty"`
	Links               Links   `json:"_links"`
}

// RunView summarises a run for listings.
type RunView struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Result   string `json:"result,omitempty"`
	Building bool   `json:"building"`
	Links    Links  `json:"_links"`
}

// TimeLayout is the layout of startTime values.
const TimeLayout = "2006-01-02T15:04:05.000Z0700"

// Paths builds hrefs under one run.
type Paths struct {
	Base string // e.g. /runs/42
}

// Run returns the href of the run itself.
func (p Paths) Run() string { return p.Base }

// Node returns the href of a node.
func (p Paths) Node(id string) string { return p.Base + "/nodes/" + id }

// NodeSteps returns the href of a node's steps.
func (p Paths) NodeSteps(id string) string { return p.Node(id) + "/steps" }

// Step returns the href of a step.
func (p Paths) Step(id string) string { return p.Base + "/steps/" + id }

// Node renders one node of g.
func Node(p Paths, g *graph.Graph, n *graph.Node) NodeView {
	result, state := statusFields(n.Status)
	v := NodeView{
		ID:                  n.ID,
		DisplayName:         n.DisplayName,
		Type:                string(n.Type),
		Result:              result,
		State:               state,
		StartTime:           startTime(n.Timing),
		DurationInMillis:    n.Timing.TotalDurationMillis,
		PauseDurationMillis: n.Timing.PauseDurationMillis,
		CauseOfBlockage:     n.CauseOfBlockage,
		Edges:               []Edge{},
		Synthetic:           n.IsSynthetic(),
		Links: Links{
			"self":  {Href: p.Node(n.ID)},
			"steps": {Href: p.NodeSteps(n.ID)},
		},
	}
	if fp := n.FirstParent(); fp != "" {
		v.FirstParent = &fp
	}
	for _, id := range n.Edges() {
		e := Edge{ID: id}
		if child := g.NodeByID(id); child != nil {
			e.Type = string(child.Type)
		}
		v.Edges = append(v.Edges, e)
	}
	return v
}

// Nodes renders nodes in order.
func Nodes(p Paths, g *graph.Graph, nodes []*graph.Node) []NodeView {
	out := make([]NodeView, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, Node(p, g, n))
	}
	return out
}

// Step renders one step.
func Step(p Paths, s *graph.Node) StepView {
	result, state := statusFields(s.Status)
	v := StepView{
		ID:                  s.ID,
		DisplayName:         s.DisplayName,
		Type:                string(graph.TypeStep),
		Result:              result,
		State:               state,
		StartTime:           startTime(s.Timing),
		DurationInMillis:    s.Timing.TotalDurationMillis,
		PauseDurationMillis: s.Timing.PauseDurationMillis,
		Input:               s.Status.State == status.StatePaused && s.Raw != nil && s.Raw.PausedForInput,
		Links:               Links{"self": {Href: p.Step(s.ID)}},
	}
	return v
}

// Steps renders steps in order.
func Steps(p Paths, steps []*graph.Node) []StepView {
	out := make([]StepView, 0, len(steps))
	for _, s := range steps {
		out = append(out, Step(p, s))
	}
	return out
}

// statusFields maps an unset status to result UNKNOWN with no state.
func statusFields(s status.RunStatus) (string, *string) {
	if s.Unset() {
		return string(status.ResultUnknown), nil
	}
	result := string(s.Result)
	if result == "" {
		result = string(status.ResultUnknown)
	}
	if s.State == "" {
		return result, nil
	}
	state := string(s.State)
	return result, &state
}

func startTime(t status.TimingInfo) *string {
	if t.StartTimeMillis <= 0 {
		return nil
	}
	s := time.UnixMilli(t.StartTimeMillis).UTC().Format(TimeLayout)
	return &s
}
