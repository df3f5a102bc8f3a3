// Package graph turns an execution trace into the compact graph of stages,
// parallel branches and steps that clients display, and merges successive
// graphs of the same run.
package graph

import (
	"slices"

	"github.com/ormasoftchile/flowgraph/pkg/kernel/flow"
	"github.com/ormasoftchile/flowgraph/pkg/kernel/status"
)

// NodeType classifies a semantic node.
type NodeType string

const (
	TypeStage    NodeType = "STAGE"
	TypeParallel NodeType = "PARALLEL"
	TypeStep     NodeType = "STEP"
)

// Node is one semantic node. Parents and edges hold ids resolved through
// the owning Graph.
type Node struct {
	ID              string
	DisplayName     string
	Type            NodeType
	Status          status.RunStatus
	Timing          status.TimingInfo
	CauseOfBlockage string
	Raw             *flow.Node

	parents []string
	edges   []string
}

func newNode(raw *flow.Node, typ NodeType, st status.RunStatus, timing status.TimingInfo) *Node {
	return &Node{
		ID:          raw.ID,
		DisplayName: raw.DisplayName(),
		Type:        typ,
		Status:      st,
		Timing:      timing,
		Raw:         raw,
	}
}

// Parents returns the parent ids in insertion order.
func (n *Node) Parents() []string { return slices.Clone(n.parents) }

// Edges returns the child ids in insertion order.
func (n *Node) Edges() []string { return slices.Clone(n.edges) }

// FirstParent returns the first parent id, or "".
func (n *Node) FirstParent() string {
	if len(n.parents) == 0 {
		return ""
	}
	return n.parents[0]
}

// IsSynthetic reports whether the node wraps a fabricated raw node.
func (n *Node) IsSynthetic() bool {
	return n.Raw != nil && n.Raw.IsSynthetic()
}

func (n *Node) addEdge(id string) {
	if id != "" && !slices.Contains(n.edges, id) {
		n.edges = append(n.edges, id)
	}
}

func (n *Node) addParent(id string) {
	if id != "" && !slices.Contains(n.parents, id) {
		n.parents = append(n.parents, id)
	}
}

func (n *Node) clone() *Node {
	c := *n
	c.parents = slices.Clone(n.parents)
	c.edges = slices.Clone(n.edges)
	return &c
}

// Graph is an ordered, id-indexed set of semantic nodes in execution order.
// It is not modified once built.
type Graph struct {
	nodes []*Node
	index map[string]int
}

// Empty returns a graph without nodes.
func Empty() *Graph {
	return newGraph(nil)
}

func newGraph(nodes []*Node) *Graph {
	g := &Graph{nodes: nodes, index: make(map[string]int, len(nodes))}
	for i, n := range nodes {
		if _, dup := g.index[n.ID]; !dup {
			g.index[n.ID] = i
		}
	}
	return g
}

// Nodes returns the nodes in execution order.
func (g *Graph) Nodes() []*Node {
	if g == nil {
		return nil
	}
	return slices.Clone(g.nodes)
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	if g == nil {
		return 0
	}
	return len(g.nodes)
}

// NodeByID returns the node with the given id, or nil.
func (g *Graph) NodeByID(id string) *Node {
	if g == nil {
		return nil
	}
	i, ok := g.index[id]
	if !ok {
		return nil
	}
	return g.nodes[i]
}

// ParentOf returns the first parent of n, or nil.
func (g *Graph) ParentOf(n *Node) *Node {
	return g.NodeByID(n.FirstParent())
}

// Children resolves the edges of n. Ids missing from the graph are dropped.
func (g *Graph) Children(n *Node) []*Node {
	var out []*Node
	for _, id := range n.edges {
		if c := g.NodeByID(id); c != nil {
			out = append(out, c)
		}
	}
	return out
}

func (g *Graph) clone() *Graph {
	nodes := make([]*Node, len(g.nodes))
	for i, n := range g.nodes {
		nodes[i] = n.clone()
	}
	return newGraph(nodes)
}

func (g *Graph) append(n *Node) bool {
	if _, dup := g.index[n.ID]; dup {
		return false
	}
	g.index[n.ID] = len(g.nodes)
	g.nodes = append(g.nodes, n)
	return true
}
