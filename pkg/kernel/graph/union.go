package graph

import "github.com/ormasoftchile/flowgraph/pkg/kernel/status"

// Union splices the nodes next has beyond the length of current onto a copy
// of current. Nodes already in current keep their identity and status.
// Neither input is modified.
func Union(current, next *Graph) *Graph {
	out := Empty()
	if current != nil {
		out = current.clone()
	}
	size := out.Len()
	future := next.Nodes()
	if len(future) <= size {
		return out
	}

	for i := size; i < len(future); i++ {
		if size > 0 && i == size {
			stitch(out, next, out.nodes[size-1], future[i])
		}
		n := future[i].clone()
		if n.Status.Unset() {
			n.Timing = status.TimingInfo{}
		}
		out.append(n)
	}
	return out
}

// Union merges next onto the graph of this builder.
func (b *Builder) Union(next *Graph) *Graph {
	return Union(b.graph, next)
}

// stitch links the first new node to the last node of the old graph.
func stitch(out, next *Graph, latest, first *Node) {
	switch latest.Type {
	case TypeStage:
		switch first.Type {
		case TypeStage:
			latest.addEdge(first.ID)
		case TypeParallel:
			// other branches of the same stage may already be visible
			if thatStage := next.ParentOf(first); thatStage != nil && thatStage.ID == latest.ID {
				for _, e := range thatStage.edges {
					latest.addEdge(e)
				}
			}
		}

	case TypeParallel:
		var thatStage *Node
		var futureStage string
		switch {
		case first.Type == TypeStage:
			thatStage = first
			futureStage = first.ID
		case first.Type == TypeParallel && first.FirstParent() != "" && first.FirstParent() == latest.FirstParent():
			thatStage = next.ParentOf(first)
			if len(first.edges) > 0 {
				futureStage = first.edges[0]
			}
		}

		stage := out.ParentOf(latest)
		if stage == nil {
			return
		}
		if futureStage != "" {
			for _, e := range stage.edges {
				if sibling := out.NodeByID(e); sibling != nil {
					sibling.addEdge(futureStage)
				}
			}
		}
		// the old graph may have ended mid parallel
		if thatStage != nil && first.Type == TypeParallel {
			for _, e := range thatStage.edges {
				stage.addEdge(e)
			}
		}
	}
}

// Placeholders returns a copy of g with every status unset and every timing
// zeroed, for showing the stages a run has not reached yet.
func Placeholders(g *Graph) *Graph {
	if g == nil {
		return Empty()
	}
	out := g.clone()
	for _, n := range out.nodes {
		n.Status = status.RunStatus{}
		n.Timing = status.TimingInfo{}
		n.CauseOfBlockage = ""
	}
	return out
}
