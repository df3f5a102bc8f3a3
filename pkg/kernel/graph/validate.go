package graph

import (
	"errors"
	"fmt"
)

// ErrCycle is returned when the edges of a graph loop back on themselves.
var ErrCycle = errors.New("graph has a cycle")

// Validate checks the structural invariants of g: ids are unique, every
// edge and parent resolves, edges are acyclic, and every node after the
// first has a parent. All violations are joined into one error.
func Validate(g *Graph) error {
	if g == nil {
		return nil
	}
	var errs []error
	seen := make(map[string]bool, len(g.nodes))
	for i, n := range g.nodes {
		if seen[n.ID] {
			errs = append(errs, fmt.Errorf("node %q: duplicate id", n.ID))
		}
		seen[n.ID] = true
		for _, e := range n.edges {
			if g.NodeByID(e) == nil {
				errs = append(errs, fmt.Errorf("node %q: edge to unknown node %q", n.ID, e))
			}
		}
		for _, p := range n.parents {
			if g.NodeByID(p) == nil {
				errs = append(errs, fmt.Errorf("node %q: unknown parent %q", n.ID, p))
			}
		}
		if i > 0 && len(n.parents) == 0 {
			errs = append(errs, fmt.Errorf("node %q: no parent", n.ID))
		}
	}
	if id := findCycle(g); id != "" {
		errs = append(errs, fmt.Errorf("node %q: %w", id, ErrCycle))
	}
	return errors.Join(errs...)
}

// findCycle returns a node on a cycle, or "".
func findCycle(g *Graph) string {
	const (
		unvisited = iota
		visiting
		visited
	)
	state := make(map[string]int, len(g.nodes))

	var dfs func(id string) string
	dfs = func(id string) string {
		state[id] = visiting
		n := g.NodeByID(id)
		if n != nil {
			for _, next := range n.edges {
				switch state[next] {
				case visiting:
					return next
				case unvisited:
					if c := dfs(next); c != "" {
						return c
					}
				}
			}
		}
		state[id] = visited
		return ""
	}
	for _, n := range g.nodes {
		if state[n.ID] == unvisited {
			if c := dfs(n.ID); c != "" {
				return c
			}
		}
	}
	return ""
}
