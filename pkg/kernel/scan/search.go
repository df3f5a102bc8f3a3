package scan

import "github.com/ormasoftchile/flowgraph/pkg/kernel/flow"

// FindFirstMatch searches depth first from the current heads along parent
// links and returns the first node matching pred, or nil.
func FindFirstMatch(exec *flow.Execution, pred func(*flow.Node) bool) *flow.Node {
	heads := exec.CurrentHeads()
	seen := make(map[string]bool)
	stack := make([]*flow.Node, 0, len(heads))
	for i := len(heads) - 1; i >= 0; i-- {
		stack = append(stack, heads[i])
	}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[n.ID] {
			continue
		}
		seen[n.ID] = true
		if pred(n) {
			return n
		}
		for i := len(n.Parents) - 1; i >= 0; i-- {
			if p := exec.Node(n.Parents[i]); p != nil && !seen[p.ID] {
				stack = append(stack, p)
			}
		}
	}
	return nil
}
