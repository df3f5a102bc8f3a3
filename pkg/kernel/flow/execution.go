package flow

// Run results recorded on a finished execution.
const (
	ResultSuccess  = "SUCCESS"
	ResultUnstable = "UNSTABLE"
	ResultFailure  = "FAILURE"
	ResultNotBuilt = "NOT_BUILT"
	ResultAborted  = "ABORTED"
)

// Execution is a snapshot of one run's append-only trace.
type Execution struct {
	ID          string   `yaml:"id"                    json:"id" jsonschema:"minLength=1"`
	Name        string   `yaml:"name,omitempty"        json:"name,omitempty"`
	Building    bool     `yaml:"building,omitempty"    json:"building,omitempty"`
	Result      string   `yaml:"result,omitempty"      json:"result,omitempty" jsonschema:"enum=SUCCESS,enum=UNSTABLE,enum=FAILURE,enum=NOT_BUILT,enum=ABORTED"`
	StartMillis int64    `yaml:"startMillis,omitempty" json:"startMillis,omitempty"`
	EndMillis   int64    `yaml:"endMillis,omitempty"   json:"endMillis,omitempty"`
	Heads       []string `yaml:"heads,omitempty"       json:"heads,omitempty"`
	Nodes       []*Node  `yaml:"nodes"                 json:"nodes"`

	index    map[string]*Node
	ends     map[string]*Node // block start id -> block end
	children map[string][]string // parent id -> child ids in node order
}

// Reindex rebuilds the lookup tables after Nodes changed. When Heads is
// empty the heads are derived as the childless nodes, in node order.
func (e *Execution) Reindex() {
	e.index = make(map[string]*Node, len(e.Nodes))
	e.ends = make(map[string]*Node)
	e.children = make(map[string][]string, len(e.Nodes))
	for _, n := range e.Nodes {
		e.index[n.ID] = n
		if n.StartID != "" {
			e.ends[n.StartID] = n
		}
		for _, p := range n.Parents {
			e.children[p] = append(e.children[p], n.ID)
		}
	}
	if len(e.Heads) == 0 {
		for _, n := range e.Nodes {
			if len(e.children[n.ID]) == 0 {
				e.Heads = append(e.Heads, n.ID)
			}
		}
	}
}

func (e *Execution) ensureIndex() {
	if e.index == nil {
		e.Reindex()
	}
}

// Node returns the node with the given id, or nil.
func (e *Execution) Node(id string) *Node {
	if e == nil || id == "" {
		return nil
	}
	e.ensureIndex()
	return e.index[id]
}

// CurrentHeads returns the nodes the run is currently at.
func (e *Execution) CurrentHeads() []*Node {
	if e == nil {
		return nil
	}
	e.ensureIndex()
	heads := make([]*Node, 0, len(e.Heads))
	for _, id := range e.Heads {
		if n := e.index[id]; n != nil {
			heads = append(heads, n)
		}
	}
	return heads
}

// IsCurrentHead reports whether n is one of the current heads.
func (e *Execution) IsCurrentHead(n *Node) bool {
	if e == nil || n == nil {
		return false
	}
	e.ensureIndex()
	for _, id := range e.Heads {
		if id == n.ID {
			return true
		}
	}
	return false
}

// FirstParent returns the first parent node of n, or nil.
func (e *Execution) FirstParent(n *Node) *Node {
	if n == nil {
		return nil
	}
	return e.Node(n.FirstParent())
}

// Successor returns the node appended after n, preferring one that lists n
// as its first parent, or nil.
func (e *Execution) Successor(n *Node) *Node {
	if e == nil || n == nil {
		return nil
	}
	e.ensureIndex()
	var joined *Node
	for _, id := range e.children[n.ID] {
		c := e.index[id]
		switch {
		case c == nil:
		case c.FirstParent() == n.ID:
			return c
		case joined == nil:
			joined = c
		}
	}
	return joined
}

// StartOf returns the block start closed by end, or nil.
func (e *Execution) StartOf(end *Node) *Node {
	if end == nil || !end.IsBlockEnd() {
		return nil
	}
	return e.Node(end.StartID)
}

// EndOf returns the block end closing start, or nil while the block is open.
func (e *Execution) EndOf(start *Node) *Node {
	if e == nil || start == nil {
		return nil
	}
	e.ensureIndex()
	return e.ends[start.ID]
}

// IsActive reports whether n is still running: the run is building and n is
// either a current head or a block start that has not been closed yet.
func (e *Execution) IsActive(n *Node) bool {
	if e == nil || n == nil || !e.Building {
		return false
	}
	if e.IsCurrentHead(n) {
		return true
	}
	return n.Kind == KindBlockStart && e.EndOf(n) == nil
}

// EnclosingBlocks returns the open block starts enclosing n, innermost first.
func (e *Execution) EnclosingBlocks(n *Node) []*Node {
	var blocks []*Node
	cur := e.FirstParent(n)
	if n != nil && n.IsBlockEnd() {
		cur = e.FirstParent(e.StartOf(n))
	}
	for cur != nil {
		switch {
		case cur.IsBlockEnd():
			// skip the whole closed block
			cur = e.FirstParent(e.StartOf(cur))
			continue
		case cur.Kind == KindBlockStart:
			blocks = append(blocks, cur)
		}
		cur = e.FirstParent(cur)
	}
	return blocks
}
