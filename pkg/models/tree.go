package models

// TreeStatus represents the overall state of a reasoning session.
type TreeStatus string

const (
	// TreeStatusRunning indicates the session is still processing nodes.
	TreeStatusRunning TreeStatus = "running"
	// TreeStatusComplete indicates the root node finished successfully.
	TreeStatusComplete TreeStatus = "complete"
	// TreeStatusFailed indicates processing escaped the root node.
	TreeStatusFailed TreeStatus = "failed"
)

// TreeState is the complete state of one reasoning session. The execution
// engine owns the single mutable instance; observers only ever see clones.
//
// The tree is stored as an id-keyed map plus an insertion-ordered id list
// rather than embedded pointers, so snapshots stay cheap to copy and
// serialize without cyclic references.
type TreeState struct {
	// RootID is the root node's ID.
	RootID string `json:"root_id"`
	// Nodes maps node IDs to nodes. Keys are append-only.
	Nodes map[string]*Node `json:"nodes"`
	// Order lists node IDs in creation order, for deterministic traversal.
	Order []string `json:"order"`
	// MaxDepth is the caller-supplied depth budget.
	MaxDepth int `json:"max_depth"`
	// Status is the overall session status.
	Status TreeStatus `json:"status"`
	// FinalResult is the root's solution, set once the root completes.
	FinalResult string `json:"final_result,omitempty"`
}

// NewTreeState creates a tree containing only the given root node.
func NewTreeState(root *Node, maxDepth int) *TreeState {
	return &TreeState{
		RootID:   root.ID,
		Nodes:    map[string]*Node{root.ID: root},
		Order:    []string{root.ID},
		MaxDepth: maxDepth,
		Status:   TreeStatusRunning,
	}
}

// Node returns the node with the given ID, or nil if absent.
func (t *TreeState) Node(id string) *Node {
	return t.Nodes[id]
}

// Root returns the root node.
func (t *TreeState) Root() *Node {
	return t.Nodes[t.RootID]
}

// Add registers a new node. The key set is append-only; adding an existing
// ID is a no-op.
func (t *TreeState) Add(n *Node) {
	if _, ok := t.Nodes[n.ID]; ok {
		return
	}
	t.Nodes[n.ID] = n
	t.Order = append(t.Order, n.ID)
}

// Clone returns a deep copy of the tree state, safe to hand to observers.
func (t *TreeState) Clone() *TreeState {
	cp := &TreeState{
		RootID:      t.RootID,
		Nodes:       make(map[string]*Node, len(t.Nodes)),
		Order:       append([]string(nil), t.Order...),
		MaxDepth:    t.MaxDepth,
		Status:      t.Status,
		FinalResult: t.FinalResult,
	}
	for id, n := range t.Nodes {
		cp.Nodes[id] = n.Clone()
	}
	return cp
}
