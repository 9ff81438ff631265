// Package models defines the shared data types for Ponder's reasoning engine:
// nodes in the reasoning tree, tree-level state, and the intermediate
// deliberation artifacts (strategies, critiques, blueprints, sub-problems).
package models

import "time"

// NodeStatus represents the current state of a reasoning node.
type NodeStatus string

const (
	// NodeStatusPending indicates the node has not started processing.
	NodeStatusPending NodeStatus = "pending"
	// NodeStatusDecomposing indicates the node is being analyzed for decomposition.
	NodeStatusDecomposing NodeStatus = "decomposing"
	// NodeStatusExecuting indicates the node is being solved as a leaf.
	NodeStatusExecuting NodeStatus = "executing"
	// NodeStatusAggregating indicates the node is combining its children's solutions.
	NodeStatusAggregating NodeStatus = "aggregating"
	// NodeStatusComplete indicates the node finished successfully.
	NodeStatusComplete NodeStatus = "complete"
	// NodeStatusFailed indicates the node failed with an unrecovered error.
	NodeStatusFailed NodeStatus = "failed"
)

// Valid returns true if the status is a known value.
func (s NodeStatus) Valid() bool {
	switch s {
	case NodeStatusPending, NodeStatusDecomposing, NodeStatusExecuting,
		NodeStatusAggregating, NodeStatusComplete, NodeStatusFailed:
		return true
	default:
		return false
	}
}

// Terminal returns true if the status is a final state.
func (s NodeStatus) Terminal() bool {
	return s == NodeStatusComplete || s == NodeStatusFailed
}

// ResultKind distinguishes how a node's result was produced.
type ResultKind string

const (
	// ResultLeaf marks a result produced by the deliberation pipeline.
	ResultLeaf ResultKind = "leaf"
	// ResultAggregated marks a result combined from child solutions.
	ResultAggregated ResultKind = "aggregated"
)

// ChildContribution records how one child's solution fed into an aggregation.
type ChildContribution struct {
	// NodeID is the contributing child node, when known.
	NodeID string `json:"node_id,omitempty"`
	// Summary is a one-line description of the contribution.
	Summary string `json:"summary"`
}

// NodeResult is the outcome of a completed node. Exactly one of the two
// shapes is populated, selected by Kind: leaf results carry a blueprint and
// trace, aggregated results carry a combined solution and per-child notes.
type NodeResult struct {
	// Kind selects between the leaf and aggregated shapes.
	Kind ResultKind `json:"kind"`
	// Blueprint is the synthesized plan for a leaf node.
	Blueprint *Blueprint `json:"blueprint,omitempty"`
	// Trace is the deliberation trace for a leaf node.
	Trace *DeliberationTrace `json:"trace,omitempty"`
	// Solution is the combined solution for an aggregated node.
	Solution string `json:"solution,omitempty"`
	// Contributions lists per-child contribution notes for an aggregated node.
	Contributions []ChildContribution `json:"contributions,omitempty"`
}

// SolutionText returns the node's solution as a plain string, regardless of
// result kind. Returns "" when no usable solution exists.
func (r *NodeResult) SolutionText() string {
	if r == nil {
		return ""
	}
	switch r.Kind {
	case ResultLeaf:
		if r.Blueprint != nil {
			return r.Blueprint.Blueprint
		}
	case ResultAggregated:
		return r.Solution
	}
	return ""
}

// Clone returns a deep copy of the result.
func (r *NodeResult) Clone() *NodeResult {
	if r == nil {
		return nil
	}
	cp := *r
	if r.Blueprint != nil {
		bp := *r.Blueprint
		bp.Safeguards = append([]string(nil), r.Blueprint.Safeguards...)
		cp.Blueprint = &bp
	}
	if r.Trace != nil {
		cp.Trace = r.Trace.Clone()
	}
	cp.Contributions = append([]ChildContribution(nil), r.Contributions...)
	return &cp
}

// Node represents one unit of work in the reasoning tree.
// ID, ParentID, Depth, and Query are immutable after creation; Status,
// Children, Result, and Error mutate as the node moves through its lifecycle.
type Node struct {
	// ID is the unique identifier for this node.
	ID string `json:"id"`
	// ParentID is the ID of the parent node, empty for the root.
	ParentID string `json:"parent_id,omitempty"`
	// Depth is the distance from the root (root = 0).
	Depth int `json:"depth"`
	// Query is the self-contained question this node answers.
	Query string `json:"query"`
	// Title is a short display label for the node.
	Title string `json:"title,omitempty"`
	// Status is the current lifecycle state.
	Status NodeStatus `json:"status"`
	// Children lists child node IDs in creation order. Empty for leaves.
	Children []string `json:"children,omitempty"`
	// Result holds the outcome; set only when Status is complete.
	Result *NodeResult `json:"result,omitempty"`
	// Error holds the failure message; set only when Status is failed.
	Error string `json:"error,omitempty"`
	// CreatedAt is when the node was created.
	CreatedAt time.Time `json:"created_at"`
	// CompletedAt is when the node reached a terminal status, if it has.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// IsLeaf returns true if the node has no children.
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

// Clone returns a deep copy of the node, safe to hand to observers.
func (n *Node) Clone() *Node {
	cp := *n
	cp.Children = append([]string(nil), n.Children...)
	cp.Result = n.Result.Clone()
	if n.CompletedAt != nil {
		t := *n.CompletedAt
		cp.CompletedAt = &t
	}
	return &cp
}
