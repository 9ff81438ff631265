package models

import (
	"testing"
	"time"
)

func TestNodeStatus_Valid(t *testing.T) {
	valid := []NodeStatus{
		NodeStatusPending, NodeStatusDecomposing, NodeStatusExecuting,
		NodeStatusAggregating, NodeStatusComplete, NodeStatusFailed,
	}
	for _, s := range valid {
		if !s.Valid() {
			t.Errorf("status %q should be valid", s)
		}
	}
	if NodeStatus("bogus").Valid() {
		t.Error("unknown status should not be valid")
	}
}

func TestNodeStatus_Terminal(t *testing.T) {
	if !NodeStatusComplete.Terminal() {
		t.Error("complete should be terminal")
	}
	if !NodeStatusFailed.Terminal() {
		t.Error("failed should be terminal")
	}
	for _, s := range []NodeStatus{NodeStatusPending, NodeStatusDecomposing, NodeStatusExecuting, NodeStatusAggregating} {
		if s.Terminal() {
			t.Errorf("status %q should not be terminal", s)
		}
	}
}

func TestNodeResult_SolutionText(t *testing.T) {
	var nilResult *NodeResult
	if got := nilResult.SolutionText(); got != "" {
		t.Errorf("nil result SolutionText = %q, want empty", got)
	}

	leaf := &NodeResult{
		Kind:      ResultLeaf,
		Blueprint: &Blueprint{Blueprint: "answer plan"},
	}
	if got := leaf.SolutionText(); got != "answer plan" {
		t.Errorf("leaf SolutionText = %q, want %q", got, "answer plan")
	}

	agg := &NodeResult{Kind: ResultAggregated, Solution: "combined"}
	if got := agg.SolutionText(); got != "combined" {
		t.Errorf("aggregated SolutionText = %q, want %q", got, "combined")
	}

	empty := &NodeResult{Kind: ResultLeaf}
	if got := empty.SolutionText(); got != "" {
		t.Errorf("leaf without blueprint SolutionText = %q, want empty", got)
	}
}

func TestNode_IsLeaf(t *testing.T) {
	n := &Node{ID: "a"}
	if !n.IsLeaf() {
		t.Error("node without children should be a leaf")
	}
	n.Children = []string{"b", "c"}
	if n.IsLeaf() {
		t.Error("node with children should not be a leaf")
	}
}

func TestNode_Clone_Independence(t *testing.T) {
	done := time.Now()
	n := &Node{
		ID:       "a",
		Depth:    1,
		Query:    "q",
		Status:   NodeStatusComplete,
		Children: []string{"b"},
		Result: &NodeResult{
			Kind:      ResultLeaf,
			Blueprint: &Blueprint{Blueprint: "plan", Safeguards: []string{"sg"}},
			Trace:     &DeliberationTrace{Requests: 3},
		},
		CompletedAt: &done,
	}

	cp := n.Clone()
	cp.Children[0] = "x"
	cp.Result.Blueprint.Blueprint = "mutated"
	cp.Result.Blueprint.Safeguards[0] = "mutated"
	*cp.CompletedAt = done.Add(time.Hour)

	if n.Children[0] != "b" {
		t.Error("clone shares Children slice with original")
	}
	if n.Result.Blueprint.Blueprint != "plan" {
		t.Error("clone shares Blueprint with original")
	}
	if n.Result.Blueprint.Safeguards[0] != "sg" {
		t.Error("clone shares Safeguards slice with original")
	}
	if !n.CompletedAt.Equal(done) {
		t.Error("clone shares CompletedAt with original")
	}
}

func TestDeliberationTrace_Clone(t *testing.T) {
	tr := &DeliberationTrace{
		Strategies: []Strategy{
			{ID: "s1", Title: "one", Critique: &Critique{Strengths: []string{"fast"}}},
		},
		Blueprint: &Blueprint{Blueprint: "plan"},
		Fallbacks: []string{"divergence"},
		Requests:  2,
	}

	cp := tr.Clone()
	cp.Strategies[0].Critique.Strengths = []string{"mutated"}
	cp.Strategies[0].Title = "mutated"
	cp.Blueprint.Blueprint = "mutated"
	cp.Fallbacks[0] = "mutated"

	if tr.Strategies[0].Title != "one" {
		t.Error("clone shares Strategies with original")
	}
	if tr.Strategies[0].Critique.Strengths[0] != "fast" {
		t.Error("clone shares Critique with original")
	}
	if tr.Blueprint.Blueprint != "plan" {
		t.Error("clone shares Blueprint with original")
	}
	if tr.Fallbacks[0] != "divergence" {
		t.Error("clone shares Fallbacks with original")
	}
}
