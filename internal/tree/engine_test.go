package tree

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/ponderhq/ponder/internal/llm"
	"github.com/ponderhq/ponder/internal/persona"
	"github.com/ponderhq/ponder/pkg/models"
)

// fakeInvoker routes scripted responses by component, with optional
// per-query overrides keyed on prompt substrings.
type fakeInvoker struct {
	mu      sync.Mutex
	calls   []llm.Request
	respond func(req llm.Request) (llm.Response, error)
}

func (f *fakeInvoker) Invoke(_ context.Context, req llm.Request) (llm.Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	return f.respond(req)
}

func (f *fakeInvoker) countComponent(component string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Component == component {
			n++
		}
	}
	return n
}

const (
	leafStrategies = `[{"title":"S1","approach":"a","core_assumption":"c"}]`
	leafCritique   = `{"strengths":["ok"],"valid_when":[],"invalid_when":[],"critical_flaws":[]}`
	leafBlueprint  = `{"blueprint":"leaf plan","objective":"o","tone":"t","safeguards":[]}`
	noSplit        = `{"should_decompose":false,"reasoning":"atomic","sub_problems":[]}`
	aggResponse    = `{"aggregated_solution":"combined answer","child_contributions":["a","b","c"]}`
)

// leafRespond answers every pipeline component so any node can complete as
// a leaf.
func leafRespond(req llm.Request) (llm.Response, error) {
	switch req.Component {
	case "decomposition":
		return llm.Response{Text: noSplit}, nil
	case "divergence":
		return llm.Response{Text: leafStrategies}, nil
	case "critique":
		return llm.Response{Text: leafCritique}, nil
	case "synthesis":
		return llm.Response{Text: leafBlueprint}, nil
	case "aggregation":
		return llm.Response{Text: aggResponse}, nil
	}
	return llm.Response{}, fmt.Errorf("unexpected component %q", req.Component)
}

func splitInto(queries ...string) string {
	var subs []string
	for _, q := range queries {
		subs = append(subs, fmt.Sprintf(`{"title":"%s","query":"%s"}`, q, q))
	}
	return fmt.Sprintf(`{"should_decompose":true,"reasoning":"splits","sub_problems":[%s]}`, strings.Join(subs, ","))
}

func TestRun_DepthBudgetOne_LeafWithoutDecompositionRequest(t *testing.T) {
	inv := &fakeInvoker{respond: leafRespond}
	e := New(inv, persona.Builtin(), Options{MaxDepth: 1})

	res, err := e.Run(context.Background(), "small question")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if n := inv.countComponent("decomposition"); n != 0 {
		t.Errorf("decomposition requests = %d, want 0 at depth budget 1", n)
	}

	root := res.State.Root()
	if root.Status != models.NodeStatusComplete {
		t.Errorf("root status = %q, want complete", root.Status)
	}
	if root.Result == nil || root.Result.Kind != models.ResultLeaf {
		t.Fatalf("root result = %+v, want leaf", root.Result)
	}
	if res.Solution != "leaf plan" {
		t.Errorf("Solution = %q, want the leaf blueprint", res.Solution)
	}
	if res.FinalPrompt == "" {
		t.Error("FinalPrompt should be the pipeline's finalized prompt")
	}
}

func TestRun_ThreeWaySplit(t *testing.T) {
	inv := &fakeInvoker{}
	inv.respond = func(req llm.Request) (llm.Response, error) {
		if req.Component == "decomposition" && strings.Contains(req.Prompt, "big question") {
			return llm.Response{Text: splitInto("part one", "part two", "part three")}, nil
		}
		return leafRespond(req)
	}

	var mu sync.Mutex
	var snaps []models.TreeState
	e := New(inv, persona.Builtin(), Options{
		MaxDepth: 3,
		Observer: func(s models.TreeState) {
			mu.Lock()
			snaps = append(snaps, s)
			mu.Unlock()
		},
	})

	res, err := e.Run(context.Background(), "big question")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	root := res.State.Root()
	if len(root.Children) != 3 {
		t.Fatalf("root has %d children, want 3", len(root.Children))
	}
	for _, id := range root.Children {
		c := res.State.Node(id)
		if c.Depth != root.Depth+1 {
			t.Errorf("child depth = %d, want %d", c.Depth, root.Depth+1)
		}
		if c.ParentID != root.ID {
			t.Errorf("child parent = %q, want root", c.ParentID)
		}
		if c.Status != models.NodeStatusComplete {
			t.Errorf("child %s status = %q, want complete", c.ID, c.Status)
		}
		if c.Result == nil || c.Result.Kind != models.ResultLeaf {
			t.Errorf("child %s should have completed as a leaf", c.ID)
		}
	}

	if root.Result == nil || root.Result.Kind != models.ResultAggregated {
		t.Fatalf("root result = %+v, want aggregated", root.Result)
	}
	if res.Solution != "combined answer" {
		t.Errorf("Solution = %q, want the aggregated solution", res.Solution)
	}
	if res.State.Status != models.TreeStatusComplete {
		t.Errorf("tree status = %q, want complete", res.State.Status)
	}
	if res.State.FinalResult != "combined answer" {
		t.Errorf("FinalResult = %q", res.State.FinalResult)
	}

	// The parent must never be observed aggregating while a child is still
	// non-terminal.
	mu.Lock()
	defer mu.Unlock()
	for _, snap := range snaps {
		r := snap.Root()
		if r == nil || r.Status != models.NodeStatusAggregating {
			continue
		}
		for _, id := range r.Children {
			if c := snap.Node(id); c != nil && !c.Status.Terminal() {
				t.Errorf("parent aggregating while child %s is %q", id, c.Status)
			}
		}
	}
}

func TestRun_ChildFailureIsIsolated(t *testing.T) {
	inv := &fakeInvoker{}
	inv.respond = func(req llm.Request) (llm.Response, error) {
		switch {
		case req.Component == "decomposition" && strings.Contains(req.Prompt, "big question"):
			return llm.Response{Text: splitInto("good child", "bad child")}, nil
		case req.Component == "divergence" && strings.Contains(req.Prompt, "bad child"):
			return llm.Response{}, errors.New("backend exploded")
		}
		return leafRespond(req)
	}

	e := New(inv, persona.Builtin(), Options{MaxDepth: 3})

	res, err := e.Run(context.Background(), "big question")
	if err != nil {
		t.Fatalf("child failure must not fail the session: %v", err)
	}

	root := res.State.Root()
	var goodStatus, badStatus models.NodeStatus
	var badError string
	for _, id := range root.Children {
		c := res.State.Node(id)
		if c.Query == "good child" {
			goodStatus = c.Status
		} else {
			badStatus = c.Status
			badError = c.Error
		}
	}

	if goodStatus != models.NodeStatusComplete {
		t.Errorf("sibling status = %q, want complete", goodStatus)
	}
	if badStatus != models.NodeStatusFailed {
		t.Errorf("failed child status = %q, want failed", badStatus)
	}
	if !strings.Contains(badError, "backend exploded") {
		t.Errorf("failed child error = %q", badError)
	}

	if root.Status != models.NodeStatusComplete {
		t.Errorf("root status = %q, want complete despite one failed child", root.Status)
	}

	// The failed child contributes an explicit marker to aggregation.
	found := false
	inv.mu.Lock()
	for _, c := range inv.calls {
		if c.Component == "aggregation" && strings.Contains(c.Prompt, "[sub-problem failed:") {
			found = true
		}
	}
	inv.mu.Unlock()
	if !found {
		t.Error("aggregation prompt should carry the failure marker for the failed child")
	}
}

func TestRun_RootFailure_MarksTreeFailed(t *testing.T) {
	inv := &fakeInvoker{}
	inv.respond = func(req llm.Request) (llm.Response, error) {
		if req.Component == "divergence" {
			return llm.Response{}, errors.New("total outage")
		}
		return leafRespond(req)
	}

	var mu sync.Mutex
	var last models.TreeState
	e := New(inv, persona.Builtin(), Options{
		MaxDepth: 1,
		Observer: func(s models.TreeState) {
			mu.Lock()
			last = s
			mu.Unlock()
		},
	})

	_, err := e.Run(context.Background(), "q")
	if err == nil {
		t.Fatal("root failure should surface an error for the caller's fallback")
	}

	mu.Lock()
	defer mu.Unlock()
	if last.Status != models.TreeStatusFailed {
		t.Errorf("tree status = %q, want failed", last.Status)
	}
	if root := last.Root(); root == nil || root.Status != models.NodeStatusFailed {
		t.Error("root node should be failed in the terminal snapshot")
	}
}

func TestRun_NestedSplitRespectsCeiling(t *testing.T) {
	// Decomposition always wants to split; the ceiling must stop it one
	// level short of the budget so every path ends in a leaf phase.
	inv := &fakeInvoker{}
	inv.respond = func(req llm.Request) (llm.Response, error) {
		if req.Component == "decomposition" {
			return llm.Response{Text: splitInto("left", "right")}, nil
		}
		return leafRespond(req)
	}

	e := New(inv, persona.Builtin(), Options{MaxDepth: 3})

	res, err := e.Run(context.Background(), "deep question")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	maxSeen := 0
	for _, id := range res.State.Order {
		n := res.State.Node(id)
		if n.Depth > maxSeen {
			maxSeen = n.Depth
		}
		if n.ParentID != "" {
			parent := res.State.Node(n.ParentID)
			if n.Depth != parent.Depth+1 {
				t.Errorf("node %s depth = %d, parent depth = %d", id, n.Depth, parent.Depth)
			}
		}
		if !n.Status.Terminal() {
			t.Errorf("node %s left non-terminal: %q", id, n.Status)
		}
		// A node either aggregated children or ran as a leaf, never both.
		if n.Result != nil {
			if n.Result.Kind == models.ResultLeaf && len(n.Children) > 0 {
				t.Errorf("leaf node %s has children", id)
			}
			if n.Result.Kind == models.ResultAggregated && len(n.Children) < 2 {
				t.Errorf("aggregated node %s has %d children", id, len(n.Children))
			}
		}
	}

	// Depth 0 splits, depth 1 splits, depth 2 is at the ceiling.
	if maxSeen != 2 {
		t.Errorf("max depth reached = %d, want 2 under budget 3", maxSeen)
	}
	if root := res.State.Root(); root.Result.Kind != models.ResultAggregated {
		t.Error("root should have aggregated")
	}
}
