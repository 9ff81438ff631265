// Package tree implements the recursive decomposition engine: a concurrent
// state machine over a bounded tree of sub-problems, solved independently
// and synthesized bottom-up.
package tree

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ponderhq/ponder/internal/aggregate"
	"github.com/ponderhq/ponder/internal/decompose"
	"github.com/ponderhq/ponder/internal/deliberate"
	"github.com/ponderhq/ponder/internal/llm"
	"github.com/ponderhq/ponder/internal/persona"
	"github.com/ponderhq/ponder/pkg/models"
)

// defaultMaxDepth bounds recursion when the caller supplies no budget.
const defaultMaxDepth = 3

// Observer receives immutable tree snapshots after every node transition.
type Observer func(models.TreeState)

// Options tunes an Engine.
type Options struct {
	// MaxDepth is the recursion budget. Defaults to 3.
	MaxDepth int
	// Model overrides the invoker's default model for every request the
	// engine issues.
	Model string
	// Observer receives tree snapshots; nil suppresses publication.
	Observer Observer
	// CritiqueBatchSize and CritiqueCooldown tune the leaf pipelines'
	// degraded-mode retry behavior.
	CritiqueBatchSize int
	CritiqueCooldown  time.Duration
}

// Result is the outcome of one tree session.
type Result struct {
	// Solution is the root node's solution text.
	Solution string
	// FinalPrompt is the formatted final-generation prompt built from the
	// solution.
	FinalPrompt string
	// State is the terminal tree snapshot.
	State *models.TreeState
}

// Engine drives one decomposition tree per Run call. A single Engine value
// may be reused across sessions; each Run owns its own tree state.
type Engine struct {
	invoker    llm.Invoker
	prompts    *persona.Prompts
	analyzer   *decompose.Analyzer
	aggregator *aggregate.Aggregator

	maxDepth  int
	model     string
	observer  Observer
	batchSize int
	cooldown  time.Duration
}

// New creates an Engine using the given completion invoker and persona
// prompt set.
func New(invoker llm.Invoker, prompts *persona.Prompts, opts Options) *Engine {
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = defaultMaxDepth
	}
	return &Engine{
		invoker:    invoker,
		prompts:    prompts,
		analyzer:   decompose.New(invoker, prompts, opts.Model),
		aggregator: aggregate.New(invoker, prompts, opts.Model),
		maxDepth:   maxDepth,
		model:      opts.Model,
		observer:   opts.Observer,
		batchSize:  opts.CritiqueBatchSize,
		cooldown:   opts.CritiqueCooldown,
	}
}

// Run decomposes and solves the query, returning the root solution. On any
// failure that leaves the root without a solution, the tree is marked failed
// and an error is returned; the caller is expected to degrade to the bare
// query.
func (e *Engine) Run(ctx context.Context, query string) (*Result, error) {
	root := &models.Node{
		ID:        uuid.New().String(),
		Depth:     0,
		Query:     query,
		Title:     "root",
		Status:    models.NodeStatusPending,
		CreatedAt: time.Now(),
	}

	s := &session{
		Engine: e,
		state:  models.NewTreeState(root, e.maxDepth),
	}
	s.publish()

	err := s.process(ctx, root.ID, true)

	s.mu.Lock()
	rootNode := s.state.Node(root.ID)
	solved := err == nil && rootNode != nil && rootNode.Status == models.NodeStatusComplete && rootNode.Result != nil
	s.mu.Unlock()

	if !solved {
		s.setTreeStatus(models.TreeStatusFailed, "")
		s.publish()
		if err == nil {
			err = fmt.Errorf("root node did not complete")
		}
		return nil, fmt.Errorf("tree session: %w", err)
	}

	solution := rootNode.Result.SolutionText()
	s.setTreeStatus(models.TreeStatusComplete, solution)
	s.publish()

	return &Result{
		Solution:    solution,
		FinalPrompt: e.finalPrompt(query, rootNode.Result),
		State:       s.snapshot(),
	}, nil
}

// finalPrompt formats the final-generation prompt from the root result. A
// leaf root already carries a finalized prompt in its trace; an aggregated
// root feeds its combined solution through the persona's final template as
// the blueprint.
func (e *Engine) finalPrompt(query string, res *models.NodeResult) string {
	if res.Kind == models.ResultLeaf && res.Trace != nil && res.Trace.FinalPrompt != "" {
		return res.Trace.FinalPrompt
	}
	return e.prompts.Final(query, &models.Blueprint{
		Blueprint: res.SolutionText(),
		Objective: "Answer the query using the combined sub-problem analysis.",
	})
}

// session is the mutable state of one Run. All tree mutation goes through
// its mutex; observers only ever see deep clones.
type session struct {
	*Engine

	mu    sync.Mutex
	state *models.TreeState
}

// process drives one node through the state machine. The returned error is
// informational for the root caller: by the time process returns, the node
// itself has already been transitioned to a terminal status, so parents can
// join on children without inspecting errors.
func (s *session) process(ctx context.Context, nodeID string, force bool) error {
	node := s.nodeCopy(nodeID)
	s.setStatus(nodeID, models.NodeStatusDecomposing, "")
	s.publish()

	decision, err := s.decide(ctx, node, force)
	if err != nil {
		s.fail(nodeID, err)
		return err
	}

	admitted := node.Depth < s.maxDepth-1 && decision.ShouldDecompose && len(decision.SubProblems) >= 2
	if !admitted {
		debugLog("node %s executing as leaf at depth %d: %s", nodeID, node.Depth, decision.Reasoning)
		return s.executeLeaf(ctx, nodeID, node.Query)
	}
	debugLog("node %s splitting into %d sub-problems at depth %d", nodeID, len(decision.SubProblems), node.Depth)
	return s.executeBranch(ctx, nodeID, node, decision.SubProblems)
}

// decide runs the decomposition analyzer, skipping the request entirely when
// the depth ceiling already rules decomposition out. The ceiling is one less
// than the budget so a leaf phase always fits below a split.
func (s *session) decide(ctx context.Context, node models.Node, force bool) (*decompose.Decision, error) {
	if node.Depth >= s.maxDepth-1 {
		return &decompose.Decision{
			ShouldDecompose: false,
			Reasoning:       fmt.Sprintf("depth ceiling reached (%d of %d)", node.Depth, s.maxDepth),
		}, nil
	}
	return s.analyzer.Decide(ctx, node.Query, node.Depth, s.maxDepth, force)
}

// executeLeaf delegates the node's query, unmodified, to the deliberation
// pipeline. The sub-pipeline's own phase snapshots are suppressed; the tree
// observer sees only node-level transitions. Any pipeline error converts
// this node, and only this node, to failed.
func (s *session) executeLeaf(ctx context.Context, nodeID, query string) error {
	s.setStatus(nodeID, models.NodeStatusExecuting, "")
	s.publish()

	pipeline := deliberate.New(s.invoker, s.prompts, deliberate.Options{
		Model:         s.model,
		CapStrategies: true,
		BatchSize:     s.batchSize,
		Cooldown:      s.cooldown,
	})
	res, err := pipeline.Run(ctx, query, "")
	if err != nil {
		s.fail(nodeID, err)
		return err
	}

	s.setResult(nodeID, &models.NodeResult{
		Kind:      models.ResultLeaf,
		Blueprint: res.Blueprint,
		Trace:     res.Trace,
	})
	return nil
}

// executeBranch materializes one child per sub-problem, solves all children
// concurrently, joins, and aggregates their solutions. Failed children do
// not abort their siblings; they contribute an explicit failure marker to
// the aggregation input.
func (s *session) executeBranch(ctx context.Context, nodeID string, node models.Node, subProblems []models.SubProblem) error {
	childIDs := make([]string, len(subProblems))
	s.mu.Lock()
	for i, sp := range subProblems {
		child := &models.Node{
			ID:        uuid.New().String(),
			ParentID:  nodeID,
			Depth:     node.Depth + 1,
			Query:     sp.Query,
			Title:     sp.Title,
			Status:    models.NodeStatusPending,
			CreatedAt: time.Now(),
		}
		s.state.Add(child)
		childIDs[i] = child.ID
	}
	parent := s.state.Node(nodeID)
	parent.Children = append(parent.Children, childIDs...)
	s.mu.Unlock()
	s.publish()

	var wg sync.WaitGroup
	for _, id := range childIDs {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if err := s.process(ctx, id, false); err != nil {
				log.Printf("[tree] sub-problem %s failed, siblings unaffected: %v", id, err)
			}
		}(id)
	}
	wg.Wait()

	s.setStatus(nodeID, models.NodeStatusAggregating, "")
	s.publish()

	children := make([]models.ChildSolution, len(childIDs))
	s.mu.Lock()
	for i, id := range childIDs {
		c := s.state.Node(id)
		children[i] = models.ChildSolution{
			Title:  c.Title,
			Query:  c.Query,
			NodeID: c.ID,
		}
		switch {
		case c.Status == models.NodeStatusComplete && c.Result != nil:
			children[i].Solution = c.Result.SolutionText()
		case c.Status == models.NodeStatusFailed:
			children[i].Solution = fmt.Sprintf("[sub-problem failed: %s]", c.Error)
		}
	}
	s.mu.Unlock()

	agg, err := s.aggregator.Combine(ctx, node.Query, children)
	if err != nil {
		s.fail(nodeID, err)
		return err
	}

	contributions := make([]models.ChildContribution, len(agg.ChildContributions))
	for i, note := range agg.ChildContributions {
		contributions[i] = models.ChildContribution{Summary: note}
		if i < len(childIDs) {
			contributions[i].NodeID = childIDs[i]
		}
	}
	s.setResult(nodeID, &models.NodeResult{
		Kind:          models.ResultAggregated,
		Solution:      agg.AggregatedSolution,
		Contributions: contributions,
	})
	return nil
}

// nodeCopy returns a value copy of the node for lock-free reads of its
// immutable identity fields.
func (s *session) nodeCopy(id string) models.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.state.Node(id)
}

func (s *session) setStatus(id string, status models.NodeStatus, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.state.Node(id)
	n.Status = status
	if errMsg != "" {
		n.Error = errMsg
	}
	if status.Terminal() {
		now := time.Now()
		n.CompletedAt = &now
	}
}

func (s *session) fail(id string, err error) {
	s.setStatus(id, models.NodeStatusFailed, err.Error())
	s.publish()
}

func (s *session) setResult(id string, res *models.NodeResult) {
	s.mu.Lock()
	n := s.state.Node(id)
	n.Result = res
	n.Status = models.NodeStatusComplete
	now := time.Now()
	n.CompletedAt = &now
	s.mu.Unlock()
	s.publish()
}

func (s *session) setTreeStatus(status models.TreeStatus, finalResult string) {
	s.mu.Lock()
	s.state.Status = status
	s.state.FinalResult = finalResult
	s.mu.Unlock()
}

// snapshot deep-clones the current tree state.
func (s *session) snapshot() *models.TreeState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// publish hands an immutable snapshot to the observer, if any.
func (s *session) publish() {
	if s.observer == nil {
		return
	}
	s.observer(*s.snapshot())
}
