package deliberate

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ponderhq/ponder/internal/jsonx"
	"github.com/ponderhq/ponder/internal/llm"
	"github.com/ponderhq/ponder/internal/persona"
	"github.com/ponderhq/ponder/pkg/models"
)

const (
	// defaultBatchSize is the critique concurrency used in degraded mode.
	defaultBatchSize = 3
	// defaultCooldown is the pause between degraded-mode critique batches.
	defaultCooldown = 1500 * time.Millisecond
	// treeStrategyCap bounds critique fan-out when the pipeline runs
	// beneath a decomposition tree.
	treeStrategyCap = 3
)

// Pipeline runs the diverge-critique-synthesize-finalize protocol for one
// query at a time. Malformed model output never fails the pipeline: every
// parse site substitutes a documented fallback. Only transport errors
// propagate, and critique-phase rate limits degrade to sequential batches
// instead of failing.
type Pipeline struct {
	invoker  llm.Invoker
	prompts  *persona.Prompts
	observer Observer

	model         string
	capStrategies bool
	batchSize     int
	cooldown      time.Duration
}

// Options tunes a Pipeline.
type Options struct {
	// Observer receives state snapshots; nil suppresses publication.
	Observer Observer
	// Model overrides the invoker's default model for all phases.
	Model string
	// CapStrategies bounds the strategy count to 3 before critique. Set
	// when the pipeline runs as a leaf beneath a decomposition tree.
	CapStrategies bool
	// BatchSize is the degraded-mode critique concurrency. Defaults to 3.
	BatchSize int
	// Cooldown is the pause between degraded-mode batches. Defaults to
	// 1.5s.
	Cooldown time.Duration
}

// New creates a Pipeline using the given completion invoker and persona
// prompt set.
func New(invoker llm.Invoker, prompts *persona.Prompts, opts Options) *Pipeline {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	cooldown := opts.Cooldown
	if cooldown <= 0 {
		cooldown = defaultCooldown
	}
	return &Pipeline{
		invoker:       invoker,
		prompts:       prompts,
		observer:      opts.Observer,
		model:         opts.Model,
		capStrategies: opts.CapStrategies,
		batchSize:     batchSize,
		cooldown:      cooldown,
	}
}

// Run executes all four phases for the query. historyContext is an optional
// pre-digested summary of prior conversation turns, threaded into the
// divergence prompt only.
func (p *Pipeline) Run(ctx context.Context, query, historyContext string) (*Result, error) {
	r := &run{Pipeline: p, states: make(map[string]StrategyState)}

	if err := r.diverge(ctx, query, historyContext); err != nil {
		return nil, err
	}
	if err := r.critiqueAll(ctx, query); err != nil {
		return nil, err
	}
	if err := r.synthesize(ctx, query); err != nil {
		return nil, err
	}
	r.finalize(query)

	return &Result{
		FinalPrompt: r.finalPrompt,
		Blueprint:   r.blueprint,
		Trace: &models.DeliberationTrace{
			Strategies:  r.strategies,
			Blueprint:   r.blueprint,
			FinalPrompt: r.finalPrompt,
			Fallbacks:   r.fallbacks,
			Requests:    r.requests,
		},
	}, nil
}

// run holds the mutable state of one pipeline execution, so a Pipeline can
// be reused across queries.
type run struct {
	*Pipeline

	mu          sync.Mutex
	strategies  []models.Strategy
	states      map[string]StrategyState
	blueprint   *models.Blueprint
	finalPrompt string
	requests    int
	fallbacks   []string
}

// strategyJSON is the divergence response shape for a single strategy.
type strategyJSON struct {
	Title          string `json:"title"`
	Approach       string `json:"approach"`
	CoreAssumption string `json:"core_assumption"`
}

// diverge issues one completion request for 3-10 strategies. A parse failure
// or empty list substitutes a single direct-execution strategy; this phase
// never fails on malformed output.
func (r *run) diverge(ctx context.Context, query, historyContext string) error {
	resp, err := r.invoke(ctx, "divergence", r.prompts.Divergence(query, historyContext))
	if err != nil {
		return fmt.Errorf("divergence: %w", err)
	}

	parsed, usedFallback := jsonx.ArrayOr[strategyJSON](resp.Text, nil)
	if usedFallback || len(parsed) == 0 {
		r.recordFallback("divergence")
		r.setStrategies([]models.Strategy{fallbackStrategy()})
	} else {
		strategies := make([]models.Strategy, len(parsed))
		for i, s := range parsed {
			strategies[i] = models.Strategy{
				ID:             uuid.New().String(),
				Title:          s.Title,
				Approach:       s.Approach,
				CoreAssumption: s.CoreAssumption,
			}
		}
		r.setStrategies(strategies)
	}

	r.publish(PhaseDivergence)
	return nil
}

// fallbackStrategy is substituted when divergence yields nothing usable.
func fallbackStrategy() models.Strategy {
	return models.Strategy{
		ID:             uuid.New().String(),
		Title:          "Direct execution",
		Approach:       "Answer the query directly, without strategic branching.",
		CoreAssumption: "The query is answerable as asked.",
	}
}

// critiqueAll critiques every strategy concurrently. A detected rate-limit
// signal degrades to sequential batches with a cooldown; any other transport
// error is re-raised. Individual parse failures attach an empty critique.
func (r *run) critiqueAll(ctx context.Context, query string) error {
	r.mu.Lock()
	if r.capStrategies && len(r.strategies) > treeStrategyCap {
		capped := make([]models.Strategy, treeStrategyCap)
		copy(capped, r.strategies[:treeStrategyCap])
		r.strategies = capped
	}
	for _, s := range r.strategies {
		r.states[s.ID] = StrategyPending
	}
	n := len(r.strategies)
	r.mu.Unlock()

	// First attempt: full parallel fan-out.
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = r.critiqueOne(ctx, query, i)
		}(i)
	}
	wg.Wait()

	var failed []int
	rateLimited := false
	for i, err := range errs {
		if err == nil {
			continue
		}
		if !llm.IsRateLimit(err) {
			return fmt.Errorf("critique strategy %d: %w", i, err)
		}
		rateLimited = true
		failed = append(failed, i)
	}

	if rateLimited {
		log.Printf("[deliberate] critique rate limited, retrying %d strategies in batches of %d", len(failed), r.batchSize)
		if err := r.critiqueBatched(ctx, query, failed); err != nil {
			return err
		}
	}

	r.publish(PhaseCritique)
	return nil
}

// critiqueBatched retries the given strategies in sequential batches,
// pausing between batches to let the rate limit clear. Strategies that still
// fail keep an empty critique rather than failing the pipeline.
func (r *run) critiqueBatched(ctx context.Context, query string, indices []int) error {
	for start := 0; start < len(indices); start += r.batchSize {
		if start > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(r.cooldown):
			}
		}

		end := start + r.batchSize
		if end > len(indices) {
			end = len(indices)
		}
		batch := indices[start:end]

		var wg sync.WaitGroup
		for _, i := range batch {
			r.setState(i, StrategyPending)
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				if err := r.critiqueOne(ctx, query, i); err != nil {
					log.Printf("[deliberate] critique retry failed for strategy %d, keeping empty critique: %v", i, err)
					r.attachCritique(i, &models.Critique{}, true)
				}
			}(i)
		}
		wg.Wait()
	}
	return nil
}

// critiqueOne issues one critique request for the strategy at index i and
// attaches the parsed critique. Parse failures attach an empty critique and
// return nil; only transport errors are returned.
func (r *run) critiqueOne(ctx context.Context, query string, i int) error {
	r.mu.Lock()
	strategy := r.strategies[i]
	r.mu.Unlock()

	r.setState(i, StrategyRunning)
	r.publish(PhaseCritique)

	resp, err := r.invoke(ctx, "critique", r.prompts.Critique(query, strategy))
	if err != nil {
		return err
	}

	critique, usedFallback := jsonx.ObjectOr(resp.Text, models.Critique{})
	r.attachCritique(i, &critique, usedFallback)
	return nil
}

// attachCritique merges a critique onto the strategy at index i, marks it
// complete, and publishes a snapshot.
func (r *run) attachCritique(i int, critique *models.Critique, usedFallback bool) {
	r.mu.Lock()
	r.strategies[i].Critique = critique
	r.states[r.strategies[i].ID] = StrategyComplete
	if usedFallback {
		r.fallbacks = append(r.fallbacks, fmt.Sprintf("critique:%d", i))
	}
	r.mu.Unlock()
	r.publish(PhaseCritique)
}

// blueprintJSON is the synthesis response shape.
type blueprintJSON struct {
	Blueprint  string   `json:"blueprint"`
	Objective  string   `json:"objective"`
	Tone       string   `json:"tone"`
	Safeguards []string `json:"safeguards"`
}

// synthesize issues one completion request combining all critiqued
// strategies into a blueprint. Parse failure substitutes a minimal standard
// blueprint; this phase never fails on malformed output.
func (r *run) synthesize(ctx context.Context, query string) error {
	r.mu.Lock()
	strategies := make([]models.Strategy, len(r.strategies))
	copy(strategies, r.strategies)
	r.mu.Unlock()

	resp, err := r.invoke(ctx, "synthesis", r.prompts.Synthesis(query, strategies))
	if err != nil {
		return fmt.Errorf("synthesis: %w", err)
	}

	parsed, usedFallback := jsonx.ObjectOr(resp.Text, blueprintJSON{})
	if usedFallback || parsed.Blueprint == "" {
		r.recordFallback("synthesis")
		r.setBlueprint(fallbackBlueprint())
	} else {
		r.setBlueprint(&models.Blueprint{
			Blueprint:  parsed.Blueprint,
			Objective:  parsed.Objective,
			Tone:       parsed.Tone,
			Safeguards: parsed.Safeguards,
		})
	}

	r.publish(PhaseSynthesis)
	return nil
}

// fallbackBlueprint is substituted when synthesis yields nothing usable.
func fallbackBlueprint() *models.Blueprint {
	return &models.Blueprint{
		Blueprint: "Give a clear, well-organized standard response to the query.",
		Objective: "Answer the query accurately.",
		Tone:      "neutral",
	}
}

// finalize formats the final-generation prompt. No completion request is
// issued here; the persona's final template is a pure function.
func (r *run) finalize(query string) {
	r.mu.Lock()
	r.finalPrompt = r.prompts.Final(query, r.blueprint)
	r.mu.Unlock()
	r.publish(PhaseFinalization)
}

// invoke issues one completion request and counts it.
func (r *run) invoke(ctx context.Context, component, prompt string) (llm.Response, error) {
	r.mu.Lock()
	r.requests++
	r.mu.Unlock()

	return r.invoker.Invoke(ctx, llm.Request{
		Component:  component,
		Model:      r.model,
		Prompt:     prompt,
		Structured: true,
	})
}

func (r *run) setStrategies(strategies []models.Strategy) {
	r.mu.Lock()
	r.strategies = strategies
	r.mu.Unlock()
}

func (r *run) setBlueprint(bp *models.Blueprint) {
	r.mu.Lock()
	r.blueprint = bp
	r.mu.Unlock()
}

func (r *run) setState(i int, s StrategyState) {
	r.mu.Lock()
	r.states[r.strategies[i].ID] = s
	r.mu.Unlock()
}

func (r *run) recordFallback(site string) {
	r.mu.Lock()
	r.fallbacks = append(r.fallbacks, site)
	r.mu.Unlock()
}

// publish hands an immutable snapshot to the observer, if any.
func (r *run) publish(phase Phase) {
	if r.observer == nil {
		return
	}

	r.mu.Lock()
	snap := State{
		Phase:          phase,
		Strategies:     make([]models.Strategy, len(r.strategies)),
		StrategyStates: make(map[string]StrategyState, len(r.states)),
		FinalPrompt:    r.finalPrompt,
	}
	for i, s := range r.strategies {
		snap.Strategies[i] = s
		if s.Critique != nil {
			c := *s.Critique
			snap.Strategies[i].Critique = &c
		}
	}
	for id, st := range r.states {
		snap.StrategyStates[id] = st
	}
	if r.blueprint != nil {
		bp := *r.blueprint
		snap.Blueprint = &bp
	}
	r.mu.Unlock()

	r.observer(snap)
}
