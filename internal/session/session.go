// Package session runs one query end to end: engine selection, reasoning,
// and the final completion that produces the text shown to the user.
package session

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ponderhq/ponder/internal/deliberate"
	"github.com/ponderhq/ponder/internal/llm"
	"github.com/ponderhq/ponder/internal/persona"
	"github.com/ponderhq/ponder/internal/selector"
	"github.com/ponderhq/ponder/internal/tree"
	"github.com/ponderhq/ponder/pkg/models"
)

// historyDigestLimit bounds how many prior turns feed the divergence
// context.
const historyDigestLimit = 6

// Turn is one prior exchange in the conversation.
type Turn struct {
	// Query is what the user asked.
	Query string
	// Answer is what was returned.
	Answer string
}

// Options tunes a Runner.
type Options struct {
	// Model is the model id for every reasoning request.
	Model string
	// MaxDepth is the decomposition tree's recursion budget.
	MaxDepth int
	// ForceDeep always selects the tree engine.
	ForceDeep bool
	// CritiqueBatchSize and CritiqueCooldown tune degraded-mode critique
	// retries.
	CritiqueBatchSize int
	CritiqueCooldown  time.Duration
	// PipelineObserver receives deliberation snapshots for pipeline runs.
	PipelineObserver deliberate.Observer
	// TreeObserver receives tree snapshots for tree runs.
	TreeObserver tree.Observer
}

// Outcome is the result of one session.
type Outcome struct {
	// Answer is the final generated text.
	Answer string
	// Engine is the engine that produced the reasoning.
	Engine selector.Engine
	// Degraded reports that reasoning failed and the bare query was sent
	// instead of an engineered prompt.
	Degraded bool
	// TreeState is the terminal tree snapshot for tree runs, nil otherwise.
	TreeState *models.TreeState
	// Trace is the deliberation trace for pipeline runs, nil otherwise.
	Trace *models.DeliberationTrace
}

// Runner executes sessions against one persona.
type Runner struct {
	invoker llm.Invoker
	prompts *persona.Prompts
	opts    Options
}

// NewRunner creates a Runner using the given completion invoker and persona
// prompt set.
func NewRunner(invoker llm.Invoker, prompts *persona.Prompts, opts Options) *Runner {
	return &Runner{invoker: invoker, prompts: prompts, opts: opts}
}

// Run answers the query. Reasoning failures never fail the session: the
// prompt degrades to the bare query and only a failed final completion is
// returned as an error.
func (r *Runner) Run(ctx context.Context, query string, history []Turn) (*Outcome, error) {
	sel := selector.New(r.invoker, r.opts.Model)
	engine := sel.Select(ctx, query, r.opts.ForceDeep, r.prompts.DomainHint)

	out := &Outcome{Engine: engine}
	prompt := query

	switch engine {
	case selector.EngineTree:
		res, err := tree.New(r.invoker, r.prompts, tree.Options{
			MaxDepth:          r.opts.MaxDepth,
			Model:             r.opts.Model,
			Observer:          r.opts.TreeObserver,
			CritiqueBatchSize: r.opts.CritiqueBatchSize,
			CritiqueCooldown:  r.opts.CritiqueCooldown,
		}).Run(ctx, query)
		if err != nil {
			log.Printf("[session] tree engine failed, degrading to bare query: %v", err)
			out.Degraded = true
		} else {
			prompt = res.FinalPrompt
			out.TreeState = res.State
		}

	case selector.EnginePipeline:
		res, err := deliberate.New(r.invoker, r.prompts, deliberate.Options{
			Model:     r.opts.Model,
			Observer:  r.opts.PipelineObserver,
			BatchSize: r.opts.CritiqueBatchSize,
			Cooldown:  r.opts.CritiqueCooldown,
		}).Run(ctx, query, digestHistory(history))
		if err != nil {
			log.Printf("[session] deliberation failed, degrading to bare query: %v", err)
			out.Degraded = true
		} else {
			prompt = res.FinalPrompt
			out.Trace = res.Trace
		}
	}

	resp, err := r.invoker.Invoke(ctx, llm.Request{
		Component: "final",
		Model:     r.opts.Model,
		Prompt:    prompt,
	})
	if err != nil {
		return nil, fmt.Errorf("final completion: %w", err)
	}

	out.Answer = resp.Text
	return out, nil
}

// digestHistory condenses the most recent turns into a plain-text context
// block for the divergence prompt.
func digestHistory(history []Turn) string {
	if len(history) == 0 {
		return ""
	}
	if len(history) > historyDigestLimit {
		history = history[len(history)-historyDigestLimit:]
	}

	var b strings.Builder
	for i, t := range history {
		if i > 0 {
			b.WriteString("\n")
		}
		answer := t.Answer
		if len(answer) > 400 {
			answer = answer[:400] + "..."
		}
		fmt.Fprintf(&b, "User: %s\nAssistant: %s", t.Query, answer)
	}
	return b.String()
}
