// Package decompose decides whether a query should be split into
// independent sub-problems and extracts them when it should.
package decompose

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/ponderhq/ponder/internal/jsonx"
	"github.com/ponderhq/ponder/internal/llm"
	"github.com/ponderhq/ponder/internal/persona"
	"github.com/ponderhq/ponder/pkg/models"
)

// Decision is the analyzer's answer for one query.
type Decision struct {
	// ShouldDecompose reports whether the query splits into sub-problems.
	ShouldDecompose bool
	// Reasoning is the model's (or the analyzer's own) justification.
	Reasoning string
	// SubProblems holds the extracted sub-problems. Empty unless
	// ShouldDecompose is true, in which case it holds at least two.
	SubProblems []models.SubProblem
}

// Analyzer asks the model whether a query should be decomposed.
type Analyzer struct {
	invoker llm.Invoker
	prompts *persona.Prompts
	model   string
}

// New creates an Analyzer using the given completion invoker and persona
// prompt set.
func New(invoker llm.Invoker, prompts *persona.Prompts, model string) *Analyzer {
	return &Analyzer{invoker: invoker, prompts: prompts, model: model}
}

// decisionJSON is the decomposition response shape.
type decisionJSON struct {
	ShouldDecompose bool             `json:"should_decompose"`
	Reasoning       string           `json:"reasoning"`
	SubProblems     []subProblemJSON `json:"sub_problems"`
}

type subProblemJSON struct {
	Title     string `json:"title"`
	Query     string `json:"query"`
	DependsOn string `json:"depends_on"`
}

// Decide returns the decomposition decision for the query at the given
// depth. The depth budget is checked before any completion request: a query
// at or past the budget never splits and never costs a request. A malformed
// or empty response yields a direct-execution decision rather than an error;
// only transport failures propagate.
func (a *Analyzer) Decide(ctx context.Context, query string, depth, maxDepth int, force bool) (*Decision, error) {
	if depth >= maxDepth {
		return &Decision{
			ShouldDecompose: false,
			Reasoning:       fmt.Sprintf("depth budget exhausted (%d of %d)", depth, maxDepth),
		}, nil
	}

	resp, err := a.invoker.Invoke(ctx, llm.Request{
		Component:  "decomposition",
		Model:      a.model,
		Prompt:     a.prompts.Decomposition(query, depth, maxDepth, force),
		Structured: true,
	})
	if err != nil {
		return nil, fmt.Errorf("decomposition request: %w", err)
	}

	parsed, usedFallback := jsonx.ObjectOr(resp.Text, decisionJSON{})
	if usedFallback {
		log.Printf("[decompose] unparseable decomposition response, defaulting to direct execution")
		return &Decision{
			ShouldDecompose: false,
			Reasoning:       "default to direct execution",
		}, nil
	}

	if parsed.ShouldDecompose && len(parsed.SubProblems) < 2 {
		return &Decision{
			ShouldDecompose: false,
			Reasoning:       fmt.Sprintf("insufficient sub-problems extracted (%d), executing directly", len(parsed.SubProblems)),
		}, nil
	}

	d := &Decision{
		ShouldDecompose: parsed.ShouldDecompose,
		Reasoning:       parsed.Reasoning,
	}
	if d.ShouldDecompose {
		d.SubProblems = make([]models.SubProblem, len(parsed.SubProblems))
		for i, sp := range parsed.SubProblems {
			q := sp.Query
			if q == "" {
				q = sp.Title
			}
			d.SubProblems[i] = models.SubProblem{
				ID:        uuid.New().String(),
				Title:     sp.Title,
				Query:     q,
				DependsOn: sp.DependsOn,
			}
		}
	}
	return d, nil
}
