// Package aggregate combines solved sub-problem solutions into a single
// solution for the parent query.
package aggregate

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/ponderhq/ponder/internal/jsonx"
	"github.com/ponderhq/ponder/internal/llm"
	"github.com/ponderhq/ponder/internal/persona"
	"github.com/ponderhq/ponder/pkg/models"
)

// Result is the aggregation output for one parent node.
type Result struct {
	// AggregatedSolution is the combined solution text. Always non-empty
	// when at least one child was supplied.
	AggregatedSolution string
	// ChildContributions describes, one line per child, what each
	// sub-problem contributed.
	ChildContributions []string
	// UsedFallback reports whether the deterministic concatenation was
	// substituted for an unusable model response.
	UsedFallback bool
}

// Aggregator merges child solutions bottom-up.
type Aggregator struct {
	invoker llm.Invoker
	prompts *persona.Prompts
	model   string
}

// New creates an Aggregator using the given completion invoker and persona
// prompt set.
func New(invoker llm.Invoker, prompts *persona.Prompts, model string) *Aggregator {
	return &Aggregator{invoker: invoker, prompts: prompts, model: model}
}

// resultJSON is the aggregation response shape.
type resultJSON struct {
	AggregatedSolution string   `json:"aggregated_solution"`
	ChildContributions []string `json:"child_contributions"`
}

// Combine merges the child solutions into one solution for the parent
// query. A single child bypasses the model and returns its solution
// verbatim. A malformed response degrades to a labeled concatenation of all
// children; only transport failures propagate.
func (a *Aggregator) Combine(ctx context.Context, parentQuery string, children []models.ChildSolution) (*Result, error) {
	switch len(children) {
	case 0:
		return &Result{AggregatedSolution: "nothing to aggregate"}, nil
	case 1:
		return &Result{
			AggregatedSolution: children[0].Solution,
			ChildContributions: []string{fmt.Sprintf("sole sub-problem %q passed through verbatim", childLabel(children[0], 1))},
		}, nil
	}

	resp, err := a.invoker.Invoke(ctx, llm.Request{
		Component:  "aggregation",
		Model:      a.model,
		Prompt:     a.prompts.Aggregation(parentQuery, children),
		Structured: true,
	})
	if err != nil {
		return nil, fmt.Errorf("aggregation request: %w", err)
	}

	parsed, usedFallback := jsonx.ObjectOr(resp.Text, resultJSON{})
	if usedFallback || parsed.AggregatedSolution == "" {
		log.Printf("[aggregate] unusable aggregation response, concatenating %d child solutions", len(children))
		return concatenate(children), nil
	}

	return &Result{
		AggregatedSolution: parsed.AggregatedSolution,
		ChildContributions: parsed.ChildContributions,
	}, nil
}

// concatenate joins every child solution under a labeled heading. The output
// covers each child exactly once and is never empty.
func concatenate(children []models.ChildSolution) *Result {
	var b strings.Builder
	contributions := make([]string, len(children))
	for i, c := range children {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "Part %d: %s\n%s", i+1, childLabel(c, i+1), c.Solution)
		contributions[i] = fmt.Sprintf("Part %d: %s", i+1, childLabel(c, i+1))
	}
	return &Result{
		AggregatedSolution: b.String(),
		ChildContributions: contributions,
		UsedFallback:       true,
	}
}

func childLabel(c models.ChildSolution, n int) string {
	if c.Title != "" {
		return c.Title
	}
	return fmt.Sprintf("Sub-problem %d", n)
}
