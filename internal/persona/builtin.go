package persona

import (
	"fmt"
	"strings"

	"github.com/ponderhq/ponder/pkg/models"
)

// divergencePrompt is the built-in prompt template for the divergence phase.
const divergencePrompt = `Generate between 3 and 10 mutually exclusive strategies for answering the query below. Each strategy must take a genuinely different angle, not a variation of another.

Query:
%s
%s
Return ONLY a JSON array with this exact structure (no other text):
[
  {
    "title": "Short strategy title",
    "approach": "How this strategy would answer the query",
    "core_assumption": "The single assumption this strategy depends on"
  }
]`

// critiquePrompt is the built-in prompt template for the critique phase.
const critiquePrompt = `Critique the following strategy for answering a query. Be concrete about when it works and when it breaks.

Query:
%s

Strategy: %s
Approach: %s
Core assumption: %s

Return ONLY a JSON object with this exact structure (no other text):
{
  "strengths": ["..."],
  "valid_when": ["conditions under which the strategy holds"],
  "invalid_when": ["conditions that break the strategy"],
  "critical_flaws": ["disqualifying problems, empty if none"]
}`

// synthesisPrompt is the built-in prompt template for the synthesis phase.
const synthesisPrompt = `Synthesize a single answer blueprint from the critiqued strategies below. Combine their strengths, avoid their flaws. Do not pick one strategy verbatim.

Query:
%s

Critiqued strategies:
%s

Return ONLY a JSON object with this exact structure (no other text):
{
  "blueprint": "The plan for answering the query",
  "objective": "What the answer must accomplish",
  "tone": "The register the answer should use",
  "safeguards": ["constraints the answer must respect"]
}`

// decompositionPrompt is the built-in prompt template for decomposition.
const decompositionPrompt = `Decide whether the query below should be split into independent sub-problems that can be solved separately and combined. Current depth %d of %d.
%s
Query:
%s

Split only when the query genuinely contains separable concerns. Each sub-problem must be self-contained: understandable without the others or the original query.

Return ONLY a JSON object with this exact structure (no other text):
{
  "should_decompose": true,
  "reasoning": "Why this does or does not split",
  "sub_problems": [
    {
      "title": "Short sub-problem title",
      "query": "The reformulated, self-contained question",
      "depends_on": ""
    }
  ]
}

If should_decompose is false, use an empty array for sub_problems. Never return exactly one sub-problem: either split into two or more, or do not split.`

// aggregationPrompt is the built-in prompt template for aggregation.
const aggregationPrompt = `Combine the solved sub-problem solutions below into one coherent solution for the parent query. Resolve overlaps and contradictions; do not simply concatenate.

Parent query:
%s

Sub-problem solutions:
%s

Return ONLY a JSON object with this exact structure (no other text):
{
  "aggregated_solution": "The combined solution for the parent query",
  "child_contributions": ["one line per sub-problem describing what it contributed"]
}`

// finalPrompt is the built-in prompt template for final generation.
const finalPrompt = `Answer the following query.

Query:
%s

Use this blueprint to structure your answer:
%s
Objective: %s
Tone: %s
%s`

// Builtin returns the built-in general-purpose persona. It carries no domain
// assumptions and serves as the fallback when no persona file matches.
func Builtin() *Prompts {
	return &Prompts{
		Name:       "general",
		DomainHint: "general-purpose assistant queries; multi-part analytical questions are complex, lookups and small talk are not",

		Divergence: func(query, context string) string {
			ctxBlock := ""
			if context != "" {
				ctxBlock = fmt.Sprintf("\nConversation context:\n%s\n", context)
			}
			return fmt.Sprintf(divergencePrompt, query, ctxBlock)
		},

		Critique: func(query string, strategy models.Strategy) string {
			return fmt.Sprintf(critiquePrompt, query, strategy.Title, strategy.Approach, strategy.CoreAssumption)
		},

		Synthesis: func(query string, strategies []models.Strategy) string {
			return fmt.Sprintf(synthesisPrompt, query, FormatStrategies(strategies))
		},

		Decomposition: func(query string, depth, maxDepth int, force bool) string {
			forceBlock := ""
			if force {
				forceBlock = "\nThis is the root pass: split the query unless it is truly atomic.\n"
			}
			return fmt.Sprintf(decompositionPrompt, depth, maxDepth, forceBlock, query)
		},

		Aggregation: func(query string, children []models.ChildSolution) string {
			return fmt.Sprintf(aggregationPrompt, query, FormatChildSolutions(children))
		},

		Final: func(query string, blueprint *models.Blueprint) string {
			if blueprint == nil {
				return query
			}
			safeguards := ""
			if len(blueprint.Safeguards) > 0 {
				safeguards = "Safeguards:\n- " + strings.Join(blueprint.Safeguards, "\n- ")
			}
			return fmt.Sprintf(finalPrompt, query, blueprint.Blueprint, blueprint.Objective, blueprint.Tone, safeguards)
		},
	}
}

// FormatStrategies renders critiqued strategies as a prompt fragment.
func FormatStrategies(strategies []models.Strategy) string {
	var b strings.Builder
	for i, s := range strategies {
		fmt.Fprintf(&b, "%d. %s\n   Approach: %s\n", i+1, s.Title, s.Approach)
		if s.CoreAssumption != "" {
			fmt.Fprintf(&b, "   Core assumption: %s\n", s.CoreAssumption)
		}
		if c := s.Critique; c != nil {
			if len(c.Strengths) > 0 {
				fmt.Fprintf(&b, "   Strengths: %s\n", strings.Join(c.Strengths, "; "))
			}
			if len(c.InvalidWhen) > 0 {
				fmt.Fprintf(&b, "   Breaks when: %s\n", strings.Join(c.InvalidWhen, "; "))
			}
			if len(c.CriticalFlaws) > 0 {
				fmt.Fprintf(&b, "   Critical flaws: %s\n", strings.Join(c.CriticalFlaws, "; "))
			}
		}
	}
	return b.String()
}

// FormatChildSolutions renders (query, solution) pairs as a prompt fragment.
func FormatChildSolutions(children []models.ChildSolution) string {
	var b strings.Builder
	for i, c := range children {
		title := c.Title
		if title == "" {
			title = fmt.Sprintf("Sub-problem %d", i+1)
		}
		fmt.Fprintf(&b, "## %s\nQuestion: %s\nSolution: %s\n\n", title, c.Query, c.Solution)
	}
	return b.String()
}
