// Package persona supplies the prompt sets that give the engine's generic
// protocol domain-specific wording. A persona is a record of pure
// prompt-producing functions; the engine depends only on the JSON shape each
// prompt elicits, never on its content. Personas are defined in YAML files
// and loaded into a registry, with a built-in general-purpose persona as the
// zero-configuration default.
package persona

import "github.com/ponderhq/ponder/pkg/models"

// Prompts is the capability record a persona hands to the engine. All six
// functions are pure: same inputs, same prompt string.
type Prompts struct {
	// Name identifies the persona.
	Name string
	// DomainHint is the complexity-classification hint for the engine
	// selector.
	DomainHint string

	// Divergence asks for 3-10 mutually exclusive strategies.
	Divergence func(query, context string) string
	// Critique asks for an evaluation of one strategy.
	Critique func(query string, strategy models.Strategy) string
	// Synthesis asks for a single blueprint from critiqued strategies.
	Synthesis func(query string, strategies []models.Strategy) string
	// Decomposition asks whether and how to split the query.
	Decomposition func(query string, depth, maxDepth int, force bool) string
	// Aggregation asks for a combined solution from child solutions.
	Aggregation func(query string, children []models.ChildSolution) string
	// Final formats the final-generation prompt from the blueprint.
	Final func(query string, blueprint *models.Blueprint) string
}
