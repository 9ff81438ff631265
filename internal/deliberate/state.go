// Package deliberate implements the four-phase deliberation pipeline: diverge
// into strategies, critique each strategy, synthesize a blueprint, and format
// the final-generation prompt. The pipeline is the terminal step for every
// reasoning-tree leaf and the whole-query engine when no decomposition is
// wanted.
package deliberate

import "github.com/ponderhq/ponder/pkg/models"

// Phase identifies one of the pipeline's four phases.
type Phase string

const (
	// PhaseDivergence generates candidate strategies.
	PhaseDivergence Phase = "divergence"
	// PhaseCritique evaluates every strategy.
	PhaseCritique Phase = "critique"
	// PhaseSynthesis combines critiqued strategies into a blueprint.
	PhaseSynthesis Phase = "synthesis"
	// PhaseFinalization formats the final-generation prompt.
	PhaseFinalization Phase = "finalization"
)

// StrategyState is the critique progress of a single strategy.
type StrategyState string

const (
	// StrategyPending indicates the strategy has not been critiqued yet.
	StrategyPending StrategyState = "pending"
	// StrategyRunning indicates a critique request is in flight.
	StrategyRunning StrategyState = "running"
	// StrategyComplete indicates the critique finished.
	StrategyComplete StrategyState = "complete"
)

// State is an immutable snapshot of the pipeline's progress, published to
// the observer after every phase and after every individual critique.
type State struct {
	// Phase is the pipeline phase the snapshot was taken in.
	Phase Phase
	// Strategies holds the current strategies, critiques attached as they
	// arrive.
	Strategies []models.Strategy
	// StrategyStates maps strategy IDs to critique progress.
	StrategyStates map[string]StrategyState
	// Blueprint is set once synthesis completes.
	Blueprint *models.Blueprint
	// FinalPrompt is set once finalization completes.
	FinalPrompt string
}

// Observer receives pipeline state snapshots. A nil observer suppresses
// publication, which the tree engine uses for sub-pipelines beneath a node
// to avoid double-reporting.
type Observer func(State)

// Result is the pipeline's output for one query.
type Result struct {
	// FinalPrompt is the formatted final-generation prompt.
	FinalPrompt string
	// Blueprint is the synthesized plan.
	Blueprint *models.Blueprint
	// Trace records strategies, fallbacks, and request counts.
	Trace *models.DeliberationTrace
}
