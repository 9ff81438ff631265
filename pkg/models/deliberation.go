package models

import "time"

// Strategy is one candidate approach produced by the divergence phase.
type Strategy struct {
	// ID is the unique identifier for this strategy.
	ID string `json:"id"`
	// Title is a short label for the strategy.
	Title string `json:"title"`
	// Approach describes the strategy in free text.
	Approach string `json:"approach"`
	// CoreAssumption states the assumption the strategy depends on.
	CoreAssumption string `json:"core_assumption,omitempty"`
	// Critique is attached after the critique phase, nil before it.
	Critique *Critique `json:"critique,omitempty"`
}

// Critique is the evaluation of a single strategy.
type Critique struct {
	// Strengths lists what the strategy does well.
	Strengths []string `json:"strengths,omitempty"`
	// ValidWhen lists conditions under which the strategy holds.
	ValidWhen []string `json:"valid_when,omitempty"`
	// InvalidWhen lists conditions that break the strategy.
	InvalidWhen []string `json:"invalid_when,omitempty"`
	// CriticalFlaws lists disqualifying problems, if any.
	CriticalFlaws []string `json:"critical_flaws,omitempty"`
}

// Blueprint is the synthesized plan produced from critiqued strategies.
type Blueprint struct {
	// Blueprint is the free-text plan for answering the query.
	Blueprint string `json:"blueprint"`
	// Objective states what the answer must accomplish.
	Objective string `json:"objective,omitempty"`
	// Tone describes the intended register of the answer.
	Tone string `json:"tone,omitempty"`
	// Safeguards lists constraints the answer must respect.
	Safeguards []string `json:"safeguards,omitempty"`
}

// SubProblem is one piece of a decomposed query.
type SubProblem struct {
	// ID is the unique identifier for this sub-problem.
	ID string `json:"id"`
	// Title is a short label for the sub-problem.
	Title string `json:"title"`
	// Query is the reformulated, self-contained question.
	Query string `json:"query"`
	// DependsOn optionally names another sub-problem this one builds on.
	// Reserved: the execution engine runs all siblings in parallel and does
	// not consult this field.
	DependsOn string `json:"depends_on,omitempty"`
}

// ChildSolution pairs a solved sub-problem with its solution, as input to
// aggregation.
type ChildSolution struct {
	// Title is the sub-problem's display label.
	Title string `json:"title,omitempty"`
	// Query is the sub-problem's question.
	Query string `json:"query"`
	// Solution is the solved answer text. A failed child contributes an
	// explicit failure marker here, never a silent empty string.
	Solution string `json:"solution"`
	// NodeID is the solved node's ID, when the pair came from the tree.
	NodeID string `json:"node_id,omitempty"`
}

// DeliberationTrace records what the deliberation pipeline did for one query,
// for observability. It is carried on leaf node results.
type DeliberationTrace struct {
	// Strategies holds the strategies after critique, in divergence order.
	Strategies []Strategy `json:"strategies"`
	// Blueprint is the synthesized plan.
	Blueprint *Blueprint `json:"blueprint,omitempty"`
	// FinalPrompt is the formatted final-generation prompt.
	FinalPrompt string `json:"final_prompt,omitempty"`
	// Fallbacks lists which phases substituted a fallback value.
	Fallbacks []string `json:"fallbacks,omitempty"`
	// Requests is the number of completion requests issued.
	Requests int `json:"requests"`
}

// Clone returns a deep copy of the trace.
func (t *DeliberationTrace) Clone() *DeliberationTrace {
	if t == nil {
		return nil
	}
	cp := *t
	cp.Strategies = make([]Strategy, len(t.Strategies))
	for i, s := range t.Strategies {
		cp.Strategies[i] = s
		if s.Critique != nil {
			c := *s.Critique
			cp.Strategies[i].Critique = &c
		}
	}
	if t.Blueprint != nil {
		bp := *t.Blueprint
		cp.Blueprint = &bp
	}
	cp.Fallbacks = append([]string(nil), t.Fallbacks...)
	return &cp
}

// UsageDelta is one usage-accounting increment, emitted after every
// completion request.
type UsageDelta struct {
	// Component names the engine part that issued the request.
	Component string `json:"component"`
	// Model is the model the request was sent to.
	Model string `json:"model"`
	// InputTokens is the prompt token count reported by the service.
	InputTokens int64 `json:"input_tokens"`
	// OutputTokens is the completion token count reported by the service.
	OutputTokens int64 `json:"output_tokens"`
	// At is when the request completed.
	At time.Time `json:"at"`
}
