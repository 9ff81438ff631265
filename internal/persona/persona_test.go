package persona

import (
	"strings"
	"testing"

	"github.com/ponderhq/ponder/pkg/models"
)

func TestBuiltin_DivergencePrompt(t *testing.T) {
	p := Builtin()

	prompt := p.Divergence("how do rockets work", "")
	if !strings.Contains(prompt, "how do rockets work") {
		t.Error("prompt should contain the query")
	}
	if !strings.Contains(prompt, "JSON array") {
		t.Error("prompt should demand a JSON array")
	}
	if !strings.Contains(prompt, "core_assumption") {
		t.Error("prompt should name the core_assumption field")
	}
	if strings.Contains(prompt, "Conversation context") {
		t.Error("prompt should omit the context block when context is empty")
	}

	withCtx := p.Divergence("how do rockets work", "user is a physicist")
	if !strings.Contains(withCtx, "user is a physicist") {
		t.Error("prompt should include the supplied context")
	}
}

func TestBuiltin_CritiquePrompt(t *testing.T) {
	p := Builtin()
	strategy := models.Strategy{
		Title:          "First principles",
		Approach:       "Derive from physics",
		CoreAssumption: "Reader knows calculus",
	}

	prompt := p.Critique("how do rockets work", strategy)
	for _, want := range []string{"First principles", "Derive from physics", "Reader knows calculus", "critical_flaws"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("critique prompt missing %q", want)
		}
	}
}

func TestBuiltin_DecompositionPrompt(t *testing.T) {
	p := Builtin()

	prompt := p.Decomposition("compare X and Y", 1, 3, false)
	if !strings.Contains(prompt, "compare X and Y") {
		t.Error("prompt should contain the query")
	}
	if !strings.Contains(prompt, "depth 1 of 3") {
		t.Error("prompt should state depth and budget")
	}
	if !strings.Contains(prompt, "should_decompose") {
		t.Error("prompt should name the should_decompose field")
	}
	if strings.Contains(prompt, "root pass") {
		t.Error("non-forced prompt should omit the root pass block")
	}

	forced := p.Decomposition("compare X and Y", 0, 3, true)
	if !strings.Contains(forced, "root pass") {
		t.Error("forced prompt should include the root pass block")
	}
}

func TestBuiltin_FinalPrompt(t *testing.T) {
	p := Builtin()

	bp := &models.Blueprint{
		Blueprint:  "explain in three steps",
		Objective:  "clarity",
		Tone:       "friendly",
		Safeguards: []string{"no jargon"},
	}
	prompt := p.Final("how do rockets work", bp)
	for _, want := range []string{"how do rockets work", "explain in three steps", "clarity", "friendly", "no jargon"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("final prompt missing %q", want)
		}
	}

	// Without a blueprint the query passes through undecorated.
	if got := p.Final("bare query", nil); got != "bare query" {
		t.Errorf("Final(nil blueprint) = %q, want bare query", got)
	}
}

func TestFormatChildSolutions(t *testing.T) {
	children := []models.ChildSolution{
		{Title: "Physics", Query: "q1", Solution: "s1"},
		{Query: "q2", Solution: "s2"},
	}

	got := FormatChildSolutions(children)
	if !strings.Contains(got, "Physics") {
		t.Error("should include the given title")
	}
	if !strings.Contains(got, "Sub-problem 2") {
		t.Error("should number untitled children")
	}
	for _, want := range []string{"q1", "s1", "q2", "s2"} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q", want)
		}
	}
}
