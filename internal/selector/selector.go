// Package selector chooses the reasoning engine for a query: the flat
// deliberation pipeline or the recursive decomposition tree.
package selector

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/ponderhq/ponder/internal/jsonx"
	"github.com/ponderhq/ponder/internal/llm"
)

// Engine identifies a reasoning engine.
type Engine string

const (
	// EnginePipeline is the flat multi-strategy deliberation pipeline.
	EnginePipeline Engine = "pipeline"
	// EngineTree is the recursive decomposition tree.
	EngineTree Engine = "tree"
)

// classifierPrompt asks for a complexity judgment on a single query.
const classifierPrompt = `Judge whether the question below needs deep multi-part reasoning (splitting into sub-problems solved separately) or can be answered in a single reasoning pass.
%s
Question:
%s

Return ONLY a JSON object with this exact structure (no other text):
{
  "deep_reasoning": true,
  "complexity": "trivial | moderate | complex",
  "reasoning": "One sentence"
}`

// Selector decides which engine handles a query.
type Selector struct {
	invoker llm.Invoker
	model   string
}

// New creates a Selector using the given completion invoker.
func New(invoker llm.Invoker, model string) *Selector {
	return &Selector{invoker: invoker, model: model}
}

// classificationJSON is the classifier response shape.
type classificationJSON struct {
	DeepReasoning bool   `json:"deep_reasoning"`
	Complexity    string `json:"complexity"`
	Reasoning     string `json:"reasoning"`
}

// Select returns the engine for the query. forceDeep skips classification
// and always picks the tree. Otherwise one classification request decides;
// the tree is chosen only when the classifier affirms deep reasoning with
// non-trivial complexity, and any failure falls back to the pipeline.
func (s *Selector) Select(ctx context.Context, query string, forceDeep bool, domainHint string) Engine {
	if forceDeep {
		return EngineTree
	}

	hintBlock := ""
	if domainHint != "" {
		hintBlock = fmt.Sprintf("Domain context: %s\n", domainHint)
	}

	resp, err := s.invoker.Invoke(ctx, llm.Request{
		Component:  "selection",
		Model:      s.model,
		Prompt:     fmt.Sprintf(classifierPrompt, hintBlock, query),
		Structured: true,
	})
	if err != nil {
		log.Printf("[selector] classification failed, using pipeline: %v", err)
		return EnginePipeline
	}

	parsed, usedFallback := jsonx.ObjectOr(resp.Text, classificationJSON{})
	if usedFallback {
		log.Printf("[selector] unparseable classification, using pipeline")
		return EnginePipeline
	}

	if parsed.DeepReasoning && strings.ToLower(parsed.Complexity) != "trivial" {
		return EngineTree
	}
	return EnginePipeline
}
