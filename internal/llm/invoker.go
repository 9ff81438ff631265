// Package llm provides the completion client for Ponder's reasoning engine.
// Every engine component issues single-shot prompt/response calls through the
// Invoker interface; the Anthropic-backed Client is the production
// implementation.
package llm

import (
	"context"

	"github.com/ponderhq/ponder/pkg/models"
)

// Request is a single completion request.
type Request struct {
	// Component names the engine part issuing the request, for usage
	// accounting (e.g. "divergence", "decomposition").
	Component string
	// Model overrides the client's default model when non-empty.
	Model string
	// Prompt is the full prompt text.
	Prompt string
	// Structured asks the model to respond with JSON only. Responses are
	// still treated as untrusted text by callers.
	Structured bool
}

// Response is the raw completion result.
type Response struct {
	// Text is the model's response text.
	Text string
	// InputTokens is the prompt token count reported by the service.
	InputTokens int64
	// OutputTokens is the completion token count reported by the service.
	OutputTokens int64
}

// Invoker issues one completion request and returns the raw response.
type Invoker interface {
	Invoke(ctx context.Context, req Request) (Response, error)
}

// UsageFunc receives one usage increment after every completion request.
type UsageFunc func(models.UsageDelta)
