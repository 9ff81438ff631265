package llm

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/aws/aws-sdk-go-v2/config"

	"github.com/ponderhq/ponder/pkg/models"
)

// structuredSystemPrompt nudges the model toward machine-readable output.
// Callers still parse defensively; this only raises the hit rate.
const structuredSystemPrompt = "You are a reasoning component inside an " +
	"orchestration engine. Respond with the requested JSON and nothing else: " +
	"no prose, no markdown fences."

const defaultSystemPrompt = "You are a reasoning component inside an " +
	"orchestration engine. Respond concisely and directly."

// Client wraps the Anthropic SDK with single-shot completion semantics,
// token tracking, and per-request usage notification.
type Client struct {
	inner   anthropic.Client
	model   anthropic.Model
	bedrock bool
	tracker *TokenTracker
	onUsage UsageFunc

	maxTokens int64
}

// ClientConfig contains configuration for creating a new Client.
type ClientConfig struct {
	// Model is the default model to use for requests without an override.
	Model anthropic.Model
	// APIKey is the Anthropic API key. If empty, uses ANTHROPIC_API_KEY.
	APIKey string
	// UseAWSBedrock indicates whether to use AWS Bedrock instead of the
	// direct API.
	UseAWSBedrock bool
	// AWSRegion is the AWS region for Bedrock (e.g. "us-west-2").
	AWSRegion string
	// AWSProfile is the optional AWS profile name to use.
	AWSProfile string
	// MaxTokens caps response length per request. Defaults to 4096.
	MaxTokens int64
	// OnUsage, if set, is called once after every completion request.
	OnUsage UsageFunc
}

// NewClient creates a new Anthropic-backed completion client.
func NewClient(cfg ClientConfig) (*Client, error) {
	var opts []option.RequestOption

	if cfg.UseAWSBedrock {
		ctx := context.Background()

		var loadOpts []func(*config.LoadOptions) error
		if cfg.AWSRegion != "" {
			loadOpts = append(loadOpts, config.WithRegion(cfg.AWSRegion))
		}
		if cfg.AWSProfile != "" {
			loadOpts = append(loadOpts, config.WithSharedConfigProfile(cfg.AWSProfile))
		}

		opts = append(opts, bedrock.WithLoadDefaultConfig(ctx, loadOpts...))
	} else {
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is not set")
		}
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	model := cfg.Model
	if model == "" {
		model = anthropic.ModelClaudeSonnet4_20250514
	}
	if cfg.UseAWSBedrock {
		model = translateModelForBedrock(model)
	}

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	return &Client{
		inner:     anthropic.NewClient(opts...),
		model:     model,
		bedrock:   cfg.UseAWSBedrock,
		tracker:   NewTokenTracker(),
		onUsage:   cfg.OnUsage,
		maxTokens: maxTokens,
	}, nil
}

// Invoke issues one completion request and returns the raw response text.
func (c *Client) Invoke(ctx context.Context, req Request) (Response, error) {
	model := c.model
	if req.Model != "" {
		model = anthropic.Model(req.Model)
		if c.bedrock {
			model = translateModelForBedrock(model)
		}
	}

	system := defaultSystemPrompt
	if req.Structured {
		system = structuredSystemPrompt
	}

	resp, err := c.inner.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     model,
		MaxTokens: c.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	})
	if err != nil {
		return Response{}, fmt.Errorf("completion request (%s): %w", req.Component, err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(variant.Text)
		}
	}

	out := Response{
		Text:         text.String(),
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}

	c.tracker.Add(out.InputTokens, out.OutputTokens)
	if c.onUsage != nil {
		c.onUsage(models.UsageDelta{
			Component:    req.Component,
			Model:        string(model),
			InputTokens:  out.InputTokens,
			OutputTokens: out.OutputTokens,
			At:           time.Now(),
		})
	}

	return out, nil
}

// Model returns the configured default model.
func (c *Client) Model() anthropic.Model {
	return c.model
}

// Tracker returns the token tracker for this client.
func (c *Client) Tracker() *TokenTracker {
	return c.tracker
}

// translateModelForBedrock converts standard Anthropic model names to Bedrock
// cross-region inference profile format (us.anthropic.{model}-v1:0).
func translateModelForBedrock(model anthropic.Model) anthropic.Model {
	bedrockModels := map[anthropic.Model]string{
		anthropic.ModelClaudeSonnet4_20250514:   "us.anthropic.claude-sonnet-4-20250514-v1:0",
		anthropic.ModelClaudeSonnet4_5_20250929: "us.anthropic.claude-sonnet-4-5-20250929-v1:0",
		anthropic.ModelClaudeHaiku4_5_20251001:  "us.anthropic.claude-haiku-4-5-20251001-v1:0",
		anthropic.ModelClaudeOpus4_1_20250805:   "us.anthropic.claude-opus-4-1-20250805-v1:0",
		anthropic.ModelClaude3_5Haiku20241022:   "us.anthropic.claude-3-5-haiku-20241022-v1:0",
	}

	if bedrockModel, ok := bedrockModels[model]; ok {
		return anthropic.Model(bedrockModel)
	}
	return model
}

// TokenTracker accumulates token usage across completion requests.
type TokenTracker struct {
	mu        sync.Mutex
	inputTok  int64
	outputTok int64
	requests  int
}

// NewTokenTracker creates an empty tracker.
func NewTokenTracker() *TokenTracker {
	return &TokenTracker{}
}

// Add records token usage from one request.
func (t *TokenTracker) Add(input, output int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inputTok += input
	t.outputTok += output
	t.requests++
}

// Totals returns the accumulated input and output token counts.
func (t *TokenTracker) Totals() (input, output int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inputTok, t.outputTok
}

// Requests returns the number of completion requests recorded.
func (t *TokenTracker) Requests() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.requests
}
