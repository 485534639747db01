package planner

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicConfig configures the Anthropic Messages backend.
type AnthropicConfig struct {
	APIKey  string
	BaseURL string
}

// AnthropicOption is a functional option for the Anthropic backend.
type AnthropicOption func(*AnthropicConfig)

// AnthropicWithAPIKey sets the API key.
func AnthropicWithAPIKey(key string) AnthropicOption {
	return func(c *AnthropicConfig) { c.APIKey = key }
}

// AnthropicWithBaseURL sets a custom base URL.
func AnthropicWithBaseURL(url string) AnthropicOption {
	return func(c *AnthropicConfig) { c.BaseURL = url }
}

// NewAnthropic creates a Backend using the Anthropic Messages API.
// The SDK reads ANTHROPIC_API_KEY and ANTHROPIC_BASE_URL from the
// environment when they are not set explicitly.
func NewAnthropic(model string, opts ...AnthropicOption) Backend {
	cfg := AnthropicConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	var clientOpts []option.RequestOption
	if cfg.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(cfg.BaseURL))
	}
	client := anthropic.NewClient(clientOpts...)
	return &anthropicBackend{model: model, client: client}
}

type anthropicBackend struct {
	model  string
	client anthropic.Client
}

func (b *anthropicBackend) Name() string { return "anthropic" }

func (b *anthropicBackend) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(b.model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}

	msg, err := b.client.Messages.New(ctx, params)
	if err != nil {
		return "", err
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", errors.New("planner: anthropic returned no text content")
	}
	return text.String(), nil
}
