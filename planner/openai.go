package planner

import (
	"context"
	"errors"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIConfig configures the OpenAI chat completions backend.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string

	// ExtraBody adds custom fields to the request body, e.g. provider
	// routing hints when pointing BaseURL at a compatible gateway.
	ExtraBody map[string]any
}

// OpenAIOption is a functional option for the OpenAI backend.
type OpenAIOption func(*OpenAIConfig)

// OpenAIWithAPIKey sets the API key.
func OpenAIWithAPIKey(key string) OpenAIOption {
	return func(c *OpenAIConfig) { c.APIKey = key }
}

// OpenAIWithBaseURL sets a custom base URL.
func OpenAIWithBaseURL(url string) OpenAIOption {
	return func(c *OpenAIConfig) { c.BaseURL = url }
}

// OpenAIWithExtraBody adds a custom field to the request body.
func OpenAIWithExtraBody(key string, value any) OpenAIOption {
	return func(c *OpenAIConfig) {
		if c.ExtraBody == nil {
			c.ExtraBody = make(map[string]any)
		}
		c.ExtraBody[key] = value
	}
}

// NewOpenAI creates a Backend using the OpenAI chat completions API.
// The SDK reads OPENAI_API_KEY and OPENAI_BASE_URL from the environment
// when they are not set explicitly.
func NewOpenAI(model string, opts ...OpenAIOption) Backend {
	cfg := OpenAIConfig{}
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
	client := openai.NewClient(clientOpts...)
	return &openaiBackend{model: model, cfg: cfg, client: client}
}

type openaiBackend struct {
	model  string
	cfg    OpenAIConfig
	client openai.Client
}

func (b *openaiBackend) Name() string { return "openai" }

func (b *openaiBackend) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(b.model),
	}
	if req.System != "" {
		params.Messages = append(params.Messages, openai.SystemMessage(req.System))
	}
	params.Messages = append(params.Messages, openai.UserMessage(req.Prompt))
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}

	var reqOpts []option.RequestOption
	for k, v := range b.cfg.ExtraBody {
		reqOpts = append(reqOpts, option.WithJSONSet(k, v))
	}
	completion, err := b.client.Chat.Completions.New(ctx, params, reqOpts...)
	if err != nil {
		return "", err
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("planner: openai returned no choices")
	}
	return completion.Choices[0].Message.Content, nil
}
