package generate

import (
	"context"
	"fmt"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/resilience"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

// DefaultOpenAIModel is used when no generation model is configured.
const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAICompleter calls the OpenAI chat completions API.
type OpenAICompleter struct {
	client      openai.Client
	model       string
	maxTokens   int
	temperature float64
	guard       *resilience.Guard
}

// NewOpenAICompleter creates a completer for model. Extra request options are passed to the client.
func NewOpenAICompleter(apiKey, model string, maxTokens int, temperature float64, guard *resilience.Guard, opts ...option.RequestOption) (*OpenAICompleter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: missing OpenAI API key", models.ErrGeneratorUnavailable)
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	if guard == nil {
		guard = resilience.NewGuard(resilience.Settings{Name: "openai-chat"})
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &OpenAICompleter{
		client:      openai.NewClient(opts...),
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
		guard:       guard,
	}, nil
}

// Name returns the provider-qualified model name.
func (c *OpenAICompleter) Name() string {
	return "openai/" + c.model
}

// Complete sends one chat completion request.
func (c *OpenAICompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(c.temperature),
	}
	if c.maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(c.maxTokens))
	}

	return resilience.Call(ctx, c.guard, func(ctx context.Context) (string, error) {
		completion, err := c.client.Chat.Completions.New(ctx, params)
		if err != nil {
			return "", fmt.Errorf("OpenAI API call failed: %w", err)
		}
		if len(completion.Choices) == 0 {
			return "", fmt.Errorf("no completion choices returned")
		}
		return completion.Choices[0].Message.Content, nil
	})
}
