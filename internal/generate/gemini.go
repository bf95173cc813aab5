package generate

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/resilience"
	"google.golang.org/api/option"
)

// DefaultGeminiModel is used when no generation model is configured.
const DefaultGeminiModel = "gemini-1.5-flash"

// GeminiCompleter calls the Google Generative AI API.
type GeminiCompleter struct {
	client      *genai.Client
	model       string
	maxTokens   int
	temperature float64
	guard       *resilience.Guard
}

// NewGeminiCompleter connects to the Generative AI API with apiKey.
func NewGeminiCompleter(ctx context.Context, apiKey, model string, maxTokens int, temperature float64, guard *resilience.Guard) (*GeminiCompleter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: missing Gemini API key", models.ErrGeneratorUnavailable)
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrGeneratorUnavailable, err)
	}
	if guard == nil {
		guard = resilience.NewGuard(resilience.Settings{Name: "gemini-chat"})
	}
	return &GeminiCompleter{
		client:      client,
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
		guard:       guard,
	}, nil
}

// Name returns the provider-qualified model name.
func (c *GeminiCompleter) Name() string {
	return "gemini/" + c.model
}

// Complete generates content for prompt under the system instruction.
func (c *GeminiCompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	model := c.client.GenerativeModel(c.model)
	model.SetTemperature(float32(c.temperature))
	if c.maxTokens > 0 {
		model.SetMaxOutputTokens(int32(c.maxTokens))
	}
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}

	return resilience.Call(ctx, c.guard, func(ctx context.Context) (string, error) {
		resp, err := model.GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			return "", fmt.Errorf("gemini generation failed: %w", err)
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			return "", fmt.Errorf("no candidates returned")
		}
		var b strings.Builder
		for _, part := range resp.Candidates[0].Content.Parts {
			if text, ok := part.(genai.Text); ok {
				b.WriteString(string(text))
			}
		}
		return b.String(), nil
	})
}

// Close closes the underlying client.
func (c *GeminiCompleter) Close() error {
	return c.client.Close()
}
