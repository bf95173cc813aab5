package embedding

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/resilience"
	"google.golang.org/api/option"
)

// DefaultGeminiModel is used when no embedding model is configured.
const DefaultGeminiModel = "text-embedding-004"

// GeminiEmbedder calls the Google Generative AI embedding API.
type GeminiEmbedder struct {
	client     *genai.Client
	em         *genai.EmbeddingModel
	model      string
	dimensions int
	guard      *resilience.Guard
}

// NewGeminiEmbedder connects to the Generative AI API with apiKey.
func NewGeminiEmbedder(ctx context.Context, apiKey, model string, dimensions int, guard *resilience.Guard) (*GeminiEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: missing Gemini API key", models.ErrEmbeddingUnavailable)
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrEmbeddingUnavailable, err)
	}
	if guard == nil {
		guard = resilience.NewGuard(resilience.Settings{Name: "gemini-embeddings", Unavailable: models.ErrEmbeddingUnavailable})
	}
	return &GeminiEmbedder{
		client:     client,
		em:         client.EmbeddingModel(model),
		model:      model,
		dimensions: dimensions,
		guard:      guard,
	}, nil
}

// Embed embeds a single text.
func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return resilience.Call(ctx, e.guard, func(ctx context.Context) ([]float32, error) {
		resp, err := e.em.EmbedContent(ctx, genai.Text(text))
		if err != nil {
			return nil, err
		}
		if resp.Embedding == nil {
			return nil, fmt.Errorf("no embedding returned")
		}
		return resp.Embedding.Values, nil
	})
}

// EmbedBatch embeds texts with one BatchEmbedContents request.
func (e *GeminiEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return resilience.Call(ctx, e.guard, func(ctx context.Context) ([][]float32, error) {
		batch := e.em.NewBatch()
		for _, text := range texts {
			batch.AddContent(genai.Text(text))
		}
		resp, err := e.em.BatchEmbedContents(ctx, batch)
		if err != nil {
			return nil, err
		}
		if len(resp.Embeddings) != len(texts) {
			return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Embeddings))
		}
		out := make([][]float32, len(texts))
		for i, emb := range resp.Embeddings {
			if emb == nil {
				return nil, fmt.Errorf("no embedding returned for input %d", i)
			}
			out[i] = emb.Values
		}
		return out, nil
	})
}

// Dimensions returns the configured embedding dimension.
func (e *GeminiEmbedder) Dimensions() int {
	return e.dimensions
}

// Model returns the provider-qualified model name.
func (e *GeminiEmbedder) Model() string {
	return "gemini/" + e.model
}

// Close closes the API client.
func (e *GeminiEmbedder) Close() error {
	return e.client.Close()
}
