package embedding

import (
	"context"
	"fmt"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/resilience"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	// DefaultOpenAIModel is used when no embedding model is configured.
	DefaultOpenAIModel = "text-embedding-3-small"
	// openAIMaxBatch is the API's limit on inputs per request.
	openAIMaxBatch = 100
)

// OpenAIEmbedder calls the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client     openai.Client
	model      string
	dimensions int
	guard      *resilience.Guard
}

// NewOpenAIEmbedder creates an embedder for model with the requested dimension.
// Extra request options, such as a base URL for compatible servers, are passed to the client.
func NewOpenAIEmbedder(apiKey, model string, dimensions int, guard *resilience.Guard, opts ...option.RequestOption) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: missing OpenAI API key", models.ErrEmbeddingUnavailable)
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	if guard == nil {
		guard = resilience.NewGuard(resilience.Settings{Name: "openai-embeddings", Unavailable: models.ErrEmbeddingUnavailable})
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &OpenAIEmbedder{
		client:     openai.NewClient(opts...),
		model:      model,
		dimensions: dimensions,
		guard:      guard,
	}, nil
}

// Embed embeds a single text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch embeds texts in requests of at most 100 inputs.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += openAIMaxBatch {
		end := min(start+openAIMaxBatch, len(texts))
		batch, err := e.embedRequest(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		embeddings = append(embeddings, batch...)
	}
	return embeddings, nil
}

func (e *OpenAIEmbedder) embedRequest(ctx context.Context, texts []string) ([][]float32, error) {
	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(e.model),
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
	}
	if e.dimensions > 0 {
		params.Dimensions = openai.Int(int64(e.dimensions))
	}

	return resilience.Call(ctx, e.guard, func(ctx context.Context) ([][]float32, error) {
		resp, err := e.client.Embeddings.New(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("failed to generate embeddings: %w", err)
		}
		if len(resp.Data) != len(texts) {
			return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
		}
		out := make([][]float32, len(texts))
		for _, data := range resp.Data {
			if data.Index < 0 || int(data.Index) >= len(out) {
				return nil, fmt.Errorf("embedding index %d out of range", data.Index)
			}
			vector := make([]float32, len(data.Embedding))
			for i, v := range data.Embedding {
				vector[i] = float32(v)
			}
			out[data.Index] = vector
		}
		return out, nil
	})
}

// Dimensions returns the requested embedding dimension.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// Model returns the provider-qualified model name.
func (e *OpenAIEmbedder) Model() string {
	return "openai/" + e.model
}

// Close is a no-op; the HTTP client holds no resources that need releasing.
func (e *OpenAIEmbedder) Close() error {
	return nil
}
