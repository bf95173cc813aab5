// Package embedding maps passages and questions to fixed-dimension vectors.
package embedding

import "context"

// Embedder produces vector embeddings for text. Implementations are deterministic:
// identical text yields vectors equal within floating-point tolerance.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	// Model identifies the embedding model; vectors from different models are not comparable.
	Model() string
	Close() error
}

// embedEach maps embed over texts, stopping at the first error or cancellation.
func embedEach(ctx context.Context, texts []string, embed func(context.Context, string) ([]float32, error)) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		emb, err := embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}
