package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"sort"

	"github.com/hyperjump/kotae/pkg/utils"
)

// HashingEmbedder maps text to a bag-of-terms vector with signed feature hashing.
// It needs no model files or network and is the default embedder.
type HashingEmbedder struct {
	dimensions int
}

// NewHashingEmbedder returns a hashing embedder with the given number of buckets.
func NewHashingEmbedder(dimensions int) *HashingEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &HashingEmbedder{dimensions: dimensions}
}

// Embed returns the L2-normalized hashed term vector for text. Text without
// content terms yields the zero vector.
func (e *HashingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, term := range utils.Terms(text) {
		counts[term]++
	}
	terms := make([]string, 0, len(counts))
	for term := range counts {
		terms = append(terms, term)
	}
	// Fixed summation order keeps vectors bit-identical across runs.
	sort.Strings(terms)

	emb := make([]float32, e.dimensions)
	for _, term := range terms {
		h := fnv.New64a()
		_, _ = h.Write([]byte(term))
		sum := h.Sum64()
		idx := int(sum % uint64(e.dimensions))
		weight := float32(1 + math.Log(float64(counts[term])))
		if sum>>63 == 1 {
			weight = -weight
		}
		emb[idx] += weight
	}
	utils.NormalizeL2(emb)
	return emb, nil
}

// EmbedBatch calls Embed for each text.
func (e *HashingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, texts, e.Embed)
}

// Dimensions returns the embedding dimension.
func (e *HashingEmbedder) Dimensions() int {
	return e.dimensions
}

// Model returns the embedder identity, including its dimension.
func (e *HashingEmbedder) Model() string {
	return fmt.Sprintf("hashing-%d", e.dimensions)
}

// Close is a no-op for HashingEmbedder.
func (e *HashingEmbedder) Close() error {
	return nil
}
