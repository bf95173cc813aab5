package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
)

// CachedEmbedder serves repeated texts from a Cache. Keys include the model,
// so a shared cache never mixes vectors from different embedders.
type CachedEmbedder struct {
	inner Embedder
	cache Cache
}

// Cached wraps inner with cache.
func Cached(inner Embedder, cache Cache) *CachedEmbedder {
	return &CachedEmbedder{inner: inner, cache: cache}
}

func (c *CachedEmbedder) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return c.inner.Model() + ":" + hex.EncodeToString(sum[:])
}

// Embed returns the cached vector or computes and stores it.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.key(text)
	if v, ok := c.cache.Get(ctx, key); ok {
		return v, nil
	}
	v, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Set(ctx, key, v)
	return v, nil
}

// EmbedBatch embeds only the cache misses, in one inner batch call.
func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string
	for i, text := range texts {
		if v, ok := c.cache.Get(ctx, c.key(text)); ok {
			out[i] = v
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}
	if len(missTexts) == 0 {
		return out, nil
	}
	vectors, err := c.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for j, i := range missIdx {
		out[i] = vectors[j]
		c.cache.Set(ctx, c.key(texts[i]), vectors[j])
	}
	return out, nil
}

// Dimensions returns the inner embedder's dimension.
func (c *CachedEmbedder) Dimensions() int { return c.inner.Dimensions() }

// Model returns the inner embedder's model.
func (c *CachedEmbedder) Model() string { return c.inner.Model() }

// Close closes the inner embedder and the cache when it holds resources.
func (c *CachedEmbedder) Close() error {
	err := c.inner.Close()
	if closer, ok := c.cache.(io.Closer); ok {
		if cerr := closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
