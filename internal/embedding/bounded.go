package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hyperjump/kotae/internal/models"
)

// BoundedEmbedder bounds every call of an inner embedder by a timeout and
// classifies failures: deadline expiry as ErrModelTimeout, anything else as
// ErrEmbeddingUnavailable. It also rejects vectors of the wrong dimension.
type BoundedEmbedder struct {
	inner   Embedder
	timeout time.Duration
}

// Bounded wraps inner. A zero timeout only classifies errors.
func Bounded(inner Embedder, timeout time.Duration) *BoundedEmbedder {
	return &BoundedEmbedder{inner: inner, timeout: timeout}
}

type embedResult struct {
	vectors [][]float32
	err     error
}

func (b *BoundedEmbedder) run(ctx context.Context, want int, fn func(context.Context) ([][]float32, error)) ([][]float32, error) {
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}
	done := make(chan embedResult, 1)
	go func() {
		v, err := fn(ctx)
		done <- embedResult{vectors: v, err: err}
	}()
	var res embedResult
	select {
	case res = <-done:
	case <-ctx.Done():
		// Local models such as ONNX cannot be interrupted; the result is dropped.
		res.err = ctx.Err()
	}
	if res.err != nil {
		return nil, b.classify(res.err)
	}
	if len(res.vectors) != want {
		return nil, fmt.Errorf("%w: %s returned %d vectors for %d inputs", models.ErrEmbeddingUnavailable, b.inner.Model(), len(res.vectors), want)
	}
	dim := b.inner.Dimensions()
	for _, v := range res.vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: %s returned %d dimensions, expected %d", models.ErrEmbeddingUnavailable, b.inner.Model(), len(v), dim)
		}
	}
	return res.vectors, nil
}

func (b *BoundedEmbedder) classify(err error) error {
	switch {
	case errors.Is(err, models.ErrModelTimeout), errors.Is(err, models.ErrEmbeddingUnavailable):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %s: %v", models.ErrModelTimeout, b.inner.Model(), err)
	case errors.Is(err, context.Canceled):
		return err
	default:
		return fmt.Errorf("%w: %s: %v", models.ErrEmbeddingUnavailable, b.inner.Model(), err)
	}
}

// Embed embeds one text within the bound.
func (b *BoundedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := b.run(ctx, 1, func(ctx context.Context) ([][]float32, error) {
		v, err := b.inner.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		return [][]float32{v}, nil
	})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch embeds texts within one bound.
func (b *BoundedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return b.run(ctx, len(texts), func(ctx context.Context) ([][]float32, error) {
		return b.inner.EmbedBatch(ctx, texts)
	})
}

// Dimensions returns the inner embedder's dimension.
func (b *BoundedEmbedder) Dimensions() int { return b.inner.Dimensions() }

// Model returns the inner embedder's model.
func (b *BoundedEmbedder) Model() string { return b.inner.Model() }

// Close closes the inner embedder.
func (b *BoundedEmbedder) Close() error { return b.inner.Close() }
