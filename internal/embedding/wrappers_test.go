package embedding

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hyperjump/kotae/internal/models"
)

// fakeEmbedder counts calls and can block, fail, or return a wrong dimension.
type fakeEmbedder struct {
	dim     int
	calls   atomic.Int32
	texts   atomic.Int32
	delay   time.Duration
	err     error
	wrongTo int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls.Add(1)
	f.texts.Add(int32(len(texts)))
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		dim := f.dim
		if f.wrongTo > 0 {
			dim = f.wrongTo
		}
		v := make([]float32, dim)
		v[0] = float32(len(t))
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int { return f.dim }
func (f *fakeEmbedder) Model() string   { return "fake" }
func (f *fakeEmbedder) Close() error    { return nil }

func TestBounded_Timeout(t *testing.T) {
	b := Bounded(&fakeEmbedder{dim: 4, delay: time.Second}, 20*time.Millisecond)
	_, err := b.Embed(context.Background(), "slow")
	if !errors.Is(err, models.ErrModelTimeout) {
		t.Fatalf("expected ErrModelTimeout, got %v", err)
	}
}

func TestBounded_FailureIsUnavailable(t *testing.T) {
	b := Bounded(&fakeEmbedder{dim: 4, err: errors.New("model file missing")}, time.Second)
	_, err := b.Embed(context.Background(), "x")
	if !errors.Is(err, models.ErrEmbeddingUnavailable) {
		t.Fatalf("expected ErrEmbeddingUnavailable, got %v", err)
	}
}

func TestBounded_DimensionChecked(t *testing.T) {
	b := Bounded(&fakeEmbedder{dim: 4, wrongTo: 3}, time.Second)
	_, err := b.EmbedBatch(context.Background(), []string{"a", "b"})
	if !errors.Is(err, models.ErrEmbeddingUnavailable) {
		t.Fatalf("expected ErrEmbeddingUnavailable, got %v", err)
	}
}

func TestBounded_PassesThrough(t *testing.T) {
	b := Bounded(&fakeEmbedder{dim: 4}, time.Second)
	out, err := b.EmbedBatch(context.Background(), []string{"a", "bb"})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 || out[1][0] != 2 {
		t.Errorf("unexpected output %v", out)
	}
	if out, err := b.EmbedBatch(context.Background(), nil); err != nil || out != nil {
		t.Errorf("empty batch: %v, %v", out, err)
	}
}

func TestCached_ServesRepeats(t *testing.T) {
	inner := &fakeEmbedder{dim: 4}
	c := Cached(inner, NewEmbeddingCache(16))
	ctx := context.Background()

	if _, err := c.Embed(ctx, "hello"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Embed(ctx, "hello"); err != nil {
		t.Fatal(err)
	}
	if got := inner.calls.Load(); got != 1 {
		t.Errorf("inner calls=%d, want 1", got)
	}

	out, err := c.EmbedBatch(ctx, []string{"hello", "world", "again"})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 3 || out[1][0] != 5 || out[2][0] != 5 {
		t.Errorf("unexpected batch %v", out)
	}
	// Only the two misses reach the inner embedder.
	if got := inner.texts.Load(); got != 3 {
		t.Errorf("inner texts=%d, want 3", got)
	}
}

func TestCached_ErrorsNotCached(t *testing.T) {
	inner := &fakeEmbedder{dim: 4, err: errors.New("down")}
	cache := NewEmbeddingCache(4)
	c := Cached(inner, cache)
	if _, err := c.Embed(context.Background(), "x"); err == nil {
		t.Fatal("expected error")
	}
	if cache.Len() != 0 {
		t.Error("failed embedding should not be cached")
	}
}
