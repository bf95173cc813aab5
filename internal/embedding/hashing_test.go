package embedding

import (
	"context"
	"math"
	"testing"

	"github.com/hyperjump/kotae/pkg/utils"
)

func cosine(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	na, nb := utils.L2Norm(a), utils.L2Norm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (na * nb)
}

func TestHashingEmbedder_Deterministic(t *testing.T) {
	e := NewHashingEmbedder(64)
	ctx := context.Background()
	a, err := e.Embed(ctx, "Employees receive 15 vacation days per year.")
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.Embed(ctx, "Employees receive 15 vacation days per year.")
	if err != nil {
		t.Fatal(err)
	}
	if len(a) != 64 {
		t.Fatalf("len=%d, want 64", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("component %d differs: %v vs %v", i, a[i], b[i])
		}
	}
	if n := utils.L2Norm(a); math.Abs(n-1) > 1e-5 {
		t.Errorf("norm=%v, want 1", n)
	}
}

func TestHashingEmbedder_RelatedTextScoresHigher(t *testing.T) {
	e := NewHashingEmbedder(384)
	ctx := context.Background()
	q, _ := e.Embed(ctx, "How many vacation days do employees get?")
	related, _ := e.Embed(ctx, "Employees receive 15 vacation days per year.")
	unrelated, _ := e.Embed(ctx, "Submit expense reports within 30 days with receipts attached.")
	if cosine(q, related) <= cosine(q, unrelated) {
		t.Errorf("related=%v should exceed unrelated=%v", cosine(q, related), cosine(q, unrelated))
	}
}

func TestHashingEmbedder_NoTermsIsZero(t *testing.T) {
	e := NewHashingEmbedder(16)
	v, err := e.Embed(context.Background(), "the of and ...")
	if err != nil {
		t.Fatal(err)
	}
	if utils.L2Norm(v) != 0 {
		t.Errorf("expected zero vector, got %v", v)
	}
}

func TestHashingEmbedder_Batch(t *testing.T) {
	e := NewHashingEmbedder(32)
	out, err := e.EmbedBatch(context.Background(), []string{"alpha", "beta"})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 || len(out[0]) != 32 {
		t.Fatalf("unexpected batch shape")
	}
	if e.Model() != "hashing-32" {
		t.Errorf("Model=%q", e.Model())
	}
}

func TestHashingEmbedder_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewHashingEmbedder(8).Embed(ctx, "x"); err == nil {
		t.Error("expected error for cancelled context")
	}
}
