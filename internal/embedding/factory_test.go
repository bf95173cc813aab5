package embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/models"
)

func TestNew_DefaultIsCachedHashing(t *testing.T) {
	cfg := config.Default().Embedding
	emb, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer emb.Close()
	if emb.Dimensions() != 384 {
		t.Errorf("Dimensions=%d, want 384", emb.Dimensions())
	}
	if _, ok := emb.(*CachedEmbedder); !ok {
		t.Errorf("expected cached embedder, got %T", emb)
	}
}

func TestNew_ONNXWithoutModelFallsBack(t *testing.T) {
	cfg := config.Default().Embedding
	cfg.Provider = "onnx"
	cfg.ModelPath = ""
	cfg.Cache.Type = "none"
	emb, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if emb.Model() != "hashing-384" {
		t.Errorf("Model=%q, want hashing fallback", emb.Model())
	}
}

func TestNew_OpenAIRequiresKey(t *testing.T) {
	cfg := config.Default().Embedding
	cfg.Provider = "openai"
	cfg.APIKey = ""
	if _, err := New(context.Background(), cfg, nil); !errors.Is(err, models.ErrEmbeddingUnavailable) {
		t.Errorf("expected ErrEmbeddingUnavailable, got %v", err)
	}
}

func TestNew_UnknownProvider(t *testing.T) {
	cfg := config.Default().Embedding
	cfg.Provider = "word2vec"
	if _, err := New(context.Background(), cfg, nil); !errors.Is(err, models.ErrInvalidConfiguration) {
		t.Errorf("expected ErrInvalidConfiguration, got %v", err)
	}
}
