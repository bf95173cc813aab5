package embedding

import (
	"context"
	"fmt"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/resilience"
	"github.com/hyperjump/kotae/pkg/utils"
	"go.uber.org/zap"
)

// New builds the configured embedder, bounded by the configured timeout and
// fronted by the configured cache. An ONNX model that cannot be loaded falls
// back to the hashing embedder with a warning; remote providers fail instead.
func New(ctx context.Context, cfg config.EmbeddingConfig, logger *zap.Logger) (Embedder, error) {
	logger = utils.OrNop(logger)

	provider, err := newProvider(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	var emb Embedder = Bounded(provider, cfg.Timeout)

	switch cfg.Cache.Type {
	case "", "none":
	case "lru":
		emb = Cached(emb, NewEmbeddingCache(cfg.Cache.Size))
	case "redis":
		cache, err := NewRedisCache(ctx, cfg.Cache.RedisURL, cfg.Cache.TTL, logger)
		if err != nil {
			// The cache is an optimization; fall back to the in-process one.
			logger.Warn("redis embedding cache unavailable, using in-process cache", zap.Error(err))
			emb = Cached(emb, NewEmbeddingCache(cfg.Cache.Size))
		} else {
			emb = Cached(emb, cache)
		}
	default:
		_ = emb.Close()
		return nil, fmt.Errorf("%w: unknown embedding cache type %q", models.ErrInvalidConfiguration, cfg.Cache.Type)
	}

	logger.Info("embedder ready",
		zap.String("model", emb.Model()),
		zap.Int("dimensions", emb.Dimensions()),
		zap.String("cache", cfg.Cache.Type))
	return emb, nil
}

func newProvider(ctx context.Context, cfg config.EmbeddingConfig, logger *zap.Logger) (Embedder, error) {
	guard := func(name string) *resilience.Guard {
		return resilience.NewGuard(resilience.Settings{
			Name:              name,
			RequestsPerMinute: cfg.RequestsPerMinute,
			Unavailable:       models.ErrEmbeddingUnavailable,
		}, resilience.WithLogger(logger))
	}

	switch cfg.Provider {
	case "", "hashing":
		return NewHashingEmbedder(cfg.Dimensions), nil
	case "onnx":
		if cfg.ModelPath == "" {
			logger.Warn("no ONNX model path configured, using hashing embedder")
			return NewHashingEmbedder(cfg.Dimensions), nil
		}
		emb, err := NewONNXEmbedder(cfg.ModelPath, cfg.Dimensions, cfg.MaxTokens)
		if err != nil {
			logger.Warn("ONNX embedder unavailable, using hashing embedder", zap.Error(err))
			return NewHashingEmbedder(cfg.Dimensions), nil
		}
		return emb, nil
	case "openai":
		return NewOpenAIEmbedder(cfg.APIKey, cfg.Model, cfg.Dimensions, guard("openai-embeddings"))
	case "gemini":
		return NewGeminiEmbedder(ctx, cfg.APIKey, cfg.Model, cfg.Dimensions, guard("gemini-embeddings"))
	default:
		return nil, fmt.Errorf("%w: unknown embedding provider %q", models.ErrInvalidConfiguration, cfg.Provider)
	}
}
