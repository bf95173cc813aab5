package generate

import (
	"context"
	"fmt"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/resilience"
	"github.com/hyperjump/kotae/pkg/utils"
	"go.uber.org/zap"
)

// New builds the configured generative generator. Provider "none" (or empty)
// yields a nil generator and no error; the query engine then answers
// generative requests with the template strategy.
func New(ctx context.Context, cfg config.GenerationConfig, logger *zap.Logger) (*Generative, error) {
	logger = utils.OrNop(logger)
	guard := resilience.NewGuard(resilience.Settings{
		Name:              "generation-" + cfg.Provider,
		Timeout:           cfg.Timeout,
		RequestsPerMinute: cfg.RequestsPerMinute,
		Unavailable:       models.ErrGeneratorUnavailable,
	}, resilience.WithLogger(logger))

	var completer Completer
	switch cfg.Provider {
	case "", "none":
		return nil, nil
	case "openai":
		c, err := NewOpenAICompleter(cfg.APIKey, cfg.Model, cfg.MaxOutputTokens, cfg.Temperature, guard)
		if err != nil {
			return nil, err
		}
		completer = c
	case "gemini":
		c, err := NewGeminiCompleter(ctx, cfg.APIKey, cfg.Model, cfg.MaxOutputTokens, cfg.Temperature, guard)
		if err != nil {
			return nil, err
		}
		completer = c
	default:
		return nil, fmt.Errorf("%w: unknown generation provider %q", models.ErrInvalidConfiguration, cfg.Provider)
	}

	gen, err := NewGenerative(completer, cfg.MaxContextTokens,
		WithLogger(logger),
		WithTokenCounter(NewTokenCounter(cfg.Encoding, logger)))
	if err != nil {
		return nil, err
	}
	logger.Info("generator ready", zap.String("completer", completer.Name()))
	return gen, nil
}
