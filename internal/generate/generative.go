package generate

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/pkg/utils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Completer sends a system instruction and a user prompt to a language model.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
	Name() string
}

// Generative answers with a language model grounded in the passages that fit
// the context budget.
type Generative struct {
	completer Completer
	counter   TokenCounter
	budget    int
	logger    *zap.Logger
}

// GenerativeOption configures a Generative generator.
type GenerativeOption func(*Generative)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) GenerativeOption {
	return func(g *Generative) { g.logger = utils.OrNop(l) }
}

// WithTokenCounter replaces the default estimating counter.
func WithTokenCounter(c TokenCounter) GenerativeOption {
	return func(g *Generative) { g.counter = c }
}

// NewGenerative builds a generator that spends at most maxContextTokens on passages.
func NewGenerative(c Completer, maxContextTokens int, opts ...GenerativeOption) (*Generative, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: no completer", models.ErrInvalidConfiguration)
	}
	if maxContextTokens <= 0 {
		return nil, fmt.Errorf("%w: max_context_tokens must be positive", models.ErrInvalidConfiguration)
	}
	g := &Generative{
		completer: c,
		counter:   EstimateCounter{},
		budget:    maxContextTokens,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Strategy returns StrategyGenerative.
func (g *Generative) Strategy() models.Strategy {
	return models.StrategyGenerative
}

// Generate prompts the model with the question and the passages that fit the budget.
func (g *Generative) Generate(ctx context.Context, question string, passages []models.ScoredChunk) (string, error) {
	ctx, span := otel.Tracer("kotae/generate").Start(ctx, "generate.generative")
	defer span.End()

	fitted, err := FitPassages(passages, g.budget, g.counter)
	if err != nil {
		return "", err
	}
	if len(fitted) == 0 {
		return "", fmt.Errorf("%w: no passages", models.ErrInvalidArgument)
	}
	span.SetAttributes(
		attribute.String("completer", g.completer.Name()),
		attribute.Int("passages", len(fitted)),
		attribute.Int("dropped", len(passages)-len(fitted)))
	if len(fitted) < len(passages) {
		g.logger.Debug("passages dropped to fit context budget",
			zap.Int("kept", len(fitted)), zap.Int("dropped", len(passages)-len(fitted)))
	}

	text, err := g.completer.Complete(ctx, systemPrompt, buildPrompt(question, fitted))
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: %s returned an empty completion", models.ErrGeneratorUnavailable, g.completer.Name())
	}
	return text, nil
}

// Close releases the completer's client when it holds one.
func (g *Generative) Close() error {
	if c, ok := g.completer.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
