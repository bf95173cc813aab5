// Package search answers questions from the passages in the vector store.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/generate"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/vector"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Engine retrieves passages for a question and composes the answer with the
// generator registered for the requested strategy.
type Engine struct {
	store      vector.Store
	embedder   embedding.Embedder
	config     config.QueryConfig
	template   *generate.Template
	generators map[models.Strategy]generate.Generator
	logger     *zap.Logger
	tracer     trace.Tracer
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets a logger for query events.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// WithGenerator registers g for its strategy. A nil g is ignored.
func WithGenerator(g generate.Generator) EngineOption {
	return func(e *Engine) {
		if g != nil {
			e.generators[g.Strategy()] = g
		}
	}
}

// NewEngine creates an engine over store. The template generator is always
// registered; it also serves as the fallback for every other strategy.
func NewEngine(store vector.Store, embedder embedding.Embedder, cfg config.QueryConfig, opts ...EngineOption) (*Engine, error) {
	if embedder.Dimensions() != store.Dimensions() {
		return nil, fmt.Errorf("%w: embedder produces %d dimensions, store holds %d",
			models.ErrInvalidConfiguration, embedder.Dimensions(), store.Dimensions())
	}
	if cfg.TopK <= 0 {
		return nil, fmt.Errorf("%w: top_k must be positive", models.ErrInvalidConfiguration)
	}
	tmpl := generate.NewTemplate()
	e := &Engine{
		store:      store,
		embedder:   embedder,
		config:     cfg,
		template:   tmpl,
		generators: map[models.Strategy]generate.Generator{models.StrategyTemplate: tmpl},
		logger:     zap.NewNop(),
		tracer:     otel.Tracer("kotae/search"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// AskQuestion answers question and returns only the answer text. useAdvanced
// selects the generative strategy.
func (e *Engine) AskQuestion(ctx context.Context, question string, useAdvanced bool) string {
	return e.Ask(ctx, &models.Question{Text: question, Strategy: models.StrategyFromAdvanced(useAdvanced)}).Text
}

// Ask answers q. It never returns nil and never panics; failures are
// reported through the answer's status and text.
func (e *Engine) Ask(ctx context.Context, q *models.Question) (answer *models.Answer) {
	start := time.Now()
	answer = &models.Answer{ID: uuid.NewString()}
	ctx, span := e.tracer.Start(ctx, "search.ask")
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("panic while answering question", zap.Any("panic", r), zap.Stack("stack"))
			answer.Text = models.AnswerUnableToProcess
			answer.Status = models.StatusUnavailable
			answer.Sources = nil
			span.SetStatus(codes.Error, "panic")
		}
		answer.TookMs = time.Since(start).Milliseconds()
		span.SetAttributes(attribute.String("status", string(answer.Status)))
		span.End()
	}()

	if q == nil {
		q = &models.Question{}
	}
	answer.Question = strings.TrimSpace(q.Text)
	answer.Requested = q.Strategy
	if err := ProcessQuestion(q, e.config); err != nil {
		answer.Status = models.StatusInvalidQuestion
		answer.Text = models.AnswerEmptyQuestion
		if q.Text != "" {
			answer.Text = err.Error()
		}
		return answer
	}
	answer.Requested = q.Strategy
	span.SetAttributes(
		attribute.String("strategy", string(q.Strategy)),
		attribute.Int("top_k", q.TopK))

	hits, err := e.Retrieve(ctx, q.Text, q.TopK)
	if err != nil {
		e.logger.Error("retrieval failed", zap.String("question", q.Text), zap.Error(err))
		span.RecordError(err)
		answer.Status = models.StatusUnavailable
		answer.Text = models.AnswerUnableToProcess
		return answer
	}
	passages := e.relevant(hits)
	if len(passages) == 0 {
		answer.Status = models.StatusNoResults
		answer.Text = models.AnswerNoRelevantInfo
		return answer
	}

	text, used, reason := e.generate(ctx, q, passages)
	if used == "" {
		answer.Status = models.StatusUnavailable
		answer.Text = models.AnswerUnableToProcess
		return answer
	}
	answer.Text = text
	answer.Used = used
	answer.Status = models.StatusOK
	if reason != "" {
		answer.Fallback = true
		answer.FallbackReason = reason
		answer.Status = models.StatusDegraded
	}
	answer.Sources = make([]models.Source, len(passages))
	for i, p := range passages {
		answer.Sources[i] = models.Source{DocumentID: p.Chunk.DocumentID, ChunkIndex: p.Chunk.ChunkIndex, Score: p.Score}
	}
	e.logger.Info("question answered",
		zap.String("strategy", string(used)),
		zap.Bool("fallback", answer.Fallback),
		zap.Int("passages", len(passages)),
		zap.Duration("took", time.Since(start)))
	return answer
}

// generate runs the requested strategy and falls back to the template. It
// returns the strategy that produced text, or "" when nothing could, and the
// fallback reason when it differs from the request.
func (e *Engine) generate(ctx context.Context, q *models.Question, passages []models.ScoredChunk) (string, models.Strategy, string) {
	var reason string
	if gen, ok := e.generators[q.Strategy]; ok {
		text, err := gen.Generate(ctx, q.Text, passages)
		if err == nil {
			return text, q.Strategy, ""
		}
		e.logger.Warn("generator failed, using template",
			zap.String("strategy", string(q.Strategy)), zap.Error(err))
		reason = fallbackReason(err)
		if q.Strategy == models.StrategyTemplate {
			return "", "", reason
		}
	} else {
		reason = fmt.Sprintf("no %s generator configured", q.Strategy)
	}

	text, err := e.template.Generate(ctx, q.Text, passages)
	if err != nil {
		e.logger.Error("template fallback failed", zap.Error(err))
		return "", "", reason
	}
	return text, models.StrategyTemplate, reason
}

func fallbackReason(err error) string {
	switch {
	case errors.Is(err, models.ErrModelTimeout):
		return "generator timed out"
	case errors.Is(err, models.ErrGeneratorUnavailable):
		return "generator unavailable"
	default:
		return "generator failed: " + err.Error()
	}
}

// relevant keeps the hits that reach the minimum score. A negative minimum accepts every hit.
func (e *Engine) relevant(hits []models.ScoredChunk) []models.ScoredChunk {
	if e.config.MinScore < 0 {
		return hits
	}
	out := hits[:0:0]
	for _, h := range hits {
		if h.Score >= e.config.MinScore {
			out = append(out, h)
		}
	}
	return out
}

// Retrieve returns up to k passages ranked by similarity to question. A
// non-positive k selects the configured top_k.
func (e *Engine) Retrieve(ctx context.Context, question string, k int) ([]models.ScoredChunk, error) {
	ctx, span := e.tracer.Start(ctx, "search.retrieve")
	defer span.End()

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: question cannot be empty", models.ErrInvalidArgument)
	}
	if k <= 0 {
		k = e.config.TopK
	}
	vec, err := e.embedder.Embed(ctx, question)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}
	hits, err := e.store.Search(ctx, vec, k)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	span.SetAttributes(attribute.Int("hits", len(hits)))
	return hits, nil
}

// Strategies lists the strategies with a registered generator.
func (e *Engine) Strategies() []models.Strategy {
	out := make([]models.Strategy, 0, len(e.generators))
	for _, s := range []models.Strategy{models.StrategyTemplate, models.StrategyGenerative} {
		if _, ok := e.generators[s]; ok {
			out = append(out, s)
		}
	}
	return out
}
