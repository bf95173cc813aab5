package search

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/indexer"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/vector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDims = 512

func queryConfig() config.QueryConfig {
	return config.QueryConfig{TopK: 4, MinScore: 0.1, DefaultStrategy: "template"}
}

// newCorpus returns an engine and indexer sharing one store.
func newCorpus(t *testing.T, emb embedding.Embedder, opts ...EngineOption) (*Engine, *indexer.Indexer) {
	t.Helper()
	store, err := vector.NewMemoryStore(testDims)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	idx, err := indexer.NewIndexer(store, embedding.NewHashingEmbedder(testDims),
		config.ChunkingConfig{ChunkSize: 500, ChunkOverlap: 100, Parallelism: 2})
	require.NoError(t, err)
	e, err := NewEngine(store, emb, queryConfig(), opts...)
	require.NoError(t, err)
	return e, idx
}

func ingestHRPolicy(t *testing.T, idx *indexer.Indexer) {
	t.Helper()
	_, err := idx.Ingest(context.Background(), &models.DocumentInput{
		ID: "hr-policy",
		Content: "Employees receive 15 vacation days per year. Sick leave is handled separately. " +
			"The office is closed on public holidays.",
	})
	require.NoError(t, err)
	_, err = idx.Ingest(context.Background(), &models.DocumentInput{
		ID:      "it-support",
		Content: "Reset your password through the self-service portal. Hardware problems go to the help desk.",
	})
	require.NoError(t, err)
}

func TestEngine_templateAnswersFromPolicy(t *testing.T) {
	e, idx := newCorpus(t, embedding.NewHashingEmbedder(testDims))
	ingestHRPolicy(t, idx)

	ans := e.Ask(context.Background(), &models.Question{Text: "How many vacation days do employees receive?"})
	require.Equal(t, models.StatusOK, ans.Status, ans.Text)
	assert.Contains(t, ans.Text, "15 vacation days")
	assert.Equal(t, models.StrategyTemplate, ans.Used)
	assert.False(t, ans.Fallback)
	require.NotEmpty(t, ans.Sources)
	assert.Equal(t, "hr-policy", ans.Sources[0].DocumentID)
	assert.NotEmpty(t, ans.ID)

	text := e.AskQuestion(context.Background(), "How many vacation days do employees receive?", false)
	assert.Contains(t, text, "15 vacation days")
}

func TestEngine_emptyQuestion(t *testing.T) {
	e, _ := newCorpus(t, embedding.NewHashingEmbedder(testDims))
	for _, q := range []string{"", "   ", "\n\t"} {
		assert.NotPanics(t, func() {
			assert.Equal(t, models.AnswerEmptyQuestion, e.AskQuestion(context.Background(), q, false))
		})
	}
	ans := e.Ask(context.Background(), nil)
	assert.Equal(t, models.StatusInvalidQuestion, ans.Status)
	assert.False(t, ans.OK())
}

func TestEngine_emptyCorpus(t *testing.T) {
	e, _ := newCorpus(t, embedding.NewHashingEmbedder(testDims))
	ans := e.Ask(context.Background(), &models.Question{Text: "What is the vacation policy?"})
	assert.Equal(t, models.StatusNoResults, ans.Status)
	assert.Equal(t, models.AnswerNoRelevantInfo, ans.Text)
	assert.Empty(t, ans.Sources)
}

// zeroEmbedder embeds every question as the zero vector, which scores 0
// against every passage, or fails with err.
type zeroEmbedder struct {
	embedding.Embedder
	err error
}

func (f *zeroEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return make([]float32, testDims), nil
}

func TestEngine_minScoreFiltersUnrelatedPassages(t *testing.T) {
	emb := &zeroEmbedder{Embedder: embedding.NewHashingEmbedder(testDims)}
	e, idx := newCorpus(t, emb)
	ingestHRPolicy(t, idx)

	ans := e.Ask(context.Background(), &models.Question{Text: "zzz"})
	assert.Equal(t, models.StatusNoResults, ans.Status)
	assert.Equal(t, models.AnswerNoRelevantInfo, ans.Text)
}

func TestEngine_embedFailure(t *testing.T) {
	emb := &zeroEmbedder{Embedder: embedding.NewHashingEmbedder(testDims), err: models.ErrEmbeddingUnavailable}
	e, idx := newCorpus(t, emb)
	ingestHRPolicy(t, idx)

	ans := e.Ask(context.Background(), &models.Question{Text: "vacation days"})
	assert.Equal(t, models.StatusUnavailable, ans.Status)
	assert.Equal(t, models.AnswerUnableToProcess, ans.Text)

	_, err := e.Retrieve(context.Background(), "vacation days", 2)
	assert.ErrorIs(t, err, models.ErrEmbeddingUnavailable)
}

type stubGenerator struct {
	text  string
	err   error
	panic bool
	calls int
}

func (g *stubGenerator) Strategy() models.Strategy { return models.StrategyGenerative }

func (g *stubGenerator) Generate(ctx context.Context, question string, passages []models.ScoredChunk) (string, error) {
	g.calls++
	if g.panic {
		panic("boom")
	}
	return g.text, g.err
}

func TestEngine_generativeWithoutGeneratorFallsBack(t *testing.T) {
	e, idx := newCorpus(t, embedding.NewHashingEmbedder(testDims))
	ingestHRPolicy(t, idx)

	ans := e.Ask(context.Background(), &models.Question{Text: "How many vacation days?", Strategy: models.StrategyGenerative})
	assert.Equal(t, models.StatusDegraded, ans.Status)
	assert.True(t, ans.OK())
	assert.True(t, ans.Fallback)
	assert.Equal(t, models.StrategyGenerative, ans.Requested)
	assert.Equal(t, models.StrategyTemplate, ans.Used)
	assert.NotEmpty(t, ans.FallbackReason)
	assert.Contains(t, ans.Text, "15 vacation days")
}

func TestEngine_generatorFailureFallsBack(t *testing.T) {
	gen := &stubGenerator{err: models.ErrModelTimeout}
	e, idx := newCorpus(t, embedding.NewHashingEmbedder(testDims), WithGenerator(gen))
	ingestHRPolicy(t, idx)

	ans := e.Ask(context.Background(), &models.Question{Text: "How many vacation days?", Strategy: "advanced"})
	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, models.StatusDegraded, ans.Status)
	assert.Equal(t, "generator timed out", ans.FallbackReason)
	assert.Contains(t, ans.Text, "15 vacation days")
}

func TestEngine_generatorSuccess(t *testing.T) {
	gen := &stubGenerator{text: "Fifteen days [1]."}
	e, idx := newCorpus(t, embedding.NewHashingEmbedder(testDims), WithGenerator(gen))
	ingestHRPolicy(t, idx)

	text := e.AskQuestion(context.Background(), "How many vacation days?", true)
	assert.Equal(t, "Fifteen days [1].", text)
	assert.ElementsMatch(t, []models.Strategy{models.StrategyTemplate, models.StrategyGenerative}, e.Strategies())
}

func TestEngine_panicBecomesUnableToProcess(t *testing.T) {
	gen := &stubGenerator{panic: true}
	e, idx := newCorpus(t, embedding.NewHashingEmbedder(testDims), WithGenerator(gen))
	ingestHRPolicy(t, idx)

	var ans *models.Answer
	require.NotPanics(t, func() {
		ans = e.Ask(context.Background(), &models.Question{Text: "vacation days", Strategy: models.StrategyGenerative})
	})
	assert.Equal(t, models.StatusUnavailable, ans.Status)
	assert.Equal(t, models.AnswerUnableToProcess, ans.Text)
}

func TestEngine_invalidQuestion(t *testing.T) {
	e, _ := newCorpus(t, embedding.NewHashingEmbedder(testDims))
	ans := e.Ask(context.Background(), &models.Question{Text: "hello", Strategy: "poetry"})
	assert.Equal(t, models.StatusInvalidQuestion, ans.Status)
	assert.True(t, strings.Contains(ans.Text, "unknown strategy"), ans.Text)
}

func TestEngine_retrieveOrdering(t *testing.T) {
	e, idx := newCorpus(t, embedding.NewHashingEmbedder(testDims))
	require.NoError(t, idx.AddSampleDocuments(context.Background()))

	hits, err := e.Retrieve(context.Background(), "expense report receipts", 3)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.LessOrEqual(t, len(hits), 3)
	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
	}
	assert.Equal(t, "expense-policy", hits[0].Chunk.DocumentID)

	_, err = e.Retrieve(context.Background(), " ", 3)
	assert.True(t, errors.Is(err, models.ErrInvalidArgument))
}

func TestNewEngine_dimensionMismatch(t *testing.T) {
	store, err := vector.NewMemoryStore(8)
	require.NoError(t, err)
	_, err = NewEngine(store, embedding.NewHashingEmbedder(16), queryConfig())
	assert.ErrorIs(t, err, models.ErrInvalidConfiguration)
}

func TestProcessQuestion_defaults(t *testing.T) {
	cfg := config.QueryConfig{TopK: 7, DefaultStrategy: "generative"}
	q := &models.Question{Text: "  hi  "}
	require.NoError(t, ProcessQuestion(q, cfg))
	assert.Equal(t, "hi", q.Text)
	assert.Equal(t, 7, q.TopK)
	assert.Equal(t, models.StrategyGenerative, q.Strategy)

	q = &models.Question{Text: "hi", Strategy: "basic", TopK: 2}
	require.NoError(t, ProcessQuestion(q, cfg))
	assert.Equal(t, models.StrategyTemplate, q.Strategy)
	assert.Equal(t, 2, q.TopK)
}
