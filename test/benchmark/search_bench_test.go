package benchmark

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/generate"
	"github.com/hyperjump/kotae/internal/indexer"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/search"
	"github.com/hyperjump/kotae/internal/vector"
)

const benchDims = 384

func BenchmarkMemoryStoreSearch(b *testing.B) {
	store, _ := vector.NewMemoryStore(benchDims)
	ctx := context.Background()
	chunks := make([]models.Chunk, 1000)
	for i := range chunks {
		emb := make([]float32, benchDims)
		emb[i%benchDims] = 1
		emb[(i*7)%benchDims] += 0.5
		chunks[i] = models.Chunk{
			DocumentID: fmt.Sprintf("doc-%d", i/10),
			ChunkIndex: i % 10,
			Content:    "chunk",
			Embedding:  emb,
		}
	}
	if err := store.Insert(ctx, chunks); err != nil {
		b.Fatal(err)
	}
	query := make([]float32, benchDims)
	query[0] = 1.0
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = store.Search(ctx, query, 4)
	}
}

func BenchmarkHashingEmbedder_Embed(b *testing.B) {
	e := embedding.NewHashingEmbedder(benchDims)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = e.Embed(ctx, "How many vacation days do employees receive per year?")
	}
}

func BenchmarkChunker(b *testing.B) {
	c, err := indexer.NewChunker(500, 100)
	if err != nil {
		b.Fatal(err)
	}
	text := strings.Repeat("Employees receive 15 vacation days per year. Unused days carry over until March. ", 200)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = c.Chunk(text)
	}
}

func BenchmarkAsk_template(b *testing.B) {
	emb := embedding.NewHashingEmbedder(benchDims)
	store, _ := vector.NewMemoryStore(benchDims)
	idx, err := indexer.NewIndexer(store, emb, config.ChunkingConfig{ChunkSize: 500, ChunkOverlap: 100, Parallelism: 4})
	if err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()
	if err := idx.AddSampleDocuments(ctx); err != nil {
		b.Fatal(err)
	}
	engine, err := search.NewEngine(store, emb, config.QueryConfig{TopK: 4, MinScore: 0.1, DefaultStrategy: "template"})
	if err != nil {
		b.Fatal(err)
	}
	q := &models.Question{Text: "How many vacation days do employees receive?"}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = engine.Ask(ctx, q)
	}
}

func BenchmarkFitPassages(b *testing.B) {
	passages := make([]models.ScoredChunk, 8)
	for i := range passages {
		passages[i] = models.ScoredChunk{
			Chunk: models.Chunk{DocumentID: fmt.Sprintf("doc-%d", i), Content: strings.Repeat("policy text sentence. ", 60)},
			Score: 1 - float64(i)/10,
		}
	}
	counter := generate.EstimateCounter{}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = generate.FitPassages(passages, 1000, counter)
	}
}
