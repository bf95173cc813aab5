package main

import (
	"context"
	"fmt"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/generate"
	"github.com/hyperjump/kotae/internal/indexer"
	"github.com/hyperjump/kotae/internal/search"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vector"
	"go.uber.org/zap"
)

// Components holds initialized services.
type Components struct {
	Storage   storage.Storage
	Embedder  embedding.Embedder
	Store     *vector.MemoryStore
	Generator *generate.Generative
	Engine    *search.Engine
	Indexer   *indexer.Indexer
}

// Close releases everything in reverse order of creation.
func (c *Components) Close() {
	if c.Generator != nil {
		_ = c.Generator.Close()
	}
	if c.Store != nil {
		_ = c.Store.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

// initializeComponents wires storage, embedder, vector store, indexer and
// query engine. With restore set the vector store is rebuilt from storage;
// commands that wipe the index skip it so a model change can be recovered.
func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger, restore bool) (c *Components, err error) {
	c = &Components{}
	defer func() {
		if err != nil {
			c.Close()
			c = nil
		}
	}()

	if c.Storage, err = storage.Open(cfg.Storage); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	if c.Embedder, err = embedding.New(ctx, cfg.Embedding, logger); err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	if c.Store, err = vector.NewMemoryStore(c.Embedder.Dimensions()); err != nil {
		return nil, fmt.Errorf("failed to initialize vector store: %w", err)
	}

	idxOpts := []indexer.IndexerOption{
		indexer.WithLogger(logger),
		indexer.WithExtractor(extract.NewExtractor()),
	}
	if c.Storage != nil {
		idxOpts = append(idxOpts, indexer.WithStorage(c.Storage))
	}
	if c.Indexer, err = indexer.NewIndexer(c.Store, c.Embedder, cfg.Chunking, idxOpts...); err != nil {
		return nil, err
	}
	if restore {
		if _, err = c.Indexer.Restore(ctx); err != nil {
			return nil, fmt.Errorf("failed to restore index (run \"kotae clear\" or \"kotae reindex\" after changing the embedding model): %w", err)
		}
	}

	// A generator that cannot be built leaves the template strategy in place.
	gen, genErr := generate.New(ctx, cfg.Generation, logger)
	if genErr != nil {
		logger.Warn("generative answers disabled", zap.String("provider", cfg.Generation.Provider), zap.Error(genErr))
	}
	engineOpts := []search.EngineOption{search.WithLogger(logger)}
	if gen != nil {
		c.Generator = gen
		engineOpts = append(engineOpts, search.WithGenerator(gen))
	}
	if c.Engine, err = search.NewEngine(c.Store, c.Embedder, cfg.Query, engineOpts...); err != nil {
		return nil, err
	}
	return c, nil
}
