// Package storage persists documents, chunks and their embeddings so the
// vector store can be rebuilt after a restart.
package storage

import (
	"context"
	"fmt"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/models"
)

// Metadata keys recorded alongside the corpus.
const (
	MetaEmbeddingModel      = "embedding_model"
	MetaEmbeddingDimensions = "embedding_dimensions"
)

// Storage defines document and chunk persistence operations.
type Storage interface {
	// ReplaceDocument stores doc and its chunks in one transaction, removing
	// any previous version. CreatedAt survives replacement.
	ReplaceDocument(ctx context.Context, doc *models.Document, chunks []models.Chunk) error
	// DeleteDocument removes a document and its chunks. Unknown ids are not an error.
	DeleteDocument(ctx context.Context, id string) error
	// Clear removes every document and chunk. Metadata is kept.
	Clear(ctx context.Context) error

	GetDocument(ctx context.Context, id string) (*models.Document, error)
	ListDocuments(ctx context.Context, offset, limit int) ([]*models.Document, error)
	// LoadChunks returns every chunk, embeddings included, in insertion order.
	LoadChunks(ctx context.Context) ([]models.Chunk, error)

	CountDocuments(ctx context.Context) (int64, error)
	CountChunks(ctx context.Context) (int64, error)

	// GetMeta returns the value for key and whether it was set.
	GetMeta(ctx context.Context, key string) (string, bool, error)
	SetMeta(ctx context.Context, key, value string) error

	Close() error
}

// Open returns the configured backend. The "memory" driver keeps nothing on
// disk and yields a nil Storage.
func Open(cfg config.StorageConfig) (Storage, error) {
	switch cfg.Driver {
	case "", "sqlite", "sqlite3":
		s, err := NewSQLiteStorage(cfg.DatabasePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "bolt", "bbolt":
		s, err := NewBoltStorage(cfg.DatabasePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "memory":
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: unknown storage driver %q (supported: sqlite, bolt, memory)", models.ErrInvalidConfiguration, cfg.Driver)
	}
}

func notFound(id string) error {
	return fmt.Errorf("%w: document %s", models.ErrNotFound, id)
}
