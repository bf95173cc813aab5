// Package vector holds passage embeddings and answers nearest-neighbor queries.
package vector

import (
	"context"

	"github.com/hyperjump/kotae/internal/models"
)

// Store persists (vector, passage, document id, chunk index) tuples and
// searches them by cosine similarity.
type Store interface {
	// Insert appends chunks. Either every chunk is stored or none is.
	Insert(ctx context.Context, chunks []models.Chunk) error
	// Search returns at most k chunks by descending similarity to query.
	Search(ctx context.Context, query []float32, k int) ([]models.ScoredChunk, error)
	// DeleteByDocument removes every chunk of documentID and reports how many were removed.
	DeleteByDocument(ctx context.Context, documentID string) (int, error)
	// Replace swaps the chunks of documentID for chunks in one step.
	Replace(ctx context.Context, documentID string, chunks []models.Chunk) (int, error)
	// ValidateReplace returns the validation error Replace would report, changing nothing.
	ValidateReplace(documentID string, chunks []models.Chunk) error
	Clear(ctx context.Context) error
	Stats() models.Stats
	Dimensions() int
	Close() error
}
