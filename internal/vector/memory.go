package vector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/hyperjump/kotae/internal/models"
)

var errClosed = errors.New("vector store closed")

type entry struct {
	chunk models.Chunk
	norm  float64
}

// MemoryStore is an exact in-memory vector store. Searches scan every entry,
// so results never depend on an approximate index. A single RWMutex lets
// searches run concurrently while writers are exclusive.
type MemoryStore struct {
	dimensions int
	entries    []entry
	keys       map[string]struct{}
	perDoc     map[string]int
	closed     bool
	mu         sync.RWMutex
}

// NewMemoryStore creates an empty store for vectors of the given dimension.
func NewMemoryStore(dimensions int) (*MemoryStore, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("%w: dimensions must be positive, got %d", models.ErrInvalidConfiguration, dimensions)
	}
	return &MemoryStore{
		dimensions: dimensions,
		keys:       make(map[string]struct{}),
		perDoc:     make(map[string]int),
	}, nil
}

// validate checks a batch against the store, ignoring chunks of skipDoc,
// which the caller is about to remove.
func (m *MemoryStore) validate(chunks []models.Chunk, skipDoc string) error {
	seen := make(map[string]struct{}, len(chunks))
	for i := range chunks {
		c := &chunks[i]
		if c.DocumentID == "" {
			return fmt.Errorf("%w: chunk %d has no document id", models.ErrInvalidArgument, i)
		}
		if c.ChunkIndex < 0 {
			return fmt.Errorf("%w: chunk %s has negative index", models.ErrInvalidArgument, c.Key())
		}
		if len(c.Embedding) != m.dimensions {
			return fmt.Errorf("%w: chunk %s has dimension %d, expected %d", models.ErrInvalidArgument, c.Key(), len(c.Embedding), m.dimensions)
		}
		key := c.Key()
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: duplicate chunk %s in batch", models.ErrInvalidArgument, key)
		}
		seen[key] = struct{}{}
		if _, exists := m.keys[key]; exists && c.DocumentID != skipDoc {
			return fmt.Errorf("%w: chunk %s already stored", models.ErrInvalidArgument, key)
		}
	}
	return nil
}

func (m *MemoryStore) appendLocked(chunks []models.Chunk) {
	for _, c := range chunks {
		vec := make([]float32, len(c.Embedding))
		copy(vec, c.Embedding)
		c.Embedding = vec
		m.entries = append(m.entries, entry{chunk: c, norm: L2Norm(vec)})
		m.keys[c.Key()] = struct{}{}
		m.perDoc[c.DocumentID]++
	}
}

func (m *MemoryStore) deleteLocked(documentID string) int {
	n := m.perDoc[documentID]
	if n == 0 {
		return 0
	}
	kept := m.entries[:0]
	for _, e := range m.entries {
		if e.chunk.DocumentID == documentID {
			delete(m.keys, e.chunk.Key())
			continue
		}
		kept = append(kept, e)
	}
	// Drop references held by the tail of the reused backing array.
	for i := len(kept); i < len(m.entries); i++ {
		m.entries[i] = entry{}
	}
	m.entries = kept
	delete(m.perDoc, documentID)
	return n
}

// Insert validates every chunk, then appends them all.
func (m *MemoryStore) Insert(ctx context.Context, chunks []models.Chunk) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errClosed
	}
	if err := m.validate(chunks, ""); err != nil {
		return err
	}
	m.appendLocked(chunks)
	return nil
}

// Search ranks every stored chunk by cosine similarity to query. Equal scores
// keep insertion order.
func (m *MemoryStore) Search(ctx context.Context, query []float32, k int) ([]models.ScoredChunk, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", models.ErrInvalidArgument, k)
	}
	if len(query) != m.dimensions {
		return nil, fmt.Errorf("%w: query dimension %d, expected %d", models.ErrInvalidArgument, len(query), m.dimensions)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, errClosed
	}
	if len(m.entries) == 0 {
		return []models.ScoredChunk{}, nil
	}

	qnorm := L2Norm(query)
	type scored struct {
		idx   int
		score float64
	}
	scores := make([]scored, len(m.entries))
	for i := range m.entries {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		e := &m.entries[i]
		scores[i] = scored{idx: i, score: cosineWithNorms(query, e.chunk.Embedding, qnorm, e.norm)}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	if k > len(scores) {
		k = len(scores)
	}
	results := make([]models.ScoredChunk, k)
	for i := 0; i < k; i++ {
		c := m.entries[scores[i].idx].chunk
		c.Embedding = nil
		results[i] = models.ScoredChunk{Chunk: c, Score: scores[i].score}
	}
	return results, nil
}

// DeleteByDocument removes all chunks of documentID. Unknown ids remove nothing.
func (m *MemoryStore) DeleteByDocument(ctx context.Context, documentID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, errClosed
	}
	return m.deleteLocked(documentID), nil
}

// ValidateReplace reports the error Replace would return for the same
// arguments without changing the store.
func (m *MemoryStore) ValidateReplace(documentID string, chunks []models.Chunk) error {
	if err := checkOwner(documentID, chunks); err != nil {
		return err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return errClosed
	}
	return m.validate(chunks, documentID)
}

func checkOwner(documentID string, chunks []models.Chunk) error {
	for i := range chunks {
		if chunks[i].DocumentID != documentID {
			return fmt.Errorf("%w: chunk %s does not belong to %s", models.ErrInvalidArgument, chunks[i].Key(), documentID)
		}
	}
	return nil
}

// Replace removes the chunks of documentID and inserts chunks under one lock,
// so no search observes a partially replaced document. Every chunk must
// belong to documentID. On a validation error nothing changes.
func (m *MemoryStore) Replace(ctx context.Context, documentID string, chunks []models.Chunk) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := checkOwner(documentID, chunks); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, errClosed
	}
	if err := m.validate(chunks, documentID); err != nil {
		return 0, err
	}
	removed := m.deleteLocked(documentID)
	m.appendLocked(chunks)
	return removed, nil
}

// Clear removes every chunk. The dimension is unchanged.
func (m *MemoryStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errClosed
	}
	m.entries = nil
	m.keys = make(map[string]struct{})
	m.perDoc = make(map[string]int)
	return nil
}

// Stats reports chunk and document counts.
func (m *MemoryStore) Stats() models.Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return models.Stats{
		TotalDocuments: len(m.entries),
		Dimension:      m.dimensions,
		Documents:      len(m.perDoc),
	}
}

// Dimensions returns the vector dimension.
func (m *MemoryStore) Dimensions() int {
	return m.dimensions
}

// Close releases the entries. Later calls fail.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.entries = nil
	m.keys = nil
	m.perDoc = nil
	return nil
}

var _ Store = (*MemoryStore)(nil)
