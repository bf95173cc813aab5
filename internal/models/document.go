// Package models defines core data structures for documents, chunks, questions and answers.
package models

import (
	"fmt"
	"time"
)

// Document represents an ingested document. Re-ingesting the same ID supersedes it.
type Document struct {
	ID        string                 `json:"id" db:"id"`
	Title     string                 `json:"title" db:"title"`
	Content   string                 `json:"content,omitempty" db:"content"`
	Metadata  map[string]interface{} `json:"metadata,omitempty" db:"metadata"`
	Chunks    int                    `json:"chunks" db:"chunks"`
	CreatedAt time.Time              `json:"created_at" db:"created_at"`
	UpdatedAt time.Time              `json:"updated_at" db:"updated_at"`
}

// Chunk is a contiguous slice of a document's text, the unit of retrieval.
// Start and End are rune offsets into the preprocessed document content.
type Chunk struct {
	DocumentID string    `json:"document_id" db:"document_id"`
	ChunkIndex int       `json:"chunk_index" db:"chunk_index"`
	Content    string    `json:"content" db:"content"`
	Start      int       `json:"start" db:"start_offset"`
	End        int       `json:"end" db:"end_offset"`
	Embedding  []float32 `json:"-" db:"embedding"`
}

// Key returns the stable identity of the chunk.
func (c *Chunk) Key() string {
	return fmt.Sprintf("%s#%d", c.DocumentID, c.ChunkIndex)
}

// DocumentInput is the input for creating or replacing a document.
type DocumentInput struct {
	ID       string                 `json:"id"`
	Title    string                 `json:"title,omitempty"`
	Content  string                 `json:"content"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// ScoredChunk is a single retrieval hit.
type ScoredChunk struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

// Stats is a derived view of the vector store. TotalDocuments counts chunks.
type Stats struct {
	TotalDocuments int `json:"total_documents"`
	Dimension      int `json:"dimension"`
	Documents      int `json:"documents"`
}
