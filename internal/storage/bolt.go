package storage

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/pkg/utils"
)

var (
	bucketDocs      = []byte("docs")
	bucketChunks    = []byte("chunks")
	bucketDocChunks = []byte("doc_chunks")
	bucketMeta      = []byte("meta")
)

// BoltStorage implements Storage on a single bbolt file. Chunks are keyed by
// the bucket sequence, so a cursor walk returns them in insertion order.
type BoltStorage struct {
	db *bbolt.DB
}

type docRecord struct {
	Title     string                 `json:"title"`
	Content   string                 `json:"content"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Chunks    int                    `json:"chunks"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

type chunkRecord struct {
	DocumentID string `json:"doc_id"`
	ChunkIndex int    `json:"chunk_index"`
	Content    string `json:"content"`
	Start      int    `json:"start"`
	End        int    `json:"end"`
	Embedding  []byte `json:"embedding"`
}

// NewBoltStorage opens or creates the bbolt database at path.
func NewBoltStorage(path string) (*BoltStorage, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketDocs, bucketChunks, bucketDocChunks, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &BoltStorage{db: db}, nil
}

func seqKey(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return k
}

// deleteChunks removes the chunks of id within tx.
func deleteChunks(tx *bbolt.Tx, id string) error {
	docChunks := tx.Bucket(bucketDocChunks)
	raw := docChunks.Get([]byte(id))
	if raw == nil {
		return nil
	}
	var seqs []uint64
	if err := json.Unmarshal(raw, &seqs); err != nil {
		return fmt.Errorf("corrupt chunk list for %s: %w", id, err)
	}
	chunks := tx.Bucket(bucketChunks)
	for _, seq := range seqs {
		if err := chunks.Delete(seqKey(seq)); err != nil {
			return err
		}
	}
	return docChunks.Delete([]byte(id))
}

// ReplaceDocument writes doc and chunks in one update transaction.
func (s *BoltStorage) ReplaceDocument(ctx context.Context, doc *models.Document, chunks []models.Chunk) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		docs := tx.Bucket(bucketDocs)
		now := time.Now()
		created := now
		if raw := docs.Get([]byte(doc.ID)); raw != nil {
			var prev docRecord
			if err := json.Unmarshal(raw, &prev); err == nil {
				created = prev.CreatedAt
			}
		}
		doc.CreatedAt = created
		doc.UpdatedAt = now
		doc.Chunks = len(chunks)

		if err := deleteChunks(tx, doc.ID); err != nil {
			return err
		}

		data, err := json.Marshal(docRecord{
			Title:     doc.Title,
			Content:   doc.Content,
			Metadata:  doc.Metadata,
			Chunks:    doc.Chunks,
			CreatedAt: doc.CreatedAt,
			UpdatedAt: doc.UpdatedAt,
		})
		if err != nil {
			return fmt.Errorf("failed to marshal document: %w", err)
		}
		if err := docs.Put([]byte(doc.ID), data); err != nil {
			return err
		}

		bucket := tx.Bucket(bucketChunks)
		seqs := make([]uint64, 0, len(chunks))
		for _, c := range chunks {
			seq, err := bucket.NextSequence()
			if err != nil {
				return err
			}
			data, err := json.Marshal(chunkRecord{
				DocumentID: doc.ID,
				ChunkIndex: c.ChunkIndex,
				Content:    c.Content,
				Start:      c.Start,
				End:        c.End,
				Embedding:  utils.Float32sToBytes(c.Embedding),
			})
			if err != nil {
				return err
			}
			if err := bucket.Put(seqKey(seq), data); err != nil {
				return err
			}
			seqs = append(seqs, seq)
		}
		list, err := json.Marshal(seqs)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketDocChunks).Put([]byte(doc.ID), list)
	})
}

// DeleteDocument removes a document and its chunks.
func (s *BoltStorage) DeleteDocument(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := deleteChunks(tx, id); err != nil {
			return err
		}
		return tx.Bucket(bucketDocs).Delete([]byte(id))
	})
}

// Clear drops and recreates the document and chunk buckets.
func (s *BoltStorage) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketDocs, bucketChunks, bucketDocChunks} {
			if err := tx.DeleteBucket(name); err != nil {
				return err
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return err
			}
		}
		return nil
	})
}

func decodeDoc(id string, raw []byte) (*models.Document, error) {
	var rec docRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("corrupt document %s: %w", id, err)
	}
	return &models.Document{
		ID:        id,
		Title:     rec.Title,
		Content:   rec.Content,
		Metadata:  rec.Metadata,
		Chunks:    rec.Chunks,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}, nil
}

// GetDocument returns a document by ID.
func (s *BoltStorage) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	var doc *models.Document
	err := s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(bucketDocs).Get([]byte(id))
		if raw == nil {
			return notFound(id)
		}
		var err error
		doc, err = decodeDoc(id, raw)
		return err
	})
	return doc, err
}

// ListDocuments returns documents, newest first, without their content.
func (s *BoltStorage) ListDocuments(ctx context.Context, offset, limit int) ([]*models.Document, error) {
	var docs []*models.Document
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDocs).ForEach(func(k, v []byte) error {
			doc, err := decodeDoc(string(k), v)
			if err != nil {
				return err
			}
			doc.Content = ""
			docs = append(docs, doc)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(docs, func(i, j int) bool {
		if !docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].CreatedAt.After(docs[j].CreatedAt)
		}
		return docs[i].ID < docs[j].ID
	})
	if offset >= len(docs) {
		return nil, nil
	}
	docs = docs[offset:]
	if limit > 0 && limit < len(docs) {
		docs = docs[:limit]
	}
	return docs, nil
}

// LoadChunks returns all chunks in insertion order.
func (s *BoltStorage) LoadChunks(ctx context.Context) ([]models.Chunk, error) {
	var chunks []models.Chunk
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketChunks).ForEach(func(_, v []byte) error {
			var rec chunkRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			emb, err := utils.BytesToFloat32s(rec.Embedding)
			if err != nil {
				return fmt.Errorf("chunk %s#%d: %w", rec.DocumentID, rec.ChunkIndex, err)
			}
			chunks = append(chunks, models.Chunk{
				DocumentID: rec.DocumentID,
				ChunkIndex: rec.ChunkIndex,
				Content:    rec.Content,
				Start:      rec.Start,
				End:        rec.End,
				Embedding:  emb,
			})
			return nil
		})
	})
	return chunks, err
}

// CountDocuments returns the total number of documents.
func (s *BoltStorage) CountDocuments(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = int64(tx.Bucket(bucketDocs).Stats().KeyN)
		return nil
	})
	return n, err
}

// CountChunks returns the total number of chunks.
func (s *BoltStorage) CountChunks(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = int64(tx.Bucket(bucketChunks).Stats().KeyN)
		return nil
	})
	return n, err
}

// GetMeta returns a metadata value.
func (s *BoltStorage) GetMeta(ctx context.Context, key string) (string, bool, error) {
	var value string
	var ok bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		if raw := tx.Bucket(bucketMeta).Get([]byte(key)); raw != nil {
			value, ok = string(raw), true
		}
		return nil
	})
	return value, ok, err
}

// SetMeta sets a metadata value.
func (s *BoltStorage) SetMeta(ctx context.Context, key, value string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketMeta).Put([]byte(key), []byte(value))
	})
}

// Close closes the database file.
func (s *BoltStorage) Close() error {
	return s.db.Close()
}

var _ Storage = (*BoltStorage)(nil)
