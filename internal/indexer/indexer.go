// Package indexer turns documents into searchable passages: it chunks and
// embeds text and commits the result to the vector store and durable storage.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/fileid"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vector"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// IngestResult describes one committed document.
type IngestResult struct {
	DocumentID string        `json:"document_id"`
	Chunks     int           `json:"chunks"`
	Replaced   int           `json:"replaced"`
	Skipped    bool          `json:"skipped,omitempty"`
	Took       time.Duration `json:"took"`
}

// IngestFailure records a document that could not be ingested.
type IngestFailure struct {
	DocumentID string `json:"document_id"`
	Err        error  `json:"-"`
	Message    string `json:"error"`
}

// BatchResult collects the outcome of IngestBatch, in input order.
type BatchResult struct {
	Ingested []*IngestResult `json:"ingested"`
	Failed   []IngestFailure `json:"failed,omitempty"`
}

// Indexer indexes documents into durable storage and the vector store.
type Indexer struct {
	store       vector.Store
	storage     storage.Storage // nil keeps the index in memory only
	embedder    embedding.Embedder
	chunker     *Chunker
	extractor   *extract.Extractor
	parallelism int
	logger      *zap.Logger

	// commitMu orders commits so storage and store apply them identically.
	commitMu    sync.Mutex
	metaWritten bool
	// sources maps document ids to the file they were indexed from when
	// there is no durable storage to hold that metadata.
	sources map[string]string
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for ingestion events.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// WithStorage persists committed documents to s.
func WithStorage(s storage.Storage) IndexerOption {
	return func(idx *Indexer) { idx.storage = s }
}

// WithExtractor sets the extractor used by IndexFile. Without one, files are read as plain text.
func WithExtractor(e *extract.Extractor) IndexerOption {
	return func(idx *Indexer) { idx.extractor = e }
}

// NewIndexer creates an indexer. It fails with ErrInvalidConfiguration for
// bad chunk settings or when the embedder and store disagree on dimension.
func NewIndexer(store vector.Store, embedder embedding.Embedder, cfg config.ChunkingConfig, opts ...IndexerOption) (*Indexer, error) {
	chunker, err := NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	if embedder.Dimensions() != store.Dimensions() {
		return nil, fmt.Errorf("%w: embedder produces %d dimensions, store holds %d",
			models.ErrInvalidConfiguration, embedder.Dimensions(), store.Dimensions())
	}
	idx := &Indexer{
		store:       store,
		embedder:    embedder,
		chunker:     chunker,
		parallelism: max(cfg.Parallelism, 1),
		logger:      zap.NewNop(),
		sources:     make(map[string]string),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx, nil
}

type prepared struct {
	doc    *models.Document
	chunks []models.Chunk
	start  time.Time
}

// prepare chunks and embeds input without touching the store.
func (idx *Indexer) prepare(ctx context.Context, input *models.DocumentInput) (*prepared, error) {
	start := time.Now()
	if input == nil {
		return nil, fmt.Errorf("%w: nil document", models.ErrInvalidArgument)
	}
	id := strings.TrimSpace(input.ID)
	if id == "" {
		return nil, fmt.Errorf("%w: document id cannot be empty", models.ErrInvalidArgument)
	}
	content := Preprocess(input.Content)
	spans := idx.chunker.Chunk(content)
	if len(spans) == 0 {
		return nil, fmt.Errorf("%w: document %s has no text", models.ErrInvalidArgument, id)
	}

	embeddings, err := idx.embedder.EmbedBatch(ctx, Texts(spans))
	if err != nil {
		return nil, fmt.Errorf("failed to embed document %s: %w", id, err)
	}
	if len(embeddings) != len(spans) {
		return nil, fmt.Errorf("%w: %d embeddings for %d chunks", models.ErrEmbeddingUnavailable, len(embeddings), len(spans))
	}

	chunks := make([]models.Chunk, len(spans))
	for i, s := range spans {
		chunks[i] = models.Chunk{
			DocumentID: id,
			ChunkIndex: i,
			Content:    s.Text,
			Start:      s.Start,
			End:        s.End,
			Embedding:  embeddings[i],
		}
	}
	title := input.Title
	if title == "" {
		title = id
	}
	return &prepared{
		doc: &models.Document{
			ID:       id,
			Title:    title,
			Content:  content,
			Metadata: input.Metadata,
		},
		chunks: chunks,
		start:  start,
	}, nil
}

// commit makes a prepared document visible. The chunks are validated against
// the store and ctx is checked before storage is written; once the storage
// transaction commits, the store is updated regardless of ctx so both hold
// the same version.
func (idx *Indexer) commit(ctx context.Context, p *prepared) (*IngestResult, error) {
	idx.commitMu.Lock()
	defer idx.commitMu.Unlock()

	if err := idx.store.ValidateReplace(p.doc.ID, p.chunks); err != nil {
		return nil, fmt.Errorf("failed to index document %s: %w", p.doc.ID, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if idx.storage != nil {
		if err := idx.writeMetaLocked(ctx); err != nil {
			return nil, err
		}
		if err := idx.storage.ReplaceDocument(ctx, p.doc, p.chunks); err != nil {
			return nil, fmt.Errorf("failed to store document %s: %w", p.doc.ID, err)
		}
	}
	replaced, err := idx.store.Replace(context.WithoutCancel(ctx), p.doc.ID, p.chunks)
	if err != nil {
		return nil, fmt.Errorf("failed to index document %s: %w", p.doc.ID, err)
	}
	if src, ok := p.doc.Metadata[metaKeySourcePath].(string); ok {
		idx.sources[p.doc.ID] = src
	} else {
		delete(idx.sources, p.doc.ID)
	}
	res := &IngestResult{
		DocumentID: p.doc.ID,
		Chunks:     len(p.chunks),
		Replaced:   replaced,
		Took:       time.Since(p.start),
	}
	idx.logger.Info("document indexed",
		zap.String("doc_id", res.DocumentID),
		zap.Int("chunks", res.Chunks),
		zap.Int("replaced", res.Replaced),
		zap.Duration("took", res.Took))
	return res, nil
}

func (idx *Indexer) writeMetaLocked(ctx context.Context) error {
	if idx.metaWritten {
		return nil
	}
	if err := idx.storage.SetMeta(ctx, storage.MetaEmbeddingModel, idx.embedder.Model()); err != nil {
		return fmt.Errorf("failed to record embedding model: %w", err)
	}
	if err := idx.storage.SetMeta(ctx, storage.MetaEmbeddingDimensions, strconv.Itoa(idx.embedder.Dimensions())); err != nil {
		return fmt.Errorf("failed to record embedding dimensions: %w", err)
	}
	idx.metaWritten = true
	return nil
}

// Ingest chunks, embeds and commits one document, replacing any earlier
// version with the same ID. Nothing changes when it fails.
func (idx *Indexer) Ingest(ctx context.Context, input *models.DocumentInput) (*IngestResult, error) {
	p, err := idx.prepare(ctx, input)
	if err != nil {
		return nil, err
	}
	return idx.commit(ctx, p)
}

// IngestBatch prepares documents concurrently and commits them one at a time
// in input order. A failed document is recorded and the batch continues.
// Cancelling ctx stops the batch between documents; documents already
// committed stay, and the context error is returned with the partial result.
func (idx *Indexer) IngestBatch(ctx context.Context, inputs []*models.DocumentInput) (*BatchResult, error) {
	type slot struct {
		p    *prepared
		err  error
		done chan struct{}
	}
	slots := make([]slot, len(inputs))
	for i := range slots {
		slots[i].done = make(chan struct{})
	}

	var g errgroup.Group
	g.SetLimit(idx.parallelism)
	launched := make(chan struct{})
	go func() {
		defer close(launched)
		for i := range inputs {
			i := i
			g.Go(func() error {
				defer close(slots[i].done)
				if err := ctx.Err(); err != nil {
					slots[i].err = err
					return nil
				}
				slots[i].p, slots[i].err = idx.prepare(ctx, inputs[i])
				return nil
			})
		}
	}()
	defer func() {
		<-launched
		_ = g.Wait()
	}()

	result := &BatchResult{}
	for i := range inputs {
		select {
		case <-slots[i].done:
		case <-ctx.Done():
		}
		if err := ctx.Err(); err != nil {
			idx.logger.Warn("batch ingestion cancelled",
				zap.Int("committed", len(result.Ingested)),
				zap.Int("remaining", len(inputs)-i))
			return result, err
		}

		s := &slots[i]
		var res *IngestResult
		err := s.err
		if err == nil {
			res, err = idx.commit(ctx, s.p)
		}
		if err != nil {
			id := ""
			if inputs[i] != nil {
				id = inputs[i].ID
			}
			idx.logger.Error("document ingestion failed", zap.String("doc_id", id), zap.Error(err))
			result.Failed = append(result.Failed, IngestFailure{DocumentID: id, Err: err, Message: err.Error()})
			continue
		}
		result.Ingested = append(result.Ingested, res)
	}
	return result, nil
}

// ProcessDocument ingests text under id and reports success. It never
// panics; failures are logged.
func (idx *Indexer) ProcessDocument(ctx context.Context, text, id string) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			idx.logger.Error("panic while processing document", zap.String("doc_id", id), zap.Any("panic", r))
			ok = false
		}
	}()
	if strings.TrimSpace(text) == "" || strings.TrimSpace(id) == "" {
		idx.logger.Warn("refusing empty document", zap.String("doc_id", id))
		return false
	}
	if _, err := idx.Ingest(ctx, &models.DocumentInput{ID: id, Content: text}); err != nil {
		idx.logger.Error("failed to process document", zap.String("doc_id", id), zap.Error(err))
		return false
	}
	return true
}

// AddSampleDocuments ingests the built-in sample corpus. Running it again
// replaces the samples rather than duplicating them.
func (idx *Indexer) AddSampleDocuments(ctx context.Context) error {
	res, err := idx.IngestBatch(ctx, SampleDocuments())
	if err != nil {
		return err
	}
	if len(res.Failed) > 0 {
		return fmt.Errorf("failed to add %d sample documents: %w", len(res.Failed), res.Failed[0].Err)
	}
	return nil
}

// ClearAllDocuments removes every document from storage and the store.
func (idx *Indexer) ClearAllDocuments(ctx context.Context) error {
	idx.commitMu.Lock()
	defer idx.commitMu.Unlock()
	if idx.storage != nil {
		if err := idx.storage.Clear(ctx); err != nil {
			return fmt.Errorf("failed to clear storage: %w", err)
		}
	}
	if err := idx.store.Clear(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("failed to clear vector store: %w", err)
	}
	clear(idx.sources)
	idx.logger.Info("all documents cleared")
	return nil
}

// DeleteDocument removes one document and returns how many chunks it had.
// Unknown ids yield ErrNotFound.
func (idx *Indexer) DeleteDocument(ctx context.Context, id string) (int, error) {
	idx.commitMu.Lock()
	defer idx.commitMu.Unlock()
	return idx.deleteLocked(ctx, id)
}

// DeleteFileDocument removes the document indexed from path. When the
// document with that file's ID now comes from a different file, as after
// saving policy.txt as policy.md and deleting the old copy, it is kept and
// the call reports zero chunks. Unknown ids yield ErrNotFound.
func (idx *Indexer) DeleteFileDocument(ctx context.Context, path string) (int, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return 0, fmt.Errorf("absolute path: %w", err)
	}
	id := fileid.DocumentID(absPath)

	idx.commitMu.Lock()
	defer idx.commitMu.Unlock()
	src, err := idx.sourceLocked(ctx, id)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return 0, err
	}
	if src != "" && src != absPath {
		idx.logger.Debug("indexer keeping document from another file",
			zap.String("doc_id", id), zap.String("path", absPath), zap.String("source", src))
		return 0, nil
	}
	return idx.deleteLocked(ctx, id)
}

// sourceLocked returns the file id was indexed from, or "" when it was not
// indexed from a file.
func (idx *Indexer) sourceLocked(ctx context.Context, id string) (string, error) {
	if idx.storage == nil {
		return idx.sources[id], nil
	}
	doc, err := idx.storage.GetDocument(ctx, id)
	if err != nil {
		return "", err
	}
	src, _ := doc.Metadata[metaKeySourcePath].(string)
	return src, nil
}

func (idx *Indexer) deleteLocked(ctx context.Context, id string) (int, error) {
	stored := false
	if idx.storage != nil {
		if _, err := idx.storage.GetDocument(ctx, id); err == nil {
			stored = true
		} else if !errors.Is(err, models.ErrNotFound) {
			return 0, err
		}
		if err := idx.storage.DeleteDocument(ctx, id); err != nil {
			return 0, fmt.Errorf("failed to delete document: %w", err)
		}
	}
	n, err := idx.store.DeleteByDocument(context.WithoutCancel(ctx), id)
	if err != nil {
		return 0, fmt.Errorf("failed to delete from vector store: %w", err)
	}
	delete(idx.sources, id)
	if n == 0 && !stored {
		return 0, fmt.Errorf("%w: document %s", models.ErrNotFound, id)
	}
	idx.logger.Info("document deleted", zap.String("doc_id", id), zap.Int("chunks", n))
	return n, nil
}

// GetVectorStoreStats returns chunk and document counts of the live index.
func (idx *Indexer) GetVectorStoreStats() models.Stats {
	return idx.store.Stats()
}

// GetDocument returns a stored document. Without durable storage every id is unknown.
func (idx *Indexer) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	if idx.storage == nil {
		return nil, fmt.Errorf("%w: document %s", models.ErrNotFound, id)
	}
	return idx.storage.GetDocument(ctx, id)
}

// ListDocuments lists stored documents, newest first.
func (idx *Indexer) ListDocuments(ctx context.Context, offset, limit int) ([]*models.Document, error) {
	if idx.storage == nil {
		return []*models.Document{}, nil
	}
	docs, err := idx.storage.ListDocuments(ctx, offset, limit)
	if docs == nil && err == nil {
		docs = []*models.Document{}
	}
	return docs, err
}

// Restore rebuilds the vector store from durable storage and returns the
// number of chunks loaded. It refuses with ErrDimensionMismatch when the
// stored vectors came from a different embedding model.
func (idx *Indexer) Restore(ctx context.Context) (int, error) {
	if idx.storage == nil {
		return 0, nil
	}
	idx.commitMu.Lock()
	defer idx.commitMu.Unlock()

	stored, err := idx.storage.CountChunks(ctx)
	if err != nil {
		return 0, err
	}
	if stored == 0 {
		return 0, idx.store.Clear(ctx)
	}
	if dims, ok, err := idx.storage.GetMeta(ctx, storage.MetaEmbeddingDimensions); err != nil {
		return 0, err
	} else if ok && dims != strconv.Itoa(idx.embedder.Dimensions()) {
		return 0, fmt.Errorf("%w: index built with %s dimensions, embedder produces %d; clear or reindex",
			models.ErrDimensionMismatch, dims, idx.embedder.Dimensions())
	}
	if model, ok, err := idx.storage.GetMeta(ctx, storage.MetaEmbeddingModel); err != nil {
		return 0, err
	} else if ok && model != idx.embedder.Model() {
		return 0, fmt.Errorf("%w: index built with %s, embedder is %s; clear or reindex",
			models.ErrDimensionMismatch, model, idx.embedder.Model())
	}

	chunks, err := idx.storage.LoadChunks(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load chunks: %w", err)
	}
	if err := idx.store.Clear(ctx); err != nil {
		return 0, err
	}
	if err := idx.store.Insert(ctx, chunks); err != nil {
		return 0, fmt.Errorf("failed to restore vector store: %w", err)
	}
	idx.logger.Info("vector store restored", zap.Int("chunks", len(chunks)), zap.Int("documents", idx.store.Stats().Documents))
	return len(chunks), nil
}

const (
	metaKeySourcePath  = "source_path"
	metaKeySourceMtime = "source_mtime"
	metaKeySourceSize  = "source_size"
)

// IndexFile extracts and ingests the file at path. The document ID is the
// file name stem. Files unchanged since they were last indexed (same path,
// mtime and size) are skipped.
func (idx *Indexer) IndexFile(ctx context.Context, path string) (*IngestResult, error) {
	idx.logger.Debug("indexer indexing file", zap.String("path", path))
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: not a regular file: %s", models.ErrInvalidArgument, absPath)
	}
	docID := fileid.DocumentID(absPath)
	if idx.unchanged(ctx, absPath, docID, info) {
		idx.logger.Debug("indexer skipping unchanged file", zap.String("path", absPath))
		return &IngestResult{DocumentID: docID, Skipped: true}, nil
	}
	text, err := idx.extractContent(absPath)
	if err != nil {
		return nil, fmt.Errorf("extract content: %w", err)
	}
	return idx.Ingest(ctx, &models.DocumentInput{
		ID:      docID,
		Title:   filepath.Base(absPath),
		Content: text,
		Metadata: map[string]interface{}{
			metaKeySourcePath:  absPath,
			metaKeySourceMtime: strconv.FormatInt(info.ModTime().UnixNano(), 10),
			metaKeySourceSize:  strconv.FormatInt(info.Size(), 10),
		},
	})
}

// unchanged reports whether docID was indexed from absPath with the same mtime and size
// and is still present in the vector store.
func (idx *Indexer) unchanged(ctx context.Context, absPath, docID string, info os.FileInfo) bool {
	if idx.storage == nil {
		return false
	}
	doc, err := idx.storage.GetDocument(ctx, docID)
	if err != nil || doc.Metadata == nil {
		return false
	}
	if doc.Metadata[metaKeySourcePath] != absPath {
		return false
	}
	// Values are stored as strings to avoid JSON float64 precision loss (UnixNano exceeds 53 bits).
	return metadataInt64(doc.Metadata, metaKeySourceMtime) == info.ModTime().UnixNano() &&
		metadataInt64(doc.Metadata, metaKeySourceSize) == info.Size()
}

func metadataInt64(m map[string]interface{}, key string) int64 {
	switch n := m[key].(type) {
	case string:
		x, _ := strconv.ParseInt(n, 10, 64)
		return x
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}

// IndexDirectory walks dir recursively and indexes each regular file whose extension
// is in allowedExts (if non-nil and non-empty; otherwise all files). Returns the number
// of files indexed. A file that fails is logged and skipped.
func (idx *Indexer) IndexDirectory(ctx context.Context, dir string, allowedExts []string) (n int, err error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return 0, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return 0, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("not a directory: %s", absDir)
	}
	err = filepath.WalkDir(absDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if len(allowedExts) > 0 && !ExtensionAllowed(filepath.Ext(path), allowedExts) {
			return nil
		}
		// Resolve symlinks so we only index regular files
		finfo, statErr := os.Stat(path)
		if statErr != nil || !finfo.Mode().IsRegular() {
			return nil
		}
		res, indexErr := idx.IndexFile(ctx, path)
		if indexErr != nil {
			idx.logger.Warn("failed to index file", zap.String("path", path), zap.Error(indexErr))
			return nil
		}
		if !res.Skipped {
			n++
		}
		return nil
	})
	return n, err
}

func (idx *Indexer) extractContent(path string) (string, error) {
	if idx.extractor != nil {
		return idx.extractor.Extract(path)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(content), nil
}

// ExtensionAllowed reports whether ext matches one of allowed, ignoring case and leading dots.
func ExtensionAllowed(ext string, allowed []string) bool {
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	if extNorm == "" {
		return false
	}
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}
