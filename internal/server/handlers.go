package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/fileid"
	"github.com/hyperjump/kotae/internal/models"
	"go.uber.org/zap"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// AskRequest is the body of POST /api/v1/ask. Strategy wins over UseAdvanced.
type AskRequest struct {
	Question    string `json:"question"`
	Strategy    string `json:"strategy,omitempty"`
	UseAdvanced bool   `json:"use_advanced,omitempty"`
	TopK        int    `json:"top_k,omitempty"`
}

// RetrieveRequest is the body of POST /api/v1/retrieve.
type RetrieveRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k,omitempty"`
}

// Passage is one ranked retrieval hit.
type Passage struct {
	DocumentID string  `json:"document_id"`
	ChunkIndex int     `json:"chunk_index"`
	Content    string  `json:"content"`
	Score      float64 `json:"score"`
}

// RetrieveResponse lists passages by descending score.
type RetrieveResponse struct {
	Question string    `json:"question"`
	Passages []Passage `json:"passages"`
}

// StatsResponse reports the live index and the answer strategies on offer.
type StatsResponse struct {
	models.Stats
	Strategies []models.Strategy `json:"strategies"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, StatsResponse{
		Stats:      s.indexer.GetVectorStoreStats(),
		Strategies: s.engine.Strategies(),
	})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	strategy := models.Strategy(req.Strategy)
	if strategy == "" && req.UseAdvanced {
		strategy = models.StrategyGenerative
	}
	s.logger.Debug("ask request", zap.String("question", req.Question), zap.String("strategy", string(strategy)))
	answer := s.engine.Ask(r.Context(), &models.Question{Text: req.Question, Strategy: strategy, TopK: req.TopK})

	status := http.StatusOK
	switch answer.Status {
	case models.StatusInvalidQuestion:
		status = http.StatusBadRequest
	case models.StatusUnavailable:
		status = http.StatusServiceUnavailable
	}
	s.respondJSON(w, status, answer)
}

func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	var req RetrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	hits, err := s.engine.Retrieve(r.Context(), req.Question, req.TopK)
	if err != nil {
		s.respondErr(w, "retrieve failed", err)
		return
	}
	resp := RetrieveResponse{Question: req.Question, Passages: make([]Passage, len(hits))}
	for i, h := range hits {
		resp.Passages[i] = Passage{
			DocumentID: h.Chunk.DocumentID,
			ChunkIndex: h.Chunk.ChunkIndex,
			Content:    h.Chunk.Content,
			Score:      h.Score,
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSamples(w http.ResponseWriter, r *http.Request) {
	if err := s.indexer.AddSampleDocuments(r.Context()); err != nil {
		s.respondErr(w, "adding samples failed", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, s.indexer.GetVectorStoreStats())
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	offset, err := queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		s.respondError(w, http.StatusBadRequest, "invalid offset")
		return
	}
	limit, err := queryInt(r, "limit", defaultListLimit)
	if err != nil || limit <= 0 {
		s.respondError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	limit = min(limit, maxListLimit)
	docs, err := s.indexer.ListDocuments(r.Context(), offset, limit)
	if err != nil {
		s.respondErr(w, "list documents failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"documents": docs,
		"offset":    offset,
		"limit":     limit,
	})
}

func (s *Server) handleIngestDocument(w http.ResponseWriter, r *http.Request) {
	var input models.DocumentInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("ingest document request", zap.String("id", input.ID), zap.String("title", input.Title))
	res, err := s.indexer.Ingest(r.Context(), &input)
	if err != nil {
		s.respondErr(w, "ingestion failed", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, res)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if s.config.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if !extract.Supported(filepath.Ext(name)) {
		s.respondError(w, http.StatusUnsupportedMediaType, "unsupported file type: "+filepath.Ext(name))
		return
	}
	content, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, http.StatusRequestEntityTooLarge, "upload too large or unreadable")
		return
	}
	text, err := s.extractor.ExtractFile(name, content)
	if err != nil {
		s.logger.Warn("extraction failed", zap.String("file", name), zap.Error(err))
		s.respondError(w, http.StatusUnprocessableEntity, "could not extract text: "+err.Error())
		return
	}
	res, err := s.indexer.Ingest(r.Context(), &models.DocumentInput{
		ID:      fileid.DocumentID(name),
		Title:   name,
		Content: text,
		Metadata: map[string]interface{}{
			"filename":  name,
			"upload_id": uuid.NewString(),
			"size":      strconv.Itoa(len(content)),
		},
	})
	if err != nil {
		s.respondErr(w, "ingestion failed", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, res)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.indexer.GetDocument(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondErr(w, "get document failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete document request", zap.String("id", id))
	n, err := s.indexer.DeleteDocument(r.Context(), id)
	if err != nil {
		s.respondErr(w, "deletion failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"id": id, "chunks": n, "status": "deleted"})
}

func (s *Server) handleClearDocuments(w http.ResponseWriter, r *http.Request) {
	if err := s.indexer.ClearAllDocuments(r.Context()); err != nil {
		s.respondErr(w, "clear failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleWatchDirectoriesList(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"directories": s.watch.Directories()})
}

type watchAddRequest struct {
	Path string `json:"path"`
	Sync *bool  `json:"sync,omitempty"`
}

func (s *Server) handleWatchDirectoriesAdd(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	var req watchAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	abs, err := filepath.Abs(req.Path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			s.respondError(w, http.StatusNotFound, "directory not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !info.IsDir() {
		s.respondError(w, http.StatusBadRequest, "path is not a directory")
		return
	}
	syncExisting := true
	if req.Sync != nil {
		syncExisting = *req.Sync
	}
	if err := s.watch.AddDirectory(abs, syncExisting); err != nil {
		s.logger.Error("watch add directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusCreated, map[string]string{"path": abs, "status": "added"})
}

func (s *Server) handleWatchDirectoriesRemove(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		var body struct {
			Path string `json:"path"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
			path = body.Path
		}
	}
	if path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required (query or body)")
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	if err := s.watch.RemoveDirectory(abs); err != nil {
		s.logger.Error("watch remove directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusOK, map[string]string{"path": abs, "status": "removed"})
}

// persistWatchDirectories writes the current roots back to the config file.
func (s *Server) persistWatchDirectories() {
	if s.configPath == "" || s.fullConfig == nil {
		return
	}
	s.configMu.Lock()
	defer s.configMu.Unlock()
	s.fullConfig.Watch.Directories = s.watch.Directories()
	if err := config.Save(s.configPath, s.fullConfig); err != nil {
		s.logger.Warn("failed to persist watch config", zap.Error(err))
	}
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidArgument), errors.Is(err, models.ErrDimensionMismatch):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrModelTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, models.ErrEmbeddingUnavailable), errors.Is(err, models.ErrGeneratorUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondErr(w http.ResponseWriter, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(msg, zap.Error(err))
	}
	s.respondError(w, status, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
