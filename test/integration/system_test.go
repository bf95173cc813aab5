// Package integration exercises the HTTP API, the watch-folder inbox and
// durable storage together.
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/indexer"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/search"
	"github.com/hyperjump/kotae/internal/server"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vector"
	"github.com/hyperjump/kotae/internal/watcher"
)

const dims = 512

type stack struct {
	ts      *httptest.Server
	watch   *watcher.Watcher
	indexer *indexer.Indexer
}

func newStack(t *testing.T, dbPath, inbox string) *stack {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.DatabasePath = dbPath
	cfg.Watch.Directories = []string{inbox}

	db, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	emb := embedding.NewHashingEmbedder(dims)
	store, err := vector.NewMemoryStore(dims)
	if err != nil {
		t.Fatal(err)
	}
	idx, err := indexer.NewIndexer(store, emb, cfg.Chunking,
		indexer.WithStorage(db), indexer.WithExtractor(extract.NewExtractor()))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := idx.Restore(context.Background()); err != nil {
		t.Fatal(err)
	}
	engine, err := search.NewEngine(store, emb, cfg.Query)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := watcher.New(idx, cfg.Watch, watcher.WithDebounce(50*time.Millisecond))
	if err := w.Start(ctx); err != nil {
		cancel()
		t.Fatal(err)
	}
	srv := server.NewServer(engine, idx, cfg.Server, nil, server.WithWatch(w, "", cfg))
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(func() {
		ts.Close()
		w.Stop()
		cancel()
		_ = store.Close()
		_ = db.Close()
	})
	return &stack{ts: ts, watch: w, indexer: idx}
}

func (s *stack) ask(t *testing.T, question string) *models.Answer {
	t.Helper()
	body, _ := json.Marshal(server.AskRequest{Question: question})
	resp, err := http.Post(s.ts.URL+"/api/v1/ask", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var a models.Answer
	if err := json.NewDecoder(resp.Body).Decode(&a); err != nil {
		t.Fatal(err)
	}
	return &a
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestIntegration_InboxToAnswer(t *testing.T) {
	dir := t.TempDir()
	inbox := filepath.Join(dir, "inbox")
	dbPath := filepath.Join(dir, "kotae.db")
	s := newStack(t, dbPath, inbox)

	const question = "How far ahead must international flights be booked?"
	if a := s.ask(t, question); a.Status != models.StatusNoResults {
		t.Fatalf("empty index answered %s: %s", a.Status, a.Text)
	}

	policy := "International flights must be booked through the travel desk three weeks ahead. " +
		"Economy class is the default for flights under six hours."
	if err := os.WriteFile(filepath.Join(inbox, "travel-policy.md"), []byte(policy), 0644); err != nil {
		t.Fatal(err)
	}
	var answer *models.Answer
	eventually(t, "the dropped file to be answerable", func() bool {
		answer = s.ask(t, question)
		return answer.OK()
	})
	if !strings.Contains(answer.Text, "three weeks ahead") {
		t.Errorf("answer = %q", answer.Text)
	}
	if len(answer.Sources) == 0 || answer.Sources[0].DocumentID != "travel-policy" {
		t.Errorf("sources = %+v", answer.Sources)
	}

	resp, err := http.Get(s.ts.URL + "/api/v1/documents/travel-policy")
	if err != nil {
		t.Fatal(err)
	}
	var doc models.Document
	_ = json.NewDecoder(resp.Body).Decode(&doc)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || doc.Chunks == 0 {
		t.Fatalf("GET document = %d %+v", resp.StatusCode, doc)
	}

	if err := os.Remove(filepath.Join(inbox, "travel-policy.md")); err != nil {
		t.Fatal(err)
	}
	eventually(t, "the removed file to leave the index", func() bool {
		return s.indexer.GetVectorStoreStats().TotalDocuments == 0
	})
	if a := s.ask(t, question); a.Status != models.StatusNoResults {
		t.Errorf("after removal: %s %q", a.Status, a.Text)
	}
}

func TestIntegration_RestartKeepsCorpus(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "kotae.db")

	first := newStack(t, dbPath, filepath.Join(dir, "inbox"))
	resp, err := http.Post(first.ts.URL+"/api/v1/samples", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("samples status = %d", resp.StatusCode)
	}
	want := first.indexer.GetVectorStoreStats()
	first.watch.Stop()

	second := newStack(t, dbPath, filepath.Join(dir, "inbox2"))
	if got := second.indexer.GetVectorStoreStats(); got != want {
		t.Fatalf("stats after restart = %+v, want %+v", got, want)
	}
	a := second.ask(t, "How many vacation days do employees receive per year?")
	if !a.OK() || !strings.Contains(a.Text, "15 vacation days") {
		t.Errorf("answer after restart = %s %q", a.Status, a.Text)
	}
}
