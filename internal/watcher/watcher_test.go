package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/fileid"
	"github.com/hyperjump/kotae/internal/indexer"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/vector"
)

const testDebounce = 50 * time.Millisecond

type recordingSink struct {
	mu      sync.Mutex
	indexed []string
	deleted []string
}

func (s *recordingSink) IndexFile(ctx context.Context, path string) (*indexer.IngestResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indexed = append(s.indexed, path)
	return &indexer.IngestResult{DocumentID: fileid.DocumentID(path), Chunks: 1}, nil
}

func (s *recordingSink) DeleteFileDocument(ctx context.Context, path string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, fileid.DocumentID(path))
	return 1, nil
}

func (s *recordingSink) snapshot() (indexed, deleted []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.indexed...), append([]string(nil), s.deleted...)
}

func watchConfig(exts []string, dirs ...string) config.WatchConfig {
	return config.WatchConfig{Directories: dirs, Extensions: exts}
}

// waitFor polls cond until it holds or two seconds pass.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func hasSuffix(paths []string, suffix string) bool {
	for _, p := range paths {
		if strings.HasSuffix(p, suffix) {
			return true
		}
	}
	return false
}

func startWatcher(t *testing.T, sink Sink, cfg config.WatchConfig) *Watcher {
	t.Helper()
	w := New(sink, cfg, WithDebounce(testDebounce))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(w.Stop)
	return w
}

func TestWatcher_AddRemoveDirectories(t *testing.T) {
	dir := t.TempDir()
	w := startWatcher(t, &recordingSink{}, watchConfig([]string{".txt"}))

	if err := w.AddDirectory(dir, false); err != nil {
		t.Fatal(err)
	}
	if err := w.AddDirectory(dir, false); err != nil {
		t.Fatal(err)
	}
	dirs := w.Directories()
	if len(dirs) != 1 || filepath.Clean(dirs[0]) != filepath.Clean(dir) {
		t.Errorf("Directories() = %v", dirs)
	}

	if err := w.RemoveDirectory(dir); err != nil {
		t.Fatal(err)
	}
	if len(w.Directories()) != 0 {
		t.Errorf("after remove: %v", w.Directories())
	}
}

func TestWatcher_DebounceAndExtensionFilter(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	if err := mkdirAll(sub); err != nil {
		t.Fatal(err)
	}
	sink := &recordingSink{}
	startWatcher(t, sink, watchConfig([]string{".txt"}, dir))

	fPath := filepath.Join(sub, "f.txt")
	for i := 0; i < 3; i++ {
		if err := writeFile(fPath, strings.Repeat("hello ", i+1)); err != nil {
			t.Fatal(err)
		}
	}
	if err := writeFile(filepath.Join(sub, "skip.xyz"), "x"); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "f.txt to be indexed", func() bool {
		indexed, _ := sink.snapshot()
		return hasSuffix(indexed, "f.txt")
	})
	time.Sleep(3 * testDebounce)
	indexed, _ := sink.snapshot()
	if hasSuffix(indexed, "skip.xyz") {
		t.Errorf("skip.xyz should not be indexed: %v", indexed)
	}
	if len(indexed) > 2 {
		t.Errorf("rapid writes should be debounced, got %d ingests", len(indexed))
	}
}

func TestWatcher_RemoveDeletesDocument(t *testing.T) {
	dir := t.TempDir()
	fPath := filepath.Join(dir, "handbook.md")
	if err := writeFile(fPath, "content"); err != nil {
		t.Fatal(err)
	}
	sink := &recordingSink{}
	startWatcher(t, sink, watchConfig([]string{".md"}, dir))

	if err := os.Remove(fPath); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "delete of handbook", func() bool {
		_, deleted := sink.snapshot()
		return len(deleted) == 1 && deleted[0] == "handbook"
	})
}

func TestWatcher_accepts(t *testing.T) {
	tests := []struct {
		path       string
		extensions []string
		want       bool
	}{
		{"/a/b.txt", []string{".txt"}, true},
		{"/a/b.TXT", []string{".txt"}, true},
		{"/a/b.md", []string{".txt"}, false},
		{"/a/b", nil, true},
		{"/a/b", []string{}, true},
		{"/a/.b.txt.swp", nil, false},
		{"/a/.hidden.txt", []string{".txt"}, false},
	}
	for _, tt := range tests {
		w := New(&recordingSink{}, watchConfig(tt.extensions))
		if got := w.accepts(tt.path); got != tt.want {
			t.Errorf("accepts(%q) with %v = %v, want %v", tt.path, tt.extensions, got, tt.want)
		}
	}
}

func TestInDir(t *testing.T) {
	tests := []struct {
		dir  string
		path string
		want bool
	}{
		{"/tmp/a", "/tmp/a", true},
		{"/tmp/a", "/tmp/a/b.txt", true},
		{"/tmp/a", "/tmp/b", false},
		{"/tmp/a", "/tmp/a/../b", false},
	}
	for _, tt := range tests {
		got := inDir(tt.dir, tt.path)
		if got != tt.want {
			t.Errorf("inDir(%q, %q) = %v, want %v", tt.dir, tt.path, got, tt.want)
		}
	}
}

func TestWatcher_SyncExistingFiles_indexesMatchingFiles(t *testing.T) {
	dir := t.TempDir()
	if err := writeFile(filepath.Join(dir, "a.txt"), "hello"); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(filepath.Join(dir, "ignore.xyz"), "x"); err != nil {
		t.Fatal(err)
	}
	sink := &recordingSink{}
	w := startWatcher(t, sink, watchConfig([]string{".txt"}, dir))
	w.SyncExistingFiles()

	indexed, _ := sink.snapshot()
	if len(indexed) != 1 || !strings.HasSuffix(indexed[0], "a.txt") {
		t.Errorf("expected one indexed file a.txt, got %v", indexed)
	}
}

func TestWatcher_Start_createsMissingRootDirectory(t *testing.T) {
	root := filepath.Join(t.TempDir(), "watch", "me")
	startWatcher(t, &recordingSink{}, watchConfig([]string{".txt"}, root))
	if _, err := os.Stat(root); err != nil {
		t.Errorf("root directory should exist after Start: %v", err)
	}
}

func TestWatcher_HandleNewDirectory_indexesFilesInNewFolder(t *testing.T) {
	dir := t.TempDir()
	sink := &recordingSink{}
	startWatcher(t, sink, watchConfig([]string{".txt", ".md"}, dir))

	// Simulate copying a folder with files into the watched directory
	newFolder := filepath.Join(dir, "new-folder")
	if err := mkdirAll(newFolder); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(filepath.Join(newFolder, "doc1.txt"), "hello"); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(filepath.Join(newFolder, "doc2.md"), "world"); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(filepath.Join(newFolder, "ignore.xyz"), "skip"); err != nil {
		t.Fatal(err)
	}

	waitFor(t, "doc1.txt and doc2.md", func() bool {
		indexed, _ := sink.snapshot()
		return hasSuffix(indexed, "doc1.txt") && hasSuffix(indexed, "doc2.md")
	})
	indexed, _ := sink.snapshot()
	if hasSuffix(indexed, "ignore.xyz") {
		t.Errorf("ignore.xyz should not be indexed")
	}
}

func TestWatcher_HandleNewDirectory_recursiveSubfolders(t *testing.T) {
	dir := t.TempDir()
	sink := &recordingSink{}
	startWatcher(t, sink, watchConfig([]string{".txt"}, dir))

	nested := filepath.Join(dir, "level1", "level2")
	if err := mkdirAll(nested); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(filepath.Join(nested, "deep.txt"), "deep content"); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "deep.txt", func() bool {
		indexed, _ := sink.snapshot()
		return hasSuffix(indexed, "deep.txt")
	})
}

func TestWatcher_withIndexer(t *testing.T) {
	dir := t.TempDir()
	store, err := vector.NewMemoryStore(64)
	if err != nil {
		t.Fatal(err)
	}
	idx, err := indexer.NewIndexer(store, embedding.NewHashingEmbedder(64), config.ChunkingConfig{ChunkSize: 200, ChunkOverlap: 20, Parallelism: 1})
	if err != nil {
		t.Fatal(err)
	}
	startWatcher(t, idx, watchConfig([]string{".txt"}, dir))

	fPath := filepath.Join(dir, "travel-policy.txt")
	if err := writeFile(fPath, "Book flights through the travel desk."); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "travel-policy to be indexed", func() bool {
		return store.Stats().Documents == 1
	})
	if err := os.Remove(fPath); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "travel-policy to be removed", func() bool {
		return store.Stats().Documents == 0
	})
	if _, err := idx.DeleteDocument(context.Background(), "travel-policy"); err == nil {
		t.Error("document should already be gone")
	} else if !strings.Contains(err.Error(), models.ErrNotFound.Error()) {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestWatcher_removingStaleCopyKeepsNewerFormat(t *testing.T) {
	dir := t.TempDir()
	store, err := vector.NewMemoryStore(64)
	if err != nil {
		t.Fatal(err)
	}
	emb := embedding.NewHashingEmbedder(64)
	idx, err := indexer.NewIndexer(store, emb, config.ChunkingConfig{ChunkSize: 200, ChunkOverlap: 20, Parallelism: 1})
	if err != nil {
		t.Fatal(err)
	}
	startWatcher(t, idx, watchConfig([]string{".txt", ".md"}, dir))

	topHit := func(text string) string {
		q, err := emb.Embed(context.Background(), text)
		if err != nil {
			t.Fatal(err)
		}
		hits, err := store.Search(context.Background(), q, 1)
		if err != nil || len(hits) == 0 {
			return ""
		}
		return hits[0].Chunk.Content
	}

	const oldText = "Expense reports are due monthly."
	const newText = "Expense reports are due every two weeks."
	txtPath := filepath.Join(dir, "policy.txt")
	if err := writeFile(txtPath, oldText); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "policy.txt to be indexed", func() bool { return topHit(oldText) == oldText })
	if err := writeFile(filepath.Join(dir, "policy.md"), newText); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "policy.md to replace it", func() bool { return topHit(newText) == newText })

	if err := os.Remove(txtPath); err != nil {
		t.Fatal(err)
	}
	// Events are handled in order, so once the marker is indexed the removal has been processed.
	if err := writeFile(filepath.Join(dir, "marker.md"), "Marker file."); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "marker to be indexed", func() bool { return topHit("Marker file.") == "Marker file." })
	if st := store.Stats(); st.Documents != 2 {
		t.Errorf("documents=%d, want policy and marker", st.Documents)
	}
	if got := topHit(newText); got != newText {
		t.Errorf("policy.md content lost, top hit %q", got)
	}
}

func mkdirAll(path string) error {
	return os.MkdirAll(path, 0755)
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0600)
}
