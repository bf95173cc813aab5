// Package watcher keeps the index in step with inbox directories: files that
// appear or change are ingested, files that disappear are deleted.
package watcher

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/fileid"
	"github.com/hyperjump/kotae/internal/indexer"
	"github.com/hyperjump/kotae/internal/models"
	"go.uber.org/zap"
)

const defaultDebounce = 400 * time.Millisecond

// Sink receives the watcher's ingest and delete requests. *indexer.Indexer satisfies it.
type Sink interface {
	IndexFile(ctx context.Context, path string) (*indexer.IngestResult, error)
	DeleteFileDocument(ctx context.Context, path string) (int, error)
}

// Watcher watches inbox directories and forwards file changes to a Sink.
type Watcher struct {
	sink       Sink
	roots      []string
	extensions []string
	recursive  bool
	debounce   time.Duration
	logger     *zap.Logger

	mu       sync.Mutex
	ctx      context.Context
	fsw      *fsnotify.Watcher
	pending  map[string]*time.Timer
	watched  map[string][]string // root -> directories added to fsw
	done     chan struct{}
	started  bool
	stopOnce sync.Once
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets a logger for watch events.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// WithDebounce sets how long a file must stay quiet before it is ingested.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// New creates a watcher for the directories and extensions in cfg. An empty
// extension list accepts every file.
func New(sink Sink, cfg config.WatchConfig, opts ...Option) *Watcher {
	w := &Watcher{
		sink:       sink,
		roots:      append([]string(nil), cfg.Directories...),
		extensions: cfg.Extensions,
		recursive:  cfg.RecursiveOrDefault(),
		debounce:   defaultDebounce,
		logger:     zap.NewNop(),
		ctx:        context.Background(),
		pending:    make(map[string]*time.Timer),
		watched:    make(map[string][]string),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching. Missing roots are created. The watcher runs until
// ctx is cancelled or Stop is called; sink calls use ctx.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.fsw = fsw
	w.ctx = ctx
	for i, root := range w.roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			_ = fsw.Close()
			w.fsw = nil
			return err
		}
		if err := w.addRootLocked(abs); err != nil {
			_ = fsw.Close()
			w.fsw = nil
			return err
		}
		w.roots[i] = abs
	}
	w.started = true
	w.logger.Info("watching inbox directories",
		zap.Strings("roots", w.roots),
		zap.Strings("extensions", w.extensions),
		zap.Bool("recursive", w.recursive))
	go w.run(ctx, fsw)
	return nil
}

func (w *Watcher) run(ctx context.Context, fsw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	path := ev.Name
	if !w.underRoot(path) {
		return
	}
	w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("path", path))
	switch {
	case ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write):
		info, err := os.Stat(path)
		if err == nil && info.IsDir() {
			w.handleNewDirectory(path)
			return
		}
		if w.accepts(path) {
			w.debounceIndex(path)
		}
	case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
		w.cancelDebounce(path)
		if w.accepts(path) {
			w.remove(path)
		}
	}
}

// handleNewDirectory watches a directory that appeared under a root and
// ingests the files already inside it.
func (w *Watcher) handleNewDirectory(dir string) {
	w.mu.Lock()
	fsw := w.fsw
	w.mu.Unlock()
	if fsw == nil {
		return
	}
	if w.recursive {
		_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if err := fsw.Add(path); err != nil {
					w.logger.Warn("failed to watch directory", zap.String("path", path), zap.Error(err))
				}
			}
			return nil
		})
	} else if err := fsw.Add(dir); err != nil {
		w.logger.Warn("failed to watch directory", zap.String("path", dir), zap.Error(err))
	}
	w.syncDirectory(dir)
}

func (w *Watcher) underRoot(path string) bool {
	w.mu.Lock()
	roots := append([]string(nil), w.roots...)
	w.mu.Unlock()
	clean := filepath.Clean(path)
	for _, root := range roots {
		rootClean := filepath.Clean(root)
		if rootClean == clean || inDir(rootClean, clean) {
			return true
		}
	}
	return false
}

func inDir(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// accepts reports whether path has a watched extension. Dotfiles such as
// editor swap files are ignored.
func (w *Watcher) accepts(path string) bool {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return false
	}
	return len(w.extensions) == 0 || indexer.ExtensionAllowed(filepath.Ext(path), w.extensions)
}

func (w *Watcher) debounceIndex(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.ingest(path)
	})
}

func (w *Watcher) cancelDebounce(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) context() context.Context {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ctx
}

func (w *Watcher) ingest(path string) {
	res, err := w.sink.IndexFile(w.context(), path)
	if err != nil {
		w.logger.Warn("failed to ingest file", zap.String("path", path), zap.Error(err))
		return
	}
	if res.Skipped {
		w.logger.Debug("file unchanged", zap.String("path", path))
		return
	}
	w.logger.Info("file ingested", zap.String("path", path), zap.String("doc_id", res.DocumentID), zap.Int("chunks", res.Chunks))
}

func (w *Watcher) remove(path string) {
	id := fileid.DocumentID(path)
	n, err := w.sink.DeleteFileDocument(w.context(), path)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			w.logger.Warn("failed to delete document", zap.String("path", path), zap.String("doc_id", id), zap.Error(err))
		}
		return
	}
	w.logger.Info("file removed", zap.String("path", path), zap.String("doc_id", id), zap.Int("chunks", n))
}

// AddDirectory adds a root directory to watch and optionally ingests the files already in it.
func (w *Watcher) AddDirectory(root string, syncExisting bool) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	abs = filepath.Clean(abs)
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, r := range w.roots {
		if filepath.Clean(r) == abs {
			return nil
		}
	}
	if w.fsw != nil {
		if err := w.addRootLocked(abs); err != nil {
			return err
		}
	}
	w.roots = append(w.roots, abs)
	w.logger.Info("inbox directory added", zap.String("path", abs), zap.Bool("sync_existing", syncExisting))
	if syncExisting && w.fsw != nil {
		go w.syncDirectory(abs)
	}
	return nil
}

func (w *Watcher) addRootLocked(root string) error {
	root = filepath.Clean(root)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return err
	}
	if !w.recursive {
		if err := w.fsw.Add(root); err != nil {
			return err
		}
		w.watched[root] = []string{root}
		return nil
	}
	var dirs []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fsw.Add(path); err != nil {
			return err
		}
		dirs = append(dirs, path)
		return nil
	})
	if err != nil {
		return err
	}
	w.watched[root] = dirs
	return nil
}

// syncDirectory ingests every accepted file under dir. Unchanged files are
// skipped by the indexer.
func (w *Watcher) syncDirectory(dir string) {
	w.logger.Debug("syncing directory", zap.String("path", dir))
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && !w.recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if w.accepts(path) {
			w.ingest(path)
		}
		return nil
	})
}

// RemoveDirectory stops watching root. Documents already ingested from it stay indexed.
func (w *Watcher) RemoveDirectory(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	abs = filepath.Clean(abs)
	w.mu.Lock()
	defer w.mu.Unlock()
	idx := -1
	for i, r := range w.roots {
		if filepath.Clean(r) == abs {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	if w.fsw != nil {
		for _, p := range w.watched[abs] {
			_ = w.fsw.Remove(p)
		}
	}
	delete(w.watched, abs)
	w.roots = append(w.roots[:idx], w.roots[idx+1:]...)
	w.logger.Info("inbox directory removed", zap.String("path", abs))
	return nil
}

// Directories returns a copy of the watched root directories.
func (w *Watcher) Directories() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.roots...)
}

// SyncExistingFiles ingests the files already present in every root. Call it
// after Start to pick up files added while the process was not running.
func (w *Watcher) SyncExistingFiles() {
	for _, root := range w.Directories() {
		w.syncDirectory(root)
	}
}

// Stop stops watching and cancels pending ingests.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
	_ = w.fsw.Close()
	w.fsw = nil
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
}
