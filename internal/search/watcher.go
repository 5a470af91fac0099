// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package search

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/jeranaias/quorum/internal/chunk"
)

// DefaultDebounce is how long a file must stay quiet before the watcher
// re-indexes it. Editors fire several events per save.
const DefaultDebounce = 500 * time.Millisecond

// WatchConfig configures a Watcher.
type WatchConfig struct {
	// Root is the directory tree to watch.
	Root string

	// Debounce is the quiet period before a changed file re-indexes.
	Debounce time.Duration

	// IgnoreDirs are directory name patterns skipped while watching.
	IgnoreDirs []string
}

// DefaultWatchConfig returns a watch configuration for root with the
// standard ignore set.
func DefaultWatchConfig(root string) WatchConfig {
	return WatchConfig{
		Root:       root,
		Debounce:   DefaultDebounce,
		IgnoreDirs: []string{".git", "node_modules", "__pycache__", ".venv", "venv"},
	}
}

// =============================================================================
// WATCHER
// =============================================================================

// Watcher re-indexes markdown files under a directory tree as they
// change on disk, keeping the store current without manual re-runs.
type Watcher struct {
	store   *Store
	indexer *chunk.Indexer
	cfg     WatchConfig
	log     *zap.Logger

	watcher *fsnotify.Watcher
	mu      sync.Mutex
	pending map[string]time.Time // File path -> last change time
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewWatcher creates a watcher feeding changed files through indexer
// into store. A nil logger disables logging.
func NewWatcher(store *Store, indexer *chunk.Indexer, cfg WatchConfig, log *zap.Logger) (*Watcher, error) {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if log == nil {
		log = zap.NewNop()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Watcher{
		store:   store,
		indexer: indexer,
		cfg:     cfg,
		log:     log,
		watcher: fsw,
		pending: make(map[string]time.Time),
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Watch starts watching for file changes.
func (w *Watcher) Watch() error {
	if err := w.addRecursive(w.cfg.Root); err != nil {
		return err
	}

	go w.processEvents()
	go w.processPending()

	return nil
}

// Close stops watching and releases resources.
func (w *Watcher) Close() error {
	w.cancel()
	return w.watcher.Close()
}

// addRecursive adds a directory and all its subdirectories to the watch list
func (w *Watcher) addRecursive(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip unreadable entries
		}
		if !info.IsDir() {
			return nil
		}
		if path != dir && w.shouldIgnore(filepath.Base(path)) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			w.log.Warn("watch add failed", zap.String("dir", path), zap.Error(err))
		}
		return nil
	})
}

// processEvents routes file system events into the pending set.
func (w *Watcher) processEvents() {
	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if event.Op&fsnotify.Write == fsnotify.Write ||
				event.Op&fsnotify.Create == fsnotify.Create {
				w.handleFileChange(event.Name)
			}

			// Renames surface as a Rename for the old name; treat both
			// rename and remove as deletion of the old path.
			if event.Op&fsnotify.Rename == fsnotify.Rename ||
				event.Op&fsnotify.Remove == fsnotify.Remove {
				w.removeFile(event.Name)
			}

			if event.Op&fsnotify.Create == fsnotify.Create {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if !w.shouldIgnore(filepath.Base(event.Name)) {
						w.addRecursive(event.Name)
					}
				}
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", zap.Error(err))
		}
	}
}

// handleFileChange queues a changed markdown file for re-indexing.
func (w *Watcher) handleFileChange(path string) {
	if !isMarkdown(path) {
		return
	}

	w.mu.Lock()
	w.pending[path] = time.Now()
	w.mu.Unlock()
}

// processPending re-indexes files whose changes have settled.
func (w *Watcher) processPending() {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return

		case <-ticker.C:
			now := time.Now()

			w.mu.Lock()
			var settled []string
			for path, changed := range w.pending {
				if now.Sub(changed) >= w.cfg.Debounce {
					settled = append(settled, path)
					delete(w.pending, path)
				}
			}
			w.mu.Unlock()

			for _, path := range settled {
				w.reindex(path)
			}
		}
	}
}

// reindex replaces a file's chunks with fresh ones.
func (w *Watcher) reindex(path string) {
	if _, err := os.Stat(path); err != nil {
		// Gone between the event and the debounce window.
		w.removeFile(path)
		return
	}

	rel := w.relPath(path)
	w.indexer.Forget(rel)
	if err := w.store.DeleteFile(rel); err != nil {
		w.log.Warn("dropping stale chunks failed", zap.String("path", rel), zap.Error(err))
		return
	}

	if _, err := w.indexer.Index([]string{rel}, w.cfg.Root, w.store); err != nil {
		w.log.Warn("re-index failed", zap.String("path", rel), zap.Error(err))
		return
	}
	w.log.Debug("re-indexed changed file", zap.String("path", rel))
}

// removeFile drops a deleted file from the index.
func (w *Watcher) removeFile(path string) {
	if !isMarkdown(path) {
		return
	}

	rel := w.relPath(path)
	w.indexer.Forget(rel)
	if err := w.store.DeleteFile(rel); err != nil {
		w.log.Warn("removing deleted file failed", zap.String("path", rel), zap.Error(err))
	}
}

func (w *Watcher) relPath(path string) string {
	rel, err := filepath.Rel(w.cfg.Root, path)
	if err != nil {
		return path
	}
	return rel
}

func (w *Watcher) shouldIgnore(name string) bool {
	for _, pattern := range w.cfg.IgnoreDirs {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

func isMarkdown(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".md")
}
