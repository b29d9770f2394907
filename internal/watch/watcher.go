// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet window before a changed path is reported.
const DefaultDebounce = 2 * time.Second

// minTick bounds how often pending paths are checked.
const minTick = 10 * time.Millisecond

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger (default: slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.log = l
		}
	}
}

// WithExclude skips directories and files whose base name matches one of
// the glob patterns.
func WithExclude(patterns ...string) Option {
	return func(w *Watcher) {
		w.exclude = append(w.exclude, patterns...)
	}
}

// WithExcludePaths skips the given absolute paths and everything below.
func WithExcludePaths(paths ...string) Option {
	return func(w *Watcher) {
		for _, p := range paths {
			if abs, err := filepath.Abs(p); err == nil {
				w.excludePaths = append(w.excludePaths, abs)
			}
		}
	}
}

// =============================================================================
// FSNOTIFY WATCHER
// =============================================================================

// Watcher watches a directory tree and emits debounced change batches.
type Watcher struct {
	root     string
	debounce time.Duration
	out      chan<- []string
	log      *slog.Logger

	exclude      []string
	excludePaths []string

	fsw     *fsnotify.Watcher
	mu      sync.Mutex
	pending map[string]time.Time // path -> last change time

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
}

// New starts watching root. Batches go to out with a blocking send, so a
// slow consumer delays further batches instead of losing them. A debounce
// of zero or less uses DefaultDebounce.
func New(root string, debounce time.Duration, out chan<- []string, opts ...Option) (*Watcher, error) {
	if out == nil {
		return nil, fmt.Errorf("watch: nil output channel")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch: %s is not a directory", abs)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		root:     abs,
		debounce: debounce,
		out:      out,
		log:      slog.Default(),
		fsw:      fsw,
		pending:  make(map[string]time.Time),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.log = w.log.With("component", "watch")

	if err := w.fsw.Add(abs); err != nil {
		cancel()
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", abs, err)
	}
	w.addRecursive(abs)

	w.wg.Add(2)
	go w.processEvents()
	go w.processPending()

	w.log.Info("Watching", "root", abs, "debounce", debounce)
	return w, nil
}

// Root returns the absolute watched root.
func (w *Watcher) Root() string { return w.root }

// addRecursive adds dir and all its subdirectories to the watch list
func (w *Watcher) addRecursive(dir string) {
	filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.log.Debug("Walk error", "path", path, "error", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.excluded(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			// Non-fatal, continue
			w.log.Warn("Failed to watch directory", "path", path, "error", err)
		}
		return nil
	})
}

// excluded reports whether path lies in an excluded subtree.
func (w *Watcher) excluded(path string) bool {
	for _, p := range w.excludePaths {
		if path == p || strings.HasPrefix(path, p+string(filepath.Separator)) {
			return true
		}
	}
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		for _, pattern := range w.exclude {
			if ok, _ := filepath.Match(pattern, part); ok {
				return true
			}
		}
	}
	return false
}

// processEvents records changed paths until the watcher is closed.
func (w *Watcher) processEvents() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			// Attribute-only changes do not alter names or contents
			if event.Op == fsnotify.Chmod {
				continue
			}
			if w.excluded(event.Name) {
				continue
			}

			w.mu.Lock()
			w.pending[event.Name] = time.Now()
			w.mu.Unlock()

			// Handle new directories
			if event.Has(fsnotify.Create) {
				if info, err := os.Lstat(event.Name); err == nil && info.IsDir() {
					w.addRecursive(event.Name)
				}
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("Watch error", "error", err)
		}
	}
}

// processPending releases paths that have been quiet for the debounce
// window and sends each tick's releases as one batch.
func (w *Watcher) processPending() {
	defer w.wg.Done()

	tick := w.debounce / 4
	if tick < minTick {
		tick = minTick
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case now := <-ticker.C:
			batch := w.release(now)
			if len(batch) == 0 {
				continue
			}
			select {
			case w.out <- batch:
			case <-w.ctx.Done():
				w.log.Debug("Dropping batch on close", "paths", len(batch))
				return
			}
		}
	}
}

func (w *Watcher) release(now time.Time) []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	var batch []string
	for path, changed := range w.pending {
		if now.Sub(changed) >= w.debounce {
			batch = append(batch, path)
			delete(w.pending, path)
		}
	}
	sort.Strings(batch)
	return batch
}

// Close stops watching and releases resources. The output channel is not
// closed.
func (w *Watcher) Close() error {
	w.closeOnce.Do(func() {
		w.cancel()
		w.closeErr = w.fsw.Close()
		w.wg.Wait()
	})
	return w.closeErr
}
