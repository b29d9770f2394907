// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/filescope/internal/config"
	"github.com/jeranaias/filescope/internal/index"
	"github.com/jeranaias/filescope/internal/livescan"
	"github.com/jeranaias/filescope/internal/search"
	"github.com/jeranaias/filescope/internal/walk"
	"github.com/jeranaias/filescope/internal/watch"
)

// ErrClosed is returned by operations on a closed engine.
var ErrClosed = errors.New("engine closed")

// Option configures an Engine.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger (default: slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Engine is the search engine over the home and root scopes.
type Engine struct {
	cfg *config.Config
	log *slog.Logger

	store    *index.Store
	live     *livescan.Scanner
	watcher  *watch.Watcher
	batches  chan []string
	progress *ProgressReceiver
	pool     *pool // searches
	writes   *pool // rebuilds and watcher batches, one at a time

	lastBatch atomic.Pointer[BatchInfo]

	ctx       context.Context
	cancel    context.CancelFunc
	loopDone  chan struct{}
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// Stats combines index statistics with engine state.
type Stats struct {
	Index    index.Stats
	Progress float32
	Watching bool
	Workers  int
	LiveRoot string

	// LastBatch is nil until the watcher delivered a batch.
	LastBatch *BatchInfo
}

// BatchInfo describes the last watcher batch applied to the index. ID
// appears in the log lines for the batch.
type BatchInfo struct {
	ID      string
	Paths   int
	Applied time.Time
	Err     error
}

// New opens the index and starts background work. An index that is empty
// or had to be recreated is rebuilt in the background; Progress reports
// how far that got. Background work stops when ctx ends or Close is called.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	log := o.logger.With("component", "engine")

	store, err := index.Open(StoreConfig(cfg, o.logger))
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}

	excludePaths := append([]string{store.Dir()}, livescan.DefaultExcludePaths...)
	e := &Engine{
		cfg:   cfg,
		log:   log,
		store: store,
		live: &livescan.Scanner{
			Root:         cfg.Live.Root,
			MaxDepth:     cfg.Live.MaxDepth,
			MaxResults:   cfg.Live.MaxResults,
			MaxFileSize:  cfg.Live.MaxFileSize,
			ExcludePaths: excludePaths,
			Logger:       o.logger,
		},
		pool:     newPool(cfg.Engine.Workers),
		writes:   newPool(1),
		loopDone: make(chan struct{}),
	}
	e.ctx, e.cancel = context.WithCancel(ctx)

	// Watch before deciding on a rebuild so no change slips between the two.
	if cfg.Watch.Enabled {
		e.batches = make(chan []string, cfg.Watch.Buffer)
		w, err := watch.New(store.Root(), cfg.Watch.Debounce.Duration, e.batches,
			watch.WithLogger(o.logger),
			watch.WithExclude(walk.DefaultExclude...),
			watch.WithExcludePaths(store.Dir()),
		)
		if err != nil {
			e.cancel()
			store.Close()
			return nil, fmt.Errorf("failed to start watcher: %w", err)
		}
		e.watcher = w
		go e.watchLoop()
	} else {
		close(e.loopDone)
	}

	count, err := store.DocCount()
	if err != nil {
		e.Close()
		return nil, err
	}

	switch {
	case store.Recreated():
		log.Info("Index was recreated, rebuilding", "root", store.Root())
		e.startRebuild()
	case count == 0:
		log.Info("Index is empty, rebuilding", "root", store.Root())
		e.startRebuild()
	default:
		log.Debug("Index ready", "root", store.Root(), "entries", count)
		e.progress = newProgress(1)
	}
	return e, nil
}

// StoreConfig maps the [index] section onto an index store configuration.
func StoreConfig(cfg *config.Config, logger *slog.Logger) *index.Config {
	return &index.Config{
		Root:          cfg.Index.Root,
		Dir:           cfg.Index.Dir,
		MaxFileSize:   cfg.Index.MaxFileSize,
		MaxHits:       cfg.Index.MaxHits,
		ProgressEvery: cfg.Index.ProgressEvery,
		Exclude:       cfg.Index.Exclude,
		Debug:         cfg.Log.Debug,
		Logger:        logger,
	}
}

func (e *Engine) startRebuild() {
	e.progress = newProgress(0)
	err := e.writes.Go(e.ctx, func() {
		e.rebuild(e.ctx)
	})
	if err != nil {
		e.progress.fail(err)
	}
}

// rebuild runs a full rebuild, reporting through the progress cell. The
// store resets progress to 0 once it holds the writer lock. A failure is
// reported with the rebuild id that tags its log lines.
func (e *Engine) rebuild(ctx context.Context) error {
	id := uuid.NewString()
	start := time.Now()
	if err := e.store.Rebuild(ctx, e.progress.set); err != nil {
		if ctx.Err() != nil {
			e.log.Debug("Rebuild cancelled", "rebuild", id, "error", err)
		} else {
			e.log.Error("Rebuild failed", "rebuild", id, "error", err)
		}
		err = fmt.Errorf("rebuild %s: %w", id, err)
		e.progress.fail(err)
		return err
	}
	e.progress.set(1)
	e.log.Debug("Rebuild finished", "rebuild", id, "duration", time.Since(start).Round(time.Millisecond))
	return nil
}

// watchLoop applies watcher batches in arrival order.
func (e *Engine) watchLoop() {
	defer close(e.loopDone)
	for {
		select {
		case <-e.ctx.Done():
			return
		case batch := <-e.batches:
			id := uuid.NewString()
			done := make(chan error, 1)
			err := e.writes.Go(e.ctx, func() {
				done <- e.store.ProcessChanges(e.ctx, batch)
			})
			if err != nil {
				return
			}
			err = <-done
			e.lastBatch.Store(&BatchInfo{ID: id, Paths: len(batch), Applied: time.Now(), Err: err})
			if err != nil {
				e.log.Error("Failed to apply changes", "batch", id, "paths", len(batch), "error", err)
				continue
			}
			e.log.Debug("Applied changes", "batch", id, "paths", len(batch))
		}
	}
}

// =============================================================================
// OPERATIONS
// =============================================================================

type outcome struct {
	results []search.Result
	err     error
}

// Search runs query in scope on the worker pool. Writes run outside that
// pool, so a rebuild never holds a search worker. ScopeHome matches the
// index; ScopeRoot treats query as a regular expression and scans from the
// live root. When ctx ends first, Search returns ctx.Err() and the result is
// discarded.
func (e *Engine) Search(ctx context.Context, query string, scope search.Scope) ([]search.Result, error) {
	if e.closed.Load() {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var run func(context.Context, string) ([]search.Result, error)
	switch scope {
	case search.ScopeHome:
		run = e.store.Search
	case search.ScopeRoot:
		run = e.live.Search
	default:
		return nil, fmt.Errorf("%w: %d", search.ErrUnknownScope, int(scope))
	}

	id := uuid.NewString()
	done := make(chan outcome, 1)
	err := e.pool.Go(ctx, func() {
		start := time.Now()
		results, err := run(e.ctx, query)
		e.log.Debug("Search finished",
			"search", id,
			"scope", scope.String(),
			"results", len(results),
			"duration", time.Since(start).Round(time.Millisecond),
			"error", err)
		done <- outcome{results, err}
	})
	if err != nil {
		return nil, err
	}

	select {
	case o := <-done:
		return o.results, o.err
	case <-ctx.Done():
		e.log.Debug("Search abandoned", "search", id, "error", ctx.Err())
		return nil, ctx.Err()
	}
}

// Progress returns the indexing progress.
func (e *Engine) Progress() *ProgressReceiver {
	return e.progress
}

// WaitIndexed blocks until the index is complete. It returns the rebuild
// error when the background rebuild failed.
func (e *Engine) WaitIndexed(ctx context.Context) error {
	p := e.progress
	for {
		changed := p.Changed()
		if err := p.Err(); err != nil {
			return err
		}
		if p.Value() >= 1 {
			return nil
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Rebuild runs a full rebuild in the foreground, reporting through
// Progress, and returns when it is committed.
func (e *Engine) Rebuild(ctx context.Context) error {
	if e.closed.Load() {
		return ErrClosed
	}
	done := make(chan error, 1)
	if err := e.writes.Go(ctx, func() { done <- e.rebuild(e.ctx) }); err != nil {
		return err
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns index statistics and engine state.
func (e *Engine) Stats() (Stats, error) {
	if e.closed.Load() {
		return Stats{}, ErrClosed
	}
	st, err := e.store.Stats()
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		Index:     st,
		Progress:  e.progress.Value(),
		Watching:  e.watcher != nil,
		Workers:   e.cfg.Engine.Workers,
		LiveRoot:  e.cfg.Live.Root,
		LastBatch: e.lastBatch.Load(),
	}, nil
}

// Close stops the watcher, cancels background work, waits for it and
// closes the index.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		e.closed.Store(true)
		e.cancel()

		var errs []error
		if e.watcher != nil {
			errs = append(errs, e.watcher.Close())
		}
		<-e.loopDone
		e.pool.Close()
		e.writes.Close()
		errs = append(errs, e.store.Close())
		e.closeErr = errors.Join(errs...)
	})
	return e.closeErr
}
