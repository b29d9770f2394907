// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package index

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"github.com/jeranaias/filescope/internal/walk"
)

// =============================================================================
// FULL REBUILD
// =============================================================================

// Rebuild walks the whole root and replaces the index contents in a single
// transaction. Entries not seen by this walk are pruned before commit. When
// sink is non-nil it receives 0 first, periodic fractions while walking, and
// 1 after the commit. A cancelled ctx rolls everything back.
func (s *Store) Rebuild(ctx context.Context, sink ProgressSink) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.closed.Load() {
		return ErrClosed
	}

	s.rebuilding.Store(true)
	defer s.rebuilding.Store(false)

	start := time.Now()
	w := s.walker()

	total := 0
	if sink != nil {
		sink(0)
		n, err := w.Count(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.log.Warn("Failed to count entries", "root", s.root, "error", err)
		}
		total = n
	}

	tx, err := s.writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	gen := s.currentGeneration() + 1
	progress := &rate.Sometimes{Every: s.cfg.ProgressEvery}
	var visited, indexed int

	walkErr := w.Walk(ctx, func(path string, d fs.DirEntry, _ int) error {
		visited++
		if sink != nil && total > 0 {
			progress.Do(func() { sink(fraction(visited, total)) })
		}

		info, err := d.Info()
		if err != nil {
			s.log.Warn("Failed to stat entry", "path", path, "error", err)
			return nil
		}
		ok, err := s.upsert(ctx, tx, path, info, gen)
		if err != nil {
			return err
		}
		if ok {
			indexed++
		}
		return nil
	})
	if walkErr != nil {
		return fmt.Errorf("failed to walk %s: %w", s.root, walkErr)
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM entries WHERE generation < ?", gen)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	pruned, _ := res.RowsAffected()

	if err := setMetadata(ctx, tx, map[string]string{
		"generation":      strconv.FormatInt(gen, 10),
		"last_full_index": strconv.FormatInt(start.Unix(), 10),
		"root_path":       s.root,
	}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrDatabaseError, err)
	}

	s.mu.Lock()
	s.generation = gen
	s.lastIndexed = start
	s.mu.Unlock()

	s.log.Info("Index rebuilt",
		"root", s.root,
		"visited", visited,
		"indexed", indexed,
		"pruned", pruned,
		"duration", time.Since(start).Round(time.Millisecond))

	if sink != nil {
		sink(1)
	}
	return nil
}

func fraction(done, total int) float32 {
	if total <= 0 || done >= total {
		return 1
	}
	return float32(done) / float32(total)
}

func setMetadata(ctx context.Context, tx *sql.Tx, values map[string]string) error {
	for k, v := range values {
		_, err := tx.ExecContext(ctx,
			"INSERT OR REPLACE INTO metadata (key, value) VALUES (?, ?)", k, v)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
	}
	return nil
}

func (s *Store) currentGeneration() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// walker returns the walker used for indexing: hidden entries are included,
// .gitignore rules are honoured and the index directory is never indexed.
func (s *Store) walker() *walk.Walker {
	exclude := make([]string, 0, len(walk.DefaultExclude)+len(s.cfg.Exclude))
	exclude = append(exclude, walk.DefaultExclude...)
	exclude = append(exclude, s.cfg.Exclude...)

	return &walk.Walker{
		Root:          s.root,
		IncludeHidden: true,
		GitIgnore:     true,
		Exclude:       exclude,
		ExcludePaths:  []string{s.dir},
		OnError: func(path string, err error) {
			s.log.Warn("Walk error", "path", path, "error", err)
		},
	}
}

// =============================================================================
// INCREMENTAL UPDATES
// =============================================================================

// ProcessChanges applies a batch of changed paths in one transaction.
// Paths that no longer exist (or are now ignored) are removed together with
// everything below them; existing paths are re-indexed. A directory that was
// not indexed before also gets its whole subtree indexed. Paths outside the
// root are skipped with a warning.
func (s *Store) ProcessChanges(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.closed.Load() {
		return ErrClosed
	}

	tx, err := s.writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	gen := s.currentGeneration()
	w := s.walker()
	var upserted, removed int

	for _, p := range paths {
		path, ok := s.resolve(p)
		if !ok {
			s.log.Warn("Ignoring change outside index root", "path", p, "root", s.root)
			continue
		}

		info, err := os.Lstat(path)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) && !errors.Is(err, syscall.ENOTDIR) {
				s.log.Warn("Failed to stat changed path", "path", path, "error", err)
				continue
			}
			n, err := deleteTree(ctx, tx, path)
			if err != nil {
				return err
			}
			removed += n
			continue
		}

		if w.Ignored(path, info.IsDir()) {
			n, err := deleteTree(ctx, tx, path)
			if err != nil {
				return err
			}
			removed += n
			continue
		}

		known := true
		if info.IsDir() {
			if known, err = isIndexed(ctx, tx, path); err != nil {
				return err
			}
		}

		ok, err = s.upsert(ctx, tx, path, info, gen)
		if err != nil {
			return err
		}
		if ok {
			upserted++
		}

		if !known {
			n, err := s.indexSubtree(ctx, tx, w, path, gen)
			if err != nil {
				return err
			}
			upserted += n
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrDatabaseError, err)
	}

	s.log.Debug("Processed changes",
		"paths", len(paths), "upserted", upserted, "removed", removed)
	return nil
}

// Update re-indexes a single path.
func (s *Store) Update(ctx context.Context, path string) error {
	return s.ProcessChanges(ctx, []string{path})
}

// Remove deletes path and everything below it from the index, whether or
// not it still exists on disk.
func (s *Store) Remove(ctx context.Context, path string) error {
	abs, ok := s.resolve(path)
	if !ok {
		return fmt.Errorf("%w: %s is outside of index root %s", ErrInvalidPath, path, s.root)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.closed.Load() {
		return ErrClosed
	}

	tx, err := s.writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	if _, err := deleteTree(ctx, tx, abs); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrDatabaseError, err)
	}
	return nil
}

// resolve makes path absolute and reports whether it lies strictly below
// the root.
func (s *Store) resolve(path string) (string, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	rel, err := filepath.Rel(s.root, abs)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return abs, true
}

func (s *Store) indexSubtree(ctx context.Context, tx *sql.Tx, w *walk.Walker, dir string, gen int64) (int, error) {
	n := 0
	err := w.WalkFrom(ctx, dir, func(path string, d fs.DirEntry, _ int) error {
		info, err := d.Info()
		if err != nil {
			s.log.Warn("Failed to stat entry", "path", path, "error", err)
			return nil
		}
		ok, err := s.upsert(ctx, tx, path, info, gen)
		if err != nil {
			return err
		}
		if ok {
			n++
		}
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return n, nil
	}
	return n, err
}

// =============================================================================
// ENTRY WRITES
// =============================================================================

// upsert replaces the entry for path. Any previous entry is deleted first,
// so a file that turned binary or grew too large drops out of the index.
// It reports whether a new entry was written; only database failures are
// returned as errors.
func (s *Store) upsert(ctx context.Context, tx *sql.Tx, path string, info fs.FileInfo, gen int64) (bool, error) {
	if _, err := tx.ExecContext(ctx, "DELETE FROM entries WHERE path = ?", path); err != nil {
		return false, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	name := filepath.Base(path)
	isDir := 0
	var content string

	switch {
	case info.IsDir():
		isDir = 1
		content = name

	case !info.Mode().IsRegular():
		return false, nil

	case info.Size() > s.cfg.MaxFileSize:
		s.log.Debug("Skipping large file", "path", path, "size", info.Size())
		return false, nil

	default:
		data, err := os.ReadFile(path)
		if err != nil {
			s.log.Warn("Failed to read file", "path", path, "error", err)
			return false, nil
		}
		if bytes.IndexByte(data, 0) >= 0 || !utf8.Valid(data) {
			s.log.Debug("Skipping non-text file", "path", path)
			return false, nil
		}
		content = string(data)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO entries (path, filename, is_directory, last_modified, generation)
		VALUES (?, ?, ?, ?, ?)
	`, path, name, isDir, info.ModTime().Unix(), gen)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO entries_fts (rowid, filename, content) VALUES (?, ?, ?)",
		id, name, content)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return true, nil
}

// deleteTree removes path and every entry below it. The pattern uses GLOB
// because LIKE folds ASCII case.
func deleteTree(ctx context.Context, tx *sql.Tx, path string) (int, error) {
	pattern := escapeGlob(path+string(filepath.Separator)) + "*"
	res, err := tx.ExecContext(ctx,
		"DELETE FROM entries WHERE path = ? OR path GLOB ?", path, pattern)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func isIndexed(ctx context.Context, tx *sql.Tx, path string) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx, "SELECT 1 FROM entries WHERE path = ?", path).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return true, nil
}

var globEscaper = strings.NewReplacer("[", "[[]", "*", "[*]", "?", "[?]")

func escapeGlob(s string) string {
	return globEscaper.Replace(s)
}
