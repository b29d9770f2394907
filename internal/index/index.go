// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package index

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrClosed         = errors.New("index closed")
	ErrDatabaseError  = errors.New("database error")
	ErrInvalidPath    = errors.New("invalid path")
	ErrSchemaMismatch = errors.New("index schema mismatch")
)

// =============================================================================
// CONFIGURATION
// =============================================================================

const (
	// DefaultMaxFileSize is the largest file whose content is indexed.
	DefaultMaxFileSize = 10 * 1024 * 1024 // 10MB

	// DefaultMaxHits caps the number of documents a search returns.
	DefaultMaxHits = 50

	// DefaultProgressEvery is how many entries pass between progress updates.
	DefaultProgressEvery = 100
)

// Config holds index configuration
type Config struct {
	// Root is the directory tree to index (the "home" scope)
	Root string

	// Dir is the index directory holding index.db and meta.json
	Dir string

	// MaxFileSize is the maximum file size whose content is indexed (bytes)
	MaxFileSize int64

	// MaxHits limits the documents returned per search
	MaxHits int

	// ProgressEvery is the rebuild progress reporting interval, in entries
	ProgressEvery int

	// Exclude holds base-name glob patterns never indexed
	Exclude []string

	// Debug logs per-file line matching during searches
	Debug bool

	// Logger receives index logs (default: slog.Default())
	Logger *slog.Logger
}

// DefaultConfig returns default configuration
func DefaultConfig(root, dir string) *Config {
	return &Config{
		Root:          root,
		Dir:           dir,
		MaxFileSize:   DefaultMaxFileSize,
		MaxHits:       DefaultMaxHits,
		ProgressEvery: DefaultProgressEvery,
	}
}

// ProgressSink receives the fraction of a rebuild completed, in [0,1].
type ProgressSink func(fraction float32)

// =============================================================================
// STORE
// =============================================================================

// Store is the persistent inverted index over one directory tree.
//
// Mutations (Rebuild, ProcessChanges, Remove) go through a single writer
// connection guarded by a mutex. Searches use a separate read pool and see
// the last committed snapshot without taking the lock.
type Store struct {
	cfg  Config
	root string
	dir  string
	log  *slog.Logger

	writer  *sql.DB
	reader  *sql.DB
	writeMu sync.Mutex

	recreated  bool
	closed     atomic.Bool
	rebuilding atomic.Bool

	// Index state, guarded by mu
	mu          sync.RWMutex
	generation  int64
	lastIndexed time.Time
}

// Open opens the index in cfg.Dir, creating it when missing. An index whose
// descriptor, schema or database file is unusable is destroyed and created
// again; Recreated reports when that happened.
func Open(cfg *Config) (*Store, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrInvalidPath, root)
	}

	dir, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	s := &Store{
		cfg:  *cfg,
		root: root,
		dir:  dir,
	}
	if s.cfg.MaxFileSize <= 0 {
		s.cfg.MaxFileSize = DefaultMaxFileSize
	}
	if s.cfg.MaxHits <= 0 {
		s.cfg.MaxHits = DefaultMaxHits
	}
	if s.cfg.ProgressEvery <= 0 {
		s.cfg.ProgressEvery = DefaultProgressEvery
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s.log = logger.With("component", "index")

	if err := s.open(); err != nil {
		return nil, err
	}
	return s, nil
}

// open selects between opening an existing index and creating a new one.
func (s *Store) open() error {
	meta, err := readMeta(filepath.Join(s.dir, MetaFile))
	switch {
	case err == nil && meta.SchemaVersion == SchemaVersion && meta.Root != s.root:
		// The entries describe another tree.
		s.log.Info("Index root changed, recreating",
			"dir", s.dir, "have", meta.Root, "want", s.root)

	case err == nil && meta.SchemaVersion == SchemaVersion:
		err := s.openExisting()
		if err == nil {
			return nil
		}
		if isBusy(err) {
			return fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
		s.log.Info("Index unusable, recreating", "dir", s.dir, "error", err)

	case err == nil:
		s.log.Info("Index schema outdated, recreating",
			"dir", s.dir, "have", meta.SchemaVersion, "want", SchemaVersion)

	case errors.Is(err, fs.ErrNotExist):
		// No descriptor: anything left in the directory is an incomplete
		// earlier attempt.
		if _, statErr := os.Stat(filepath.Join(s.dir, DatabaseFile)); statErr == nil {
			if err := s.destroy(); err != nil {
				return err
			}
		}
		return s.create()

	default:
		s.log.Warn("Unreadable index descriptor, recreating", "dir", s.dir, "error", err)
	}

	s.recreated = true
	if err := s.destroy(); err != nil {
		return err
	}
	return s.create()
}

// openExisting opens the database and checks that every required column is
// present.
func (s *Store) openExisting() error {
	if err := s.openHandles(); err != nil {
		return err
	}
	missing, err := missingColumns(s.writer)
	if err == nil && len(missing) > 0 {
		err = fmt.Errorf("%w: missing %s", ErrSchemaMismatch, strings.Join(missing, ", "))
	}
	if err == nil {
		err = s.loadState()
	}
	if err != nil {
		s.closeHandles()
		return err
	}
	return nil
}

// create initializes a fresh database and writes the descriptor last, so a
// crash mid-creation leaves no descriptor behind.
func (s *Store) create() error {
	if err := s.openHandles(); err != nil {
		return err
	}
	if _, err := s.writer.Exec(Schema); err != nil {
		s.closeHandles()
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	if _, err := s.writer.Exec(InitMetadata); err != nil {
		s.closeHandles()
		return fmt.Errorf("failed to initialize metadata: %w", err)
	}
	if _, err := s.writer.Exec("UPDATE metadata SET value = ? WHERE key = 'root_path'", s.root); err != nil {
		s.closeHandles()
		return fmt.Errorf("failed to initialize metadata: %w", err)
	}

	meta := &Meta{SchemaVersion: SchemaVersion, CreatedAt: time.Now().UTC(), Root: s.root}
	if err := writeMeta(filepath.Join(s.dir, MetaFile), meta); err != nil {
		s.closeHandles()
		return fmt.Errorf("failed to write index descriptor: %w", err)
	}
	return s.loadState()
}

// destroy removes every file in the index directory.
func (s *Store) destroy() error {
	if err := os.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("failed to remove old index: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}
	return nil
}

// openHandles opens the single-connection writer and the read pool.
func (s *Store) openHandles() error {
	dbPath := filepath.Join(s.dir, DatabaseFile)

	writer, err := sql.Open("sqlite", dsn(dbPath, false))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	writer.SetMaxOpenConns(1)
	writer.SetMaxIdleConns(1)
	writer.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=-64000",      // 64MB cache
		"PRAGMA temp_store=MEMORY",
		"PRAGMA wal_autocheckpoint=1000", // Checkpoint every 1000 pages
	}
	for _, pragma := range pragmas {
		if _, err := writer.Exec(pragma); err != nil {
			writer.Close()
			return fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	reader, err := sql.Open("sqlite", dsn(dbPath, true))
	if err != nil {
		writer.Close()
		return fmt.Errorf("failed to open database: %w", err)
	}
	reader.SetMaxOpenConns(8)
	reader.SetMaxIdleConns(4)

	s.writer = writer
	s.reader = reader
	return nil
}

func (s *Store) closeHandles() {
	if s.reader != nil {
		s.reader.Close()
		s.reader = nil
	}
	if s.writer != nil {
		s.writer.Close()
		s.writer = nil
	}
}

// dsn builds a modernc.org/sqlite data source name. Per-connection pragmas
// go in the DSN so every pooled connection gets them.
func dsn(path string, readOnly bool) string {
	v := "file:" + filepath.ToSlash(path) + "?_pragma=busy_timeout(5000)"
	if readOnly {
		v += "&_pragma=query_only(1)"
	}
	return v
}

// missingColumns returns "table.column" for every required column absent
// from db.
func missingColumns(db *sql.DB) ([]string, error) {
	var missing []string
	for table, cols := range requiredColumns {
		have := make(map[string]bool)
		rows, err := db.Query("SELECT name FROM pragma_table_info(?)", table)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				rows.Close()
				return nil, err
			}
			have[name] = true
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()

		for _, col := range cols {
			if !have[col] {
				missing = append(missing, table+"."+col)
			}
		}
	}
	sort.Strings(missing)
	return missing, nil
}

// loadState loads generation and last rebuild time from the metadata table.
func (s *Store) loadState() error {
	values := make(map[string]string)
	rows, err := s.writer.Query("SELECT key, value FROM metadata")
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return err
		}
		values[k] = v
	}
	if err := rows.Err(); err != nil {
		return err
	}

	gen, _ := strconv.ParseInt(values["generation"], 10, 64)
	last, _ := strconv.ParseInt(values["last_full_index"], 10, 64)

	s.mu.Lock()
	s.generation = gen
	if last > 0 {
		s.lastIndexed = time.Unix(last, 0)
	}
	s.mu.Unlock()
	return nil
}

func isBusy(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "sqlite_busy")
}

// Close closes the index and releases resources. It waits for an in-flight
// mutation to finish.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var errs []error
	if s.reader != nil {
		errs = append(errs, s.reader.Close())
	}
	if s.writer != nil {
		errs = append(errs, s.writer.Close())
	}
	return errors.Join(errs...)
}

// =============================================================================
// STATISTICS
// =============================================================================

// Stats describes the index.
type Stats struct {
	Root          string
	Dir           string
	Documents     int
	Directories   int
	DatabaseSize  int64
	LastIndexed   time.Time
	IsIndexing    bool
	SchemaVersion int
	Generation    int64

	// Complete is true once a full rebuild has committed.
	Complete bool
	// SchemaOK is false when a required column is missing.
	SchemaOK bool
}

// Root returns the absolute indexed root.
func (s *Store) Root() string { return s.root }

// Dir returns the absolute index directory.
func (s *Store) Dir() string { return s.dir }

// Recreated reports whether Open had to throw away an unusable index.
func (s *Store) Recreated() bool { return s.recreated }

// DocCount returns the number of indexed entries (files and directories).
func (s *Store) DocCount() (int, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}
	var n int
	if err := s.reader.QueryRow("SELECT COUNT(*) FROM entries").Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return n, nil
}

// HasRequiredSchema reports whether every required column is present.
func (s *Store) HasRequiredSchema() bool {
	if s.closed.Load() {
		return false
	}
	missing, err := missingColumns(s.reader)
	return err == nil && len(missing) == 0
}

// Stats returns current index statistics
func (s *Store) Stats() (Stats, error) {
	if s.closed.Load() {
		return Stats{}, ErrClosed
	}

	st := Stats{
		Root:          s.root,
		Dir:           s.dir,
		IsIndexing:    s.rebuilding.Load(),
		SchemaVersion: SchemaVersion,
	}
	err := s.reader.QueryRow(
		"SELECT COUNT(*), COALESCE(SUM(is_directory), 0) FROM entries",
	).Scan(&st.Documents, &st.Directories)
	if err != nil {
		return Stats{}, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	for _, name := range []string{DatabaseFile, DatabaseFile + "-wal"} {
		if info, err := os.Stat(filepath.Join(s.dir, name)); err == nil {
			st.DatabaseSize += info.Size()
		}
	}

	s.mu.RLock()
	st.LastIndexed = s.lastIndexed
	st.Generation = s.generation
	s.mu.RUnlock()
	st.Complete = s.IsIndexed()
	st.SchemaOK = s.HasRequiredSchema()
	return st, nil
}

// IsIndexed returns true once a full rebuild has completed
func (s *Store) IsIndexed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.lastIndexed.IsZero()
}
