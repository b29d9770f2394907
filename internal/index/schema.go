// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package index

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jeranaias/filescope/internal/util"
)

const (
	// SchemaVersion tracks the on-disk format. Any change that adds or
	// renames a column bumps it; mismatching indexes are rebuilt from
	// scratch rather than migrated.
	SchemaVersion = 2

	// DatabaseFile is the SQLite file inside the index directory.
	DatabaseFile = "index.db"

	// MetaFile is the descriptor whose presence marks an existing index.
	MetaFile = "meta.json"
)

// Schema is the SQLite schema for the file index.
//
// entries holds one row per indexed path. entries_fts is a contentless FTS5
// table sharing the entries rowid: filename and content are tokenized and
// searchable, but file content is never stored.
const Schema = `
-- Metadata table for schema version and index state
CREATE TABLE IF NOT EXISTS metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
) WITHOUT ROWID;

-- One row per indexed file or directory
CREATE TABLE IF NOT EXISTS entries (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    path TEXT NOT NULL UNIQUE,       -- absolute path, exact-match key
    filename TEXT NOT NULL,
    is_directory INTEGER NOT NULL DEFAULT 0,
    last_modified INTEGER NOT NULL DEFAULT 0, -- Unix timestamp
    generation INTEGER NOT NULL DEFAULT 0     -- rebuild that last saw the path
);

CREATE INDEX IF NOT EXISTS idx_entries_is_directory ON entries(is_directory);
CREATE INDEX IF NOT EXISTS idx_entries_last_modified ON entries(last_modified);
CREATE INDEX IF NOT EXISTS idx_entries_generation ON entries(generation);

-- Full-text index over names and contents (indexed, not stored)
CREATE VIRTUAL TABLE IF NOT EXISTS entries_fts USING fts5(
    filename,
    content,
    content='',
    contentless_delete=1,
    tokenize='unicode61 remove_diacritics 2'
);

-- Keep FTS rows in step with entries
CREATE TRIGGER IF NOT EXISTS entries_ad AFTER DELETE ON entries BEGIN
    DELETE FROM entries_fts WHERE rowid = old.id;
END;
`

// InitMetadata initializes the metadata table with default values
const InitMetadata = `
INSERT OR IGNORE INTO metadata (key, value) VALUES ('schema_version', '2');
INSERT OR IGNORE INTO metadata (key, value) VALUES ('created_at', strftime('%s', 'now'));
INSERT OR IGNORE INTO metadata (key, value) VALUES ('last_full_index', '0');
INSERT OR IGNORE INTO metadata (key, value) VALUES ('generation', '0');
INSERT OR IGNORE INTO metadata (key, value) VALUES ('root_path', '');
`

// requiredColumns lists every column a usable index must have, per table.
var requiredColumns = map[string][]string{
	"entries":     {"path", "filename", "is_directory", "last_modified", "generation"},
	"entries_fts": {"filename", "content"},
}

// =============================================================================
// META DESCRIPTOR
// =============================================================================

// Meta is the JSON descriptor stored next to the database.
type Meta struct {
	SchemaVersion int       `json:"schema_version"`
	CreatedAt     time.Time `json:"created_at"`
	Root          string    `json:"root"`
}

func readMeta(path string) (*Meta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Meta
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", MetaFile, err)
	}
	return &m, nil
}

func writeMeta(path string, m *Meta) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return util.AtomicWriteFile(path, data, 0o644)
}
