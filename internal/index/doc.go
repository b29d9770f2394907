// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package index provides the persistent full-text index of the home tree.
//
// The index is a SQLite database (modernc.org/sqlite) in its own directory.
// Every file and directory below the root gets a row in the entries table
// and a row in a contentless FTS5 table: names and text contents are
// searchable, but contents are never stored. A meta.json descriptor marks
// a complete index; an index with a missing column, an old schema version
// or a damaged database file is deleted and created again.
//
// # Key Types
//
//   - Store: the index, with one writer connection and a read pool
//   - Config: root, index directory and limits
//   - Stats: document counts, size on disk and rebuild state
//   - ProgressSink: receives rebuild progress in [0,1]
//
// # What gets indexed
//
//   - Hidden entries, minus .git/.hg/.svn and the index directory itself
//   - Directories, searchable by name
//   - Regular UTF-8 text files up to MaxFileSize
//
// Paths matched by a .gitignore file are skipped.
//
// # Usage
//
//	store, err := index.Open(index.DefaultConfig(root, dir))
//	err = store.Rebuild(ctx, func(f float32) { fmt.Printf("%.0f%%\n", f*100) })
//
// Keep it fresh from watcher batches:
//
//	err = store.ProcessChanges(ctx, []string{"/home/me/notes.txt"})
//
// Search:
//
//	results, err := store.Search(ctx, "quarterly report")
//	for _, r := range results {
//	    fmt.Println(r)
//	}
package index
