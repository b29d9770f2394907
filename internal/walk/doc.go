// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package walk provides an ignore-aware directory walker.
//
// The walker wraps filepath.WalkDir with the rules both search backends
// share:
//
//   - hidden entries (dot-prefixed names) are optionally skipped
//   - .gitignore files found in the tree are honoured hierarchically
//   - base-name exclude patterns (".git", "node_modules") prune subtrees
//   - absolute exclude paths (the index directory) prune subtrees
//   - an optional depth cap bounds how far below the root the walk goes
//
// Unreadable entries are reported through OnError and skipped; they never
// abort the walk.
package walk
