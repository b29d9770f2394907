// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package search holds the types shared by every search backend.
//
// A Result is one hit: a path plus, optionally, the matching line. Scope
// selects which backend answers a query:
//
//   - ScopeHome: the persistent index over the configured home root
//   - ScopeRoot: a live regex scan of the whole filesystem
//
// Callers group and sort results themselves; backends return them in their
// natural order (index rank, then line number; or walk order for live scans).
package search
