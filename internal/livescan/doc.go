// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package livescan searches a directory tree on demand with a regular
// expression, without any index.
//
// Hidden entries and paths matched by .gitignore files are skipped, the walk
// stops at a fixed depth, and the total number of results is capped so that
// scanning a whole file system stays bounded. Nothing is kept between calls.
package livescan
