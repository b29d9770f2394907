// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by filescope packages.
//
// # Key Functions
//
// File Operations:
//   - AtomicWriteFile: Crash-safe file writing with fsync, used for the
//     index descriptor and the config file
//
// String Utilities:
//   - TruncateWidth: display-width truncation for terminal output
//   - StringWidth: display width of a string (CJK counts as two columns)
//   - DisplayLine: a matched line made safe for a single terminal row
//
// # Usage
//
//	// Write files atomically to prevent data loss
//	err := util.AtomicWriteFile(path, data, 0644)
//
//	// Fit a matched line into the remaining columns
//	line := util.TruncateWidth(util.DisplayLine(r.LineContent), width-prefix)
package util
