// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line parsing and the command handlers for
// filescope.
//
// # Key Types
//
//   - Command: Enumeration of the available commands
//   - Args: Parsed global and command-specific arguments
//   - ArgParser: Flag and positional parsing shared by all commands
//   - JSONResponse: Machine-readable output for --json
//
// # Usage
//
//	cmd, args := cli.Parse(os.Args[1:])
//	switch cmd {
//	case cli.CmdSearch:
//	    err = cli.HandleSearch(ctx, cfg, args)
//	case cli.CmdWatch:
//	    err = cli.HandleWatch(ctx, cfg, args)
//	// ... other commands
//	}
//
// # Commands Overview
//
//   - search: query the home index or scan the root with a regex
//   - index: build or rebuild the home index with a progress bar
//   - watch: interactive search with live indexing (default command)
//   - status: index statistics
//   - config: show, locate, initialize or query the configuration
//   - version, help
//
// # Exit Codes
//
// Errors map to exit codes with GetExitCode: usage errors (bad flags,
// malformed queries, invalid patterns) exit 2, configuration errors exit 3,
// a search without results exits 7.
package cli
