// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Command parsing, usage and version for filescope.
package cli

import (
	"fmt"
	"io"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdWatch Command = iota
	CmdSearch
	CmdIndex
	CmdStatus
	CmdConfig
	CmdVersion
	CmdHelp
	CmdUnknown
)

// String returns the command name as typed on the command line.
func (c Command) String() string {
	switch c {
	case CmdWatch:
		return "watch"
	case CmdSearch:
		return "search"
	case CmdIndex:
		return "index"
	case CmdStatus:
		return "status"
	case CmdConfig:
		return "config"
	case CmdVersion:
		return "version"
	case CmdHelp:
		return "help"
	}
	return "unknown"
}

// NeedsConfig reports whether the command runs with a loaded
// configuration. The config command loads it itself so that it can still
// locate and rewrite a broken file.
func (c Command) NeedsConfig() bool {
	switch c {
	case CmdConfig, CmdVersion, CmdHelp, CmdUnknown:
		return false
	}
	return true
}

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	ConfigPath string // --config PATH
	Quiet      bool
	Verbose    bool
	JSON       bool // Output in JSON format

	// search / watch
	Query     string
	Scope     string // "home" or "root"; empty means home
	NoWait    bool   // search the index as it is, even mid-rebuild
	FilesOnly bool   // print each matching path once

	// index
	Rebuild bool

	// config
	Subcommand string
	ConfigKey  string
	Force      bool

	// Raw args (remaining after global flag parsing)
	Raw []string

	// Options holds command-specific named options (e.g., --limit)
	Options map[string]string
}

const usageText = `filescope - search your home index and your whole filesystem

filescope keeps a full-text index of a home directory (default ~/Documents),
updated as files change, and scans any other directory on demand with a
regular expression.

Usage:
  filescope                          Interactive search (default)
  filescope watch [query]            Interactive search with live indexing
  filescope search <query>           Search and print matches
  filescope index [--rebuild]        Build the home index with progress
  filescope status                   Index statistics
  filescope config [show|path|init|get|keys]
  filescope version
  filescope help

Search Flags:
  -s, --scope home|root   home: full-text index query (default)
                          root: regular expression scan from live.root
  --limit N               Print at most N results
  -l, --files             Print each matching path once
  --no-wait               Do not wait for a running index build
  --                      Treat everything after as the query

Config Subcommands:
  show                    Print the effective configuration as TOML
  path                    Print the config file location
  init [--force]          Write the default configuration
  get <key>               Print one value, e.g. index.root
  keys                    List the keys get accepts

Global Flags:
  --config PATH   Config file (default ~/.filescope/config.toml, or FILESCOPE_CONFIG)
  --json          Output in JSON format
  -q, --quiet     Only errors in the log
  -v, --verbose   Debug logging

Home queries:
  Words are matched against file names and contents, all words must match,
  case and diacritics are ignored. Quotes, *, parentheses, ^ and the
  operators AND, OR, NOT and NEAR switch to full-text query syntax.

Examples:
  filescope search invoice 2024           Files mentioning both words
  filescope search 'report*' --json       Prefix query, JSON output
  filescope search -s root 'fn\s+main'    Regex scan from /
  filescope index --rebuild               Rebuild from scratch
  filescope config get index.root

Exit Codes:
  0 success, 1 error, 2 usage or query error, 3 config error, 7 no results

Version: %s
`

// PrintUsage writes the usage/help text to w.
func PrintUsage(w io.Writer) {
	fmt.Fprintf(w, usageText, Version)
}

// HandleVersion writes version information, as JSON with --json.
func HandleVersion(w io.Writer, args Args) error {
	if args.JSON {
		return NewJSONResponse("version", VersionData{
			Version:   Version,
			GitCommit: GitCommit,
			BuildDate: BuildDate,
			GoVersion: runtime.Version(),
		}).Write(w)
	}
	fmt.Fprintf(w, "filescope version %s\n", Version)
	fmt.Fprintf(w, "  Git commit: %s\n", GitCommit)
	fmt.Fprintf(w, "  Build date: %s\n", BuildDate)
	fmt.Fprintf(w, "  Go version: %s\n", runtime.Version())
	return nil
}

// Parse parses command-line arguments (without the program name) and
// returns the command and its args.
func Parse(argv []string) (Command, Args) {
	remaining, parsedArgs := parseGlobalFlags(argv)

	// No command: interactive search
	if len(remaining) == 0 {
		return CmdWatch, parsedArgs
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	parsedArgs.Raw = remaining

	switch cmd {
	case "watch", "tui":
		parseSearchArgs(&parsedArgs, remaining)
		return CmdWatch, parsedArgs

	case "search", "find", "s":
		parseSearchArgs(&parsedArgs, remaining)
		return CmdSearch, parsedArgs

	case "index":
		p := NewArgParser(remaining, "rebuild", "r")
		parsedArgs.Rebuild = p.BoolFlag("rebuild", "r")
		return CmdIndex, parsedArgs

	case "status":
		return CmdStatus, parsedArgs

	case "config":
		p := NewArgParser(remaining, "force", "f")
		parsedArgs.Subcommand = strings.ToLower(p.Subcommand())
		if parsedArgs.Subcommand == "" {
			parsedArgs.Subcommand = "show"
		}
		parsedArgs.ConfigKey = p.Positional(1)
		parsedArgs.Force = p.BoolFlag("force", "f")
		return CmdConfig, parsedArgs

	case "version", "--version", "-V":
		return CmdVersion, parsedArgs

	case "help", "--help", "-h":
		return CmdHelp, parsedArgs

	default:
		parsedArgs.Subcommand = cmd
		return CmdUnknown, parsedArgs
	}
}

// parseGlobalFlags extracts global flags from args and returns remaining
// args. Parsing stops at "--" so a query can contain flag-like words.
func parseGlobalFlags(args []string) ([]string, Args) {
	var remaining []string
	parsedArgs := Args{
		Options: make(map[string]string),
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch {
		case arg == "--":
			return append(remaining, args[i:]...), parsedArgs
		case arg == "-q" || arg == "--quiet":
			parsedArgs.Quiet = true
		case arg == "-v" || arg == "--verbose":
			parsedArgs.Verbose = true
		case arg == "--json":
			parsedArgs.JSON = true
		case arg == "--config":
			if i+1 < len(args) {
				i++
				parsedArgs.ConfigPath = args[i]
			}
		case strings.HasPrefix(arg, "--config="):
			parsedArgs.ConfigPath = strings.TrimPrefix(arg, "--config=")
		default:
			remaining = append(remaining, arg)
		}
	}

	return remaining, parsedArgs
}

// parseSearchArgs parses the flags shared by search and watch.
func parseSearchArgs(args *Args, remaining []string) {
	p := NewArgParser(remaining, "no-wait", "files", "l")
	args.Scope = strings.ToLower(p.FlagOrDefault("", "scope", "s"))
	args.NoWait = p.BoolFlag("no-wait")
	args.FilesOnly = p.BoolFlag("files", "l")
	if limit := p.Flag("limit"); limit != "" {
		args.Options["limit"] = limit
	}
	args.Query = JoinPositionalArgs(p, 0)
}
