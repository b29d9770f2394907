// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// search_cmd.go - The search command.

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jeranaias/filescope/internal/config"
	"github.com/jeranaias/filescope/internal/engine"
	"github.com/jeranaias/filescope/internal/search"
)

// Output streams; tests replace them.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

const searchUsage = "filescope search [--scope home|root] <query>"

// HandleSearch handles the "search" command.
// A home search waits for a running index build unless --no-wait is given.
// It returns ErrNoResults when nothing matched.
func HandleSearch(ctx context.Context, cfg *config.Config, args Args) error {
	if strings.TrimSpace(args.Query) == "" {
		return ErrMissingArgument("query", searchUsage)
	}
	scope, err := search.ParseScope(args.Scope)
	if err != nil {
		return err
	}
	limit := 0
	if s, ok := args.Options["limit"]; ok {
		if limit, err = ParseIntWithValidation(s, "limit"); err != nil {
			return err
		}
	}

	eng, err := engine.New(ctx, oneShot(cfg))
	if err != nil {
		return NewCommandError("search", scope.String(), "failed to open index", err)
	}
	defer eng.Close()

	if scope == search.ScopeHome && !args.NoWait {
		if err := waitForIndex(ctx, eng, args); err != nil {
			return NewCommandError("search", scope.String(), "index build failed", err)
		}
	}

	start := time.Now()
	results, err := eng.Search(ctx, args.Query, scope)
	elapsed := time.Since(start)
	if err != nil {
		return NewCommandError("search", scope.String(), "search failed", err)
	}

	truncated := false
	if limit > 0 && len(results) > limit {
		results = results[:limit]
		truncated = true
	}

	if args.JSON {
		data := SearchData{
			Query:     args.Query,
			Scope:     scope.String(),
			Count:     len(results),
			Truncated: truncated,
			ElapsedMs: elapsed.Milliseconds(),
			Results:   results,
		}
		if err := NewJSONResponse("search", data).Write(stdout); err != nil {
			return err
		}
	} else {
		f := resultFormat{styled: ColorsEnabled(), nameOnly: args.FilesOnly}
		if stdoutIsTTY() {
			f.width = GetTerminalWidth()
		}
		writeResults(stdout, results, f)
		if len(results) == 0 && !args.Quiet {
			fmt.Fprintf(stderr, "No matches for %q in %s\n", args.Query, scope)
		}
	}

	if len(results) == 0 {
		return ErrNoResults
	}
	return nil
}

// oneShot returns a copy of cfg for commands that exit when done. The
// index is brought up to date by the startup rebuild check, not by
// watching.
func oneShot(cfg *config.Config) *config.Config {
	c := *cfg
	c.Watch.Enabled = false
	return &c
}

// waitForIndex blocks until a background index build finishes, drawing
// progress on stderr.
func waitForIndex(ctx context.Context, eng *engine.Engine, args Args) error {
	prog := eng.Progress()
	if prog.Value() >= 1 && prog.Err() == nil {
		return nil
	}
	var w io.Writer = stderr
	if args.Quiet {
		w = io.Discard
	}
	out := newProgressPrinter(w, "Indexing", stderrIsTTY())
	defer out.Done()
	return followProgress(ctx, prog, nil, out)
}
