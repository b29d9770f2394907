// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// index_cmd.go - The index command.

package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jeranaias/filescope/internal/config"
	"github.com/jeranaias/filescope/internal/engine"
)

// HandleIndex handles the "index" command. An empty or recreated index is
// built; --rebuild rebuilds a complete one from scratch. Progress is drawn
// on stderr.
func HandleIndex(ctx context.Context, cfg *config.Config, args Args) error {
	start := time.Now()

	eng, err := engine.New(ctx, oneShot(cfg))
	if err != nil {
		return NewCommandError("index", "open", "failed to open index", err)
	}
	defer eng.Close()

	var w io.Writer = stderr
	if args.Quiet {
		w = io.Discard
	}
	out := newProgressPrinter(w, "Indexing", stderrIsTTY())

	rebuilt := false
	prog := eng.Progress()
	switch {
	case prog.Value() < 1 || prog.Err() != nil:
		// New started a build.
		rebuilt = true
		err = followProgress(ctx, prog, nil, out)
	case args.Rebuild:
		rebuilt = true
		err = rebuildWithProgress(ctx, eng, out)
	}
	out.Done()
	if err != nil {
		return NewCommandError("index", "rebuild", "index build failed", err)
	}

	st, err := eng.Stats()
	if err != nil {
		return NewCommandError("index", "stats", "failed to read index", err)
	}
	elapsed := time.Since(start)

	if args.JSON {
		return NewJSONResponse("index", IndexData{
			Rebuilt:   rebuilt,
			ElapsedMs: elapsed.Milliseconds(),
			Index:     indexInfo(st),
		}).Write(stdout)
	}

	if rebuilt {
		fmt.Fprintf(stdout, "%s Indexed %d files and %d directories under %s in %s\n",
			RenderStatus("ok"), st.Index.Documents-st.Index.Directories, st.Index.Directories,
			st.Index.Root, elapsed.Round(time.Millisecond))
	} else {
		fmt.Fprintf(stdout, "%s Index of %s is up to date (%d entries). Use --rebuild to start over.\n",
			RenderStatus("ok"), st.Index.Root, st.Index.Documents)
	}
	return nil
}

// rebuildWithProgress runs a foreground rebuild and draws its progress
// until it returns.
func rebuildWithProgress(ctx context.Context, eng *engine.Engine, out *progressPrinter) error {
	g, gctx := errgroup.WithContext(ctx)
	done := make(chan struct{})

	g.Go(func() error {
		defer close(done)
		return eng.Rebuild(gctx)
	})
	g.Go(func() error {
		err := followProgress(gctx, eng.Progress(), done, out)
		if gctx.Err() != nil {
			// The rebuild's own error, if any, is the one to report.
			return nil
		}
		return err
	})
	return g.Wait()
}

// indexInfo converts engine statistics for JSON output.
func indexInfo(st engine.Stats) IndexInfo {
	info := IndexInfo{
		Root:          st.Index.Root,
		Dir:           st.Index.Dir,
		Documents:     st.Index.Documents,
		Directories:   st.Index.Directories,
		DatabaseSize:  st.Index.DatabaseSize,
		SchemaVersion: st.Index.SchemaVersion,
		SchemaOK:      st.Index.SchemaOK,
		Generation:    st.Index.Generation,
		Complete:      st.Index.Complete,
	}
	if !st.Index.LastIndexed.IsZero() {
		info.LastIndexed = st.Index.LastIndexed.UTC().Format(time.RFC3339)
	}
	return info
}
