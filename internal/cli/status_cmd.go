// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// status_cmd.go - The status command.

package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jeranaias/filescope/internal/config"
	"github.com/jeranaias/filescope/internal/engine"
	"github.com/jeranaias/filescope/internal/index"
)

// HandleStatus handles the "status" command. It reads the index without
// starting a build.
func HandleStatus(cfg *config.Config, args Args) error {
	store, err := index.Open(engine.StoreConfig(cfg, slog.Default()))
	if err != nil {
		return NewCommandError("status", "open", "failed to open index", err)
	}
	defer store.Close()

	st, err := store.Stats()
	if err != nil {
		return NewCommandError("status", "stats", "failed to read index", err)
	}

	data := StatusData{
		ConfigPath: resolveConfigPath(args),
		Index:      indexInfo(engine.Stats{Index: st}),
		Live: LiveInfo{
			Root:       cfg.Live.Root,
			MaxDepth:   cfg.Live.MaxDepth,
			MaxResults: cfg.Live.MaxResults,
		},
		Watch: WatchInfo{
			Enabled:  cfg.Watch.Enabled,
			Debounce: cfg.Watch.Debounce.String(),
		},
		Workers: cfg.Engine.Workers,
	}

	if args.JSON {
		return NewJSONResponse("status", data).Write(stdout)
	}

	state := "ready"
	switch {
	case !st.SchemaOK:
		state = "error"
	case store.Recreated() || st.Documents == 0:
		state = "empty"
	case !st.Complete:
		state = "pending"
	}

	w := stdout
	fmt.Fprintln(w, TitleStyle.Render("filescope Status"))
	fmt.Fprintln(w, RenderSeparator(41))

	fmt.Fprintln(w, SectionStyle.Render("Home Index"))
	fmt.Fprintf(w, "%s%s %s\n", RenderLabel("State:"), RenderStatus(state), statusHint(state))
	fmt.Fprintf(w, "%s%s\n", RenderLabel("Root:"), ValueStyle.Render(st.Root))
	fmt.Fprintf(w, "%s%s\n", RenderLabel("Index dir:"), ValueStyle.Render(st.Dir))
	fmt.Fprintf(w, "%s%d files, %d directories\n", RenderLabel("Entries:"), st.Documents-st.Directories, st.Directories)
	fmt.Fprintf(w, "%s%s\n", RenderLabel("Database size:"), formatBytes(st.DatabaseSize))
	fmt.Fprintf(w, "%s%s\n", RenderLabel("Last indexed:"), formatTime(st.LastIndexed))
	fmt.Fprintf(w, "%sv%d, generation %d\n", RenderLabel("Schema:"), st.SchemaVersion, st.Generation)

	fmt.Fprintln(w, SectionStyle.Render("Root Scan"))
	fmt.Fprintf(w, "%s%s\n", RenderLabel("Root:"), ValueStyle.Render(cfg.Live.Root))
	fmt.Fprintf(w, "%sdepth %d, %d results\n", RenderLabel("Limits:"), cfg.Live.MaxDepth, cfg.Live.MaxResults)

	fmt.Fprintln(w, SectionStyle.Render("Engine"))
	watch := "disabled"
	if cfg.Watch.Enabled {
		watch = "enabled"
	}
	fmt.Fprintf(w, "%s%s debounce %s\n", RenderLabel("Watcher:"), RenderStatus(watch), cfg.Watch.Debounce)
	fmt.Fprintf(w, "%s%d\n", RenderLabel("Workers:"), cfg.Engine.Workers)
	fmt.Fprintf(w, "%s%s\n", RenderLabel("Config:"), DimStyle.Render(data.ConfigPath))
	return nil
}

func statusHint(state string) string {
	switch state {
	case "empty":
		return DimStyle.Render("run 'filescope index' to build it")
	case "pending":
		return DimStyle.Render("no completed build yet")
	case "error":
		return DimStyle.Render("schema incomplete, run 'filescope index --rebuild'")
	}
	return ""
}

// formatBytes renders n in binary units.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	ago := time.Since(t).Round(time.Second)
	return fmt.Sprintf("%s (%s ago)", t.Local().Format("2006-01-02 15:04:05"), ago)
}
