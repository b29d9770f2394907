// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// output.go - Result lines and progress output shared by the commands.

package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/bubbles/progress"

	"github.com/jeranaias/filescope/internal/engine"
	"github.com/jeranaias/filescope/internal/search"
	"github.com/jeranaias/filescope/internal/util"
)

// =============================================================================
// RESULT LINES
// =============================================================================

// resultFormat controls how results are written.
type resultFormat struct {
	width    int  // terminal width; 0 disables truncation
	styled   bool // render with lipgloss styles
	nameOnly bool // print each path once
}

// formatResult renders one result as "path:line: content". Name matches
// render as the bare path. With a width the line content is cut to fit.
func formatResult(r search.Result, f resultFormat) string {
	path := r.Path
	if r.IsNameMatch() {
		if f.width > 0 {
			path = util.TruncateWidth(path, f.width)
		}
		if f.styled {
			return PathStyle.Render(path)
		}
		return path
	}

	line := strconv.Itoa(r.LineNumber)
	content := r.LineContent
	if f.width > 0 {
		content = util.DisplayLine(content)
		used := util.StringWidth(path) + len(line) + 3
		content = util.TruncateWidth(content, max(f.width-used, 0))
	}
	if f.styled {
		return PathStyle.Render(path) + ":" + LineNumberStyle.Render(line) + ": " + content
	}
	if f.width > 0 {
		return path + ":" + line + ": " + content
	}
	return path + ":" + line + ":" + content
}

// writeResults writes one result per line and returns how many lines
// were written.
func writeResults(w io.Writer, results []search.Result, f resultFormat) int {
	n := 0
	seen := make(map[string]bool)
	for _, r := range results {
		if f.nameOnly {
			if seen[r.Path] {
				continue
			}
			seen[r.Path] = true
			r = search.Result{Path: r.Path}
		}
		fmt.Fprintln(w, formatResult(r, f))
		n++
	}
	return n
}

// =============================================================================
// PROGRESS
// =============================================================================

// progressPrinter renders index progress as a bar on a terminal, or as a
// line every 10% otherwise.
type progressPrinter struct {
	w       io.Writer
	label   string
	tty     bool
	bar     progress.Model
	lastPct int
	drawn   bool
}

func newProgressPrinter(w io.Writer, label string, tty bool) *progressPrinter {
	return &progressPrinter{
		w:       w,
		label:   label,
		tty:     tty,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		lastPct: -1,
	}
}

// Update draws fraction v.
func (p *progressPrinter) Update(v float32) {
	if p.tty {
		fmt.Fprintf(p.w, "\r%s %s", p.label, p.bar.ViewAs(float64(v)))
		p.drawn = true
		return
	}
	step := int(v*100) / 10 * 10
	if step <= p.lastPct {
		return
	}
	p.lastPct = step
	fmt.Fprintf(p.w, "%s %d%%\n", p.label, step)
}

// Done ends the bar line.
func (p *progressPrinter) Done() {
	if p.tty && p.drawn {
		fmt.Fprintln(p.w)
		p.drawn = false
	}
}

// followProgress draws progress until it reaches 1 or fails. With a
// non-nil until it instead draws until until is closed, which lets a
// foreground rebuild restart progress from a finished index.
func followProgress(ctx context.Context, prog *engine.ProgressReceiver, until <-chan struct{}, out *progressPrinter) error {
	for {
		changed := prog.Changed()
		out.Update(prog.Value())
		if until == nil {
			if err := prog.Err(); err != nil {
				return err
			}
			if prog.Value() >= 1 {
				return nil
			}
		}
		select {
		case <-changed:
		case <-until:
			out.Update(prog.Value())
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
