// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package walk

import (
	"bufio"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// DefaultExclude are base names never descended into.
var DefaultExclude = []string{".git", ".hg", ".svn"}

// VisitFunc is called for every entry below the root. Returning
// filepath.SkipDir or filepath.SkipAll behaves as with filepath.WalkDir.
type VisitFunc func(path string, d fs.DirEntry, depth int) error

// Walker walks a tree applying ignore rules.
type Walker struct {
	// Root is the directory to walk. The root itself is not visited.
	Root string

	// IncludeHidden visits dot-prefixed entries when true.
	IncludeHidden bool

	// GitIgnore honours .gitignore files found while walking.
	GitIgnore bool

	// MaxDepth limits the walk (0 = unlimited). Direct children of Root
	// have depth 1; directories at MaxDepth are visited but not entered.
	MaxDepth int

	// Exclude holds base-name glob patterns (filepath.Match syntax).
	Exclude []string

	// ExcludePaths holds absolute paths whose subtrees are skipped.
	ExcludePaths []string

	// OnError receives per-entry errors. Nil ignores them.
	OnError func(path string, err error)
}

// Walk visits every non-ignored entry below Root in lexical order.
func (w *Walker) Walk(ctx context.Context, fn VisitFunc) error {
	return w.WalkFrom(ctx, w.Root, fn)
}

// WalkFrom visits the non-ignored entries below start, which must lie
// inside Root. Depths and ignore rules stay relative to Root, so the
// .gitignore files of start's ancestors still apply.
func (w *Walker) WalkFrom(ctx context.Context, start string, fn VisitFunc) error {
	root := filepath.Clean(w.Root)
	start = filepath.Clean(start)
	if _, err := os.Stat(start); err != nil {
		return err
	}

	// Cumulative gitignore patterns per directory. A directory without its
	// own .gitignore shares its parent's slice.
	patterns := make(map[string][]gitignore.Pattern)
	if w.GitIgnore {
		patterns[start] = w.chainPatterns(root, start)
	}

	err := filepath.WalkDir(start, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.report(path, err)
			if path == start {
				return err
			}
			return nil
		}
		if path == start {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")
		depth := len(parts)
		isDir := d.IsDir()

		if w.MaxDepth > 0 && depth > w.MaxDepth {
			return skip(isDir)
		}
		if w.excluded(path, d.Name()) {
			return skip(isDir)
		}

		if w.GitIgnore {
			inherited := patterns[filepath.Dir(path)]
			if len(inherited) > 0 && gitignore.NewMatcher(inherited).Match(parts, isDir) {
				return skip(isDir)
			}
			if isDir {
				patterns[path] = w.readIgnoreFile(path, parts, inherited)
			}
		}

		if err := fn(path, d, depth); err != nil {
			return err
		}
		if isDir && w.MaxDepth > 0 && depth == w.MaxDepth {
			return filepath.SkipDir
		}
		return nil
	})

	if errors.Is(err, filepath.SkipAll) {
		return nil
	}
	return err
}

// Count returns how many entries Walk would visit.
func (w *Walker) Count(ctx context.Context) (int, error) {
	n := 0
	err := w.Walk(ctx, func(string, fs.DirEntry, int) error {
		n++
		return nil
	})
	return n, err
}

// Ignored reports whether path would be skipped by Walk. Paths outside Root
// and Root itself are reported as ignored.
func (w *Walker) Ignored(path string, isDir bool) bool {
	root := filepath.Clean(w.Root)
	path = filepath.Clean(path)

	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return true
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")

	if w.MaxDepth > 0 && len(parts) > w.MaxDepth {
		return true
	}

	// Every ancestor below root must itself be walkable.
	cur := root
	var ps []gitignore.Pattern
	if w.GitIgnore {
		ps = w.readIgnoreFile(root, nil, nil)
	}
	for i, name := range parts {
		cur = filepath.Join(cur, name)
		last := i == len(parts)-1
		dir := !last || isDir
		if w.excluded(cur, name) {
			return true
		}
		if w.GitIgnore {
			if len(ps) > 0 && gitignore.NewMatcher(ps).Match(parts[:i+1], dir) {
				return true
			}
			if !last {
				ps = w.readIgnoreFile(cur, parts[:i+1], ps)
			}
		}
	}
	return false
}

func (w *Walker) excluded(path, name string) bool {
	if !w.IncludeHidden && strings.HasPrefix(name, ".") {
		return true
	}
	for _, pattern := range w.Exclude {
		if matched, _ := filepath.Match(pattern, name); matched {
			return true
		}
	}
	for _, p := range w.ExcludePaths {
		if p != "" && path == filepath.Clean(p) {
			return true
		}
	}
	return false
}

// chainPatterns collects the .gitignore patterns of root and of every
// directory from root down to dir inclusive.
func (w *Walker) chainPatterns(root, dir string) []gitignore.Pattern {
	ps := w.readIgnoreFile(root, nil, nil)
	rel, err := filepath.Rel(root, dir)
	if err != nil || rel == "." {
		return ps
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	cur := root
	for i, name := range parts {
		cur = filepath.Join(cur, name)
		ps = w.readIgnoreFile(cur, parts[:i+1], ps)
	}
	return ps
}

// readIgnoreFile returns inherited extended with the patterns of
// dir/.gitignore, or inherited itself when there is no such file.
func (w *Walker) readIgnoreFile(dir string, domain []string, inherited []gitignore.Pattern) []gitignore.Pattern {
	f, err := os.Open(filepath.Join(dir, ".gitignore"))
	if err != nil {
		return inherited
	}
	defer f.Close()

	var own []gitignore.Pattern
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		own = append(own, gitignore.ParsePattern(line, append([]string(nil), domain...)))
	}
	if err := scanner.Err(); err != nil {
		w.report(filepath.Join(dir, ".gitignore"), err)
	}
	if len(own) == 0 {
		return inherited
	}

	out := make([]gitignore.Pattern, 0, len(inherited)+len(own))
	out = append(out, inherited...)
	return append(out, own...)
}

func (w *Walker) report(path string, err error) {
	if w.OnError != nil {
		w.OnError(path, err)
	}
}

func skip(isDir bool) error {
	if isDir {
		return filepath.SkipDir
	}
	return nil
}
