// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package walk

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTree creates files (and their parent directories) under root.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func collect(t *testing.T, w *Walker) []string {
	t.Helper()
	var got []string
	err := w.Walk(context.Background(), func(path string, d fs.DirEntry, depth int) error {
		rel, err := filepath.Rel(w.Root, path)
		require.NoError(t, err)
		got = append(got, filepath.ToSlash(rel))
		return nil
	})
	require.NoError(t, err)
	sort.Strings(got)
	return got
}

func TestWalk_HiddenEntries(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.txt":         "a",
		".hidden/b.txt": "b",
		".dotfile":      "c",
	})

	visible := collect(t, &Walker{Root: root})
	assert.Equal(t, []string{"a.txt"}, visible)

	all := collect(t, &Walker{Root: root, IncludeHidden: true})
	assert.Equal(t, []string{".dotfile", ".hidden", ".hidden/b.txt", "a.txt"}, all)
}

func TestWalk_GitIgnore(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		".gitignore":        "*.log\nbuild/\n",
		"keep.txt":          "k",
		"debug.log":         "d",
		"build/out.bin":     "o",
		"src/main.go":       "m",
		"src/.gitignore":    "gen.go\n",
		"src/gen.go":        "g",
		"src/nested/gen.go": "g",
	})

	got := collect(t, &Walker{Root: root, IncludeHidden: true, GitIgnore: true})
	assert.Equal(t, []string{
		".gitignore",
		"keep.txt",
		"src",
		"src/.gitignore",
		"src/main.go",
		"src/nested",
	}, got)
}

func TestWalk_ExcludeAndExcludePaths(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		".git/HEAD":         "ref",
		"node_modules/x.js": "x",
		"index/index.db":    "db",
		"docs/readme.md":    "r",
	})

	w := &Walker{
		Root:          root,
		IncludeHidden: true,
		Exclude:       append([]string{"node_modules"}, DefaultExclude...),
		ExcludePaths:  []string{filepath.Join(root, "index")},
	}
	assert.Equal(t, []string{"docs", "docs/readme.md"}, collect(t, w))
}

func TestWalk_MaxDepth(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"1.txt":       "1",
		"a/2.txt":     "2",
		"a/b/3.txt":   "3",
		"a/b/c/4.txt": "4",
	})

	got := collect(t, &Walker{Root: root, MaxDepth: 2})
	assert.Equal(t, []string{"1.txt", "a", "a/2.txt", "a/b"}, got)
}

func TestWalk_SkipAllStopsQuietly(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.txt": "a", "b.txt": "b", "c.txt": "c"})

	visited := 0
	err := (&Walker{Root: root}).Walk(context.Background(), func(string, fs.DirEntry, int) error {
		visited++
		if visited == 2 {
			return filepath.SkipAll
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, visited)
}

func TestWalk_MissingRoot(t *testing.T) {
	err := (&Walker{Root: filepath.Join(t.TempDir(), "missing")}).Walk(context.Background(),
		func(string, fs.DirEntry, int) error { return nil })
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestWalk_ContextCancelled(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.txt": "a"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := (&Walker{Root: root}).Walk(ctx, func(string, fs.DirEntry, int) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCount(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.txt": "a", "d/b.txt": "b"})

	n, err := (&Walker{Root: root}).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestIgnored(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		".gitignore":     "tmp/\n*.bak\n",
		"src/a.go":       "a",
		"src/.gitignore": "secret.txt\n",
	})
	w := &Walker{
		Root:          root,
		IncludeHidden: true,
		GitIgnore:     true,
		Exclude:       DefaultExclude,
		ExcludePaths:  []string{filepath.Join(root, "idx")},
	}

	tests := []struct {
		path  string
		isDir bool
		want  bool
	}{
		{"src/a.go", false, false},
		{"src", true, false},
		{"tmp/x.txt", false, true},
		{"notes.bak", false, true},
		{"src/secret.txt", false, true},
		{".git/config", false, true},
		{"idx/index.db", false, true},
	}
	for _, tt := range tests {
		got := w.Ignored(filepath.Join(root, filepath.FromSlash(tt.path)), tt.isDir)
		assert.Equal(t, tt.want, got, tt.path)
	}

	assert.True(t, w.Ignored(root, true), "root itself")
	assert.True(t, w.Ignored(filepath.Dir(root), true), "outside root")
}

func TestWalkFrom_AppliesAncestorIgnores(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		".gitignore":          "*.tmp\n",
		"proj/keep.go":        "k",
		"proj/scratch.tmp":    "s",
		"proj/deep/other.tmp": "o",
		"proj/deep/main.go":   "m",
	})
	w := &Walker{Root: root, GitIgnore: true}

	var got []string
	err := w.WalkFrom(context.Background(), filepath.Join(root, "proj"), func(path string, d fs.DirEntry, depth int) error {
		rel, _ := filepath.Rel(root, path)
		got = append(got, filepath.ToSlash(rel))
		if filepath.ToSlash(rel) == "proj/deep" {
			assert.Equal(t, 2, depth)
		}
		return nil
	})
	require.NoError(t, err)
	sort.Strings(got)
	assert.Equal(t, []string{"proj/deep", "proj/deep/main.go", "proj/keep.go"}, got)
}
