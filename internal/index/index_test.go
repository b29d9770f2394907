// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package index

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/filescope/internal/search"
)

// =============================================================================
// HELPERS
// =============================================================================

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// openStore opens a store over root with its index in a fresh temp dir.
func openStore(t *testing.T, root string) *Store {
	t.Helper()
	return openStoreAt(t, root, t.TempDir())
}

func openStoreAt(t *testing.T, root, dir string) *Store {
	t.Helper()
	s, err := Open(DefaultConfig(root, dir))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func docCount(t *testing.T, s *Store) int {
	t.Helper()
	n, err := s.DocCount()
	require.NoError(t, err)
	return n
}

func paths(results []search.Result) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range results {
		if !seen[r.Path] {
			seen[r.Path] = true
			out = append(out, r.Path)
		}
	}
	sort.Strings(out)
	return out
}

// =============================================================================
// OPEN / RECREATE
// =============================================================================

func TestOpen_CreatesIndex(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(t.TempDir(), "nested", "index")

	s := openStoreAt(t, root, dir)

	assert.FileExists(t, filepath.Join(dir, MetaFile))
	assert.FileExists(t, filepath.Join(dir, DatabaseFile))
	assert.False(t, s.Recreated())
	assert.True(t, s.HasRequiredSchema())
	assert.Equal(t, 0, docCount(t, s))
}

func TestOpen_InvalidRoot(t *testing.T) {
	_, err := Open(DefaultConfig(filepath.Join(t.TempDir(), "missing"), t.TempDir()))
	assert.ErrorIs(t, err, ErrInvalidPath)

	file := filepath.Join(t.TempDir(), "file.txt")
	writeFile(t, file, "x")
	_, err = Open(DefaultConfig(file, t.TempDir()))
	assert.ErrorIs(t, err, ErrInvalidPath)

	_, err = Open(nil)
	assert.Error(t, err)
}

func TestOpen_ReopensExisting(t *testing.T) {
	root := t.TempDir()
	dir := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "alpha")

	s, err := Open(DefaultConfig(root, dir))
	require.NoError(t, err)
	require.NoError(t, s.Rebuild(context.Background(), nil))
	require.NoError(t, s.Close())

	s2 := openStoreAt(t, root, dir)
	assert.False(t, s2.Recreated())
	assert.Equal(t, 1, docCount(t, s2))
	assert.True(t, s2.IsIndexed())
}

func TestOpen_RecreatesOnRootChange(t *testing.T) {
	oldRoot := t.TempDir()
	newRoot := t.TempDir()
	dir := t.TempDir()
	writeFile(t, filepath.Join(oldRoot, "old.txt"), "zebratoken here")
	writeFile(t, filepath.Join(newRoot, "new.txt"), "other words")

	s, err := Open(DefaultConfig(oldRoot, dir))
	require.NoError(t, err)
	require.NoError(t, s.Rebuild(context.Background(), nil))
	require.NoError(t, s.Close())

	s2 := openStoreAt(t, newRoot, dir)
	assert.True(t, s2.Recreated())
	assert.Equal(t, 0, docCount(t, s2))
	assert.False(t, s2.IsIndexed())

	results, err := s2.Search(context.Background(), "zebratoken")
	require.NoError(t, err)
	assert.Empty(t, results)

	meta, err := readMeta(filepath.Join(dir, MetaFile))
	require.NoError(t, err)
	assert.Equal(t, newRoot, meta.Root)
}

func TestOpen_RecreatesOnSchemaVersionMismatch(t *testing.T) {
	root := t.TempDir()
	dir := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "alpha")

	s, err := Open(DefaultConfig(root, dir))
	require.NoError(t, err)
	require.NoError(t, s.Rebuild(context.Background(), nil))
	require.NoError(t, s.Close())

	require.NoError(t, writeMeta(filepath.Join(dir, MetaFile), &Meta{SchemaVersion: 1}))

	s2 := openStoreAt(t, root, dir)
	assert.True(t, s2.Recreated())
	assert.Equal(t, 0, docCount(t, s2))
}

func TestOpen_RecreatesOnMissingColumn(t *testing.T) {
	root := t.TempDir()
	dir := t.TempDir()

	s, err := Open(DefaultConfig(root, dir))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Drop a required column behind the store's back
	db, err := sql.Open("sqlite", filepath.Join(dir, DatabaseFile))
	require.NoError(t, err)
	_, err = db.Exec("DROP INDEX idx_entries_generation")
	require.NoError(t, err)
	_, err = db.Exec("ALTER TABLE entries DROP COLUMN generation")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	s2 := openStoreAt(t, root, dir)
	assert.True(t, s2.Recreated())
	assert.True(t, s2.HasRequiredSchema())
}

func TestOpen_RecreatesOnCorruptDatabase(t *testing.T) {
	root := t.TempDir()
	dir := t.TempDir()

	s, err := Open(DefaultConfig(root, dir))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	for _, name := range []string{DatabaseFile + "-wal", DatabaseFile + "-shm"} {
		os.Remove(filepath.Join(dir, name))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, DatabaseFile), []byte("definitely not sqlite, just garbage bytes"), 0o644))

	s2 := openStoreAt(t, root, dir)
	assert.True(t, s2.Recreated())
	assert.Equal(t, 0, docCount(t, s2))
}

func TestOpen_RecreatesOnGarbledMeta(t *testing.T) {
	dir := t.TempDir()
	root := t.TempDir()

	s, err := Open(DefaultConfig(root, dir))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	require.NoError(t, os.WriteFile(filepath.Join(dir, MetaFile), []byte("{not json"), 0o644))

	s2 := openStoreAt(t, root, dir)
	assert.True(t, s2.Recreated())
}

// =============================================================================
// REBUILD
// =============================================================================

func TestRebuild_EndToEnd(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "root.txt"), "hello world")
	writeFile(t, filepath.Join(root, "src", "lib.rs"), "fn main() {}")

	s := openStore(t, root)
	ctx := context.Background()
	require.NoError(t, s.Rebuild(ctx, nil))

	// root.txt, src, src/lib.rs
	assert.Equal(t, 3, docCount(t, s))

	results, err := s.Search(ctx, "hello")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, filepath.Join(root, "root.txt"), results[0].Path)
	assert.Equal(t, 1, results[0].LineNumber)
	assert.Equal(t, "hello world", results[0].LineContent)

	results, err = s.Search(ctx, "lib")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "src", "lib.rs")}, paths(results))

	results, err = s.Search(ctx, "src")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, filepath.Join(root, "src"), results[0].Path)
	assert.True(t, results[0].IsNameMatch())
}

func TestRebuild_Idempotent(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "alpha")
	writeFile(t, filepath.Join(root, "d", "b.txt"), "beta")

	s := openStore(t, root)
	ctx := context.Background()
	require.NoError(t, s.Rebuild(ctx, nil))
	first := docCount(t, s)
	require.NoError(t, s.Rebuild(ctx, nil))

	assert.Equal(t, first, docCount(t, s))
	assert.Equal(t, 3, first)
}

func TestRebuild_PrunesVanishedEntries(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "alpha")
	writeFile(t, filepath.Join(root, "b.txt"), "beta")

	s := openStore(t, root)
	ctx := context.Background()
	require.NoError(t, s.Rebuild(ctx, nil))
	require.Equal(t, 2, docCount(t, s))

	require.NoError(t, os.Remove(filepath.Join(root, "b.txt")))
	require.NoError(t, s.Rebuild(ctx, nil))
	assert.Equal(t, 1, docCount(t, s))

	results, err := s.Search(ctx, "beta")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRebuild_SkipsBinaryAndLargeFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "text.txt"), "plain")
	writeFile(t, filepath.Join(root, "nul.bin"), "plain\x00binary")
	writeFile(t, filepath.Join(root, "latin1.txt"), "plain \xff\xfe")
	writeFile(t, filepath.Join(root, "big.txt"), "plain and much longer than the limit")

	cfg := DefaultConfig(root, t.TempDir())
	cfg.MaxFileSize = 10
	s, err := Open(cfg)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.Rebuild(ctx, nil))
	assert.Equal(t, 1, docCount(t, s))

	results, err := s.Search(ctx, "plain")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "text.txt")}, paths(results))
}

func TestRebuild_IncludesHiddenHonoursGitignore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".hidden"), "secret sauce")
	writeFile(t, filepath.Join(root, ".gitignore"), "build/\n")
	writeFile(t, filepath.Join(root, "build", "out.txt"), "sauce")
	writeFile(t, filepath.Join(root, ".git", "HEAD"), "sauce")

	s := openStore(t, root)
	ctx := context.Background()
	require.NoError(t, s.Rebuild(ctx, nil))

	results, err := s.Search(ctx, "sauce")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, ".hidden")}, paths(results))
}

func TestRebuild_SkipsIndexDirectoryInsideRoot(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "alpha")

	s := openStoreAt(t, root, filepath.Join(root, ".filescope"))
	require.NoError(t, s.Rebuild(context.Background(), nil))

	assert.Equal(t, 1, docCount(t, s))
}

func TestRebuild_ProgressEmptyTree(t *testing.T) {
	s := openStore(t, t.TempDir())

	var got []float32
	require.NoError(t, s.Rebuild(context.Background(), func(f float32) { got = append(got, f) }))

	require.NotEmpty(t, got)
	assert.Equal(t, float32(0), got[0])
	assert.Equal(t, float32(1), got[len(got)-1])
	assert.Equal(t, 0, docCount(t, s))
}

func TestRebuild_ProgressMonotonic(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 30; i++ {
		writeFile(t, filepath.Join(root, "f"+string(rune('a'+i%26))+string(rune('0'+i/26))+".txt"), "x")
	}

	cfg := DefaultConfig(root, t.TempDir())
	cfg.ProgressEvery = 5
	s, err := Open(cfg)
	require.NoError(t, err)
	defer s.Close()

	var got []float32
	require.NoError(t, s.Rebuild(context.Background(), func(f float32) { got = append(got, f) }))

	assert.Greater(t, len(got), 3)
	assert.IsNonDecreasing(t, got)
	for _, f := range got {
		assert.GreaterOrEqual(t, f, float32(0))
		assert.LessOrEqual(t, f, float32(1))
	}
	assert.Equal(t, float32(1), got[len(got)-1])
}

func TestRebuild_CancelledRollsBack(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "alpha")

	s := openStore(t, root)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, s.Rebuild(ctx, nil))
	assert.Equal(t, 0, docCount(t, s))
}

// =============================================================================
// INCREMENTAL UPDATES
// =============================================================================

func TestProcessChanges_Freshness(t *testing.T) {
	root := t.TempDir()
	s := openStore(t, root)
	ctx := context.Background()
	require.NoError(t, s.Rebuild(ctx, nil))

	path := filepath.Join(root, "notes.txt")
	writeFile(t, path, "first draft")
	require.NoError(t, s.ProcessChanges(ctx, []string{path}))

	results, err := s.Search(ctx, "draft")
	require.NoError(t, err)
	assert.Equal(t, []string{path}, paths(results))

	writeFile(t, path, "final version")
	require.NoError(t, s.ProcessChanges(ctx, []string{path}))

	results, err = s.Search(ctx, "draft")
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = s.Search(ctx, "final")
	require.NoError(t, err)
	assert.Equal(t, []string{path}, paths(results))
	assert.Equal(t, 1, docCount(t, s))
}

func TestProcessChanges_UpsertUnique(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.txt")
	writeFile(t, path, "alpha")

	s := openStore(t, root)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, s.ProcessChanges(ctx, []string{path, path}))
	}
	assert.Equal(t, 1, docCount(t, s))
}

func TestProcessChanges_DeletionDecrementsCount(t *testing.T) {
	root := t.TempDir()
	a := filepath.Join(root, "a.txt")
	writeFile(t, a, "alpha")
	writeFile(t, filepath.Join(root, "b.txt"), "beta")

	s := openStore(t, root)
	ctx := context.Background()
	require.NoError(t, s.Rebuild(ctx, nil))
	before := docCount(t, s)

	require.NoError(t, os.Remove(a))
	require.NoError(t, s.ProcessChanges(ctx, []string{a}))

	assert.Equal(t, before-1, docCount(t, s))
}

func TestProcessChanges_DirectoryRemovalDropsSubtree(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "proj")
	writeFile(t, filepath.Join(dir, "a.txt"), "alpha")
	writeFile(t, filepath.Join(dir, "sub", "b.txt"), "beta")
	writeFile(t, filepath.Join(root, "proj2", "c.txt"), "gamma")

	s := openStore(t, root)
	ctx := context.Background()
	require.NoError(t, s.Rebuild(ctx, nil))
	require.Equal(t, 6, docCount(t, s))

	require.NoError(t, os.RemoveAll(dir))
	require.NoError(t, s.ProcessChanges(ctx, []string{dir}))

	// Only proj2 and proj2/c.txt remain
	assert.Equal(t, 2, docCount(t, s))
}

func TestProcessChanges_NewDirectoryIndexesSubtree(t *testing.T) {
	root := t.TempDir()
	s := openStore(t, root)
	ctx := context.Background()
	require.NoError(t, s.Rebuild(ctx, nil))

	dir := filepath.Join(root, "moved")
	writeFile(t, filepath.Join(dir, "x", "deep.txt"), "treasure")
	require.NoError(t, s.ProcessChanges(ctx, []string{dir}))

	assert.Equal(t, 3, docCount(t, s))
	results, err := s.Search(ctx, "treasure")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "x", "deep.txt")}, paths(results))
}

func TestProcessChanges_FileTurnedBinaryIsDropped(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.dat")
	writeFile(t, path, "readable")

	s := openStore(t, root)
	ctx := context.Background()
	require.NoError(t, s.Rebuild(ctx, nil))
	require.Equal(t, 1, docCount(t, s))

	writeFile(t, path, "now\x00binary")
	require.NoError(t, s.ProcessChanges(ctx, []string{path}))
	assert.Equal(t, 0, docCount(t, s))
}

func TestProcessChanges_OutsideRootSkipped(t *testing.T) {
	root := t.TempDir()
	outside := filepath.Join(t.TempDir(), "elsewhere.txt")
	writeFile(t, outside, "stray")

	s := openStore(t, root)
	require.NoError(t, s.ProcessChanges(context.Background(), []string{outside, root}))
	assert.Equal(t, 0, docCount(t, s))
}

func TestProcessChanges_IgnoredPathRemoved(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "tmp.log")
	writeFile(t, path, "noise")

	s := openStore(t, root)
	ctx := context.Background()
	require.NoError(t, s.Rebuild(ctx, nil))
	require.Equal(t, 1, docCount(t, s))

	gi := filepath.Join(root, ".gitignore")
	writeFile(t, gi, "*.log\n")
	require.NoError(t, s.ProcessChanges(ctx, []string{gi, path}))

	// Only .gitignore remains
	assert.Equal(t, 1, docCount(t, s))
}

func TestRemove(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "keep.txt")
	writeFile(t, path, "still on disk")

	s := openStore(t, root)
	ctx := context.Background()
	require.NoError(t, s.Rebuild(ctx, nil))

	require.NoError(t, s.Remove(ctx, path))
	assert.Equal(t, 0, docCount(t, s))
	assert.FileExists(t, path)

	assert.ErrorIs(t, s.Remove(ctx, filepath.Join(t.TempDir(), "x")), ErrInvalidPath)
}

func TestRemove_LeavesSiblingsWithSharedPrefix(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a", "one.txt"), "1")
	writeFile(t, filepath.Join(root, "ab", "two.txt"), "2")
	writeFile(t, filepath.Join(root, "A", "three.txt"), "3")

	s := openStore(t, root)
	ctx := context.Background()
	require.NoError(t, s.Rebuild(ctx, nil))
	before := docCount(t, s)

	require.NoError(t, s.Remove(ctx, filepath.Join(root, "a")))
	assert.Equal(t, before-2, docCount(t, s))
}

func TestUpdate(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.txt")
	writeFile(t, path, "alpha")

	s := openStore(t, root)
	ctx := context.Background()
	require.NoError(t, s.Update(ctx, path))
	assert.Equal(t, 1, docCount(t, s))
}

// =============================================================================
// SEARCH
// =============================================================================

func TestSearch_EmptyQuery(t *testing.T) {
	s := openStore(t, t.TempDir())
	results, err := s.Search(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_MalformedQuery(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "alpha")
	s := openStore(t, root)
	ctx := context.Background()
	require.NoError(t, s.Rebuild(ctx, nil))

	_, err := s.Search(ctx, `"unterminated`)
	assert.ErrorIs(t, err, search.ErrQuerySyntax)
}

func TestSearch_CaseInsensitiveLines(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.txt")
	writeFile(t, path, "first line\r\nHELLO there\nnothing\nsay hello\n")

	s := openStore(t, root)
	ctx := context.Background()
	require.NoError(t, s.Rebuild(ctx, nil))

	results, err := s.Search(ctx, "Hello")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 2, results[0].LineNumber)
	assert.Equal(t, "HELLO there", results[0].LineContent)
	assert.Equal(t, 4, results[1].LineNumber)
}

func TestSearch_FileWithoutMatchingLine(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "report.txt")
	writeFile(t, path, "quarterly\nnumbers")

	s := openStore(t, root)
	ctx := context.Background()
	require.NoError(t, s.Rebuild(ctx, nil))

	// Both terms match the document but no single line contains the phrase
	results, err := s.Search(ctx, "quarterly numbers")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, path, results[0].Path)
	assert.True(t, results[0].IsNameMatch())
}

func TestSearch_PunctuationIsQuoted(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "c.txt")
	writeFile(t, path, "see foo-bar.baz for details")

	s := openStore(t, root)
	ctx := context.Background()
	require.NoError(t, s.Rebuild(ctx, nil))

	results, err := s.Search(ctx, "foo-bar.baz")
	require.NoError(t, err)
	assert.Equal(t, []string{path}, paths(results))
}

func TestSearch_MaxHits(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 10; i++ {
		writeFile(t, filepath.Join(root, string(rune('a'+i))+".txt"), "common")
	}

	cfg := DefaultConfig(root, t.TempDir())
	cfg.MaxHits = 4
	s, err := Open(cfg)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.Rebuild(ctx, nil))

	results, err := s.Search(ctx, "common")
	require.NoError(t, err)
	assert.Len(t, paths(results), 4)
}

func TestSearch_ConcurrentWithUpdates(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.txt")
	writeFile(t, path, "stable")

	s := openStore(t, root)
	ctx := context.Background()
	require.NoError(t, s.Rebuild(ctx, nil))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_, err := s.Search(ctx, "stable")
				assert.NoError(t, err)
			}
		}()
	}
	for j := 0; j < 20; j++ {
		require.NoError(t, s.ProcessChanges(ctx, []string{path}))
	}
	wg.Wait()
}

func TestBuildFTSQuery(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"hello", `{filename content} : ("hello")`},
		{"hello world", `{filename content} : ("hello" "world")`},
		{"foo-bar", `{filename content} : ("foo-bar")`},
		{"hel*", `{filename content} : (hel*)`},
		{"a OR b", `{filename content} : (a OR b)`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, buildFTSQuery(tt.in), tt.in)
	}
}

// =============================================================================
// STATS / CLOSE
// =============================================================================

func TestStats(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "d", "a.txt"), "alpha")

	s := openStore(t, root)
	st, err := s.Stats()
	require.NoError(t, err)
	assert.False(t, st.Complete)
	assert.True(t, st.SchemaOK)

	require.NoError(t, s.Rebuild(context.Background(), nil))

	st, err = s.Stats()
	require.NoError(t, err)
	assert.True(t, st.Complete)
	assert.True(t, st.SchemaOK)
	assert.Equal(t, 2, st.Documents)
	assert.Equal(t, 1, st.Directories)
	assert.Equal(t, SchemaVersion, st.SchemaVersion)
	assert.Equal(t, int64(1), st.Generation)
	assert.Greater(t, st.DatabaseSize, int64(0))
	assert.False(t, st.LastIndexed.IsZero())
	assert.False(t, st.IsIndexing)
	assert.Equal(t, s.Root(), st.Root)
}

func TestClose(t *testing.T) {
	s, err := Open(DefaultConfig(t.TempDir(), t.TempDir()))
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = s.Search(context.Background(), "x")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, s.Rebuild(context.Background(), nil), ErrClosed)
	assert.ErrorIs(t, s.ProcessChanges(context.Background(), []string{"x"}), ErrClosed)
	_, err = s.DocCount()
	assert.ErrorIs(t, err, ErrClosed)
}
