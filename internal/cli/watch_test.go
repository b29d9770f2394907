// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/filescope/internal/search"
)

type searchCall struct {
	query string
	scope search.Scope
}

type fakeSearcher struct {
	mu      sync.Mutex
	calls   []searchCall
	results []search.Result
	err     error
}

func (f *fakeSearcher) Search(_ context.Context, query string, scope search.Scope) ([]search.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, searchCall{query, scope})
	return f.results, f.err
}

func newTestModel(t *testing.T, eng searcher, scope search.Scope, query string) watchModel {
	t.Helper()
	return newWatchModel(context.Background(), eng, "/home/u", "/", scope, query)
}

func update(t *testing.T, m watchModel, msg tea.Msg) (watchModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	wm, ok := next.(watchModel)
	require.True(t, ok)
	return wm, cmd
}

func key(k tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: k}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// findResults runs cmd and any batched commands it yields and returns
// the first resultsMsg.
func findResults(t *testing.T, cmd tea.Cmd) (resultsMsg, bool) {
	t.Helper()
	if cmd == nil {
		return resultsMsg{}, false
	}
	switch msg := cmd().(type) {
	case resultsMsg:
		return msg, true
	case tea.BatchMsg:
		for _, c := range msg {
			if r, ok := findResults(t, c); ok {
				return r, true
			}
		}
	}
	return resultsMsg{}, false
}

func TestWatchModel_EnterSearchesCurrentScope(t *testing.T) {
	eng := &fakeSearcher{results: []search.Result{{Path: "/src/main.rs", LineNumber: 2, LineContent: "fn main() {"}}}
	m := newTestModel(t, eng, search.ScopeRoot, "fn main")

	m, cmd := update(t, m, key(tea.KeyEnter))
	assert.True(t, m.searching)

	msg, ok := findResults(t, cmd)
	require.True(t, ok)
	assert.Equal(t, "fn main", msg.query)
	assert.Equal(t, search.ScopeRoot, msg.scope)
	require.Len(t, eng.calls, 1)
	assert.Equal(t, searchCall{"fn main", search.ScopeRoot}, eng.calls[0])

	m, _ = update(t, m, msg)
	assert.False(t, m.searching)
	assert.Equal(t, "fn main", m.query)
	assert.Len(t, m.results, 1)
	assert.Contains(t, m.View(), "/src/main.rs:2: fn main() {")
	assert.Contains(t, m.View(), "1 results in")
}

func TestWatchModel_EmptyQueryDoesNotSearch(t *testing.T) {
	eng := &fakeSearcher{}
	m := newTestModel(t, eng, search.ScopeHome, "   ")

	m, cmd := update(t, m, key(tea.KeyEnter))
	assert.Nil(t, cmd)
	assert.False(t, m.searching)
	assert.Empty(t, eng.calls)
}

func TestWatchModel_StaleResultsIgnored(t *testing.T) {
	eng := &fakeSearcher{results: []search.Result{{Path: "/a"}}}
	m := newTestModel(t, eng, search.ScopeHome, "first")

	m, first := update(t, m, key(tea.KeyEnter))
	m, _ = update(t, m, key(tea.KeyEnter))

	msg, ok := findResults(t, first)
	require.True(t, ok)
	m, _ = update(t, m, msg)
	assert.True(t, m.searching, "older search must not replace the pending one")
	assert.Empty(t, m.results)
}

func TestWatchModel_SearchError(t *testing.T) {
	eng := &fakeSearcher{err: fmt.Errorf("bad: %w", search.ErrQuerySyntax)}
	m := newTestModel(t, eng, search.ScopeHome, `"open`)

	m, cmd := update(t, m, key(tea.KeyEnter))
	msg, ok := findResults(t, cmd)
	require.True(t, ok)
	m, _ = update(t, m, msg)

	require.Error(t, m.err)
	assert.Contains(t, m.View(), "[ERROR]")
}

func TestWatchModel_TabTogglesScope(t *testing.T) {
	eng := &fakeSearcher{}
	m := newTestModel(t, eng, search.ScopeHome, "notes")
	m.results = []search.Result{{Path: "/home/u/notes"}}
	m.query = "notes"

	m, cmd := update(t, m, key(tea.KeyTab))
	assert.Equal(t, search.ScopeRoot, m.scope)
	assert.Empty(t, m.results)
	assert.Empty(t, m.query)
	assert.Nil(t, cmd, "root scans wait for enter")
	assert.Contains(t, m.View(), "[ROOT]")

	m, cmd = update(t, m, key(tea.KeyTab))
	assert.Equal(t, search.ScopeHome, m.scope)
	assert.NotNil(t, cmd)
	assert.True(t, m.searching)
}

func TestWatchModel_TypingSchedulesHomeSearch(t *testing.T) {
	m := newTestModel(t, &fakeSearcher{}, search.ScopeHome, "")

	m, cmd := update(t, m, runes("a"))
	assert.Equal(t, "a", m.input.Value())
	assert.Equal(t, 1, m.seq)
	assert.NotNil(t, cmd)

	// A keystroke since the tick makes it stale.
	m, _ = update(t, m, runes("b"))
	m, cmd = update(t, m, typingMsg{seq: 1})
	assert.Nil(t, cmd)
	assert.False(t, m.searching)

	m, cmd = update(t, m, typingMsg{seq: 2})
	assert.NotNil(t, cmd)
	assert.True(t, m.searching)
}

func TestWatchModel_TypingInRootWaitsForEnter(t *testing.T) {
	m := newTestModel(t, &fakeSearcher{}, search.ScopeRoot, "")

	m, _ = update(t, m, runes("x"))
	assert.Equal(t, "x", m.input.Value())
	assert.Equal(t, 0, m.seq)
}

func TestWatchModel_ProgressRefreshesResults(t *testing.T) {
	eng := &fakeSearcher{}
	m := newTestModel(t, eng, search.ScopeHome, "report")
	m.query = "report"

	m, cmd := update(t, m, progressMsg{value: 0.5})
	assert.Nil(t, cmd)
	assert.Contains(t, m.View(), "Indexing")

	m, cmd = update(t, m, progressMsg{value: 1})
	assert.NotNil(t, cmd)
	assert.True(t, m.searching)
	assert.Contains(t, m.View(), "Index ready")

	// Already complete: no second refresh.
	_, cmd = update(t, m, progressMsg{value: 1})
	assert.Nil(t, cmd)
}

func TestWatchModel_ProgressError(t *testing.T) {
	m := newTestModel(t, &fakeSearcher{}, search.ScopeHome, "")

	m, _ = update(t, m, progressMsg{value: 0.3, err: errors.New("disk gone")})
	assert.Contains(t, m.View(), "Indexing failed: disk gone")
}

func TestWatchModel_CursorClamps(t *testing.T) {
	m := newTestModel(t, &fakeSearcher{}, search.ScopeHome, "")
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 12})
	for i := 0; i < 10; i++ {
		m.results = append(m.results, search.Result{Path: fmt.Sprintf("/home/u/f%d", i)})
	}
	rows := m.visibleRows()
	assert.Equal(t, 4, rows)

	for i := 0; i < 20; i++ {
		m, _ = update(t, m, key(tea.KeyDown))
	}
	assert.Equal(t, 9, m.cursor)
	assert.Equal(t, 9-rows+1, m.offset)

	m, _ = update(t, m, key(tea.KeyUp))
	assert.Equal(t, 8, m.cursor)

	m, _ = update(t, m, key(tea.KeyPgUp))
	m, _ = update(t, m, key(tea.KeyPgUp))
	m, _ = update(t, m, key(tea.KeyPgUp))
	assert.Equal(t, 0, m.cursor)
	assert.Equal(t, 0, m.offset)

	view := m.View()
	assert.Contains(t, view, "> /home/u/f0")
	assert.NotContains(t, view, "/home/u/f9")
}

func TestWatchModel_Quit(t *testing.T) {
	m := newTestModel(t, &fakeSearcher{}, search.ScopeHome, "")

	for _, k := range []tea.KeyType{tea.KeyEsc, tea.KeyCtrlC} {
		_, cmd := update(t, m, key(k))
		require.NotNil(t, cmd)
		assert.IsType(t, tea.QuitMsg{}, cmd())
	}
}

func TestWatchModel_View(t *testing.T) {
	m := newTestModel(t, &fakeSearcher{}, search.ScopeHome, "")
	m.progress = 1

	view := m.View()
	assert.Contains(t, view, "filescope")
	assert.Contains(t, view, "[HOME]")
	assert.Contains(t, view, "/home/u")
	assert.Contains(t, view, "Type to search file names and contents")
	assert.Contains(t, view, "esc quit")
}
