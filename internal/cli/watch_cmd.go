// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// watch_cmd.go - Interactive search with live indexing.

package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sync/errgroup"

	"github.com/jeranaias/filescope/internal/config"
	"github.com/jeranaias/filescope/internal/engine"
	"github.com/jeranaias/filescope/internal/search"
)

// HandleWatch handles the "watch" command: an interactive search screen
// backed by an engine that keeps the home index current while it runs.
func HandleWatch(ctx context.Context, cfg *config.Config, args Args) error {
	if err := RequiresTTY("search"); err != nil {
		return err
	}
	scope, err := search.ParseScope(args.Scope)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	eng, err := engine.New(ctx, cfg)
	if err != nil {
		return NewCommandError("watch", "open", "failed to open index", err)
	}
	defer eng.Close()

	m := newWatchModel(ctx, eng, cfg.Index.Root, cfg.Live.Root, scope, args.Query)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		_, err := p.Run()
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		forwardProgress(gctx, eng.Progress(), p.Send)
		return nil
	})
	return g.Wait()
}

// forwardProgress sends every progress update to the screen until ctx ends.
func forwardProgress(ctx context.Context, prog *engine.ProgressReceiver, send func(tea.Msg)) {
	for {
		changed := prog.Changed()
		send(progressMsg{value: prog.Value(), err: prog.Err()})
		select {
		case <-changed:
		case <-ctx.Done():
			return
		}
	}
}

// =============================================================================
// MODEL
// =============================================================================

// searcher is the part of the engine the screen uses.
type searcher interface {
	Search(ctx context.Context, query string, scope search.Scope) ([]search.Result, error)
}

type progressMsg struct {
	value float32
	err   error
}

type resultsMsg struct {
	seq     int
	query   string
	scope   search.Scope
	results []search.Result
	err     error
	elapsed time.Duration
}

// typingMsg fires typingDelay after a keystroke.
type typingMsg struct {
	seq int
}

// typingDelay is how long the home scope waits after the last keystroke
// before searching. Root scans only run on enter.
const typingDelay = 250 * time.Millisecond

type watchModel struct {
	ctx      context.Context
	eng      searcher
	homeRoot string
	liveRoot string

	input   textinput.Model
	spinner spinner.Model
	bar     progress.Model

	scope    search.Scope
	progress float32
	indexErr error

	seq       int // latest search or keystroke
	searching bool
	query     string // query of the shown results
	results   []search.Result
	err       error
	elapsed   time.Duration
	cursor    int
	offset    int

	width  int
	height int
}

func newWatchModel(ctx context.Context, eng searcher, homeRoot, liveRoot string, scope search.Scope, query string) watchModel {
	ti := textinput.New()
	ti.Placeholder = "Search..."
	ti.CharLimit = 1024
	ti.Width = 60
	ti.Prompt = "> "
	ti.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	ti.PlaceholderStyle = DimStyle.Italic(true)
	ti.SetValue(query)
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}
	sp.Style = WarningStyle

	return watchModel{
		ctx:      ctx,
		eng:      eng,
		homeRoot: homeRoot,
		liveRoot: liveRoot,
		input:    ti,
		spinner:  sp,
		bar:      progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		scope:    scope,
		width:    DefaultTerminalWidth,
		height:   24,
	}
}

// Init starts the cursor blink and runs the initial query, if any.
func (m watchModel) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, m.spinner.Tick}
	if strings.TrimSpace(m.input.Value()) != "" {
		cmds = append(cmds, func() tea.Msg { return typingMsg{seq: 0} })
	}
	return tea.Batch(cmds...)
}

// Update handles messages.
func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.input.Width = max(msg.Width-12, 10)
		m.bar.Width = min(40, max(msg.Width-24, 10))
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case typingMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		return m, m.startSearch()

	case resultsMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		m.searching = false
		m.query = msg.query
		m.results = msg.results
		m.err = msg.err
		m.elapsed = msg.elapsed
		m.cursor, m.offset = 0, 0
		return m, nil

	case progressMsg:
		finished := m.progress < 1 && msg.value >= 1
		m.progress = msg.value
		m.indexErr = msg.err
		// Results shown mid-build are incomplete; refresh them.
		if finished && m.scope == search.ScopeHome && m.query != "" {
			return m, m.startSearch()
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m watchModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit

	case "tab":
		m.scope = otherScope(m.scope)
		m.results, m.err, m.query = nil, nil, ""
		m.seq++
		m.searching = false
		if m.scope == search.ScopeHome && strings.TrimSpace(m.input.Value()) != "" {
			return m, m.startSearch()
		}
		return m, nil

	case "enter":
		return m, m.startSearch()

	case "up", "ctrl+p":
		m.moveCursor(-1)
		return m, nil
	case "down", "ctrl+n":
		m.moveCursor(1)
		return m, nil
	case "pgup":
		m.moveCursor(-m.visibleRows())
		return m, nil
	case "pgdown":
		m.moveCursor(m.visibleRows())
		return m, nil
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() == before || m.scope != search.ScopeHome {
		return m, cmd
	}
	m.seq++
	seq := m.seq
	return m, tea.Batch(cmd, tea.Tick(typingDelay, func(time.Time) tea.Msg {
		return typingMsg{seq: seq}
	}))
}

// startSearch runs the current input in the current scope. Results of
// earlier searches are dropped when they arrive.
func (m *watchModel) startSearch() tea.Cmd {
	m.seq++
	q := strings.TrimSpace(m.input.Value())
	if q == "" {
		m.results, m.err, m.query = nil, nil, ""
		m.searching = false
		return nil
	}
	m.searching = true
	return tea.Batch(m.spinner.Tick, m.searchCmd(m.seq, q, m.scope))
}

func (m watchModel) searchCmd(seq int, query string, scope search.Scope) tea.Cmd {
	ctx, eng := m.ctx, m.eng
	return func() tea.Msg {
		start := time.Now()
		results, err := eng.Search(ctx, query, scope)
		return resultsMsg{
			seq:     seq,
			query:   query,
			scope:   scope,
			results: results,
			err:     err,
			elapsed: time.Since(start),
		}
	}
}

func (m *watchModel) moveCursor(delta int) {
	if len(m.results) == 0 {
		return
	}
	m.cursor = min(max(m.cursor+delta, 0), len(m.results)-1)
	rows := m.visibleRows()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+rows {
		m.offset = m.cursor - rows + 1
	}
}

// visibleRows is the number of result rows that fit under the header and
// above the footer.
func (m watchModel) visibleRows() int {
	return max(m.height-8, 3)
}

func otherScope(s search.Scope) search.Scope {
	if s == search.ScopeHome {
		return search.ScopeRoot
	}
	return search.ScopeHome
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the screen.
func (m watchModel) View() string {
	var b strings.Builder

	root := m.homeRoot
	if m.scope == search.ScopeRoot {
		root = m.liveRoot
	}
	b.WriteString(TitleStyle.Render("filescope") + "  " +
		RenderStatus(m.scope.String()) + " " + DimStyle.Render(root) + "\n")
	b.WriteString(m.indexLine() + "\n")
	b.WriteString(m.input.View() + "\n")
	b.WriteString(m.statusLine() + "\n")
	b.WriteString(RenderSeparator(max(m.width-2, 10)) + "\n")

	rows := m.visibleRows()
	f := resultFormat{width: max(m.width-4, 20), styled: true}
	end := min(m.offset+rows, len(m.results))
	for i := m.offset; i < end; i++ {
		marker := "  "
		if i == m.cursor {
			marker = SelectedStyle.Render("> ")
		}
		b.WriteString(marker + formatResult(m.results[i], f) + "\n")
	}
	for i := end - m.offset; i < rows; i++ {
		b.WriteString("\n")
	}

	b.WriteString(DimStyle.Render("tab scope  enter search  up/down move  esc quit"))
	return b.String()
}

func (m watchModel) indexLine() string {
	switch {
	case m.indexErr != nil:
		return ErrorStyle.Render("Indexing failed: ") + m.indexErr.Error()
	case m.progress < 1:
		return WarningStyle.Render("Indexing ") + m.bar.ViewAs(float64(m.progress))
	}
	return SuccessStyle.Render("Index ready")
}

func (m watchModel) statusLine() string {
	switch {
	case m.searching:
		return m.spinner.View() + " Searching..."
	case m.err != nil:
		return ErrorStyle.Render("[ERROR] ") + m.err.Error()
	case m.query == "":
		if m.scope == search.ScopeRoot {
			return DimStyle.Render("Type a regular expression and press enter")
		}
		return DimStyle.Render("Type to search file names and contents")
	case len(m.results) == 0:
		return WarningStyle.Render(fmt.Sprintf("No matches for %q", m.query))
	}
	return fmt.Sprintf("%d results in %s", len(m.results), m.elapsed.Round(time.Millisecond))
}
