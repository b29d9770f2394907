// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package index

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/cases"

	"github.com/jeranaias/filescope/internal/search"
)

// =============================================================================
// SEARCH METHODS
// =============================================================================

type hit struct {
	path  string
	isDir bool
}

// Search runs query against names and contents and returns up to MaxHits
// documents in relevance order. Directory hits and files without a
// matching line yield one line-0 result; other files yield one result per
// line containing the query (case-insensitively). A malformed query returns
// an error wrapping search.ErrQuerySyntax.
func (s *Store) Search(ctx context.Context, query string) ([]search.Result, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return []search.Result{}, nil
	}

	hits, err := s.match(ctx, buildFTSQuery(query))
	if err != nil {
		return nil, err
	}

	results := make([]search.Result, 0, len(hits))
	for _, h := range hits {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if h.isDir {
			results = append(results, search.Result{Path: h.path})
			continue
		}

		lines := s.matchLines(h.path, query)
		if len(lines) == 0 {
			results = append(results, search.Result{Path: h.path})
			continue
		}
		results = append(results, lines...)
	}
	return results, nil
}

func (s *Store) match(ctx context.Context, ftsQuery string) ([]hit, error) {
	rows, err := s.reader.QueryContext(ctx, `
		SELECT e.path, e.is_directory
		FROM entries_fts
		JOIN entries e ON e.id = entries_fts.rowid
		WHERE entries_fts MATCH ?
		ORDER BY entries_fts.rank
		LIMIT ?
	`, ftsQuery, s.cfg.MaxHits)
	if err != nil {
		return nil, s.queryError(err)
	}
	defer rows.Close()

	var hits []hit
	for rows.Next() {
		var h hit
		if err := rows.Scan(&h.path, &h.isDir); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, s.queryError(err)
	}
	return hits, nil
}

func (s *Store) queryError(err error) error {
	if isSyntaxError(err) {
		return fmt.Errorf("%w: %v", search.ErrQuerySyntax, err)
	}
	return fmt.Errorf("%w: %v", ErrDatabaseError, err)
}

func isSyntaxError(err error) bool {
	msg := err.Error()
	for _, s := range []string{"fts5:", "syntax error", "no such column", "unterminated string", "unknown special query"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// matchLines re-reads path and returns the lines containing query. Read
// errors yield no lines.
func (s *Store) matchLines(path, query string) []search.Result {
	f, err := os.Open(path)
	if err != nil {
		s.log.Debug("Failed to re-read search hit", "path", path, "error", err)
		return nil
	}
	defer f.Close()

	// A Caser keeps state, so each search gets its own.
	fold := cases.Fold()
	needle := fold.String(query)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), int(s.cfg.MaxFileSize)+1)

	var results []search.Result
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if strings.Contains(fold.String(line), needle) {
			results = append(results, search.Result{
				Path:        path,
				LineNumber:  lineNum,
				LineContent: line,
			})
		}
	}

	if s.cfg.Debug {
		s.log.Debug("Line matches", "path", path, "query", query, "matches", len(results))
	}
	return results
}

// =============================================================================
// QUERY BUILDING
// =============================================================================

// ftsColumns restricts every query to the searchable columns.
const ftsColumns = "{filename content}"

// buildFTSQuery turns user input into an FTS5 MATCH expression. Plain
// terms are quoted one by one, so punctuation cannot break the syntax and
// all terms must match. Input that already uses FTS5 syntax passes through.
func buildFTSQuery(query string) string {
	if usesFTSSyntax(query) {
		return ftsColumns + " : (" + query + ")"
	}

	terms := strings.Fields(query)
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	return ftsColumns + " : (" + strings.Join(quoted, " ") + ")"
}

// usesFTSSyntax reports whether query contains FTS5 operators.
func usesFTSSyntax(query string) bool {
	if strings.ContainsAny(query, `"*()^`) {
		return true
	}
	for _, f := range strings.Fields(query) {
		switch f {
		case "AND", "OR", "NOT":
			return true
		}
		if strings.HasPrefix(f, "NEAR(") {
			return true
		}
	}
	return false
}
