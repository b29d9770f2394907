// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package livescan

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"

	"github.com/jeranaias/filescope/internal/search"
	"github.com/jeranaias/filescope/internal/walk"
)

const (
	// DefaultMaxDepth limits how far below the root a scan descends.
	DefaultMaxDepth = 10

	// DefaultMaxResults caps the results of a single scan.
	DefaultMaxResults = 100

	// BinaryPlaceholder is the line content reported for a matching binary file.
	BinaryPlaceholder = "binary file matches"

	// sniffLen is how much of a file is checked for NUL bytes.
	sniffLen = 8000

	// maxLineLen is the longest line scanned; longer lines end the file.
	maxLineLen = 1024 * 1024
)

// DefaultExcludePaths are virtual file systems never scanned.
var DefaultExcludePaths = []string{"/proc", "/sys", "/dev"}

// Scanner runs regex searches over a tree. The zero value of each limit
// selects its default.
type Scanner struct {
	// Root is the directory to scan.
	Root string

	// MaxDepth limits the walk depth (default DefaultMaxDepth).
	MaxDepth int

	// MaxResults caps the results per search (default DefaultMaxResults).
	MaxResults int

	// MaxFileSize skips larger files (0 = no limit).
	MaxFileSize int64

	// ExcludePaths are absolute paths whose subtrees are skipped
	// (default DefaultExcludePaths).
	ExcludePaths []string

	// Logger receives skip and error logs (default slog.Default()).
	Logger *slog.Logger
}

// Search returns the lines below Root matching pattern, in walk order,
// stopping once MaxResults results have been collected. A pattern that is
// not a valid regular expression returns an error wrapping
// search.ErrInvalidPattern.
func (s *Scanner) Search(ctx context.Context, pattern string) ([]search.Result, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", search.ErrInvalidPattern, err)
	}

	log := s.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "livescan")

	limit := s.MaxResults
	if limit <= 0 {
		limit = DefaultMaxResults
	}
	depth := s.MaxDepth
	if depth <= 0 {
		depth = DefaultMaxDepth
	}
	excludePaths := s.ExcludePaths
	if excludePaths == nil {
		excludePaths = DefaultExcludePaths
	}

	w := &walk.Walker{
		Root:          s.Root,
		IncludeHidden: false,
		GitIgnore:     true,
		MaxDepth:      depth,
		Exclude:       walk.DefaultExclude,
		ExcludePaths:  excludePaths,
		OnError: func(path string, err error) {
			log.Debug("Skipping unreadable entry", "path", path, "error", err)
		},
	}

	results := []search.Result{}
	err = w.Walk(ctx, func(path string, d fs.DirEntry, _ int) error {
		if !d.Type().IsRegular() {
			return nil
		}
		if s.MaxFileSize > 0 {
			if info, err := d.Info(); err != nil || info.Size() > s.MaxFileSize {
				return nil
			}
		}

		matches, err := scanFile(ctx, path, re, limit-len(results))
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Debug("Skipping file", "path", path, "error", err)
		}
		results = append(results, matches...)
		if len(results) >= limit {
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// scanFile returns up to max matching lines of path. Matches found before a
// read error are returned along with it.
func scanFile(ctx context.Context, path string, re *regexp.Regexp, max int) ([]search.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := bufio.NewReaderSize(f, 64*1024)
	head, err := r.Peek(sniffLen)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, err
	}
	binary := bytes.IndexByte(head, 0) >= 0

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLen)

	var results []search.Result
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		if lineNum%1000 == 0 && ctx.Err() != nil {
			return results, ctx.Err()
		}

		line := bytes.TrimSuffix(scanner.Bytes(), []byte("\r"))
		if !re.Match(line) {
			continue
		}
		if binary {
			return []search.Result{{Path: path, LineNumber: lineNum, LineContent: BinaryPlaceholder}}, nil
		}
		results = append(results, search.Result{
			Path:        path,
			LineNumber:  lineNum,
			LineContent: string(line),
		})
		if len(results) >= max {
			break
		}
	}
	return results, scanner.Err()
}
