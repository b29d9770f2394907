// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package search

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrQuerySyntax is returned when a home-scope query cannot be parsed by
	// the index query language.
	ErrQuerySyntax = errors.New("malformed query")

	// ErrInvalidPattern is returned when a root-scope query is not a valid
	// regular expression.
	ErrInvalidPattern = errors.New("invalid regular expression")

	// ErrUnknownScope is returned for a scope value other than Home or Root.
	ErrUnknownScope = errors.New("unknown search scope")
)

// =============================================================================
// RESULT
// =============================================================================

// Result is a single search hit.
//
// LineNumber is 1-based. A zero LineNumber means the path matched by name
// (or is a directory) and no content line is attached.
type Result struct {
	Path        string `json:"path"`
	LineNumber  int    `json:"line_number"`
	LineContent string `json:"line_content,omitempty"`
}

// IsNameMatch reports whether the result carries no content line.
func (r Result) IsNameMatch() bool {
	return r.LineNumber == 0
}

// String formats the result grep-style: path:line:content.
func (r Result) String() string {
	if r.IsNameMatch() {
		return r.Path
	}
	return fmt.Sprintf("%s:%d:%s", r.Path, r.LineNumber, r.LineContent)
}

// =============================================================================
// SCOPE
// =============================================================================

// Scope is the search boundary.
type Scope int

const (
	// ScopeHome searches the pre-built index of the home subtree.
	ScopeHome Scope = iota
	// ScopeRoot scans the live filesystem.
	ScopeRoot
)

// String returns the lower-case scope name.
func (s Scope) String() string {
	switch s {
	case ScopeHome:
		return "home"
	case ScopeRoot:
		return "root"
	}
	return fmt.Sprintf("scope(%d)", int(s))
}

// ParseScope parses "home" or "root" (case-insensitive).
func ParseScope(s string) (Scope, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "home", "":
		return ScopeHome, nil
	case "root", "/":
		return ScopeRoot, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownScope, s)
}
