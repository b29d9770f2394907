// json_output.go - JSON output support for scripting filescope.
//
// Every command that accepts --json writes one JSONResponse to stdout.
// Human-readable progress goes to stderr in JSON mode.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package cli

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/jeranaias/filescope/internal/search"
)

// JSONResponse is the response format for all CLI commands.
type JSONResponse struct {
	// Success indicates whether the command completed successfully
	Success bool `json:"success"`

	// Data contains the command-specific response data
	Data interface{} `json:"data"`

	// Error contains the error message if Success is false, null otherwise
	Error *string `json:"error"`

	// ErrorType classifies Error (validation_error, config_error, ...)
	ErrorType string `json:"error_type,omitempty"`

	// Timestamp is the RFC3339 timestamp when the response was generated
	Timestamp string `json:"timestamp"`

	// Command is the command that was executed
	Command string `json:"command,omitempty"`
}

// NewJSONResponse creates a new successful JSON response.
func NewJSONResponse(command string, data interface{}) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// NewJSONErrorResponse creates a new error JSON response.
func NewJSONErrorResponse(command string, err error) *JSONResponse {
	errStr := err.Error()
	return &JSONResponse{
		Success:   false,
		Error:     &errStr,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// Print outputs the JSON response to stdout.
func (r *JSONResponse) Print() error {
	return r.Write(os.Stdout)
}

// Write outputs the indented JSON response to w.
func (r *JSONResponse) Write(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r)
}

// =============================================================================
// COMMAND-SPECIFIC DATA STRUCTURES
// =============================================================================

// SearchData represents the data returned by the search command.
type SearchData struct {
	Query     string          `json:"query"`
	Scope     string          `json:"scope"`
	Count     int             `json:"count"`
	Truncated bool            `json:"truncated,omitempty"`
	ElapsedMs int64           `json:"elapsed_ms"`
	Results   []search.Result `json:"results"`
}

// IndexData represents the data returned by the index command.
type IndexData struct {
	Rebuilt   bool      `json:"rebuilt"`
	ElapsedMs int64     `json:"elapsed_ms"`
	Index     IndexInfo `json:"index"`
}

// StatusData represents the data returned by the status command.
type StatusData struct {
	ConfigPath string    `json:"config_path"`
	Index      IndexInfo `json:"index"`
	Live       LiveInfo  `json:"live"`
	Watch      WatchInfo `json:"watch"`
	Workers    int       `json:"workers"`
}

// IndexInfo describes the home index.
type IndexInfo struct {
	Root          string `json:"root"`
	Dir           string `json:"dir"`
	Documents     int    `json:"documents"`
	Directories   int    `json:"directories"`
	DatabaseSize  int64  `json:"database_size"`
	LastIndexed   string `json:"last_indexed,omitempty"`
	SchemaVersion int    `json:"schema_version"`
	SchemaOK      bool   `json:"schema_ok"`
	Generation    int64  `json:"generation"`
	Complete      bool   `json:"complete"`
}

// LiveInfo describes the root scope scanner.
type LiveInfo struct {
	Root       string `json:"root"`
	MaxDepth   int    `json:"max_depth"`
	MaxResults int    `json:"max_results"`
}

// WatchInfo describes the change watcher settings.
type WatchInfo struct {
	Enabled  bool   `json:"enabled"`
	Debounce string `json:"debounce"`
}

// ConfigData represents the data returned by config get.
type ConfigData struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

// VersionData represents the data returned by the version command.
type VersionData struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}
