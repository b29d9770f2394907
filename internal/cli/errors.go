// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error types, display and exit codes for the filescope CLI.
//
// Handlers always return errors and never print them; main displays the
// error once and exits with GetExitCode.

package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/jeranaias/filescope/internal/config"
	"github.com/jeranaias/filescope/internal/search"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid usage, a malformed query or an invalid pattern
	ExitUsageError = 2
	// ExitConfigError indicates configuration file or settings error
	ExitConfigError = 3
	// ExitNotFoundError indicates nothing matched or a resource was not found
	ExitNotFoundError = 7
	// ExitTimeoutError indicates an operation timed out
	ExitTimeoutError = 8
)

// ErrNoResults is returned by search when nothing matched. It is reported
// through the exit code only.
var ErrNoResults = errors.New("no results")

// =============================================================================
// ERROR TYPES
// =============================================================================

// CommandError represents a CLI command error with context.
type CommandError struct {
	Command string // Command that failed (e.g., "search", "index")
	Action  string // Action being performed (e.g., "home", "rebuild")
	Reason  string // Human-readable reason
	Err     error  // Underlying error (if any)
}

func (e *CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s failed: %s: %v", e.Command, e.Action, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %s", e.Command, e.Action, e.Reason)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ValidationError represents a validation failure for user input.
type ValidationError struct {
	Field   string // Field that failed validation
	Value   string // Value that was provided
	Reason  string // Why validation failed
	Example string // Example of valid value (optional)
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	if e.Value != "" {
		msg += fmt.Sprintf(" (got: %s)", e.Value)
	}
	if e.Example != "" {
		msg += fmt.Sprintf("\nExample: %s", e.Example)
	}
	return msg
}

// ConfigError represents a configuration file that could not be loaded or
// written.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("config: %v", e.Err)
	}
	return fmt.Sprintf("config %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NotFoundError represents a resource not found error.
type NotFoundError struct {
	Resource string // Type of resource (e.g., "config key", "file")
	ID       string // Identifier that was not found
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// =============================================================================
// ERROR CONSTRUCTION HELPERS
// =============================================================================

// NewCommandError creates a new command error.
func NewCommandError(command, action, reason string, err error) error {
	return &CommandError{
		Command: command,
		Action:  action,
		Reason:  reason,
		Err:     err,
	}
}

// NewValidationError creates a new validation error.
func NewValidationError(field, value, reason string) error {
	return &ValidationError{
		Field:  field,
		Value:  value,
		Reason: reason,
	}
}

// NewValidationErrorWithExample creates a validation error with an example.
func NewValidationErrorWithExample(field, value, reason, example string) error {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Reason:  reason,
		Example: example,
	}
}

// NewNotFoundError creates a new not found error.
func NewNotFoundError(resource, id string) error {
	return &NotFoundError{
		Resource: resource,
		ID:       id,
	}
}

// ErrMissingArgument creates an error for missing required arguments.
func ErrMissingArgument(argName, usage string) error {
	return NewValidationErrorWithExample(argName, "", "required argument missing", usage)
}

// =============================================================================
// ERROR DISPLAY
// =============================================================================

// DisplayError writes err to w in a consistent format. In JSON mode it
// writes a JSON error response for command instead. ErrNoResults is not
// displayed.
func DisplayError(w io.Writer, command string, err error, jsonMode bool) {
	if err == nil || errors.Is(err, ErrNoResults) {
		return
	}

	if jsonMode {
		DisplayErrorJSON(w, command, err)
		return
	}

	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("[ERROR]"), err.Error())

	var cfgErrs config.ValidateErrors
	if errors.As(err, &cfgErrs) {
		fmt.Fprintln(w, DimStyle.Render("Run 'filescope config path' to locate the file."))
	}
}

// DisplayErrorJSON writes err as a JSON error response.
func DisplayErrorJSON(w io.Writer, command string, err error) {
	resp := NewJSONErrorResponse(command, err)
	resp.ErrorType = errorType(err)

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(resp)
}

func errorType(err error) string {
	var (
		validationErr *ValidationError
		configErr     *ConfigError
		notFoundErr   *NotFoundError
		commandErr    *CommandError
	)
	switch {
	case errors.As(err, &validationErr), isUsageError(err):
		return "validation_error"
	case errors.As(err, &configErr):
		return "config_error"
	case errors.As(err, &notFoundErr):
		return "not_found_error"
	case errors.As(err, &commandErr):
		return "command_error"
	}
	return "generic_error"
}

// =============================================================================
// EXIT CODE MAPPING
// =============================================================================

// GetExitCode determines the appropriate exit code for an error.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	if errors.Is(err, ErrNoResults) {
		return ExitNotFoundError
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) || isUsageError(err) {
		return ExitUsageError
	}

	var ttyErr *TTYRequiredError
	if errors.As(err, &ttyErr) {
		return ExitUsageError
	}

	var configErr *ConfigError
	var cfgErrs config.ValidateErrors
	if errors.As(err, &configErr) || errors.As(err, &cfgErrs) {
		return ExitConfigError
	}

	var notFoundErr *NotFoundError
	if errors.As(err, &notFoundErr) {
		return ExitNotFoundError
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ExitTimeoutError
	}

	return ExitGeneralError
}

// isUsageError reports whether err is the user's query or pattern at fault.
func isUsageError(err error) bool {
	return errors.Is(err, search.ErrQuerySyntax) ||
		errors.Is(err, search.ErrInvalidPattern) ||
		errors.Is(err, search.ErrUnknownScope)
}
