// Package errors provides a lightweight structured error type (DemoStageError)
// for category-based classification and exit code mapping in the CLI.
package errors

import (
	stdErrors "errors"
	"fmt"
)

// ErrorCategory represents the category of a demostage error for classification
type ErrorCategory string

const (
	// User-facing configuration and input errors
	CategoryConfig ErrorCategory = "config"

	// Staging, scaffolding and workspace errors
	CategoryFileSystem ErrorCategory = "filesystem"

	// External collaborators
	CategoryBundler ErrorCategory = "bundler"
	CategoryServer  ErrorCategory = "server"

	// Runtime and infrastructure errors
	CategoryRuntime  ErrorCategory = "runtime"
	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity indicates how critical an error is
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops execution
	SeverityError   ErrorSeverity = "error"   // Error, but not fatal
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded functionality
)

// DemoStageError is a structured error with category, severity and context.
type DemoStageError struct {
	Category ErrorCategory `json:"category"`
	Severity ErrorSeverity `json:"severity"`
	Message  string        `json:"message"`
	Cause    error         `json:"cause,omitempty"`
	Context  ContextFields `json:"context,omitempty"`
}

// ContextFields carries structured context for DemoStageError
type ContextFields map[string]any

// Error implements the error interface
func (e *DemoStageError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

// Unwrap implements error unwrapping for Go 1.13+ error handling
func (e *DemoStageError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *DemoStageError) WithContext(key string, value any) *DemoStageError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// New creates a new DemoStageError
func New(category ErrorCategory, severity ErrorSeverity, message string) *DemoStageError {
	return &DemoStageError{
		Category: category,
		Severity: severity,
		Message:  message,
	}
}

// Wrap creates a new DemoStageError that wraps an existing error
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *DemoStageError {
	return &DemoStageError{
		Category: category,
		Severity: severity,
		Message:  message,
		Cause:    err,
	}
}

// As returns the outermost DemoStageError in err's chain.
func As(err error) (*DemoStageError, bool) {
	var dse *DemoStageError
	if stdErrors.As(err, &dse) {
		return dse, true
	}
	return nil, false
}

// IsCategory checks if an error (or anything it wraps) belongs to a specific category
func IsCategory(err error, category ErrorCategory) bool {
	if dse, ok := As(err); ok {
		return dse.Category == category
	}
	return false
}

// GetCategory extracts the category from an error, or returns CategoryInternal if not a DemoStageError
func GetCategory(err error) ErrorCategory {
	if dse, ok := As(err); ok {
		return dse.Category
	}
	return CategoryInternal
}
