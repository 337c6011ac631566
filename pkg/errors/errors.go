// Package errors provides the standardized application error used across
// joedb's encode/decode/insert paths (spec.md §7).
package errors

import (
	"fmt"
	"runtime"
	"time"
)

// AppError represents a standardized application error.
type AppError struct {
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Component  string                 `json:"component"`
	Operation  string                 `json:"operation"`
	Cause      error                  `json:"cause,omitempty"`
	StackTrace string                 `json:"stack_trace,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
	Severity   Severity               `json:"severity"`
}

// Severity levels for errors.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// Error codes, one per kind in spec.md §7, plus CodeProcessingInvalid for
// rejected input, bad configuration and codec setup failures.
const (
	CodeInvalidMagic      = "INVALID_MAGIC"
	CodeTruncatedFile     = "TRUNCATED_FILE"
	CodeUnknownColumnType = "UNKNOWN_COLUMN_TYPE"
	CodeMalformedUTF8     = "MALFORMED_UTF8"
	CodeTrieInvariant     = "TRIE_INVARIANT_VIOLATION"
	CodeTimestampParse    = "TIMESTAMP_PARSE_ERROR"
	CodeProcessingInvalid = "PROCESSING_INVALID_DATA"
)

// Component names used as the Component field.
const (
	ComponentEncoder  = "encoder"
	ComponentDecoder  = "decoder"
	ComponentDatabase = "database"
	ComponentTrie     = "trie"
)

// New creates a new standardized error.
func New(code, component, operation, message string) *AppError {
	_, file, line, _ := runtime.Caller(1)

	return &AppError{
		Code:       code,
		Message:    message,
		Component:  component,
		Operation:  operation,
		StackTrace: fmt.Sprintf("%s:%d", file, line),
		Metadata:   make(map[string]interface{}),
		Timestamp:  time.Now(),
		Severity:   SeverityMedium,
	}
}

// NewCritical creates a critical error. All the fatal kinds in spec.md §7
// (InvalidMagic, TruncatedFile, UnknownColumnType, TrieInvariantViolation)
// are constructed this way.
func NewCritical(code, component, operation, message string) *AppError {
	err := New(code, component, operation, message)
	err.Severity = SeverityCritical
	return err
}

// NewWithSeverity creates an error with a specific severity.
func NewWithSeverity(severity Severity, code, component, operation, message string) *AppError {
	err := New(code, component, operation, message)
	err.Severity = severity
	return err
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %s: %v", e.Component, e.Operation, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s: %s", e.Component, e.Operation, e.Code, e.Message)
}

// Wrap attaches a cause.
func (e *AppError) Wrap(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithMetadata attaches a metadata key/value pair.
func (e *AppError) WithMetadata(key string, value interface{}) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// IsCritical reports whether the error is fatal to the current operation.
func (e *AppError) IsCritical() bool {
	return e.Severity == SeverityCritical
}

// IsAppError checks if an error is an *AppError.
func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

// AsAppError converts an error to *AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	appErr, ok := err.(*AppError)
	return appErr, ok
}
