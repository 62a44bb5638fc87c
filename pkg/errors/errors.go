// Package errors provides structured error handling for Vapor
package errors

import (
	"errors"
	"runtime"

	stringpool "github.com/steamops/vapor/pkg/strings"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeInternal represents internal system errors
	ErrorTypeInternal ErrorType = "internal"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeNotFound represents lookup key not found errors
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeSourceUnavailable represents a source that cannot be opened
	// or decompressed. The only fatal kind for a pipeline run.
	ErrorTypeSourceUnavailable ErrorType = "source_unavailable"
	// ErrorTypeMalformedRecord represents a line or row that fails to parse
	// into the expected structure. Recovered by skipping.
	ErrorTypeMalformedRecord ErrorType = "malformed_record"
	// ErrorTypeMissingField represents an expected nested key absent on an
	// otherwise well-formed record. Recovered with a typed default.
	ErrorTypeMissingField ErrorType = "missing_field"
	// ErrorTypeUnparseableValue represents a value that cannot be coerced to
	// its target type. Recovered with the field's documented sentinel.
	ErrorTypeUnparseableValue ErrorType = "unparseable_value"
)

// Error represents a structured error with context
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Details map[string]interface{}
	Stack   []StackFrame
}

// StackFrame represents a single frame in the call stack
type StackFrame struct {
	Function string
	File     string
	Line     int
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return stringpool.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return stringpool.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail adds a key-value detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new error with the given type and message
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Stack:   captureStack(2),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}

	// If already our error type, preserve the stack
	var existingErr *Error
	if errors.As(err, &existingErr) {
		return &Error{
			Type:    errType,
			Message: message,
			Cause:   err,
			Stack:   existingErr.Stack,
		}
	}

	return &Error{
		Type:    errType,
		Message: message,
		Cause:   err,
		Stack:   captureStack(2),
	}
}

// IsFatal returns true if the error aborts a pipeline run. Everything except
// an unavailable source is absorbed with a diagnostic.
func IsFatal(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return true
	}

	switch e.Type {
	case ErrorTypeMalformedRecord, ErrorTypeMissingField, ErrorTypeUnparseableValue:
		return false
	default:
		return true
	}
}

// IsType checks if the error is of the given type
func IsType(err error, errType ErrorType) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Type == errType
}

// captureStack captures the current call stack
func captureStack(skip int) []StackFrame {
	const maxFrames = 32
	frames := make([]StackFrame, 0, maxFrames)

	for i := skip; i < maxFrames+skip; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}

		frames = append(frames, StackFrame{
			Function: fn.Name(),
			File:     file,
			Line:     line,
		})
	}

	return frames
}
