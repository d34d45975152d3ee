// Package errors provides structured error types for the docgraph engine.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the engine and CLI
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Input validation failures
//   - CIRCULAR_REFERENCE: DAG invariant violations
//   - RESOURCE_LIMIT: Bounded-work limits exceeded
//   - RATE_LIMITED: Mutation rate limits exceeded
//   - INTERNAL_*: Unexpected internal errors
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidID, "invalid document id: %s", id)
//	if errors.Is(err, errors.ErrCodeInvalidID) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeInternal, origErr, "failed to import graph")
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidID          Code = "INVALID_ID"
	ErrCodeOversizedMetadata  Code = "OVERSIZED_METADATA"
	ErrCodeOutOfRangeStrength Code = "OUT_OF_RANGE_STRENGTH"
	ErrCodeInvalidImport      Code = "INVALID_IMPORT"

	// Graph invariant errors
	ErrCodeCircularReference Code = "CIRCULAR_REFERENCE"

	// Bounded-work errors
	ErrCodeResourceLimit Code = "RESOURCE_LIMIT"
	ErrCodeRateLimited   Code = "RATE_LIMITED"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// coder is implemented by error types that carry their own code.
type coder interface {
	Code() Code
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for a matching code.
func Is(err error, code Code) bool {
	return GetCode(err) == code
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if no code is found in the chain.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	var c coder
	if errors.As(err, &c) {
		return c.Code()
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// CircularReferenceError reports an edge mutation that would close a cycle.
// Path holds the existing chain from the proposed edge's target back to its
// source, so the caller can see exactly which documents form the loop.
type CircularReferenceError struct {
	From string   // Source of the rejected edge
	To   string   // Target of the rejected edge
	Path []string // Existing path To -> ... -> From
}

// Error implements the error interface.
func (e *CircularReferenceError) Error() string {
	return fmt.Sprintf("circular reference: edge %s -> %s would close the path %s",
		e.From, e.To, strings.Join(e.Path, " -> "))
}

// Code returns the error code for this error type.
func (e *CircularReferenceError) Code() Code {
	return ErrCodeCircularReference
}

// RateLimitedError provides additional information for rate-limited callers.
type RateLimitedError struct {
	Caller     string // Identifier of the rate-limited caller
	RetryAfter int    // Seconds to wait before retrying
}

// Error implements the error interface.
func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited: retry after %d seconds", e.RetryAfter)
	}
	return "rate limited"
}

// Code returns the error code for this error type.
func (e *RateLimitedError) Code() Code {
	return ErrCodeRateLimited
}
