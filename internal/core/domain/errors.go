// Package domain defines the core domain models for kiss.
package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain error with a structured error code.
// Codes follow the format KS-<AREA>-<NNNN>, where the number mirrors the
// closest HTTP status (or 5xxx for process-level failures).
type DomainError struct {
	Code    string // Error code (e.g., "KS-START-5001")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	var msg string
	if e.Details != "" {
		msg = fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	} else {
		msg = fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// Wrap wraps an error with this domain error as the cause.
func (e *DomainError) Wrap(cause error) *DomainError {
	return e.WithCause(cause)
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// IsStartupError reports whether err is fatal to process startup.
func IsStartupError(err error) bool {
	var de *DomainError
	if !errors.As(err, &de) {
		return false
	}
	return len(de.Code) > 9 && de.Code[:9] == "KS-START-"
}

// ============================================================================
// Startup Errors (START)
// Fatal before the accept loop runs; the process exits non-zero.
// ============================================================================

var (
	// ErrInvalidConfig indicates the configuration failed validation.
	ErrInvalidConfig = NewDomainError("KS-START-5000", "invalid configuration")

	// ErrContentRootUnreadable indicates the content root cannot be scanned.
	ErrContentRootUnreadable = NewDomainError("KS-START-5001", "content root unreadable")

	// ErrContentFileUnreadable indicates a content file failed in strict mode.
	ErrContentFileUnreadable = NewDomainError("KS-START-5002", "content file unreadable")

	// ErrContentFileTooLarge indicates an oversized file under the fail policy.
	ErrContentFileTooLarge = NewDomainError("KS-START-5003", "content file exceeds size limit")

	// ErrBind indicates the listening socket could not be bound.
	ErrBind = NewDomainError("KS-START-5004", "bind listener failed")
)

// ============================================================================
// Request Errors (REQ)
// Isolated to one connection.
// ============================================================================

var (
	// ErrBadRequest indicates a malformed request head.
	ErrBadRequest = NewDomainError("KS-REQ-4000", "bad request")

	// ErrRequestTooLarge indicates the request head exceeded the size bound.
	ErrRequestTooLarge = NewDomainError("KS-REQ-4001", "request head too large")

	// ErrNotFound indicates the path is absent from the index.
	ErrNotFound = NewDomainError("KS-REQ-4040", "not found")

	// ErrMethodNotAllowed indicates a method other than GET or HEAD.
	ErrMethodNotAllowed = NewDomainError("KS-REQ-4050", "method not allowed")

	// ErrRequestTimeout indicates a partially received head timed out.
	ErrRequestTimeout = NewDomainError("KS-REQ-4080", "request timeout")
)

// ============================================================================
// Connection Errors (CONN)
// Never fatal to the server.
// ============================================================================

var (
	// ErrWrite indicates a socket failure while writing a response.
	ErrWrite = NewDomainError("KS-CONN-5000", "write response failed")

	// ErrDrainRefusal indicates a connection refused while draining or saturated.
	ErrDrainRefusal = NewDomainError("KS-CONN-5030", "connection refused")
)
