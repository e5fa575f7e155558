package shared

import "errors"

// ErrorKind classifies a DomainError so callers can map it to a response
// without inspecting the specific code.
type ErrorKind string

const (
	KindValidation  ErrorKind = "VALIDATION"
	KindNotFound    ErrorKind = "NOT_FOUND"
	KindConflict    ErrorKind = "CONFLICT"
	KindConcurrency ErrorKind = "CONCURRENCY_CONFLICT"
)

// DomainError represents a domain-level error
type DomainError struct {
	Kind    ErrorKind `json:"kind"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is matches errors with the same code. A kind sentinel (code equal to its
// kind) also matches every error of that kind, so errors.Is(err, ErrConflict)
// holds for any conflict.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	if t.Code == e.Code {
		return true
	}
	return t.Code == string(t.Kind) && t.Kind == e.Kind
}

func newError(kind ErrorKind, code, message string) *DomainError {
	return &DomainError{Kind: kind, Code: code, Message: message}
}

// NewValidationError creates an error for malformed input
func NewValidationError(code, message string) *DomainError {
	return newError(KindValidation, code, message)
}

// NewNotFoundError creates an error for a missing resource
func NewNotFoundError(code, message string) *DomainError {
	return newError(KindNotFound, code, message)
}

// NewConflictError creates an error for a violated state-machine precondition
func NewConflictError(code, message string) *DomainError {
	return newError(KindConflict, code, message)
}

// NewConcurrencyError creates a retryable error for lost updates and
// unique-constraint races
func NewConcurrencyError(code, message string) *DomainError {
	return newError(KindConcurrency, code, message)
}

// Kind sentinels
var (
	ErrValidation          = newError(KindValidation, string(KindValidation), "Invalid input provided")
	ErrNotFound            = newError(KindNotFound, string(KindNotFound), "Resource not found")
	ErrConflict            = newError(KindConflict, string(KindConflict), "Operation not allowed in current state")
	ErrConcurrencyConflict = newError(KindConcurrency, string(KindConcurrency), "Resource was modified by another process")
)

// Common domain errors
var (
	ErrInsufficientStock = NewConflictError("INSUFFICIENT_STOCK", "Insufficient stock available")
	ErrOptimisticLock    = NewConcurrencyError("OPTIMISTIC_LOCK_FAILED", "Record was modified by another transaction")
	ErrDuplicateKey      = NewConcurrencyError("DUPLICATE_KEY", "A record with the same unique key was written concurrently")
)

// KindOf returns the kind of a DomainError in the chain, or "" if err is not one.
func KindOf(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// IsRetryable reports whether the caller may retry the operation unchanged.
func IsRetryable(err error) bool {
	return KindOf(err) == KindConcurrency
}
