package shared

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target is a DomainError with the same code, so that a
// specific error such as "insufficient stock for product X" still matches
// the ErrInsufficientStock sentinel.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewDomainErrorf creates a new domain error with a formatted message
func NewDomainErrorf(code, format string, args ...any) *DomainError {
	return NewDomainError(code, fmt.Sprintf(format, args...))
}

// Error codes shared by every bounded context
const (
	CodeNotFound            = "NOT_FOUND"
	CodeInvalidInput        = "INVALID_INPUT"
	CodeInvalidState        = "INVALID_STATE"
	CodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
	CodeInsufficientStock   = "INSUFFICIENT_STOCK"
	CodeOverReceive         = "OVER_RECEIVE"
	CodeOverReturn          = "OVER_RETURN"
	CodeDuplicateRequest    = "DUPLICATE_REQUEST"
)

// Common domain errors
var (
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrInvalidInput        = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError(CodeConcurrencyConflict, "Resource was modified by another process")
	ErrInvalidState        = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrInsufficientStock   = NewDomainError(CodeInsufficientStock, "Insufficient stock available")
	ErrOverReceive         = NewDomainError(CodeOverReceive, "Received quantity exceeds ordered quantity")
	ErrOverReturn          = NewDomainError(CodeOverReturn, "Returned quantity exceeds sold quantity")
	ErrDuplicateRequest    = NewDomainError(CodeDuplicateRequest, "Request with this idempotency key was already processed")
)

// NotFound returns a NOT_FOUND error naming the missing entity
func NotFound(entity string, id any) *DomainError {
	return NewDomainErrorf(CodeNotFound, "%s %v not found", entity, id)
}

// InvalidState returns an INVALID_STATE error with the given message
func InvalidState(format string, args ...any) *DomainError {
	return NewDomainErrorf(CodeInvalidState, format, args...)
}

// InvalidInput returns an INVALID_INPUT error with the given message
func InvalidInput(format string, args ...any) *DomainError {
	return NewDomainErrorf(CodeInvalidInput, format, args...)
}

// IsDomainError reports whether err carries a DomainError anywhere in its chain
func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}
