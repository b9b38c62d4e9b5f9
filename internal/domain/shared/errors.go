package shared

import (
	"errors"
	"fmt"
)

// Error codes shared by every bounded context of the engine.
const (
	CodeNotFound                = "NOT_FOUND"
	CodeAlreadyExists           = "ALREADY_EXISTS"
	CodeInvalidInput            = "INVALID_INPUT"
	CodeInvalidQuantity         = "INVALID_QUANTITY"
	CodeUnknownReference        = "UNKNOWN_REFERENCE"
	CodeUnmappedYieldGroup      = "UNMAPPED_YIELD_GROUP"
	CodeUnknownShippingZone     = "UNKNOWN_SHIPPING_ZONE"
	CodeCurrencyMismatch        = "CURRENCY_MISMATCH"
	CodeInsufficientStock       = "INSUFFICIENT_STOCK"
	CodeInvalidStatusTransition = "INVALID_STATUS_TRANSITION"
	CodeInvalidTransition       = "INVALID_TRANSITION"
	CodeForbidden               = "FORBIDDEN"
	CodeBusy                    = "BUSY"
	CodeConcurrencyConflict     = "CONCURRENCY_CONFLICT"
	CodeUnavailable             = "UNAVAILABLE"
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

// Is reports whether target is a DomainError carrying the same code, so that
// errors.Is(err, shared.ErrBusy) matches any BUSY error regardless of message.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
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

// Common domain errors
var (
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists       = NewDomainError(CodeAlreadyExists, "Resource already exists")
	ErrInvalidInput        = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError(CodeConcurrencyConflict, "Resource was modified by another process")
	ErrForbidden           = NewDomainError(CodeForbidden, "Actor is not authorized to perform this action")
	ErrInvalidTransition   = NewDomainError(CodeInvalidTransition, "Operation not allowed in current state")
	ErrInsufficientStock   = NewDomainError(CodeInsufficientStock, "Insufficient stock available")
	ErrBusy                = NewDomainError(CodeBusy, "Resource is busy, retry later")
)

// ErrorCode extracts the domain error code from err, or "" when err does not
// wrap a DomainError.
func ErrorCode(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// HasCode reports whether err wraps a DomainError with the given code.
func HasCode(err error, code string) bool {
	return err != nil && ErrorCode(err) == code
}

// IsRetryable reports whether the caller may retry the operation automatically.
// Only lock contention is retryable; every other failure needs a changed request
// or operator intervention.
func IsRetryable(err error) bool {
	return HasCode(err, CodeBusy)
}
