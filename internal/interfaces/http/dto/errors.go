package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"
	// ErrCodeUnavailable is used when a collaborator (renderer, storage,
	// text generation) is not configured or failed
	ErrCodeUnavailable = "ERR_UNAVAILABLE"
	// ErrCodeBusy is used when a stock slot or reservation lock could not be
	// acquired in time. The client should retry.
	ErrCodeBusy = "ERR_BUSY"
)

// Validation error codes
const (
	ErrCodeValidation         = "ERR_VALIDATION"
	ErrCodeValidationRequired = "ERR_VALIDATION_REQUIRED"
	ErrCodeValidationFormat   = "ERR_VALIDATION_FORMAT"
	ErrCodeValidationRange    = "ERR_VALIDATION_RANGE"
)

// Authentication error codes
const (
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeForbidden    = "ERR_FORBIDDEN"
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
	ErrCodeTokenRevoked = "ERR_TOKEN_REVOKED"
)

// Resource error codes
const (
	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists       = "ERR_ALREADY_EXISTS"
	ErrCodeConflict            = "ERR_CONFLICT"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
)

// Catalog and quote error codes
const (
	ErrCodeUnknownReference    = "ERR_UNKNOWN_REFERENCE"
	ErrCodeUnmappedYieldGroup  = "ERR_UNMAPPED_YIELD_GROUP"
	ErrCodeUnknownShippingZone = "ERR_UNKNOWN_SHIPPING_ZONE"
	ErrCodeCurrencyMismatch    = "ERR_CURRENCY_MISMATCH"
)

// Stock and reservation error codes
const (
	ErrCodeInvalidQuantity         = "ERR_INVALID_QUANTITY"
	ErrCodeInsufficientStock       = "ERR_INSUFFICIENT_STOCK"
	ErrCodeInvalidTransition       = "ERR_INVALID_TRANSITION"
	ErrCodeInvalidStatusTransition = "ERR_INVALID_STATUS_TRANSITION"
)

// Input error codes
const (
	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON  = "ERR_INVALID_JSON"
)

// Rate limiting error codes
const (
	ErrCodeRateLimited     = "ERR_RATE_LIMITED"
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:     http.StatusInternalServerError,
	ErrCodeInternal:    http.StatusInternalServerError,
	ErrCodeUnavailable: http.StatusServiceUnavailable,
	ErrCodeBusy:        http.StatusServiceUnavailable,

	// Validation errors -> 400 Bad Request
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeValidationRequired: http.StatusBadRequest,
	ErrCodeValidationFormat:   http.StatusBadRequest,
	ErrCodeValidationRange:    http.StatusBadRequest,

	// Auth errors
	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,
	ErrCodeTokenRevoked: http.StatusUnauthorized,

	// Resource errors
	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	// Catalog lookups fail on well-formed requests -> 422
	ErrCodeUnknownReference:    http.StatusUnprocessableEntity,
	ErrCodeUnmappedYieldGroup:  http.StatusUnprocessableEntity,
	ErrCodeUnknownShippingZone: http.StatusUnprocessableEntity,
	ErrCodeCurrencyMismatch:    http.StatusUnprocessableEntity,

	// Business rule errors -> 422 Unprocessable Entity
	ErrCodeInvalidQuantity:         http.StatusBadRequest,
	ErrCodeInsufficientStock:       http.StatusUnprocessableEntity,
	ErrCodeInvalidTransition:       http.StatusUnprocessableEntity,
	ErrCodeInvalidStatusTransition: http.StatusUnprocessableEntity,

	// Input errors -> 400 Bad Request
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,

	ErrCodeRateLimited:     http.StatusTooManyRequests,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to API error codes
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":                 ErrCodeNotFound,
	"ALREADY_EXISTS":            ErrCodeAlreadyExists,
	"INVALID_INPUT":             ErrCodeInvalidInput,
	"INVALID_QUANTITY":          ErrCodeInvalidQuantity,
	"UNKNOWN_REFERENCE":         ErrCodeUnknownReference,
	"UNMAPPED_YIELD_GROUP":      ErrCodeUnmappedYieldGroup,
	"UNKNOWN_SHIPPING_ZONE":     ErrCodeUnknownShippingZone,
	"CURRENCY_MISMATCH":         ErrCodeCurrencyMismatch,
	"INSUFFICIENT_STOCK":        ErrCodeInsufficientStock,
	"INVALID_STATUS_TRANSITION": ErrCodeInvalidStatusTransition,
	"INVALID_TRANSITION":        ErrCodeInvalidTransition,
	"FORBIDDEN":                 ErrCodeForbidden,
	"BUSY":                      ErrCodeBusy,
	"CONCURRENCY_CONFLICT":      ErrCodeConcurrencyConflict,
	"UNAVAILABLE":               ErrCodeUnavailable,
}

// NormalizeErrorCode converts a domain error code to the API format.
// Codes already in the API format, or unknown, are returned as-is.
func NormalizeErrorCode(code string) string {
	if newCode, ok := DomainErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}

// IsRetryable reports whether the client should retry after a delay
func IsRetryable(code string) bool {
	return code == ErrCodeBusy || code == ErrCodeUnavailable
}
