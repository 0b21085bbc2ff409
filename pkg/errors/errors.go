package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unique error code
type ErrorCode string

// Error codes returned by the identity engine and its adapters
const (
	// Generic errors
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"

	// Identity errors
	ErrCodeDuplicateIdentity ErrorCode = "DUPLICATE_IDENTITY"
	ErrCodeIdentityNotFound  ErrorCode = "IDENTITY_NOT_FOUND"
	ErrCodeAlreadyVerified   ErrorCode = "ALREADY_VERIFIED"

	// Authentication errors
	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeUnauthenticated    ErrorCode = "UNAUTHENTICATED"
	ErrCodeTokenExpired       ErrorCode = "TOKEN_EXPIRED"
	ErrCodeTokenMalformed     ErrorCode = "TOKEN_MALFORMED"

	// Verification errors
	ErrCodeInvalidVerificationCode ErrorCode = "INVALID_VERIFICATION_CODE"
	ErrCodeVerificationCodeExpired ErrorCode = "VERIFICATION_CODE_EXPIRED"

	// Collaborator errors
	ErrCodeEmailDeliveryFailed ErrorCode = "EMAIL_DELIVERY_FAILED"
	ErrCodeStoreUnavailable    ErrorCode = "STORE_UNAVAILABLE"
)

// Error represents a structured error with code, message, and optional details
type Error struct {
	Code    ErrorCode              // Unique error code
	Message string                 // Human-readable error message
	Details map[string]interface{} // Optional additional details
	Err     error                  // Wrapped underlying error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for errors.Is and errors.As
func (e *Error) Unwrap() error {
	return e.Err
}

// WithDetail adds a detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// HTTPStatusCode returns the appropriate HTTP status code for this error
func (e *Error) HTTPStatusCode() int {
	return MapErrorCodeToHTTPStatus(e.Code)
}

// New creates a new Error with the given code and message
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new Error with formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with code and message
func Wrap(err error, code ErrorCode, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsCode checks if an error has a specific error code
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error
// Returns ErrCodeInternal if the error is not a structured Error
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeInternal
}

// GetDetails extracts the details from an error
// Returns nil if the error is not a structured Error
func GetDetails(err error) map[string]interface{} {
	var e *Error
	if errors.As(err, &e) {
		return e.Details
	}
	return nil
}

// PublicMessage returns the message safe to show to a caller.
// Unstructured errors never leak their text.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Code != ErrCodeInternal {
		return e.Message
	}
	return "internal server error"
}

// MapErrorCodeToHTTPStatus maps error codes to HTTP status codes
func MapErrorCodeToHTTPStatus(code ErrorCode) int {
	switch code {
	// 400 Bad Request
	case ErrCodeInvalidInput, ErrCodeInvalidVerificationCode:
		return http.StatusBadRequest

	// 401 Unauthorized
	case ErrCodeInvalidCredentials, ErrCodeUnauthenticated,
		ErrCodeTokenExpired, ErrCodeTokenMalformed:
		return http.StatusUnauthorized

	// 404 Not Found
	case ErrCodeIdentityNotFound:
		return http.StatusNotFound

	// 409 Conflict
	case ErrCodeDuplicateIdentity, ErrCodeAlreadyVerified:
		return http.StatusConflict

	// 410 Gone
	case ErrCodeVerificationCodeExpired:
		return http.StatusGone

	// 502 Bad Gateway
	case ErrCodeEmailDeliveryFailed:
		return http.StatusBadGateway

	// 503 Service Unavailable
	case ErrCodeStoreUnavailable:
		return http.StatusServiceUnavailable

	// 500 Internal Server Error (default)
	case ErrCodeInternal:
		fallthrough
	default:
		return http.StatusInternalServerError
	}
}

// Common error constructors for frequently used errors

// InvalidInput creates an "invalid input" error
func InvalidInput(field, reason string) *Error {
	return New(ErrCodeInvalidInput, fmt.Sprintf("invalid %s: %s", field, reason)).WithDetail("field", field)
}

// InvalidCredentials is returned for every failed password login so callers
// cannot tell which check failed.
func InvalidCredentials() *Error {
	return New(ErrCodeInvalidCredentials, "invalid email or password")
}

// StoreUnavailable wraps a storage failure
func StoreUnavailable(err error) *Error {
	return Wrap(err, ErrCodeStoreUnavailable, "identity store unavailable")
}

// Internal creates an "internal error"
func Internal(message string) *Error {
	return New(ErrCodeInternal, message)
}

// InternalWrap wraps an internal error
func InternalWrap(err error, message string) *Error {
	return Wrap(err, ErrCodeInternal, message)
}
