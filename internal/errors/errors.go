package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// DomainError represents a domain-specific error with a code and message
type DomainError struct {
	Code    string
	Message string
	Err     error // underlying error for wrapping
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is and errors.As
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WrapError wraps an existing error with domain error context
func WrapError(domainErr *DomainError, err error) *DomainError {
	return &DomainError{
		Code:    domainErr.Code,
		Message: domainErr.Message,
		Err:     err,
	}
}

// Is lets errors.Is match a wrapped DomainError against its sentinel.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// Predefined domain errors.
//
// InvalidOrExpiredCode deliberately covers "no such code", "wrong code" and
// "expired code" with one message so responses cannot be used to enumerate
// which of them happened.
var (
	// Input and identity errors
	ErrInvalidInput      = NewDomainError("INVALID_INPUT", "invalid input")
	ErrDuplicateIdentity = NewDomainError("DUPLICATE_IDENTITY", "Email or phone already registered.")
	ErrNotRegistered     = NewDomainError("NOT_REGISTERED", "Email or phone not registered. Please sign up first.")

	// Code issuance and verification errors
	ErrRateLimited          = NewDomainError("RATE_LIMITED", "Too many attempts. Try again later.")
	ErrInvalidOrExpiredCode = NewDomainError("INVALID_OR_EXPIRED_CODE", "Invalid or expired code")
	ErrLockedOut            = NewDomainError("LOCKED_OUT", "Too many wrong attempts. Try again in 15 minutes.")
	ErrWeakPassword         = NewDomainError("WEAK_PASSWORD", "Password must be 8+ characters with uppercase, lowercase and a number")

	// Session errors
	ErrUnauthorized   = NewDomainError("UNAUTHORIZED", "Unauthorized")
	ErrSessionExpired = NewDomainError("SESSION_EXPIRED", "Session expired. Please sign in again.")

	// System errors
	ErrDeliveryFailed = NewDomainError("DELIVERY_FAILED", "Internal server error")
	ErrInternal       = NewDomainError("INTERNAL_ERROR", "Internal server error")
)

// IsDomainError checks if an error is a domain error
func IsDomainError(err error) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr)
}

// GetDomainError extracts the domain error from an error
func GetDomainError(err error) *DomainError {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// ToHTTPStatus maps domain errors to HTTP status codes
// This should only be used in the handler/presentation layer
func ToHTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErrorToHTTPStatus(domainErr)
	}

	// Default to internal server error for unknown errors
	return http.StatusInternalServerError
}

// domainErrorToHTTPStatus maps specific domain errors to HTTP status codes
func domainErrorToHTTPStatus(err *DomainError) int {
	switch err.Code {
	// 400 Bad Request
	case "INVALID_INPUT", "DUPLICATE_IDENTITY", "NOT_REGISTERED",
		"INVALID_OR_EXPIRED_CODE", "LOCKED_OUT", "WEAK_PASSWORD":
		return http.StatusBadRequest

	// 401 Unauthorized
	case "UNAUTHORIZED", "SESSION_EXPIRED":
		return http.StatusUnauthorized

	// 429 Too Many Requests
	case "RATE_LIMITED":
		return http.StatusTooManyRequests

	// 500 Internal Server Error (default)
	default:
		return http.StatusInternalServerError
	}
}

// GetErrorMessage safely extracts the client-facing error message.
// Non-domain errors collapse to a generic message so internal detail
// never reaches a response body.
func GetErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}

	return "Internal server error"
}
