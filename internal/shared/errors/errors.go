package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Common error categories.
//
// ErrGuardSkip is deliberately not an error condition for callers: it marks
// a reconciliation no-op (duplicate webhook, superseded resource, final
// status). Handlers translate it to 204 and log at debug level.
var (
	ErrNotFound    = errors.New("resource not found")
	ErrValidation  = errors.New("validation failure")
	ErrProviderAPI = errors.New("provider api failure")
	ErrMandate     = errors.New("no valid mandate")
	ErrGuardSkip   = errors.New("reconciliation skipped")
	ErrConflict    = errors.New("resource conflict")
	ErrInternal    = errors.New("internal error")
)

// AppError represents an application error with HTTP status and error code.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Err        error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// ErrorResponse represents the JSON error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error details.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NotFound creates a not found error.
func NotFound(resource string) *AppError {
	return &AppError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: http.StatusNotFound,
		Err:        ErrNotFound,
	}
}

// Validation creates a validation error. Never retried, surfaced
// immediately to the caller.
func Validation(message string) *AppError {
	return &AppError{
		Code:       "VALIDATION_ERROR",
		Message:    message,
		StatusCode: http.StatusUnprocessableEntity,
		Err:        ErrValidation,
	}
}

// ProviderAPI wraps a remote API failure. Always propagates to the caller;
// the caller decides response codes and user messaging.
func ProviderAPI(message string, err error) *AppError {
	return &AppError{
		Code:       "PROVIDER_API_ERROR",
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Err:        fmt.Errorf("%w: %w", ErrProviderAPI, err),
	}
}

// Mandate creates a mandate resolution failure. Terminal for a renewal
// attempt; no charge is attempted.
func Mandate(message string) *AppError {
	return &AppError{
		Code:       "MANDATE_ERROR",
		Message:    message,
		StatusCode: http.StatusUnprocessableEntity,
		Err:        ErrMandate,
	}
}

// GuardSkip creates a no-op marker for duplicate or superseded
// notifications.
func GuardSkip(message string) *AppError {
	return &AppError{
		Code:       "GUARD_SKIP",
		Message:    message,
		StatusCode: http.StatusNoContent,
		Err:        ErrGuardSkip,
	}
}

// Conflict creates a conflict error.
func Conflict(message string) *AppError {
	return &AppError{
		Code:       "CONFLICT",
		Message:    message,
		StatusCode: http.StatusConflict,
		Err:        ErrConflict,
	}
}

// Internal creates an internal error.
func Internal(message string, err error) *AppError {
	return &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToResponse converts an AppError to ErrorResponse.
func (e *AppError) ToResponse() ErrorResponse {
	return ErrorResponse{
		Error: ErrorDetail{
			Code:    e.Code,
			Message: e.Message,
		},
	}
}

// GetStatusCode returns the appropriate HTTP status code for an error.
func GetStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrGuardSkip):
		return http.StatusNoContent
	case errors.Is(err, ErrProviderAPI):
		return http.StatusBadGateway
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
