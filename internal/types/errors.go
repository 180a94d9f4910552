package types

import (
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode is a typed string for categorizing application errors.
type ErrorCode string

// Error code constants. Handlers and adapters use these constants instead of
// hardcoded strings.
const (
	// Validation (400)
	ErrCodeValidationMissingField ErrorCode = "validation_missing_required_field"
	ErrCodeValidationInvalidUnits ErrorCode = "validation_invalid_units"
	ErrCodeValidationUnknownField ErrorCode = "validation_unknown_sensor_field"

	// Platform setup (500 if ever surfaced over HTTP; normally fatal at boot)
	ErrCodeSetupMissingLocation   ErrorCode = "setup_missing_location"
	ErrCodeSetupMissingCredential ErrorCode = "setup_missing_credential"
	ErrCodeSetupInitialFetch      ErrorCode = "setup_initial_fetch_failed"

	// Auth (401)
	ErrCodeAuthPasswordMissing ErrorCode = "auth_password_missing"
	ErrCodeAuthPasswordInvalid ErrorCode = "auth_password_invalid"

	// Not Found (404)
	ErrCodeNotFoundEntity ErrorCode = "not_found_entity"

	// Conflict (409)
	ErrCodeConflictNotADoor ErrorCode = "conflict_entity_not_a_door"

	// Internal/Upstream (500/502)
	ErrCodeInternalRecorder   ErrorCode = "internal_recorder_error"
	ErrCodeInternalUnexpected ErrorCode = "internal_unexpected_error"
	ErrCodeUpstreamForecast   ErrorCode = "upstream_forecast_unavailable"
	ErrCodeUpstreamRateLimit  ErrorCode = "upstream_rate_limited"
	ErrCodeUpstreamDevice     ErrorCode = "upstream_device_unavailable"
)

// HTTPStatus maps an ErrorCode to its corresponding HTTP status code.
// Returns 500 for unrecognized error codes as a safe default.
func (c ErrorCode) HTTPStatus() int {
	s := string(c)
	switch {
	case strings.HasPrefix(s, "validation_"):
		return http.StatusBadRequest
	case strings.HasPrefix(s, "auth_"):
		return http.StatusUnauthorized
	case strings.HasPrefix(s, "not_found_"):
		return http.StatusNotFound
	case strings.HasPrefix(s, "conflict_"):
		return http.StatusConflict
	case strings.HasPrefix(s, "upstream_"):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// AppError is the standard application error type used throughout the hub.
// Domain and handler errors are expressed as AppError to enable consistent
// error formatting, HTTP status mapping, and error chain support.
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the HTTP status code corresponding to this error's code.
func (e *AppError) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// NewAppError creates a new AppError with the given code, message, and optional
// underlying error.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}
