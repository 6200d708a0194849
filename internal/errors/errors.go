package errors

import (
	"errors"
	"net/http"
)

// Stable client-facing failures. Handlers and services return these directly;
// Handler renders them without further mapping.
var (
	// ErrEmailInUse is returned when registering an email that already has an account.
	ErrEmailInUse = NewHTTPError(http.StatusConflict, "Email already in use", "EMAIL_IN_USE")
	// ErrInvalidCredentials covers both unknown email and wrong password.
	ErrInvalidCredentials = NewHTTPError(http.StatusUnauthorized, "Invalid credentials", "INVALID_CREDENTIALS")
	// ErrRefreshTokenRequired is returned when the refresh body carries no token.
	ErrRefreshTokenRequired = NewHTTPError(http.StatusUnauthorized, "Refresh token required", "REFRESH_TOKEN_REQUIRED")
	// ErrInvalidRefreshToken covers malformed, expired and foreign-signed refresh tokens.
	ErrInvalidRefreshToken = NewHTTPError(http.StatusUnauthorized, "Invalid or expired refresh token", "INVALID_REFRESH_TOKEN")
	// ErrNotLoggedIn is returned when a protected route is called without a bearer token.
	ErrNotLoggedIn = NewHTTPError(http.StatusUnauthorized, "You are not logged in! Please log in to get access.", "NOT_AUTHENTICATED")
	// ErrInvalidAccessToken covers malformed, expired and foreign-signed access tokens.
	ErrInvalidAccessToken = NewHTTPError(http.StatusUnauthorized, "Invalid token. Please log in again!", "INVALID_TOKEN")
	// ErrUserGone is returned when a valid token names a user that no longer exists.
	ErrUserGone = NewHTTPError(http.StatusUnauthorized, "The user belonging to this token no longer does exist.", "USER_NOT_FOUND")
	// ErrForbidden is returned when the caller lacks the required role.
	ErrForbidden = NewHTTPError(http.StatusForbidden, "You do not have permission to perform this action", "FORBIDDEN")
	// ErrTooManyRequests is returned once a client exhausts its rate-limit window.
	ErrTooManyRequests = NewHTTPError(http.StatusTooManyRequests, "Too many requests, please try again later.", "RATE_LIMITED")
	// ErrAuthorizationFailed is returned when a provider callback carries no usable result.
	ErrAuthorizationFailed = NewHTTPError(http.StatusUnauthorized, "Authorization failed", "AUTHORIZATION_FAILED")
	// ErrCodeExchangeUnsupported is returned when a callback carries only an authorization code.
	ErrCodeExchangeUnsupported = NewHTTPError(http.StatusInternalServerError, "Real OAuth exchange not supported without valid client secrets", "CODE_EXCHANGE_UNSUPPORTED")
	// ErrCodeExchangeNotImplemented is the GitHub flavour of ErrCodeExchangeUnsupported.
	ErrCodeExchangeNotImplemented = NewHTTPError(http.StatusNotImplemented, "OAuth code exchange not implemented", "CODE_EXCHANGE_NOT_IMPLEMENTED")
	// ErrUnknownProvider is returned for provider names outside the registry.
	ErrUnknownProvider = NewHTTPError(http.StatusNotFound, "Unknown identity provider", "UNKNOWN_PROVIDER")
)

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Detail  string `json:"detail,omitempty"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// Validation builds a 400 for malformed or missing input.
func Validation(message string) *HTTPError {
	return NewHTTPError(http.StatusBadRequest, message, "VALIDATION_ERROR")
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	status := "fail"
	if e.StatusCode >= http.StatusInternalServerError {
		status = "error"
	}
	return ErrorResponse{
		Status:  status,
		Message: e.Message,
		Code:    e.Code,
	}
}

// MapErrorToHTTP maps any error to the HTTPError a client should see.
// Errors that are not *HTTPError become a generic 500.
func MapErrorToHTTP(err error) *HTTPError {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
}

// StatusCode returns the HTTP status err would be rendered with.
func StatusCode(err error) int {
	return MapErrorToHTTP(err).StatusCode
}
