// Copyright (c) 2026 RoadRW. All rights reserved.

/*
Package apperr defines the centralized error taxonomy for the console kit.

It provides a rich error type that bridges the gap between raw backend HTTP
failures and the structured results surfaced to gateway handlers and SDK
callers.

Architecture:

  - AppError: A struct containing a machine-readable Code and a client-safe message.
  - Taxonomy: One constructor per authentication failure class (invalid
    credentials, locked account, expired session, rejected refresh token, ...).
  - Mapping: Explicit mapping from backend HTTP status codes to AppError values.

Every error that leaves the session controller or the REST client is wrapped
as an [AppError] so callers can branch on Code instead of raw status codes.
*/
package apperr

import (
	"errors"
	"net/http"
)

// AppError is the canonical error type for the console kit.
//
// It carries the originating HTTP status (zero for network-level failures),
// a machine-readable code, a client-safe message, and an optional slice of
// field-level validation errors.
//
// # Security
//
// The Cause field is for logging only and is never serialized to clients,
// so transport-level details do not leak into rendered error views.
type AppError struct {
	// Code is a machine-readable error identifier (e.g. "INVALID_CREDENTIALS").
	Code string `json:"code"`
	// Message is a human-readable description safe to render to the operator.
	Message string `json:"error"`
	// HTTPStatus is the backend response status, or 0 when no response arrived.
	HTTPStatus int `json:"-"`
	// Cause is the underlying error, used for logging only.
	Cause error `json:"-"`
	// Details holds per-field validation errors for VALIDATION_ERROR responses.
	Details []FieldError `json:"details,omitempty"`
}

// FieldError represents a single field-level validation failure.
type FieldError struct {
	// Field is the JSON field name that failed validation.
	Field string `json:"field"`
	// Message is the human-readable description of the failure.
	Message string `json:"message"`
}

// Error implements the error interface. It returns the client-safe message.
func (e *AppError) Error() string { return e.Message }

// Unwrap allows [errors.Is] and [errors.As] to traverse the cause chain.
func (e *AppError) Unwrap() error { return e.Cause }

// # Authentication Errors

// InvalidCredentials creates the error for a rejected login attempt (401).
func InvalidCredentials() *AppError {
	return &AppError{
		Code:       "INVALID_CREDENTIALS",
		Message:    "Incorrect email or password",
		HTTPStatus: http.StatusUnauthorized,
	}
}

// AccountLocked creates the error for a locked account (423).
func AccountLocked() *AppError {
	return &AppError{
		Code:       "ACCOUNT_LOCKED",
		Message:    "Account is locked. Contact support.",
		HTTPStatus: http.StatusLocked,
	}
}

// RateLimited creates the error for a throttled request (429).
func RateLimited() *AppError {
	return &AppError{
		Code:       "RATE_LIMITED",
		Message:    "Too many attempts. Try again in a few minutes.",
		HTTPStatus: http.StatusTooManyRequests,
	}
}

// SessionExpired creates the error raised when the session can no longer be
// renewed and the operator must authenticate again.
func SessionExpired() *AppError {
	return &AppError{
		Code:       "SESSION_EXPIRED",
		Message:    "Session expired. Sign in again.",
		HTTPStatus: http.StatusUnauthorized,
	}
}

// InvalidRefreshToken creates the error for a refresh token the backend
// explicitly rejected (400/401 on the refresh endpoint).
func InvalidRefreshToken() *AppError {
	return &AppError{
		Code:       "INVALID_REFRESH_TOKEN",
		Message:    "Refresh token is invalid or expired",
		HTTPStatus: http.StatusUnauthorized,
	}
}

// Unauthorized creates a 401 [AppError] for requests with no session.
func Unauthorized(msg string) *AppError {
	return &AppError{
		Code:       "UNAUTHORIZED",
		Message:    msg,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// Forbidden creates a 403 [AppError] for an access decision denial.
func Forbidden(msg string) *AppError {
	return &AppError{
		Code:       "FORBIDDEN",
		Message:    msg,
		HTTPStatus: http.StatusForbidden,
	}
}

// # Request Errors

// NotFound creates a 404 [AppError] for a named resource.
//
// Example:
//
//	apperr.NotFound("Carrier") // Returns "Carrier not found"
func NotFound(resource string) *AppError {
	return &AppError{
		Code:       "NOT_FOUND",
		Message:    resource + " not found",
		HTTPStatus: http.StatusNotFound,
	}
}

// Conflict creates a 409 [AppError] for duplicate-resource rejections.
func Conflict(msg string) *AppError {
	return &AppError{
		Code:       "CONFLICT",
		Message:    msg,
		HTTPStatus: http.StatusConflict,
	}
}

// ValidationError creates a 422 [AppError] with optional per-field details.
func ValidationError(msg string, details ...FieldError) *AppError {
	return &AppError{
		Code:       "VALIDATION_ERROR",
		Message:    msg,
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    details,
	}
}

// ClientError creates a generic 4xx [AppError] for statuses without a
// dedicated taxonomy entry.
func ClientError(status int, msg string) *AppError {
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &AppError{
		Code:       "CLIENT_ERROR",
		Message:    msg,
		HTTPStatus: status,
	}
}

// # Transport Errors

// Network creates the error for a request that received no response at all
// (connection refused, DNS failure, timeout).
func Network(cause error) *AppError {
	return &AppError{
		Code:       "NETWORK_ERROR",
		Message:    "Could not reach the server. Check the connection.",
		HTTPStatus: 0,
		Cause:      cause,
	}
}

// ServerError creates a 5xx [AppError] carrying the backend message.
func ServerError(status int, msg string) *AppError {
	if msg == "" {
		msg = "The server reported an internal error"
	}
	return &AppError{
		Code:       "SERVER_ERROR",
		Message:    msg,
		HTTPStatus: status,
	}
}

// Internal creates a 500 [AppError] wrapping an unexpected local failure.
// The cause is stored for logging but is never rendered.
func Internal(cause error) *AppError {
	return &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "An unexpected error occurred",
		HTTPStatus: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// # Helpers

// IsNetwork reports whether err represents a transport-level failure with no
// backend response. The session controller uses this to distinguish a blip
// from an explicit rejection.
func IsNetwork(err error) bool {
	ae := As(err)
	return ae != nil && ae.Code == "NETWORK_ERROR"
}

// IsAppError reports whether err (or any error in its chain) is an [*AppError].
func IsAppError(err error) bool {
	var ae *AppError
	return errors.As(err, &ae)
}

// As extracts the [*AppError] from err's chain. It returns nil if not found.
func As(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}

// Status returns the HTTP status carried by err, or 0 when err is not an
// [*AppError] or carries none.
func Status(err error) int {
	if ae := As(err); ae != nil {
		return ae.HTTPStatus
	}
	return 0
}

// Wrap annotates an arbitrary error with a code and message while keeping
// the cause chain intact.
func Wrap(code, msg string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: msg,
		Cause:   cause,
	}
}
