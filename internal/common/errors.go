// Package common defines shared constants and sentinel errors used across
// the ValutX server layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal      = errors.New("internal error")
	ErrorUnauthorized  = errors.New("invalid credentials")
	ErrVersionConflict = errors.New("version conflict")
	ErrDuplicateEmail  = errors.New("duplicate email")

	// Validation errors (missing or malformed client-supplied fields).
	ErrorValidation = errors.New("validation error")

	// Auth errors (invalid, expired or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Login throttling.
	ErrTooManyAttempts = errors.New("too many failed login attempts")

	// Export is not configured on this deployment.
	ErrExportUnavailable = errors.New("export unavailable")
)
