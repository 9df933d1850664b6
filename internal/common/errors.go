// Package common defines sentinel errors and shared types used across the
// feedstream server layers. Callers should use errors.Is / errors.As to match
// these values.
package common

import (
	"errors"
	"strings"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("not authenticated")
	ErrorForbidden    = errors.New("forbidden")

	// Raised on unique-constraint violations (duplicate email).
	ErrorConflict = errors.New("already exists")

	// Token lifecycle errors. All of them collapse to an unauthenticated
	// identity at the auth gate.
	ErrTokenMalformed = errors.New("malformed token")
	ErrTokenExpired   = errors.New("token expired")
	ErrInvalidToken   = errors.New("invalid token")
)

// ValidationError carries the per-field messages of a failed request
// validation. It maps to HTTP 422 with the details exposed to the client.
type ValidationError struct {
	Details []string
}

func (e *ValidationError) Error() string {
	if len(e.Details) == 0 {
		return "validation error"
	}
	return "validation error: " + strings.Join(e.Details, "; ")
}

// NewValidationError builds a ValidationError from the collected messages.
func NewValidationError(details ...string) *ValidationError {
	return &ValidationError{Details: details}
}
