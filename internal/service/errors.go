package service

import (
	"errors"
	"fmt"
)

// Service level errors. Handlers translate them to HTTP statuses.
var (
	ErrDuplicateEmail      = errors.New("email is already in use")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrEmailNotVerified    = errors.New("email is not verified")
	ErrInvalidToken        = errors.New("invalid or expired token")
	ErrEmailDeliveryFailed = errors.New("failed to send verification email")
	ErrUserNotFound        = errors.New("user not found")
	ErrInvalidRole         = errors.New("invalid role")
	ErrForbidden           = errors.New("forbidden")
	ErrFederationFailed    = errors.New("federated authentication failed")
	ErrFederationDisabled  = errors.New("federated authentication is not configured")
	ErrInvalidOAuthState   = errors.New("invalid or expired oauth state")
	ErrRateLimitExceeded   = errors.New("rate limit exceeded")
)

// ValidationError reports malformed input for a single field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func newValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
