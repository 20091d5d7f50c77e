package repository

import "errors"

var (
	ErrNotFound = errors.New("record not found")

	ErrDuplicateEmail = errors.New("user with this email already exists")

	// ErrDuplicateIdentity means another account is already linked to the same
	// provider subject.
	ErrDuplicateIdentity = errors.New("provider identity is already linked to another user")
)
