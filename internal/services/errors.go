package services

import "errors"

var (
	// ErrInvalidCredentials is returned when the primary email/password
	// authentication fails.
	ErrInvalidCredentials = errors.New("incorrect email or password")

	// ErrTokenNotFound is returned when a logout targets a token record that
	// does not exist. An expected domain outcome, not a fault.
	ErrTokenNotFound = errors.New("user token not found")

	// ErrStorage wraps any persistence-layer failure. The enclosing
	// transaction is always rolled back before this is surfaced.
	ErrStorage = errors.New("storage operation failed")
)
