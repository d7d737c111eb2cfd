package store

import "errors"

var (
	// ErrTokenNotFound is returned when a delete or rotation targets a
	// (user_id, access_token) row that no longer exists.
	ErrTokenNotFound = errors.New("token record not found")

	// ErrUserNotFound is returned when no user matches a blind-indexed lookup.
	ErrUserNotFound = errors.New("user not found")
)
