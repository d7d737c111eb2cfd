package token

import "errors"

var (
	// ErrTokenGeneration indicates token signing failed
	ErrTokenGeneration = errors.New("failed to generate token")

	// ErrCredentialsInvalid indicates a missing, malformed, or forged
	// credential. Several distinct failure reasons collapse into this one
	// error so a caller cannot probe which part of a request was wrong.
	ErrCredentialsInvalid = errors.New("could not validate credentials")

	// ErrTokenExpired indicates a structurally valid token whose expiry
	// failed in a context where expiry is enforced. Kept distinct from
	// ErrCredentialsInvalid so the boundary layer can prompt a refresh
	// instead of a re-login.
	ErrTokenExpired = errors.New("token expired")
)
