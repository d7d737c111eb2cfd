package auth

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/99-66/simple-auth-jwt/internal/models"
)

// Provider is the opaque credential predicate the session flows call. The
// core never interprets the stored credential material itself.
type Provider interface {
	Authenticate(user *models.User, password string) bool
}

// LocalProvider verifies passwords against locally stored bcrypt hashes.
type LocalProvider struct{}

// NewLocalProvider creates a new local credential provider
func NewLocalProvider() *LocalProvider {
	return &LocalProvider{}
}

// Authenticate reports whether password matches the user's stored hash.
func (p *LocalProvider) Authenticate(user *models.User, password string) bool {
	if user == nil || user.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(
		[]byte(user.PasswordHash),
		[]byte(password),
	) == nil
}

// HashPassword returns the bcrypt hash for a plaintext password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
