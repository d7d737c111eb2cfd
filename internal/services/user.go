package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/99-66/simple-auth-jwt/internal/auth"
	"github.com/99-66/simple-auth-jwt/internal/config"
	"github.com/99-66/simple-auth-jwt/internal/crypto"
	"github.com/99-66/simple-auth-jwt/internal/models"
	"github.com/99-66/simple-auth-jwt/internal/store"
)

// ErrUserNotFound is returned when a profile lookup misses.
var ErrUserNotFound = errors.New("user not found")

// Profile is the decrypted, displayable view of a user row.
type Profile struct {
	ID          int64      `json:"id"`
	Email       string     `json:"email"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// UserService covers the small user surface the session flows need:
// registration and profile lookup. Role and permission administration is out
// of scope.
type UserService struct {
	store  *store.Store
	config *config.Config
	cipher *crypto.Cipher
	digest *crypto.Digest
}

func NewUserService(
	s *store.Store,
	cfg *config.Config,
	cipher *crypto.Cipher,
	digest *crypto.Digest,
) *UserService {
	return &UserService{
		store:  s,
		config: cfg,
		cipher: cipher,
		digest: digest,
	}
}

// Register creates a user with an encrypted email, its blind index, and a
// bcrypt password hash.
func (s *UserService) Register(
	ctx context.Context,
	email, password string,
) (*models.User, error) {
	encryptedEmail, err := s.cipher.Encrypt(email)
	if err != nil {
		return nil, err
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        encryptedEmail,
		EmailKey:     s.digest.Sum(email),
		PasswordHash: passwordHash,
	}

	if err := s.store.WithTx(s.store.DB().WithContext(ctx)).CreateUser(user); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return user, nil
}

// GetProfile returns the decrypted profile for a user id.
func (s *UserService) GetProfile(ctx context.Context, userID int64) (*Profile, error) {
	user, err := s.store.WithTx(s.store.DB().WithContext(ctx)).GetUserByID(userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	email, err := s.cipher.Decrypt(user.Email)
	if err != nil {
		return nil, err
	}

	return &Profile{
		ID:          user.ID,
		Email:       email,
		LastLoginAt: user.LastLoginAt,
	}, nil
}
