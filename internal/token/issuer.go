package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/99-66/simple-auth-jwt/internal/config"
)

// Pair is a freshly minted access/refresh token pair. Both tokens are signed
// with the same key and share the issued-at timestamp; they differ only in
// embedded expiry and in which store, if any, retains them.
type Pair struct {
	AccessToken      string
	RefreshToken     string
	IssuedAt         time.Time
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// Issuer mints signed JWT token pairs. Pure minting: it never touches storage.
type Issuer struct {
	config *config.Config
}

// NewIssuer creates an Issuer backed by the process configuration.
func NewIssuer(cfg *config.Config) *Issuer {
	return &Issuer{config: cfg}
}

// Issue mints an access/refresh pair for the given subject with configured
// lifetimes.
func (i *Issuer) Issue(subject string) (*Pair, error) {
	now := time.Now()
	accessExpiresAt := now.Add(i.config.AccessTokenExpiration)
	refreshExpiresAt := now.Add(i.config.RefreshTokenExpiration)

	accessToken, err := i.sign(subject, now, accessExpiresAt)
	if err != nil {
		return nil, err
	}

	refreshToken, err := i.sign(subject, now, refreshExpiresAt)
	if err != nil {
		return nil, err
	}

	return &Pair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		IssuedAt:         now,
		AccessExpiresAt:  accessExpiresAt,
		RefreshExpiresAt: refreshExpiresAt,
	}, nil
}

func (i *Issuer) sign(subject string, issuedAt, expiresAt time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub": subject,
		"iat": issuedAt.Unix(),
		"exp": expiresAt.Unix(),
		"jti": uuid.New().String(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(i.config.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenGeneration, err)
	}
	return signed, nil
}
