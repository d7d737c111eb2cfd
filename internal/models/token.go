package models

import (
	"time"
)

// TokenRecord is the stored row pairing a user's access token with its
// encrypted refresh token. At most one live record exists per
// (user_id, access_token) pair; rotation rewrites the row in place.
type TokenRecord struct {
	ID int64 `gorm:"primaryKey"`
	// The access token doubles as the natural lookup key. Storing it in
	// plaintext is acceptable: it is short-lived and already bearer-equivalent.
	UserID      int64  `gorm:"not null;uniqueIndex:idx_user_access_token"`
	AccessToken string `gorm:"not null;uniqueIndex:idx_user_access_token"`
	// RefreshToken holds the AES-GCM ciphertext; RefreshTokenKey is its
	// deterministic blind index for equality search without decryption.
	RefreshToken    string `gorm:"not null"`
	RefreshTokenKey string `gorm:"not null;index"`
	IssuedAt        time.Time
	ExpiresAt       time.Time
}

func (t *TokenRecord) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}
