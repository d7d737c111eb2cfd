package store

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/99-66/simple-auth-jwt/internal/models"
)

// RotateTokenParams carries the replacement values for a token rotation.
// The refresh-token ciphertext and blind index are precomputed by the caller.
type RotateTokenParams struct {
	NewAccessToken  string
	RefreshToken    string
	RefreshTokenKey string
	IssuedAt        time.Time
	ExpiresAt       time.Time
}

// TokenRecordExists reports whether a record exists for the natural key.
func (s *Store) TokenRecordExists(userID int64, accessToken string) (bool, error) {
	var count int64
	err := s.db.Model(&models.TokenRecord{}).
		Where("user_id = ? AND access_token = ?", userID, accessToken).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetTokenRecord fetches the record for (userID, accessToken). A missing row
// is a normal empty result, not an error.
func (s *Store) GetTokenRecord(userID int64, accessToken string) (*models.TokenRecord, error) {
	var record models.TokenRecord
	err := s.db.Where("user_id = ? AND access_token = ?", userID, accessToken).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// InsertTokenRecord persists a freshly issued refresh token row.
func (s *Store) InsertTokenRecord(record *models.TokenRecord) error {
	return s.db.Create(record).Error
}

// RotateTokenRecord atomically rewrites the row keyed by the old access token
// to reference the new token pair. Keying the UPDATE by the old access token
// means at most one concurrent rotation can succeed against a given row; a
// racing second attempt affects zero rows and gets ErrTokenNotFound.
func (s *Store) RotateTokenRecord(
	userID int64,
	oldAccessToken string,
	params RotateTokenParams,
) error {
	result := s.db.Model(&models.TokenRecord{}).
		Where("user_id = ? AND access_token = ?", userID, oldAccessToken).
		Updates(map[string]any{
			"access_token":      params.NewAccessToken,
			"refresh_token":     params.RefreshToken,
			"refresh_token_key": params.RefreshTokenKey,
			"issued_at":         params.IssuedAt,
			"expires_at":        params.ExpiresAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTokenNotFound
	}
	return nil
}

// DeleteTokenRecord removes the row for (userID, accessToken) on logout.
func (s *Store) DeleteTokenRecord(userID int64, accessToken string) error {
	result := s.db.Where("user_id = ? AND access_token = ?", userID, accessToken).
		Delete(&models.TokenRecord{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTokenNotFound
	}
	return nil
}

// DeleteExpiredTokenRecords removes rows whose refresh tokens have expired.
func (s *Store) DeleteExpiredTokenRecords() (int64, error) {
	result := s.db.Where("expires_at < ?", time.Now()).Delete(&models.TokenRecord{})
	return result.RowsAffected, result.Error
}
