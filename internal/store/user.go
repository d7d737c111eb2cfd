package store

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/99-66/simple-auth-jwt/internal/models"
)

// GetUserByEmailKey finds a user by the blind index of their email address.
func (s *Store) GetUserByEmailKey(emailKey string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("email_key = ?", emailKey).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetUserByID finds a user by primary key.
func (s *Store) GetUserByID(id int64) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// CreateUser creates a new user
func (s *Store) CreateUser(user *models.User) error {
	return s.db.Create(user).Error
}

// UpdateLastLogin records the time and source address of a successful login.
func (s *Store) UpdateLastLogin(userID int64, loginIP string) error {
	now := time.Now()
	return s.db.Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"last_login_at": &now,
			"last_login_ip": loginIP,
		}).Error
}
