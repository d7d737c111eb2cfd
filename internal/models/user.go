package models

import (
	"time"
)

type User struct {
	ID           int64  `gorm:"primaryKey"`
	Email        string `gorm:"not null"`           // encrypted at rest
	EmailKey     string `gorm:"uniqueIndex;not null"` // blind index for email lookups
	PasswordHash string `gorm:"not null"`
	LastLoginAt  *time.Time
	LastLoginIP  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
