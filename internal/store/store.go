package store

import (
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/99-66/simple-auth-jwt/internal/models"
)

type Store struct {
	db *gorm.DB
}

func New(driver, dsn string) (*Store, error) {
	dialector, err := GetDialector(driver, dsn)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	// Auto migrate
	if err := db.AutoMigrate(
		&models.User{},
		&models.TokenRecord{},
	); err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

// DB returns the underlying GORM database connection (for transactions)
func (s *Store) DB() *gorm.DB {
	return s.db
}

// WithTx returns a Store view bound to the given transaction. All store
// operations called on the returned value run inside that transaction; the
// caller drives Begin/Commit/Rollback.
func (s *Store) WithTx(tx *gorm.DB) *Store {
	return &Store{db: tx}
}

// Health checks the database connection
func (s *Store) Health() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
