package services

import (
	"context"
	"crypto/hmac"
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/99-66/simple-auth-jwt/internal/auth"
	"github.com/99-66/simple-auth-jwt/internal/config"
	"github.com/99-66/simple-auth-jwt/internal/crypto"
	"github.com/99-66/simple-auth-jwt/internal/models"
	"github.com/99-66/simple-auth-jwt/internal/store"
	"github.com/99-66/simple-auth-jwt/internal/token"
)

// SessionService orchestrates the login, logout, and refresh flows. Every
// multi-step mutation runs in one transaction: a failure after the first
// write rolls back all writes in that request.
type SessionService struct {
	store        *store.Store
	config       *config.Config
	issuer       *token.Issuer
	cipher       *crypto.Cipher
	digest       *crypto.Digest
	authProvider auth.Provider
}

func NewSessionService(
	s *store.Store,
	cfg *config.Config,
	issuer *token.Issuer,
	cipher *crypto.Cipher,
	digest *crypto.Digest,
	provider auth.Provider,
) *SessionService {
	return &SessionService{
		store:        s,
		config:       cfg,
		issuer:       issuer,
		cipher:       cipher,
		digest:       digest,
		authProvider: provider,
	}
}

// Login authenticates the principal and, on success, mints a token pair and
// persists the encrypted refresh token together with the last-login update.
func (s *SessionService) Login(
	ctx context.Context,
	email, password, loginIP string,
) (*token.Pair, error) {
	// Blind-index lookup: the email column is encrypted, so equality search
	// goes through the keyed digest.
	emailKey := s.digest.Sum(email)

	user, err := s.store.GetUserByEmailKey(emailKey)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	if !s.authProvider.Authenticate(user, password) {
		return nil, ErrInvalidCredentials
	}

	pair, err := s.issuer.Issue(strconv.FormatInt(user.ID, 10))
	if err != nil {
		return nil, err
	}

	encryptedRefresh, err := s.cipher.Encrypt(pair.RefreshToken)
	if err != nil {
		return nil, err
	}

	record := &models.TokenRecord{
		UserID:          user.ID,
		AccessToken:     pair.AccessToken,
		RefreshToken:    encryptedRefresh,
		RefreshTokenKey: s.digest.Sum(pair.RefreshToken),
		IssuedAt:        pair.IssuedAt,
		ExpiresAt:       pair.RefreshExpiresAt,
	}

	tx := s.store.DB().WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, tx.Error)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()
	ts := s.store.WithTx(tx)

	if err := ts.InsertTokenRecord(record); err != nil {
		tx.Rollback()
		log.Printf("[Session] Failed to insert token record user=%d: %v", user.ID, err)
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	if err := ts.UpdateLastLogin(user.ID, loginIP); err != nil {
		tx.Rollback()
		log.Printf("[Session] Failed to update last login user=%d: %v", user.ID, err)
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	return pair, nil
}

// Logout deletes the token record tied to the presented access token. A
// missing record is ErrTokenNotFound, a recoverable domain outcome.
func (s *SessionService) Logout(ctx context.Context, user *token.TokenUser) error {
	userID, err := user.UserID()
	if err != nil {
		return err
	}

	tx := s.store.DB().WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("%w: %v", ErrStorage, tx.Error)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()
	ts := s.store.WithTx(tx)

	exists, err := ts.TokenRecordExists(userID, user.AccessToken)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if !exists {
		tx.Rollback()
		return ErrTokenNotFound
	}

	if err := ts.DeleteTokenRecord(userID, user.AccessToken); err != nil {
		tx.Rollback()
		if errors.Is(err, store.ErrTokenNotFound) {
			return ErrTokenNotFound
		}
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}

	return nil
}

// Refresh rotates the presented token pair: it compares the caller's refresh
// token against the stored decrypted value, mints a replacement pair, and
// rewrites the record keyed by the old access token. Mismatch, missing
// record, and lost rotation races all collapse into ErrCredentialsInvalid so
// the response reveals nothing about which check failed.
func (s *SessionService) Refresh(
	ctx context.Context,
	user *token.TokenUser,
) (*token.Pair, error) {
	userID, err := user.UserID()
	if err != nil {
		return nil, err
	}

	tx := s.store.DB().WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, tx.Error)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()
	ts := s.store.WithTx(tx)

	record, err := ts.GetTokenRecord(userID, user.AccessToken)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if record == nil {
		tx.Rollback()
		return nil, token.ErrCredentialsInvalid
	}

	storedRefresh, err := s.cipher.Decrypt(record.RefreshToken)
	if err != nil || !hmac.Equal([]byte(storedRefresh), []byte(user.RefreshToken)) {
		tx.Rollback()
		return nil, token.ErrCredentialsInvalid
	}

	// The record's ExpiresAt carries the refresh token's lifetime; the cleanup
	// job may not have swept an expired row yet.
	if record.IsExpired() {
		tx.Rollback()
		return nil, token.ErrCredentialsInvalid
	}

	// Always rotate: every refresh mints and persists a brand-new refresh
	// token, even when the current one still has plenty of lifetime left.
	pair, err := s.issuer.Issue(user.Subject)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	encryptedRefresh, err := s.cipher.Encrypt(pair.RefreshToken)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	err = ts.RotateTokenRecord(userID, user.AccessToken, store.RotateTokenParams{
		NewAccessToken:  pair.AccessToken,
		RefreshToken:    encryptedRefresh,
		RefreshTokenKey: s.digest.Sum(pair.RefreshToken),
		IssuedAt:        pair.IssuedAt,
		ExpiresAt:       pair.RefreshExpiresAt,
	})
	if err != nil {
		tx.Rollback()
		if errors.Is(err, store.ErrTokenNotFound) {
			// A concurrent rotation already rewrote the row keyed by this
			// access token; the presented pair is stale.
			return nil, token.ErrCredentialsInvalid
		}
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	return pair, nil
}
