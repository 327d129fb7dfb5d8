// Package services contains server-side business logic: keeping access
// tokens valid, relaying queries to one or all companies, the OAuth connect
// flow and result exports.
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/qborelay/internal/common"
	"github.com/dmitrijs2005/qborelay/internal/dbx"
	"github.com/dmitrijs2005/qborelay/internal/logging"
	"github.com/dmitrijs2005/qborelay/internal/server/models"
	"github.com/dmitrijs2005/qborelay/internal/server/qbo"
	"github.com/dmitrijs2005/qborelay/internal/server/repositories/repomanager"
)

const (
	// RefreshMargin is how close to expiry an access token is still used.
	RefreshMargin = 30 * time.Second

	// DefaultExpiresIn applies when the token endpoint omits expires_in.
	DefaultExpiresIn = 3600
)

// SecretCodec seals tokens before they are stored. *cryptox.Codec implements it.
type SecretCodec interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// TokenService hands out access tokens that are valid for at least
// RefreshMargin, refreshing and persisting the rotated pair when needed.
type TokenService struct {
	db          dbx.DBTX
	repomanager repomanager.RepositoryManager
	codec       SecretCodec
	qbo         qbo.Client
	log         logging.Logger
	now         func() time.Time
	locks       *keyedMutex
}

func NewTokenService(db dbx.DBTX, m repomanager.RepositoryManager, codec SecretCodec, client qbo.Client, log logging.Logger) *TokenService {
	if log == nil {
		log = logging.Nop{}
	}
	return &TokenService{
		db:          db,
		repomanager: m,
		codec:       codec,
		qbo:         client,
		log:         log.With("module", "tokens"),
		now:         func() time.Time { return time.Now().UTC() },
		locks:       newKeyedMutex(),
	}
}

// WithClock replaces the time source. Intended for tests.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

// GetValidAccessToken returns a plaintext access token for (userID, realmID).
//
// Errors: common.ErrorNotFound when the company is not connected,
// common.ErrDecryption when stored ciphertext is unreadable, and whatever
// the refresh call returned (common.ErrRemoteAuth / ErrRemoteTransport).
// Nothing is written when the refresh fails.
//
// Calls for the same key are serialized, so a stale token is refreshed at
// most once per process even under concurrent callers.
func (s *TokenService) GetValidAccessToken(ctx context.Context, userID, realmID string) (string, error) {
	unlock, err := s.locks.Lock(ctx, connectionKey(userID, realmID))
	if err != nil {
		return "", err
	}
	defer unlock()

	repo := s.repomanager.Connections(s.db)

	conn, err := repo.Get(ctx, userID, realmID)
	if err != nil {
		return "", err
	}

	refreshToken, err := s.codec.Decrypt(conn.RefreshTokenEnc)
	if err != nil {
		return "", fmt.Errorf("refresh token: %w", err)
	}

	var accessToken string
	if conn.AccessTokenEnc != nil {
		accessToken, err = s.codec.Decrypt(*conn.AccessTokenEnc)
		if err != nil {
			return "", fmt.Errorf("access token: %w", err)
		}
	}

	if isFresh(accessToken, conn.AccessTokenExpiresAt, s.now()) {
		return accessToken, nil
	}

	return s.refresh(ctx, conn, refreshToken)
}

func isFresh(accessToken string, expiresAt *time.Time, now time.Time) bool {
	return accessToken != "" && expiresAt != nil && expiresAt.After(now.Add(RefreshMargin))
}

func (s *TokenService) refresh(ctx context.Context, conn *models.Connection, refreshToken string) (string, error) {
	resp, err := s.qbo.RefreshAccessToken(ctx, refreshToken)
	if err != nil {
		s.log.Warn(ctx, "token refresh failed", "user_id", conn.UserID, "realm_id", conn.RealmID, "error", err)
		return "", err
	}
	if resp.AccessToken == "" {
		return "", fmt.Errorf("%w: refresh response has no access token", common.ErrRemoteAuth)
	}

	newRefresh := resp.RefreshToken
	if newRefresh == "" {
		newRefresh = refreshToken
	}

	expiresAt := expiryFrom(s.now(), resp.ExpiresIn)

	accessEnc, err := s.codec.Encrypt(resp.AccessToken)
	if err != nil {
		return "", fmt.Errorf("%w: encrypt access token: %v", common.ErrorInternal, err)
	}
	refreshEnc, err := s.codec.Encrypt(newRefresh)
	if err != nil {
		return "", fmt.Errorf("%w: encrypt refresh token: %v", common.ErrorInternal, err)
	}

	err = s.repomanager.Connections(s.db).Upsert(ctx, &models.Connection{
		UserID:               conn.UserID,
		RealmID:              conn.RealmID,
		CompanyName:          conn.CompanyName,
		AccessTokenEnc:       &accessEnc,
		RefreshTokenEnc:      refreshEnc,
		AccessTokenExpiresAt: &expiresAt,
	})
	if err != nil {
		return "", fmt.Errorf("error saving refreshed token: %w", err)
	}

	s.log.Info(ctx, "access token refreshed", "user_id", conn.UserID, "realm_id", conn.RealmID, "expires_at", expiresAt)
	return resp.AccessToken, nil
}

// expiryFrom turns a relative expires_in into an absolute UTC time.
func expiryFrom(now time.Time, expiresIn int64) time.Time {
	if expiresIn <= 0 {
		expiresIn = DefaultExpiresIn
	}
	return now.Add(time.Duration(expiresIn) * time.Second).UTC()
}
