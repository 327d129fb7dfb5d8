package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/qborelay/internal/common"
	"github.com/dmitrijs2005/qborelay/internal/dbx"
	"github.com/dmitrijs2005/qborelay/internal/logging"
	"github.com/dmitrijs2005/qborelay/internal/server/auth"
	"github.com/dmitrijs2005/qborelay/internal/server/config"
	"github.com/dmitrijs2005/qborelay/internal/server/models"
	"github.com/dmitrijs2005/qborelay/internal/server/qbo"
	"github.com/dmitrijs2005/qborelay/internal/server/repositories/repomanager"
)

// CompanyInfo is the public view of a Connection. It never carries tokens.
type CompanyInfo struct {
	RealmID              string     `json:"realm_id"`
	CompanyName          *string    `json:"company_name"`
	AccessTokenExpiresAt *time.Time `json:"access_token_expires_at"`
	ConnectedAt          time.Time  `json:"connected_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// ConnectService drives the OAuth consent round trip and lists what a user
// has connected.
type ConnectService struct {
	db            dbx.DBTX
	repomanager   repomanager.RepositoryManager
	codec         SecretCodec
	qbo           qbo.Client
	secretKey     []byte
	stateValidity time.Duration
	defaultUserID string
	log           logging.Logger
	now           func() time.Time
	locks         *keyedMutex
}

func NewConnectService(db dbx.DBTX, m repomanager.RepositoryManager, codec SecretCodec, client qbo.Client, cfg *config.Config, log logging.Logger) *ConnectService {
	if log == nil {
		log = logging.Nop{}
	}
	defaultUserID := cfg.DefaultUserID
	if defaultUserID == "" {
		defaultUserID = common.DefaultUserID
	}
	return &ConnectService{
		db:            db,
		repomanager:   m,
		codec:         codec,
		qbo:           client,
		secretKey:     []byte(cfg.SecretKey),
		stateValidity: cfg.StateTokenValidity,
		defaultUserID: defaultUserID,
		log:           log.With("module", "connect"),
		now:           func() time.Time { return time.Now().UTC() },
		locks:         newKeyedMutex(),
	}
}

// SharingLocksWith makes the connection upsert wait on the same per-company
// lock as tokens, so a re-consent never interleaves with a refresh.
func (s *ConnectService) SharingLocksWith(tokens *TokenService) *ConnectService {
	s.locks = tokens.locks
	return s
}

// DefaultUserID is the identity used by the unauthenticated routes.
func (s *ConnectService) DefaultUserID() string {
	return s.defaultUserID
}

// ConnectURL returns the consent URL. The state parameter is a signed,
// short-lived token naming userID.
func (s *ConnectService) ConnectURL(userID string) (string, error) {
	state, err := auth.GenerateToken(userID, s.secretKey, s.stateValidity)
	if err != nil {
		return "", fmt.Errorf("%w: sign state: %v", common.ErrorInternal, err)
	}
	return s.qbo.AuthCodeURL(state), nil
}

// CompleteAuthorization handles the redirect back from Intuit: it resolves
// the user from state, exchanges the code and stores the sealed token pair.
// An empty state binds the company to the default user.
func (s *ConnectService) CompleteAuthorization(ctx context.Context, code, realmID, state string) (*models.Connection, error) {
	code, realmID = strings.TrimSpace(code), strings.TrimSpace(realmID)
	if code == "" || realmID == "" {
		return nil, fmt.Errorf("%w: code and realmId are required", common.ErrInvalidArgument)
	}

	// state must be the signed token minted by ConnectURL. A bare user id is
	// rejected, otherwise anyone could bind a company to another user.
	userID := s.defaultUserID
	if state != "" {
		var err error
		userID, err = auth.GetUserIDFromToken(state, s.secretKey)
		if err != nil {
			return nil, fmt.Errorf("state: %w", err)
		}
	}

	resp, err := s.qbo.ExchangeCode(ctx, code)
	if err != nil {
		s.log.Warn(ctx, "code exchange failed", "user_id", userID, "realm_id", realmID, "error", err)
		return nil, err
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		return nil, fmt.Errorf("%w: token response is missing tokens", common.ErrRemoteAuth)
	}

	accessEnc, err := s.codec.Encrypt(resp.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: encrypt access token: %v", common.ErrorInternal, err)
	}
	refreshEnc, err := s.codec.Encrypt(resp.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: encrypt refresh token: %v", common.ErrorInternal, err)
	}

	expiresAt := expiryFrom(s.now(), resp.ExpiresIn)
	conn := &models.Connection{
		UserID:               userID,
		RealmID:              realmID,
		AccessTokenEnc:       &accessEnc,
		RefreshTokenEnc:      refreshEnc,
		AccessTokenExpiresAt: &expiresAt,
	}

	unlock, err := s.locks.Lock(ctx, connectionKey(userID, realmID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := s.repomanager.Connections(s.db).Upsert(ctx, conn); err != nil {
		return nil, fmt.Errorf("error saving connection: %w", err)
	}

	s.log.Info(ctx, "company connected", "user_id", userID, "realm_id", realmID)
	return conn, nil
}

// ListCompanies returns the user's companies in connection order.
func (s *ConnectService) ListCompanies(ctx context.Context, userID string) ([]CompanyInfo, error) {
	conns, err := s.repomanager.Connections(s.db).List(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]CompanyInfo, 0, len(conns))
	for _, c := range conns {
		out = append(out, CompanyInfo{
			RealmID:              c.RealmID,
			CompanyName:          c.CompanyName,
			AccessTokenExpiresAt: c.AccessTokenExpiresAt,
			ConnectedAt:          c.CreatedAt,
			UpdatedAt:            c.UpdatedAt,
		})
	}
	return out, nil
}
