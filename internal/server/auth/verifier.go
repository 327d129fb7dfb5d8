package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/dmitrijs2005/qborelay/internal/common"
	"github.com/dmitrijs2005/qborelay/internal/logging"
	"github.com/golang-jwt/jwt/v5"
)

// Verifier turns the caller's authorization value into a user id.
type Verifier interface {
	Verify(ctx context.Context, authorization string) (string, error)
}

// SingleUser resolves every caller to one fixed identity. Used when no
// identity provider is configured.
type SingleUser struct {
	UserID string
}

func (s SingleUser) Verify(context.Context, string) (string, error) {
	return s.UserID, nil
}

type VerifierConfig struct {
	IssuerDomain string
	Audience     string
	Algorithms   []string
	CacheTTL     time.Duration
	MinRefresh   time.Duration
	HTTPClient   *http.Client
	Logger       logging.Logger

	// JWKSURL overrides https://{IssuerDomain}/.well-known/jwks.json.
	JWKSURL string
}

// NewVerifier returns a BearerVerifier, or SingleUser{defaultUserID} when
// IssuerDomain is empty.
func NewVerifier(cfg VerifierConfig, defaultUserID string) (Verifier, error) {
	if cfg.IssuerDomain == "" {
		return SingleUser{UserID: defaultUserID}, nil
	}
	return NewBearerVerifier(cfg)
}

// BearerVerifier validates RSA-signed OIDC access tokens against the
// issuer's JWKS.
type BearerVerifier struct {
	issuer     string
	audience   string
	algorithms []string
	jwks       *keyfunc.JWKS
}

func NewBearerVerifier(cfg VerifierConfig) (*BearerVerifier, error) {
	log := cfg.Logger
	if log == nil {
		log = logging.Nop{}
	}

	algs := cfg.Algorithms
	if len(algs) == 0 {
		algs = []string{jwt.SigningMethodRS256.Alg()}
	}

	jwks, err := loadJWKS(cfg, log)
	if err != nil {
		return nil, err
	}

	return &BearerVerifier{
		issuer:     issuerURL(cfg.IssuerDomain),
		audience:   cfg.Audience,
		algorithms: algs,
		jwks:       jwks,
	}, nil
}

// Close stops the background JWKS reloads.
func (v *BearerVerifier) Close() error {
	v.jwks.EndBackground()
	return nil
}

// Verify accepts "Bearer <jwt>" and returns the email claim, or sub when
// the token has no email.
func (v *BearerVerifier) Verify(ctx context.Context, authorization string) (string, error) {
	raw, ok := bearerToken(authorization)
	if !ok {
		return "", fmt.Errorf("%w: missing bearer token", common.ErrorUnauthorized)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods(v.algorithms),
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, v.jwks.Keyfunc, opts...)
	if err != nil {
		// An empty set means the IdP has never answered.
		if errors.Is(err, keyfunc.ErrKIDNotFound) && v.jwks.Len() == 0 {
			return "", fmt.Errorf("%w: signing keys unavailable", common.ErrRemoteTransport)
		}
		return "", fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if email, _ := claims["email"].(string); strings.TrimSpace(email) != "" {
		return strings.TrimSpace(email), nil
	}
	if sub, _ := claims.GetSubject(); strings.TrimSpace(sub) != "" {
		return strings.TrimSpace(sub), nil
	}

	return "", fmt.Errorf("%w: token has neither email nor sub", common.ErrInvalidToken)
}

func bearerToken(authorization string) (string, bool) {
	const prefix = "bearer "
	if len(authorization) <= len(prefix) || !strings.EqualFold(authorization[:len(prefix)], prefix) {
		return "", false
	}
	tok := strings.TrimSpace(authorization[len(prefix):])
	return tok, tok != ""
}
