package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/dmitrijs2005/qborelay/internal/logging"
)

const (
	DefaultJWKSCacheTTL   = time.Hour
	DefaultJWKSMinRefresh = 30 * time.Second
	DefaultJWKSTimeout    = 10 * time.Second
)

func jwksURL(cfg VerifierConfig) string {
	if cfg.JWKSURL != "" {
		return cfg.JWKSURL
	}
	return issuerURL(cfg.IssuerDomain) + ".well-known/jwks.json"
}

func issuerURL(domain string) string {
	return "https://" + domain + "/"
}

// jwksOptions maps cfg onto keyfunc. The set is reloaded every CacheTTL and
// on an unknown kid, never more often than MinRefresh. A failed reload keeps
// the keys already held, and an IdP that is down at startup only leaves the
// set empty until a later reload succeeds.
func jwksOptions(ctx context.Context, cfg VerifierConfig, log logging.Logger) keyfunc.Options {
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = DefaultJWKSCacheTTL
	}
	minRefresh := cfg.MinRefresh
	if minRefresh <= 0 {
		minRefresh = DefaultJWKSMinRefresh
	}

	return keyfunc.Options{
		Ctx:    ctx,
		Client: cfg.HTTPClient,
		RefreshErrorHandler: func(err error) {
			log.Warn(ctx, "JWKS reload failed, keeping cached keys", "error", err)
		},
		RefreshInterval:             ttl,
		RefreshRateLimit:            minRefresh,
		RefreshTimeout:              DefaultJWKSTimeout,
		RefreshUnknownKID:           true,
		TolerateInitialJWKHTTPError: true,
	}
}

func loadJWKS(cfg VerifierConfig, log logging.Logger) (*keyfunc.JWKS, error) {
	jwks, err := keyfunc.Get(jwksURL(cfg), jwksOptions(context.Background(), cfg, log))
	if err != nil {
		return nil, fmt.Errorf("jwks init: %w", err)
	}
	return jwks, nil
}
