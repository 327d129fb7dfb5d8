// Package qbo talks to Intuit: the OAuth 2.0 token endpoint and the
// QuickBooks Online query API.
package qbo

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/dmitrijs2005/qborelay/internal/logging"
	"golang.org/x/oauth2"
)

const (
	AuthURL  = "https://appcenter.intuit.com/connect/oauth2"
	TokenURL = "https://oauth.platform.intuit.com/oauth2/v1/tokens/bearer"

	ProductionAPIBase = "https://quickbooks.api.intuit.com"
	SandboxAPIBase    = "https://sandbox-quickbooks.api.intuit.com"

	AccountingScope = "com.intuit.quickbooks.accounting"
	MinorVersion    = "75"

	DefaultTokenCallTimeout = 30 * time.Second
	DefaultQueryCallTimeout = 45 * time.Second
)

// TokenResponse is what the token endpoint returned. Empty strings and a
// zero ExpiresIn mean the field was omitted.
type TokenResponse struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// Client is the remote surface used by services.
type Client interface {
	AuthCodeURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*TokenResponse, error)
	RefreshAccessToken(ctx context.Context, refreshToken string) (*TokenResponse, error)
	Query(ctx context.Context, realmID, accessToken, sql string) (json.RawMessage, error)
}

// Config holds the app credentials. AuthURL, TokenURL, APIBaseURL and
// HTTPClient are optional overrides.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Environment  string // "production" or "sandbox"

	TokenCallTimeout time.Duration
	QueryCallTimeout time.Duration

	AuthURL    string
	TokenURL   string
	APIBaseURL string
	HTTPClient *http.Client
}

// APIBase returns the query API root for an environment name.
func APIBase(environment string) string {
	if environment == "sandbox" {
		return SandboxAPIBase
	}
	return ProductionAPIBase
}

// IntuitClient implements Client on top of golang.org/x/oauth2.
type IntuitClient struct {
	oauth        *oauth2.Config
	apiBase      string
	httpClient   *http.Client
	tokenTimeout time.Duration
	queryTimeout time.Duration
	log          logging.Logger
}

func NewIntuitClient(cfg Config, log logging.Logger) *IntuitClient {
	authURL, tokenURL := AuthURL, TokenURL
	if cfg.AuthURL != "" {
		authURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		tokenURL = cfg.TokenURL
	}

	apiBase := APIBase(cfg.Environment)
	if cfg.APIBaseURL != "" {
		apiBase = cfg.APIBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	tokenTimeout := cfg.TokenCallTimeout
	if tokenTimeout <= 0 {
		tokenTimeout = DefaultTokenCallTimeout
	}
	queryTimeout := cfg.QueryCallTimeout
	if queryTimeout <= 0 {
		queryTimeout = DefaultQueryCallTimeout
	}

	if log == nil {
		log = logging.Nop{}
	}

	return &IntuitClient{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       []string{AccountingScope},
			Endpoint: oauth2.Endpoint{
				AuthURL:   authURL,
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		apiBase:      apiBase,
		httpClient:   httpClient,
		tokenTimeout: tokenTimeout,
		queryTimeout: queryTimeout,
		log:          log.With("module", "qbo"),
	}
}

func (c *IntuitClient) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

// withHTTPClient makes oauth2 use our transport instead of http.DefaultClient.
func (c *IntuitClient) withHTTPClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}
