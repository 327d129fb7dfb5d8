package qbo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/dmitrijs2005/qborelay/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newTestClient(t *testing.T, h http.Handler) (*IntuitClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c := NewIntuitClient(Config{
		ClientID:         "cid",
		ClientSecret:     "csecret",
		RedirectURI:      "https://relay.example/intuit/callback",
		TokenURL:         srv.URL + "/token",
		APIBaseURL:       srv.URL,
		HTTPClient:       srv.Client(),
		TokenCallTimeout: time.Second,
		QueryCallTimeout: time.Second,
	}, nil)
	return c, srv
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestAPIBase(t *testing.T) {
	assert.Equal(t, SandboxAPIBase, APIBase("sandbox"))
	assert.Equal(t, ProductionAPIBase, APIBase("production"))
	assert.Equal(t, ProductionAPIBase, APIBase(""))
}

func TestAuthCodeURL(t *testing.T) {
	c := NewIntuitClient(Config{ClientID: "cid", RedirectURI: "https://relay.example/cb"}, nil)

	raw := c.AuthCodeURL("state-123")
	u, err := url.Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, "appcenter.intuit.com", u.Host)
	q := u.Query()
	assert.Equal(t, "cid", q.Get("client_id"))
	assert.Equal(t, "https://relay.example/cb", q.Get("redirect_uri"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, AccountingScope, q.Get("scope"))
	assert.Equal(t, "state-123", q.Get("state"))
}

func TestExchangeCode_Success(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/token", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "cid", user)
		assert.Equal(t, "csecret", pass)

		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "the-code", r.PostForm.Get("code"))
		assert.Equal(t, "https://relay.example/intuit/callback", r.PostForm.Get("redirect_uri"))

		writeJSON(w, http.StatusOK, map[string]any{
			"access_token":  "at-1",
			"refresh_token": "rt-1",
			"token_type":    "bearer",
			"expires_in":    3600,
		})
	}))

	tok, err := c.ExchangeCode(context.Background(), "the-code")
	require.NoError(t, err)
	assert.Equal(t, &TokenResponse{AccessToken: "at-1", RefreshToken: "rt-1", ExpiresIn: 3600}, tok)
}

func TestRefreshAccessToken_Success(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "rt-old", r.PostForm.Get("refresh_token"))

		writeJSON(w, http.StatusOK, map[string]any{
			"access_token":  "at-new",
			"refresh_token": "rt-new",
			"token_type":    "bearer",
			"expires_in":    1800,
		})
	}))

	tok, err := c.RefreshAccessToken(context.Background(), "rt-old")
	require.NoError(t, err)
	assert.Equal(t, "at-new", tok.AccessToken)
	assert.Equal(t, "rt-new", tok.RefreshToken)
	assert.Equal(t, int64(1800), tok.ExpiresIn)
}

func TestRefreshAccessToken_OmittedFields(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"access_token": "at-new", "token_type": "bearer"})
	}))

	tok, err := c.RefreshAccessToken(context.Background(), "rt-old")
	require.NoError(t, err)
	assert.Equal(t, "at-new", tok.AccessToken)
	assert.Zero(t, tok.ExpiresIn)
}

func TestRefreshAccessToken_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"invalid grant", http.StatusBadRequest, common.ErrRemoteAuth},
		{"unauthorized", http.StatusUnauthorized, common.ErrRemoteAuth},
		{"forbidden", http.StatusForbidden, common.ErrRemoteAuth},
		{"server error", http.StatusInternalServerError, common.ErrRemoteTransport},
		{"unavailable", http.StatusServiceUnavailable, common.ErrRemoteTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls++
				writeJSON(w, tt.status, map[string]any{"error": "invalid_grant"})
			}))

			_, err := c.RefreshAccessToken(context.Background(), "rt")
			require.ErrorIs(t, err, tt.want)
			assert.Equal(t, 1, calls, "no retry")
		})
	}
}

func TestRefreshAccessToken_Unreachable(t *testing.T) {
	c, srv := newTestClient(t, http.NotFoundHandler())
	srv.Close()

	_, err := c.RefreshAccessToken(context.Background(), "rt")
	require.ErrorIs(t, err, common.ErrRemoteTransport)
}

func TestQuery_Success(t *testing.T) {
	payload := `{"QueryResponse":{"Customer":[{"Id":"1"}]},"time":"2026-01-01T00:00:00Z"}`

	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v3/company/9130/query", r.URL.Path)
		assert.Equal(t, "select * from Customer", r.URL.Query().Get("query"))
		assert.Equal(t, MinorVersion, r.URL.Query().Get("minorversion"))
		assert.Equal(t, "Bearer at-1", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(payload))
	}))

	got, err := c.Query(context.Background(), "9130", "at-1", "select * from Customer")
	require.NoError(t, err)
	assert.JSONEq(t, payload, string(got))
}

func TestQuery_StatusErrors(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, common.ErrRemoteAuth},
		{http.StatusForbidden, common.ErrRemoteAuth},
		{http.StatusBadRequest, common.ErrRemoteAuth},
		{http.StatusNotFound, common.ErrRemoteTransport},
		{http.StatusTooManyRequests, common.ErrRemoteTransport},
		{http.StatusBadGateway, common.ErrRemoteTransport},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"Fault":{"type":"AUTHENTICATION"}}`))
			}))

			_, err := c.Query(context.Background(), "1", "at", "select * from Invoice")
			require.ErrorIs(t, err, tt.want)

			var se *StatusError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.status, se.StatusCode)
			assert.Contains(t, err.Error(), "AUTHENTICATION")
		})
	}
}

func TestQuery_NotJSON(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>maintenance</html>"))
	}))

	_, err := c.Query(context.Background(), "1", "at", "select * from Invoice")
	require.ErrorIs(t, err, common.ErrRemoteTransport)
}

func TestQuery_Timeout(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	c.queryTimeout = 50 * time.Millisecond

	_, err := c.Query(context.Background(), "1", "at", "select * from Invoice")
	require.ErrorIs(t, err, common.ErrRemoteTransport)
}

func TestTrimBody(t *testing.T) {
	long := make([]byte, maxErrorBody+100)
	for i := range long {
		long[i] = 'x'
	}
	got := trimBody(long)
	assert.Len(t, got, maxErrorBody+3)
	assert.Equal(t, "short", trimBody([]byte("  short \n")))
}

func TestExpiresIn_FromRaw(t *testing.T) {
	tok := (&oauth2.Token{AccessToken: "a"}).WithExtra(map[string]any{"expires_in": "120"})
	assert.Equal(t, int64(120), expiresIn(tok))

	tok = (&oauth2.Token{AccessToken: "a"}).WithExtra(map[string]any{"expires_in": float64(60)})
	assert.Equal(t, int64(60), expiresIn(tok))

	assert.Zero(t, expiresIn(&oauth2.Token{AccessToken: "a"}))
}
