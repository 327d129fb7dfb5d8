package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/qborelay/internal/common"
	"github.com/dmitrijs2005/qborelay/internal/cryptox"
	"github.com/dmitrijs2005/qborelay/internal/dbx"
	"github.com/dmitrijs2005/qborelay/internal/server/models"
	"github.com/dmitrijs2005/qborelay/internal/server/qbo"
	"github.com/dmitrijs2005/qborelay/internal/server/repositories/connections"
	"github.com/stretchr/testify/require"
)

// --- codec ---

var sharedCodec = sync.OnceValues(func() (*cryptox.Codec, error) {
	return cryptox.NewCodec("test-encryption-key", "")
})

func testCodec(t *testing.T) *cryptox.Codec {
	t.Helper()
	c, err := sharedCodec()
	require.NoError(t, err)
	return c
}

// --- connections repository ---

type fakeConnRepo struct {
	mu      sync.Mutex
	rows    map[string]*models.Connection
	order   []string
	upserts int

	getErr    error
	listErr   error
	upsertErr error
}

func newFakeConnRepo() *fakeConnRepo {
	return &fakeConnRepo{rows: map[string]*models.Connection{}}
}

func connKey(userID, realmID string) string { return userID + "/" + realmID }

func (f *fakeConnRepo) Upsert(_ context.Context, c *models.Connection) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserts++

	k := connKey(c.UserID, c.RealmID)
	cp := *c
	if old, ok := f.rows[k]; ok {
		if cp.CompanyName == nil {
			cp.CompanyName = old.CompanyName
		}
		cp.CreatedAt = old.CreatedAt
	} else {
		cp.CreatedAt = time.Now().UTC()
		f.order = append(f.order, k)
	}
	cp.UpdatedAt = time.Now().UTC()
	f.rows[k] = &cp
	return nil
}

func (f *fakeConnRepo) Get(_ context.Context, userID, realmID string) (*models.Connection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	c, ok := f.rows[connKey(userID, realmID)]
	if !ok {
		return nil, fmt.Errorf("connection %s/%s: %w", userID, realmID, common.ErrorNotFound)
	}
	cp := *c
	return &cp, nil
}

func (f *fakeConnRepo) List(_ context.Context, userID string) ([]*models.Connection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]*models.Connection, 0)
	for _, k := range f.order {
		c := f.rows[k]
		if c.UserID == userID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeConnRepo) upsertCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.upserts
}

var _ connections.Repository = (*fakeConnRepo)(nil)

type fakeRepoManager struct {
	repo *fakeConnRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }

func (m *fakeRepoManager) Connections(dbx.DBTX) connections.Repository { return m.repo }

// --- remote client ---

type fakeQBO struct {
	refreshCalls  atomic.Int32
	exchangeCalls atomic.Int32
	queryCalls    atomic.Int32

	refreshFn  func(ctx context.Context, refreshToken string) (*qbo.TokenResponse, error)
	exchangeFn func(ctx context.Context, code string) (*qbo.TokenResponse, error)
	queryFn    func(ctx context.Context, realmID, accessToken, sql string) (json.RawMessage, error)
}

func (f *fakeQBO) AuthCodeURL(state string) string {
	return "https://consent.example/connect?state=" + state
}

func (f *fakeQBO) ExchangeCode(ctx context.Context, code string) (*qbo.TokenResponse, error) {
	f.exchangeCalls.Add(1)
	if f.exchangeFn == nil {
		return &qbo.TokenResponse{AccessToken: "at-" + code, RefreshToken: "rt-" + code, ExpiresIn: 3600}, nil
	}
	return f.exchangeFn(ctx, code)
}

func (f *fakeQBO) RefreshAccessToken(ctx context.Context, refreshToken string) (*qbo.TokenResponse, error) {
	f.refreshCalls.Add(1)
	if f.refreshFn == nil {
		return &qbo.TokenResponse{AccessToken: "at-new", RefreshToken: "rt-new", ExpiresIn: 3600}, nil
	}
	return f.refreshFn(ctx, refreshToken)
}

func (f *fakeQBO) Query(ctx context.Context, realmID, accessToken, sql string) (json.RawMessage, error) {
	f.queryCalls.Add(1)
	if f.queryFn == nil {
		return json.RawMessage(fmt.Sprintf(`{"realm":%q,"token":%q}`, realmID, accessToken)), nil
	}
	return f.queryFn(ctx, realmID, accessToken, sql)
}

var _ qbo.Client = (*fakeQBO)(nil)

// --- helpers ---

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

// seed stores a connection with the given plaintext tokens sealed by codec.
func seed(t *testing.T, repo *fakeConnRepo, codec SecretCodec, userID, realmID, access, refresh string, expires *time.Time, name *string) {
	t.Helper()

	c := &models.Connection{
		UserID:               userID,
		RealmID:              realmID,
		CompanyName:          name,
		AccessTokenExpiresAt: expires,
	}
	if access != "" {
		enc, err := codec.Encrypt(access)
		require.NoError(t, err)
		c.AccessTokenEnc = &enc
	}
	enc, err := codec.Encrypt(refresh)
	require.NoError(t, err)
	c.RefreshTokenEnc = enc

	require.NoError(t, repo.Upsert(context.Background(), c))
	repo.mu.Lock()
	repo.upserts = 0
	repo.mu.Unlock()
}

func newOtherCodec() (*cryptox.Codec, error) {
	return cryptox.NewCodec("some-other-key", "")
}
