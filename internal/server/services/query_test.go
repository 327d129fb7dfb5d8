package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/qborelay/internal/common"
	"github.com/dmitrijs2005/qborelay/internal/server/qbo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newQueryService(t *testing.T, concurrency int) (*QueryService, *fakeConnRepo, *fakeQBO) {
	t.Helper()
	repo := newFakeConnRepo()
	client := &fakeQBO{}
	rm := &fakeRepoManager{repo: repo}
	tokens := NewTokenService(nil, rm, testCodec(t), client, nil)
	return NewQueryService(nil, rm, tokens, client, concurrency, nil), repo, client
}

func TestQueryCompany_PassesResultThrough(t *testing.T) {
	svc, repo, client := newQueryService(t, 4)
	seed(t, repo, testCodec(t), "u1", "r1", "at-1", "rt-1", timePtr(time.Now().Add(time.Hour)), nil)

	raw := json.RawMessage(`{"QueryResponse":{"Invoice":[{"Id":"7"}]},"time":"x"}`)
	client.queryFn = func(_ context.Context, realmID, token, sql string) (json.RawMessage, error) {
		assert.Equal(t, "r1", realmID)
		assert.Equal(t, "at-1", token)
		assert.Equal(t, "select * from Invoice", sql)
		return raw, nil
	}

	got, err := svc.QueryCompany(context.Background(), "u1", "r1", "select * from Invoice")
	require.NoError(t, err)
	assert.Equal(t, raw, got)
}

func TestQueryCompany_ErrorsAreNotRewritten(t *testing.T) {
	svc, repo, client := newQueryService(t, 4)

	_, err := svc.QueryCompany(context.Background(), "u1", "r1", "select 1")
	require.ErrorIs(t, err, common.ErrorNotFound)
	assert.Zero(t, client.queryCalls.Load())

	seed(t, repo, testCodec(t), "u1", "r1", "at", "rt", timePtr(time.Now().Add(time.Hour)), nil)
	remote := fmt.Errorf("%w: qbo responded 401", common.ErrRemoteAuth)
	client.queryFn = func(context.Context, string, string, string) (json.RawMessage, error) { return nil, remote }

	_, err = svc.QueryCompany(context.Background(), "u1", "r1", "select 1")
	assert.Same(t, remote, err)
}

func TestQueryAllCompanies_PartialFailureIsolation(t *testing.T) {
	svc, repo, client := newQueryService(t, 4)
	future := timePtr(time.Now().Add(time.Hour))
	seed(t, repo, testCodec(t), "u1", "100", "at-100", "rt", future, strPtr("First"))
	seed(t, repo, testCodec(t), "u1", "200", "at-200", "rt", future, strPtr("Second"))
	seed(t, repo, testCodec(t), "u1", "300", "at-300", "rt", future, nil)

	client.queryFn = func(_ context.Context, realmID, _, _ string) (json.RawMessage, error) {
		if realmID == "200" {
			return nil, fmt.Errorf("%w: qbo responded 401: expired", common.ErrRemoteAuth)
		}
		return json.RawMessage(fmt.Sprintf(`{"realm":%q}`, realmID)), nil
	}

	res, err := svc.QueryAllCompanies(context.Background(), "u1", "select * from Customer", 0)
	require.NoError(t, err)
	require.Len(t, res.Results, 3)

	assert.Equal(t, "select * from Customer", res.SQL)
	assert.Equal(t, DefaultLimitPerCompany, res.LimitPerCompany)
	assert.Equal(t, 1, res.Failed())

	first, second, third := res.Results[0], res.Results[1], res.Results[2]

	assert.Equal(t, "100", first.RealmID)
	assert.True(t, first.OK())
	assert.JSONEq(t, `{"realm":"100"}`, string(first.Data))
	assert.Equal(t, "First", *first.CompanyName)

	assert.Equal(t, "200", second.RealmID)
	assert.False(t, second.OK())
	assert.Nil(t, second.Data)
	assert.Equal(t, KindRemoteAuth, second.Kind)
	assert.Contains(t, second.Error, "expired")
	assert.Equal(t, "Second", *second.CompanyName)

	assert.Equal(t, "300", third.RealmID)
	assert.True(t, third.OK())
	assert.Nil(t, third.CompanyName)
}

func TestQueryAllCompanies_TokenFailuresAreClassified(t *testing.T) {
	svc, repo, client := newQueryService(t, 2)
	future := timePtr(time.Now().Add(time.Hour))

	other, err := newOtherCodec()
	require.NoError(t, err)

	seed(t, repo, other, "u1", "bad-cipher", "at", "rt", future, nil)
	seed(t, repo, testCodec(t), "u1", "stale", "", "rt", nil, nil)
	seed(t, repo, testCodec(t), "u1", "ok", "at", "rt", future, nil)

	client.refreshFn = func(context.Context, string) (*qbo.TokenResponse, error) {
		return nil, fmt.Errorf("%w: dial tcp: timeout", common.ErrRemoteTransport)
	}

	res, err := svc.QueryAllCompanies(context.Background(), "u1", "select 1", 5)
	require.NoError(t, err)
	require.Len(t, res.Results, 3)

	assert.Equal(t, 5, res.LimitPerCompany)
	assert.Equal(t, KindTokenUnavailable, res.Results[0].Kind)
	assert.Equal(t, KindRemoteTransport, res.Results[1].Kind)
	assert.True(t, res.Results[2].OK())
	assert.Equal(t, int32(1), client.queryCalls.Load())
}

func TestQueryAllCompanies_NoCompanies(t *testing.T) {
	svc, _, _ := newQueryService(t, 4)

	res, err := svc.QueryAllCompanies(context.Background(), "nobody", "select 1", 20)
	require.NoError(t, err)
	assert.NotNil(t, res.Results)
	assert.Empty(t, res.Results)

	b, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{"sql":"select 1","limit_per_company":20,"results":[]}`, string(b))
}

func TestQueryAllCompanies_ListFailure(t *testing.T) {
	svc, repo, _ := newQueryService(t, 4)
	repo.listErr = errors.New("db error: connection refused")

	_, err := svc.QueryAllCompanies(context.Background(), "u1", "select 1", 20)
	require.Error(t, err)
}

func TestQueryAllCompanies_BoundedConcurrency(t *testing.T) {
	const limit = 2
	svc, repo, client := newQueryService(t, limit)
	future := timePtr(time.Now().Add(time.Hour))
	for i := 0; i < 6; i++ {
		seed(t, repo, testCodec(t), "u1", fmt.Sprintf("r%d", i), "at", "rt", future, nil)
	}

	var inFlight, maxInFlight atomic.Int32
	client.queryFn = func(_ context.Context, realmID, _, _ string) (json.RawMessage, error) {
		n := inFlight.Add(1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
		return json.RawMessage(`{}`), nil
	}

	res, err := svc.QueryAllCompanies(context.Background(), "u1", "select 1", 20)
	require.NoError(t, err)
	require.Len(t, res.Results, 6)
	for i, r := range res.Results {
		assert.Equal(t, fmt.Sprintf("r%d", i), r.RealmID, "listing order is kept")
	}
	assert.LessOrEqual(t, maxInFlight.Load(), int32(limit))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorKind
	}{
		{fmt.Errorf("x: %w", common.ErrorNotFound), KindNotConnected},
		{fmt.Errorf("x: %w", common.ErrDecryption), KindTokenUnavailable},
		{fmt.Errorf("x: %w", common.ErrRemoteAuth), KindRemoteAuth},
		{fmt.Errorf("x: %w", common.ErrRemoteTransport), KindRemoteTransport},
		{context.DeadlineExceeded, KindRemoteTransport},
		{errors.New("boom"), KindInternal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.err), tt.err.Error())
	}
}

func TestNewQueryService_DefaultConcurrency(t *testing.T) {
	svc := NewQueryService(nil, &fakeRepoManager{repo: newFakeConnRepo()}, nil, &fakeQBO{}, 0, nil)
	assert.Equal(t, DefaultFanOutConcurrency, svc.concurrency)
}
