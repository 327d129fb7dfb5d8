package services

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/dmitrijs2005/qborelay/internal/common"
	"github.com/dmitrijs2005/qborelay/internal/dbx"
	"github.com/dmitrijs2005/qborelay/internal/logging"
	"github.com/dmitrijs2005/qborelay/internal/server/qbo"
	"github.com/dmitrijs2005/qborelay/internal/server/repositories/repomanager"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultLimitPerCompany   = 20
	DefaultFanOutConcurrency = 4
)

// ErrorKind classifies a per-company failure in a fan-out result.
type ErrorKind string

const (
	KindNotConnected     ErrorKind = "not_connected"
	KindTokenUnavailable ErrorKind = "token_unavailable"
	KindRemoteAuth       ErrorKind = "remote_auth"
	KindRemoteTransport  ErrorKind = "remote_transport"
	KindInternal         ErrorKind = "internal"
)

// Classify maps an error from the query path onto an ErrorKind.
func Classify(err error) ErrorKind {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return KindNotConnected
	case errors.Is(err, common.ErrDecryption):
		return KindTokenUnavailable
	case errors.Is(err, common.ErrRemoteAuth):
		return KindRemoteAuth
	case errors.Is(err, common.ErrRemoteTransport),
		errors.Is(err, context.DeadlineExceeded):
		return KindRemoteTransport
	default:
		return KindInternal
	}
}

// CompanyResult is one company's outcome: Data on success, Error and Kind
// on failure.
type CompanyResult struct {
	RealmID     string          `json:"realm_id"`
	CompanyName *string         `json:"company_name"`
	Data        json.RawMessage `json:"data,omitempty"`
	Error       string          `json:"error,omitempty"`
	Kind        ErrorKind       `json:"kind,omitempty"`
}

// OK reports whether the company answered.
func (r CompanyResult) OK() bool { return r.Error == "" }

// FanOutResult is the merged answer of QueryAllCompanies. Results follow
// the store's listing order.
type FanOutResult struct {
	SQL             string          `json:"sql"`
	LimitPerCompany int             `json:"limit_per_company"`
	Results         []CompanyResult `json:"results"`
}

// Failed counts the companies that returned an error.
func (r *FanOutResult) Failed() int {
	n := 0
	for _, c := range r.Results {
		if !c.OK() {
			n++
		}
	}
	return n
}

// QueryService relays queries to one company or to every company of a user.
type QueryService struct {
	db          dbx.DBTX
	repomanager repomanager.RepositoryManager
	tokens      *TokenService
	qbo         qbo.Client
	concurrency int
	log         logging.Logger
}

func NewQueryService(db dbx.DBTX, m repomanager.RepositoryManager, tokens *TokenService, client qbo.Client, concurrency int, log logging.Logger) *QueryService {
	if concurrency < 1 {
		concurrency = DefaultFanOutConcurrency
	}
	if log == nil {
		log = logging.Nop{}
	}
	return &QueryService{
		db:          db,
		repomanager: m,
		tokens:      tokens,
		qbo:         client,
		concurrency: concurrency,
		log:         log.With("module", "query"),
	}
}

// QueryCompany runs sql against one company. The provider's document is
// returned as is and errors are not rewritten.
func (s *QueryService) QueryCompany(ctx context.Context, userID, realmID, sql string) (json.RawMessage, error) {
	token, err := s.tokens.GetValidAccessToken(ctx, userID, realmID)
	if err != nil {
		return nil, err
	}
	return s.qbo.Query(ctx, realmID, token, sql)
}

// QueryAllCompanies runs sql against every connected company. A failing
// company becomes an entry with Error set; only a failure to list the
// companies fails the call. limitPerCompany is reported back but the query
// is not rewritten.
func (s *QueryService) QueryAllCompanies(ctx context.Context, userID, sql string, limitPerCompany int) (*FanOutResult, error) {
	if limitPerCompany <= 0 {
		limitPerCompany = DefaultLimitPerCompany
	}

	conns, err := s.repomanager.Connections(s.db).List(ctx, userID)
	if err != nil {
		return nil, err
	}

	results := make([]CompanyResult, len(conns))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, c := range conns {
		results[i] = CompanyResult{RealmID: c.RealmID, CompanyName: c.CompanyName}
		g.Go(func() error {
			data, err := s.QueryCompany(gctx, userID, c.RealmID, sql)
			if err != nil {
				results[i].Error = err.Error()
				results[i].Kind = Classify(err)
				s.log.Warn(gctx, "company query failed", "user_id", userID, "realm_id", c.RealmID, "kind", results[i].Kind)
				return nil
			}
			results[i].Data = data
			return nil
		})
	}
	_ = g.Wait()

	return &FanOutResult{SQL: sql, LimitPerCompany: limitPerCompany, Results: results}, nil
}
