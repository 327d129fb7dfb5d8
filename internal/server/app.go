// Package server initializes and runs the relay: it opens the token store,
// applies migrations, builds the services and starts the gRPC tool surface
// next to the HTTP OAuth routes.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/qborelay/internal/cryptox"
	"github.com/dmitrijs2005/qborelay/internal/dbx"
	"github.com/dmitrijs2005/qborelay/internal/logging"
	"github.com/dmitrijs2005/qborelay/internal/server/auth"
	"github.com/dmitrijs2005/qborelay/internal/server/config"
	"github.com/dmitrijs2005/qborelay/internal/server/qbo"
	"github.com/dmitrijs2005/qborelay/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/qborelay/internal/server/services"
	"golang.org/x/sync/errgroup"

	gs "github.com/dmitrijs2005/qborelay/internal/server/grpc"
	hs "github.com/dmitrijs2005/qborelay/internal/server/http"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB

	verifier auth.Verifier

	grpcServer *gs.GRPCServer
	httpServer *hs.HTTPServer
}

// NewApp validates c, opens the store and runs migrations before anything
// starts listening. A missing secret or a failed migration is returned as
// an error and nothing is served.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	if err := c.Validate(); err != nil {
		return nil, err
	}

	codec, err := cryptox.NewCodec(c.EncryptionKey, c.EncryptionSalt)
	if err != nil {
		return nil, err
	}

	db, dialect, err := dbx.Open(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm, err := repomanager.NewSQLRepositoryManager(dialect)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db init error: %w", err)
	}

	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Info(ctx, "Database ready", "dialect", string(dialect))

	client := qbo.NewIntuitClient(qbo.Config{
		ClientID:         c.IntuitClientID,
		ClientSecret:     c.IntuitClientSecret,
		RedirectURI:      c.IntuitRedirectURI,
		Environment:      c.IntuitEnvironment,
		TokenCallTimeout: c.TokenCallTimeout,
		QueryCallTimeout: c.QueryCallTimeout,
	}, logger)

	verifier, err := auth.NewVerifier(auth.VerifierConfig{
		IssuerDomain: c.OAuthIssuerDomain,
		Audience:     c.OAuthAudience,
		Algorithms:   c.Algorithms(),
		CacheTTL:     c.JWKSCacheTTL,
		Logger:       logger,
	}, c.DefaultUserID)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	tokens := services.NewTokenService(db, rm, codec, client, logger)
	query := services.NewQueryService(db, rm, tokens, client, c.FanOutConcurrency, logger)
	connect := services.NewConnectService(db, rm, codec, client, c, logger).SharingLocksWith(tokens)
	export := services.NewExportService(query, c, logger)

	if !export.Enabled() {
		logger.Info(ctx, "Exports disabled, S3 bucket not configured")
	}
	if c.APIKey == "" {
		logger.Warn(ctx, "MCP_API_KEY is not set, /api will refuse every request")
	}

	return &App{
		config:     c,
		logger:     logger,
		db:         db,
		verifier:   verifier,
		grpcServer: gs.NewGRPCServer(c.EndpointAddrGRPC, logger, verifier, connect, query, export),
		httpServer: hs.NewHTTPServer(c.EndpointAddrHTTP, logger, connect, c.APIKey),
	}, nil
}

// Run serves both surfaces until a signal arrives or one of them fails.
func (app *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	defer func() {
		if c, ok := app.verifier.(io.Closer); ok {
			_ = c.Close()
		}
		if err := app.db.Close(); err != nil {
			app.logger.Error(ctx, "db close", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting app...")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return app.grpcServer.Run(ctx) })
	g.Go(func() error { return app.httpServer.Run(ctx) })

	err := g.Wait()
	if err != nil {
		app.logger.Error(ctx, "server stopped", "error", err)
	}
	app.logger.Info(context.Background(), "App stopped")
	return err
}
