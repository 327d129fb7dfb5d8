// Package http serves the browser-facing OAuth routes and the small REST
// API on echo.
package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/qborelay/internal/logging"
	"github.com/dmitrijs2005/qborelay/internal/server/models"
	"github.com/dmitrijs2005/qborelay/internal/server/services"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const shutdownTimeout = 10 * time.Second

// Connector is implemented by services.ConnectService.
type Connector interface {
	DefaultUserID() string
	ConnectURL(userID string) (string, error)
	CompleteAuthorization(ctx context.Context, code, realmID, state string) (*models.Connection, error)
	ListCompanies(ctx context.Context, userID string) ([]services.CompanyInfo, error)
}

type HTTPServer struct {
	address string
	apiKey  string
	connect Connector
	logger  logging.Logger
	echo    *echo.Echo
}

func NewHTTPServer(a string, l logging.Logger, cs Connector, apiKey string) *HTTPServer {
	s := &HTTPServer{
		address: a,
		apiKey:  apiKey,
		connect: cs,
		logger:  l.With("module", "http_server"),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.handleError
	e.Use(middleware.Recover())
	e.Use(s.requestID)
	e.Use(s.requestLogger)

	s.registerRoutes(e)
	s.echo = e
	return s
}

// Handler exposes the router, mainly for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.echo
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "Starting HTTP server", "address", s.address)
		errCh <- s.echo.Start(s.address)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "Stopping HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
