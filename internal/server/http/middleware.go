package http

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/dmitrijs2005/qborelay/internal/common"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const headerXRequestID = "X-Request-ID"

type requestIDKey struct{}

// RequestIDFromContext returns the id assigned by the requestID middleware.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// requestID keeps the caller's X-Request-ID or generates one, echoes it
// back and stores it in the request context.
func (s *HTTPServer) requestID(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Request().Header.Get(headerXRequestID)
		if id == "" {
			id = uuid.New().String()
		}
		c.Response().Header().Set(headerXRequestID, id)

		ctx := context.WithValue(c.Request().Context(), requestIDKey{}, id)
		c.SetRequest(c.Request().WithContext(ctx))

		return next(c)
	}
}

// requestLogger writes one line per request. Query strings are left out
// because the OAuth callback carries the authorization code in them.
func (s *HTTPServer) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}

		req := c.Request()
		s.logger.Info(req.Context(), "http request",
			"request_id", RequestIDFromContext(req.Context()),
			"method", req.Method,
			"path", req.URL.Path,
			"status", c.Response().Status,
			"latency", time.Since(start),
			"remote_ip", c.RealIP(),
		)
		return nil
	}
}

// requireAPIKey guards /api. Without a configured key it fails closed.
func (s *HTTPServer) requireAPIKey(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if s.apiKey == "" {
			return echo.NewHTTPError(http.StatusInternalServerError, "Server misconfigured: MCP_API_KEY not set")
		}

		got := c.Request().Header.Get(common.APIKeyHeaderName)
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.apiKey)) != 1 {
			return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
		}

		return next(c)
	}
}
