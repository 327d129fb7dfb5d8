package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/qborelay/internal/common"
	"github.com/labstack/echo/v4"
)

type errorResponse struct {
	Detail string `json:"detail"`
}

// statusFor maps service errors onto HTTP codes.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, "company is not connected"
	case errors.Is(err, common.ErrDecryption):
		return http.StatusConflict, "stored token unavailable, reconnect the company"
	case errors.Is(err, common.ErrRemoteAuth):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, common.ErrRemoteTransport), errors.Is(err, context.DeadlineExceeded):
		return http.StatusBadGateway, err.Error()
	case errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrorUnauthorized):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, common.ErrInvalidArgument):
		return http.StatusBadRequest, err.Error()
	}
	return http.StatusInternalServerError, "Internal server error"
}

func (s *HTTPServer) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var code int
	var msg string

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code, msg = he.Code, fmt.Sprint(he.Message)
	} else {
		code, msg = statusFor(err)
		if code == http.StatusInternalServerError {
			s.logger.Error(c.Request().Context(), "unhandled error",
				"error", err, "path", c.Request().URL.Path, "method", c.Request().Method)
		}
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, errorResponse{Detail: msg})
	}
	if err != nil {
		s.logger.Error(c.Request().Context(), "write error response", "error", err)
	}
}
