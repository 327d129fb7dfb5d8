package http

import (
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/qborelay/internal/common"
	"github.com/labstack/echo/v4"
)

func (s *HTTPServer) registerRoutes(e *echo.Echo) {
	e.GET("/", s.root)
	e.GET("/health", s.health)

	// OAuth round trip, no API key.
	e.GET("/intuit/connect", s.intuitConnect)
	e.GET("/intuit/callback", s.intuitCallback)

	api := e.Group("/api", s.requireAPIKey)
	api.GET("/companies", s.apiCompanies)
}

func (s *HTTPServer) root(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"message": "Welcome to the QBO relay"})
}

func (s *HTTPServer) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}

// intuitConnect sends the browser to the consent page on behalf of the
// default user.
func (s *HTTPServer) intuitConnect(c echo.Context) error {
	url, err := s.connect.ConnectURL(s.connect.DefaultUserID())
	if err != nil {
		return err
	}
	return c.Redirect(http.StatusFound, url)
}

type callbackResponse struct {
	Connected bool   `json:"connected"`
	RealmID   string `json:"realmId"`
	UserID    string `json:"user_id"`
}

func (s *HTTPServer) intuitCallback(c echo.Context) error {
	if e := c.QueryParam("error"); e != "" {
		return fmt.Errorf("%w: authorization declined: %s", common.ErrInvalidArgument, e)
	}

	conn, err := s.connect.CompleteAuthorization(c.Request().Context(),
		c.QueryParam("code"), c.QueryParam("realmId"), c.QueryParam("state"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, callbackResponse{Connected: true, RealmID: conn.RealmID, UserID: conn.UserID})
}

func (s *HTTPServer) apiCompanies(c echo.Context) error {
	companies, err := s.connect.ListCompanies(c.Request().Context(), s.connect.DefaultUserID())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"companies": companies})
}
