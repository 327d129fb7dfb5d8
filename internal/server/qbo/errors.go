package qbo

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/qborelay/internal/common"
	"golang.org/x/oauth2"
)

const maxErrorBody = 512

// isAuthStatus reports whether the provider rejected the credentials.
func isAuthStatus(code int) bool {
	return code == http.StatusBadRequest || code == http.StatusUnauthorized || code == http.StatusForbidden
}

// StatusError is a non-2xx answer from the query API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("qbo responded %d: %s", e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	if isAuthStatus(e.StatusCode) {
		return common.ErrRemoteAuth
	}
	return common.ErrRemoteTransport
}

// classify maps a token endpoint error onto the remote sentinels.
func classify(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		body := trimBody(re.Body)
		if isAuthStatus(re.Response.StatusCode) {
			return fmt.Errorf("%w: status %d: %s", common.ErrRemoteAuth, re.Response.StatusCode, body)
		}
		return fmt.Errorf("%w: status %d: %s", common.ErrRemoteTransport, re.Response.StatusCode, body)
	}
	return fmt.Errorf("%w: %v", common.ErrRemoteTransport, err)
}

func trimBody(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > maxErrorBody {
		s = s[:maxErrorBody] + "..."
	}
	return s
}
