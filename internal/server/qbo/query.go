package qbo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/dmitrijs2005/qborelay/internal/common"
	"golang.org/x/oauth2"
)

const maxQueryResponse = 64 << 20

// Query runs a QBO query statement for one company and returns the JSON
// body untouched.
func (c *IntuitClient) Query(ctx context.Context, realmID, accessToken, sql string) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.queryTimeout)
	defer cancel()

	u := fmt.Sprintf("%s/v3/company/%s/query?%s", c.apiBase, url.PathEscape(realmID), url.Values{
		"query":        {sql},
		"minorversion": {MinorVersion},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", common.ErrorInternal, err)
	}
	req.Header.Set("Accept", "application/json")

	client := oauth2.NewClient(c.withHTTPClient(ctx), oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrRemoteTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxQueryResponse))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", common.ErrRemoteTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Warn(ctx, "query rejected", "realm_id", realmID, "status", resp.StatusCode)
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: trimBody(body)}
	}

	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: response is not JSON", common.ErrRemoteTransport)
	}

	return json.RawMessage(body), nil
}
