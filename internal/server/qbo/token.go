package qbo

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"golang.org/x/oauth2"
)

// ExchangeCode trades an authorization code for the first token pair.
func (c *IntuitClient) ExchangeCode(ctx context.Context, code string) (*TokenResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.tokenTimeout)
	defer cancel()

	tok, err := c.oauth.Exchange(c.withHTTPClient(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("code exchange: %w", classify(err))
	}

	c.log.Debug(ctx, "authorization code exchanged")
	return toTokenResponse(tok), nil
}

// RefreshAccessToken performs one refresh_token grant. It never retries.
func (c *IntuitClient) RefreshAccessToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.tokenTimeout)
	defer cancel()

	// An empty access token is never valid, so Token() always hits the endpoint.
	src := c.oauth.TokenSource(c.withHTTPClient(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("token refresh: %w", classify(err))
	}

	c.log.Debug(ctx, "access token refreshed")
	return toTokenResponse(tok), nil
}

func toTokenResponse(tok *oauth2.Token) *TokenResponse {
	return &TokenResponse{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresIn:    expiresIn(tok),
	}
}

// expiresIn prefers the parsed field and falls back to the raw response.
func expiresIn(tok *oauth2.Token) int64 {
	if tok.ExpiresIn > 0 {
		return tok.ExpiresIn
	}

	switch v := tok.Extra("expires_in").(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case json.Number:
		n, _ := v.Int64()
		return n
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	}
	return 0
}
