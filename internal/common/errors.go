// Package common defines shared constants and sentinel errors used across
// the server, transports and CLI. Callers should use errors.Is to match
// these values; most of them reach callers wrapped with extra context.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// ErrInvalidArgument marks caller input that can never succeed as sent.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrConfiguration means required secret material is missing. It is
	// fatal at startup and never returned per request.
	ErrConfiguration = errors.New("configuration error")

	// ErrDecryption means stored ciphertext could not be opened, either
	// because it is malformed or because it was sealed under another key.
	ErrDecryption = errors.New("token unavailable")

	// ErrRemoteAuth means the provider rejected the credentials
	// (expired or revoked consent). Retrying with the same token cannot succeed.
	ErrRemoteAuth = errors.New("remote authorization failed")

	// ErrRemoteTransport covers network failures, timeouts and provider
	// side 5xx responses. Safe to retry at the caller's discretion.
	ErrRemoteTransport = errors.New("remote transport failed")

	// ErrExportDisabled is returned when no object storage is configured.
	ErrExportDisabled = errors.New("export is not configured")
)
