// Package common contains shared constants and sentinel errors used across
// qborelay components.
package common

// AuthorizationHeaderName is the gRPC metadata key carrying the caller's
// bearer token on tool calls.
const AuthorizationHeaderName = "authorization"

// APIKeyHeaderName guards the REST helpers under /api.
const APIKeyHeaderName = "X-MCP-API-Key"

// DefaultUserID is the identity used when no identity provider is configured.
const DefaultUserID = "default_user"
