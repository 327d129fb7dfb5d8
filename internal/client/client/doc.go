// Package client talks to the relay's gRPC tool surface.
//
// GRPCClient manages one connection, attaches the bearer token to every
// call through an interceptor and maps gRPC status codes onto the sentinel
// errors in errors.go, so callers can match them with errors.Is.
package client
