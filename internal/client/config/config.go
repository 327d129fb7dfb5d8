// Package config loads runtime configuration for the qborelay CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c / -config (or $QBORELAY_CONFIG).
//  3. $QBORELAY_TOKEN for the bearer token.
//  4. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string   address:port of the relay gRPC endpoint
//	-t string   bearer token sent in the authorization metadata
//	-timeout    per-call timeout in seconds
//
// JSON schema:
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "call_timeout": "90s"
//	}
package config

import (
	"os"
	"time"
)

// TokenEnv names the environment variable holding the bearer token.
const TokenEnv = "QBORELAY_TOKEN"

// Config holds runtime settings for the CLI.
type Config struct {
	ServerEndpointAddr string
	Token              string
	CallTimeout        time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.CallTimeout = 2 * time.Minute
}

// LoadConfig builds a Config from defaults, JSON, environment and flags.
// The positional arguments left after flag parsing are returned as well.
func LoadConfig() (*Config, []string) {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	if tok := os.Getenv(TokenEnv); tok != "" {
		cfg.Token = tok
	}
	args := parseFlags(cfg, os.Args[1:])
	return cfg, args
}
