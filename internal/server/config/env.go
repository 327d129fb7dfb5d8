package config

import (
	"strconv"
	"time"

	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/v2"
)

// envBindings maps environment variable names to config fields. The names
// for the Intuit app, the codec key and the API key are the ones the
// deployment scripts already export.
func envBindings(c *Config) map[string]*string {
	return map[string]*string{
		"GRPC_ADDRESS":         &c.EndpointAddrGRPC,
		"HTTP_ADDRESS":         &c.EndpointAddrHTTP,
		"DATABASE_DSN":         &c.DatabaseDSN,
		"SECRET_KEY":           &c.SecretKey,
		"LOG_LEVEL":            &c.LogLevel,
		"FERNET_KEY":           &c.EncryptionKey,
		"ENCRYPTION_SALT":      &c.EncryptionSalt,
		"INTUIT_CLIENT_ID":     &c.IntuitClientID,
		"INTUIT_CLIENT_SECRET": &c.IntuitClientSecret,
		"INTUIT_REDIRECT_URI":  &c.IntuitRedirectURI,
		"INTUIT_ENV":           &c.IntuitEnvironment,
		"MCP_API_KEY":          &c.APIKey,
		"DEFAULT_USER_ID":      &c.DefaultUserID,
		"OAUTH_ISSUER_DOMAIN":  &c.OAuthIssuerDomain,
		"OAUTH_AUDIENCE":       &c.OAuthAudience,
		"OAUTH_ALGORITHMS":     &c.OAuthAlgorithms,
		"S3_ROOT_USER":         &c.S3RootUser,
		"S3_ROOT_PASSWORD":     &c.S3RootPassword,
		"S3_BUCKET":            &c.S3Bucket,
		"S3_REGION":            &c.S3Region,
		"S3_BASE_ENDPOINT":     &c.S3BaseEndpoint,
	}
}

func envDurations(c *Config) map[string]*time.Duration {
	return map[string]*time.Duration{
		"JWKS_CACHE_TTL":       &c.JWKSCacheTTL,
		"STATE_TOKEN_VALIDITY": &c.StateTokenValidity,
		"TOKEN_CALL_TIMEOUT":   &c.TokenCallTimeout,
		"QUERY_CALL_TIMEOUT":   &c.QueryCallTimeout,
	}
}

// parseEnv overlays values from known environment variables. Unknown
// variables are ignored; malformed durations and numbers panic like a bad
// config file does.
func parseEnv(config *Config) {
	strs := envBindings(config)
	durations := envDurations(config)

	k := koanf.New(".")
	err := k.Load(env.Provider(".", env.Opt{
		TransformFunc: func(key, value string) (string, any) {
			_, isStr := strs[key]
			_, isDur := durations[key]
			if !isStr && !isDur && key != "FAN_OUT_CONCURRENCY" {
				return "", nil
			}
			return key, value
		},
	}), nil)
	if err != nil {
		panic(err)
	}

	for key, dst := range strs {
		if k.Exists(key) && k.String(key) != "" {
			*dst = k.String(key)
		}
	}

	for key, dst := range durations {
		if !k.Exists(key) || k.String(key) == "" {
			continue
		}
		d, err := time.ParseDuration(k.String(key))
		if err != nil {
			panic(err)
		}
		*dst = d
	}

	if v := k.String("FAN_OUT_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			panic(err)
		}
		config.FanOutConcurrency = n
	}
}
