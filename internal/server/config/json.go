package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/qborelay/internal/flagx"
	"github.com/dmitrijs2005/qborelay/internal/timex"
)

// JsonConfig is the on-disk shape of the server config file. Duration fields
// accept "45s"-style strings or integer nanoseconds. Fields left out of the
// file keep their current value.
type JsonConfig struct {
	EndpointAddrGRPC   string         `json:"endpoint_addr_grpc"`
	EndpointAddrHTTP   string         `json:"endpoint_addr_http"`
	DatabaseDSN        string         `json:"database_dsn"`
	SecretKey          string         `json:"secret_key"`
	LogLevel           string         `json:"log_level"`
	EncryptionKey      string         `json:"encryption_key"`
	EncryptionSalt     string         `json:"encryption_salt"`
	IntuitClientID     string         `json:"intuit_client_id"`
	IntuitClientSecret string         `json:"intuit_client_secret"`
	IntuitRedirectURI  string         `json:"intuit_redirect_uri"`
	IntuitEnvironment  string         `json:"intuit_environment"`
	APIKey             string         `json:"api_key"`
	DefaultUserID      string         `json:"default_user_id"`
	OAuthIssuerDomain  string         `json:"oauth_issuer_domain"`
	OAuthAudience      string         `json:"oauth_audience"`
	OAuthAlgorithms    string         `json:"oauth_algorithms"`
	JWKSCacheTTL       timex.Duration `json:"jwks_cache_ttl"`
	StateTokenValidity timex.Duration `json:"state_token_validity"`
	TokenCallTimeout   timex.Duration `json:"token_call_timeout"`
	QueryCallTimeout   timex.Duration `json:"query_call_timeout"`
	FanOutConcurrency  int            `json:"fan_out_concurrency"`
	S3RootUser         string         `json:"s3_root_user"`
	S3RootPassword     string         `json:"s3_root_password"`
	S3Bucket           string         `json:"s3_bucket"`
	S3Region           string         `json:"s3_region"`
	S3BaseEndpoint     string         `json:"s3_base_endpoint"`
}

// parseJson overlays values from the file named by -c/-config (or
// $QBORELAY_CONFIG). Without a file it does nothing. Unreadable files and
// invalid JSON panic: a half-applied config is worse than no start.
func parseJson(config *Config) {
	jsonConfigFile := flagx.ConfigFile()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.applyTo(config)
}

func (c *JsonConfig) applyTo(config *Config) {
	str := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}

	str(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	str(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	str(&config.DatabaseDSN, c.DatabaseDSN)
	str(&config.SecretKey, c.SecretKey)
	str(&config.LogLevel, c.LogLevel)
	str(&config.EncryptionKey, c.EncryptionKey)
	str(&config.EncryptionSalt, c.EncryptionSalt)
	str(&config.IntuitClientID, c.IntuitClientID)
	str(&config.IntuitClientSecret, c.IntuitClientSecret)
	str(&config.IntuitRedirectURI, c.IntuitRedirectURI)
	str(&config.IntuitEnvironment, c.IntuitEnvironment)
	str(&config.APIKey, c.APIKey)
	str(&config.DefaultUserID, c.DefaultUserID)
	str(&config.OAuthIssuerDomain, c.OAuthIssuerDomain)
	str(&config.OAuthAudience, c.OAuthAudience)
	str(&config.OAuthAlgorithms, c.OAuthAlgorithms)
	str(&config.S3RootUser, c.S3RootUser)
	str(&config.S3RootPassword, c.S3RootPassword)
	str(&config.S3Bucket, c.S3Bucket)
	str(&config.S3Region, c.S3Region)
	str(&config.S3BaseEndpoint, c.S3BaseEndpoint)

	if c.JWKSCacheTTL.Duration > 0 {
		config.JWKSCacheTTL = c.JWKSCacheTTL.Duration
	}
	if c.StateTokenValidity.Duration > 0 {
		config.StateTokenValidity = c.StateTokenValidity.Duration
	}
	if c.TokenCallTimeout.Duration > 0 {
		config.TokenCallTimeout = c.TokenCallTimeout.Duration
	}
	if c.QueryCallTimeout.Duration > 0 {
		config.QueryCallTimeout = c.QueryCallTimeout.Duration
	}
	if c.FanOutConcurrency > 0 {
		config.FanOutConcurrency = c.FanOutConcurrency
	}
}
