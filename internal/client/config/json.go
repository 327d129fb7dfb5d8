package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/qborelay/internal/flagx"
	"github.com/dmitrijs2005/qborelay/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// There is no token field: it comes from the environment, a flag
// or the prompt, never from a file on disk.
type JsonConfig struct {
	ServerEndpointAddr string         `json:"server_endpoint_addr"`
	CallTimeout        timex.Duration `json:"call_timeout"`
}

// parseJson overlays Config with values loaded from the JSON file named by
// -c/-config or $QBORELAY_CONFIG. Read or unmarshal errors panic.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.ConfigFile()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerEndpointAddr != "" {
		cfg.ServerEndpointAddr = jc.ServerEndpointAddr
	}
	if jc.CallTimeout.Duration != 0 {
		cfg.CallTimeout = jc.CallTimeout.Duration
	}
}
