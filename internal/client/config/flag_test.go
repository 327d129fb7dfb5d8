package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		wantArgs    []string
		expectPanic bool
	}{
		{name: "all flags", args: []string{"-a", "127.0.0.1:9090", "-t", "tok", "-timeout", "10", "companies"},
			expected: &Config{ServerEndpointAddr: "127.0.0.1:9090", Token: "tok", CallTimeout: 10 * time.Second},
			wantArgs: []string{"companies"}},
		{name: "config flag is tolerated", args: []string{"-c", "cfg.json", "connect"},
			expected: &Config{}, wantArgs: []string{"connect"}},
		{name: "no command", args: []string{},
			expected: &Config{}, wantArgs: []string{}},
		{name: "incorrect timeout", args: []string{"-timeout", "abc"}, expectPanic: true},
		{name: "unknown flag", args: []string{"-x"}, expectPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := &Config{}

			if tt.expectPanic {
				require.Panics(t, func() { parseFlags(config, tt.args) })
				return
			}

			var args []string
			require.NotPanics(t, func() { args = parseFlags(config, tt.args) })
			assert.Empty(t, cmp.Diff(tt.expected, config))
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}
