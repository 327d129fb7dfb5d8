package config

import (
	"flag"
	"time"
)

// parseFlags overlays cfg with command-line flags and returns the remaining
// positional arguments (the command and its operands). Flags must precede
// the command. -c/-config are accepted here so the JSON loader's flag does
// not break parsing.
func parseFlags(cfg *Config, args []string) []string {
	fs := flag.NewFlagSet("qborelay", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port of the relay gRPC endpoint")
	fs.StringVar(&cfg.Token, "t", cfg.Token, "bearer token")
	timeout := fs.Int("timeout", int(cfg.CallTimeout.Seconds()), "per-call timeout (in seconds)")

	var ignored string
	fs.StringVar(&ignored, "c", "", "path to config file (short)")
	fs.StringVar(&ignored, "config", "", "path to config file")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.CallTimeout = time.Duration(*timeout) * time.Second
	return fs.Args()
}
