package main

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/dmitrijs2005/qborelay/internal/client/cli"
	"github.com/dmitrijs2005/qborelay/internal/client/client"
	"github.com/dmitrijs2005/qborelay/internal/client/config"
)

func main() {

	ctx := context.Background()
	cfg, args := config.LoadConfig()

	if cfg.Token == "" && len(args) > 0 && args[0] != "help" {
		tok, err := cli.GetToken(os.Stderr)
		if err != nil {
			log.Fatalf("%v", err)
		}
		cfg.Token = tok
	}

	tools, err := client.NewToolClient(cfg.ServerEndpointAddr, cfg.Token)
	if err != nil {
		log.Fatalf("%v", err)
	}

	err = cli.NewApp(tools, os.Stdout, cfg.CallTimeout).Run(ctx, args)
	_ = tools.Close()

	if err != nil {
		if errors.Is(err, cli.ErrUsage) {
			log.Printf("%v", err)
			os.Exit(2)
		}
		log.Fatalf("%v", err)
	}

}
