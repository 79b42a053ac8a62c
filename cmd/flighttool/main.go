package main

import (
	"context"
	"log"

	"github.com/jonwraymond/toolgate/app"
	"github.com/jonwraymond/toolgate/config"
)

func main() {
	ctx, cancel := app.ContextWithShutdownSignal(context.Background())
	defer cancel()

	cfg, err := config.Load(ctx, "flighttool")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	svc, err := app.NewFlightTool(ctx, cfg)
	if err != nil {
		log.Fatalf("create flight tool: %v", err)
	}

	if err := svc.Run(ctx); err != nil {
		log.Fatalf("run flight tool: %v", err)
	}
}
