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

	cfg, err := config.Load(ctx, "dbtool")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	svc, err := app.NewDBTool(ctx, cfg)
	if err != nil {
		log.Fatalf("create db tool: %v", err)
	}

	if err := svc.Run(ctx); err != nil {
		log.Fatalf("run db tool: %v", err)
	}
}
