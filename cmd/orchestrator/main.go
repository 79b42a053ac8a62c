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

	cfg, err := config.Load(ctx, "orchestrator")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	orch, err := app.NewOrchestrator(ctx, cfg)
	if err != nil {
		log.Fatalf("create orchestrator: %v", err)
	}

	if err := orch.Run(ctx); err != nil {
		log.Fatalf("run orchestrator: %v", err)
	}
}
