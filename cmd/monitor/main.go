package main

import (
	"context"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/solitary-pixels/hotspotx/app/monitor"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	defer cancel()

	app := monitor.Initialize(ctx)

	if err := app.Start(ctx); err != nil {
		app.Logger.Fatal("Monitor run failed", zap.Error(err))
	}
}
