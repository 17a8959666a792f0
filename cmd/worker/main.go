package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/app"
	"github.com/ovaphlow/pitchfork/service-health-ingest/pkg/metrics"
	"github.com/ovaphlow/pitchfork/service-health-ingest/pkg/utilities"
)

func main() {
	_ = godotenv.Load()

	cfg := app.ConfigFromEnv()

	// init logger
	lg, err := utilities.Init(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Info("starting health ingest worker")

	if err := cfg.Validate(); err != nil {
		sugar.Fatalf("invalid config: %v", err)
	}

	// graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Open(ctx, cfg, sugar)
	if err != nil {
		sugar.Fatalf("open stores: %v", err)
	}
	defer a.Close()

	metricsSrv := metrics.Start(cfg.Ingest.MetricsAddr, sugar)

	runner := a.NewRunner()
	runner.Start(ctx)
	sugar.Infow("worker is running; press Ctrl+C to stop", "runner_id", runner.ID())

	<-ctx.Done()

	sugar.Info("shutting down")

	doneCtx, cancel := context.WithTimeout(context.Background(), cfg.Runner.DrainTimeout+5*time.Second)
	defer cancel()

	if err := runner.Stop(doneCtx); err != nil {
		sugar.Warnf("job runner stop failed: %v", err)
	}

	// ping db once more
	if err := a.Ping(doneCtx); err != nil {
		sugar.Warnf("db ping on shutdown failed: %v", err)
	}

	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(doneCtx); err != nil {
			sugar.Warnf("metrics server shutdown failed: %v", err)
		}
	}

	sugar.Info("goodbye")
}
