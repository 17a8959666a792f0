package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/app"
	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/ingest"
	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/job"
	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/query"
	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/ratelimit"
	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/router"
	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/user"
	"github.com/ovaphlow/pitchfork/service-health-ingest/pkg/metrics"
	"github.com/ovaphlow/pitchfork/service-health-ingest/pkg/utilities"
)

func main() {
	// load .env file if present so os.Getenv picks values from it
	_ = godotenv.Load()

	cfg := app.ConfigFromEnv()

	lg, err := utilities.Init(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Info("starting health ingest api")

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

	limiter := ratelimit.New(ctx, cfg.RateLimit, sugar)
	go limiter.RunCleanup(ctx)

	ingestSvc, err := a.NewIngest(ctx)
	if err != nil {
		sugar.Fatalf("ingest service: %v", err)
	}

	var metricsHandler http.Handler
	if cfg.Ingest.MetricsAddr == "" {
		metricsHandler = metrics.Handler()
	}
	handler := router.RegisterRoutes(router.Deps{
		Logger:  sugar,
		Auth:    a.Auth,
		Limits:  limiter,
		Ingest:  ingest.NewHandler(ingestSvc, a.Auth, limiter, cfg.Ingest, sugar),
		Jobs:    job.NewHandler(a.Jobs, sugar),
		Query:   query.NewHandler(a.Query, sugar),
		Users:   user.NewHandler(a.Users, sugar),
		Metrics: metricsHandler,
		Ping:    a.Ping,
	})
	srv := &http.Server{
		Addr:              cfg.Ingest.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	metricsSrv := metrics.Start(cfg.Ingest.MetricsAddr, sugar)

	var runner *job.Runner
	if cfg.Runner.Enabled {
		runner = a.NewRunner()
		runner.Start(ctx)
	}

	// run server in background
	go func() {
		sugar.Infow("http server listening", "addr", cfg.Ingest.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()

	<-ctx.Done()

	sugar.Info("shutting down")

	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}
	if runner != nil {
		drainCtx, drainCancel := context.WithTimeout(context.Background(), cfg.Runner.DrainTimeout+5*time.Second)
		if err := runner.Stop(drainCtx); err != nil {
			sugar.Warnf("job runner stop failed: %v", err)
		}
		drainCancel()
	}
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(doneCtx); err != nil {
			sugar.Warnf("metrics server shutdown failed: %v", err)
		}
	}

	sugar.Info("goodbye")
}
