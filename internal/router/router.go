package router

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/auth"
	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/ingest"
	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/job"
	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/query"
	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/user"
)

// Deps are the handlers and collaborators mounted by RegisterRoutes.
// Metrics and Ping are optional.
type Deps struct {
	Logger  *zap.SugaredLogger
	Auth    auth.Authenticator
	Limits  RateStatus
	Ingest  *ingest.Handler
	Jobs    *job.Handler
	Query   *query.Handler
	Users   *user.Handler
	Metrics http.Handler
	Ping    func(ctx context.Context) error
}

// RegisterRoutes mounts HTTP handlers using the standard library's http.ServeMux.
// POST /v1/ingest authenticates and rate limits inside the handler so size
// checks run first; the read routes go through auth.Middleware.
func RegisterRoutes(d Deps) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", health(d.Ping, d.Logger))
	if d.Metrics != nil {
		mux.Handle("GET /metrics", d.Metrics)
	}

	mux.HandleFunc("POST /v1/ingest", d.Ingest.Ingest)

	authed := func(h http.HandlerFunc) http.Handler {
		return chain(h, auth.Middleware(d.Auth, d.Logger), RateLimitHeadersMiddleware(d.Limits, d.Logger))
	}
	mux.Handle("GET /v1/jobs/{id}", authed(d.Jobs.Get))
	mux.Handle("GET /v1/data/summary", authed(d.Query.Summary))
	mux.Handle("GET /v1/data/{entity}", authed(d.Query.Range))
	mux.Handle("GET /v1/me", authed(d.Users.Me))

	return chain(mux, RequestIDMiddleware(), LoggingMiddleware(d.Logger), SecurityHeadersMiddleware())
}

func health(ping func(context.Context) error, logger *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, code := "healthy", http.StatusOK
		if ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				logger.Warnw("health check failed", "err", err)
				status, code = "unhealthy", http.StatusServiceUnavailable
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":    status,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}
