package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/config"
	"github.com/ovaphlow/pitchfork/service-health-ingest/pkg/metrics"
)

type Axis string

const (
	AxisKey  Axis = "api_key"
	AxisUser Axis = "user"
	AxisIP   Axis = "ip"
)

// DeniedError is returned when one axis is over its limit.
type DeniedError struct {
	Axis   Axis
	Result Result
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s, retry after %ds", e.Axis, e.Result.RetryAfterSeconds())
}

// Subject identifies the caller on all three axes. KeyLimit overrides the
// configured per-key limit when set.
type Subject struct {
	KeyID    uuid.UUID
	KeyLimit *int
	UserID   uuid.UUID
	IP       string
}

// Checker applies the per-key, per-user and per-IP limits.
type Checker struct {
	backend Backend
	cfg     config.RateLimitConfig
	log     *zap.SugaredLogger
	now     func() time.Time
}

func NewChecker(backend Backend, cfg config.RateLimitConfig, log *zap.SugaredLogger) *Checker {
	if cfg.Window <= 0 {
		cfg.Window = time.Hour
	}
	return &Checker{backend: backend, cfg: cfg, log: log, now: time.Now}
}

// New builds the checker for cfg: in-process only when no Redis URL is set,
// otherwise Redis with the in-process fallback. An unreachable Redis at
// startup is not fatal.
func New(ctx context.Context, cfg config.RateLimitConfig, log *zap.SugaredLogger) *Checker {
	local := NewMemoryBackend()
	if cfg.RedisURL == "" {
		log.Infow("rate limiter using in-process counters")
		return NewChecker(local, cfg, log)
	}
	client, err := Dial(ctx, cfg.RedisURL, time.Second)
	if client == nil {
		log.Warnw("invalid redis url, rate limiter using in-process counters", "error", err)
		return NewChecker(local, cfg, log)
	}
	if err != nil {
		log.Warnw("redis not reachable at startup", "error", err)
	} else {
		log.Infow("rate limiter using redis")
	}
	return NewChecker(NewFallbackBackend(NewRedisBackend(client), local, cfg.CacheTimeout, log), cfg, log)
}

func storageKey(axis Axis, id string) string {
	return "rate_limit:" + string(axis) + ":" + id
}

func (c *Checker) keyLimit(s Subject) int {
	if s.KeyLimit != nil && *s.KeyLimit > 0 {
		return *s.KeyLimit
	}
	return c.cfg.KeyRequestsPerHour
}

// Check records one request against the key, user and IP axes together:
// either every axis counts the request or, when any axis is over its limit,
// none does. It returns the key axis result for response headers, or a
// *DeniedError for the first denied axis in key, user, IP order. Backend
// errors are logged and allowed.
func (c *Checker) Check(ctx context.Context, s Subject) (Result, error) {
	axes := []struct {
		axis  Axis
		id    string
		limit int
	}{
		{AxisKey, s.KeyID.String(), c.keyLimit(s)},
		{AxisUser, s.UserID.String(), c.cfg.UserRequestsPerHour},
		{AxisIP, s.IP, c.cfg.IPRequestsPerHour},
	}
	var (
		hits   []Hit
		active []Axis
	)
	for _, a := range axes {
		if a.id == "" || a.limit <= 0 {
			continue
		}
		hits = append(hits, Hit{Key: storageKey(a.axis, a.id), Limit: a.limit})
		active = append(active, a.axis)
	}
	if len(hits) == 0 {
		return Result{}, nil
	}
	results, err := c.backend.AllowAll(ctx, hits, c.cfg.Window, c.now())
	if err != nil {
		c.log.Warnw("rate limit check failed, allowing", "error", err)
		return Result{}, nil
	}
	var keyRes Result
	for i, res := range results {
		if active[i] == AxisKey {
			keyRes = res
		}
		if !res.Allowed() {
			metrics.Inc(metrics.RateLimitDenied, prometheus.Labels{"axis": string(active[i])}, 1)
			return res, &DeniedError{Axis: active[i], Result: res}
		}
	}
	return keyRes, nil
}

// Status returns the key axis window without recording a request.
func (c *Checker) Status(ctx context.Context, s Subject) (Result, error) {
	return c.backend.Peek(ctx, storageKey(AxisKey, s.KeyID.String()), c.keyLimit(s), c.cfg.Window, c.now())
}

// RunCleanup sweeps expired keys every interval until ctx is done.
func (c *Checker) RunCleanup(ctx context.Context) {
	interval := c.cfg.CleanupInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := c.backend.Cleanup(ctx, c.now())
			if err != nil && !errors.Is(err, context.Canceled) {
				c.log.Warnw("rate limit cleanup failed", "error", err)
				continue
			}
			if n > 0 {
				c.log.Debugw("rate limit cleanup", "removed", n)
			}
		}
	}
}
