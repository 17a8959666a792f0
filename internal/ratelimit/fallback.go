package ratelimit

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// FallbackBackend prefers a shared primary and fails open to an in-process
// MemoryBackend when a primary call errors or exceeds timeout. A key that
// has live local hits keeps using the local counters until they age out,
// even after the primary recovers.
type FallbackBackend struct {
	primary  Backend
	local    *MemoryBackend
	timeout  time.Duration
	log      *zap.SugaredLogger
	degraded atomic.Bool
}

func NewFallbackBackend(primary Backend, local *MemoryBackend, timeout time.Duration, log *zap.SugaredLogger) *FallbackBackend {
	return &FallbackBackend{primary: primary, local: local, timeout: timeout, log: log}
}

// Degraded reports whether the last primary call failed.
func (f *FallbackBackend) Degraded() bool { return f.degraded.Load() }

// route runs primary unless one of keys still has live local hits, falling
// back to local when the primary fails.
func route[T any](ctx context.Context, f *FallbackBackend, keys []string, window time.Duration, now time.Time,
	do func(context.Context, Backend) (T, error)) (T, error) {
	for _, key := range keys {
		if f.local.Active(key, window, now) {
			return do(ctx, f.local)
		}
	}
	pctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	res, err := do(pctx, f.primary)
	if err == nil {
		if f.degraded.Swap(false) {
			f.log.Infow("rate limit cache recovered")
		}
		return res, nil
	}
	if !f.degraded.Swap(true) {
		f.log.Warnw("rate limit cache unavailable, using in-process counters", "error", err)
	}
	return do(ctx, f.local)
}

func (f *FallbackBackend) Allow(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Result, error) {
	return route(ctx, f, []string{key}, window, now, func(ctx context.Context, b Backend) (Result, error) {
		return b.Allow(ctx, key, limit, window, now)
	})
}

// AllowAll keeps the hits of one request on a single backend so the
// all-or-nothing rule holds across its keys.
func (f *FallbackBackend) AllowAll(ctx context.Context, hits []Hit, window time.Duration, now time.Time) ([]Result, error) {
	keys := make([]string, 0, len(hits))
	for _, h := range hits {
		keys = append(keys, h.Key)
	}
	return route(ctx, f, keys, window, now, func(ctx context.Context, b Backend) ([]Result, error) {
		return b.AllowAll(ctx, hits, window, now)
	})
}

func (f *FallbackBackend) Peek(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Result, error) {
	return route(ctx, f, []string{key}, window, now, func(ctx context.Context, b Backend) (Result, error) {
		return b.Peek(ctx, key, limit, window, now)
	})
}

func (f *FallbackBackend) Cleanup(ctx context.Context, now time.Time) (int, error) {
	n, _ := f.local.Cleanup(ctx, now)
	m, err := f.primary.Cleanup(ctx, now)
	return n + m, err
}
