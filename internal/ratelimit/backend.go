// Package ratelimit implements sliding-window request limits on three
// independent axes: API key, user and client IP.
package ratelimit

import (
	"context"
	"math"
	"time"
)

// Result describes a key's window after a check.
type Result struct {
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// Allowed reports whether the checked request may proceed.
func (r Result) Allowed() bool { return r.RetryAfter <= 0 }

// RetryAfterSeconds rounds RetryAfter up to whole seconds, minimum 1 when denied.
func (r Result) RetryAfterSeconds() int {
	if r.Allowed() {
		return 0
	}
	return max(1, int(math.Ceil(r.RetryAfter.Seconds())))
}

// Hit is one key checked by AllowAll.
type Hit struct {
	Key   string
	Limit int
}

// Backend counts hits per key over a sliding window. Allow checks and
// records atomically; Peek only inspects. AllowAll records a hit on every
// key only when all of them are under their limits, and records nothing
// otherwise; results are in the order of hits.
type Backend interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Result, error)
	AllowAll(ctx context.Context, hits []Hit, window time.Duration, now time.Time) ([]Result, error)
	Peek(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Result, error)
	// Cleanup drops keys whose window has fully expired and returns how many.
	Cleanup(ctx context.Context, now time.Time) (int, error)
}

// result builds a Result from the count in the window and the oldest hit.
func result(limit, count int, oldest time.Time, window time.Duration, now time.Time, denied bool) Result {
	r := Result{Limit: limit, Remaining: max(0, limit-count), ResetAt: now.Add(window)}
	if count > 0 {
		r.ResetAt = oldest.Add(window)
	}
	if denied {
		r.Remaining = 0
		r.RetryAfter = r.ResetAt.Sub(now)
		if r.RetryAfter <= 0 {
			r.RetryAfter = time.Second
		}
	}
	return r
}
