package batch

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/config"
)

// RetryPolicy is the backoff schedule for transient chunk failures.
type RetryPolicy struct {
	MaxRetries int
	Initial    time.Duration
	Max        time.Duration
}

func policyFrom(cfg *config.BatchConfig) RetryPolicy {
	return RetryPolicy{MaxRetries: cfg.MaxRetries, Initial: cfg.InitialBackoff(), Max: cfg.MaxBackoff()}
}

// Backoff returns min(Initial * 2^attempt, Max) before jitter.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 30 {
		return p.Max
	}
	d := p.Initial << attempt
	if d <= 0 || d > p.Max {
		return p.Max
	}
	return d
}

// jitter spreads d uniformly over [d/2, d].
func jitter(d time.Duration) time.Duration {
	if d <= 1 {
		return d
	}
	half := d / 2
	return half + time.Duration(rand.Int64N(int64(d-half)+1))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
