package batch

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/metric"
	"github.com/ovaphlow/pitchfork/service-health-ingest/pkg/metrics"
)

// chunk is one planned upsert: rows [start, end) of a variant's vector.
type chunk struct {
	kind  metric.Kind
	index int
	total int
	start int
	end   int
	bytes int64
	build func() (Statement, error)
	// workouts lists the parent ids a workout chunk writes.
	workouts []uuid.UUID
}

func (c *chunk) rows() int { return c.end - c.start }

type outcome struct {
	chunk    *chunk
	inserted int
	attempts int
	elapsed  time.Duration
	err      *ChunkError
}

func (o *outcome) failed() bool { return o.err != nil }

// executor runs chunks against the store with retry on transient errors.
type executor struct {
	store  Store
	policy RetryPolicy
	sleep  func(context.Context, time.Duration) error
	log    *zap.SugaredLogger
}

func (e *executor) run(ctx context.Context, c *chunk) outcome {
	start := time.Now()
	out := outcome{chunk: c}
	labels := prometheus.Labels{"variant": c.kind.Slug()}
	fail := func(err error, transient bool) {
		out.err = &ChunkError{
			Variant:    string(c.kind),
			ChunkIndex: c.index,
			Start:      c.start,
			End:        c.end,
			Transient:  transient,
			Err:        err,
		}
	}

	st, err := c.build()
	if err != nil {
		fail(err, false)
		out.elapsed = time.Since(start)
		return out
	}
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			fail(err, false)
			break
		}
		out.attempts++
		n, err := e.store.Exec(ctx, st)
		if err == nil {
			out.inserted = int(n)
			if out.inserted > c.rows() || out.inserted < 0 {
				out.inserted = c.rows()
			}
			break
		}
		transient := IsTransient(err)
		if !transient || attempt >= e.policy.MaxRetries {
			fail(err, transient)
			break
		}
		delay := jitter(e.policy.Backoff(attempt))
		e.log.Warnw("chunk upsert failed, retrying",
			"variant", c.kind, "chunk", c.index, "attempt", attempt+1, "delay_ms", delay.Milliseconds(), "error", err)
		metrics.Inc(metrics.ChunkRetries, labels, 1)
		if err := e.sleep(ctx, delay); err != nil {
			fail(err, false)
			break
		}
	}
	out.elapsed = time.Since(start)
	metrics.Observe(metrics.ChunkDuration, labels, out.elapsed.Seconds())
	if out.err != nil {
		e.log.Errorw("chunk upsert failed",
			"variant", c.kind, "chunk", c.index, "rows", c.rows(), "attempts", out.attempts,
			"transient", out.err.Transient, "error", out.err.Err)
	}
	return out
}
