package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/config"
	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/metric"
	"github.com/ovaphlow/pitchfork/service-health-ingest/pkg/metrics"
	"github.com/ovaphlow/pitchfork/service-health-ingest/pkg/utilities"
)

// routeSummaryBatch caps the number of workout updates pipelined at once.
const routeSummaryBatch = 500

// ProgressFunc receives one Progress per finished chunk.
type ProgressFunc func(Progress)

// Processor runs a decoded payload through validation, deduplication and
// chunked upserts for one user.
type Processor struct {
	store    Store
	cfg      config.BatchConfig
	vcfg     *config.ValidationConfig
	log      *zap.SugaredLogger
	progress ProgressFunc
	sleep    func(context.Context, time.Duration) error
}

func NewProcessor(store Store, cfg config.BatchConfig, vcfg *config.ValidationConfig, log *zap.SugaredLogger) *Processor {
	return &Processor{store: store, cfg: cfg, vcfg: vcfg, log: log, sleep: sleepCtx}
}

// WithConfig returns a processor sharing p's store but batching with cfg.
func (p *Processor) WithConfig(cfg config.BatchConfig) *Processor {
	cp := *p
	cp.cfg = cfg
	return &cp
}

// WithProgress returns a processor reporting chunk progress to fn. It has
// no effect unless progress tracking is enabled.
func (p *Processor) WithProgress(fn ProgressFunc) *Processor {
	cp := *p
	cp.progress = fn
	return &cp
}

func (p *Processor) Config() config.BatchConfig { return p.cfg }

// tally accumulates per-variant outcome counts for the metrics collector.
type tally map[[2]string]int

func (t tally) add(variant, outcome string, n int) {
	if n > 0 {
		t[[2]string{variant, outcome}] += n
	}
}

func (t tally) flush() {
	for k, n := range t {
		metrics.Inc(metrics.IngestMetrics, prometheus.Labels{"variant": k[0], "outcome": k[1]}, float64(n))
	}
}

// Process stores the payload for user. Validation failures and failed
// chunks are reported in the result and never abort the batch. The error is
// non-nil when the batch was refused (ErrMemoryLimitExceeded), when every
// chunk failed on a transient store error (ErrStoreUnavailable), or when ctx
// ended before all chunks ran; the result is still populated in each case.
func (p *Processor) Process(ctx context.Context, user uuid.UUID, payload *metric.Payload) (*Result, error) {
	start := time.Now()
	res := &Result{Errors: []ItemError{}}
	counts := tally{}
	defer counts.flush()

	for _, r := range payload.Rejected {
		res.Errors = append(res.Errors, indexed(r.Variant, r.Index, r.Message))
		res.FailedCount++
		label := "unknown"
		if k, ok := metric.ParseKind(r.Variant); ok {
			label = k.Slug()
		}
		counts.add(label, "failed", 1)
	}

	var part metric.Partition
	for _, it := range payload.Items {
		it.Metric.SetUser(user)
		if err := it.Metric.Validate(p.vcfg); err != nil {
			kind := it.Metric.Kind()
			res.Errors = append(res.Errors, indexed(string(kind), it.Index, err.Error()))
			res.FailedCount++
			counts.add(kind.Slug(), "failed", 1)
			continue
		}
		part.Add(it.Metric)
	}

	stats := &DedupStats{Duplicates: make(map[string]int, len(metric.Kinds))}
	for _, k := range metric.Kinds {
		stats.Duplicates[k.Slug()] = 0
	}
	if p.cfg.EnableDedup {
		dstart := time.Now()
		dedupPartition(&part, stats)
		stats.ElapsedMS = time.Since(dstart).Milliseconds()
		for slug, n := range stats.Duplicates {
			counts.add(slug, "duplicate", n)
		}
	} else {
		part.Workout = collapseLast(part.Workout)
	}
	part.AttachRoutes()
	if p.cfg.EnableDedup {
		part.WorkoutRoute, _ = Dedup(part.WorkoutRoute)
	}
	res.Deduplication = stats

	base := estimate(&part)
	if limit := int64(p.cfg.MemoryLimitMB * (1 << 20)); base > limit {
		res.MemoryPeakMB = toMB(base)
		res.ProcessingTimeMS = time.Since(start).Milliseconds()
		return res, fmt.Errorf("%w: estimated %.2f MB over %.0f MB", ErrMemoryLimitExceeded, toMB(base), p.cfg.MemoryLimitMB)
	}
	mem := newMemTracker(base)
	ex := &executor{store: p.store, policy: policyFrom(&p.cfg), sleep: p.sleep, log: p.log}
	sizes := chunkSizes(&p.cfg)
	collapse := !p.cfg.EnableDedup
	var progress *ProgressSummary
	if p.cfg.EnableProgress {
		progress = &ProgressSummary{ChunksByVariant: map[string]int{}}
	}

	outs := p.dispatch(ctx, ex, planMetrics(&part, sizes, collapse), mem, progress)
	failedWorkouts := map[uuid.UUID]bool{}
	for _, o := range outs {
		p.collate(res, counts, o)
		if o.failed() {
			for _, id := range o.chunk.workouts {
				failedWorkouts[id] = true
			}
		}
	}

	// Route points go after their parents, and only for workouts that landed.
	points := part.WorkoutRoute
	if len(failedWorkouts) > 0 {
		points = make([]*metric.WorkoutRoutePoint, 0, len(part.WorkoutRoute))
		skipped := map[uuid.UUID]int{}
		for _, rp := range part.WorkoutRoute {
			if failedWorkouts[rp.WorkoutID] {
				skipped[rp.WorkoutID]++
				continue
			}
			points = append(points, rp)
		}
		for id, n := range skipped {
			res.Errors = append(res.Errors, ItemError{
				Variant: string(metric.KindWorkoutRoute),
				Message: fmt.Sprintf("%d route points of workout %s not stored: workout upsert failed", n, id),
			})
		}
	}
	routeOuts := p.dispatch(ctx, ex, plan(routePoints, points, sizes[metric.KindWorkoutRoute], collapse), mem, progress)
	for _, o := range routeOuts {
		p.collate(res, counts, o)
	}
	if ctx.Err() == nil {
		p.summarizeRoutes(ctx, res, part.Workout, failedWorkouts)
	}

	res.ProcessingTimeMS = time.Since(start).Milliseconds()
	res.MemoryPeakMB = mem.peakMB()
	res.ChunkProgress = progress

	p.log.Infow("batch processed",
		"user_id", user, "processed", res.ProcessedCount, "failed", res.FailedCount,
		"route_points", res.RoutePointsProcessed, "duplicates", stats.Total,
		"retries", res.RetryAttempts, "duration_ms", res.ProcessingTimeMS)

	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("batch interrupted: %w", err)
	}
	all := append(outs, routeOuts...)
	if len(all) > 0 && allTransient(all) {
		return res, ErrStoreUnavailable
	}
	return res, nil
}

func allTransient(outs []outcome) bool {
	for _, o := range outs {
		if o.err == nil || !o.err.Transient {
			return false
		}
	}
	return true
}

// dispatch runs chunks sequentially or, when parallel processing is
// enabled, at most min(MaxParallel, config.ParallelCap()) at a time. Outcomes
// keep the chunk order.
func (p *Processor) dispatch(ctx context.Context, ex *executor, chunks []*chunk, mem *memTracker, progress *ProgressSummary) []outcome {
	outs := make([]outcome, len(chunks))
	var mu sync.Mutex
	runOne := func(i int, c *chunk) {
		mem.add(c.bytes)
		o := ex.run(ctx, c)
		mem.add(-c.bytes)
		outs[i] = o
		if progress == nil {
			return
		}
		mu.Lock()
		progress.ChunksTotal++
		progress.ChunksByVariant[c.kind.Slug()]++
		if o.failed() {
			progress.ChunksFailed++
		} else {
			progress.ChunksSucceeded++
		}
		mu.Unlock()
		if p.progress != nil {
			pr := Progress{
				Variant:          string(c.kind),
				ChunkIndex:       c.index,
				ChunkTotal:       c.total,
				ProcessedInChunk: o.inserted,
			}
			if o.failed() && c.kind != metric.KindWorkoutRoute {
				pr.FailedInChunk = c.rows()
			}
			p.progress(pr)
		}
	}

	if !p.cfg.EnableParallel || len(chunks) < 2 {
		for i, c := range chunks {
			runOne(i, c)
		}
		return outs
	}

	gate := utilities.NewGate(min(p.cfg.MaxParallel, config.ParallelCap()))
	var wg sync.WaitGroup
	for i, c := range chunks {
		if err := gate.Acquire(ctx); err != nil {
			outs[i] = outcome{chunk: c, err: &ChunkError{
				Variant: string(c.kind), ChunkIndex: c.index, Start: c.start, End: c.end, Err: err,
			}}
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer gate.Release()
			runOne(i, c)
		}()
	}
	wg.Wait()
	return outs
}

// collate folds one chunk outcome into the result. Route point chunks are
// reported separately and do not move processed or failed counts.
func (p *Processor) collate(res *Result, counts tally, o outcome) {
	c := o.chunk
	if o.attempts > 1 {
		res.RetryAttempts += o.attempts - 1
	}
	route := c.kind == metric.KindWorkoutRoute
	if o.failed() {
		res.Errors = append(res.Errors, ranged(string(c.kind), c.start, c.end, o.err.Err.Error()))
		if !route {
			res.FailedCount += c.rows()
		}
		counts.add(c.kind.Slug(), "failed", c.rows())
		return
	}
	if route {
		res.RoutePointsProcessed += o.inserted
	} else {
		res.ProcessedCount += o.inserted
	}
	counts.add(c.kind.Slug(), "processed", o.inserted)
}

// summarizeRoutes writes the derived route columns of every stored workout
// that carries points. Failures are reported but do not fail the batch.
func (p *Processor) summarizeRoutes(ctx context.Context, res *Result, ws []*metric.Workout, failed map[uuid.UUID]bool) {
	geometry := p.store.RouteGeometry()
	var sts []Statement
	flush := func() {
		if len(sts) == 0 {
			return
		}
		if err := p.store.ExecBatch(ctx, sts); err != nil {
			p.log.Warnw("route summary update failed", "workouts", len(sts), "error", err)
			res.Errors = append(res.Errors, ItemError{
				Variant: string(metric.KindWorkoutRoute),
				Message: "route summary: " + err.Error(),
			})
		}
		sts = sts[:0]
	}
	for _, w := range ws {
		if len(w.Route) == 0 || failed[w.ID] {
			continue
		}
		sts = append(sts, routeSummaryStatement(w.ID, metric.SummarizeRoute(w.Route), metric.LineStringWKT(w.Route), geometry))
		if len(sts) == routeSummaryBatch {
			flush()
		}
	}
	flush()
}

// IsRefusal reports whether err means the batch was not attempted at all.
func IsRefusal(err error) bool {
	return errors.Is(err, ErrMemoryLimitExceeded)
}
