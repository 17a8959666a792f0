package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/batch"
	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/config"
	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/ingest"
	ingestentity "github.com/ovaphlow/pitchfork/service-health-ingest/internal/ingest/entity"
	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/job/entity"
	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/metric"
	"github.com/ovaphlow/pitchfork/service-health-ingest/pkg/metrics"
	"github.com/ovaphlow/pitchfork/service-health-ingest/pkg/utilities"
)

// Store is the runner side of the job repo.
type Store interface {
	Claim(ctx context.Context, limit int, runnerID string) ([]entity.ProcessingJob, error)
	UpdateProgress(ctx context.Context, id uuid.UUID, processed, failed int, pct float64) error
	Complete(ctx context.Context, j *entity.ProcessingJob) error
	Requeue(ctx context.Context, runnerID string) (int64, error)
	DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// RawStore loads payloads and records their outcome.
type RawStore interface {
	Get(ctx context.Context, id uuid.UUID) (*ingestentity.RawIngestion, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, errs []byte) error
}

// Runner polls pending jobs and runs at most MaxConcurrent of them at once.
type Runner struct {
	jobs Store
	raws RawStore
	proc *batch.Processor
	cfg  config.RunnerConfig
	log  *zap.SugaredLogger
	id   string
	gate *utilities.Gate

	running  atomic.Bool
	stopping atomic.Bool
	wg       sync.WaitGroup
	stop     chan struct{}
	loops    sync.WaitGroup
	cancel   context.CancelFunc

	progressEvery time.Duration
	now           func() time.Time
}

func NewRunner(jobs Store, raws RawStore, proc *batch.Processor, cfg config.RunnerConfig, log *zap.SugaredLogger) *Runner {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	id := utilities.NewRunnerID()
	return &Runner{
		jobs:          jobs,
		raws:          raws,
		proc:          proc,
		cfg:           cfg,
		log:           log.With("runner_id", id),
		id:            id,
		gate:          utilities.NewGate(cfg.MaxConcurrent),
		progressEvery: 2 * time.Second,
		now:           time.Now,
	}
}

func (r *Runner) ID() string { return r.id }

// Start launches the poll and cleanup loops. It returns immediately; a
// second call is a no-op.
func (r *Runner) Start(ctx context.Context) {
	if !r.running.CompareAndSwap(false, true) {
		return
	}
	jobCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r.cancel = cancel
	r.stop = make(chan struct{})
	r.loops.Add(2)
	go r.pollLoop(ctx, jobCtx)
	go r.cleanupLoop(ctx)
	r.log.Infow("job runner started", "max_concurrent", r.cfg.MaxConcurrent, "poll_interval", r.cfg.PollInterval)
}

// Stop ends polling and waits up to DrainTimeout for in-flight jobs. Jobs
// still running after that are canceled and returned to pending.
func (r *Runner) Stop(ctx context.Context) error {
	if !r.running.CompareAndSwap(true, false) {
		return nil
	}
	close(r.stop)
	r.loops.Wait()

	drained := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(drained)
	}()
	timer := time.NewTimer(r.cfg.DrainTimeout)
	defer timer.Stop()
	select {
	case <-drained:
		r.cancel()
		r.log.Info("job runner stopped")
		return nil
	case <-timer.C:
	case <-ctx.Done():
	}

	r.stopping.Store(true)
	r.cancel()
	<-drained
	n, err := r.jobs.Requeue(context.WithoutCancel(ctx), r.id)
	if err != nil {
		return fmt.Errorf("requeue unfinished jobs: %w", err)
	}
	r.log.Warnw("job runner stopped before drain", "requeued", n)
	return nil
}

func (r *Runner) pollLoop(ctx, jobCtx context.Context) {
	defer r.loops.Done()
	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()
	for {
		if _, err := r.PollOnce(jobCtx); err != nil {
			r.log.Warnw("claim jobs failed", "err", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-r.stop:
			return
		case <-ticker.C:
		}
	}
}

func (r *Runner) cleanupLoop(ctx context.Context) {
	defer r.loops.Done()
	if r.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(r.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stop:
			return
		case <-ticker.C:
			if _, err := r.CleanupOnce(ctx); err != nil {
				r.log.Warnw("job cleanup failed", "err", err)
			}
		}
	}
}

// PollOnce claims as many pending jobs as there are free slots and starts
// them. It returns the number started.
func (r *Runner) PollOnce(ctx context.Context) (int, error) {
	free := r.gate.Available()
	if free == 0 {
		return 0, nil
	}
	claimed, err := r.jobs.Claim(ctx, free, r.id)
	if err != nil {
		return 0, err
	}
	started := 0
	for i := range claimed {
		if !r.gate.TryAcquire() {
			// cannot happen while PollOnce is the only acquirer
			r.log.Errorw("no free slot for claimed job", "job_id", claimed[i].ID)
			break
		}
		j := claimed[i]
		r.wg.Add(1)
		started++
		go func() {
			defer r.wg.Done()
			defer r.gate.Release()
			r.execute(ctx, &j)
		}()
	}
	return started, nil
}

// Wait blocks until every started job has finished.
func (r *Runner) Wait() { r.wg.Wait() }

// CleanupOnce deletes finished jobs older than the retention window.
func (r *Runner) CleanupOnce(ctx context.Context) (int64, error) {
	cutoff := r.now().Add(-time.Duration(r.cfg.RetentionDays) * 24 * time.Hour)
	n, err := r.jobs.DeleteFinishedBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		r.log.Infow("deleted finished jobs", "count", n, "cutoff", cutoff)
	}
	return n, nil
}

func (r *Runner) execute(ctx context.Context, j *entity.ProcessingJob) {
	inflight := metrics.JobsInFlight.WithLabelValues()
	inflight.Inc()
	defer inflight.Dec()
	log := r.log.With("job_id", j.ID, "user_id", j.UserID)
	start := r.now()

	raw, err := r.raws.Get(ctx, j.RawIngestionID)
	if err != nil {
		r.fail(ctx, j, nil, fmt.Sprintf("load raw ingestion: %v", err))
		return
	}
	payload, err := metric.Decode(raw.Payload)
	if err != nil {
		r.fail(ctx, j, raw, fmt.Sprintf("failed to deserialize payload: %v", err))
		return
	}
	cfg, err := r.proc.Config().WithOverride(j.Config)
	if err != nil {
		r.fail(ctx, j, raw, err.Error())
		return
	}
	if err := r.raws.UpdateStatus(ctx, raw.ID, ingestentity.StatusProcessing, nil); err != nil {
		log.Warnw("mark raw processing failed", "err", err)
	}

	var live liveCounts
	proc := r.proc.WithConfig(cfg).WithProgress(func(p batch.Progress) {
		live.processed.Add(int64(p.ProcessedInChunk))
		live.failed.Add(int64(p.FailedInChunk))
	})
	stopProgress := r.trackProgress(ctx, j, &live)
	res, perr := proc.Process(ctx, j.UserID, payload)
	stopProgress()

	if r.stopping.Load() && errors.Is(perr, context.Canceled) {
		log.Warnw("job interrupted by shutdown", "processed", live.processed.Load(), "failed", live.failed.Load())
		return
	}

	summary := summarize(res, payload, time.Since(start))
	j.ProcessedMetrics = res.ProcessedCount
	j.FailedMetrics = res.FailedCount
	j.ProgressPercentage = 100
	j.Status = entity.StatusCompleted
	switch {
	case perr != nil:
		j.Status = entity.StatusFailed
		j.ErrorMessage = strPtr(perr.Error())
	case res.Status() == ingestentity.StatusError:
		j.Status = entity.StatusFailed
		j.ErrorMessage = strPtr(fmt.Sprintf("no metrics stored, %d failed", res.FailedCount))
	case len(res.Errors) > 0:
		j.ErrorMessage = strPtr(fmt.Sprintf("processing completed with %d errors", len(res.Errors)))
	}
	summary.FinalStatus = res.Status()
	if perr != nil {
		summary.FinalStatus = ingestentity.StatusError
	}
	j.ResultSummary, _ = json.Marshal(summary)

	rawStatus := ingest.StatusOf(res, perr)
	if j.RetryCount > 0 && j.Status == entity.StatusCompleted {
		rawStatus = ingestentity.StatusRecovered
	}
	r.finish(ctx, j, raw, rawStatus, ingest.ErrorsJSON(res, perr))
	log.Infow("job finished", "status", j.Status, "processed", j.ProcessedMetrics, "failed", j.FailedMetrics,
		"duration_ms", time.Since(start).Milliseconds())
}

// liveCounts accumulates chunk progress while a job runs.
type liveCounts struct {
	processed atomic.Int64
	failed    atomic.Int64
}

// trackProgress flushes the processed and failed counts every progressEvery
// until the returned func is called.
func (r *Runner) trackProgress(ctx context.Context, j *entity.ProcessingJob, live *liveCounts) func() {
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(r.progressEvery)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				n, failed := int(live.processed.Load()), int(live.failed.Load())
				if err := r.jobs.UpdateProgress(ctx, j.ID, n, failed, percent(n+failed, j.TotalMetrics)); err != nil {
					r.log.Debugw("update job progress failed", "job_id", j.ID, "err", err)
				}
			}
		}
	}()
	return func() {
		close(done)
		wg.Wait()
	}
}

func (r *Runner) fail(ctx context.Context, j *entity.ProcessingJob, raw *ingestentity.RawIngestion, msg string) {
	j.Status = entity.StatusFailed
	j.ErrorMessage = &msg
	r.log.Errorw("job failed", "job_id", j.ID, "err", msg)
	var errs []byte
	if raw != nil {
		errs, _ = json.Marshal([]batch.ItemError{{Variant: "Batch", Message: msg}})
	}
	r.finish(ctx, j, raw, ingestentity.StatusError, errs)
}

func (r *Runner) finish(ctx context.Context, j *entity.ProcessingJob, raw *ingestentity.RawIngestion, rawStatus string, errs []byte) {
	sctx := context.WithoutCancel(ctx)
	if err := r.jobs.Complete(sctx, j); err != nil {
		r.log.Errorw("complete job failed", "job_id", j.ID, "err", err)
	}
	if raw != nil {
		if err := r.raws.UpdateStatus(sctx, raw.ID, rawStatus, errs); err != nil {
			r.log.Errorw("update raw status failed", "raw_id", raw.ID, "err", err)
		}
	}
	metrics.Inc(metrics.Jobs, prometheus.Labels{"status": j.Status}, 1)
}

func summarize(res *batch.Result, payload *metric.Payload, elapsed time.Duration) entity.ResultSummary {
	s := entity.ResultSummary{
		TotalMetricsProcessed: res.ProcessedCount,
		MetricsByType:         map[string]int{},
		RoutePointsProcessed:  res.RoutePointsProcessed,
		RetryAttempts:         res.RetryAttempts,
		ProcessingTimeMS:      elapsed.Milliseconds(),
	}
	for _, it := range payload.Items {
		s.MetricsByType[it.Metric.Kind().Slug()]++
	}
	for _, e := range res.Errors {
		if e.IndexRange != nil {
			s.DatabaseErrors += e.IndexRange[1] - e.IndexRange[0]
		} else {
			s.ValidationErrors++
		}
	}
	if res.Deduplication != nil {
		s.DuplicatesRemoved = res.Deduplication.Total
	}
	return s
}

func percent(n, total int) float64 {
	if total <= 0 {
		return 0
	}
	return min(100, float64(n)*100/float64(total))
}

func strPtr(s string) *string { return &s }
