package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	// IngestRequests counts ingest requests by response status code.
	IngestRequests = Counter(
		"ingest_requests_total",
		"Total number of ingest requests",
		"status",
	)

	// IngestMetrics counts metrics by variant and outcome (processed, failed, duplicate).
	IngestMetrics = Counter(
		"ingest_metrics_total",
		"Total number of ingested metrics",
		"variant", "outcome",
	)

	ChunkDuration = Histogram(
		"batch_chunk_duration_seconds",
		"Duration of one chunk upsert including retries",
		prometheus.DefBuckets,
		"variant",
	)

	ChunkRetries = Counter(
		"batch_chunk_retries_total",
		"Chunk upsert retries after transient errors",
		"variant",
	)

	RateLimitDenied = Counter(
		"ratelimit_denied_total",
		"Requests denied by the rate limiter",
		"axis",
	)

	Jobs = Counter(
		"jobs_total",
		"Processing jobs finished, by final status",
		"status",
	)

	// JobsInFlight is the number of jobs the runner is executing.
	JobsInFlight = Gauge(
		"jobs_in_flight",
		"Processing jobs currently running",
	)
)

func Counter(name, help string, labelKeys ...string) *prometheus.CounterVec {
	return promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: name,
			Help: help,
		},
		labelKeys,
	)
}

func Inc(c *prometheus.CounterVec, labels prometheus.Labels, v float64) {
	c.With(labels).Add(v)
}

func Gauge(name, help string, labelKeys ...string) *prometheus.GaugeVec {
	return promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: name,
			Help: help,
		},
		labelKeys,
	)
}

func Set(g *prometheus.GaugeVec, labels prometheus.Labels, v float64) {
	g.With(labels).Set(v)
}

func Histogram(name, help string, buckets []float64, labelKeys ...string) *prometheus.HistogramVec {
	return promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    name,
			Help:    help,
			Buckets: buckets,
		},
		labelKeys,
	)
}

func Observe(h *prometheus.HistogramVec, labels prometheus.Labels, v float64) {
	h.With(labels).Observe(v)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Start serves /metrics on addr in the background and returns the server so
// the caller can shut it down. An empty addr disables the listener.
func Start(addr string, logger *zap.SugaredLogger) *http.Server {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Infow("metrics server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorw("metrics server error", "error", err)
		}
	}()
	return srv
}
