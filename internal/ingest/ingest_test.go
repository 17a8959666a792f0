package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/auth"
	authentity "github.com/ovaphlow/pitchfork/service-health-ingest/internal/auth/entity"
	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/batch"
	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/config"
	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/ingest/entity"
	jobentity "github.com/ovaphlow/pitchfork/service-health-ingest/internal/job/entity"
	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/ratelimit"
	userentity "github.com/ovaphlow/pitchfork/service-health-ingest/internal/user/entity"
)

const (
	s1Body = `{"data":{"metrics":[{"type":"HeartRate","user_id":"00000000-0000-0000-0000-000000000001","recorded_at":"2025-01-01T10:00:00Z","heart_rate":75,"source_device":"W"}],"workouts":[]}}`
	s8Body = `{"data":{"metrics":[{"name":"HKQuantityTypeIdentifierHeartRate","units":"count/min","data":[{"date":"2025-01-01T10:00:00Z","qty":75,"source":"Watch"}]}],"workouts":[]}}`
)

// --- fakes ---

type fakeRaws struct {
	mu       sync.Mutex
	rows     map[uuid.UUID]*entity.RawIngestion
	attached map[uuid.UUID]uuid.UUID
	err      error
}

func newFakeRaws() *fakeRaws {
	return &fakeRaws{rows: map[uuid.UUID]*entity.RawIngestion{}, attached: map[uuid.UUID]uuid.UUID{}}
}

func (f *fakeRaws) Create(_ context.Context, raw *entity.RawIngestion) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	cp := *raw
	f.rows[raw.ID] = &cp
	return nil
}

func (f *fakeRaws) UpdateStatus(_ context.Context, id uuid.UUID, status string, errs []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[id].Status = status
	f.rows[id].ProcessingErrors = errs
	return nil
}

func (f *fakeRaws) AttachJob(_ context.Context, id, jobID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attached[id] = jobID
	f.rows[id].Status = entity.StatusProcessing
	return nil
}

func (f *fakeRaws) only(t *testing.T) *entity.RawIngestion {
	t.Helper()
	require.Len(t, f.rows, 1)
	for _, r := range f.rows {
		return r
	}
	return nil
}

type fakeJobs struct {
	jobs []*jobentity.ProcessingJob
}

func (f *fakeJobs) Create(_ context.Context, j *jobentity.ProcessingJob) error {
	f.jobs = append(f.jobs, j)
	return nil
}

// rowStore records upsert statements for a real batch.Processor.
type rowStore struct {
	mu    sync.Mutex
	execs []batch.Statement
	err   error
}

func (s *rowStore) Exec(_ context.Context, st batch.Statement) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	s.execs = append(s.execs, st)
	return int64(strings.Count(st.SQL, "), (") + 1), nil
}

func (s *rowStore) ExecBatch(context.Context, []batch.Statement) error { return nil }
func (s *rowStore) RouteGeometry() bool                                { return false }

type fakeAuth struct {
	ac *auth.AuthContext
}

func (f fakeAuth) Authenticate(_ context.Context, header string) (*auth.AuthContext, error) {
	switch header {
	case "":
		return nil, auth.ErrMissingKey
	case "Bearer good":
		return f.ac, nil
	}
	return nil, auth.ErrInvalidKey
}

type allowAll struct{ calls int }

func (a *allowAll) Check(context.Context, ratelimit.Subject) (ratelimit.Result, error) {
	a.calls++
	return ratelimit.Result{Limit: 100, Remaining: 99, ResetAt: time.Unix(1735725600, 0)}, nil
}

type denyAll struct{}

func (denyAll) Check(context.Context, ratelimit.Subject) (ratelimit.Result, error) {
	r := ratelimit.Result{Limit: 100, ResetAt: time.Unix(1735725600, 0), RetryAfter: 30 * time.Second}
	return r, &ratelimit.DeniedError{Axis: ratelimit.AxisKey, Result: r}
}

type harness struct {
	raws    *fakeRaws
	jobs    *fakeJobs
	store   *rowStore
	limiter Limiter
	cfg     config.IngestConfig
	batch   config.BatchConfig
	user    *userentity.User
}

func newHarness() *harness {
	return &harness{
		raws:    newFakeRaws(),
		jobs:    &fakeJobs{},
		store:   &rowStore{},
		limiter: &allowAll{},
		cfg: config.IngestConfig{
			MaxRequestBytes:       1 << 20,
			AsyncThresholdMetrics: 1000,
			AsyncThresholdBytes:   1 << 20,
			RequestTimeout:        5 * time.Second,
			MaxErrorsPerVariant:   50,
		},
		batch: config.DefaultBatchConfig(),
		user:  &userentity.User{ID: uuid.New(), Email: "a@example.com", IsActive: true},
	}
}

func (h *harness) handler() *Handler {
	log := zap.NewNop().Sugar()
	v := config.DefaultValidationConfig()
	proc := batch.NewProcessor(h.store, h.batch, &v, log)
	svc := NewService(h.raws, h.jobs, proc, h.cfg, log)
	ac := &auth.AuthContext{User: h.user, Key: &authentity.APIKey{ID: uuid.New(), UserID: h.user.ID, IsActive: true}}
	return NewHandler(svc, fakeAuth{ac: ac}, h.limiter, h.cfg, log)
}

func (h *harness) post(body, authz, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/ingest", strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	rec := httptest.NewRecorder()
	h.handler().Ingest(rec, req)
	return rec
}

type syncBody struct {
	ProcessedCount int               `json:"processed_count"`
	FailedCount    int               `json:"failed_count"`
	Errors         []batch.ItemError `json:"errors"`
	Dedup          map[string]any    `json:"deduplication_stats"`
	Status         string            `json:"status"`
	RawIngestionID uuid.UUID         `json:"raw_ingestion_id"`
}

func decodeSync(t *testing.T, rec *httptest.ResponseRecorder) syncBody {
	t.Helper()
	var b syncBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &b), rec.Body.String())
	return b
}

func heartRates(values ...int) string {
	var parts []string
	for i, v := range values {
		parts = append(parts, fmt.Sprintf(`{"type":"HeartRate","recorded_at":"2025-01-01T10:%02d:00Z","heart_rate":%d}`, i, v))
	}
	return `{"data":{"metrics":[` + strings.Join(parts, ",") + `],"workouts":[]}}`
}

// --- decode helpers ---

func TestCheckContentType(t *testing.T) {
	for _, ok := range []string{"application/json", "application/json; charset=utf-8", "application/vnd.health+json"} {
		assert.NoError(t, CheckContentType(ok), ok)
	}
	for _, bad := range []string{"", "text/plain", "application/x-www-form-urlencoded", ";;"} {
		assert.ErrorIs(t, CheckContentType(bad), ErrUnsupportedContentType, bad)
	}
}

func TestBodyTooLargeError_Message(t *testing.T) {
	err := &BodyTooLargeError{Max: 1024}
	assert.Equal(t, "request body exceeds limit of 1024 bytes", err.Error())
}

func TestDecodePayload(t *testing.T) {
	canonical, p, err := DecodePayload([]byte("{ \"data\" : {\"metrics\": [], \"workouts\": []} }"))
	require.NoError(t, err)
	assert.Equal(t, `{"data":{"metrics":[],"workouts":[]}}`, string(canonical))
	assert.Zero(t, p.Len())

	_, _, err = DecodePayload([]byte("{not json"))
	assert.ErrorIs(t, err, ErrInvalidJSON)
	_, _, err = DecodePayload([]byte(`{"other":1}`))
	assert.ErrorIs(t, err, ErrInvalidJSON)
}

func TestHash_IgnoresWhitespace(t *testing.T) {
	a, _, err := DecodePayload([]byte(s1Body))
	require.NoError(t, err)
	b, _, err := DecodePayload([]byte(strings.ReplaceAll(s1Body, ",", " , ")))
	require.NoError(t, err)
	assert.Equal(t, Hash(a), Hash(b))
	assert.Len(t, Hash(a), 64)
}

// --- end-to-end scenarios ---

func TestIngest_SingleHeartRate(t *testing.T) {
	h := newHarness()
	rec := h.post(s1Body, "Bearer good", "application/json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	b := decodeSync(t, rec)
	assert.Equal(t, 1, b.ProcessedCount)
	assert.Zero(t, b.FailedCount)
	assert.Equal(t, "completed", b.Status)
	assert.Equal(t, "100", rec.Header().Get("X-RateLimit-Limit"))

	require.Len(t, h.store.execs, 1)
	st := h.store.execs[0]
	assert.True(t, strings.HasPrefix(st.SQL, "INSERT INTO heart_rate_metrics"))
	assert.Equal(t, h.user.ID, st.Args[0], "authenticated user wins over payload user_id")
	assert.Equal(t, 75, *st.Args[2].(*int))
	assert.Equal(t, "W", *st.Args[9].(*string))

	raw := h.raws.only(t)
	assert.Equal(t, b.RawIngestionID, raw.ID)
	assert.Equal(t, entity.StatusCompleted, raw.Status)
	canonical, _, _ := DecodePayload([]byte(s1Body))
	assert.Equal(t, Hash(canonical), raw.PayloadHash)
	assert.Equal(t, int64(len(s1Body)), raw.PayloadSize)
}

func TestIngest_DuplicateFirstWins(t *testing.T) {
	h := newHarness()
	body := `{"data":{"metrics":[` +
		`{"type":"HeartRate","recorded_at":"2025-01-01T10:00:00Z","heart_rate":70},` +
		`{"type":"HeartRate","recorded_at":"2025-01-01T10:00:00Z","heart_rate":80}],"workouts":[]}}`
	rec := h.post(body, "Bearer good", "application/json")
	require.Equal(t, http.StatusOK, rec.Code)

	b := decodeSync(t, rec)
	assert.Equal(t, 1, b.ProcessedCount)
	assert.Zero(t, b.FailedCount)
	assert.EqualValues(t, 1, b.Dedup["heart_rate_duplicates"])
	require.Len(t, h.store.execs, 1)
	assert.Equal(t, 70, *h.store.execs[0].Args[2].(*int))
}

func TestIngest_ValidationFailureIsPartial(t *testing.T) {
	h := newHarness()
	rec := h.post(heartRates(75, 500, 80), "Bearer good", "application/json")
	require.Equal(t, http.StatusOK, rec.Code)

	b := decodeSync(t, rec)
	assert.Equal(t, 2, b.ProcessedCount)
	assert.Equal(t, 1, b.FailedCount)
	assert.Equal(t, "partial_failure", b.Status)
	require.Len(t, b.Errors, 1)
	assert.Equal(t, "HeartRate", b.Errors[0].Variant)
	require.NotNil(t, b.Errors[0].Index)
	assert.Equal(t, 1, *b.Errors[0].Index)
	assert.Contains(t, b.Errors[0].Message, "outside [15, 300]")

	raw := h.raws.only(t)
	assert.Equal(t, entity.StatusPartialFailure, raw.Status)
	assert.Contains(t, string(raw.ProcessingErrors), "outside [15, 300]")
}

func TestIngest_ErrorsTruncatedPerVariant(t *testing.T) {
	h := newHarness()
	h.cfg.MaxErrorsPerVariant = 2
	rec := h.post(heartRates(500, 501, 502, 75), "Bearer good", "application/json")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"errors_truncated":true`)
	b := decodeSync(t, rec)
	assert.Len(t, b.Errors, 2)
	assert.Equal(t, 3, b.FailedCount)
	assert.Contains(t, string(h.raws.only(t).ProcessingErrors), "502")
}

func TestIngest_DeviceNativeMapping(t *testing.T) {
	h := newHarness()
	rec := h.post(s8Body, "Bearer good", "application/json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, decodeSync(t, rec).ProcessedCount)
	require.Len(t, h.store.execs, 1)
	assert.Equal(t, 75, *h.store.execs[0].Args[2].(*int))
	assert.Equal(t, "Watch", *h.store.execs[0].Args[9].(*string))
}

func TestIngest_Unauthorized(t *testing.T) {
	h := newHarness()
	rec := h.post(s1Body, "", "application/json")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, h.raws.rows)

	rec = h.post(s1Body, "Bearer bad", "application/json")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, h.raws.rows)
}

func TestIngest_RateLimited(t *testing.T) {
	h := newHarness()
	h.limiter = denyAll{}
	rec := h.post(s1Body, "Bearer good", "application/json")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Empty(t, h.raws.rows)
}

func TestIngest_RequestRejections(t *testing.T) {
	h := newHarness()
	h.cfg.MaxRequestBytes = 64

	rec := h.post(s1Body, "Bearer good", "text/plain")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.post(s1Body, "Bearer good", "application/json")
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	h.cfg.MaxRequestBytes = 1 << 20
	rec = h.post("", "Bearer good", "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.post(`{"data":`, "Bearer good", "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid JSON")
	assert.Empty(t, h.raws.rows)
}

func TestIngest_AsyncByMetricCount(t *testing.T) {
	h := newHarness()
	h.cfg.AsyncThresholdMetrics = 2
	rec := h.post(heartRates(70, 71, 72), "Bearer good", "application/json")
	require.Equal(t, http.StatusAccepted, rec.Code)

	var b AcceptedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &b))
	require.Len(t, h.jobs.jobs, 1)
	j := h.jobs.jobs[0]
	assert.Equal(t, j.ID, b.JobID)
	assert.Equal(t, jobentity.StatusPending, j.Status)
	assert.Equal(t, 3, j.TotalMetrics)
	assert.Equal(t, b.RawIngestionID, j.RawIngestionID)
	assert.Equal(t, j.ID, h.raws.attached[j.RawIngestionID])
	assert.Empty(t, h.store.execs, "async path does not write metrics")
}

func TestIngest_AsyncByBytes(t *testing.T) {
	h := newHarness()
	h.cfg.AsyncThresholdBytes = 10
	rec := h.post(s1Body, "Bearer good", "application/json")
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestIngest_StoreUnavailableIs500(t *testing.T) {
	h := newHarness()
	h.batch.MaxRetries = 0
	h.store.err = &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	rec := h.post(s1Body, "Bearer good", "application/json")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, entity.StatusError, h.raws.only(t).Status)
}

func TestIngest_RawCaptureFailureIs500(t *testing.T) {
	h := newHarness()
	h.raws.err = errors.New("disk full")
	rec := h.post(s1Body, "Bearer good", "application/json")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, h.store.execs)
}

func TestIngest_MemoryRefusal(t *testing.T) {
	h := newHarness()
	h.batch.MemoryLimitMB = 0.0001
	rec := h.post(heartRates(70, 71), "Bearer good", "application/json")
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Empty(t, h.store.execs)
	raw := h.raws.only(t)
	assert.Equal(t, entity.StatusError, raw.Status)
	assert.Contains(t, string(raw.ProcessingErrors), "memory limit")
}

// --- service details ---

type countingArchiver struct {
	n   int
	err error
}

func (a *countingArchiver) Archive(context.Context, *entity.RawIngestion) error {
	a.n++
	return a.err
}

func TestService_ArchiverIsBestEffort(t *testing.T) {
	h := newHarness()
	log := zap.NewNop().Sugar()
	v := config.DefaultValidationConfig()
	arch := &countingArchiver{err: errors.New("bucket missing")}
	svc := NewService(h.raws, h.jobs, batch.NewProcessor(h.store, config.DefaultBatchConfig(), &v, log), h.cfg, log).
		WithArchiver(arch)
	ac := &auth.AuthContext{User: h.user, Key: &authentity.APIKey{ID: uuid.New()}}

	out, err := svc.Ingest(context.Background(), ac, []byte(s1Body))
	require.NoError(t, err)
	assert.Equal(t, 1, arch.n)
	assert.Equal(t, 1, out.Result.ProcessedCount)
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, entity.StatusCompleted, StatusOf(&batch.Result{ProcessedCount: 1}, nil))
	assert.Equal(t, entity.StatusPartialFailure, StatusOf(&batch.Result{ProcessedCount: 1, FailedCount: 1}, nil))
	assert.Equal(t, entity.StatusError, StatusOf(&batch.Result{FailedCount: 1}, nil))
	assert.Equal(t, entity.StatusError, StatusOf(&batch.Result{}, batch.ErrStoreUnavailable))
	assert.Equal(t, entity.StatusPartialFailure, StatusOf(&batch.Result{}, fmt.Errorf("batch interrupted: %w", context.DeadlineExceeded)))
	assert.Equal(t, entity.StatusError, StatusOf(nil, nil))
}
