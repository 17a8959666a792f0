package query

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/auth"
	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/metric"
	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/query/entity"
	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/query/repo"
	userentity "github.com/ovaphlow/pitchfork/service-health-ingest/internal/user/entity"
)

type rowsCall struct {
	kind   metric.Kind
	filter repo.Filter
	limit  int
	offset int
	desc   bool
}

type fakeStore struct {
	total    int64
	rows     []json.RawMessage
	calls    []rowsCall
	countErr error
	hrErr    error

	sumStart, sumEnd time.Time
}

func (f *fakeStore) Count(context.Context, metric.Kind, repo.Filter) (int64, error) {
	return f.total, f.countErr
}

func (f *fakeStore) Rows(_ context.Context, k metric.Kind, fl repo.Filter, limit, offset int, desc bool) ([]json.RawMessage, error) {
	f.calls = append(f.calls, rowsCall{k, fl, limit, offset, desc})
	end := min(offset+limit, len(f.rows))
	if offset >= end {
		return []json.RawMessage{}, nil
	}
	return f.rows[offset:end], nil
}

func (f *fakeStore) Counts(_ context.Context, _ uuid.UUID, start, end time.Time) (map[string]int64, error) {
	f.sumStart, f.sumEnd = start, end
	return map[string]int64{"heart_rate": 3}, f.countErr
}

func (f *fakeStore) HeartRate(context.Context, uuid.UUID, time.Time, time.Time) (*entity.HeartRateSummary, error) {
	if f.hrErr != nil {
		return nil, f.hrErr
	}
	return &entity.HeartRateSummary{Count: 3}, nil
}

func (f *fakeStore) BloodPressure(context.Context, uuid.UUID, time.Time, time.Time) (*entity.BloodPressureSummary, error) {
	return &entity.BloodPressureSummary{}, nil
}

func (f *fakeStore) Sleep(context.Context, uuid.UUID, time.Time, time.Time) (*entity.SleepSummary, error) {
	return &entity.SleepSummary{}, nil
}

func (f *fakeStore) Activity(context.Context, uuid.UUID, time.Time, time.Time) (*entity.ActivitySummary, error) {
	return &entity.ActivitySummary{}, nil
}

func (f *fakeStore) Workouts(context.Context, uuid.UUID, time.Time, time.Time) (*entity.WorkoutSummary, error) {
	return &entity.WorkoutSummary{WorkoutTypes: []string{"running"}}, nil
}

func storeWith(n int) *fakeStore {
	f := &fakeStore{total: int64(n)}
	for i := 0; i < n; i++ {
		f.rows = append(f.rows, json.RawMessage(`{"i":`+string(rune('0'+i%10))+`}`))
	}
	return f
}

func TestRange_Pagination(t *testing.T) {
	store := storeWith(25)
	svc := NewService(store, zap.NewNop().Sugar())
	user := uuid.New()
	ctx := context.Background()

	p, err := svc.Range(ctx, user, "heart_rate", Params{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, p.Data, 10)
	assert.EqualValues(t, 25, p.TotalCount)
	assert.Equal(t, Pagination{Page: 1, Limit: 10, HasNext: true, HasPrev: false}, p.Pagination)
	assert.Equal(t, rowsCall{metric.KindHeartRate, repo.Filter{User: user}, 10, 0, true}, store.calls[0])

	p, err = svc.Range(ctx, user, "HeartRate", Params{Limit: 10, Page: 3, Sort: "asc"})
	require.NoError(t, err)
	assert.Len(t, p.Data, 5)
	assert.Equal(t, Pagination{Page: 3, Limit: 10, HasNext: false, HasPrev: true}, p.Pagination)
	assert.Equal(t, 20, store.calls[1].offset)
	assert.False(t, store.calls[1].desc)

	p, err = svc.Range(ctx, user, "heart-rate", Params{Limit: 10, Page: 9})
	require.NoError(t, err)
	assert.Empty(t, p.Data)
	assert.Len(t, store.calls, 2, "pages past the end skip the row query")
}

func TestRange_ClampsLimit(t *testing.T) {
	store := storeWith(1)
	svc := NewService(store, zap.NewNop().Sugar())

	p, err := svc.Range(context.Background(), uuid.New(), "sleep", Params{})
	require.NoError(t, err)
	assert.Equal(t, DefaultLimit, p.Pagination.Limit)
	assert.Equal(t, 1, p.Pagination.Page)

	p, err = svc.Range(context.Background(), uuid.New(), "sleep", Params{Limit: 5000})
	require.NoError(t, err)
	assert.Equal(t, MaxLimit, p.Pagination.Limit)
}

func TestRange_Errors(t *testing.T) {
	svc := NewService(storeWith(0), zap.NewNop().Sugar())
	ctx := context.Background()

	_, err := svc.Range(ctx, uuid.New(), "steps", Params{})
	assert.ErrorIs(t, err, ErrUnknownEntity)

	start := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, -1)
	_, err = svc.Range(ctx, uuid.New(), "sleep", Params{Start: &start, End: &end})
	assert.ErrorIs(t, err, ErrInvalidRange)

	boom := errors.New("boom")
	svc = NewService(&fakeStore{countErr: boom}, zap.NewNop().Sugar())
	_, err = svc.Range(ctx, uuid.New(), "sleep", Params{})
	assert.ErrorIs(t, err, boom)
}

func TestSummary_DefaultWindow(t *testing.T) {
	store := &fakeStore{hrErr: errors.New("relation missing")}
	svc := NewService(store, zap.NewNop().Sugar())
	now := time.Date(2025, 3, 31, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	s, err := svc.Summary(context.Background(), uuid.New(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, now, store.sumEnd)
	assert.Equal(t, now.AddDate(0, 0, -30), store.sumStart)
	assert.EqualValues(t, 3, s.Counts["heart_rate"])
	assert.Nil(t, s.HeartRate, "failed section is omitted")
	require.NotNil(t, s.Workouts)
	assert.Equal(t, []string{"running"}, s.Workouts.WorkoutTypes)
}

func TestHandler(t *testing.T) {
	store := storeWith(3)
	h := NewHandler(NewService(store, zap.NewNop().Sugar()), zap.NewNop().Sugar())
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/data/summary", h.Summary)
	mux.HandleFunc("GET /v1/data/{entity}", h.Range)
	user := uuid.New()

	do := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		ac := &auth.AuthContext{User: &userentity.User{ID: user}}
		req = req.WithContext(auth.WithContext(req.Context(), ac))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		return rec
	}

	rec := do("/v1/data/heart_rate?start=2025-01-01T00:00:00Z&limit=2&sort=asc")
	require.Equal(t, http.StatusOK, rec.Code)
	var page map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.EqualValues(t, 3, page["total_count"])
	assert.Len(t, page["data"], 2)
	assert.Equal(t, true, page["pagination"].(map[string]any)["has_next"])
	require.NotNil(t, store.calls[0].filter.Start)
	assert.Equal(t, 2025, store.calls[0].filter.Start.Year())

	rec = do("/v1/data/summary")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"counts":{"heart_rate":3}`)

	assert.Equal(t, http.StatusNotFound, do("/v1/data/steps").Code)
	assert.Equal(t, http.StatusBadRequest, do("/v1/data/sleep?start=yesterday").Code)
	assert.Equal(t, http.StatusBadRequest, do("/v1/data/sleep?limit=-1").Code)
	assert.Equal(t, http.StatusBadRequest, do("/v1/data/sleep?sort=sideways").Code)
	assert.Equal(t, http.StatusBadRequest,
		do("/v1/data/summary?start=2025-02-01T00:00:00Z&end=2025-01-01T00:00:00Z").Code)
}
