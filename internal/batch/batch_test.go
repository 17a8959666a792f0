package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/config"
	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/metric"
)

// --- Statement building ---

func TestUpsertSQL_Shape(t *testing.T) {
	got := upsertSQL("blood_pressure_metrics", bloodPressures.columns, bloodPressures.conflict, 2)
	want := "INSERT INTO blood_pressure_metrics (user_id, recorded_at, systolic, diastolic, pulse, source_device) " +
		"VALUES ($1, $2, $3, $4, $5, $6), ($7, $8, $9, $10, $11, $12) " +
		"ON CONFLICT (user_id, recorded_at) DO UPDATE SET systolic = EXCLUDED.systolic, " +
		"diastolic = EXCLUDED.diastolic, pulse = EXCLUDED.pulse, source_device = EXCLUDED.source_device"
	assert.Equal(t, want, got)
}

func TestUpsertSQL_WorkoutKeepsID(t *testing.T) {
	got := upsertSQL("workouts", workouts.columns, workouts.conflict, 1)
	assert.NotContains(t, got, "id = EXCLUDED.id")
	assert.NotContains(t, got, "started_at = EXCLUDED")
	assert.Contains(t, got, "ended_at = EXCLUDED.ended_at")
}

func TestTables_ParamsMatchConfig(t *testing.T) {
	params := map[metric.Kind]int{
		metric.KindHeartRate:       heartRates.params(),
		metric.KindBloodPressure:   bloodPressures.params(),
		metric.KindSleep:           sleeps.params(),
		metric.KindActivity:        activities.params(),
		metric.KindBodyMeasurement: bodyMeasurements.params(),
		metric.KindWorkout:         workouts.params(),
		metric.KindWorkoutRoute:    routePoints.params(),
		metric.KindMetabolic:       metabolics.params(),
		metric.KindRespiratory:     respiratories.params(),
		metric.KindBloodGlucose:    bloodGlucoses.params(),
		metric.KindNutrition:       nutritions.params(),
		metric.KindEnvironmental:   environmentals.params(),
		metric.KindAudioExposure:   audioExposures.params(),
		metric.KindMindfulness:     mindfulness.params(),
		metric.KindMentalHealth:    mentalHealth.params(),
		metric.KindSymptom:         symptoms.params(),
		metric.KindHeartRateEvent:  heartRateEvents.params(),
		metric.KindSafetyEvent:     safetyEvents.params(),
	}
	cfg := config.DefaultBatchConfig()
	for _, s := range cfg.ChunkSettings() {
		k, ok := metric.ParseKind(s.Name)
		require.True(t, ok, s.Name)
		assert.Equal(t, s.Params, params[k], s.Name)
	}
	assert.Len(t, params, len(metric.Kinds))
}

func TestTables_ArgsMatchColumns(t *testing.T) {
	assert.Len(t, heartRates.args(&metric.HeartRate{}), heartRates.params())
	assert.Len(t, sleeps.args(&metric.Sleep{}), sleeps.params())
	assert.Len(t, activities.args(&metric.Activity{}), activities.params())
	assert.Len(t, nutritions.args(&metric.Nutrition{}), nutritions.params())
	assert.Len(t, environmentals.args(&metric.Environmental{}), environmentals.params())
	assert.Len(t, routePoints.args(&metric.WorkoutRoutePoint{}), routePoints.params())
	assert.Len(t, symptoms.args(&metric.Symptom{}), symptoms.params())
	assert.Len(t, safetyEvents.args(&metric.SafetyEvent{}), safetyEvents.params())
}

func TestBuildUpsert_RejectsOverLimit(t *testing.T) {
	rows := make([]*metric.HeartRate, config.MaxSafeChunk(config.HeartRateParams)+1)
	_, err := buildUpsert(heartRates, rows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds safe limit")

	_, err = buildUpsert(heartRates, nil)
	assert.Error(t, err)
}

func TestPlan_ClampsOversizedChunk(t *testing.T) {
	rows := make([]*metric.Activity, 3000)
	for i := range rows {
		rows[i] = &metric.Activity{}
	}
	chunks := plan(activities, rows, 100000, false)
	require.Len(t, chunks, 2)
	assert.Equal(t, 2759, chunks[0].rows())
	assert.Equal(t, 241, chunks[1].rows())
	assert.Equal(t, 2, chunks[1].total)
}

func TestRouteSummaryStatement(t *testing.T) {
	s := metric.RouteSummary{PointCount: 2, DistanceMeters: 111}
	plain := routeSummaryStatement("w", s, "LINESTRING(4 52,4 52.001)", false)
	assert.NotContains(t, plain.SQL, "route_geometry")
	assert.Len(t, plain.Args, 8)

	geo := routeSummaryStatement("w", s, "LINESTRING(4 52,4 52.001)", true)
	assert.Contains(t, geo.SQL, "ST_GeomFromText($9, 4326)")
	assert.Len(t, geo.Args, 9)

	short := routeSummaryStatement("w", s, "", true)
	assert.NotContains(t, short.SQL, "route_geometry")
}

// --- Dedup ---

func TestDedup_FirstWinsAndIsIdempotent(t *testing.T) {
	rows := []*metric.HeartRate{hr(t0, 70), hr(t0.Add(time.Minute), 71), hr(t0, 80)}
	for _, r := range rows {
		r.SetUser(testUser)
	}
	once, n := Dedup(rows)
	require.Len(t, once, 2)
	assert.Equal(t, 1, n)
	assert.Equal(t, 70, *once[0].HeartRate)

	twice, n2 := Dedup(once)
	assert.Equal(t, once, twice)
	assert.Zero(t, n2)
}

func TestDedup_DifferentUsersAreDistinct(t *testing.T) {
	a, b := hr(t0, 70), hr(t0, 70)
	a.SetUser(testUser)
	_, n := Dedup([]*metric.HeartRate{a, b})
	assert.Zero(t, n)
}

func TestCollapseLast(t *testing.T) {
	rows := []*metric.HeartRate{hr(t0, 70), hr(t0.Add(time.Minute), 71), hr(t0, 80)}
	out := collapseLast(rows)
	require.Len(t, out, 2)
	assert.Equal(t, 71, *out[0].HeartRate)
	assert.Equal(t, 80, *out[1].HeartRate)
}

// --- Errors and retry ---

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"serialization", &pgconn.PgError{Code: "40001"}, true},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, true},
		{"connection failure", &pgconn.PgError{Code: "08006"}, true},
		{"admin shutdown", &pgconn.PgError{Code: "57P01"}, true},
		{"too many connections", &pgconn.PgError{Code: "53300"}, true},
		{"wrapped", fmt.Errorf("exec: %w", &pgconn.PgError{Code: "40001"}), true},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"out of range", &pgconn.PgError{Code: "22003"}, false},
		{"network", &net.OpError{Op: "dial", Err: errors.New("connection refused")}, true},
		{"canceled", context.Canceled, false},
		{"plain", errors.New("boom"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestRetryPolicy_Backoff(t *testing.T) {
	p := RetryPolicy{MaxRetries: 3, Initial: 100 * time.Millisecond, Max: 5 * time.Second}
	assert.Equal(t, 100*time.Millisecond, p.Backoff(0))
	assert.Equal(t, 200*time.Millisecond, p.Backoff(1))
	assert.Equal(t, 400*time.Millisecond, p.Backoff(2))
	assert.Equal(t, 5*time.Second, p.Backoff(6))
	assert.Equal(t, 5*time.Second, p.Backoff(64))
}

func TestJitter_StaysInRange(t *testing.T) {
	for i := 0; i < 200; i++ {
		d := jitter(time.Second)
		assert.GreaterOrEqual(t, d, 500*time.Millisecond)
		assert.LessOrEqual(t, d, time.Second)
	}
	assert.Equal(t, time.Duration(0), jitter(0))
}

func TestChunkError_Unwraps(t *testing.T) {
	inner := &pgconn.PgError{Code: "23503"}
	err := error(&ChunkError{Variant: "Sleep", ChunkIndex: 2, Start: 10, End: 20, Err: inner})
	var pgErr *pgconn.PgError
	assert.True(t, errors.As(err, &pgErr))
	assert.Contains(t, err.Error(), "Sleep chunk 2 rows [10, 20)")
}

// --- Result ---

func TestDedupStats_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(DedupStats{Duplicates: map[string]int{"heart_rate": 2, "sleep": 0}, Total: 2, ElapsedMS: 3})
	require.NoError(t, err)
	var got map[string]int
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, map[string]int{
		"heart_rate_duplicates": 2,
		"sleep_duplicates":      0,
		"total_duplicates":      2,
		"deduplication_time_ms": 3,
	}, got)
}

func TestResult_Truncated(t *testing.T) {
	r := &Result{FailedCount: 5}
	for i := 0; i < 4; i++ {
		r.Errors = append(r.Errors, indexed("HeartRate", i, "bad"))
	}
	r.Errors = append(r.Errors, indexed("Sleep", 0, "bad"))

	out := r.Truncated(2)
	assert.True(t, out.ErrorsTruncated)
	require.Len(t, out.Errors, 3)
	assert.Equal(t, 1, *out.Errors[1].Index)
	assert.Equal(t, "Sleep", out.Errors[2].Variant)
	assert.Len(t, r.Errors, 5, "original untouched")

	assert.False(t, r.Truncated(10).ErrorsTruncated)
}

func TestResult_Status(t *testing.T) {
	assert.Equal(t, "completed", (&Result{ProcessedCount: 3}).Status())
	assert.Equal(t, "partial_failure", (&Result{ProcessedCount: 3, FailedCount: 1}).Status())
	assert.Equal(t, "error", (&Result{FailedCount: 1}).Status())
}

func TestMemTracker_Peak(t *testing.T) {
	m := newMemTracker(1 << 20)
	m.add(1 << 20)
	m.add(-(1 << 20))
	assert.Equal(t, 2.0, m.peakMB())
}
