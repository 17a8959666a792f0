package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/metric"
	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/query/entity"
)

// Filter selects one user's rows of a variant. Nil bounds are open.
type Filter struct {
	User  uuid.UUID
	Start *time.Time
	End   *time.Time
}

// Repo runs read queries against the metric tables.
type Repo struct {
	db *sqlx.DB
}

func NewRepo(db *sqlx.DB) *Repo {
	return &Repo{db: db}
}

// source returns the FROM clause and the qualified user and time columns of
// k. Route points carry no user_id and are scoped through their workout.
func source(k metric.Kind) (from, userCol, timeCol string) {
	if k == metric.KindWorkoutRoute {
		return "workout_route_points t JOIN workouts w ON w.id = t.workout_id", "w.user_id", "t.recorded_at"
	}
	return k.Table() + " t", "t.user_id", "t." + k.TimeColumn()
}

// whereClause builds the WHERE clause for f with positional args from $1.
func whereClause(k metric.Kind, f Filter) (string, []any) {
	_, userCol, timeCol := source(k)
	conds := []string{userCol + " = $1"}
	args := []any{f.User}
	if f.Start != nil {
		args = append(args, *f.Start)
		conds = append(conds, fmt.Sprintf("%s >= $%d", timeCol, len(args)))
	}
	if f.End != nil {
		args = append(args, *f.End)
		conds = append(conds, fmt.Sprintf("%s <= $%d", timeCol, len(args)))
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// CountQuery returns the SQL counting rows matching f.
func CountQuery(k metric.Kind, f Filter) (string, []any) {
	from, _, _ := source(k)
	where, args := whereClause(k, f)
	return "SELECT COUNT(*) FROM " + from + where, args
}

// RowsQuery returns the SQL selecting one page of rows as JSON objects.
func RowsQuery(k metric.Kind, f Filter, limit, offset int, desc bool) (string, []any) {
	from, _, timeCol := source(k)
	where, args := whereClause(k, f)
	dir := "ASC"
	if desc {
		dir = "DESC"
	}
	order := timeCol + " " + dir
	if k == metric.KindWorkoutRoute {
		order += ", t.workout_id, t.point_order"
	}
	args = append(args, limit, offset)
	q := fmt.Sprintf("SELECT row_to_json(t) FROM %s%s ORDER BY %s LIMIT $%d OFFSET $%d",
		from, where, order, len(args)-1, len(args))
	return q, args
}

func (r *Repo) Count(ctx context.Context, k metric.Kind, f Filter) (int64, error) {
	q, args := CountQuery(k, f)
	var n int64
	if err := r.db.GetContext(ctx, &n, q, args...); err != nil {
		return 0, fmt.Errorf("count %s: %w", k.Table(), err)
	}
	return n, nil
}

func (r *Repo) Rows(ctx context.Context, k metric.Kind, f Filter, limit, offset int, desc bool) ([]json.RawMessage, error) {
	q, args := RowsQuery(k, f, limit, offset, desc)
	rows, err := r.db.QueryxContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", k.Table(), err)
	}
	defer rows.Close()

	out := []json.RawMessage{}
	for rows.Next() {
		var b []byte
		if err := rows.Scan(&b); err != nil {
			return nil, err
		}
		out = append(out, json.RawMessage(b))
	}
	return out, rows.Err()
}

// Counts returns the number of rows per variant slug for the user in range.
func (r *Repo) Counts(ctx context.Context, user uuid.UUID, start, end time.Time) (map[string]int64, error) {
	parts := make([]string, 0, len(metric.Kinds))
	for _, k := range metric.Kinds {
		from, userCol, timeCol := source(k)
		parts = append(parts, fmt.Sprintf("SELECT '%s' AS kind, COUNT(*) AS n FROM %s WHERE %s = $1 AND %s BETWEEN $2 AND $3",
			k.Slug(), from, userCol, timeCol))
	}
	var rows []struct {
		Kind string `db:"kind"`
		N    int64  `db:"n"`
	}
	if err := r.db.SelectContext(ctx, &rows, strings.Join(parts, " UNION ALL "), user, start, end); err != nil {
		return nil, fmt.Errorf("count metrics: %w", err)
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Kind] = row.N
	}
	return out, nil
}

func (r *Repo) HeartRate(ctx context.Context, user uuid.UUID, start, end time.Time) (*entity.HeartRateSummary, error) {
	var s entity.HeartRateSummary
	err := r.db.GetContext(ctx, &s, `SELECT COUNT(*) AS count,
		AVG(CASE WHEN context = 'resting' THEN resting_heart_rate END)::float8 AS avg_resting,
		AVG(CASE WHEN context IS DISTINCT FROM 'resting' THEN heart_rate END)::float8 AS avg_active,
		MIN(heart_rate) AS min_bpm, MAX(heart_rate) AS max_bpm
		FROM heart_rate_metrics WHERE user_id = $1 AND recorded_at BETWEEN $2 AND $3`, user, start, end)
	if err != nil {
		return nil, fmt.Errorf("heart rate summary: %w", err)
	}
	return &s, nil
}

func (r *Repo) BloodPressure(ctx context.Context, user uuid.UUID, start, end time.Time) (*entity.BloodPressureSummary, error) {
	var s entity.BloodPressureSummary
	err := r.db.GetContext(ctx, &s, `SELECT COUNT(*) AS count,
		AVG(systolic)::float8 AS avg_systolic, AVG(diastolic)::float8 AS avg_diastolic,
		MAX(recorded_at) AS latest_reading
		FROM blood_pressure_metrics WHERE user_id = $1 AND recorded_at BETWEEN $2 AND $3`, user, start, end)
	if err != nil {
		return nil, fmt.Errorf("blood pressure summary: %w", err)
	}
	return &s, nil
}

func (r *Repo) Sleep(ctx context.Context, user uuid.UUID, start, end time.Time) (*entity.SleepSummary, error) {
	var s entity.SleepSummary
	err := r.db.GetContext(ctx, &s, `SELECT COUNT(*) AS count,
		AVG(duration_minutes / 60.0)::float8 AS avg_duration_hours,
		AVG(efficiency)::float8 AS avg_efficiency,
		SUM(duration_minutes) AS total_sleep_time
		FROM sleep_metrics WHERE user_id = $1 AND sleep_start BETWEEN $2 AND $3`, user, start, end)
	if err != nil {
		return nil, fmt.Errorf("sleep summary: %w", err)
	}
	return &s, nil
}

func (r *Repo) Activity(ctx context.Context, user uuid.UUID, start, end time.Time) (*entity.ActivitySummary, error) {
	var s entity.ActivitySummary
	err := r.db.GetContext(ctx, &s, `SELECT COUNT(*) AS count,
		SUM(step_count) AS total_steps,
		(SUM(distance_meters) / 1000.0)::float8 AS total_distance_km,
		SUM(active_energy_burned_kcal)::float8 AS total_calories,
		AVG(step_count)::float8 AS avg_daily_steps
		FROM activity_metrics WHERE user_id = $1 AND recorded_date BETWEEN $2::date AND $3::date`, user, start, end)
	if err != nil {
		return nil, fmt.Errorf("activity summary: %w", err)
	}
	return &s, nil
}

func (r *Repo) Workouts(ctx context.Context, user uuid.UUID, start, end time.Time) (*entity.WorkoutSummary, error) {
	var s entity.WorkoutSummary
	var types pq.StringArray
	err := r.db.QueryRowxContext(ctx, `SELECT COUNT(*),
		(SUM(EXTRACT(EPOCH FROM (ended_at - started_at))) / 3600.0)::float8,
		SUM(total_energy_kcal)::float8,
		array_remove(array_agg(DISTINCT workout_type::text), NULL)
		FROM workouts WHERE user_id = $1 AND started_at BETWEEN $2 AND $3`, user, start, end).
		Scan(&s.Count, &s.TotalDurationHours, &s.TotalCalories, &types)
	if err != nil {
		return nil, fmt.Errorf("workout summary: %w", err)
	}
	s.WorkoutTypes = []string(types)
	if s.WorkoutTypes == nil {
		s.WorkoutTypes = []string{}
	}
	return &s, nil
}
