package entity

import (
	"time"

	"github.com/google/uuid"
)

// Summary is the body of GET /v1/data/summary. A section is nil when its
// aggregate query failed.
type Summary struct {
	UserID        uuid.UUID             `json:"user_id"`
	DateRange     DateRange             `json:"date_range"`
	Counts        map[string]int64      `json:"counts"`
	HeartRate     *HeartRateSummary     `json:"heart_rate,omitempty"`
	BloodPressure *BloodPressureSummary `json:"blood_pressure,omitempty"`
	Sleep         *SleepSummary         `json:"sleep,omitempty"`
	Activity      *ActivitySummary      `json:"activity,omitempty"`
	Workouts      *WorkoutSummary       `json:"workouts,omitempty"`
}

type DateRange struct {
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

type HeartRateSummary struct {
	Count      int64    `db:"count" json:"count"`
	AvgResting *float64 `db:"avg_resting" json:"avg_resting"`
	AvgActive  *float64 `db:"avg_active" json:"avg_active"`
	MinBPM     *int64   `db:"min_bpm" json:"min_bpm"`
	MaxBPM     *int64   `db:"max_bpm" json:"max_bpm"`
}

type BloodPressureSummary struct {
	Count         int64      `db:"count" json:"count"`
	AvgSystolic   *float64   `db:"avg_systolic" json:"avg_systolic"`
	AvgDiastolic  *float64   `db:"avg_diastolic" json:"avg_diastolic"`
	LatestReading *time.Time `db:"latest_reading" json:"latest_reading"`
}

type SleepSummary struct {
	Count            int64    `db:"count" json:"count"`
	AvgDurationHours *float64 `db:"avg_duration_hours" json:"avg_duration_hours"`
	AvgEfficiency    *float64 `db:"avg_efficiency" json:"avg_efficiency"`
	TotalSleepTime   *int64   `db:"total_sleep_time" json:"total_sleep_time"`
}

type ActivitySummary struct {
	Count           int64    `db:"count" json:"count"`
	TotalSteps      *int64   `db:"total_steps" json:"total_steps"`
	TotalDistanceKM *float64 `db:"total_distance_km" json:"total_distance_km"`
	TotalCalories   *float64 `db:"total_calories" json:"total_calories"`
	AvgDailySteps   *float64 `db:"avg_daily_steps" json:"avg_daily_steps"`
}

type WorkoutSummary struct {
	Count              int64    `db:"count" json:"count"`
	TotalDurationHours *float64 `db:"total_duration_hours" json:"total_duration_hours"`
	TotalCalories      *float64 `db:"total_calories" json:"total_calories"`
	WorkoutTypes       []string `db:"-" json:"workout_types"`
}
