package config

import (
	"encoding/json"
	"fmt"
	"runtime"
	"time"
)

const (
	// PostgresMaxParams is the hard cap on bind parameters in one statement.
	PostgresMaxParams = 65535
	// SafeParamLimit leaves a 20% margin under PostgresMaxParams.
	SafeParamLimit = PostgresMaxParams * 8 / 10
)

// Bind parameters per row for each upserted table.
const (
	HeartRateParams       = 10
	BloodPressureParams   = 6
	SleepParams           = 10
	ActivityParams        = 19
	BodyMeasurementParams = 16
	WorkoutParams         = 10
	WorkoutRouteParams    = 8
	MetabolicParams       = 6
	RespiratoryParams     = 7
	BloodGlucoseParams    = 8
	NutritionParams       = 19
	EnvironmentalParams   = 14
	AudioExposureParams   = 7
	MindfulnessParams     = 9
	MentalHealthParams    = 10
	SymptomParams         = 9
	HeartRateEventParams  = 9
	SafetyEventParams     = 8
)

// MaxSafeChunk returns the largest chunk for params bind parameters per row.
func MaxSafeChunk(params int) int {
	if params <= 0 {
		return 0
	}
	return SafeParamLimit / params
}

// BatchConfig controls chunking, retry and parallelism of batch inserts.
// The json tags double as the shape of a per-job override.
type BatchConfig struct {
	MaxRetries       int     `json:"max_retries" yaml:"max_retries"`
	InitialBackoffMS int64   `json:"initial_backoff_ms" yaml:"initial_backoff_ms"`
	MaxBackoffMS     int64   `json:"max_backoff_ms" yaml:"max_backoff_ms"`
	MemoryLimitMB    float64 `json:"memory_limit_mb" yaml:"memory_limit_mb"`
	MaxParallel      int     `json:"max_parallel" yaml:"max_parallel"`

	EnableParallel bool `json:"enable_parallel_processing" yaml:"enable_parallel_processing"`
	EnableProgress bool `json:"enable_progress_tracking" yaml:"enable_progress_tracking"`
	EnableDedup    bool `json:"enable_deduplication" yaml:"enable_deduplication"`

	HeartRateChunkSize       int `json:"heart_rate_chunk_size" yaml:"heart_rate_chunk_size"`
	BloodPressureChunkSize   int `json:"blood_pressure_chunk_size" yaml:"blood_pressure_chunk_size"`
	SleepChunkSize           int `json:"sleep_chunk_size" yaml:"sleep_chunk_size"`
	ActivityChunkSize        int `json:"activity_chunk_size" yaml:"activity_chunk_size"`
	BodyMeasurementChunkSize int `json:"body_measurement_chunk_size" yaml:"body_measurement_chunk_size"`
	WorkoutChunkSize         int `json:"workout_chunk_size" yaml:"workout_chunk_size"`
	WorkoutRouteChunkSize    int `json:"workout_route_chunk_size" yaml:"workout_route_chunk_size"`
	MetabolicChunkSize       int `json:"metabolic_chunk_size" yaml:"metabolic_chunk_size"`
	RespiratoryChunkSize     int `json:"respiratory_chunk_size" yaml:"respiratory_chunk_size"`
	BloodGlucoseChunkSize    int `json:"blood_glucose_chunk_size" yaml:"blood_glucose_chunk_size"`
	NutritionChunkSize       int `json:"nutrition_chunk_size" yaml:"nutrition_chunk_size"`
	EnvironmentalChunkSize   int `json:"environmental_chunk_size" yaml:"environmental_chunk_size"`
	AudioExposureChunkSize   int `json:"audio_exposure_chunk_size" yaml:"audio_exposure_chunk_size"`
	MindfulnessChunkSize     int `json:"mindfulness_chunk_size" yaml:"mindfulness_chunk_size"`
	MentalHealthChunkSize    int `json:"mental_health_chunk_size" yaml:"mental_health_chunk_size"`
	SymptomChunkSize         int `json:"symptom_chunk_size" yaml:"symptom_chunk_size"`
	HeartRateEventChunkSize  int `json:"heart_rate_event_chunk_size" yaml:"heart_rate_event_chunk_size"`
	SafetyEventChunkSize     int `json:"safety_event_chunk_size" yaml:"safety_event_chunk_size"`
}

// ChunkSetting pairs a table's configured chunk size with its row width.
type ChunkSetting struct {
	Name   string
	Size   int
	Params int
}

// MaxChunkParallel caps concurrent chunk upserts within one batch.
const MaxChunkParallel = 5

// ParallelCap is min(MaxChunkParallel, NumCPU), never below 1.
func ParallelCap() int {
	n := runtime.NumCPU()
	if n > MaxChunkParallel {
		return MaxChunkParallel
	}
	if n < 1 {
		return 1
	}
	return n
}

// DefaultBatchConfig returns chunk sizes at the safe maximum for each table.
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		MaxRetries:       3,
		InitialBackoffMS: 100,
		MaxBackoffMS:     5000,
		MemoryLimitMB:    500,
		MaxParallel:      ParallelCap(),

		EnableParallel: true,
		EnableProgress: true,
		EnableDedup:    true,

		HeartRateChunkSize:       MaxSafeChunk(HeartRateParams),
		BloodPressureChunkSize:   MaxSafeChunk(BloodPressureParams),
		SleepChunkSize:           MaxSafeChunk(SleepParams),
		ActivityChunkSize:        MaxSafeChunk(ActivityParams),
		BodyMeasurementChunkSize: MaxSafeChunk(BodyMeasurementParams),
		WorkoutChunkSize:         MaxSafeChunk(WorkoutParams),
		WorkoutRouteChunkSize:    MaxSafeChunk(WorkoutRouteParams),
		MetabolicChunkSize:       MaxSafeChunk(MetabolicParams),
		RespiratoryChunkSize:     MaxSafeChunk(RespiratoryParams),
		BloodGlucoseChunkSize:    MaxSafeChunk(BloodGlucoseParams),
		NutritionChunkSize:       MaxSafeChunk(NutritionParams),
		EnvironmentalChunkSize:   MaxSafeChunk(EnvironmentalParams),
		AudioExposureChunkSize:   MaxSafeChunk(AudioExposureParams),
		MindfulnessChunkSize:     MaxSafeChunk(MindfulnessParams),
		MentalHealthChunkSize:    MaxSafeChunk(MentalHealthParams),
		SymptomChunkSize:         MaxSafeChunk(SymptomParams),
		HeartRateEventChunkSize:  MaxSafeChunk(HeartRateEventParams),
		SafetyEventChunkSize:     MaxSafeChunk(SafetyEventParams),
	}
}

// BatchConfigFromEnv reads BATCH_* overrides on top of the defaults.
func BatchConfigFromEnv() BatchConfig {
	d := DefaultBatchConfig()
	return BatchConfig{
		MaxRetries:       parseInt("BATCH_MAX_RETRIES", d.MaxRetries),
		InitialBackoffMS: parseInt64("BATCH_INITIAL_BACKOFF_MS", d.InitialBackoffMS),
		MaxBackoffMS:     parseInt64("BATCH_MAX_BACKOFF_MS", d.MaxBackoffMS),
		MemoryLimitMB:    parseFloat("BATCH_MEMORY_LIMIT_MB", d.MemoryLimitMB),
		MaxParallel:      parseInt("BATCH_MAX_PARALLEL", d.MaxParallel),

		EnableParallel: parseBool("BATCH_ENABLE_PARALLEL", d.EnableParallel),
		EnableProgress: parseBool("BATCH_ENABLE_PROGRESS", d.EnableProgress),
		EnableDedup:    parseBool("BATCH_ENABLE_DEDUP", d.EnableDedup),

		HeartRateChunkSize:       parseInt("BATCH_HEART_RATE_CHUNK_SIZE", d.HeartRateChunkSize),
		BloodPressureChunkSize:   parseInt("BATCH_BLOOD_PRESSURE_CHUNK_SIZE", d.BloodPressureChunkSize),
		SleepChunkSize:           parseInt("BATCH_SLEEP_CHUNK_SIZE", d.SleepChunkSize),
		ActivityChunkSize:        parseInt("BATCH_ACTIVITY_CHUNK_SIZE", d.ActivityChunkSize),
		BodyMeasurementChunkSize: parseInt("BATCH_BODY_MEASUREMENT_CHUNK_SIZE", d.BodyMeasurementChunkSize),
		WorkoutChunkSize:         parseInt("BATCH_WORKOUT_CHUNK_SIZE", d.WorkoutChunkSize),
		WorkoutRouteChunkSize:    parseInt("BATCH_WORKOUT_ROUTE_CHUNK_SIZE", d.WorkoutRouteChunkSize),
		MetabolicChunkSize:       parseInt("BATCH_METABOLIC_CHUNK_SIZE", d.MetabolicChunkSize),
		RespiratoryChunkSize:     parseInt("BATCH_RESPIRATORY_CHUNK_SIZE", d.RespiratoryChunkSize),
		BloodGlucoseChunkSize:    parseInt("BATCH_BLOOD_GLUCOSE_CHUNK_SIZE", d.BloodGlucoseChunkSize),
		NutritionChunkSize:       parseInt("BATCH_NUTRITION_CHUNK_SIZE", d.NutritionChunkSize),
		EnvironmentalChunkSize:   parseInt("BATCH_ENVIRONMENTAL_CHUNK_SIZE", d.EnvironmentalChunkSize),
		AudioExposureChunkSize:   parseInt("BATCH_AUDIO_EXPOSURE_CHUNK_SIZE", d.AudioExposureChunkSize),
		MindfulnessChunkSize:     parseInt("BATCH_MINDFULNESS_CHUNK_SIZE", d.MindfulnessChunkSize),
		MentalHealthChunkSize:    parseInt("BATCH_MENTAL_HEALTH_CHUNK_SIZE", d.MentalHealthChunkSize),
		SymptomChunkSize:         parseInt("BATCH_SYMPTOM_CHUNK_SIZE", d.SymptomChunkSize),
		HeartRateEventChunkSize:  parseInt("BATCH_HEART_RATE_EVENT_CHUNK_SIZE", d.HeartRateEventChunkSize),
		SafetyEventChunkSize:     parseInt("BATCH_SAFETY_EVENT_CHUNK_SIZE", d.SafetyEventChunkSize),
	}
}

// ChunkSettings lists every table's chunk size and parameter width.
func (c *BatchConfig) ChunkSettings() []ChunkSetting {
	return []ChunkSetting{
		{"heart_rate", c.HeartRateChunkSize, HeartRateParams},
		{"blood_pressure", c.BloodPressureChunkSize, BloodPressureParams},
		{"sleep", c.SleepChunkSize, SleepParams},
		{"activity", c.ActivityChunkSize, ActivityParams},
		{"body_measurement", c.BodyMeasurementChunkSize, BodyMeasurementParams},
		{"workout", c.WorkoutChunkSize, WorkoutParams},
		{"workout_route", c.WorkoutRouteChunkSize, WorkoutRouteParams},
		{"metabolic", c.MetabolicChunkSize, MetabolicParams},
		{"respiratory", c.RespiratoryChunkSize, RespiratoryParams},
		{"blood_glucose", c.BloodGlucoseChunkSize, BloodGlucoseParams},
		{"nutrition", c.NutritionChunkSize, NutritionParams},
		{"environmental", c.EnvironmentalChunkSize, EnvironmentalParams},
		{"audio_exposure", c.AudioExposureChunkSize, AudioExposureParams},
		{"mindfulness", c.MindfulnessChunkSize, MindfulnessParams},
		{"mental_health", c.MentalHealthChunkSize, MentalHealthParams},
		{"symptom", c.SymptomChunkSize, SymptomParams},
		{"heart_rate_event", c.HeartRateEventChunkSize, HeartRateEventParams},
		{"safety_event", c.SafetyEventChunkSize, SafetyEventParams},
	}
}

// Validate fails when any chunk would exceed SafeParamLimit bind parameters.
func (c *BatchConfig) Validate() error {
	for _, s := range c.ChunkSettings() {
		if s.Size <= 0 {
			return fmt.Errorf("%s chunk size must be positive, got %d", s.Name, s.Size)
		}
		if total := s.Size * s.Params; total > SafeParamLimit {
			return fmt.Errorf("%s chunk size %d x %d params = %d exceeds safe limit %d (max chunk %d)",
				s.Name, s.Size, s.Params, total, SafeParamLimit, MaxSafeChunk(s.Params))
		}
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries must be non-negative, got %d", c.MaxRetries)
	}
	if c.InitialBackoffMS <= 0 || c.MaxBackoffMS < c.InitialBackoffMS {
		return fmt.Errorf("invalid backoff window [%d, %d] ms", c.InitialBackoffMS, c.MaxBackoffMS)
	}
	if c.MemoryLimitMB <= 0 {
		return fmt.Errorf("memory limit must be positive, got %v", c.MemoryLimitMB)
	}
	if c.MaxParallel <= 0 || c.MaxParallel > MaxChunkParallel {
		return fmt.Errorf("max parallel must be in [1, %d], got %d", MaxChunkParallel, c.MaxParallel)
	}
	return nil
}

// InitialBackoff returns the first retry delay.
func (c *BatchConfig) InitialBackoff() time.Duration {
	return time.Duration(c.InitialBackoffMS) * time.Millisecond
}

// MaxBackoff returns the retry delay ceiling.
func (c *BatchConfig) MaxBackoff() time.Duration {
	return time.Duration(c.MaxBackoffMS) * time.Millisecond
}

// WithOverride returns a copy of c with the fields present in raw replaced.
// The result is validated so an override cannot lift chunks past the safe limit.
func (c BatchConfig) WithOverride(raw json.RawMessage) (BatchConfig, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return c, nil
	}
	out := c
	if err := json.Unmarshal(raw, &out); err != nil {
		return c, fmt.Errorf("decode batch override: %w", err)
	}
	if err := out.Validate(); err != nil {
		return c, fmt.Errorf("batch override: %w", err)
	}
	return out, nil
}
