package config

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- ValidationConfig ---

func TestValidationConfig_DefaultsAreValid(t *testing.T) {
	cfg := DefaultValidationConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 15, cfg.HeartRateMin)
	assert.Equal(t, 300, cfg.HeartRateMax)
	assert.Equal(t, 60.0, cfg.OxygenSaturationMin)
	assert.Equal(t, 25.0, cfg.BodyTemperatureMin)
}

func TestValidationConfigFromEnv_Overrides(t *testing.T) {
	t.Setenv("VALIDATION_HEART_RATE_MAX", "250")
	t.Setenv("VALIDATION_OXYGEN_SATURATION_MIN", "85.5")
	cfg := ValidationConfigFromEnv()
	assert.Equal(t, 250, cfg.HeartRateMax)
	assert.Equal(t, 85.5, cfg.OxygenSaturationMin)
}

func TestValidationConfigFromEnv_InvalidFallsBack(t *testing.T) {
	t.Setenv("VALIDATION_HEART_RATE_MIN", "abc")
	t.Setenv("VALIDATION_BMI_MAX", "not-a-number")
	cfg := ValidationConfigFromEnv()
	assert.Equal(t, 15, cfg.HeartRateMin)
	assert.Equal(t, 50.0, cfg.BMIMax)
}

func TestValidationConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ValidationConfig)
		errSub string
	}{
		{"inverted heart rate", func(c *ValidationConfig) { c.HeartRateMin, c.HeartRateMax = 300, 15 }, "heart_rate"},
		{"latitude out of range", func(c *ValidationConfig) { c.LatitudeMax = 91 }, "latitude"},
		{"longitude out of range", func(c *ValidationConfig) { c.LongitudeMin = -181 }, "longitude"},
		{"percent over 100", func(c *ValidationConfig) { c.OxygenSaturationMax = 101 }, "oxygen_saturation"},
		{"negative steps", func(c *ValidationConfig) { c.StepCountMin = -1 }, "non-negative"},
		{"zero workout duration", func(c *ValidationConfig) { c.WorkoutMaxDurationHours = 0 }, "durations"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultValidationConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSub)
		})
	}
}

// --- BatchConfig ---

func TestMaxSafeChunk_Table(t *testing.T) {
	want := map[int]int{10: 5242, 6: 8738, 19: 2759, 16: 3276, 7: 7489, 14: 3744, 9: 5825, 8: 6553}
	for params, chunk := range want {
		assert.Equal(t, chunk, MaxSafeChunk(params), "params=%d", params)
	}
	assert.Equal(t, 52428, SafeParamLimit)
}

func TestBatchConfig_DefaultsStayUnderLimit(t *testing.T) {
	cfg := DefaultBatchConfig()
	require.NoError(t, cfg.Validate())
	for _, s := range cfg.ChunkSettings() {
		assert.LessOrEqual(t, s.Size*s.Params, SafeParamLimit, s.Name)
	}
	assert.Equal(t, 5242, cfg.HeartRateChunkSize)
	assert.Equal(t, 2759, cfg.ActivityChunkSize)
	assert.LessOrEqual(t, cfg.MaxParallel, 5)
}

func TestBatchConfig_ValidateRejectsOversizedChunk(t *testing.T) {
	cfg := DefaultBatchConfig()
	cfg.HeartRateChunkSize = 5243
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "heart_rate")
}

func TestBatchConfig_ValidateBoundsMaxParallel(t *testing.T) {
	for _, n := range []int{0, -1, MaxChunkParallel + 1, 64} {
		cfg := DefaultBatchConfig()
		cfg.MaxParallel = n
		err := cfg.Validate()
		require.Error(t, err, "max_parallel=%d", n)
		assert.Contains(t, err.Error(), "max parallel")
	}
	cfg := DefaultBatchConfig()
	cfg.MaxParallel = MaxChunkParallel
	assert.NoError(t, cfg.Validate())
}

func TestBatchConfigFromEnv_MaxParallelAboveCap(t *testing.T) {
	t.Setenv("BATCH_MAX_PARALLEL", "64")
	cfg := BatchConfigFromEnv()
	assert.Equal(t, 64, cfg.MaxParallel)
	require.Error(t, cfg.Validate())

	_, err := DefaultBatchConfig().WithOverride(json.RawMessage(`{"max_parallel": 64}`))
	require.Error(t, err)
}

func TestParallelCap(t *testing.T) {
	n := ParallelCap()
	assert.GreaterOrEqual(t, n, 1)
	assert.LessOrEqual(t, n, MaxChunkParallel)
	assert.Equal(t, n, DefaultBatchConfig().MaxParallel)
}

func TestBatchConfigFromEnv(t *testing.T) {
	t.Setenv("BATCH_HEART_RATE_CHUNK_SIZE", "1000")
	t.Setenv("BATCH_ENABLE_PARALLEL", "false")
	t.Setenv("BATCH_ENABLE_DEDUP", "0")
	t.Setenv("BATCH_MAX_RETRIES", "5")
	cfg := BatchConfigFromEnv()
	assert.Equal(t, 1000, cfg.HeartRateChunkSize)
	assert.False(t, cfg.EnableParallel)
	assert.False(t, cfg.EnableDedup)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, 100*time.Millisecond, cfg.InitialBackoff())
}

func TestBatchConfig_WithOverride(t *testing.T) {
	base := DefaultBatchConfig()

	out, err := base.WithOverride(json.RawMessage(`{"heart_rate_chunk_size": 100, "enable_parallel_processing": false}`))
	require.NoError(t, err)
	assert.Equal(t, 100, out.HeartRateChunkSize)
	assert.False(t, out.EnableParallel)
	assert.Equal(t, base.SleepChunkSize, out.SleepChunkSize)
	assert.True(t, base.EnableParallel, "base must not change")

	_, err = base.WithOverride(json.RawMessage(`{"activity_chunk_size": 10000}`))
	assert.Error(t, err)

	same, err := base.WithOverride(nil)
	require.NoError(t, err)
	assert.Equal(t, base, same)
}

// --- service configs ---

func TestRateLimitConfigFromEnv(t *testing.T) {
	t.Setenv("RATE_LIMIT_REQUESTS_PER_HOUR", "")
	t.Setenv("RATE_LIMIT_IP_REQUESTS_PER_HOUR", "")
	t.Setenv("RATE_LIMIT_USER_REQUESTS_PER_HOUR", "")
	cfg := RateLimitConfigFromEnv()
	assert.Equal(t, 100, cfg.KeyRequestsPerHour)
	assert.Equal(t, 100, cfg.UserRequestsPerHour)
	assert.Equal(t, 200, cfg.IPRequestsPerHour)
	assert.Equal(t, 50*time.Millisecond, cfg.CacheTimeout)

	t.Setenv("RATE_LIMIT_REQUESTS_PER_HOUR", "10")
	assert.Equal(t, 10, RateLimitConfigFromEnv().UserRequestsPerHour)
}

func TestIngestConfig(t *testing.T) {
	t.Setenv("ASYNC_THRESHOLD_METRICS", "42")
	cfg := IngestConfigFromEnv()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 42, cfg.AsyncThresholdMetrics)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)

	cfg.MaxErrorsPerVariant = 0
	assert.Error(t, cfg.Validate())
}

func TestRunnerConfigFromEnv(t *testing.T) {
	t.Setenv("JOB_MAX_CONCURRENT", "")
	cfg := RunnerConfigFromEnv()
	assert.Equal(t, 5, cfg.MaxConcurrent)
	assert.Equal(t, 30, cfg.RetentionDays)
	assert.True(t, cfg.Enabled)
}
