package config

import (
	"errors"
	"time"
)

// IngestConfig controls the request path of POST /v1/ingest.
type IngestConfig struct {
	HTTPAddr              string        `yaml:"http_addr"`
	MetricsAddr           string        `yaml:"metrics_addr"`
	MaxRequestBytes       int64         `yaml:"max_request_bytes"`
	AsyncThresholdMetrics int           `yaml:"async_threshold_metrics"`
	AsyncThresholdBytes   int64         `yaml:"async_threshold_bytes"`
	RequestTimeout        time.Duration `yaml:"request_timeout"`
	MaxErrorsPerVariant   int           `yaml:"max_errors_per_variant"`
}

// IngestConfigFromEnv reads the ingest options.
func IngestConfigFromEnv() IngestConfig {
	return IngestConfig{
		HTTPAddr:              getEnv("HTTP_ADDR", "0.0.0.0:8431"),
		MetricsAddr:           getEnv("METRICS_ADDR", ":9090"),
		MaxRequestBytes:       parseInt64("MAX_REQUEST_BYTES", 100*1024*1024),
		AsyncThresholdMetrics: parseInt("ASYNC_THRESHOLD_METRICS", 20000),
		AsyncThresholdBytes:   parseInt64("ASYNC_THRESHOLD_BYTES", 10*1024*1024),
		RequestTimeout:        parseSeconds("REQUEST_TIMEOUT_SECONDS", 30*time.Second),
		MaxErrorsPerVariant:   parseInt("MAX_ERRORS_PER_VARIANT", 50),
	}
}

func (c *IngestConfig) Validate() error {
	if c.MaxRequestBytes <= 0 {
		return errors.New("max request bytes must be > 0")
	}
	if c.AsyncThresholdMetrics <= 0 || c.AsyncThresholdBytes <= 0 {
		return errors.New("async thresholds must be > 0")
	}
	if c.MaxErrorsPerVariant <= 0 {
		return errors.New("max errors per variant must be > 0")
	}
	return nil
}

// RateLimitConfig configures the three sliding-window limiters.
type RateLimitConfig struct {
	RedisURL            string        `yaml:"redis_url"`
	KeyRequestsPerHour  int           `yaml:"key_requests_per_hour"`
	UserRequestsPerHour int           `yaml:"user_requests_per_hour"`
	IPRequestsPerHour   int           `yaml:"ip_requests_per_hour"`
	Window              time.Duration `yaml:"window"`
	CacheTimeout        time.Duration `yaml:"cache_timeout"`
	CleanupInterval     time.Duration `yaml:"cleanup_interval"`
}

// RateLimitConfigFromEnv reads the limiter options; the per-user limit
// defaults to the per-key limit.
func RateLimitConfigFromEnv() RateLimitConfig {
	perKey := parseInt("RATE_LIMIT_REQUESTS_PER_HOUR", 100)
	return RateLimitConfig{
		RedisURL:            getEnv("REDIS_URL", ""),
		KeyRequestsPerHour:  perKey,
		UserRequestsPerHour: parseInt("RATE_LIMIT_USER_REQUESTS_PER_HOUR", perKey),
		IPRequestsPerHour:   parseInt("RATE_LIMIT_IP_REQUESTS_PER_HOUR", 200),
		Window:              time.Hour,
		CacheTimeout:        parseMillis("RATE_LIMIT_CACHE_TIMEOUT_MS", 50*time.Millisecond),
		CleanupInterval:     parseSeconds("RATE_LIMIT_CLEANUP_INTERVAL_SECONDS", 5*time.Minute),
	}
}

// RunnerConfig configures the async job runner.
type RunnerConfig struct {
	Enabled         bool          `yaml:"enabled"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	MaxConcurrent   int           `yaml:"max_concurrent"`
	RetentionDays   int           `yaml:"retention_days"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
	DrainTimeout    time.Duration `yaml:"drain_timeout"`
}

// RunnerConfigFromEnv reads JOB_* options.
func RunnerConfigFromEnv() RunnerConfig {
	return RunnerConfig{
		Enabled:         parseBool("JOB_RUNNER_ENABLED", true),
		PollInterval:    parseMillis("JOB_POLL_INTERVAL_MS", time.Second),
		MaxConcurrent:   parseInt("JOB_MAX_CONCURRENT", 5),
		RetentionDays:   parseInt("JOB_RETENTION_DAYS", 30),
		CleanupInterval: time.Duration(parseInt("JOB_CLEANUP_INTERVAL_MINUTES", 60)) * time.Minute,
		DrainTimeout:    parseSeconds("JOB_DRAIN_TIMEOUT_SECONDS", 30*time.Second),
	}
}

// ArchiveConfig enables copying raw payloads to object storage when Bucket is set.
type ArchiveConfig struct {
	Bucket   string `yaml:"bucket"`
	Prefix   string `yaml:"prefix"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
}

func ArchiveConfigFromEnv() ArchiveConfig {
	return ArchiveConfig{
		Bucket:   getEnv("RAW_ARCHIVE_BUCKET", ""),
		Prefix:   getEnv("RAW_ARCHIVE_PREFIX", "raw-ingestions/"),
		Region:   getEnv("RAW_ARCHIVE_REGION", "us-east-1"),
		Endpoint: getEnv("RAW_ARCHIVE_ENDPOINT", ""),
	}
}

// AuthConfig holds the server-side secret mixed into API key hashes.
type AuthConfig struct {
	Pepper string `yaml:"-"`
}

func AuthConfigFromEnv() AuthConfig {
	return AuthConfig{Pepper: getEnv("API_KEY_PEPPER", "health-ingest")}
}
