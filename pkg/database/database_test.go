package database

import (
	"io/fs"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigFromEnv_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	cfg := ConfigFromEnv()
	assert.Contains(t, cfg.DSN, "localhost:5432")
	assert.Equal(t, 25, cfg.MaxConns)
	assert.Equal(t, 5, cfg.MinConns)
	assert.Equal(t, 10*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, 30*time.Minute, cfg.MaxLifetime)
	assert.False(t, cfg.AutoMigrate)
}

func TestConfigFromEnv_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://app:secret@db:5432/health")
	t.Setenv("DATABASE_MAX_CONNECTIONS", "50")
	t.Setenv("DATABASE_MIN_CONNECTIONS", "nope")
	t.Setenv("DATABASE_CONNECT_TIMEOUT", "3")
	t.Setenv("DATABASE_STATEMENT_TIMEOUT_SECONDS", "20")
	t.Setenv("DATABASE_AUTO_MIGRATE", "true")

	cfg := ConfigFromEnv()
	assert.Equal(t, 50, cfg.MaxConns)
	assert.Equal(t, 5, cfg.MinConns, "unparsable values fall back to the default")
	assert.Equal(t, 3*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, 20*time.Second, cfg.StatementTimeout)
	assert.True(t, cfg.AutoMigrate)
	assert.Equal(t, "postgres://app:xxxxx@db:5432/health", cfg.Redacted().DSN)
	assert.Equal(t, "postgres://app:secret@db:5432/health", cfg.DSN)
}

func TestRedactDSN(t *testing.T) {
	cases := map[string]string{
		"postgres://u:p@h/db":         "postgres://u:xxxxx@h/db",
		"postgres://u:p@ss@h/db":      "postgres://u:xxxxx@h/db",
		"postgres://u@h/db":           "postgres://u@h/db",
		"host=localhost user=u":       "host=localhost user=u",
		"postgres://h/db?sslmode=off": "postgres://h/db?sslmode=off",
	}
	for in, want := range cases {
		assert.Equal(t, want, RedactDSN(in), in)
	}
}

func TestPoolConfig(t *testing.T) {
	pc, err := PoolConfig(Config{
		DSN:            "postgres://u:p@localhost:5432/health",
		MaxConns:       10,
		MinConns:       20,
		IdleTimeout:    time.Minute,
		ConnectTimeout: 2 * time.Second,
		TimeZone:       "UTC",
	})
	require.NoError(t, err)
	assert.EqualValues(t, 10, pc.MaxConns)
	assert.Zero(t, pc.MinConns, "min above max is ignored")
	assert.Equal(t, time.Minute, pc.MaxConnIdleTime)
	assert.Equal(t, 2*time.Second, pc.ConnConfig.ConnectTimeout)
	assert.Equal(t, "UTC", pc.ConnConfig.RuntimeParams["timezone"])

	_, err = PoolConfig(Config{DSN: "postgres://u:p@localhost:notaport/db"})
	assert.Error(t, err)
}

func TestMigrationsEmbedded(t *testing.T) {
	files, err := fs.Glob(Migrations(), "*.sql")
	require.NoError(t, err)
	require.Len(t, files, 5)
	for _, f := range files {
		b, err := fs.ReadFile(Migrations(), f)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(b), "-- +goose Up"), f)
		assert.Contains(t, string(b), "-- +goose Down", f)
	}
}

func TestMetricTablesHaveNaturalKeys(t *testing.T) {
	b, err := fs.ReadFile(Migrations(), "00004_metrics.sql")
	require.NoError(t, err)
	schema := string(b)
	for _, want := range []string{
		"UNIQUE (user_id, sleep_start, sleep_end)",
		"UNIQUE (user_id, recorded_date)",
		"UNIQUE (user_id, recorded_at, symptom_type)",
		"UNIQUE (user_id, event_occurred_at, event_type)",
		"UNIQUE (workout_id, point_order)",
		"PARTITION BY RANGE (recorded_at)",
	} {
		assert.Contains(t, schema, want)
	}
}
