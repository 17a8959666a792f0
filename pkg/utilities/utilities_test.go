package utilities

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestConfigFromEnv_Defaults(t *testing.T) {
	t.Setenv("LOG_DEV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_FILE", "")
	cfg := ConfigFromEnv()
	assert.Equal(t, "info", cfg.Level)
	assert.False(t, cfg.Dev)
	assert.Equal(t, 168*time.Hour, cfg.FileMaxAge)
	assert.Equal(t, 24*time.Hour, cfg.FileRotation)
}

func TestConfigFromEnv_DevDefaultsToDebug(t *testing.T) {
	t.Setenv("LOG_DEV", "1")
	t.Setenv("LOG_LEVEL", "")
	assert.Equal(t, "debug", ConfigFromEnv().Level)
}

func TestLevelFromString(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for in, want := range cases {
		assert.Equal(t, want, levelFromString(in), in)
	}
}

func TestInit_WithRotatedFile(t *testing.T) {
	dir := t.TempDir()
	lg, err := Init(Config{
		Level:        "info",
		File:         filepath.Join(dir, "app.%Y%m%d.log"),
		FileMaxAge:   time.Hour,
		FileRotation: time.Hour,
	})
	require.NoError(t, err)
	lg.Info("hello")
	_ = lg.Sync()
}

func TestIDs_Unique(t *testing.T) {
	assert.NotEqual(t, NewRequestID(), NewRequestID())
	t.Setenv("SNOWFLAKE_NODE", "7")
	assert.NotEmpty(t, NewRunnerID())
	t.Setenv("SNOWFLAKE_NODE", "99999")
	// invalid node falls back to a ksuid
	assert.Len(t, NewRunnerID(), 27)
}

func TestGate_BoundsHolders(t *testing.T) {
	g := NewGate(2)
	ctx := context.Background()
	require.NoError(t, g.Acquire(ctx))
	require.True(t, g.TryAcquire())
	assert.False(t, g.TryAcquire())
	assert.Equal(t, 2, g.Inflight())
	assert.Equal(t, 0, g.Available())

	cctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, g.Acquire(cctx), context.DeadlineExceeded)

	g.Release()
	assert.Equal(t, 1, g.Available())
	require.NoError(t, g.Acquire(ctx))
}

func TestGate_ZeroBecomesOne(t *testing.T) {
	g := NewGate(0)
	assert.True(t, g.TryAcquire())
	assert.False(t, g.TryAcquire())
	g.Release()
	g.Release()
	assert.Equal(t, 0, g.Inflight())
}
