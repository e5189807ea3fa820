package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"SIGNAL_ADDR", "PORT", "ENVIRONMENT", "ALLOWED_ORIGINS", "REDIS_HOST", "ADMIN_PASSWORD", "MAX_FRAME_BYTES", "SEND_QUEUE", "LOG_FORMAT"} {
		t.Setenv(k, "")
	}

	cfg := Load()
	assert.Equal(t, ":9988", cfg.SignalAddr)
	assert.Equal(t, ":8080", cfg.HTTPAddr())
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.AllowedOrigins)
	assert.Equal(t, 64*1024, cfg.MaxFrameBytes)
	assert.Equal(t, 256, cfg.SendQueue)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.Admin.Enabled())
	assert.Empty(t, cfg.Warnings)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SIGNAL_ADDR", "127.0.0.1:7000")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("REDIS_HOST", "redis")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("ADMIN_PASSWORD", "secret")
	t.Setenv("MAX_FRAME_BYTES", "1024")
	t.Setenv("LOG_FORMAT", "")

	cfg := Load()
	assert.Equal(t, "127.0.0.1:7000", cfg.SignalAddr)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.True(t, cfg.Admin.Enabled())
	assert.Equal(t, 1024, cfg.MaxFrameBytes)
}

func TestLoadInvalidNumberFallsBack(t *testing.T) {
	t.Setenv("SEND_QUEUE", "lots")
	t.Setenv("MAX_FRAME_BYTES", "-1")

	cfg := Load()
	assert.Equal(t, 256, cfg.SendQueue)
	assert.Equal(t, 64*1024, cfg.MaxFrameBytes)
	require.Len(t, cfg.Warnings, 2)
	assert.Contains(t, cfg.Warnings[0], "MAX_FRAME_BYTES")
}
