package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/story-reel/pkg/textfilter"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, "gemini-3-flash-preview", cfg.TextModel)
	assert.Equal(t, "gemini-2.5-flash-image", cfg.ImageModel)
	assert.Equal(t, "veo-3.1-generate-preview", cfg.VideoModel)
	assert.Equal(t, 2, cfg.LimiterConcurrency)
	assert.Equal(t, 150*time.Millisecond, cfg.LimiterSpacing)
	assert.Equal(t, 2*time.Hour, cfg.BlobTTL)
	assert.Equal(t, 15*time.Minute, cfg.VideoPollTimeout)
	assert.Equal(t, time.Hour, cfg.SessionTTL)
	assert.Equal(t, time.Minute, cfg.SessionSweepInterval)
	assert.Equal(t, textfilter.RatingPG13, cfg.ContentRating)
	assert.Empty(t, cfg.OTelEndpoint)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CONTENT_RATING", "R")
	t.Setenv("BLOB_TTL", "30m")
	t.Setenv("LIMITER_RETRY_SERVER_ERRORS", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, textfilter.RatingR, cfg.ContentRating)
	assert.Equal(t, 30*time.Minute, cfg.BlobTTL)
	assert.True(t, cfg.LimiterRetry5xx)
}

func TestLoad_RequiresAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GEMINI_API_KEY is required")
}

func TestLoad_SessionTTL(t *testing.T) {
	t.Run("zero disables expiry", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "test-key")
		t.Setenv("SESSION_TTL", "0s")
		t.Setenv("SESSION_SWEEP_INTERVAL", "0s")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Zero(t, cfg.SessionTTL)
	})

	t.Run("negative is rejected", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "test-key")
		t.Setenv("SESSION_TTL", "-1m")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "SESSION_TTL must not be negative")
	})

	t.Run("sweep interval required", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "test-key")
		t.Setenv("SESSION_TTL", "30m")
		t.Setenv("SESSION_SWEEP_INTERVAL", "0s")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "SESSION_SWEEP_INTERVAL must be positive")
	})
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("BLOB_TTL", "soon")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse env")
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLogLevel(tt.in), tt.in)
	}
}
