package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/jwebster45206/story-reel/pkg/textfilter"
)

type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevelRaw string `env:"LOG_LEVEL" envDefault:"info"`
	LogLevel    slog.Level

	GeminiAPIKey  string `env:"GEMINI_API_KEY"`
	GeminiBaseURL string `env:"GEMINI_BASE_URL" envDefault:"https://generativelanguage.googleapis.com"`
	TextModel     string `env:"TEXT_MODEL" envDefault:"gemini-3-flash-preview"`
	ImageModel    string `env:"IMAGE_MODEL" envDefault:"gemini-2.5-flash-image"`
	VideoModel    string `env:"VIDEO_MODEL" envDefault:"veo-3.1-generate-preview"`

	RedisURL        string        `env:"REDIS_URL" envDefault:"localhost:6379"`
	BlobTTL         time.Duration `env:"BLOB_TTL" envDefault:"2h"`
	ConversationTTL time.Duration `env:"CONVERSATION_TTL" envDefault:"24h"`

	// SessionTTL of zero keeps games until they are deleted.
	SessionTTL           time.Duration `env:"SESSION_TTL" envDefault:"1h"`
	SessionSweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"1m"`

	ContentRatingRaw string `env:"CONTENT_RATING" envDefault:"PG13"`
	ContentRating    textfilter.Rating

	LimiterConcurrency int           `env:"LIMITER_CONCURRENCY" envDefault:"2"`
	LimiterSpacing     time.Duration `env:"LIMITER_SPACING" envDefault:"150ms"`
	LimiterRetry5xx    bool          `env:"LIMITER_RETRY_SERVER_ERRORS" envDefault:"false"`

	ImageTimeout     time.Duration `env:"IMAGE_TIMEOUT" envDefault:"60s"`
	VideoPollTimeout time.Duration `env:"VIDEO_POLL_TIMEOUT" envDefault:"15m"`

	OTelEndpoint string `env:"OTEL_ENDPOINT"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse env: %w", err)
	}
	cfg.LogLevel = parseLogLevel(cfg.LogLevelRaw)
	cfg.ContentRating = textfilter.ParseRating(cfg.ContentRatingRaw)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that have no usable default.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.GeminiAPIKey) == "" {
		errs = append(errs, errors.New("GEMINI_API_KEY is required"))
	}
	if c.LimiterConcurrency < 1 {
		errs = append(errs, fmt.Errorf("LIMITER_CONCURRENCY must be at least 1, got %d", c.LimiterConcurrency))
	}
	if c.BlobTTL <= 0 {
		errs = append(errs, errors.New("BLOB_TTL must be positive"))
	}
	if c.SessionTTL < 0 {
		errs = append(errs, errors.New("SESSION_TTL must not be negative"))
	}
	if c.SessionTTL > 0 && c.SessionSweepInterval <= 0 {
		errs = append(errs, errors.New("SESSION_SWEEP_INTERVAL must be positive when SESSION_TTL is set"))
	}
	return errors.Join(errs...)
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
