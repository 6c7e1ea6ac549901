// Package limiter throttles outbound generation calls. It bounds how many
// calls run at once, spaces out call starts and retries rate-limited calls on
// a fixed backoff ladder.
package limiter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/jwebster45206/story-reel/internal/apperr"
	"github.com/jwebster45206/story-reel/internal/retry"
)

// Task is one outbound call. Results are returned through the closure.
type Task func(ctx context.Context) error

// Config holds the scheduling parameters.
type Config struct {
	Concurrency   int
	MinSpacing    time.Duration
	SpacingJitter time.Duration
	RetryDelays   []time.Duration
	RetryJitter   time.Duration
	// RetryServerErrors also retries 5xx-class failures on the same ladder.
	RetryServerErrors bool
}

// DefaultConfig returns the production scheduling parameters.
func DefaultConfig() Config {
	return Config{
		Concurrency:   2,
		MinSpacing:    150 * time.Millisecond,
		SpacingJitter: 150 * time.Millisecond,
		RetryDelays: []time.Duration{
			1 * time.Second,
			2 * time.Second,
			4 * time.Second,
			8 * time.Second,
			16 * time.Second,
		},
		RetryJitter: 250 * time.Millisecond,
	}
}

// Limiter is safe for concurrent use. One instance is shared by every
// generator in the process.
type Limiter struct {
	cfg    Config
	sem    *semaphore.Weighted
	logger *slog.Logger

	now    func() time.Time
	sleep  retry.SleepFunc
	jitter func(max time.Duration) time.Duration

	mu        sync.Mutex
	lastStart time.Time
	active    int
	pending   int
}

// Option customises a Limiter.
type Option func(*Limiter)

// WithClock substitutes the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// WithSleep substitutes the wait function used for spacing and backoff.
func WithSleep(sleep retry.SleepFunc) Option {
	return func(l *Limiter) { l.sleep = sleep }
}

// WithJitter substitutes the random jitter source.
func WithJitter(jitter func(max time.Duration) time.Duration) Option {
	return func(l *Limiter) { l.jitter = jitter }
}

// New creates a Limiter. Zero-valued config fields fall back to DefaultConfig.
func New(cfg Config, logger *slog.Logger, opts ...Option) *Limiter {
	def := DefaultConfig()
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.MinSpacing < 0 {
		cfg.MinSpacing = 0
	}
	if cfg.RetryDelays == nil {
		cfg.RetryDelays = def.RetryDelays
	}

	l := &Limiter{
		cfg:    cfg,
		sem:    semaphore.NewWeighted(int64(cfg.Concurrency)),
		logger: logger,
		now:    time.Now,
		sleep:  retry.Sleep,
		jitter: retry.Jitter,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Submit queues task and runs it once a slot is free. Rate-limited failures
// are retried on the backoff ladder; the slot is given back while waiting.
// Any other failure is returned to the caller as-is.
func (l *Limiter) Submit(ctx context.Context, task Task) error {
	policy := retry.Policy{
		MaxAttempts: len(l.cfg.RetryDelays) + 1,
		Retryable: func(c apperr.Category) bool {
			return c == apperr.CategoryRateLimit ||
				(l.cfg.RetryServerErrors && c == apperr.CategoryTransient)
		},
		Backoff: retry.Ladder(l.cfg.RetryDelays, func() time.Duration {
			return l.jitter(l.cfg.RetryJitter)
		}),
		Sleep: l.sleep,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			l.logger.Warn("Model call failed, backing off",
				"attempt", attempt,
				"max_attempts", len(l.cfg.RetryDelays)+1,
				"delay_ms", delay.Milliseconds(),
				"error", err)
		},
	}

	err := policy.Do(ctx, func(ctx context.Context, _ int) error {
		return l.run(ctx, task)
	})
	if err != nil {
		var exhausted *retry.ExhaustedError
		if errors.As(err, &exhausted) {
			code, reason := apperr.CodeTransient, "upstream unavailable"
			if apperr.IsRateLimit(exhausted.Err) {
				code, reason = apperr.CodeRateLimited, "rate limited"
			}
			return apperr.Wrap(code,
				fmt.Sprintf("%s after %d attempts: %v", reason, exhausted.Attempts, exhausted.Err), exhausted.Err)
		}
		return err
	}
	return nil
}

func (l *Limiter) run(ctx context.Context, task Task) error {
	l.mu.Lock()
	l.pending++
	l.mu.Unlock()

	err := l.sem.Acquire(ctx, 1)

	l.mu.Lock()
	l.pending--
	if err != nil {
		l.mu.Unlock()
		return fmt.Errorf("failed to acquire limiter slot: %w", err)
	}
	l.active++
	wait := l.reserveStart()
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.active--
		l.mu.Unlock()
		l.sem.Release(1)
	}()

	if wait > 0 {
		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}
	return task(ctx)
}

// reserveStart books the next start time. Must be called with mu held.
func (l *Limiter) reserveStart() time.Duration {
	now := l.now()
	start := now
	if !l.lastStart.IsZero() {
		if earliest := l.lastStart.Add(l.cfg.MinSpacing); earliest.After(start) {
			start = earliest
		}
	}
	start = start.Add(l.jitter(l.cfg.SpacingJitter))
	l.lastStart = start
	return start.Sub(now)
}

// Active reports how many tasks currently hold a slot.
func (l *Limiter) Active() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// Pending reports how many tasks are waiting for a slot.
func (l *Limiter) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pending
}
