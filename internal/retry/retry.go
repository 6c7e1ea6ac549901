// Package retry provides the retry policy shared by the limiter and the
// text and image generators. Each call site builds its own Policy.
package retry

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/jwebster45206/story-reel/internal/apperr"
)

// BackoffFunc returns the delay before the next attempt. attempt is the
// 1-based number of the attempt that just failed.
type BackoffFunc func(attempt int, category apperr.Category) time.Duration

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Policy describes how many times an operation is attempted and how long to
// wait between attempts.
type Policy struct {
	MaxAttempts int
	// Classify defaults to apperr.Classify.
	Classify func(error) apperr.Category
	// Retryable decides whether an error of the given category is retried.
	// nil retries every category.
	Retryable func(apperr.Category) bool
	Backoff   BackoffFunc
	// Sleep defaults to a context-aware timer.
	Sleep   SleepFunc
	OnRetry func(attempt int, err error, delay time.Duration)
}

// ExhaustedError is returned when every attempt failed with a retryable error.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Do runs fn until it succeeds, returns a non-retryable error, or the attempt
// budget runs out. Non-retryable errors are returned unchanged.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) error {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	classify := p.Classify
	if classify == nil {
		classify = apperr.Classify
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return fmt.Errorf("%w (last error: %v)", err, lastErr)
			}
			return err
		}

		err := fn(ctx, attempt)
		if err == nil {
			return nil
		}
		lastErr = err

		category := classify(err)
		if p.Retryable != nil && !p.Retryable(category) {
			return err
		}
		if attempt == maxAttempts {
			break
		}

		var delay time.Duration
		if p.Backoff != nil {
			delay = p.Backoff(attempt, category)
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, err, delay)
		}
		if delay > 0 {
			if err := sleep(ctx, delay); err != nil {
				return fmt.Errorf("%w (last error: %v)", err, lastErr)
			}
		}
	}

	return &ExhaustedError{Attempts: maxAttempts, Err: lastErr}
}

// Sleep blocks for d or until ctx is cancelled.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Jitter returns a random duration in [0, max).
func Jitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return rand.N(max)
}

// Ladder walks a fixed list of delays, repeating the last step once the list
// runs out, and adds up to jitter on top.
func Ladder(steps []time.Duration, jitter func() time.Duration) BackoffFunc {
	return func(attempt int, _ apperr.Category) time.Duration {
		if len(steps) == 0 {
			return 0
		}
		i := attempt - 1
		if i >= len(steps) {
			i = len(steps) - 1
		}
		if i < 0 {
			i = 0
		}
		d := steps[i]
		if jitter != nil {
			d += jitter()
		}
		return d
	}
}

// Exponential doubles base on every attempt and adds up to jitter on top.
func Exponential(base time.Duration, jitter func() time.Duration) BackoffFunc {
	return func(attempt int, _ apperr.Category) time.Duration {
		if attempt < 1 {
			attempt = 1
		}
		d := base << (attempt - 1)
		if jitter != nil {
			d += jitter()
		}
		return d
	}
}
