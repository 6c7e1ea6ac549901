package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/story-reel/internal/apperr"
)

type recordedSleeps struct {
	delays []time.Duration
}

func (r *recordedSleeps) sleep(_ context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}

func TestPolicyDo_SucceedsAfterRetries(t *testing.T) {
	sleeps := &recordedSleeps{}
	p := Policy{
		MaxAttempts: 3,
		Backoff:     Exponential(time.Second, nil),
		Sleep:       sleeps.sleep,
	}

	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context, attempt int) error {
		calls++
		assert.Equal(t, calls, attempt)
		if attempt < 3 {
			return errors.New("no image data")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, sleeps.delays)
}

func TestPolicyDo_Exhausted(t *testing.T) {
	sleeps := &recordedSleeps{}
	p := Policy{
		MaxAttempts: 6,
		Retryable:   func(c apperr.Category) bool { return c == apperr.CategoryRateLimit },
		Backoff: Ladder([]time.Duration{
			time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second,
		}, nil),
		Sleep: sleeps.sleep,
	}

	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context, attempt int) error {
		calls++
		return errors.New("429 Too Many Requests")
	})

	require.Error(t, err)
	var exhausted *ExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Equal(t, 6, exhausted.Attempts)
	assert.Equal(t, 6, calls)
	assert.Len(t, sleeps.delays, 5)
	assert.Equal(t, 16*time.Second, sleeps.delays[4])
	assert.True(t, apperr.IsRateLimit(err))
}

func TestPolicyDo_NonRetryableReturnsImmediately(t *testing.T) {
	p := Policy{
		MaxAttempts: 5,
		Retryable:   func(c apperr.Category) bool { return c == apperr.CategoryRateLimit },
		Sleep: func(context.Context, time.Duration) error {
			t.Fatal("sleep should not be called")
			return nil
		},
	}

	boom := errors.New("invalid argument")
	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context, attempt int) error {
		calls++
		return boom
	})

	assert.Same(t, boom, err)
	assert.Equal(t, 1, calls)
}

func TestPolicyDo_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{
		MaxAttempts: 3,
		Backoff:     Exponential(time.Hour, nil),
		OnRetry:     func(int, error, time.Duration) { cancel() },
	}

	err := p.Do(ctx, func(ctx context.Context, attempt int) error {
		return errors.New("503 unavailable")
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Contains(t, err.Error(), "503 unavailable")
}

func TestLadderRepeatsLastStep(t *testing.T) {
	b := Ladder([]time.Duration{time.Second, 2 * time.Second}, func() time.Duration { return 10 * time.Millisecond })

	assert.Equal(t, 1010*time.Millisecond, b(1, apperr.CategoryRateLimit))
	assert.Equal(t, 2010*time.Millisecond, b(2, apperr.CategoryRateLimit))
	assert.Equal(t, 2010*time.Millisecond, b(7, apperr.CategoryRateLimit))
}

func TestJitterBounds(t *testing.T) {
	assert.Zero(t, Jitter(0))
	for i := 0; i < 100; i++ {
		j := Jitter(150 * time.Millisecond)
		assert.GreaterOrEqual(t, j, time.Duration(0))
		assert.Less(t, j, 150*time.Millisecond)
	}
}
