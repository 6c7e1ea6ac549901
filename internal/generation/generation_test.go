package generation

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/jwebster45206/story-reel/internal/limiter"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// directSubmitter runs tasks inline.
type directSubmitter struct {
	mu    sync.Mutex
	calls int
}

func (d *directSubmitter) Submit(ctx context.Context, task limiter.Task) error {
	d.mu.Lock()
	d.calls++
	d.mu.Unlock()
	return task(ctx)
}

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *sleepRecorder) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

func noJitter(time.Duration) time.Duration { return 0 }
