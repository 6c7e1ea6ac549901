package video

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/jwebster45206/story-reel/internal/apperr"
	"github.com/jwebster45206/story-reel/internal/limiter"
	"github.com/jwebster45206/story-reel/internal/retry"
	"github.com/jwebster45206/story-reel/internal/services"
	"github.com/jwebster45206/story-reel/internal/telemetry"
)

const (
	// DefaultMaxPolls bounds the polling loop.
	DefaultMaxPolls = 90
	// DefaultTimeout is the wall-clock ceiling for one generation.
	DefaultTimeout = 15 * time.Minute
)

// Submitter runs a task under the process-wide call limits.
type Submitter interface {
	Submit(ctx context.Context, task limiter.Task) error
}

// Observer is told about every operation state the poller sees, starting
// with the response to the initial request.
type Observer func(op services.VideoOperation)

// Result is a finished generation.
type Result struct {
	OperationName string
	URI           string
	Polls         int
	Elapsed       time.Duration
}

// Poller starts video generations and waits for them to finish.
type Poller struct {
	api     services.VideoAPI
	limiter Submitter
	logger  *slog.Logger

	MaxPolls int
	Timeout  time.Duration

	now   func() time.Time
	sleep retry.SleepFunc
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) PollerOption {
	return func(p *Poller) { p.now = now }
}

// WithSleep replaces the wait between polls, for tests.
func WithSleep(sleep retry.SleepFunc) PollerOption {
	return func(p *Poller) { p.sleep = sleep }
}

func NewPoller(api services.VideoAPI, lim Submitter, logger *slog.Logger, opts ...PollerOption) *Poller {
	p := &Poller{
		api:      api,
		limiter:  lim,
		logger:   logger,
		MaxPolls: DefaultMaxPolls,
		Timeout:  DefaultTimeout,
		now:      time.Now,
		sleep:    retry.Sleep,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PollInterval is the wait before the next poll given the time elapsed since
// the operation started.
func PollInterval(elapsed time.Duration) time.Duration {
	switch {
	case elapsed < 2*time.Minute:
		return 5 * time.Second
	case elapsed < 5*time.Minute:
		return 10 * time.Second
	default:
		return 20 * time.Second
	}
}

// StartAndAwait starts a generation and polls it until it yields a video URI,
// reports an error, or runs out of polls or time. Only the start request goes
// through the limiter; polls target the operation endpoint directly. A 5xx or
// 429 on a poll is absorbed and the next poll proceeds, still counting
// against MaxPolls.
func (p *Poller) StartAndAwait(ctx context.Context, params Params, observe Observer) (*Result, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "video.start_and_await")
	defer span.End()

	params, err := NormalizeParams(params)
	if err != nil {
		return nil, err
	}
	req, err := params.Request()
	if err != nil {
		return nil, err
	}
	if observe == nil {
		observe = func(services.VideoOperation) {}
	}

	var op *services.VideoOperation
	err = p.limiter.Submit(ctx, func(ctx context.Context) error {
		o, err := p.api.StartVideo(ctx, req)
		op = o
		return err
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, apperr.Wrap(apperr.CodeFor(err, apperr.CodeGeneration),
			fmt.Sprintf("Failed to generate video: %v", err), err)
	}
	if op == nil {
		return nil, apperr.New(apperr.CodeGeneration, "Failed to generate video: empty operation")
	}
	observe(*op)
	span.SetAttributes(attribute.String("operation", op.Name))

	start := p.now()
	result := &Result{OperationName: op.Name}
	if done, err := settled(op, result); done {
		if err != nil {
			return nil, err
		}
		return result, nil
	}

	for poll := 1; poll <= p.MaxPolls; poll++ {
		elapsed := p.now().Sub(start)
		if elapsed >= p.Timeout {
			break
		}
		if err := p.sleep(ctx, PollInterval(elapsed)); err != nil {
			return nil, fmt.Errorf("video polling cancelled: %w", err)
		}

		result.Polls = poll
		next, err := p.api.PollVideo(ctx, result.OperationName)
		if err != nil {
			switch apperr.Classify(err) {
			case apperr.CategoryTransient, apperr.CategoryRateLimit:
				p.logger.Warn("Video poll failed, will retry",
					"operation", result.OperationName,
					"poll", poll,
					"error", err)
				continue
			}
			span.SetStatus(codes.Error, err.Error())
			return nil, apperr.Wrap(apperr.CodeGeneration, fmt.Sprintf("Failed to poll video status: %v", err), err)
		}

		if next.Name != "" {
			result.OperationName = next.Name
		}
		observe(*next)
		p.logger.Debug("Video poll",
			"operation", result.OperationName,
			"poll", poll,
			"done", next.Done,
			"elapsed_s", int(p.now().Sub(start).Seconds()))

		if done, err := settled(next, result); done {
			if err != nil {
				span.SetStatus(codes.Error, err.Error())
				return nil, err
			}
			result.Elapsed = p.now().Sub(start)
			return result, nil
		}
	}

	span.SetStatus(codes.Error, "timeout")
	return nil, apperr.Newf(apperr.CodeTimeout, "Video generation timed out after %d minutes", int(p.Timeout.Minutes()))
}

// settled reports whether op is terminal, filling result on success.
func settled(op *services.VideoOperation, result *Result) (bool, error) {
	switch {
	case op.Error != "":
		return true, apperr.New(apperr.CodeGeneration, op.Error)
	case op.URI != "":
		result.URI = op.URI
		return true, nil
	case op.Done:
		return true, apperr.New(apperr.CodeGeneration, "Video generation finished without a video")
	default:
		return false, nil
	}
}
