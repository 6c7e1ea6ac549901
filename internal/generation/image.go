package generation

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/genai"

	"github.com/jwebster45206/story-reel/internal/apperr"
	"github.com/jwebster45206/story-reel/internal/retry"
	"github.com/jwebster45206/story-reel/internal/services"
	"github.com/jwebster45206/story-reel/internal/telemetry"
	"github.com/jwebster45206/story-reel/pkg/prompts"
)

const (
	imageBackoffBase   = 1 * time.Second
	imageBackoffJitter = 500 * time.Millisecond
	defaultImageMIME   = "image/png"
)

// Image is one generated picture.
type Image struct {
	Data     []byte
	MIMEType string
}

// DataURL encodes the image as a data: URL.
func (img Image) DataURL() string {
	return fmt.Sprintf("data:%s;base64,%s", img.MIMEType, base64.StdEncoding.EncodeToString(img.Data))
}

// ImageGenerator produces single panels with its own retry policy.
type ImageGenerator struct {
	model   services.ImageModel
	limiter Submitter
	logger  *slog.Logger

	sleep  retry.SleepFunc
	jitter func(time.Duration) time.Duration
}

// ImageOption configures an ImageGenerator.
type ImageOption func(*ImageGenerator)

func WithImageSleep(sleep retry.SleepFunc) ImageOption {
	return func(g *ImageGenerator) { g.sleep = sleep }
}

func WithImageJitter(jitter func(time.Duration) time.Duration) ImageOption {
	return func(g *ImageGenerator) { g.jitter = jitter }
}

func NewImageGenerator(model services.ImageModel, lim Submitter, logger *slog.Logger, opts ...ImageOption) *ImageGenerator {
	g := &ImageGenerator{
		model:   model,
		limiter: lim,
		logger:  logger,
		sleep:   retry.Sleep,
		jitter:  retry.Jitter,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GeneratePanel renders one panel for storyContext. label names the panel in
// prompts and errors and may be empty. A reply without inline image data is
// retried like a rate-limit or server error; any other error ends the attempt
// loop immediately.
func (g *ImageGenerator) GeneratePanel(ctx context.Context, storyContext, label string, maxAttempts int) (*Image, error) {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	ctx, span := telemetry.Tracer().Start(ctx, "generation.panel")
	defer span.End()
	span.SetAttributes(attribute.String("panel", label))

	prompt := prompts.Panel(storyContext, label)

	var out *Image
	policy := retry.Policy{
		MaxAttempts: maxAttempts,
		Retryable: func(c apperr.Category) bool {
			return c == apperr.CategoryRateLimit || c == apperr.CategoryTransient || c == apperr.CategoryEmptyResponse
		},
		Backoff: retry.Exponential(imageBackoffBase, func() time.Duration { return g.jitter(imageBackoffJitter) }),
		Sleep:   g.sleep,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			g.logger.Warn("Image generation retry",
				"panel", label,
				"attempt", attempt,
				"max_attempts", maxAttempts,
				"delay_ms", delay.Milliseconds(),
				"error", err)
		},
	}

	err := policy.Do(ctx, func(ctx context.Context, attempt int) error {
		var resp *genai.GenerateContentResponse
		err := g.limiter.Submit(ctx, func(ctx context.Context) error {
			r, err := g.model.GenerateImageContent(ctx, prompt)
			resp = r
			return err
		})
		if err != nil {
			return err
		}
		img, err := imageFromResponse(resp)
		if err != nil {
			return err
		}
		out = img
		return nil
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		cause := err
		var exhausted *retry.ExhaustedError
		if errors.As(err, &exhausted) {
			cause = exhausted.Err
		}
		forLabel := ""
		if label != "" {
			forLabel = " for " + label
		}
		return nil, apperr.Wrap(terminalCode(cause),
			fmt.Sprintf("Failed to generate comic image%s after %d attempts: %v", forLabel, maxAttempts, cause),
			cause)
	}

	span.SetAttributes(attribute.Int("bytes", len(out.Data)))
	return out, nil
}

// imageFromResponse takes the first inline image of the first candidate.
func imageFromResponse(resp *genai.GenerateContentResponse) (*Image, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, apperr.New(apperr.CodeEmptyResponse, "No candidates in response")
	}
	content := resp.Candidates[0].Content
	if content == nil {
		return nil, apperr.New(apperr.CodeEmptyResponse, "No content in candidate")
	}
	for _, part := range content.Parts {
		if part == nil || part.InlineData == nil {
			continue
		}
		if len(part.InlineData.Data) == 0 {
			return nil, apperr.New(apperr.CodeEmptyResponse, "No image data received from model")
		}
		mime := part.InlineData.MIMEType
		if mime == "" {
			mime = defaultImageMIME
		}
		return &Image{Data: part.InlineData.Data, MIMEType: mime}, nil
	}
	return nil, apperr.New(apperr.CodeEmptyResponse, "No image data found in response")
}
