// Package generation turns prompts into validated story content: text turns,
// branching options, topic starters and illustrated panels. Every model call
// is routed through the shared limiter.
package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/jwebster45206/story-reel/internal/apperr"
	"github.com/jwebster45206/story-reel/internal/limiter"
	"github.com/jwebster45206/story-reel/internal/retry"
	"github.com/jwebster45206/story-reel/internal/services"
	"github.com/jwebster45206/story-reel/internal/telemetry"
	"github.com/jwebster45206/story-reel/pkg/extract"
	"github.com/jwebster45206/story-reel/pkg/prompts"
	"github.com/jwebster45206/story-reel/pkg/textfilter"
)

const (
	// DefaultMaxAttempts is the attempt budget of every generator.
	DefaultMaxAttempts = 3

	// MinSentenceLength is the shortest AI turn accepted.
	MinSentenceLength = 10
	// MinOptionLength is the length an option must exceed to count.
	MinOptionLength = 10
	// LongSentenceLength is the length above which an AI turn is clipped to
	// its first sentence.
	LongSentenceLength = 200

	rateLimitStep = 2 * time.Second
	retryStep     = 1 * time.Second
	retryJitter   = 300 * time.Millisecond
)

var firstSentence = regexp.MustCompile(`^[^.!?]*[.!?]`)

// Submitter runs a task under the process-wide call limits.
type Submitter interface {
	Submit(ctx context.Context, task limiter.Task) error
}

// Option is one branching continuation offered to the user.
type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// OptionsResult is a set of options and the handle of the exchange that produced them.
type OptionsResult struct {
	Options []Option
	Handle  string
}

// TurnResult is an AI sentence and the handle of the exchange that produced it.
type TurnResult struct {
	Sentence string
	Handle   string
}

// TextGenerator issues text prompts with retry and validates the replies.
type TextGenerator struct {
	model   services.TextModel
	limiter Submitter
	filter  *textfilter.Filter
	logger  *slog.Logger

	sleep  retry.SleepFunc
	jitter func(time.Duration) time.Duration
}

// TextOption configures a TextGenerator.
type TextOption func(*TextGenerator)

// WithTextSleep replaces the backoff sleep, for tests.
func WithTextSleep(sleep retry.SleepFunc) TextOption {
	return func(g *TextGenerator) { g.sleep = sleep }
}

// WithTextJitter replaces the jitter source, for tests.
func WithTextJitter(jitter func(time.Duration) time.Duration) TextOption {
	return func(g *TextGenerator) { g.jitter = jitter }
}

// WithFilter applies a content filter to generated sentences and options.
func WithFilter(f *textfilter.Filter) TextOption {
	return func(g *TextGenerator) { g.filter = f }
}

func NewTextGenerator(model services.TextModel, lim Submitter, logger *slog.Logger, opts ...TextOption) *TextGenerator {
	g := &TextGenerator{
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

// GenerateWithRetry sends prompt, continuing from handle when it is set. An
// empty reply counts as a failed attempt. Rate-limited attempts back off
// 2s per attempt; other failures back off 1s per attempt plus jitter.
func (g *TextGenerator) GenerateWithRetry(ctx context.Context, prompt, handle string, maxAttempts int) (*services.Interaction, error) {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}

	var out *services.Interaction
	policy := retry.Policy{
		MaxAttempts: maxAttempts,
		Backoff: func(attempt int, category apperr.Category) time.Duration {
			if category == apperr.CategoryRateLimit {
				return rateLimitStep * time.Duration(attempt)
			}
			return retryStep*time.Duration(attempt) + g.jitter(retryJitter)
		},
		Sleep: g.sleep,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			g.logger.Warn("Text generation attempt failed, retrying",
				"attempt", attempt,
				"max_attempts", maxAttempts,
				"delay_ms", delay.Milliseconds(),
				"error", err)
		},
	}

	err := policy.Do(ctx, func(ctx context.Context, attempt int) error {
		var res *services.Interaction
		err := g.limiter.Submit(ctx, func(ctx context.Context) error {
			r, err := g.model.Interact(ctx, prompt, handle)
			res = r
			return err
		})
		if err != nil {
			return err
		}
		if res == nil || strings.TrimSpace(res.Text) == "" {
			return apperr.New(apperr.CodeEmptyResponse, "Empty response received from model")
		}
		out = res
		return nil
	})
	if err != nil {
		var exhausted *retry.ExhaustedError
		if errors.As(err, &exhausted) {
			return nil, apperr.Wrap(terminalCode(exhausted.Err),
				fmt.Sprintf("Failed to generate content after %d attempts: %v", exhausted.Attempts, exhausted.Err),
				exhausted.Err)
		}
		return nil, err
	}
	return out, nil
}

// GenerateOptions asks for exactly three branching continuations.
func (g *TextGenerator) GenerateOptions(ctx context.Context, genre, storySoFar, handle string) (*OptionsResult, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "generation.options")
	defer span.End()

	if strings.TrimSpace(storySoFar) == "" {
		return nil, apperr.Validation("storySoFar is required")
	}

	res, err := g.GenerateWithRetry(ctx, prompts.Options(genre, storySoFar), handle, DefaultMaxAttempts)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	raw, err := extract.Array(res.Text, prompts.OptionCount)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, apperr.Wrap(apperr.CodeExtraction, err.Error(), err)
	}

	texts := make([]string, 0, len(raw))
	for _, item := range raw {
		text := extract.Sanitize(g.filter.Clean(item))
		if utf8.RuneCountInString(text) > MinOptionLength {
			texts = append(texts, text)
		}
	}
	if len(texts) == 0 {
		return nil, apperr.New(apperr.CodeExtraction, "No valid options extracted from AI response")
	}
	if len(texts) < prompts.OptionCount {
		return nil, apperr.Newf(apperr.CodeExtraction,
			"Expected %d options, got %d. AI response may be malformed.", prompts.OptionCount, len(texts))
	}

	options := make([]Option, prompts.OptionCount)
	for i := range options {
		options[i] = Option{ID: fmt.Sprintf("option-%d", i+1), Text: texts[i]}
	}
	span.SetAttributes(attribute.Int("options", len(options)))
	return &OptionsResult{Options: options, Handle: res.Handle}, nil
}

// GenerateAITurn asks for a one or two sentence continuation.
func (g *TextGenerator) GenerateAITurn(ctx context.Context, genre, storySoFar, handle string) (*TurnResult, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "generation.ai_turn")
	defer span.End()

	if strings.TrimSpace(storySoFar) == "" {
		return nil, apperr.Validation("storySoFar is required")
	}

	res, err := g.GenerateWithRetry(ctx, prompts.AITurn(genre, storySoFar), handle, DefaultMaxAttempts)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	sentence, err := extract.Single(res.Text, MinSentenceLength)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, apperr.Wrap(apperr.CodeExtraction, err.Error(), err)
	}

	return &TurnResult{Sentence: g.filter.Clean(finishSentence(sentence)), Handle: res.Handle}, nil
}

// GenerateTopics asks for story starters. Callers decide what to do when
// extraction fails; no fallback content is produced here.
func (g *TextGenerator) GenerateTopics(ctx context.Context) ([]string, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "generation.topics")
	defer span.End()

	res, err := g.GenerateWithRetry(ctx, prompts.TopicsPrompt, "", DefaultMaxAttempts)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	topics, err := extract.Array(res.Text, prompts.TopicCount)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeExtraction, err.Error(), err)
	}
	return g.filter.CleanAll(topics), nil
}

// finishSentence clips an overlong reply to its first sentence and makes sure
// it ends with terminal punctuation.
func finishSentence(s string) string {
	if utf8.RuneCountInString(s) > LongSentenceLength {
		if m := firstSentence.FindString(s); m != "" {
			s = strings.TrimSpace(m)
		}
	}
	if !strings.HasSuffix(s, ".") && !strings.HasSuffix(s, "!") && !strings.HasSuffix(s, "?") {
		s += "."
	}
	return s
}

func terminalCode(err error) apperr.Code {
	return apperr.CodeFor(err, apperr.CodeGeneration)
}
