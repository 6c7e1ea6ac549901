package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/jwebster45206/story-reel/internal/apperr"
	"github.com/jwebster45206/story-reel/internal/telemetry"
	"github.com/jwebster45206/story-reel/pkg/prompts"
)

// PanelGenerator renders one panel.
type PanelGenerator interface {
	GeneratePanel(ctx context.Context, storyContext, label string, maxAttempts int) (*Image, error)
}

// PanelFailure records why one panel could not be generated.
type PanelFailure struct {
	Index int
	Label string
	Err   error
}

func (f PanelFailure) String() string {
	return fmt.Sprintf("%s: %v", f.Label, f.Err)
}

// PanelResult is the outcome of a panel batch. Images holds the successful
// panels in narrative order, so it may be shorter than the beat count.
type PanelResult struct {
	Images   []Image
	Labels   []string
	Failures []PanelFailure
}

// Partial reports whether some panels failed.
func (r *PanelResult) Partial() bool {
	return len(r.Failures) > 0
}

// Warning returns a PARTIAL_BATCH error describing the failed panels, or nil.
func (r *PanelResult) Warning() error {
	if !r.Partial() {
		return nil
	}
	return apperr.Newf(apperr.CodePartialBatch, "Partial image generation: %d/%d succeeded. Errors: %s",
		len(r.Images), len(r.Images)+len(r.Failures), joinFailures(r.Failures))
}

// FailureMessages returns one "label: reason" line per failed panel.
func (r *PanelResult) FailureMessages() []string {
	out := make([]string, len(r.Failures))
	for i, f := range r.Failures {
		out[i] = f.String()
	}
	return out
}

// PanelCoordinator generates the storyboard panels concurrently.
type PanelCoordinator struct {
	images PanelGenerator
	logger *slog.Logger

	// MinSuccesses is the fewest panels that still make a usable batch.
	MinSuccesses int
	// MaxAttempts is passed to every GeneratePanel call.
	MaxAttempts int
}

func NewPanelCoordinator(images PanelGenerator, logger *slog.Logger) *PanelCoordinator {
	return &PanelCoordinator{
		images:       images,
		logger:       logger,
		MinSuccesses: 1,
		MaxAttempts:  DefaultMaxAttempts,
	}
}

// GenerateAllPanels starts one generation per beat at once and waits for all
// of them. onSettled, when set, is called with the running count of settled
// panels after each panel succeeds or fails. Every panel prompt carries the
// whole story.
func (c *PanelCoordinator) GenerateAllPanels(ctx context.Context, story, genre string, onSettled func(settled int)) (*PanelResult, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "generation.panels")
	defer span.End()

	if strings.TrimSpace(story) == "" {
		return nil, apperr.Validation("story is required")
	}

	beats := prompts.Beats
	images := make([]*Image, len(beats))
	errs := make([]error, len(beats))

	var (
		mu      sync.Mutex
		settled int
	)
	settle := func() {
		mu.Lock()
		defer mu.Unlock()
		settled++
		if onSettled != nil {
			onSettled(settled)
		}
	}

	var g errgroup.Group
	for i, beat := range beats {
		g.Go(func() error {
			img, err := c.images.GeneratePanel(ctx, prompts.PanelStory(i, genre, story), beat.Label, c.MaxAttempts)
			images[i], errs[i] = img, err
			settle()
			return nil
		})
	}
	_ = g.Wait()

	result := &PanelResult{}
	var causes []error
	for i, beat := range beats {
		if errs[i] != nil {
			result.Failures = append(result.Failures, PanelFailure{Index: i, Label: beat.Label, Err: errs[i]})
			causes = append(causes, errs[i])
			continue
		}
		result.Images = append(result.Images, *images[i])
		result.Labels = append(result.Labels, beat.Label)
	}

	span.SetAttributes(
		attribute.Int("panels_succeeded", len(result.Images)),
		attribute.Int("panels_failed", len(result.Failures)))

	if len(result.Images) == 0 {
		return nil, apperr.Wrap(apperr.CodeGeneration,
			"All image generations failed. Errors: "+joinFailures(result.Failures),
			errors.Join(causes...))
	}

	minSuccesses := max(c.MinSuccesses, 1)
	if len(result.Images) < minSuccesses {
		return nil, apperr.Wrap(apperr.CodePartialBatch,
			fmt.Sprintf("Only %d of %d panels generated, need %d. Errors: %s",
				len(result.Images), len(beats), minSuccesses, joinFailures(result.Failures)),
			errors.Join(causes...))
	}

	if result.Partial() {
		c.logger.Warn("Partial image generation",
			"succeeded", len(result.Images),
			"total", len(beats),
			"errors", joinFailures(result.Failures))
	}
	return result, nil
}

func joinFailures(failures []PanelFailure) string {
	parts := make([]string, len(failures))
	for i, f := range failures {
		parts[i] = f.String()
	}
	return strings.Join(parts, "; ")
}
