package session

import (
	"context"
	"errors"
	"time"

	"github.com/jwebster45206/story-reel/internal/apperr"
	"github.com/jwebster45206/story-reel/internal/services"
	"github.com/jwebster45206/story-reel/internal/services/events"
	"github.com/jwebster45206/story-reel/internal/video"
	"github.com/jwebster45206/story-reel/pkg/state"
)

// GeneratePanels starts the panel batch in the background and returns the
// state with the batch marked as generating. An existing usable panel set is
// returned as-is; only a batch that ended in error is generated again.
func (s *Session) GeneratePanels(ctx context.Context) (state.GameState, error) {
	s.mu.Lock()
	if s.state.PanelsReusable() {
		gs := s.state
		s.mu.Unlock()
		s.logger.DebugContext(ctx, "Reusing existing panels", "panels", len(gs.PanelImages))
		return gs, nil
	}
	gs, err := s.applyLocked(state.BeginPanels)
	epoch := s.epoch
	s.mu.Unlock()
	if err != nil {
		return gs, err
	}

	s.logger.InfoContext(ctx, "Panel generation started")
	s.publish(events.EventTypePanelProgress, map[string]any{"progress": 0, "total": state.PanelCount})

	story, genre := gs.StoryText(), gs.GenreLabel()
	s.goBackground(func(ctx context.Context) {
		s.runPanels(ctx, epoch, story, genre)
	})
	return gs, nil
}

func (s *Session) runPanels(ctx context.Context, epoch int, story, genre string) {
	onSettled := func(settled int) {
		gs, err := s.applyAt(epoch, func(gs state.GameState, now time.Time) (state.GameState, error) {
			return state.PanelSettled(gs, now), nil
		})
		if err != nil {
			return
		}
		s.publish(events.EventTypePanelProgress, map[string]any{
			"progress": gs.PanelGenerationProgress,
			"total":    state.PanelCount,
		})
	}

	result, err := s.deps.Panels.GenerateAllPanels(ctx, story, genre, onSettled)
	if err != nil {
		s.logger.Error("Panel generation failed", "error", err)
		_, applyErr := s.applyAt(epoch, func(gs state.GameState, now time.Time) (state.GameState, error) {
			return state.PanelsFailed(gs, []string{err.Error()}, now), nil
		})
		if applyErr == nil {
			s.publish(events.EventTypePanelsFailed, map[string]any{"error": err.Error()})
		}
		return
	}

	images := make([]string, len(result.Images))
	for i, img := range result.Images {
		images[i] = img.DataURL()
	}
	gs, err := s.applyAt(epoch, func(gs state.GameState, now time.Time) (state.GameState, error) {
		return state.SetPanels(gs, images, result.Partial(), result.FailureMessages(), now)
	})
	if err != nil {
		if !errors.Is(err, errStale) {
			s.logger.Error("Failed to store panels", "error", err)
		}
		return
	}

	if warning := result.Warning(); warning != nil {
		s.logger.Warn("Panels partially generated", "panels", len(images), "warning", warning)
		s.publish(events.EventTypePanelsPartial, map[string]any{
			"panels":  len(images),
			"warning": warning.Error(),
			"phase":   gs.Phase,
		})
		return
	}
	s.logger.Info("Panels generated", "panels", len(images))
	s.publish(events.EventTypePanelsCompleted, map[string]any{"panels": len(images), "phase": gs.Phase})
}

// SetVideoPreferences validates and stores the user's video choices.
func (s *Session) SetVideoPreferences(ctx context.Context, prefs state.VideoPreferences) (state.GameState, error) {
	gs, err := s.apply(func(gs state.GameState, now time.Time) (state.GameState, error) {
		return state.SetVideoPreferences(gs, prefs, now)
	})
	if err != nil {
		return gs, err
	}
	s.logger.InfoContext(ctx, "Video preferences set",
		"style", gs.VideoPreferences.Style,
		"duration_s", gs.VideoPreferences.DurationSeconds,
		"resolution", gs.VideoPreferences.Resolution)
	return gs, nil
}

// GenerateVideo starts the video operation in the background, using the
// session's panels as reference images unless others are given. When the
// operation yields an asset it is resolved to a playable URL straight away.
func (s *Session) GenerateVideo(ctx context.Context, referenceImages []string) (state.GameState, error) {
	s.mu.Lock()
	cur := s.state
	if len(referenceImages) == 0 {
		referenceImages = cur.PanelImages
	}
	var params video.Params
	if cur.VideoPreferences != nil {
		params = video.Params{
			Preferences:     *cur.VideoPreferences,
			Genre:           cur.Genre,
			ReferenceImages: referenceImages,
		}
		if _, err := video.NormalizeParams(params); err != nil {
			s.mu.Unlock()
			return cur, err
		}
	}
	gs, err := s.applyLocked(state.BeginVideo)
	epoch := s.epoch
	s.mu.Unlock()
	if err != nil {
		return gs, err
	}

	s.logger.InfoContext(ctx, "Video generation started", "reference_images", len(referenceImages))
	s.publishVideo(gs)
	s.goBackground(func(ctx context.Context) {
		s.runVideo(ctx, epoch, params)
	})
	return gs, nil
}

func (s *Session) runVideo(ctx context.Context, epoch int, params video.Params) {
	observe := func(op services.VideoOperation) {
		if op.Name == "" {
			return
		}
		_, _ = s.applyAt(epoch, func(gs state.GameState, now time.Time) (state.GameState, error) {
			if gs.VideoOperationHandle == op.Name {
				return gs, nil
			}
			return state.SetVideoOperation(gs, op.Name, now)
		})
	}

	result, err := s.deps.Poller.StartAndAwait(ctx, params, observe)
	if err != nil {
		s.logger.Error("Video generation failed", "error", err)
		s.failVideo(epoch, err)
		return
	}

	gs, err := s.applyAt(epoch, func(gs state.GameState, now time.Time) (state.GameState, error) {
		return state.SetVideoAsset(gs, result.URI, now)
	})
	if err != nil {
		return
	}
	s.logger.Info("Video generated", "operation", result.OperationName, "polls", result.Polls, "elapsed", result.Elapsed)
	s.publishVideo(gs)

	if _, err := s.fetchVideo(ctx, epoch); err != nil {
		s.logger.Warn("Video prepared but not fetched", "error", err)
	}
}

func (s *Session) failVideo(epoch int, cause error) {
	gs, err := s.applyAt(epoch, func(gs state.GameState, now time.Time) (state.GameState, error) {
		return state.VideoFailed(gs, cause.Error(), now), nil
	})
	if err == nil {
		s.publishVideo(gs)
	}
}

// RetryFetchVideo resolves the already generated asset into a playable URL
// without generating the video again.
func (s *Session) RetryFetchVideo(ctx context.Context) (state.GameState, error) {
	return s.fetchVideo(ctx, s.currentEpoch())
}

func (s *Session) fetchVideo(ctx context.Context, epoch int) (state.GameState, error) {
	gs, err := s.applyAt(epoch, state.BeginVideoFetch)
	if err != nil {
		if errors.Is(err, errStale) {
			return gs, apperr.Wrap(apperr.CodeInvalidPhase, errStale.Error(), err)
		}
		return gs, err
	}
	s.publishVideo(gs)

	playable, err := s.deps.Resolver.Resolve(ctx, s.id.String(), gs.VideoAssetRef)
	if err != nil {
		next, applyErr := s.applyAt(epoch, func(gs state.GameState, now time.Time) (state.GameState, error) {
			return state.VideoFetchFailed(gs, err.Error(), now), nil
		})
		if applyErr == nil {
			s.publishVideo(next)
			return next, err
		}
		return gs, err
	}

	next, err := s.applyAt(epoch, func(gs state.GameState, now time.Time) (state.GameState, error) {
		return state.SetPlayableVideo(gs, playable.URL, now)
	})
	if err != nil {
		// Nothing references the blob once the result is dropped.
		if discardErr := s.deps.Resolver.Discard(context.WithoutCancel(ctx), s.id.String(), playable); discardErr != nil {
			s.logger.Warn("Failed to discard unused video blob", "error", discardErr)
		}
		return next, err
	}
	s.logger.InfoContext(ctx, "Video ready", "proxied", playable.Proxied)
	s.publishVideo(next)
	return next, nil
}

func (s *Session) publishVideo(gs state.GameState) {
	data := map[string]any{
		"phase":        gs.Phase,
		"gen_status":   gs.VideoGenStatus,
		"fetch_status": gs.VideoFetchStatus,
		"prepared":     gs.VideoPrepared(),
	}
	if gs.PlayableVideoURL != "" {
		data["url"] = gs.PlayableVideoURL
	}
	if gs.VideoError != "" {
		data["error"] = gs.VideoError
	}
	s.publish(events.EventTypeVideoStatus, data)
}
