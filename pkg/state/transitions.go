package state

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrInvalidTransition is wrapped by every TransitionError.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrInvalidTurn is returned when a turn is rejected.
	ErrInvalidTurn = errors.New("invalid turn")
)

// TransitionError reports a transition attempted from the wrong state.
type TransitionError struct {
	Op     string
	Phase  Phase
	Reason string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s in phase %s: %s", e.Op, e.Phase, e.Reason)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

func invalid(op string, gs GameState, reason string) error {
	return &TransitionError{Op: op, Phase: gs.Phase, Reason: reason}
}

// SelectGenre starts play on a chosen genre. The user writes the first turn.
func SelectGenre(gs GameState, genre string, now time.Time) (GameState, error) {
	genre = strings.TrimSpace(genre)
	if genre == "" {
		return gs, fmt.Errorf("%w: genre is required", ErrInvalidTurn)
	}
	if gs.Phase != PhaseTopicSelection {
		return gs, invalid("select genre", gs, "game already started")
	}

	gs.Genre = genre
	gs.Topic = ""
	gs.Phase = PhasePlaying
	gs.CurrentTurnNumber = 0
	gs.IsUserTurn = true
	gs.Turns = []Turn{}
	gs.UpdatedAt = now
	return gs, nil
}

// SelectTopic starts play from a topic starter. The topic becomes the user's
// first turn, so the AI writes next.
func SelectTopic(gs GameState, topic string, turnID uuid.UUID, now time.Time) (GameState, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return gs, fmt.Errorf("%w: topic is required", ErrInvalidTurn)
	}
	switch {
	case gs.Phase == PhaseTopicSelection:
	case gs.Phase == PhasePlaying && len(gs.Turns) == 0:
	default:
		return gs, invalid("select topic", gs, "story already has turns")
	}

	gs.Topic = topic
	gs.Phase = PhasePlaying
	gs.IsUserTurn = true
	return AppendTurn(gs, AuthorUser, topic, turnID, now)
}

// AppendTurn commits the next turn. The turn, the turn counter and the
// active-player flag change together. Completing the last turn moves the game
// into panel generation.
func AppendTurn(gs GameState, author Author, content string, turnID uuid.UUID, now time.Time) (GameState, error) {
	if gs.Phase != PhasePlaying {
		return gs, invalid("append turn", gs, "game is not being played")
	}
	if len(gs.Turns) >= MaxTurns {
		return gs, invalid("append turn", gs, "story is complete")
	}
	if author != gs.NextAuthor() {
		return gs, fmt.Errorf("%w: expected a %s turn, got %s", ErrInvalidTurn, gs.NextAuthor(), author)
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return gs, fmt.Errorf("%w: content is required", ErrInvalidTurn)
	}

	turn := Turn{
		ID:         turnID,
		TurnNumber: len(gs.Turns) + 1,
		Author:     author,
		Content:    content,
		CreatedAt:  now,
	}

	turns := make([]Turn, len(gs.Turns), len(gs.Turns)+1)
	copy(turns, gs.Turns)
	gs.Turns = append(turns, turn)
	gs.CurrentTurnNumber = turn.TurnNumber
	gs.IsUserTurn = author == AuthorAI
	gs.UpdatedAt = now

	if len(gs.Turns) == MaxTurns {
		gs.Phase = PhaseGeneratingImage
		gs.IsUserTurn = false
		gs.PanelStatus = PanelStatusIdle
	}
	return gs, nil
}

// SetConversationHandle records the latest continuation token.
func SetConversationHandle(gs GameState, handle string, now time.Time) GameState {
	if handle == "" {
		return gs
	}
	gs.ConversationHandle = handle
	gs.UpdatedAt = now
	return gs
}

// BeginPanels starts a panel batch. An existing usable panel set is never
// regenerated; only a batch that ended in error can be retried.
func BeginPanels(gs GameState, now time.Time) (GameState, error) {
	if gs.Phase != PhaseGeneratingImage {
		return gs, invalid("generate panels", gs, "story is not finished")
	}
	if len(gs.Turns) != MaxTurns {
		return gs, invalid("generate panels", gs, fmt.Sprintf("need %d turns, have %d", MaxTurns, len(gs.Turns)))
	}
	if gs.PanelStatus == PanelStatusGenerating {
		return gs, invalid("generate panels", gs, "panels are already being generated")
	}
	if gs.PanelsReusable() {
		return gs, invalid("generate panels", gs, "panels already exist")
	}

	gs.PanelStatus = PanelStatusGenerating
	gs.PanelGenerationProgress = 0
	gs.PanelImages = nil
	gs.PanelErrors = nil
	gs.UpdatedAt = now
	return gs, nil
}

// PanelSettled counts one finished panel attempt, successful or not.
func PanelSettled(gs GameState, now time.Time) GameState {
	if gs.PanelStatus != PanelStatusGenerating {
		return gs
	}
	gs.PanelGenerationProgress = min(gs.PanelGenerationProgress+1, PanelCount)
	gs.UpdatedAt = now
	return gs
}

// SetPanels stores the finished batch and moves on to video preferences.
// partial marks a batch in which some panels failed.
func SetPanels(gs GameState, images []string, partial bool, failures []string, now time.Time) (GameState, error) {
	if gs.Phase != PhaseGeneratingImage || gs.PanelStatus != PanelStatusGenerating {
		return gs, invalid("set panels", gs, "no panel batch in progress")
	}
	if len(images) == 0 || len(images) > PanelCount {
		return gs, invalid("set panels", gs, fmt.Sprintf("expected 1 to %d panels, got %d", PanelCount, len(images)))
	}

	gs.PanelImages = slices.Clone(images)
	gs.PanelErrors = slices.Clone(failures)
	gs.PanelGenerationProgress = PanelCount
	gs.PanelStatus = PanelStatusComplete
	if partial {
		gs.PanelStatus = PanelStatusPartial
	}
	gs.Phase = PhaseVideoPreferences
	gs.UpdatedAt = now
	return gs, nil
}

// PanelsFailed records a batch in which no panel succeeded. The phase is kept
// so the batch can be retried.
func PanelsFailed(gs GameState, failures []string, now time.Time) GameState {
	if gs.PanelStatus != PanelStatusGenerating {
		return gs
	}
	gs.PanelStatus = PanelStatusError
	gs.PanelImages = nil
	gs.PanelErrors = slices.Clone(failures)
	gs.UpdatedAt = now
	return gs
}

// SetVideoPreferences validates and stores the user's video choices.
func SetVideoPreferences(gs GameState, prefs VideoPreferences, now time.Time) (GameState, error) {
	if !canConfigureVideo(gs) {
		return gs, invalid("set video preferences", gs, "panels are not ready")
	}
	normalized, err := prefs.Normalize()
	if err != nil {
		return gs, err
	}
	gs.VideoPreferences = &normalized
	gs.UpdatedAt = now
	return gs, nil
}

// BeginVideo starts the video operation. Preferences must already be set.
func BeginVideo(gs GameState, now time.Time) (GameState, error) {
	if !canConfigureVideo(gs) {
		return gs, invalid("generate video", gs, "panels are not ready")
	}
	if gs.VideoGenStatus == VideoGenGenerating {
		return gs, invalid("generate video", gs, "video is already being generated")
	}
	if gs.VideoPreferences == nil {
		return gs, &PreferencesError{Field: "preferences", Reason: "must be set before generating a video"}
	}

	gs.Phase = PhaseGeneratingVideo
	gs.VideoGenStatus = VideoGenGenerating
	gs.VideoFetchStatus = VideoFetchIdle
	gs.VideoOperationHandle = ""
	gs.VideoAssetRef = ""
	gs.PlayableVideoURL = ""
	gs.VideoError = ""
	gs.UpdatedAt = now
	return gs, nil
}

// SetVideoOperation records the operation handle while the video renders.
func SetVideoOperation(gs GameState, handle string, now time.Time) (GameState, error) {
	if gs.Phase != PhaseGeneratingVideo || gs.VideoGenStatus != VideoGenGenerating {
		return gs, invalid("set video operation", gs, "no video in progress")
	}
	gs.VideoOperationHandle = handle
	gs.UpdatedAt = now
	return gs, nil
}

// SetVideoAsset records the finished remote asset. The game stays in
// generating-video until a playable URL is resolved.
func SetVideoAsset(gs GameState, assetRef string, now time.Time) (GameState, error) {
	if gs.Phase != PhaseGeneratingVideo {
		return gs, invalid("set video asset", gs, "no video in progress")
	}
	if strings.TrimSpace(assetRef) == "" {
		return gs, invalid("set video asset", gs, "asset reference is empty")
	}
	gs.VideoAssetRef = assetRef
	gs.VideoGenStatus = VideoGenComplete
	gs.VideoFetchStatus = VideoFetchIdle
	gs.VideoError = ""
	gs.UpdatedAt = now
	return gs, nil
}

// VideoFailed records a failed video operation.
func VideoFailed(gs GameState, reason string, now time.Time) GameState {
	if gs.Phase != PhaseGeneratingVideo {
		return gs
	}
	gs.VideoGenStatus = VideoGenError
	gs.VideoError = reason
	gs.UpdatedAt = now
	return gs
}

// BeginVideoFetch starts resolving the asset into a playable URL.
func BeginVideoFetch(gs GameState, now time.Time) (GameState, error) {
	if gs.Phase != PhaseGeneratingVideo || gs.VideoAssetRef == "" {
		return gs, invalid("fetch video", gs, "no video asset to fetch")
	}
	if gs.VideoFetchStatus == VideoFetchFetching {
		return gs, invalid("fetch video", gs, "video is already being fetched")
	}
	gs.VideoFetchStatus = VideoFetchFetching
	gs.UpdatedAt = now
	return gs, nil
}

// SetPlayableVideo completes the game.
func SetPlayableVideo(gs GameState, url string, now time.Time) (GameState, error) {
	if gs.Phase != PhaseGeneratingVideo || gs.VideoAssetRef == "" {
		return gs, invalid("set playable video", gs, "no video asset")
	}
	if url == "" {
		return gs, invalid("set playable video", gs, "url is empty")
	}
	gs.PlayableVideoURL = url
	gs.VideoFetchStatus = VideoFetchReady
	gs.VideoError = ""
	gs.Phase = PhaseComplete
	gs.UpdatedAt = now
	return gs, nil
}

// VideoFetchFailed records a failed fetch. The asset stays available for a retry.
func VideoFetchFailed(gs GameState, reason string, now time.Time) GameState {
	if gs.VideoFetchStatus != VideoFetchFetching {
		return gs
	}
	gs.VideoFetchStatus = VideoFetchError
	gs.VideoError = reason
	gs.UpdatedAt = now
	return gs
}

// Reset returns the game to its initial state, keeping its ID.
func Reset(gs GameState, now time.Time) GameState {
	fresh := New(gs.ID, now)
	fresh.CreatedAt = gs.CreatedAt
	return fresh
}

func canConfigureVideo(gs GameState) bool {
	switch gs.Phase {
	case PhaseVideoPreferences:
		return true
	case PhaseGeneratingVideo:
		// retry after a failed operation
		return gs.VideoGenStatus == VideoGenError
	default:
		return false
	}
}
