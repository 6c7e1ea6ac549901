package state

import (
	"time"

	"github.com/google/uuid"
)

// MaxTurns is the number of story turns in a game.
const MaxTurns = 4

// PanelCount is the number of illustrated panels generated for a story.
const PanelCount = 4

// Phase is the top-level stage of a game.
type Phase string

const (
	PhaseTopicSelection   Phase = "topic-selection"
	PhasePlaying          Phase = "playing"
	PhaseGeneratingImage  Phase = "generating-image"
	PhaseVideoPreferences Phase = "video-preferences"
	PhaseGeneratingVideo  Phase = "generating-video"
	PhaseComplete         Phase = "complete"
)

var phaseOrder = map[Phase]int{
	PhaseTopicSelection:   0,
	PhasePlaying:          1,
	PhaseGeneratingImage:  2,
	PhaseVideoPreferences: 3,
	PhaseGeneratingVideo:  4,
	PhaseComplete:         5,
}

// Author identifies who wrote a turn.
type Author string

const (
	AuthorUser Author = "user"
	AuthorAI   Author = "ai"
)

// PanelStatus tracks the panel batch.
type PanelStatus string

const (
	PanelStatusIdle       PanelStatus = "idle"
	PanelStatusGenerating PanelStatus = "generating"
	PanelStatusComplete   PanelStatus = "complete"
	PanelStatusPartial    PanelStatus = "partial"
	PanelStatusError      PanelStatus = "error"
)

// VideoGenStatus tracks the long-running video operation.
type VideoGenStatus string

const (
	VideoGenIdle       VideoGenStatus = "idle"
	VideoGenGenerating VideoGenStatus = "generating"
	VideoGenComplete   VideoGenStatus = "complete"
	VideoGenError      VideoGenStatus = "error"
)

// VideoFetchStatus tracks turning the remote asset into a playable URL.
type VideoFetchStatus string

const (
	VideoFetchIdle     VideoFetchStatus = "idle"
	VideoFetchFetching VideoFetchStatus = "fetching"
	VideoFetchReady    VideoFetchStatus = "ready"
	VideoFetchError    VideoFetchStatus = "error"
)

// Turn is one accepted story contribution. Turns are never edited.
type Turn struct {
	ID         uuid.UUID `json:"id"`
	TurnNumber int       `json:"turn_number"` // 1..MaxTurns
	Author     Author    `json:"author"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

// GameState is the aggregate for one game session. It is only changed through
// the transition functions in this package, each of which returns a new value.
type GameState struct {
	ID                 uuid.UUID `json:"id"`
	Phase              Phase     `json:"phase"`
	Genre              string    `json:"genre,omitempty"`
	Topic              string    `json:"topic,omitempty"`
	CurrentTurnNumber  int       `json:"current_turn_number"`
	IsUserTurn         bool      `json:"is_user_turn"`
	ConversationHandle string    `json:"conversation_handle,omitempty"` // continuation token for the text model
	Turns              []Turn    `json:"turns"`

	PanelImages             []string    `json:"panel_images,omitempty"` // data URLs in narrative order
	PanelGenerationProgress int         `json:"panel_generation_progress"`
	PanelStatus             PanelStatus `json:"panel_status"`
	PanelErrors             []string    `json:"panel_errors,omitempty"`

	VideoPreferences     *VideoPreferences `json:"video_preferences,omitempty"`
	VideoOperationHandle string            `json:"video_operation_handle,omitempty"`
	VideoAssetRef        string            `json:"video_asset_ref,omitempty"`    // remote URI, may need proxying
	PlayableVideoURL     string            `json:"playable_video_url,omitempty"` // loadable by a player
	VideoGenStatus       VideoGenStatus    `json:"video_gen_status"`
	VideoFetchStatus     VideoFetchStatus  `json:"video_fetch_status"`
	VideoError           string            `json:"video_error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New returns the initial state for a game.
func New(id uuid.UUID, now time.Time) GameState {
	return GameState{
		ID:               id,
		Phase:            PhaseTopicSelection,
		IsUserTurn:       true,
		Turns:            []Turn{},
		PanelStatus:      PanelStatusIdle,
		VideoGenStatus:   VideoGenIdle,
		VideoFetchStatus: VideoFetchIdle,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// NextAuthor is who writes the next turn.
func (gs GameState) NextAuthor() Author {
	if gs.IsUserTurn {
		return AuthorUser
	}
	return AuthorAI
}

// TurnsRemaining is how many turns can still be added.
func (gs GameState) TurnsRemaining() int {
	return MaxTurns - len(gs.Turns)
}

// VideoPrepared reports the "prepared but not fetched" sub-state: the video
// operation produced an asset but no playable URL has been resolved yet.
func (gs GameState) VideoPrepared() bool {
	return gs.Phase == PhaseGeneratingVideo && gs.VideoAssetRef != "" && gs.PlayableVideoURL == ""
}

// PanelsReusable reports whether an existing panel set must be kept rather
// than regenerated.
func (gs GameState) PanelsReusable() bool {
	return len(gs.PanelImages) > 0 && gs.PanelStatus != PanelStatusError
}
