package handlers

import (
	"log/slog"
	"net/http"

	"github.com/jwebster45206/story-reel/internal/apperr"
	"github.com/jwebster45206/story-reel/internal/generation"
	"github.com/jwebster45206/story-reel/internal/session"
)

const (
	TurnTypeUserOptions = "user-options"
	TurnTypeAITurn      = "ai-turn"
)

type StoryRequest struct {
	StorySoFar            string `json:"story_so_far"`
	Genre                 string `json:"genre,omitempty"`
	PreviousInteractionID string `json:"previous_interaction_id,omitempty"`
	TurnType              string `json:"turn_type"` // "user-options" | "ai-turn"
}

type StoryResponse struct {
	Options       []generation.Option `json:"options,omitempty"`
	Sentence      string              `json:"sentence,omitempty"`
	InteractionID string              `json:"interaction_id,omitempty"`
}

// StoryHandler is the stateless text endpoint: the caller carries the story
// and the continuation handle.
type StoryHandler struct {
	text   session.TextGenerator
	logger *slog.Logger
}

func NewStoryHandler(text session.TextGenerator, logger *slog.Logger) *StoryHandler {
	return &StoryHandler{text: text, logger: logger}
}

// ServeHTTP handles POST /v1/story
func (h *StoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, h.logger, http.MethodPost)
		return
	}

	var req StoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if req.StorySoFar == "" {
		writeError(w, r, h.logger, apperr.Validation("story_so_far is required"))
		return
	}

	switch req.TurnType {
	case TurnTypeUserOptions:
		res, err := h.text.GenerateOptions(r.Context(), req.Genre, req.StorySoFar, req.PreviousInteractionID)
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		writeJSON(w, h.logger, http.StatusOK, StoryResponse{Options: res.Options, InteractionID: res.Handle})

	case TurnTypeAITurn, "":
		res, err := h.text.GenerateAITurn(r.Context(), req.Genre, req.StorySoFar, req.PreviousInteractionID)
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		writeJSON(w, h.logger, http.StatusOK, StoryResponse{Sentence: res.Sentence, InteractionID: res.Handle})

	default:
		writeError(w, r, h.logger, apperr.Validation("turn_type must be 'user-options' or 'ai-turn'"))
	}
}
