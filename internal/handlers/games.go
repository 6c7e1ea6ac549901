package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/jwebster45206/story-reel/internal/apperr"
	"github.com/jwebster45206/story-reel/internal/generation"
	"github.com/jwebster45206/story-reel/internal/session"
	"github.com/jwebster45206/story-reel/pkg/state"
)

// GameResponse is a game snapshot plus the derived flags a UI needs.
type GameResponse struct {
	state.GameState
	VideoPrepared  bool `json:"video_prepared"`
	TurnsRemaining int  `json:"turns_remaining"`
}

type OptionsResponse struct {
	Options []generation.Option `json:"options"`
}

type GenreRequest struct {
	Genre string `json:"genre"`
}

type TopicRequest struct {
	Topic string `json:"topic"`
}

type TurnRequest struct {
	Content string `json:"content"`
}

type GenerateVideoRequest struct {
	// ReferenceImages defaults to the game's panels.
	ReferenceImages []string `json:"reference_images,omitempty"`
}

// GamesHandler drives games held by the session manager.
type GamesHandler struct {
	manager *session.Manager
	logger  *slog.Logger
}

func NewGamesHandler(manager *session.Manager, logger *slog.Logger) *GamesHandler {
	return &GamesHandler{manager: manager, logger: logger}
}

// ServeHTTP handles game requests
// Routes:
// POST   /v1/games                            - Create a game
// GET    /v1/games/{id}                       - Read a game
// DELETE /v1/games/{id}                       - Delete a game
// POST   /v1/games/{id}/genre                 - Start with a genre
// POST   /v1/games/{id}/topic                 - Start with a topic (user turn 1)
// POST   /v1/games/{id}/options               - Options for the user's turn
// POST   /v1/games/{id}/turns                 - Commit the user's turn
// POST   /v1/games/{id}/ai-turn               - Generate and commit the AI's turn
// POST   /v1/games/{id}/panels                - Start panel generation (202)
// POST   /v1/games/{id}/video-preferences     - Set video preferences
// POST   /v1/games/{id}/video                 - Start video generation (202)
// POST   /v1/games/{id}/video-fetch           - Retry resolving a prepared video
// POST   /v1/games/{id}/reset                 - Back to topic selection
func (h *GamesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/games"), "/")
	var parts []string
	if path != "" {
		parts = strings.Split(path, "/")
	}

	if len(parts) == 0 {
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, h.logger, http.MethodPost)
			return
		}
		s := h.manager.Create()
		writeJSON(w, h.logger, http.StatusCreated, gameResponse(s.Snapshot()))
		return
	}
	if len(parts) > 2 {
		writeError(w, r, h.logger, apperr.New(apperr.CodeNotFound, "unknown game route"))
		return
	}

	id, err := uuid.Parse(parts[0])
	if err != nil {
		h.logger.Warn("Invalid game ID", "id", parts[0], "error", err)
		writeError(w, r, h.logger, apperr.Validation("Invalid game ID format"))
		return
	}

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			s, err := h.manager.Get(id)
			if err != nil {
				writeError(w, r, h.logger, err)
				return
			}
			writeJSON(w, h.logger, http.StatusOK, gameResponse(s.Snapshot()))
		case http.MethodDelete:
			if err := h.manager.Delete(r.Context(), id); err != nil {
				writeError(w, r, h.logger, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			methodNotAllowed(w, r, h.logger, http.MethodGet, http.MethodDelete)
		}
		return
	}

	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, h.logger, http.MethodPost)
		return
	}
	s, err := h.manager.Get(id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.handleAction(w, r, s, parts[1])
}

func (h *GamesHandler) handleAction(w http.ResponseWriter, r *http.Request, s *session.Session, action string) {
	ctx := r.Context()
	status := http.StatusOK
	var (
		gs  state.GameState
		err error
	)

	switch action {
	case "genre":
		var req GenreRequest
		if err = decodeJSON(w, r, &req); err == nil {
			gs, err = s.SelectGenre(ctx, req.Genre)
		}

	case "topic":
		var req TopicRequest
		if err = decodeJSON(w, r, &req); err == nil {
			gs, err = s.SelectTopic(ctx, req.Topic)
		}

	case "options":
		options, err := s.Options(ctx)
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		writeJSON(w, h.logger, http.StatusOK, OptionsResponse{Options: options})
		return

	case "turns":
		var req TurnRequest
		if err = decodeJSON(w, r, &req); err == nil {
			gs, err = s.SubmitUserTurn(ctx, req.Content)
		}

	case "ai-turn":
		gs, err = s.TakeAITurn(ctx)

	case "panels":
		gs, err = s.GeneratePanels(ctx)
		if gs.PanelStatus == state.PanelStatusGenerating {
			status = http.StatusAccepted
		}

	case "video-preferences":
		var prefs state.VideoPreferences
		if err = decodeJSON(w, r, &prefs); err == nil {
			gs, err = s.SetVideoPreferences(ctx, prefs)
		}

	case "video":
		var req GenerateVideoRequest
		if err = decodeJSON(w, r, &req); err == nil {
			gs, err = s.GenerateVideo(ctx, req.ReferenceImages)
			status = http.StatusAccepted
		}

	case "video-fetch":
		gs, err = s.RetryFetchVideo(ctx)

	case "reset":
		gs = s.Reset(ctx)

	default:
		writeError(w, r, h.logger, apperr.Newf(apperr.CodeNotFound, "unknown game action %q", action))
		return
	}

	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, status, gameResponse(gs))
}

func gameResponse(gs state.GameState) GameResponse {
	return GameResponse{
		GameState:      gs,
		VideoPrepared:  gs.VideoPrepared(),
		TurnsRemaining: gs.TurnsRemaining(),
	}
}
