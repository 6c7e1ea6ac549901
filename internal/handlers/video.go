package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/jwebster45206/story-reel/internal/apperr"
	"github.com/jwebster45206/story-reel/internal/services"
	"github.com/jwebster45206/story-reel/internal/video"
	"github.com/jwebster45206/story-reel/pkg/state"
)

type VideoRequest struct {
	Action string `json:"action"` // enum "generate" | "poll" | "download"

	// generate
	Genre           string           `json:"genre,omitempty"`
	ReferenceImages []string         `json:"reference_images,omitempty"`
	Style           state.VideoStyle `json:"style,omitempty"`
	DurationSeconds int              `json:"duration_seconds,omitempty"`
	AspectRatio     string           `json:"aspect_ratio,omitempty"`
	Resolution      string           `json:"resolution,omitempty"`
	NegativePrompt  string           `json:"negative_prompt,omitempty"`

	// poll
	OperationName string `json:"operation_name,omitempty"`

	// download
	VideoURL string `json:"video_url,omitempty"`
}

type VideoOperationResponse struct {
	OperationName string  `json:"operation_name"`
	Done          bool    `json:"done"`
	VideoURL      *string `json:"video_url"`
	Error         *string `json:"error"`
}

// VideoHandler exposes the video operation directly, without a game session.
type VideoHandler struct {
	api     services.VideoAPI
	limiter video.Submitter
	logger  *slog.Logger
}

func NewVideoHandler(api services.VideoAPI, lim video.Submitter, logger *slog.Logger) *VideoHandler {
	return &VideoHandler{api: api, limiter: lim, logger: logger}
}

// ServeHTTP handles POST /v1/video
func (h *VideoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, h.logger, http.MethodPost)
		return
	}

	var req VideoRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	switch req.Action {
	case "generate":
		h.handleGenerate(w, r, req)
	case "poll":
		h.handlePoll(w, r, req)
	case "download":
		h.handleDownload(w, r, req)
	default:
		writeError(w, r, h.logger, apperr.Validation("Invalid action. Must be 'generate', 'poll', or 'download'"))
	}
}

func (h *VideoHandler) handleGenerate(w http.ResponseWriter, r *http.Request, req VideoRequest) {
	if len(req.ReferenceImages) == 0 {
		writeError(w, r, h.logger, apperr.Validation("referenceImages array is required with at least 1 image"))
		return
	}
	if req.Style == "" {
		writeError(w, r, h.logger, apperr.Validation(fmt.Sprintf("style is required (%s)", styleList())))
		return
	}

	params, err := video.NormalizeParams(video.Params{
		Preferences: state.VideoPreferences{
			Style:           req.Style,
			DurationSeconds: req.DurationSeconds,
			AspectRatio:     req.AspectRatio,
			Resolution:      req.Resolution,
			NegativePrompt:  req.NegativePrompt,
		},
		Genre:           req.Genre,
		ReferenceImages: req.ReferenceImages,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	videoReq, err := params.Request()
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	var op *services.VideoOperation
	err = h.limiter.Submit(r.Context(), func(ctx context.Context) error {
		o, err := h.api.StartVideo(ctx, videoReq)
		op = o
		return err
	})
	if err != nil {
		writeError(w, r, h.logger, apperr.Wrap(apperr.CodeFor(err, apperr.CodeGeneration),
			fmt.Sprintf("Failed to generate video: %v", err), err))
		return
	}
	if op == nil {
		writeError(w, r, h.logger, apperr.New(apperr.CodeGeneration, "Failed to generate video: no operation returned"))
		return
	}

	h.logger.Info("Video generation started",
		"operation", op.Name,
		"style", params.Preferences.Style,
		"duration_s", params.Preferences.DurationSeconds,
		"resolution", params.Preferences.Resolution)
	writeJSON(w, h.logger, http.StatusOK, operationResponse(op))
}

func (h *VideoHandler) handlePoll(w http.ResponseWriter, r *http.Request, req VideoRequest) {
	name := strings.TrimSpace(req.OperationName)
	if name == "" {
		writeError(w, r, h.logger, apperr.Validation("operation_name string is required for polling"))
		return
	}

	op, err := h.api.PollVideo(r.Context(), name)
	if err != nil {
		writeError(w, r, h.logger, apperr.Wrap(apperr.CodeFor(err, apperr.CodeGeneration),
			fmt.Sprintf("Failed to poll video status: %v", err), err))
		return
	}
	if op == nil {
		writeError(w, r, h.logger, apperr.Newf(apperr.CodeGeneration, "Failed to poll video status: no operation %s", name))
		return
	}
	writeJSON(w, h.logger, http.StatusOK, operationResponse(op))
}

// handleDownload streams the video through the service, adding the API
// credential. Upstream failures keep the upstream status code.
func (h *VideoHandler) handleDownload(w http.ResponseWriter, r *http.Request, req VideoRequest) {
	url := strings.TrimSpace(req.VideoURL)
	if url == "" {
		writeError(w, r, h.logger, apperr.Validation("video_url is required for download"))
		return
	}

	dl, err := h.api.Download(r.Context(), url)
	if errors.Is(err, apperr.ErrValidation) {
		writeError(w, r, h.logger, err)
		return
	}
	if err != nil {
		var httpErr *apperr.HTTPError
		if errors.As(err, &httpErr) {
			msg := fmt.Sprintf("Failed to download video (%d)", httpErr.StatusCode)
			if httpErr.Body != "" {
				msg += ": " + httpErr.Body
			}
			h.logger.Warn("Video download failed", "status", httpErr.StatusCode)
			writeJSON(w, h.logger, httpErr.StatusCode, ErrorResponse{Error: msg})
			return
		}
		writeError(w, r, h.logger, apperr.Wrap(apperr.CodeFor(err, apperr.CodeGeneration),
			fmt.Sprintf("Failed to download video: %v", err), err))
		return
	}
	if dl == nil {
		writeError(w, r, h.logger, apperr.New(apperr.CodeEmptyResponse, "Failed to download video: empty response"))
		return
	}

	w.Header().Set("Content-Type", dl.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(dl.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(dl.Data); err != nil {
		h.logger.Error("Failed to write video", "error", err)
	}
}

func operationResponse(op *services.VideoOperation) VideoOperationResponse {
	resp := VideoOperationResponse{OperationName: op.Name, Done: op.Done}
	if op.URI != "" {
		resp.VideoURL = &op.URI
	}
	if op.Error != "" {
		resp.Error = &op.Error
	}
	return resp
}

func styleList() string {
	names := make([]string, len(state.VideoStyles))
	for i, s := range state.VideoStyles {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}
