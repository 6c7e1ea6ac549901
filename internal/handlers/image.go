package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jwebster45206/story-reel/internal/apperr"
	"github.com/jwebster45206/story-reel/internal/generation"
)

// DefaultImageTimeout bounds one image request.
const DefaultImageTimeout = 60 * time.Second

type ImageRequest struct {
	FullStory  string `json:"full_story"`
	SceneLabel string `json:"scene_label,omitempty"`
}

type ImageResponse struct {
	ImageURL string `json:"image_url"`
	MIMEType string `json:"mime_type"`
}

type ImageHandler struct {
	images generation.PanelGenerator
	logger *slog.Logger
	// Timeout bounds one request, retries included.
	Timeout time.Duration
}

func NewImageHandler(images generation.PanelGenerator, logger *slog.Logger) *ImageHandler {
	return &ImageHandler{images: images, logger: logger, Timeout: DefaultImageTimeout}
}

// ServeHTTP handles POST /v1/image
func (h *ImageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, h.logger, http.MethodPost)
		return
	}

	var req ImageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if strings.TrimSpace(req.FullStory) == "" {
		writeError(w, r, h.logger, apperr.Validation("full_story is required"))
		return
	}
	label := strings.TrimSpace(req.SceneLabel)

	start := time.Now()
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	img, err := h.images.GeneratePanel(ctx, req.FullStory, label, generation.DefaultMaxAttempts)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = apperr.Wrap(apperr.CodeTimeout,
				fmt.Sprintf("Image generation timeout after %d seconds", int(h.Timeout.Seconds())), err)
		}
		writeError(w, r, h.logger, err)
		return
	}

	h.logger.Info("Image generated",
		"elapsed_ms", time.Since(start).Milliseconds(),
		"scene_label", label)

	w.Header().Set("Cache-Control", "public, max-age=3600")
	writeJSON(w, h.logger, http.StatusOK, ImageResponse{ImageURL: img.DataURL(), MIMEType: img.MIMEType})
}
