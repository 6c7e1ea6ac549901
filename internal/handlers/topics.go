package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jwebster45206/story-reel/internal/apperr"
	"github.com/jwebster45206/story-reel/pkg/prompts"
)

// TopicGenerator produces story starters.
type TopicGenerator interface {
	GenerateTopics(ctx context.Context) ([]string, error)
}

type Topic struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type TopicsResponse struct {
	Topics   []Topic `json:"topics"`
	Fallback bool    `json:"fallback,omitempty"`
}

type TopicsHandler struct {
	topics TopicGenerator
	logger *slog.Logger
}

func NewTopicsHandler(topics TopicGenerator, logger *slog.Logger) *TopicsHandler {
	return &TopicsHandler{topics: topics, logger: logger}
}

// ServeHTTP handles GET /v1/topics. Output the model gave that cannot be
// parsed is replaced by the fixed starter list; a failed model call is an
// error.
func (h *TopicsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, h.logger, http.MethodGet)
		return
	}

	texts, err := h.topics.GenerateTopics(r.Context())
	fallback := false
	if err != nil {
		if !errors.Is(err, apperr.ErrExtraction) {
			writeError(w, r, h.logger, apperr.Wrap(apperr.CodeFor(err, apperr.CodeGeneration), "Failed to generate topics", err))
			return
		}
		h.logger.Warn("Failed to extract story topics, using fallback", "error", err)
		texts, fallback = nil, true
	}

	padded := prompts.PadTopics(texts)
	resp := TopicsResponse{Topics: make([]Topic, len(padded)), Fallback: fallback}
	for i, text := range padded {
		resp.Topics[i] = Topic{ID: fmt.Sprintf("topic-%d", i+1), Text: text}
	}
	writeJSON(w, h.logger, http.StatusOK, resp)
}
