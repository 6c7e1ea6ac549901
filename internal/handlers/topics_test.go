package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/story-reel/internal/apperr"
	"github.com/jwebster45206/story-reel/internal/services"
	"github.com/jwebster45206/story-reel/pkg/prompts"
)

type topicsFunc func(ctx context.Context) ([]string, error)

func (f topicsFunc) GenerateTopics(ctx context.Context) ([]string, error) { return f(ctx) }

func TestTopicsHandler(t *testing.T) {
	t.Run("generated topics", func(t *testing.T) {
		model := services.NewMockTextModel()
		model.InteractFunc = func(context.Context, string, string) (*services.Interaction, error) {
			return &services.Interaction{Text: `["A comet whispers to the colony.", "The archive starts deleting itself.", "A child remembers a future war.", "Mars answers a question nobody asked.", "The last ship leaves without its captain."]`}, nil
		}
		handler := NewTopicsHandler(newTextGenerator(model), testLogger())

		rr := doJSON(t, handler, http.MethodGet, "/v1/topics", nil)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		resp := decode[TopicsResponse](t, rr)
		require.Len(t, resp.Topics, prompts.TopicCount)
		assert.Equal(t, Topic{ID: "topic-1", Text: "A comet whispers to the colony."}, resp.Topics[0])
		assert.Equal(t, "topic-5", resp.Topics[4].ID)
		assert.False(t, resp.Fallback)
	})

	t.Run("extraction failure falls back", func(t *testing.T) {
		handler := NewTopicsHandler(topicsFunc(func(context.Context) ([]string, error) {
			return nil, apperr.New(apperr.CodeExtraction, "failed to extract valid JSON array from response")
		}), testLogger())

		rr := doJSON(t, handler, http.MethodGet, "/v1/topics", nil)
		require.Equal(t, http.StatusOK, rr.Code)

		resp := decode[TopicsResponse](t, rr)
		assert.True(t, resp.Fallback)
		require.Len(t, resp.Topics, prompts.TopicCount)
		for i, topic := range resp.Topics {
			assert.Equal(t, prompts.FallbackTopics[i], topic.Text)
		}
	})

	t.Run("short list is padded", func(t *testing.T) {
		handler := NewTopicsHandler(topicsFunc(func(context.Context) ([]string, error) {
			return []string{"Only one idea came back."}, nil
		}), testLogger())

		resp := decode[TopicsResponse](t, doJSON(t, handler, http.MethodGet, "/v1/topics", nil))
		require.Len(t, resp.Topics, prompts.TopicCount)
		assert.Equal(t, "Only one idea came back.", resp.Topics[0].Text)
		assert.Equal(t, prompts.FallbackTopics[0], resp.Topics[1].Text)
	})

	t.Run("model failure", func(t *testing.T) {
		handler := NewTopicsHandler(topicsFunc(func(context.Context) ([]string, error) {
			return nil, &apperr.HTTPError{StatusCode: 503}
		}), testLogger())

		rr := doJSON(t, handler, http.MethodGet, "/v1/topics", nil)
		assert.Equal(t, http.StatusBadGateway, rr.Code)
		assert.Equal(t, "Failed to generate topics", decode[ErrorResponse](t, rr).Error)
	})

	t.Run("wrong method", func(t *testing.T) {
		handler := NewTopicsHandler(topicsFunc(nil), testLogger())
		rr := doJSON(t, handler, http.MethodPost, "/v1/topics", nil)
		assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	})
}
