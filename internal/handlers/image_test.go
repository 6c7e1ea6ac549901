package handlers

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/jwebster45206/story-reel/internal/services"
)

func TestImageHandler_Success(t *testing.T) {
	model := services.NewMockImageModel()
	handler := NewImageHandler(newImageGenerator(model), testLogger())

	rr := doJSON(t, handler, http.MethodPost, "/v1/image", ImageRequest{
		FullStory:  "The ship drifted past the last beacon.",
		SceneLabel: " Scene 2 ",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "public, max-age=3600", rr.Header().Get("Cache-Control"))

	resp := decode[ImageResponse](t, rr)
	assert.Equal(t, "data:image/png;base64,cG5nLWJ5dGVz", resp.ImageURL)
	assert.Equal(t, "image/png", resp.MIMEType)

	require.Equal(t, 1, model.CallCount())
	assert.True(t, strings.Contains(model.GenerateImageContentCalls[0], "Scene 2 keyframe"))
}

func TestImageHandler_Errors(t *testing.T) {
	tests := []struct {
		name           string
		body           any
		setup          func(m *services.MockImageModel)
		timeout        time.Duration
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "missing story",
			body:           ImageRequest{SceneLabel: "Scene 1"},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "full_story is required",
		},
		{
			name: "no image in reply",
			body: ImageRequest{FullStory: "A story."},
			setup: func(m *services.MockImageModel) {
				m.GenerateImageContentFunc = func(context.Context, string) (*genai.GenerateContentResponse, error) {
					return &genai.GenerateContentResponse{}, nil
				}
			},
			expectedStatus: http.StatusBadGateway,
			expectedError:  "Failed to generate comic image after 3 attempts",
		},
		{
			name: "timeout",
			body: ImageRequest{FullStory: "A story."},
			setup: func(m *services.MockImageModel) {
				m.GenerateImageContentFunc = func(ctx context.Context, _ string) (*genai.GenerateContentResponse, error) {
					<-ctx.Done()
					return nil, ctx.Err()
				}
			},
			timeout:        20 * time.Millisecond,
			expectedStatus: http.StatusGatewayTimeout,
			expectedError:  "Image generation timeout after",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := services.NewMockImageModel()
			if tt.setup != nil {
				tt.setup(model)
			}
			handler := NewImageHandler(newImageGenerator(model), testLogger())
			if tt.timeout > 0 {
				handler.Timeout = tt.timeout
			}

			rr := doJSON(t, handler, http.MethodPost, "/v1/image", tt.body)
			require.Equal(t, tt.expectedStatus, rr.Code, rr.Body.String())
			assert.Contains(t, decode[ErrorResponse](t, rr).Error, tt.expectedError)
		})
	}
}
