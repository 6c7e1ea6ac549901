package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/story-reel/internal/generation"
	"github.com/jwebster45206/story-reel/internal/limiter"
	"github.com/jwebster45206/story-reel/internal/services"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError, // Reduce noise in tests
	}))
}

type directSubmitter struct{}

func (directSubmitter) Submit(ctx context.Context, task limiter.Task) error { return task(ctx) }

func noSleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

func noJitter(time.Duration) time.Duration { return 0 }

func newTextGenerator(model services.TextModel) *generation.TextGenerator {
	return generation.NewTextGenerator(model, directSubmitter{}, testLogger(),
		generation.WithTextSleep(noSleep), generation.WithTextJitter(noJitter))
}

func newImageGenerator(model services.ImageModel) *generation.ImageGenerator {
	return generation.NewImageGenerator(model, directSubmitter{}, testLogger(),
		generation.WithImageSleep(noSleep), generation.WithImageJitter(noJitter))
}

// storyModel answers option prompts with a JSON array and everything else
// with a sentence.
func storyModel() *services.MockTextModel {
	model := services.NewMockTextModel()
	model.InteractFunc = func(_ context.Context, prompt, previousHandle string) (*services.Interaction, error) {
		if strings.Contains(prompt, "JSON array with exactly 3 strings") {
			return &services.Interaction{
				Text:   `["She opened the hatch and the stars went out.", "A voice on the radio spoke her name.", "The ship turned around on its own."]`,
				Handle: "options-handle",
			}, nil
		}
		return &services.Interaction{
			Text:   "The engines coughed back to life without anyone touching them",
			Handle: "turn-handle:" + previousHandle,
		}, nil
	}
	return model
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if s, ok := body.(string); ok {
		reader = strings.NewReader(s)
	} else if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(b))
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v), rr.Body.String())
	return v
}
