package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/story-reel/internal/apperr"
	"github.com/jwebster45206/story-reel/internal/middleware"
)

// logLines decodes JSON log output into one map per line.
func logLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var lines []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		lines = append(lines, entry)
	}
	return lines
}

func TestErrorLogsCarryRequestID(t *testing.T) {
	tests := []struct {
		name    string
		handler func(log *slog.Logger) http.HandlerFunc
		status  int
		message string
		err     string
	}{
		{
			name: "rejected request",
			handler: func(log *slog.Logger) http.HandlerFunc {
				return func(w http.ResponseWriter, r *http.Request) {
					writeError(w, r, log, apperr.Validation("genre is required"))
				}
			},
			status:  http.StatusBadRequest,
			message: "Request rejected",
			err:     "genre is required",
		},
		{
			name: "failed request",
			handler: func(log *slog.Logger) http.HandlerFunc {
				return func(w http.ResponseWriter, r *http.Request) {
					writeError(w, r, log, apperr.New(apperr.CodeGeneration, "model unavailable"))
				}
			},
			status:  http.StatusBadGateway,
			message: "Request failed",
			err:     "model unavailable",
		},
		{
			name: "method not allowed",
			handler: func(log *slog.Logger) http.HandlerFunc {
				return func(w http.ResponseWriter, r *http.Request) {
					methodNotAllowed(w, r, log, http.MethodPost)
				}
			},
			status:  http.StatusMethodNotAllowed,
			message: "Method not allowed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := slog.New(slog.NewJSONHandler(&buf, nil))
			quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
			h := middleware.LoggerWith(quiet, tt.handler(log))

			req := httptest.NewRequest(http.MethodGet, "/v1/story", nil)
			req.Header.Set(middleware.RequestIDHeader, "req-42")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			lines := logLines(t, &buf)
			require.NotEmpty(t, lines)
			assert.Equal(t, tt.message, lines[0]["msg"])
			assert.Equal(t, "req-42", lines[0]["request_id"])
			if tt.err != "" {
				assert.Equal(t, tt.err, lines[0]["error"])
			}
		})
	}
}

func TestWriteErrorWithoutRequestID(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))

	req := httptest.NewRequest(http.MethodGet, "/v1/story", nil)
	w := httptest.NewRecorder()
	writeError(w, req, log, apperr.Validation("genre is required"))

	lines := logLines(t, &buf)
	require.Len(t, lines, 1)
	assert.NotContains(t, lines[0], "request_id")
}
