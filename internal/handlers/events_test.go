package handlers

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/story-reel/internal/services/events"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

// readEvent reads one "event:/data:" block, skipping comment lines.
func readEvent(t *testing.T, r *bufio.Reader) (string, string) {
	t.Helper()
	var eventType, data string
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			eventType = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "" && eventType != "":
			return eventType, data
		}
	}
}

func TestEventsHandler_StreamsGameEvents(t *testing.T) {
	client := newTestRedis(t)
	handler := NewEventsHandler(client, testLogger())
	server := httptest.NewServer(handler)
	defer server.Close()

	gameID := uuid.New()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/v1/events/games/"+gameID.String(), nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	eventType, data := readEvent(t, reader)
	assert.Equal(t, "connected", eventType)
	assert.Contains(t, data, gameID.String())

	// The subscription is live once "connected" arrives.
	broadcaster := events.NewBroadcaster(client, testLogger())
	require.NoError(t, broadcaster.Publish(ctx, uuid.New(), events.EventTypeTurnCommitted, map[string]any{"turn_number": 9}))
	require.NoError(t, broadcaster.Publish(ctx, gameID, events.EventTypeTurnCommitted, map[string]any{"turn_number": 1}))

	eventType, data = readEvent(t, reader)
	assert.Equal(t, string(events.EventTypeTurnCommitted), eventType)
	assert.JSONEq(t, `{"turn_number": 1}`, data)
}

func TestEventsHandler_Keepalive(t *testing.T) {
	client := newTestRedis(t)
	handler := NewEventsHandler(client, testLogger())
	handler.keepalive = 10 * time.Millisecond
	server := httptest.NewServer(handler)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/v1/events/games/"+uuid.NewString(), nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	readEvent(t, reader)
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if line == ": keepalive\n" {
			return
		}
	}
}

func TestEventsHandler_BadRequests(t *testing.T) {
	handler := NewEventsHandler(newTestRedis(t), testLogger())

	tests := []struct {
		name           string
		method         string
		path           string
		expectedStatus int
	}{
		{name: "bad id", method: http.MethodGet, path: "/v1/events/games/not-a-uuid", expectedStatus: http.StatusBadRequest},
		{name: "bad path", method: http.MethodGet, path: "/v1/events/" + uuid.NewString(), expectedStatus: http.StatusBadRequest},
		{name: "wrong method", method: http.MethodPost, path: "/v1/events/games/" + uuid.NewString(), expectedStatus: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.expectedStatus, rr.Code)
		})
	}
}
