package events

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcaster_Publish(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	ctx := context.Background()
	gameID := uuid.New()

	sub := client.Subscribe(ctx, Channel(gameID))
	defer func() { _ = sub.Close() }()
	_, err = sub.Receive(ctx)
	require.NoError(t, err)

	b := NewBroadcaster(client, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, b.Publish(ctx, gameID, EventTypePanelProgress, map[string]any{"progress": 2}))

	select {
	case msg := <-sub.Channel():
		var event Event
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &event))
		assert.Equal(t, EventTypePanelProgress, event.Type)
		assert.Equal(t, gameID.String(), event.GameID)
		assert.EqualValues(t, 2, event.Data["progress"])
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestChannel(t *testing.T) {
	id := uuid.MustParse("6f1c3a4e-2b7d-4c8e-9f0a-1b2c3d4e5f60")
	assert.Equal(t, "game-events:6f1c3a4e-2b7d-4c8e-9f0a-1b2c3d4e5f60", Channel(id))
}

func TestDiscard(t *testing.T) {
	assert.NoError(t, Discard{}.Publish(context.Background(), uuid.New(), EventTypeVideoStatus, nil))
}
