package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// EventType represents the type of event being broadcast
type EventType string

const (
	EventTypeTurnCommitted    EventType = "turn.committed"
	EventTypePanelProgress    EventType = "panels.progress"
	EventTypePanelsCompleted  EventType = "panels.completed"
	EventTypePanelsPartial    EventType = "panels.partial"
	EventTypePanelsFailed     EventType = "panels.failed"
	EventTypeVideoStatus      EventType = "video.status"
	EventTypeGameStateUpdated EventType = "game.state_updated"
)

// Event is the JSON payload sent on a game's channel.
type Event struct {
	Type   EventType      `json:"type"`
	GameID string         `json:"game_id"`
	Data   map[string]any `json:"data,omitempty"`
}

// Publisher is what sessions use to report progress.
type Publisher interface {
	Publish(ctx context.Context, gameID uuid.UUID, eventType EventType, data map[string]any) error
}

// Channel returns the pub/sub channel for a game.
func Channel(gameID uuid.UUID) string {
	return fmt.Sprintf("game-events:%s", gameID.String())
}

// Broadcaster publishes events to Redis Pub/Sub for SSE distribution
type Broadcaster struct {
	redisClient *redis.Client
	logger      *slog.Logger
}

var _ Publisher = (*Broadcaster)(nil)

func NewBroadcaster(redisClient *redis.Client, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{redisClient: redisClient, logger: logger}
}

// Publish marshals an event and publishes it on the game's channel.
func (b *Broadcaster) Publish(ctx context.Context, gameID uuid.UUID, eventType EventType, data map[string]any) error {
	event := Event{Type: eventType, GameID: gameID.String(), Data: data}
	channel := Channel(gameID)

	payload, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("Failed to marshal event", "error", err, "event_type", eventType)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.redisClient.Publish(ctx, channel, payload).Err(); err != nil {
		b.logger.Error("Failed to publish event", "error", err, "channel", channel)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debug("Event published", "channel", channel, "event_type", eventType)
	return nil
}

// Discard drops every event. It stands in when no Redis is configured.
type Discard struct{}

func (Discard) Publish(context.Context, uuid.UUID, EventType, map[string]any) error { return nil }
