package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrConversationNotFound is returned when a continuation handle is unknown or expired.
var ErrConversationNotFound = errors.New("conversation not found")

// ConversationRole is the author of a stored message.
type ConversationRole string

const (
	RoleUser  ConversationRole = "user"
	RoleModel ConversationRole = "model"
)

// ConversationMessage is one entry of a stored conversation.
type ConversationMessage struct {
	Role ConversationRole `json:"role"`
	Text string           `json:"text"`
}

// ConversationStore keeps immutable conversation snapshots keyed by handle.
type ConversationStore interface {
	Load(ctx context.Context, handle string) ([]ConversationMessage, error)
	Save(ctx context.Context, handle string, history []ConversationMessage) error
}

const conversationKeyPrefix = "conversation:"

// CacheConversationStore stores conversations as JSON in a Cache.
type CacheConversationStore struct {
	cache Cache
	ttl   time.Duration
}

// NewCacheConversationStore creates a store whose entries expire after ttl.
func NewCacheConversationStore(cache Cache, ttl time.Duration) *CacheConversationStore {
	return &CacheConversationStore{cache: cache, ttl: ttl}
}

func (s *CacheConversationStore) Load(ctx context.Context, handle string) ([]ConversationMessage, error) {
	raw, err := s.cache.Get(ctx, conversationKeyPrefix+handle)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	if raw == "" {
		return nil, ErrConversationNotFound
	}
	var history []ConversationMessage
	if err := json.Unmarshal([]byte(raw), &history); err != nil {
		return nil, fmt.Errorf("failed to decode conversation: %w", err)
	}
	return history, nil
}

func (s *CacheConversationStore) Save(ctx context.Context, handle string, history []ConversationMessage) error {
	data, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("failed to encode conversation: %w", err)
	}
	if err := s.cache.Set(ctx, conversationKeyPrefix+handle, data, s.ttl); err != nil {
		return fmt.Errorf("failed to save conversation: %w", err)
	}
	return nil
}
