package services

import (
	"context"
	"sync"
)

// MockConversationStore keeps conversation history in memory for tests.
type MockConversationStore struct {
	mu      sync.RWMutex
	entries map[string][]ConversationMessage
}

var _ ConversationStore = (*MockConversationStore)(nil)

func NewMockConversationStore() *MockConversationStore {
	return &MockConversationStore{entries: make(map[string][]ConversationMessage)}
}

func (s *MockConversationStore) Load(_ context.Context, handle string) ([]ConversationMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history, ok := s.entries[handle]
	if !ok {
		return nil, ErrConversationNotFound
	}
	return append([]ConversationMessage(nil), history...), nil
}

func (s *MockConversationStore) Save(_ context.Context, handle string, history []ConversationMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[handle] = append([]ConversationMessage(nil), history...)
	return nil
}

// Len returns the number of stored conversations.
func (s *MockConversationStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
