package storage

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MockBlobStore is an in-memory BlobStore. It is also used as the store when
// the service runs without Redis.
type MockBlobStore struct {
	mu        sync.RWMutex
	blobs     map[string]Blob
	pingError error
	putError  error
	deleted   []string
}

var _ BlobStore = (*MockBlobStore)(nil)

func NewMockBlobStore() *MockBlobStore {
	return &MockBlobStore{blobs: make(map[string]Blob)}
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockBlobStore) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// SetPutError configures the mock to fail every Put with err
func (m *MockBlobStore) SetPutError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putError = err
}

func (m *MockBlobStore) Ping(_ context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

func (m *MockBlobStore) Close() error { return nil }

func (m *MockBlobStore) Put(_ context.Context, blob Blob) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putError != nil {
		return "", m.putError
	}
	id := uuid.NewString()
	m.blobs[id] = Blob{Data: append([]byte(nil), blob.Data...), ContentType: blob.ContentType}
	return id, nil
}

func (m *MockBlobStore) Get(_ context.Context, id string) (*Blob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	blob, ok := m.blobs[id]
	if !ok {
		return nil, nil
	}
	return &blob, nil
}

func (m *MockBlobStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, id)
	m.deleted = append(m.deleted, id)
	return nil
}

// Len returns the number of blobs held.
func (m *MockBlobStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blobs)
}

// Deleted returns every ID passed to Delete, in call order.
func (m *MockBlobStore) Deleted() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.deleted...)
}
