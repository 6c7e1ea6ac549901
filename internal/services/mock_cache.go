package services

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockCache is an in-memory Cache for tests. Any ...Func field overrides the
// default map-backed behaviour for that method.
type MockCache struct {
	PingFunc func(ctx context.Context) error
	SetFunc  func(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	GetFunc  func(ctx context.Context, key string) (string, error)
	DelFunc  func(ctx context.Context, keys ...string) error

	// Track calls for testing
	PingCalls int
	SetCalls  []SetCall
	GetCalls  []string
	DelCalls  [][]string

	data map[string]string
	mu   sync.Mutex
}

type SetCall struct {
	Key        string
	Value      interface{}
	Expiration time.Duration
}

var _ Cache = (*MockCache)(nil)

func NewMockCache() *MockCache {
	return &MockCache{data: make(map[string]string)}
}

func (m *MockCache) Ping(ctx context.Context) error {
	m.mu.Lock()
	m.PingCalls++
	fn := m.PingFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx)
	}
	return nil
}

func (m *MockCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	m.mu.Lock()
	m.SetCalls = append(m.SetCalls, SetCall{Key: key, Value: value, Expiration: expiration})
	fn := m.SetFunc
	if fn == nil {
		switch v := value.(type) {
		case []byte:
			m.data[key] = string(v)
		case string:
			m.data[key] = v
		default:
			m.data[key] = fmt.Sprint(v)
		}
	}
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, key, value, expiration)
	}
	return nil
}

func (m *MockCache) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	m.GetCalls = append(m.GetCalls, key)
	fn := m.GetFunc
	value := m.data[key]
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, key)
	}
	return value, nil
}

func (m *MockCache) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	m.DelCalls = append(m.DelCalls, keys)
	fn := m.DelFunc
	if fn == nil {
		for _, k := range keys {
			delete(m.data, k)
		}
	}
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, keys...)
	}
	return nil
}

func (m *MockCache) Exists(_ context.Context, keys ...string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		if _, ok := m.data[k]; ok {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockCache) Close() error { return nil }

func (m *MockCache) WaitForConnection(ctx context.Context) error {
	return m.Ping(ctx)
}

// SetPingError makes Ping fail with err.
func (m *MockCache) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PingFunc = func(context.Context) error { return err }
}
