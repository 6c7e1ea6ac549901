package services

import (
	"context"
	"time"
)

// Cache is the key-value store behind conversation history and proxied video blobs.
type Cache interface {
	// Ping tests the cache connection
	Ping(ctx context.Context) error

	// Set stores a value with an expiration; zero means no expiry
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error

	// Get returns the value for key, or "" when the key does not exist
	Get(ctx context.Context, key string) (string, error)

	// Del deletes one or more keys
	Del(ctx context.Context, keys ...string) error

	// Exists reports whether any of the keys exist
	Exists(ctx context.Context, keys ...string) (bool, error)

	Close() error

	// WaitForConnection retries Ping until the cache is reachable
	WaitForConnection(ctx context.Context) error
}
