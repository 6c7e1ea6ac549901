package storage

import (
	"context"
)

// Blob is a stored binary payload, such as a proxied video.
type Blob struct {
	Data        []byte
	ContentType string
}

// BlobStore holds short-lived binary payloads addressed by generated IDs.
type BlobStore interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// Put stores a blob and returns its new ID.
	Put(ctx context.Context, blob Blob) (string, error)
	// Get returns nil, nil when the blob does not exist or has expired.
	Get(ctx context.Context, id string) (*Blob, error)
	// Delete removes a blob; deleting a missing blob is not an error.
	Delete(ctx context.Context, id string) error
}
