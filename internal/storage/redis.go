package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/story-reel/pkg/storage"
)

const (
	blobKeyPrefix    = "blob:"
	fieldData        = "data"
	fieldContentType = "content_type"
)

// RedisBlobStore implements storage.BlobStore with one Redis hash per blob.
type RedisBlobStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

var _ storage.BlobStore = (*RedisBlobStore)(nil)

// NewRedisBlobStore stores blobs that expire after ttl.
func NewRedisBlobStore(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisBlobStore {
	return &RedisBlobStore{client: client, ttl: ttl, logger: logger}
}

func (r *RedisBlobStore) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Close is a no-op; the client is owned by the caller.
func (r *RedisBlobStore) Close() error { return nil }

func (r *RedisBlobStore) Put(ctx context.Context, blob storage.Blob) (string, error) {
	id := uuid.NewString()
	key := blobKeyPrefix + id

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, fieldData, blob.Data, fieldContentType, blob.ContentType)
		if r.ttl > 0 {
			pipe.Expire(ctx, key, r.ttl)
		}
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to store blob", "blob_id", id, "error", err)
		return "", fmt.Errorf("failed to store blob: %w", err)
	}

	r.logger.Debug("Blob stored", "blob_id", id, "bytes", len(blob.Data), "content_type", blob.ContentType)
	return id, nil
}

func (r *RedisBlobStore) Get(ctx context.Context, id string) (*storage.Blob, error) {
	values, err := r.client.HGetAll(ctx, blobKeyPrefix+id).Result()
	if errors.Is(err, redis.Nil) || (err == nil && len(values) == 0) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to load blob", "blob_id", id, "error", err)
		return nil, fmt.Errorf("failed to load blob: %w", err)
	}
	return &storage.Blob{
		Data:        []byte(values[fieldData]),
		ContentType: values[fieldContentType],
	}, nil
}

func (r *RedisBlobStore) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, blobKeyPrefix+id).Err(); err != nil {
		r.logger.Error("Failed to delete blob", "blob_id", id, "error", err)
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}
