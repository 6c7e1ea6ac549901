package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*RedisService, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := NewRedisService("redis://"+mr.Addr(), logger)
	if err != nil {
		mr.Close()
		t.Fatalf("Failed to create redis service: %v", err)
	}
	t.Cleanup(func() {
		_ = svc.Close()
		mr.Close()
	})
	return svc, mr
}

func TestRedisService_Basic(t *testing.T) {
	svc, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, svc.Ping(ctx))
	require.NoError(t, svc.WaitForConnection(ctx))

	require.NoError(t, svc.Set(ctx, "blob:1", []byte("bytes"), time.Minute))
	got, err := svc.Get(ctx, "blob:1")
	require.NoError(t, err)
	assert.Equal(t, "bytes", got)

	exists, err := svc.Exists(ctx, "blob:1")
	require.NoError(t, err)
	assert.True(t, exists)

	mr.FastForward(2 * time.Minute)
	got, err = svc.Get(ctx, "blob:1")
	require.NoError(t, err)
	assert.Empty(t, got, "expired keys read as empty")
}

func TestRedisService_DelAndMissingKey(t *testing.T) {
	svc, _ := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, svc.Set(ctx, "a", "1", 0))
	require.NoError(t, svc.Del(ctx, "a", "missing"))
	require.NoError(t, svc.Del(ctx))

	got, err := svc.Get(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, got)

	exists, err := svc.Exists(ctx, "a")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestNewRedisService_BareAddress(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	svc, err := NewRedisService(mr.Addr(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()
	assert.NoError(t, svc.Ping(context.Background()))
}

func TestRedisService_WaitForConnectionCancelled(t *testing.T) {
	svc, err := NewRedisService("127.0.0.1:1", slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	assert.Error(t, svc.WaitForConnection(ctx))
}
