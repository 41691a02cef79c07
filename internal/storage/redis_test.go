package storage

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupTestRedis(t *testing.T) (*RedisStorage, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	r, err := NewRedisStorage("redis://"+mr.Addr(), "test:snapshot", testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r, mr
}

func TestRedisStorage_RoundTrip(t *testing.T) {
	r, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, r.Ping(ctx))

	loaded, err := r.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, loaded, "missing snapshot loads as nil")

	ws := sampleState()
	require.NoError(t, r.Save(ctx, ws))
	assert.True(t, mr.Exists("test:snapshot"))

	loaded, err = r.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.True(t, ws.Equal(loaded), "loaded snapshot should equal saved state")

	require.NoError(t, r.Delete(ctx))
	loaded, err = r.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestRedisStorage_CorruptSnapshot(t *testing.T) {
	r, mr := setupTestRedis(t)
	require.NoError(t, mr.Set("test:snapshot", "{not json"))

	_, err := r.Load(context.Background())
	assert.Error(t, err)
}

func TestRedisStorage_SaveCrash(t *testing.T) {
	r, mr := setupTestRedis(t)
	id := uuid.New()

	key, err := r.SaveCrash(context.Background(), id, sampleState())
	require.NoError(t, err)
	assert.Equal(t, "test:snapshot:crash:"+id.String(), key)
	assert.True(t, mr.Exists(key))
	assert.Greater(t, mr.TTL(key), time.Duration(0))
}

func TestRedisStorage_BareAddress(t *testing.T) {
	mr := miniredis.RunT(t)
	r, err := NewRedisStorage(mr.Addr(), "", testLogger())
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	require.NoError(t, r.Save(context.Background(), sampleState()))
	assert.True(t, mr.Exists(DefaultRedisKey))

}

func TestRedisStorage_WaitForConnection(t *testing.T) {
	r, mr := setupTestRedis(t)
	require.NoError(t, r.WaitForConnection(context.Background(), 3, 10*time.Millisecond))

	mr.Close()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.Error(t, r.WaitForConnection(ctx, 2, 10*time.Millisecond))
}
