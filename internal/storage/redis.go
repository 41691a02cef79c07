package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/tale-engine/pkg/state"
	"github.com/jwebster45206/tale-engine/pkg/storage"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey holds the snapshot when no key is configured.
const DefaultRedisKey = "tale:snapshot"

// crashTTL bounds how long forensic snapshots are kept in Redis.
const crashTTL = 7 * 24 * time.Hour

// RedisStorage keeps the snapshot as a JSON blob under a single key.
type RedisStorage struct {
	client *redis.Client
	key    string
	logger *slog.Logger
}

// Ensure RedisStorage implements Snapshotter interface
var _ storage.Snapshotter = (*RedisStorage)(nil)

// NewRedisStorage connects to redisURL, which may be a redis:// URL or a
// bare host:port address.
func NewRedisStorage(redisURL, key string, logger *slog.Logger) (*RedisStorage, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		if strings.Contains(redisURL, "://") {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		opts = &redis.Options{Addr: redisURL}
	}
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStorage{
		client: redis.NewClient(opts),
		key:    key,
		logger: logger,
	}, nil
}

// Health and lifecycle methods

func (r *RedisStorage) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStorage) WaitForConnection(ctx context.Context, attempts int, delay time.Duration) error {
	for i := 0; i < attempts; i++ {
		err := r.Ping(ctx)
		if err == nil {
			r.logger.Info("Redis connection established")
			return nil
		}
		r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("redis did not become available after %d attempts", attempts)
}

// Snapshot operations

func (r *RedisStorage) Save(ctx context.Context, ws *state.WorldState) error {
	if ws == nil {
		return fmt.Errorf("world state is nil")
	}
	data, err := json.Marshal(ws)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
		r.logger.Error("Failed to save snapshot", "key", r.key, "error", err)
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

func (r *RedisStorage) Load(ctx context.Context) (*state.WorldState, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			r.logger.Debug("No snapshot found", "key", r.key)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var ws state.WorldState
	if err := json.Unmarshal(data, &ws); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &ws, nil
}

func (r *RedisStorage) Delete(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

// SaveCrash stores the forensic copy under <key>:crash:<id> with a TTL.
func (r *RedisStorage) SaveCrash(ctx context.Context, id uuid.UUID, ws *state.WorldState) (string, error) {
	data, err := json.Marshal(ws)
	if err != nil {
		return "", fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	key := r.key + ":crash:" + id.String()
	if err := r.client.Set(ctx, key, data, crashTTL).Err(); err != nil {
		return "", fmt.Errorf("failed to save crash snapshot: %w", err)
	}
	return key, nil
}
