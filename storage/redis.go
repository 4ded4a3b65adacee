package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "alignercoach:session:"

// RedisStore keeps session snapshots in Redis with a sliding TTL, letting
// multiple service instances share sessions.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to the given address. A zero ttl means snapshots
// never expire.
func NewRedisStore(ctx context.Context, addr string, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("storage: redis ping %q: %w", addr, err)
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

func (s *RedisStore) Save(ctx context.Context, snap Snapshot) error {
	data, err := sonic.Marshal(snap)
	if err != nil {
		return fmt.Errorf("storage: marshal snapshot: %w", err)
	}
	if err := s.client.Set(ctx, redisKeyPrefix+snap.SessionID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("storage: save snapshot: %w", err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, sessionID string) (Snapshot, bool, error) {
	data, err := s.client.Get(ctx, redisKeyPrefix+sessionID).Bytes()
	if err == redis.Nil {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("storage: load snapshot: %w", err)
	}
	var snap Snapshot
	if err := sonic.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, false, fmt.Errorf("storage: unmarshal snapshot: %w", err)
	}
	return snap, true, nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("storage: delete snapshot: %w", err)
	}
	return nil
}

// Close releases the underlying Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
