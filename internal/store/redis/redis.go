// Package redis provides a Redis-backed store.Store implementation so
// credential records survive process restarts.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/standardbeagle/figma-bridge/internal/store"
)

// DefaultKeyPrefix namespaces all bridge keys in a shared Redis.
const DefaultKeyPrefix = "figma-bridge:"

// Config for the Redis store.
type Config struct {
	// Client is the Redis client instance. Required.
	Client *redis.Client

	// KeyPrefix for all keys. Defaults to DefaultKeyPrefix.
	KeyPrefix string
}

// Store implements store.Store on Redis.
type Store struct {
	client    *redis.Client
	keyPrefix string
}

// envelope wraps values so metadata can be added without a key-format
// migration.
type envelope struct {
	Value     []byte    `json:"value"`
	CreatedAt time.Time `json:"created_at"`
}

// New creates a Redis store and verifies connectivity.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if err := cfg.Client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Store{client: cfg.Client, keyPrefix: prefix}, nil
}

// Get retrieves the value for key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	res := s.client.Get(ctx, s.keyPrefix+key)
	if err := res.Err(); err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}

	var env envelope
	if err := json.Unmarshal([]byte(res.Val()), &env); err != nil {
		return nil, fmt.Errorf("unmarshaling stored value for %s: %w", key, err)
	}
	return env.Value, nil
}

// Set stores value under key; TTL enforcement is delegated to Redis.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	data, err := json.Marshal(envelope{Value: value, CreatedAt: time.Now()})
	if err != nil {
		return fmt.Errorf("marshaling value for %s: %w", key, err)
	}
	if err := s.client.Set(ctx, s.keyPrefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// Close closes the underlying client.
func (s *Store) Close() error { return s.client.Close() }

var _ store.Store = (*Store)(nil)
