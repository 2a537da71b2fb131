// Package redis persists shop state in Redis, one string key per collection.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "shop:"

// Store implements storage.KV on Redis. Keys are namespaced as
// shop:{namespace}:{key} so several storefronts can share one instance.
type Store struct {
	client    *redis.Client
	namespace string
	ttl       time.Duration
}

// New creates a Redis-backed store. A zero ttl keeps keys forever; a
// positive ttl is refreshed on every write.
func New(client *redis.Client, namespace string, ttl time.Duration) *Store {
	return &Store{client: client, namespace: namespace, ttl: ttl}
}

// Key returns the Redis key used for key.
func (s *Store) Key(key string) string {
	return keyPrefix + s.namespace + ":" + key
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, s.Key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return data, true, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, s.Key(key), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Ping checks connectivity; used by the readiness probe.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
