package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces collection keys in a shared Redis.
const DefaultRedisPrefix = "costdesk:"

// Redis stores each collection as a plain string value.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis wraps an existing client. An empty prefix falls back to DefaultRedisPrefix.
func NewRedis(client *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &Redis{client: client, prefix: prefix}
}

// Load implements Backend.
func (r *Redis) Load(ctx context.Context, key string) ([]byte, error) {
	if r == nil || r.client == nil {
		return nil, ErrClosed
	}
	payload, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage/redis: load %s: %w", key, err)
	}
	return payload, nil
}

// Save implements Backend.
func (r *Redis) Save(ctx context.Context, key string, payload []byte) error {
	if r == nil || r.client == nil {
		return ErrClosed
	}
	if err := r.client.Set(ctx, r.prefix+key, payload, 0).Err(); err != nil {
		return fmt.Errorf("storage/redis: save %s: %w", key, err)
	}
	return nil
}
