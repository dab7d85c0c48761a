package queuestore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis keeps values in a shared Redis, for agents running without a
// writable local disk.
type Redis struct {
	appPrefix string
	client    *redis.Client
}

var _ KV = (*Redis)(nil)

func NewRedis(appPrefix string, client *redis.Client) *Redis {
	return &Redis{appPrefix: appPrefix, client: client}
}

func (r *Redis) key(k string) string {
	if r.appPrefix == "" {
		return k
	}
	return r.appPrefix + ":" + k
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error getting value for key %s: %w", key, err)
	}
	return v, nil
}

func (r *Redis) Put(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("error setting value for key %s: %w", key, err)
	}
	return nil
}
