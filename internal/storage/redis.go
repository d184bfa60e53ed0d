package storage

import (
	"context"
	"errors"
	"fmt"

	"wayfarer/pkg/traveltypes"

	"github.com/redis/go-redis/v9"
)

// RedisKV stores values as plain Redis strings without expiry.
type RedisKV struct {
	client *redis.Client
}

// OpenRedisKV connects to url (redis://[:password@]host:port/db) and pings it.
func OpenRedisKV(ctx context.Context, url string) (*RedisKV, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: redis store requires a URL", traveltypes.ErrStorage)
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("%w: parse redis url: %v", traveltypes.ErrStorage, err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: ping redis: %v", traveltypes.ErrStorage, err)
	}
	return &RedisKV{client: client}, nil
}

// NewRedisKV wraps an existing client.
func NewRedisKV(client *redis.Client) *RedisKV {
	return &RedisKV{client: client}
}

func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, notFound(key)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %v", traveltypes.ErrStorage, key, err)
	}
	return value, nil
}

func (r *RedisKV) Put(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("%w: put %s: %v", traveltypes.ErrStorage, key, err)
	}
	return nil
}

func (r *RedisKV) Close() error {
	return r.client.Close()
}
