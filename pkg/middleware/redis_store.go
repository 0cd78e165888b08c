package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisIdempotencyStore backs IdempotencyMiddleware with redis so replays
// survive service restarts and are shared across replicas.
type RedisIdempotencyStore struct {
	client *redis.Client
}

func NewRedisIdempotencyStore(url, password string, db int) (*RedisIdempotencyStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	if password != "" {
		opts.Password = password
	}
	opts.DB = db

	return &RedisIdempotencyStore{client: redis.NewClient(opts)}, nil
}

func (s *RedisIdempotencyStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return val, err
}

func (s *RedisIdempotencyStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *RedisIdempotencyStore) Close() error {
	return s.client.Close()
}
