package bundlestore

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the bundle under one key so every API replica reads the
// same model.
type RedisStore struct {
	client *redis.Client
	key    string
}

func (s *RedisStore) URI() string { return "redis://" + s.key }

func (s *RedisStore) Put(ctx context.Context, data []byte) error {
	return s.client.Set(ctx, s.key, data, 0).Err()
}

func (s *RedisStore) Get(ctx context.Context) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return data, err
}
