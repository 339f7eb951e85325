package cache

import (
	"context"
	"time"

	repo "sweetshop/internal/repository"

	"github.com/redis/go-redis/v9"
)

const idempotencyKeyPrefix = "idem:"

type RedisIdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisIdempotencyStore(client *redis.Client, ttl time.Duration) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{client: client, ttl: ttl}
}

var _ repo.IdempotencyStore = (*RedisIdempotencyStore)(nil)

func (r *RedisIdempotencyStore) Claim(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, idempotencyKeyPrefix+key, 1, r.ttl).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

func (r *RedisIdempotencyStore) Release(ctx context.Context, key string) error {
	return r.client.Del(ctx, idempotencyKeyPrefix+key).Err()
}

// REDIS_ADDRが無いときに使う。常に通す。
type NopIdempotencyStore struct{}

var _ repo.IdempotencyStore = NopIdempotencyStore{}

func (NopIdempotencyStore) Claim(ctx context.Context, key string) (bool, error) {
	return true, nil
}

func (NopIdempotencyStore) Release(ctx context.Context, key string) error {
	return nil
}
