package viewsync

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache shares the view version and cached views between every server
// instance.
type RedisCache struct {
	client      *redis.Client
	serviceName string
}

func NewRedisCache(client *redis.Client, serviceName string) *RedisCache {
	return &RedisCache{client: client, serviceName: serviceName}
}

func (r *RedisCache) GenerateKey(key string) string {
	return fmt.Sprintf("%s:views:%s", r.serviceName, key)
}

func (r *RedisCache) versionKey() string {
	return fmt.Sprintf("%s:views:version", r.serviceName)
}

func (r *RedisCache) Version(ctx context.Context) (uint64, error) {
	raw, err := r.client.Get(ctx, r.versionKey()).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading view version: %w", err)
	}

	version, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing view version %q: %w", raw, err)
	}
	return version, nil
}

func (r *RedisCache) Bump(ctx context.Context) (uint64, error) {
	version, err := r.client.Incr(ctx, r.versionKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("bumping view version: %w", err)
	}
	return uint64(version), nil
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := r.client.Get(ctx, r.GenerateKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, r.GenerateKey(key), value, ttl).Err()
}
