package directory

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenCache stores service tokens between sign-ins. Implementations swallow
// their own errors; a miss only costs one extra token exchange.
type TokenCache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, token string, ttl time.Duration)
}

type noCache struct{}

func (noCache) Get(context.Context, string) (string, bool)          { return "", false }
func (noCache) Set(context.Context, string, string, time.Duration) {}

// RedisTokenCache keeps tokens in redis with the token's remaining lifetime as TTL.
type RedisTokenCache struct {
	rdb *redis.Client
}

// NewRedisTokenCache returns nil when rdb is nil so callers can pass it straight to New.
func NewRedisTokenCache(rdb *redis.Client) TokenCache {
	if rdb == nil {
		return nil
	}
	return &RedisTokenCache{rdb: rdb}
}

func (r *RedisTokenCache) Get(ctx context.Context, key string) (string, bool) {
	v, err := r.rdb.Get(ctx, key).Result()
	if err != nil || v == "" {
		return "", false
	}
	return v, true
}

func (r *RedisTokenCache) Set(ctx context.Context, key, token string, ttl time.Duration) {
	_ = r.rdb.Set(ctx, key, token, ttl).Err()
}
