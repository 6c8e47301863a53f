package credential

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackend stores one profile's keys in Redis under "<prefix>:<profile>:<key>".
//
// A positive ttl is applied on every write, so an abandoned profile disappears after ttl of
// inactivity. Zero keeps keys until deleted.
type RedisBackend struct {
	redis   redis.UniversalClient
	prefix  string
	profile string
	ttl     time.Duration
}

// NewRedisBackend returns a backend for profile.
func NewRedisBackend(client redis.UniversalClient, prefix, profile string, ttl time.Duration) *RedisBackend {
	if prefix == "" {
		prefix = "cg"
	}
	if ttl < 0 {
		ttl = 0
	}
	return &RedisBackend{
		redis:   client,
		prefix:  prefix,
		profile: profile,
		ttl:     ttl,
	}
}

func (r *RedisBackend) key(k string) string {
	return r.prefix + ":" + r.profile + ":" + k
}

func (r *RedisBackend) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.redis.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, wrapBackend(err)
	}
	return v, true, nil
}

func (r *RedisBackend) Set(ctx context.Context, key, value string) error {
	if err := r.redis.Set(ctx, r.key(key), value, r.ttl).Err(); err != nil {
		return wrapBackend(err)
	}
	return nil
}

func (r *RedisBackend) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.key(k)
	}
	if err := r.redis.Del(ctx, full...).Err(); err != nil {
		return wrapBackend(err)
	}
	return nil
}
