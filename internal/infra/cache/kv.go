// Package cache implements the typed key-value operations interface (C2)
// over an external cache engine. Every operation here is failure-opaque:
// a backend error logs and returns the neutral zero value rather than
// propagating, so an outage in the cache engine never surfaces to the
// rest of the pipeline.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// KV is the typed operations interface consumed by the rest of the
// pipeline. It never returns an error for backend failures — only for
// caller misuse such as a nil destination pointer in GetJSON.
type KV interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string)
	SetEx(ctx context.Context, key, value string, ttl time.Duration)
	Delete(ctx context.Context, key string)
	Exists(ctx context.Context, key string) bool
	Expire(ctx context.Context, key string, ttl time.Duration)
	TTL(ctx context.Context, key string) time.Duration

	GetJSON(ctx context.Context, key string, dest any) bool
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration)

	LPush(ctx context.Context, key string, values ...string)
	RPush(ctx context.Context, key string, values ...string)
	LPop(ctx context.Context, key string) (string, bool)
	LRange(ctx context.Context, key string, start, stop int64) []string

	SAdd(ctx context.Context, key string, members ...string)
	SMembers(ctx context.Context, key string) []string

	HSet(ctx context.Context, key, field, value string)
	HGet(ctx context.Context, key, field string) (string, bool)
	HGetAll(ctx context.Context, key string) map[string]string
}

// RedisAdapter implements KV over go-redis. It is the only place in the
// module that is allowed to know about the concrete cache engine client.
type RedisAdapter struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisAdapter wraps an existing go-redis client. Connection lifecycle
// is the caller's responsibility (constructed once at process boot, per
// the injected-collaborators design note).
func NewRedisAdapter(client *redis.Client, logger *slog.Logger) *RedisAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisAdapter{client: client, logger: logger}
}

func (a *RedisAdapter) warn(op, key string, err error) {
	a.logger.Warn("cache adapter operation failed",
		slog.String("op", op), slog.String("key", key), slog.String("error", err.Error()))
}

func (a *RedisAdapter) Get(ctx context.Context, key string) (string, bool) {
	v, err := a.client.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			a.warn("get", key, err)
		}
		return "", false
	}
	return v, true
}

func (a *RedisAdapter) Set(ctx context.Context, key, value string) {
	if err := a.client.Set(ctx, key, value, 0).Err(); err != nil {
		a.warn("set", key, err)
	}
}

func (a *RedisAdapter) SetEx(ctx context.Context, key, value string, ttl time.Duration) {
	if err := a.client.Set(ctx, key, value, ttl).Err(); err != nil {
		a.warn("setex", key, err)
	}
}

func (a *RedisAdapter) Delete(ctx context.Context, key string) {
	if err := a.client.Del(ctx, key).Err(); err != nil {
		a.warn("delete", key, err)
	}
}

func (a *RedisAdapter) Exists(ctx context.Context, key string) bool {
	n, err := a.client.Exists(ctx, key).Result()
	if err != nil {
		a.warn("exists", key, err)
		return false
	}
	return n > 0
}

func (a *RedisAdapter) Expire(ctx context.Context, key string, ttl time.Duration) {
	if err := a.client.Expire(ctx, key, ttl).Err(); err != nil {
		a.warn("expire", key, err)
	}
}

func (a *RedisAdapter) TTL(ctx context.Context, key string) time.Duration {
	d, err := a.client.TTL(ctx, key).Result()
	if err != nil {
		a.warn("ttl", key, err)
		return 0
	}
	return d
}

func (a *RedisAdapter) GetJSON(ctx context.Context, key string, dest any) bool {
	raw, ok := a.Get(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		a.warn("get_json_unmarshal", key, err)
		return false
	}
	return true
}

func (a *RedisAdapter) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) {
	raw, err := json.Marshal(value)
	if err != nil {
		a.warn("set_json_marshal", key, err)
		return
	}
	a.SetEx(ctx, key, string(raw), ttl)
}

func (a *RedisAdapter) LPush(ctx context.Context, key string, values ...string) {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	if err := a.client.LPush(ctx, key, args...).Err(); err != nil {
		a.warn("lpush", key, err)
	}
}

func (a *RedisAdapter) RPush(ctx context.Context, key string, values ...string) {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	if err := a.client.RPush(ctx, key, args...).Err(); err != nil {
		a.warn("rpush", key, err)
	}
}

func (a *RedisAdapter) LPop(ctx context.Context, key string) (string, bool) {
	v, err := a.client.LPop(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			a.warn("lpop", key, err)
		}
		return "", false
	}
	return v, true
}

func (a *RedisAdapter) LRange(ctx context.Context, key string, start, stop int64) []string {
	vs, err := a.client.LRange(ctx, key, start, stop).Result()
	if err != nil {
		a.warn("lrange", key, err)
		return nil
	}
	return vs
}

func (a *RedisAdapter) SAdd(ctx context.Context, key string, members ...string) {
	args := make([]any, len(members))
	for i, v := range members {
		args[i] = v
	}
	if err := a.client.SAdd(ctx, key, args...).Err(); err != nil {
		a.warn("sadd", key, err)
	}
}

func (a *RedisAdapter) SMembers(ctx context.Context, key string) []string {
	vs, err := a.client.SMembers(ctx, key).Result()
	if err != nil {
		a.warn("smembers", key, err)
		return nil
	}
	return vs
}

func (a *RedisAdapter) HSet(ctx context.Context, key, field, value string) {
	if err := a.client.HSet(ctx, key, field, value).Err(); err != nil {
		a.warn("hset", key, err)
	}
}

func (a *RedisAdapter) HGet(ctx context.Context, key, field string) (string, bool) {
	v, err := a.client.HGet(ctx, key, field).Result()
	if err != nil {
		if err != redis.Nil {
			a.warn("hget", key, err)
		}
		return "", false
	}
	return v, true
}

func (a *RedisAdapter) HGetAll(ctx context.Context, key string) map[string]string {
	vs, err := a.client.HGetAll(ctx, key).Result()
	if err != nil {
		a.warn("hgetall", key, err)
		return nil
	}
	return vs
}
