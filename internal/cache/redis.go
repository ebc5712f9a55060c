package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/viafoto/viafoto/internal/classify"
)

const redisKeyPrefix = "viafoto:result:"

// RedisConfig holds connection settings for the redis-backed store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration // zero means no expiry
}

// Redis persists results in a redis instance so the cache survives host
// restarts. Values are JSON-encoded canonical results.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects to redis and verifies the connection.
func NewRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis %s: %w", cfg.Addr, err)
	}
	return &Redis{client: client, ttl: cfg.TTL}, nil
}

// Get returns the cached result for hash, or nil on a miss.
func (r *Redis) Get(ctx context.Context, hash string) (*classify.Result, error) {
	raw, err := r.client.Get(ctx, redisKeyPrefix+hash).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var result classify.Result
	if err := json.Unmarshal(raw, &result); err != nil {
		// A corrupt entry behaves like a miss; it will be overwritten on the
		// next successful classification.
		return nil, nil
	}
	return &result, nil
}

// Put stores result under hash.
func (r *Redis) Put(ctx context.Context, hash string, result classify.Result) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}
	if err := r.client.Set(ctx, redisKeyPrefix+hash, raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Remove deletes the entry for hash.
func (r *Redis) Remove(ctx context.Context, hash string) error {
	if err := r.client.Del(ctx, redisKeyPrefix+hash).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Clear removes every viafoto result entry.
func (r *Redis) Clear(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("redis del: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan: %w", err)
	}
	return nil
}

// Stats reports entry count and approximate memory usage.
func (r *Redis) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	iter := r.client.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		stats.Count++
		if size, err := r.client.StrLen(ctx, iter.Val()).Result(); err == nil {
			stats.ApproxSize += size
		}
	}
	if err := iter.Err(); err != nil {
		return Stats{}, fmt.Errorf("redis scan: %w", err)
	}
	return stats, nil
}

// Close releases the redis connection.
func (r *Redis) Close() error { return r.client.Close() }
