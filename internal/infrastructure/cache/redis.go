package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisPrefix = "fletes:cache:"

// Redis shares the cache between processes (API and batch jobs).
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

// NewRedisClient connects to address and checks the connection.
func NewRedisClient(ctx context.Context, address string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: address})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", address, err)
	}
	return client, nil
}

func (r *Redis) Get(ctx context.Context, key string, dst any) (bool, error) {
	value, err := r.client.Get(ctx, redisPrefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal([]byte(value), dst); err != nil {
		return false, fmt.Errorf("decode cached %q: %w", key, err)
	}
	return true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	return r.client.Set(ctx, redisPrefix+key, data, r.ttl).Err()
}

func (r *Redis) Invalidate(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, redisPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}
