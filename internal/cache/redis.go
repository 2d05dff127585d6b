package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned when a key does not exist.
var ErrCacheMiss = errors.New("cache: key not found")

type Cache interface {
	Set(ctx context.Context, key string, value string, expiration time.Duration) error
	// Take returns the value and removes the key in one step.
	Take(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
	SetJSON(ctx context.Context, key string, value any, expiration time.Duration) error
	TakeJSON(ctx context.Context, key string, dest any) error
	Close() error
}

type redisCache struct {
	client *redis.Client
}

// NewRedisCache creates a new Redis cache client
func NewRedisCache(redisURL string) (Cache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		// If URL parsing fails, try as simple host:port
		opt = &redis.Options{Addr: redisURL}
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &redisCache{client: client}, nil
}

// Set stores a value in cache
func (r *redisCache) Set(ctx context.Context, key string, value string, expiration time.Duration) error {
	return r.client.Set(ctx, key, value, expiration).Err()
}

// Take retrieves and deletes a value atomically
func (r *redisCache) Take(ctx context.Context, key string) (string, error) {
	val, err := r.client.GetDel(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCacheMiss
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

// Delete removes a key from cache
func (r *redisCache) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

// SetJSON stores a JSON-serializable value in cache
func (r *redisCache) SetJSON(ctx context.Context, key string, value any, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return r.Set(ctx, key, string(data), expiration)
}

// TakeJSON retrieves, deletes and unmarshals a JSON value
func (r *redisCache) TakeJSON(ctx context.Context, key string, dest any) error {
	data, err := r.Take(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	return nil
}

func (r *redisCache) Close() error {
	return r.client.Close()
}
