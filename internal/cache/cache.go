package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"municipality/internal/config"
)

// Cache stores short-lived string values shared by the API replicas
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// New returns a redis-backed cache when enabled, otherwise an in-process one
func New(cfg config.RedisConfig) (Cache, *redis.Client) {
	if !cfg.Enabled {
		return NewLocal(), nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.Database,
		DialTimeout: cfg.DialTimeout,
		PoolSize:    cfg.PoolSize,
	})
	return NewRedis(client), client
}

// RedisCache implements Cache on top of go-redis
type RedisCache struct {
	client *redis.Client
}

// NewRedis wraps an existing client
func NewRedis(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "failed to read cache key")
	}
	return value, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return errors.Wrap(c.client.Set(ctx, key, value, ttl).Err(), "failed to write cache key")
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return errors.Wrap(c.client.Del(ctx, key).Err(), "failed to delete cache key")
}

// LocalCache implements Cache in process memory
type LocalCache struct {
	store *gocache.Cache
}

// NewLocal creates an in-process cache with a one-minute janitor
func NewLocal() *LocalCache {
	return &LocalCache{store: gocache.New(gocache.NoExpiration, time.Minute)}
}

func (c *LocalCache) Get(ctx context.Context, key string) (string, bool, error) {
	value, ok := c.store.Get(key)
	if !ok {
		return "", false, nil
	}
	s, _ := value.(string)
	return s, true, nil
}

func (c *LocalCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	c.store.Set(key, value, ttl)
	return nil
}

func (c *LocalCache) Delete(ctx context.Context, key string) error {
	c.store.Delete(key)
	return nil
}
