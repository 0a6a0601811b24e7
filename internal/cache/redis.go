package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// purgeBatch is how many keys one SCAN step returns and one UNLINK removes.
const purgeBatch = 200

// RedisClient holds JSON analysis envelopes in Redis, keyed
// <prefix>analysis:<tenant>:<fingerprint>. Entries expire with the cache TTL
// and a tenant purge unlinks its keys in batches.
type RedisClient struct {
	rdb    *redis.Client
	prefix string
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
	// Prefix namespaces the keys; "sa:" when empty.
	Prefix string
}

// NewRedisClient connects and checks the server answers within five seconds.
func NewRedisClient(cfg RedisConfig) (*RedisClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect analysis cache at %s: %w", cfg.Addr, err)
	}

	c := &RedisClient{rdb: rdb, prefix: cfg.Prefix}
	if c.prefix == "" {
		c.prefix = "sa:"
	}
	return c, nil
}

func (c *RedisClient) Get(ctx context.Context, key string) ([]byte, error) {
	envelope, err := c.rdb.Get(ctx, c.prefix+key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, ErrCacheMiss
	case err != nil:
		return nil, fmt.Errorf("read cached analysis %s: %w", key, err)
	}
	return envelope, nil
}

func (c *RedisClient) Set(ctx context.Context, key string, envelope []byte, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, c.prefix+key, envelope, ttl).Err(); err != nil {
		return fmt.Errorf("cache analysis %s: %w", key, err)
	}
	return nil
}

func (c *RedisClient) Delete(ctx context.Context, key string) error {
	if err := c.rdb.Unlink(ctx, c.prefix+key).Err(); err != nil {
		return fmt.Errorf("drop cached analysis %s: %w", key, err)
	}
	return nil
}

// DeleteByPrefix unlinks every key under prefix, one SCAN page at a time.
func (c *RedisClient) DeleteByPrefix(ctx context.Context, prefix string) error {
	var cursor uint64
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, c.prefix+prefix+"*", purgeBatch).Result()
		if err != nil {
			return fmt.Errorf("scan cached analyses %s*: %w", prefix, err)
		}
		if len(keys) > 0 {
			if err := c.rdb.Unlink(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("purge cached analyses %s*: %w", prefix, err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Close closes the connection pool.
func (c *RedisClient) Close() error {
	return c.rdb.Close()
}
