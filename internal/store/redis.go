package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
	Prefix   string
}

// RedisStore keeps each record as a JSON string plus a per-tenant sorted set
// scored by creation time.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects and pings Redis.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "sa:store:"
	}
	return &RedisStore{client: client, prefix: prefix}, nil
}

func (s *RedisStore) recordKey(tenantID, id string) string {
	return s.prefix + tenantID + ":" + id
}

func (s *RedisStore) indexKey(tenantID string) string {
	return s.prefix + tenantID + ":index"
}

func (s *RedisStore) Save(ctx context.Context, rec *Record) error {
	if err := prepare(rec); err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, s.recordKey(rec.TenantID, rec.ID), data, 0)
		p.ZAdd(ctx, s.indexKey(rec.TenantID), redis.Z{Score: float64(rec.CreatedAt.UnixMicro()), Member: rec.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, tenantID, id string) (*Record, error) {
	data, err := s.client.Get(ctx, s.recordKey(tenantID, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	rec := &Record{}
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return rec, nil
}

func (s *RedisStore) List(ctx context.Context, tenantID string, limit int) ([]*Record, error) {
	ids, err := s.client.ZRevRange(ctx, s.indexKey(tenantID), 0, int64(listLimit(limit)-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list: %w", err)
	}

	out := make([]*Record, 0, len(ids))
	for _, id := range ids {
		rec, err := s.Get(ctx, tenantID, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		rec.Document = nil
		out = append(out, rec)
	}
	return out, nil
}

func (s *RedisStore) Delete(ctx context.Context, tenantID, id string) error {
	var del *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		del = p.Del(ctx, s.recordKey(tenantID, id))
		p.ZRem(ctx, s.indexKey(tenantID), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	if del.Val() == 0 {
		return ErrNotFound
	}
	return nil
}

// Close closes the connection pool.
// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
