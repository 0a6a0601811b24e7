// Package cache memoizes analysis responses by request fingerprint.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrCacheMiss indicates a cache miss.
var ErrCacheMiss = errors.New("cache miss")

// Client is a byte-oriented cache.
type Client interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeleteByPrefix(ctx context.Context, prefix string) error
	Close() error
}

// Key joins key components with ':'.
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}

// Analyses stores JSON-encoded analysis responses under tenant-scoped keys.
type Analyses struct {
	client Client
	ttl    time.Duration
}

// NewAnalyses wraps client. A zero ttl keeps entries for an hour.
func NewAnalyses(client Client, ttl time.Duration) *Analyses {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Analyses{client: client, ttl: ttl}
}

// Get decodes the cached response for fingerprint into v.
func (a *Analyses) Get(ctx context.Context, tenant, fingerprint string, v any) error {
	data, err := a.client.Get(ctx, Key("analysis", tenant, fingerprint))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		// A corrupt entry behaves like a miss and is dropped.
		_ = a.client.Delete(ctx, Key("analysis", tenant, fingerprint))
		return ErrCacheMiss
	}
	return nil
}

// Put caches v for fingerprint.
func (a *Analyses) Put(ctx context.Context, tenant, fingerprint string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal cached analysis: %w", err)
	}
	return a.client.Set(ctx, Key("analysis", tenant, fingerprint), data, a.ttl)
}

// Purge drops every cached analysis of tenant.
func (a *Analyses) Purge(ctx context.Context, tenant string) error {
	return a.client.DeleteByPrefix(ctx, Key("analysis", tenant)+":")
}
