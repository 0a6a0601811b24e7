package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryClient is an in-process Client with TTLs and a size bound.
type MemoryClient struct {
	mu      sync.RWMutex
	data    map[string]entry
	maxSize int
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

type entry struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryClient creates a MemoryClient holding at most maxSize entries.
func NewMemoryClient(maxSize int) *MemoryClient {
	if maxSize <= 0 {
		maxSize = 10000
	}
	c := &MemoryClient{
		data:    make(map[string]entry),
		maxSize: maxSize,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go c.cleanup(time.Minute)
	return c
}

// Get retrieves a value.
func (c *MemoryClient) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.data[key]
	if !ok || c.now().After(e.expiresAt) {
		return nil, ErrCacheMiss
	}
	return append([]byte(nil), e.value...), nil
}

// Set stores a value with a TTL, evicting the entry closest to expiry when
// full.
func (c *MemoryClient) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.data[key]; !exists && len(c.data) >= c.maxSize {
		c.evictOldest()
	}
	c.data[key] = entry{value: append([]byte(nil), value...), expiresAt: c.now().Add(ttl)}
	return nil
}

// Delete removes a value.
func (c *MemoryClient) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

// DeleteByPrefix removes all keys starting with prefix.
func (c *MemoryClient) DeleteByPrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.data {
		if strings.HasPrefix(key, prefix) {
			delete(c.data, key)
		}
	}
	return nil
}

// Close stops the cleanup goroutine.
func (c *MemoryClient) Close() error {
	c.once.Do(func() { close(c.stop) })
	return nil
}

// Len reports the number of stored entries, expired or not.
func (c *MemoryClient) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

func (c *MemoryClient) evictOldest() {
	var oldestKey string
	var oldest time.Time
	for key, e := range c.data {
		if oldestKey == "" || e.expiresAt.Before(oldest) {
			oldestKey, oldest = key, e.expiresAt
		}
	}
	if oldestKey != "" {
		delete(c.data, oldestKey)
	}
}

func (c *MemoryClient) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			now := c.now()
			for key, e := range c.data {
				if now.After(e.expiresAt) {
					delete(c.data, key)
				}
			}
			c.mu.Unlock()
		}
	}
}
