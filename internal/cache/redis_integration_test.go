//go:build integration

package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestRedisClient(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	ctx := context.Background()

	container, err := tcredis.Run(ctx,
		"redis:7.4-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Ready to accept connections").WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate redis container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	c, err := NewRedisClient(RedisConfig{Addr: fmt.Sprintf("%s:%s", host, port.Port()), PoolSize: 2})
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)

	a := NewAnalyses(c, time.Minute)
	require.NoError(t, a.Put(ctx, "t1", "fp1", map[string]any{"success": true}))
	require.NoError(t, a.Put(ctx, "t1", "fp2", map[string]any{"success": true}))

	var got map[string]any
	require.NoError(t, a.Get(ctx, "t1", "fp1", &got))
	assert.Equal(t, true, got["success"])

	for i := 0; i < 3*purgeBatch; i++ {
		require.NoError(t, a.Put(ctx, "t1", fmt.Sprintf("bulk-%d", i), map[string]any{"success": true}))
	}
	require.NoError(t, a.Put(ctx, "t2", "fp1", map[string]any{"success": true}))

	require.NoError(t, a.Purge(ctx, "t1"))
	assert.ErrorIs(t, a.Get(ctx, "t1", "fp1", &got), ErrCacheMiss)
	assert.ErrorIs(t, a.Get(ctx, "t1", "fp2", &got), ErrCacheMiss)
	assert.ErrorIs(t, a.Get(ctx, "t1", fmt.Sprintf("bulk-%d", 2*purgeBatch), &got), ErrCacheMiss)
	require.NoError(t, a.Get(ctx, "t2", "fp1", &got))

	require.NoError(t, c.Delete(ctx, Key("analysis", "t2", "fp1")))
	assert.ErrorIs(t, a.Get(ctx, "t2", "fp1", &got), ErrCacheMiss)
}
