package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"municipality/internal/config"
)

func TestLocalCache(t *testing.T) {
	ctx := context.Background()
	c := NewLocal()

	_, ok, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "stats:1", `{"total_notifications":2}`, time.Minute))
	value, ok, err := c.Get(ctx, "stats:1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"total_notifications":2}`, value)

	require.NoError(t, c.Delete(ctx, "stats:1"))
	_, ok, _ = c.Get(ctx, "stats:1")
	assert.False(t, ok)
}

func TestLocalCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c := NewLocal()

	require.NoError(t, c.Set(ctx, "short", "v", 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	_, ok, err := c.Get(ctx, "short")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNew_DisabledRedisFallsBackToLocal(t *testing.T) {
	c, client := New(config.RedisConfig{Enabled: false})
	assert.Nil(t, client)
	assert.IsType(t, &LocalCache{}, c)
}
