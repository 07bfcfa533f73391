package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/loopline/concierge/internal/store/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Value string `json:"value"`
}

func TestMemoryCache_SetAndGet(t *testing.T) {
	c := cache.NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", payload{Value: "v"}, time.Minute))

	var got payload
	require.NoError(t, c.Get(ctx, "k", &got))
	assert.Equal(t, "v", got.Value)
}

func TestMemoryCache_MissingKey(t *testing.T) {
	c := cache.NewMemoryCache()

	var got payload
	err := c.Get(context.Background(), "absent", &got)

	assert.ErrorIs(t, err, cache.ErrCacheMiss)
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := cache.NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", payload{Value: "v"}, time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	var got payload
	err := c.Get(ctx, "k", &got)

	assert.ErrorIs(t, err, cache.ErrCacheMiss)
}

func TestMemoryCache_ZeroTTLNeverExpires(t *testing.T) {
	c := cache.NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", payload{Value: "v"}, 0))

	var got payload
	require.NoError(t, c.Get(ctx, "k", &got))
	assert.Equal(t, "v", got.Value)
}

func TestMemoryCache_Delete(t *testing.T) {
	c := cache.NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", payload{Value: "v"}, time.Minute))
	require.NoError(t, c.Delete(ctx, "k"))

	var got payload
	assert.ErrorIs(t, c.Get(ctx, "k", &got), cache.ErrCacheMiss)
}
