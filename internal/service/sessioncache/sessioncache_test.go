package sessioncache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	require.Equal(t, "allset:courier:session:aofbiz:shop@aofbiz.lk", Key(" AOFBiz", "Shop@AOFBiz.lk "))
}

func TestRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	cache, err := NewRedisCache(ctx, mr.Addr(), "")
	require.NoError(t, err)
	defer cache.Close()

	key := Key("aofbiz", "shop@aofbiz.lk")

	// пусто
	_, ok, err := cache.Get(ctx, key)
	require.NoError(t, err)
	require.False(t, ok)

	// запись
	require.NoError(t, cache.Set(ctx, key, "tok-1", time.Hour))
	token, ok, err := cache.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "tok-1", token)
	require.Equal(t, time.Hour, mr.TTL(key))

	// истечение
	mr.FastForward(time.Hour + time.Second)
	_, ok, err = cache.Get(ctx, key)
	require.NoError(t, err)
	require.False(t, ok)

	// удаление
	require.NoError(t, cache.Set(ctx, key, "tok-2", time.Hour))
	require.NoError(t, cache.Delete(ctx, key))
	_, ok, err = cache.Get(ctx, key)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisCacheUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisCache(context.Background(), addr, "")
	require.Error(t, err)
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

	cache := NewMemoryCache().(*memoryCache)
	cache.now = func() time.Time { return now }

	key := Key("aofbiz", "shop@aofbiz.lk")

	_, ok, err := cache.Get(ctx, key)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, cache.Set(ctx, key, "tok-1", time.Minute))
	token, ok, err := cache.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "tok-1", token)

	now = now.Add(time.Minute)
	_, ok, err = cache.Get(ctx, key)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, cache.Set(ctx, key, "tok-2", 0))
	now = now.Add(24 * time.Hour)
	token, ok, err = cache.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "tok-2", token)

	require.NoError(t, cache.Delete(ctx, key))
	_, ok, err = cache.Get(ctx, key)
	require.NoError(t, err)
	require.False(t, ok)
}
