package cache_test

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-pricing/internal/cache"
)

func TestJSONRoundTripAndExpiry(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	c := cache.NewJSON(client, "pricing:", time.Minute)
	ctx := context.Background()

	var got map[string]any
	found, err := c.Get(ctx, cache.KeySetting("cod_fee"), &got)
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, c.Set(ctx, cache.KeySetting("cod_fee"), map[string]any{"value": 15}))
	require.True(t, mr.Exists("pricing:setting:cod_fee"))

	found, err = c.Get(ctx, cache.KeySetting("cod_fee"), &got)
	require.NoError(t, err)
	require.True(t, found)
	require.EqualValues(t, 15, got["value"])

	mr.FastForward(time.Minute)
	found, err = c.Get(ctx, cache.KeySetting("cod_fee"), &got)
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, c.Set(ctx, "k", 1))
	require.NoError(t, c.Delete(ctx, "k"))
	require.False(t, mr.Exists("pricing:k"))
}

func TestJSONNilClientMisses(t *testing.T) {
	c := cache.NewJSON(nil, "", time.Minute)
	var v int
	found, err := c.Get(context.Background(), "k", &v)
	require.NoError(t, err)
	require.False(t, found)
	require.NoError(t, c.Set(context.Background(), "k", 1))
}
