package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	r := NewRedis(RedisConfig{Addr: srv.Addr(), Timeout: time.Second}, nil)
	t.Cleanup(func() { _ = r.Close() })
	return r, srv
}

func TestRedisGet(t *testing.T) {
	r, srv := newTestRedis(t)
	ctx := context.Background()
	require.NoError(t, r.Ping(ctx))

	require.NoError(t, srv.Set("amm-X-Y-volume-24h", "1234.5"))
	v, err := r.Get(ctx, "amm-X-Y-volume-24h")
	require.NoError(t, err)
	got, ok := v.Get()
	require.True(t, ok)
	require.Equal(t, 1234.5, got)

	require.NoError(t, srv.Set("amm-X-Y-txcount-24h", "0"))
	v, err = r.Get(ctx, "amm-X-Y-txcount-24h")
	require.NoError(t, err)
	got, ok = v.Get()
	require.True(t, ok, "stored zero is present")
	require.Equal(t, 0.0, got)
}

func TestRedisGetMissing(t *testing.T) {
	r, srv := newTestRedis(t)
	ctx := context.Background()

	v, err := r.Get(ctx, "amm-X-Y-volume-24h")
	require.NoError(t, err)
	require.False(t, v.Present())

	require.NoError(t, srv.Set("amm-X-Y-fee-1w", ""))
	v, err = r.Get(ctx, "amm-X-Y-fee-1w")
	require.NoError(t, err)
	require.False(t, v.Present())
}

func TestRedisGetMalformed(t *testing.T) {
	r, srv := newTestRedis(t)
	require.NoError(t, srv.Set("amm-X-Y-tvl", "lots"))

	v, err := r.Get(context.Background(), "amm-X-Y-tvl")
	require.Error(t, err)
	require.False(t, v.Present())
}

func TestRedisSetMany(t *testing.T) {
	r, srv := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, r.SetMany(ctx, map[string]float64{
		"amm-X-Y-tvl":         250000.25,
		"amm-X-Y-txcount-24h": 17,
	}, time.Hour))

	stored, err := srv.Get("amm-X-Y-txcount-24h")
	require.NoError(t, err)
	require.Equal(t, "17", stored)
	require.Equal(t, time.Hour, srv.TTL("amm-X-Y-tvl"))

	v, err := r.Get(ctx, "amm-X-Y-tvl")
	require.NoError(t, err)
	require.Equal(t, 250000.25, v.OrElse(0))

	require.NoError(t, r.SetMany(ctx, nil, 0))
}

func TestRedisUnavailable(t *testing.T) {
	r := NewRedis(RedisConfig{Addr: "127.0.0.1:1", Timeout: 200 * time.Millisecond}, nil)
	defer r.Close()

	v, err := r.Get(context.Background(), "amm-X-Y-tvl")
	require.Error(t, err)
	require.False(t, v.Present())
}
