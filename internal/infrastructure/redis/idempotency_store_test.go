package redisstore_test

import (
	"context"
	"testing"
	"time"

	redisstore "arbscan-service/internal/infrastructure/redis"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestTryReserve(t *testing.T) {
	mr, client := newClient(t)
	store := redisstore.New(client, time.Hour)

	ctx := context.Background()
	ok, err := store.TryReserve(ctx, "notify:BTC/USDT|binance|kraken")
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, mr.Exists("arbscan:notify:BTC/USDT|binance|kraken"))

	ok, err = store.TryReserve(ctx, "notify:BTC/USDT|binance|kraken")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestTryReserve_ExpiresAfterTTL(t *testing.T) {
	mr, client := newClient(t)
	store := redisstore.New(client, time.Minute)

	ctx := context.Background()
	ok, err := store.TryReserve(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Minute)
	ok, err = store.TryReserve(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestTryReserve_Unreachable(t *testing.T) {
	mr, client := newClient(t)
	store := redisstore.New(client, time.Minute)
	mr.Close()

	_, err := store.TryReserve(context.Background(), "k1")
	require.Error(t, err)
}
