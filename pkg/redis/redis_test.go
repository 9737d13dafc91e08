package redis

import (
	"context"
	"net"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/fluxrx/pkg/config"
)

func disabledClient(t *testing.T) *Client {
	t.Helper()
	client, err := New(context.Background(), config.RedisConfig{Enabled: false})
	require.NoError(t, err)
	require.False(t, client.Enabled())
	return client
}

func TestRateLimiter_Disabled(t *testing.T) {
	limiter := NewRateLimiter(disabledClient(t), "test")

	allowed, remaining, err := limiter.Allow(context.Background(), APIRateLimit("127.0.0.1", 5))
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, 5, remaining)
}

func TestCache_Disabled(t *testing.T) {
	cache := NewCache(disabledClient(t), "test")
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "key", "value", time.Minute))

	var result string
	found, err := cache.Get(ctx, "key", &result)
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, cache.Delete(ctx, "key"))
}

func TestPriceSeriesKey(t *testing.T) {
	from := time.Date(2024, 1, 2, 15, 30, 0, 0, time.UTC)
	to := time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "prices:SPY:2024-01-02:2024-06-28", PriceSeriesKey("SPY", from, to))
	assert.Equal(t, "prices:SPY:-:-", PriceSeriesKey("SPY", time.Time{}, time.Time{}))
}

// integration: REDIS_TEST_ADDR=host:port
func TestCacheAndLimiter_Live(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set, skipping integration test")
	}
	host, port, err := net.SplitHostPort(addr)
	require.NoError(t, err)

	ctx := context.Background()
	client, err := New(ctx, config.RedisConfig{Enabled: true, Host: host, Port: port})
	require.NoError(t, err)
	defer client.Close()

	cache := NewCache(client, "fluxrx-test")
	require.NoError(t, cache.Set(ctx, "k", map[string]float64{"a": 1.5}, time.Minute))
	var got map[string]float64
	found, err := cache.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 1.5, got["a"])
	require.NoError(t, cache.Delete(ctx, "k"))

	limiter := NewRateLimiter(client, "fluxrx-test")
	cfg := APIRateLimit("live-"+time.Now().Format("150405.000000"), 2)
	allowed := 0
	for i := 0; i < 3; i++ {
		ok, _, err := limiter.Allow(ctx, cfg)
		require.NoError(t, err)
		if ok {
			allowed++
		}
	}
	assert.LessOrEqual(t, allowed, 2)
}
