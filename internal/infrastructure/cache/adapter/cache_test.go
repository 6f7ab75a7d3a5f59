package adapter

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-chatsync/internal/infrastructure/cache/port"
	"go-chatsync/internal/infrastructure/config"
)

func exerciseCache(t *testing.T, c port.Cache, expire func()) {
	ctx := context.Background()
	prefix := "test:" + uuid.NewString() + ":"

	_, err := c.Get(ctx, prefix+"missing")
	assert.ErrorIs(t, err, port.ErrMiss)

	require.NoError(t, c.Set(ctx, prefix+"a", "1", 0))
	require.NoError(t, c.Set(ctx, prefix+"b", "2", 50*time.Millisecond))

	v, err := c.Get(ctx, prefix+"a")
	require.NoError(t, err)
	assert.Equal(t, "1", v)

	entries, err := c.MGet(ctx, prefix+"a", prefix+"nope", prefix+"b")
	require.NoError(t, err)
	assert.Equal(t, []port.Entry{{Value: "1", OK: true}, {}, {Value: "2", OK: true}}, entries)

	expire()
	_, err = c.Get(ctx, prefix+"b")
	assert.ErrorIs(t, err, port.ErrMiss)

	n, err := c.Del(ctx, prefix+"a", prefix+"nope")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestMemoryCache(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMemoryCache(func() time.Time { return now })
	exerciseCache(t, c, func() { now = now.Add(time.Second) })
}

func TestRedisCache(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	c, err := NewRedisAdapter(context.Background(), config.RedisConfig{URL: url})
	if err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	defer c.Close()
	exerciseCache(t, c, func() { time.Sleep(100 * time.Millisecond) })
}

func TestNewRedisAdapter_RequiresURL(t *testing.T) {
	_, err := NewRedisAdapter(context.Background(), config.RedisConfig{})
	assert.Error(t, err)
}
