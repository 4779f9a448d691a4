package cache_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/imoji/pkg/cache"
)

func TestMemoryBlobStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := cache.NewMemoryBlobStore(2)

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, cache.ErrBlobNotFound)

	data := []byte("png-bytes")
	require.NoError(t, s.Set(ctx, "a", data, 0))
	data[0] = 'X' // stored copy must not alias the caller's slice

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), got)

	require.NoError(t, s.Delete(ctx, "a"))
	_, err = s.Get(ctx, "a")
	assert.ErrorIs(t, err, cache.ErrBlobNotFound)
}

func TestDialRedis_InvalidURL(t *testing.T) {
	t.Parallel()

	_, err := cache.DialRedis(context.Background(), cache.RedisConfig{ConnectionURL: "://nope"})
	assert.ErrorIs(t, err, cache.ErrInvalidRedisURL)
}

// Runs against a real server when IMOJI_TEST_REDIS_URL is set.
func TestRedisBlobStore_Integration(t *testing.T) {
	url := os.Getenv("IMOJI_TEST_REDIS_URL")
	if url == "" {
		t.Skip("IMOJI_TEST_REDIS_URL not set")
	}

	ctx := context.Background()
	client, err := cache.DialRedis(ctx, cache.RedisConfig{
		ConnectionURL:  url,
		RetryAttempts:  1,
		ConnectTimeout: 5 * time.Second,
	})
	require.NoError(t, err)
	defer client.Close()

	s := cache.NewRedisBlobStore(client, "imoji:test:")
	require.NoError(t, s.Set(ctx, "k", []byte("v"), time.Minute))

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, s.Delete(ctx, "k"))
	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, cache.ErrBlobNotFound)
}
