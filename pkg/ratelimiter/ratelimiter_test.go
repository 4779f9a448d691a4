package ratelimiter_test

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/imoji/pkg/ratelimiter"
)

func TestNewBucket(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		config  ratelimiter.Config
		wantErr bool
	}{
		{"valid", ratelimiter.Config{Capacity: 10, RefillRate: 1, RefillInterval: time.Second}, false},
		{"zero capacity", ratelimiter.Config{Capacity: 0, RefillRate: 1, RefillInterval: time.Second}, true},
		{"zero refill rate", ratelimiter.Config{Capacity: 10, RefillRate: 0, RefillInterval: time.Second}, true},
		{"zero interval", ratelimiter.Config{Capacity: 10, RefillRate: 1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := ratelimiter.NewBucket(tt.config)
			if tt.wantErr {
				assert.ErrorIs(t, err, ratelimiter.ErrInvalidConfig)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestPerSecond(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ratelimiter.Config{Capacity: 10, RefillRate: 5, RefillInterval: time.Second}, ratelimiter.PerSecond(5, 10))
	assert.Equal(t, 5, ratelimiter.PerSecond(5, 1).Capacity)
}

func TestBucket_Allow(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	b, err := ratelimiter.NewBucket(ratelimiter.Config{Capacity: 3, RefillRate: 1, RefillInterval: time.Second},
		ratelimiter.WithClock(clock))
	require.NoError(t, err)

	for i := range 3 {
		res := b.Allow()
		assert.True(t, res.Allowed(), "take %d", i)
		assert.Equal(t, 2-i, res.Remaining)
	}

	refused := b.Allow()
	assert.False(t, refused.Allowed())
	assert.Equal(t, time.Second, refused.RetryAfter(clock.Now()))

	clock.Advance(time.Second)
	assert.True(t, b.Allow().Allowed())
	assert.False(t, b.Allow().Allowed())

	// Idle time refills at most to capacity.
	clock.Advance(time.Hour)
	for range 3 {
		assert.True(t, b.Allow().Allowed())
	}
	assert.False(t, b.Allow().Allowed())
}

func TestBucket_AllowN(t *testing.T) {
	t.Parallel()

	b, err := ratelimiter.NewBucket(ratelimiter.Config{Capacity: 5, RefillRate: 1, RefillInterval: time.Second},
		ratelimiter.WithClock(clockwork.NewFakeClock()))
	require.NoError(t, err)

	res, err := b.AllowN(4)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Remaining)

	res, err = b.AllowN(2)
	require.NoError(t, err)
	assert.False(t, res.Allowed())

	res, err = b.AllowN(1)
	require.NoError(t, err)
	assert.True(t, res.Allowed(), "a refused take leaves the bucket unchanged")

	_, err = b.AllowN(0)
	assert.ErrorIs(t, err, ratelimiter.ErrInvalidTokenCount)
	_, err = b.AllowN(6)
	assert.ErrorIs(t, err, ratelimiter.ErrInvalidTokenCount)
}

func TestBucket_Wait(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	b, err := ratelimiter.NewBucket(ratelimiter.Config{Capacity: 1, RefillRate: 1, RefillInterval: time.Second},
		ratelimiter.WithClock(clock))
	require.NoError(t, err)
	require.NoError(t, b.Wait(context.Background()))

	done := make(chan error, 1)
	go func() { done <- b.Wait(context.Background()) }()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	select {
	case <-done:
		t.Fatal("Wait returned before the refill")
	default:
	}

	clock.Advance(time.Second)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after the refill")
	}
}

func TestBucket_WaitCanceled(t *testing.T) {
	t.Parallel()

	b, err := ratelimiter.NewBucket(ratelimiter.Config{Capacity: 1, RefillRate: 1, RefillInterval: time.Hour},
		ratelimiter.WithClock(clockwork.NewFakeClock()))
	require.NoError(t, err)
	require.NoError(t, b.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, b.Wait(ctx), context.Canceled)
}
