package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucketLimiter(t *testing.T) {
	limiter := NewTokenBucketLimiter(1, 2)
	ctx := context.Background()

	allowed, err := limiter.Allow(ctx, "a")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = limiter.Allow(ctx, "a")
	require.NoError(t, err)
	assert.True(t, allowed)

	// Burst exhausted.
	allowed, err = limiter.Allow(ctx, "a")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestSlidingWindowLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	limiter := NewSlidingWindowLimiter(client, 3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(ctx, "hook:abc")
		require.NoError(t, err)
		assert.True(t, allowed, "request %d should pass", i)
	}

	allowed, err := limiter.Allow(ctx, "hook:abc")
	require.NoError(t, err)
	assert.False(t, allowed)

	// A different key has its own budget.
	allowed, err = limiter.Allow(ctx, "hook:other")
	require.NoError(t, err)
	assert.True(t, allowed)
}
