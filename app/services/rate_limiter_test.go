package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRateLimiter(t *testing.T) {
	ctx := context.Background()

	t.Run("AllowsUpToLimit", func(t *testing.T) {
		limiter := NewMemoryRateLimiter(5, time.Hour)

		for i := 0; i < 5; i++ {
			result, err := limiter.Allow(ctx, "email:1")
			require.NoError(t, err)
			assert.True(t, result.Allowed, "request %d should pass", i+1)
			assert.Equal(t, 4-i, result.Remaining)
		}

		result, err := limiter.Allow(ctx, "email:1")
		require.NoError(t, err)
		assert.False(t, result.Allowed)
		assert.Equal(t, 0, result.Remaining)
		assert.Greater(t, result.RetryAfter, time.Duration(0))
	})

	t.Run("WindowSlides", func(t *testing.T) {
		current := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
		limiter := NewMemoryRateLimiter(2, time.Hour)
		limiter.now = func() time.Time { return current }

		for i := 0; i < 2; i++ {
			result, err := limiter.Allow(ctx, "email:1")
			require.NoError(t, err)
			require.True(t, result.Allowed)
		}

		result, err := limiter.Allow(ctx, "email:1")
		require.NoError(t, err)
		assert.False(t, result.Allowed)
		assert.Equal(t, time.Hour, result.RetryAfter)

		// Half the window passes, still blocked but with less to wait.
		current = current.Add(30 * time.Minute)
		result, err = limiter.Allow(ctx, "email:1")
		require.NoError(t, err)
		assert.False(t, result.Allowed)
		assert.Equal(t, 30*time.Minute, result.RetryAfter)

		// The first permit falls out of the window and frees a slot.
		current = current.Add(31 * time.Minute)
		result, err = limiter.Allow(ctx, "email:1")
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	})

	t.Run("KeysAreIndependent", func(t *testing.T) {
		limiter := NewMemoryRateLimiter(1, time.Hour)

		result, err := limiter.Allow(ctx, "email:1")
		require.NoError(t, err)
		require.True(t, result.Allowed)

		result, err = limiter.Allow(ctx, "email:1")
		require.NoError(t, err)
		assert.False(t, result.Allowed)

		result, err = limiter.Allow(ctx, "email:2")
		require.NoError(t, err)
		assert.True(t, result.Allowed, "a different account must have its own window")
	})
}
