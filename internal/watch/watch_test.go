package watch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollForPing(t *testing.T) {
	ctx := context.Background()

	t.Run("returns once redis answers", func(t *testing.T) {
		mr := miniredis.RunT(t)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		defer rdb.Close()

		err := PollForPing(ctx, func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}, 2*time.Second)
		assert.NoError(t, err)
	})

	t.Run("keeps polling until ping succeeds", func(t *testing.T) {
		calls := 0
		err := PollForPing(ctx, func(context.Context) error {
			calls++
			if calls < 3 {
				return errors.New("connection refused")
			}
			return nil
		}, 5*time.Second)
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("times out with the last error", func(t *testing.T) {
		refused := errors.New("connection refused")
		start := time.Now()
		err := PollForPing(ctx, func(context.Context) error { return refused }, 500*time.Millisecond)
		require.Error(t, err)
		assert.ErrorIs(t, err, refused)
		assert.Contains(t, err.Error(), "timeout waiting for ping")
		assert.Less(t, time.Since(start), 2*time.Second)
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		err := PollForPing(cctx, func(context.Context) error { return errors.New("down") }, time.Minute)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
