//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/dyluth/encoding-music/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_RealRedis(t *testing.T) {
	redisURL := testutil.StartRedis(t)
	ctx := context.Background()

	c, err := NewFromURL(redisURL, "integration")
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	require.NoError(t, c.Ping(ctx))

	calls := 0
	load := func(context.Context) ([]byte, error) {
		calls++
		return []byte("link,volume\na,3\n"), nil
	}

	for i := 0; i < 2; i++ {
		got, err := c.GetOrLoad(ctx, "survey", time.Minute, load)
		require.NoError(t, err)
		assert.Equal(t, "link,volume\na,3\n", string(got))
	}
	assert.Equal(t, 1, calls)

	require.NoError(t, c.Set(ctx, "other", []byte("x"), 0))
	n, err := c.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = c.Get(ctx, "survey")
	assert.True(t, IsMiss(err))
}
