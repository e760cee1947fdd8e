package instance

import (
	"context"
	"testing"
	"time"

	"github.com/docker/docker/client"
	"github.com/dyluth/encoding-music/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dockerOrSkip(t *testing.T) *client.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping Docker test in short mode")
	}
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		t.Skip("Docker not available")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := cli.Ping(ctx); err != nil {
		cli.Close()
		t.Skip("Docker not available")
	}
	t.Cleanup(func() { cli.Close() })
	return cli
}

func TestUpDown(t *testing.T) {
	cli := dockerOrSkip(t)
	ctx := context.Background()
	name := "test-" + time.Now().Format("150405")

	info, err := Up(ctx, cli, UpOptions{Name: name, ReadyTimeout: time.Minute})
	require.NoError(t, err)
	t.Cleanup(func() { Down(context.Background(), cli, name) })

	assert.Equal(t, StatusRunning, info.Status)
	assert.GreaterOrEqual(t, info.Port, startPort)

	c, err := cache.NewFromURL(info.URL, "test")
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, c.Ping(ctx))

	_, err = Up(ctx, cli, UpOptions{Name: name})
	assert.ErrorIs(t, err, ErrExists)

	removed, err := Down(ctx, cli, name)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = Down(ctx, cli, name)
	assert.ErrorIs(t, err, ErrNotFound)
}
