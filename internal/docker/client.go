package docker

import (
	"context"
	"fmt"

	"github.com/docker/docker/client"
)

// NewClient connects to the local Docker daemon and pings it.
func NewClient(ctx context.Context) (*client.Client, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}

	if _, err := cli.Ping(ctx); err != nil {
		_ = cli.Close()
		return nil, fmt.Errorf(`cannot reach the Docker daemon: %w

'encmusic cache up' runs Redis in a container. Start Docker Desktop (macOS)
or 'sudo systemctl start docker' (Linux), or set ENCMUSIC_REDIS_URL to an
existing Redis instead.`, err)
	}

	return cli, nil
}
