package instance

import (
	"context"
	"fmt"
	"net"
	"strconv"

	dockerpkg "github.com/dyluth/encoding-music/internal/docker"
)

// Host ports handed out to cache containers.
const (
	startPort = 6379
	endPort   = startPort + 99
)

// FindNextAvailablePort finds the next available host port for a cache,
// starting from 6379. Ports claimed by other encmusic cache containers are
// skipped even when those containers are stopped, as are ports something
// else on the host already listens on.
func FindNextAvailablePort(ctx context.Context, cli ContainerLister) (int, error) {
	containers, err := ListCaches(ctx, cli)
	if err != nil {
		return 0, fmt.Errorf("failed to query Docker containers: %w", err)
	}

	usedPorts := make(map[int]bool)
	for _, c := range containers {
		if portStr, ok := c.Labels[dockerpkg.LabelRedisPort]; ok {
			if port, err := strconv.Atoi(portStr); err == nil {
				usedPorts[port] = true
			}
		}
	}

	return nextPort(usedPorts, isPortBindable)
}

func nextPort(used map[int]bool, bindable func(int) bool) (int, error) {
	for port := startPort; port <= endPort; port++ {
		if used[port] {
			continue
		}
		if bindable(port) {
			return port, nil
		}
	}
	return 0, fmt.Errorf("no available cache ports (range %d-%d exhausted)", startPort, endPort)
}

func isPortBindable(port int) bool {
	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return false
	}
	_ = listener.Close()
	return true
}
