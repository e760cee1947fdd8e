package instance

import (
	"fmt"
	"os"
)

// GetRedisHost returns the hostname that reaches a published cache port.
// Inside a container that is the Docker host, otherwise localhost.
func GetRedisHost() string {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return "host.docker.internal"
	}
	return "localhost"
}

// GetRedisURL constructs the full Redis URL for a given port.
func GetRedisURL(port int) string {
	return fmt.Sprintf("redis://%s:%d", GetRedisHost(), port)
}
