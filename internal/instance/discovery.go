package instance

import (
	"context"
	"errors"
	"fmt"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	dockerpkg "github.com/dyluth/encoding-music/internal/docker"
)

// ErrNotFound is returned when no cache container carries the requested name.
var ErrNotFound = errors.New("cache instance not found")

// ContainerLister is the part of the Docker client used for discovery.
type ContainerLister interface {
	ContainerList(ctx context.Context, options container.ListOptions) ([]types.Container, error)
}

// ListCaches returns every encmusic cache container, running or not.
func ListCaches(ctx context.Context, cli ContainerLister) ([]types.Container, error) {
	filter := filters.NewArgs()
	filter.Add("label", fmt.Sprintf("%s=true", dockerpkg.LabelProject))
	filter.Add("label", fmt.Sprintf("%s=%s", dockerpkg.LabelComponent, dockerpkg.ComponentCache))

	containers, err := cli.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filter,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}
	return containers, nil
}

// FindCache returns the cache container of the named instance.
func FindCache(ctx context.Context, cli ContainerLister, instanceName string) (types.Container, error) {
	containers, err := ListCaches(ctx, cli)
	if err != nil {
		return types.Container{}, err
	}
	for _, c := range containers {
		if c.Labels[dockerpkg.LabelInstanceName] == instanceName {
			return c, nil
		}
	}
	return types.Container{}, fmt.Errorf("%w: '%s'", ErrNotFound, instanceName)
}

// CheckNameCollision reports whether a cache with the given name already exists.
func CheckNameCollision(ctx context.Context, cli ContainerLister, instanceName string) (bool, error) {
	_, err := FindCache(ctx, cli, instanceName)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("failed to check for name collision: %w", err)
	}
}
