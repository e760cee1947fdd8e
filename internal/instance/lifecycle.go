package instance

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	"github.com/dyluth/encoding-music/internal/cache"
	dockerpkg "github.com/dyluth/encoding-music/internal/docker"
	"github.com/dyluth/encoding-music/internal/watch"
)

// DefaultImage is the Redis image local caches run.
const DefaultImage = "redis:7-alpine"

// ErrExists is returned by Up when the instance name is taken.
var ErrExists = errors.New("cache instance already exists")

// UpOptions configures a new local cache.
type UpOptions struct {
	Name  string
	Image string
	// ReadyTimeout bounds the wait for the first successful PING.
	ReadyTimeout time.Duration
	// Progress receives one line per completed step. May be nil.
	Progress func(format string, a ...any)
}

// Up starts a labelled Redis container bound to 127.0.0.1 on the next free
// port and waits until it answers PING. A container that fails to start or
// become ready is removed again.
func Up(ctx context.Context, cli *client.Client, opts UpOptions) (*CacheInfo, error) {
	if opts.Name == "" {
		opts.Name = DefaultName
	}
	if opts.Image == "" {
		opts.Image = DefaultImage
	}
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = 30 * time.Second
	}
	progress := opts.Progress
	if progress == nil {
		progress = func(string, ...any) {}
	}

	if err := ValidateName(opts.Name); err != nil {
		return nil, err
	}
	exists, err := CheckNameCollision(ctx, cli, opts.Name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: '%s'", ErrExists, opts.Name)
	}

	port, err := FindNextAvailablePort(ctx, cli)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate cache port: %w", err)
	}
	progress("Allocated cache port: %d", port)

	if err := ensureImage(ctx, cli, opts.Image); err != nil {
		return nil, err
	}

	runID := dockerpkg.GenerateRunID()
	labels := dockerpkg.BuildLabels(opts.Name, runID, dockerpkg.ComponentCache)
	labels[dockerpkg.LabelRedisPort] = strconv.Itoa(port)

	name := dockerpkg.CacheContainerName(opts.Name)
	resp, err := cli.ContainerCreate(ctx, &container.Config{
		Image:  opts.Image,
		Labels: labels,
		ExposedPorts: nat.PortSet{
			"6379/tcp": struct{}{},
		},
	}, &container.HostConfig{
		PortBindings: nat.PortMap{
			"6379/tcp": []nat.PortBinding{
				{
					HostIP:   "127.0.0.1",
					HostPort: strconv.Itoa(port),
				},
			},
		},
	}, nil, nil, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache container: %w", err)
	}

	if err := cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		rollback(cli, resp.ID)
		return nil, fmt.Errorf("failed to start cache container: %w", err)
	}
	progress("Started cache container: %s (port %d)", name, port)

	url := GetRedisURL(port)
	if err := waitForRedis(ctx, url, opts.ReadyTimeout); err != nil {
		rollback(cli, resp.ID)
		return nil, fmt.Errorf("cache container did not become ready: %w", err)
	}
	progress("Cache is answering PING")

	return &CacheInfo{
		Name:    opts.Name,
		Status:  StatusRunning,
		Port:    port,
		URL:     url,
		Created: time.Now(),
	}, nil
}

// Down stops and removes the containers of the named cache and returns how
// many were removed.
func Down(ctx context.Context, cli *client.Client, instanceName string) (int, error) {
	containers, err := ListCaches(ctx, cli)
	if err != nil {
		return 0, err
	}

	removed := 0
	var errs []error
	for _, c := range containers {
		if c.Labels[dockerpkg.LabelInstanceName] != instanceName {
			continue
		}

		timeout := 10
		if err := cli.ContainerStop(ctx, c.ID, container.StopOptions{Timeout: &timeout}); err != nil {
			errs = append(errs, fmt.Errorf("stop %s: %w", c.ID[:min(12, len(c.ID))], err))
		}
		if err := cli.ContainerRemove(ctx, c.ID, container.RemoveOptions{Force: true, RemoveVolumes: true}); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", c.ID[:min(12, len(c.ID))], err))
			continue
		}
		removed++
	}

	if removed == 0 && len(errs) == 0 {
		return 0, fmt.Errorf("%w: '%s'", ErrNotFound, instanceName)
	}
	return removed, errors.Join(errs...)
}

func ensureImage(ctx context.Context, cli *client.Client, image string) error {
	if _, _, err := cli.ImageInspectWithRaw(ctx, image); err == nil {
		return nil
	} else if !client.IsErrNotFound(err) {
		return fmt.Errorf("failed to inspect image %s: %w", image, err)
	}

	reader, err := cli.ImagePull(ctx, image, types.ImagePullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image %s: %w", image, err)
	}
	defer reader.Close()

	if _, err := io.Copy(io.Discard, reader); err != nil {
		return fmt.Errorf("failed to pull image %s: %w", image, err)
	}
	return nil
}

func waitForRedis(ctx context.Context, url string, timeout time.Duration) error {
	c, err := cache.NewFromURL(url, "probe")
	if err != nil {
		return err
	}
	defer c.Close()

	return watch.PollForPing(ctx, c.Ping, timeout)
}

// rollback removes a half-created container with a fresh context so a
// cancelled ctx does not leave it behind.
func rollback(cli *client.Client, id string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = cli.ContainerRemove(ctx, id, container.RemoveOptions{Force: true})
}
