package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dyluth/encoding-music/internal/metrics"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrDisabled is returned by direct operations on a nil *Cache.
var ErrDisabled = errors.New("cache disabled")

// Cache provides namespace-scoped Redis storage for loaded data.
// All keys are automatically namespaced. The cache is safe for concurrent use.
type Cache struct {
	rdb       *redis.Client
	namespace string
	logger    *zap.Logger
}

// New creates a cache for the given namespace.
//
// Parameters:
//   - redisOpts: Redis connection options (address, password, DB, etc.)
//   - namespace: deployment identifier (must not be empty)
//
// Returns an error if namespace is empty.
func New(redisOpts *redis.Options, namespace string) (*Cache, error) {
	if namespace == "" {
		return nil, fmt.Errorf("namespace cannot be empty")
	}

	return &Cache{
		rdb:       redis.NewClient(redisOpts),
		namespace: namespace,
		logger:    zap.NewNop(),
	}, nil
}

// NewFromURL parses a redis:// URL and creates a cache for the namespace.
func NewFromURL(redisURL, namespace string) (*Cache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	return New(opts, namespace)
}

// WithLogger sets the logger used for degraded-mode warnings.
func (c *Cache) WithLogger(logger *zap.Logger) *Cache {
	if c != nil && logger != nil {
		c.logger = logger
	}
	return c
}

// Namespace returns the key namespace, or "" for a nil cache.
func (c *Cache) Namespace() string {
	if c == nil {
		return ""
	}
	return c.namespace
}

// Close closes the Redis connection. Implements io.Closer.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.rdb.Close()
}

// Ping verifies Redis connectivity. Useful for health checks.
func (c *Cache) Ping(ctx context.Context) error {
	if c == nil {
		return ErrDisabled
	}
	return c.rdb.Ping(ctx).Err()
}

// Get returns the cached value for key.
// Returns redis.Nil if the key doesn't exist; use IsMiss() to check.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	if c == nil {
		return nil, ErrDisabled
	}

	val, err := c.rdb.Get(ctx, EntryKey(c.namespace, key)).Bytes()
	if err != nil {
		if IsMiss(err) {
			return nil, redis.Nil
		}
		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}
	return val, nil
}

// Set stores value under key. A zero ttl keeps the entry until flushed.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if c == nil {
		return ErrDisabled
	}

	if err := c.rdb.Set(ctx, EntryKey(c.namespace, key), value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// Delete removes a single entry. Deleting a missing key is not an error.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if c == nil {
		return ErrDisabled
	}

	if err := c.rdb.Del(ctx, EntryKey(c.namespace, key)).Err(); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Flush removes every entry in the namespace and returns how many were
// deleted. Entries of other namespaces are untouched.
func (c *Cache) Flush(ctx context.Context) (int, error) {
	if c == nil {
		return 0, ErrDisabled
	}

	var (
		cursor  uint64
		deleted int
	)
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, EntryPattern(c.namespace), 100).Result()
		if err != nil {
			return deleted, fmt.Errorf("failed to scan cache entries: %w", err)
		}
		if len(keys) > 0 {
			n, err := c.rdb.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, fmt.Errorf("failed to delete cache entries: %w", err)
			}
			deleted += int(n)
		}
		cursor = next
		if cursor == 0 {
			return deleted, nil
		}
	}
}

// GetOrLoad returns the cached value for key, or calls load and caches its
// result for ttl. Loader errors are returned as-is and nothing is cached.
//
// Redis failures never fail the call: a broken read falls through to load,
// and a broken write is logged and the loaded value still returned.
// A nil cache always calls load.
func (c *Cache) GetOrLoad(ctx context.Context, key string, ttl time.Duration, load func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	if c == nil {
		return load(ctx)
	}

	val, err := c.Get(ctx, key)
	switch {
	case err == nil:
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		return val, nil
	case IsMiss(err):
		metrics.CacheLookups.WithLabelValues("miss").Inc()
	default:
		metrics.CacheLookups.WithLabelValues("error").Inc()
		c.logger.Warn("cache read failed, loading directly", zap.String("key", key), zap.Error(err))
	}

	val, err = load(ctx)
	if err != nil {
		return nil, err
	}

	if err := c.Set(ctx, key, val, ttl); err != nil {
		c.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
	return val, nil
}

// IsMiss returns true if the error indicates an absent cache entry.
func IsMiss(err error) bool {
	return errors.Is(err, redis.Nil)
}
