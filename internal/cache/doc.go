// Package cache memoizes loaded data in Redis so dashboards and CLI runs do
// not refetch the same survey CSV, SPARQL guide or GitHub tree on every
// request.
//
// # Overview
//
// Values are opaque byte slices stored as plain Redis strings with a TTL.
// Every key is namespaced so several encmusic deployments can share one Redis
// server, and so Flush can empty exactly one deployment's entries.
//
// Key pattern: encmusic:{namespace}:cache:{key}
//
// # Disabled Caching
//
// A nil *Cache is valid. GetOrLoad on a nil cache always calls the loader, and
// the other methods report ErrDisabled, so callers never branch on whether
// Redis was configured.
//
// # Usage Example
//
//	c, err := cache.New(&redis.Options{Addr: "localhost:6379"}, "default")
//	if err != nil {
//		return err
//	}
//	defer c.Close()
//
//	body, err := c.GetOrLoad(ctx, url, 10*time.Minute, func(ctx context.Context) ([]byte, error) {
//		return download(ctx, url)
//	})
package cache
