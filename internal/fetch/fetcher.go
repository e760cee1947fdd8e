package fetch

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/dyluth/encoding-music/internal/cache"
	"github.com/dyluth/encoding-music/internal/metrics"
)

// StatusError is returned when an upstream answers with anything but 200.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: HTTP %d: %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Fetcher loads data sources over HTTP or from disk.
// HTTP responses are memoized in the cache when one is configured.
type Fetcher struct {
	client         *http.Client
	userAgent      string
	maxContentSize int64
	cache          *cache.Cache
	ttl            time.Duration
}

// New creates a fetcher. A nil cache disables memoization.
func New(timeout time.Duration, userAgent string, maxContentSize int64, c *cache.Cache, ttl time.Duration) *Fetcher {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		Proxy:                 http.ProxyFromEnvironment,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
	}

	return &Fetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects (max 5)")
				}
				return nil
			},
		},
		userAgent:      userAgent,
		maxContentSize: maxContentSize,
		cache:          c,
		ttl:            ttl,
	}
}

// IsRemote reports whether src is an http(s) URL rather than a file.
func IsRemote(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")
}

// Fetch returns the bytes of src. URLs are fetched over HTTP through the
// cache; file:// URLs and plain paths are read from disk uncached.
func (f *Fetcher) Fetch(ctx context.Context, src string) ([]byte, error) {
	if !IsRemote(src) {
		return f.readFile(strings.TrimPrefix(src, "file://"))
	}

	return f.cache.GetOrLoad(ctx, src, f.ttl, func(ctx context.Context) ([]byte, error) {
		return f.get(ctx, src)
	})
}

// Invalidate drops the cached copy of src so the next Fetch goes upstream.
func (f *Fetcher) Invalidate(ctx context.Context, src string) error {
	if f.cache == nil || !IsRemote(src) {
		return nil
	}
	return f.cache.Delete(ctx, src)
}

func (f *Fetcher) get(ctx context.Context, urlStr string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		metrics.UpstreamFetches.WithLabelValues("http", "error").Inc()
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.UpstreamFetches.WithLabelValues("http", "status").Inc()
		return nil, &StatusError{URL: urlStr, StatusCode: resp.StatusCode}
	}

	body, err := f.limit(resp.Body)
	if err != nil {
		metrics.UpstreamFetches.WithLabelValues("http", "error").Inc()
		return nil, err
	}
	metrics.UpstreamFetches.WithLabelValues("http", "ok").Inc()
	return body, nil
}

func (f *Fetcher) readFile(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()
	return f.limit(file)
}

func (f *Fetcher) limit(r io.Reader) ([]byte, error) {
	if f.maxContentSize <= 0 {
		body, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		return body, nil
	}

	body, err := io.ReadAll(io.LimitReader(r, f.maxContentSize+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.maxContentSize {
		return nil, fmt.Errorf("content too large (exceeds %d bytes)", f.maxContentSize)
	}
	return body, nil
}
