package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dyluth/encoding-music/internal/cache"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchHTTP(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "encmusic-test", r.Header.Get("User-Agent"))
		switch r.URL.Path {
		case "/survey.csv":
			w.Write([]byte("a,b\n1,2\n"))
		case "/big":
			w.Write(make([]byte, 64))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	ctx := context.Background()

	t.Run("returns body", func(t *testing.T) {
		f := New(5*time.Second, "encmusic-test", 1024, nil, 0)
		body, err := f.Fetch(ctx, srv.URL+"/survey.csv")
		require.NoError(t, err)
		assert.Equal(t, "a,b\n1,2\n", string(body))
	})

	t.Run("non-200 is a status error", func(t *testing.T) {
		f := New(5*time.Second, "encmusic-test", 1024, nil, 0)
		_, err := f.Fetch(ctx, srv.URL+"/missing")
		var se *StatusError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, http.StatusNotFound, se.StatusCode)
		assert.Contains(t, se.Error(), "/missing")
	})

	t.Run("enforces size cap", func(t *testing.T) {
		f := New(5*time.Second, "encmusic-test", 32, nil, 0)
		_, err := f.Fetch(ctx, srv.URL+"/big")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "content too large")
	})

	t.Run("memoizes through the cache", func(t *testing.T) {
		mr := miniredis.RunT(t)
		c, err := cache.New(&redis.Options{Addr: mr.Addr()}, "fetch-test")
		require.NoError(t, err)
		defer c.Close()

		f := New(5*time.Second, "encmusic-test", 1024, c, time.Minute)
		before := hits.Load()
		for i := 0; i < 3; i++ {
			body, err := f.Fetch(ctx, srv.URL+"/survey.csv")
			require.NoError(t, err)
			assert.Equal(t, "a,b\n1,2\n", string(body))
		}
		assert.Equal(t, before+1, hits.Load())

		require.NoError(t, f.Invalidate(ctx, srv.URL+"/survey.csv"))
		_, err = f.Fetch(ctx, srv.URL+"/survey.csv")
		require.NoError(t, err)
		assert.Equal(t, before+2, hits.Load())
	})
}

func TestFetchFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "survey.csv")
	require.NoError(t, os.WriteFile(path, []byte("x\n1\n"), 0o644))

	f := New(time.Second, "encmusic-test", 0, nil, 0)

	body, err := f.Fetch(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "x\n1\n", string(body))

	body, err = f.Fetch(context.Background(), "file://"+path)
	require.NoError(t, err)
	assert.Equal(t, "x\n1\n", string(body))

	_, err = f.Fetch(context.Background(), filepath.Join(dir, "nope.csv"))
	assert.Error(t, err)

	assert.NoError(t, f.Invalidate(context.Background(), path))
}
