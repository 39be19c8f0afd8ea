package storage

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingAdapter counts backend reads.
type countingAdapter struct {
	Adapter
	gets int
}

func (c *countingAdapter) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	c.gets++
	return c.Adapter.Get(ctx, key)
}

func TestCached(t *testing.T) {
	local, err := NewLocalAdapter(t.TempDir())
	require.NoError(t, err)
	backend := &countingAdapter{Adapter: local}
	cached := NewCached(backend, 1<<10)
	ctx := context.Background()

	exerciseAdapter(t, NewCached(local, 1<<10))

	require.NoError(t, local.Put(ctx, "a.txt", bytes.NewReader([]byte("alpha"))))
	assert.Equal(t, "alpha", readAll(t, cached, "a.txt"))
	assert.Equal(t, "alpha", readAll(t, cached, "a.txt"))
	assert.Equal(t, 1, backend.gets, "second read served from memory")

	require.NoError(t, cached.Put(ctx, "a.txt", bytes.NewReader([]byte("beta"))))
	assert.Equal(t, "beta", readAll(t, cached, "a.txt"))
	assert.Equal(t, 1, backend.gets, "written objects are cached")

	require.NoError(t, cached.Delete(ctx, "a.txt"))
	_, err = cached.Get(ctx, "a.txt")
	assert.ErrorIs(t, err, ErrNotFound)

	s := cached.Stats()
	assert.Equal(t, int64(2), s.Hits)
}

func TestCachedLargeObject(t *testing.T) {
	local, err := NewLocalAdapter(t.TempDir())
	require.NoError(t, err)
	cached := NewCached(local, 4)

	require.NoError(t, cached.Put(context.Background(), "big", bytes.NewReader([]byte("too large"))))
	assert.Equal(t, "too large", readAll(t, cached, "big"))
	assert.Equal(t, 0, cached.Stats().Items)
}

func TestNewAdapter(t *testing.T) {
	ctx := context.Background()

	a, err := NewAdapter(ctx, Config{Adapter: AdapterLocal, Local: LocalConfig{BasePath: t.TempDir()}})
	require.NoError(t, err)
	assert.IsType(t, &LocalAdapter{}, a)

	a, err = NewAdapter(ctx, Config{Local: LocalConfig{BasePath: t.TempDir()}, CacheSize: 1024})
	require.NoError(t, err)
	assert.IsType(t, &Cached{}, a)

	_, err = NewAdapter(ctx, Config{Adapter: "ftp"})
	assert.ErrorContains(t, err, "unknown storage adapter")

	_, err = NewAdapter(ctx, Config{Adapter: AdapterS3})
	assert.ErrorContains(t, err, "bucket is required")
}
