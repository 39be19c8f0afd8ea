package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/dgnsrekt/recite/internal/cache"
)

// Cached keeps recently read objects of a slower adapter in memory.
type Cached struct {
	Adapter
	cache *cache.Memory
}

// NewCached wraps inner with an LRU cache of capacity bytes.
func NewCached(inner Adapter, capacity int64) *Cached {
	return &Cached{
		Adapter: inner,
		cache:   cache.NewMemory(capacity),
	}
}

// Put stores data and caches it.
func (c *Cached) Put(ctx context.Context, key string, data io.Reader) error {
	buf, err := io.ReadAll(data)
	if err != nil {
		return fmt.Errorf("failed to read data: %w", err)
	}
	c.cache.Delete(key)
	if err := c.Adapter.Put(ctx, key, bytes.NewReader(buf)); err != nil {
		return err
	}
	_ = c.cache.Put(key, buf) // objects above capacity are not cached
	return nil
}

// Get serves key from memory when possible.
func (c *Cached) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if buf, ok := c.cache.Get(key); ok {
		return io.NopCloser(bytes.NewReader(buf)), nil
	}

	rc, err := c.Adapter.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close() //nolint:errcheck

	buf, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read object: %w", err)
	}
	_ = c.cache.Put(key, buf)
	return io.NopCloser(bytes.NewReader(buf)), nil
}

// Delete removes key from the cache and the backend.
func (c *Cached) Delete(ctx context.Context, key string) error {
	c.cache.Delete(key)
	return c.Adapter.Delete(ctx, key)
}

// Stats reports cache effectiveness.
func (c *Cached) Stats() cache.Stats {
	return c.cache.Stats()
}
