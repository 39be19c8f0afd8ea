package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, a Adapter, key string) string {
	t.Helper()
	rc, err := a.Get(context.Background(), key)
	require.NoError(t, err)
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(b)
}

// exerciseAdapter runs the behaviour every backend shares.
func exerciseAdapter(t *testing.T, a Adapter) {
	ctx := context.Background()

	t.Run("Put", func(t *testing.T) {
		require.NoError(t, a.Put(ctx, "books/b1/book.json.zst", bytes.NewReader([]byte("Hello, World!"))))
		require.NoError(t, a.Put(ctx, "books/b2/book.json.zst", bytes.NewReader([]byte("second"))))
		require.NoError(t, a.Put(ctx, "other.txt", bytes.NewReader([]byte("x"))))
	})

	t.Run("Exists", func(t *testing.T) {
		ok, err := a.Exists(ctx, "books/b1/book.json.zst")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = a.Exists(ctx, "books/none/book.json.zst")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Get", func(t *testing.T) {
		assert.Equal(t, "Hello, World!", readAll(t, a, "books/b1/book.json.zst"))
	})

	t.Run("Overwrite", func(t *testing.T) {
		require.NoError(t, a.Put(ctx, "books/b2/book.json.zst", bytes.NewReader([]byte("replaced"))))
		assert.Equal(t, "replaced", readAll(t, a, "books/b2/book.json.zst"))
	})

	t.Run("List", func(t *testing.T) {
		keys, err := a.List(ctx, "books/")
		require.NoError(t, err)
		assert.Equal(t, []string{"books/b1/book.json.zst", "books/b2/book.json.zst"}, keys)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, a.Delete(ctx, "books/b1/book.json.zst"))
		ok, err := a.Exists(ctx, "books/b1/book.json.zst")
		require.NoError(t, err)
		assert.False(t, ok)

		assert.NoError(t, a.Delete(ctx, "books/b1/book.json.zst"), "deleting twice")
	})

	t.Run("GetNonExistent", func(t *testing.T) {
		_, err := a.Get(ctx, "non-existent.txt")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestLocalAdapter(t *testing.T) {
	adapter, err := NewLocalAdapter(t.TempDir())
	require.NoError(t, err)
	defer adapter.Close()

	exerciseAdapter(t, adapter)
}

func TestLocalAdapterInvalidKeys(t *testing.T) {
	dir := t.TempDir()
	adapter, err := NewLocalAdapter(filepath.Join(dir, "root"))
	require.NoError(t, err)

	ctx := context.Background()
	for _, key := range []string{"", "../escape", "a/../../b", "/abs", "dir/"} {
		t.Run(key, func(t *testing.T) {
			err := adapter.Put(ctx, key, bytes.NewReader(nil))
			assert.ErrorIs(t, err, ErrInvalidKey)
		})
	}

	_, err = os.Stat(filepath.Join(dir, "escape"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLocalAdapterConcurrency(t *testing.T) {
	adapter, err := NewLocalAdapter(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			// All writers race on one key as well as their own.
			assert.NoError(t, adapter.Put(ctx, fmt.Sprintf("test/file%d.txt", idx), bytes.NewReader([]byte("data"))))
			assert.NoError(t, adapter.Put(ctx, "test/shared.txt", bytes.NewReader([]byte("shared"))))
		}(i)
	}
	wg.Wait()

	keys, err := adapter.List(ctx, "test/")
	require.NoError(t, err)
	assert.Len(t, keys, 11)
	assert.Equal(t, "shared", readAll(t, adapter, "test/shared.txt"))
}
