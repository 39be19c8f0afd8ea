// Package storage provides blob storage backends for the library.
package storage

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrNotFound is returned by Get for missing keys.
	ErrNotFound = errors.New("object not found")
	// ErrInvalidKey is returned for keys that escape the storage root.
	ErrInvalidKey = errors.New("invalid object key")
)

// Adapter defines the interface for storage backends. Keys are slash
// separated relative paths.
type Adapter interface {
	// Put stores data at the given key
	Put(ctx context.Context, key string, data io.Reader) error

	// Get retrieves data from the given key
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes data at the given key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error

	// Exists checks if data exists at the given key
	Exists(ctx context.Context, key string) (bool, error)

	// List returns keys matching the given prefix in lexical order
	List(ctx context.Context, prefix string) ([]string, error)

	// Close cleans up any resources
	Close() error
}
