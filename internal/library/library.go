// Package library persists imported books and listening progress on a
// storage backend.
package library

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/zstd"
	"github.com/sahilm/fuzzy"

	"github.com/dgnsrekt/recite/internal/storage"
)

const (
	booksPrefix  = "books/"
	bookFile     = "book.json.zst"
	metaFile     = "meta.json"
	progressFile = "progress.json"
)

// Library stores books as zstd-compressed JSON next to a small summary and
// the listening progress.
type Library struct {
	store   storage.Adapter
	logger  *log.Logger
	encoder *zstd.Encoder
	decoder *zstd.Decoder
	now     func() time.Time
}

// Option configures a Library.
type Option func(*Library)

// WithLogger sets the library logger.
func WithLogger(l *log.Logger) Option {
	return func(lib *Library) {
		lib.logger = l
	}
}

// WithClock sets the time source for progress timestamps.
func WithClock(now func() time.Time) Option {
	return func(lib *Library) {
		lib.now = now
	}
}

// New creates a library over store.
func New(store storage.Adapter, opts ...Option) (*Library, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	lib := &Library{
		store:   store,
		logger:  log.Default().WithPrefix("library"),
		encoder: encoder,
		decoder: decoder,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(lib)
	}
	return lib, nil
}

// Open creates a library on the backend described by cfg.
func Open(ctx context.Context, cfg Config) (*Library, error) {
	store, err := storage.NewAdapter(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	return New(store)
}

// Close releases the zstd coders and the storage backend.
func (l *Library) Close() error {
	l.decoder.Close()
	return errors.Join(l.encoder.Close(), l.store.Close())
}

func key(id, file string) string {
	return path.Join(booksPrefix+id, file)
}

// Save stores a book, replacing any book with the same id. Progress is kept.
func (l *Library) Save(ctx context.Context, b Book) (Summary, error) {
	raw, err := json.Marshal(b)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to encode book: %w", err)
	}
	compressed := l.encoder.EncodeAll(raw, nil)

	if err := l.store.Put(ctx, key(b.ID, bookFile), bytes.NewReader(compressed)); err != nil {
		return Summary{}, fmt.Errorf("failed to store book: %w", err)
	}

	s := b.summary(int64(len(compressed)))
	if err := l.putJSON(ctx, key(b.ID, metaFile), s); err != nil {
		return Summary{}, err
	}

	l.logger.Debug("saved book", "id", b.ID, "title", b.Title, "chapters", len(b.Chapters),
		"raw", len(raw), "compressed", len(compressed))
	return s, nil
}

// Get loads a book by id.
func (l *Library) Get(ctx context.Context, id string) (Book, error) {
	compressed, err := l.read(ctx, key(id, bookFile))
	if err != nil {
		return Book{}, err
	}

	raw, err := l.decoder.DecodeAll(compressed, nil)
	if err != nil {
		return Book{}, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	var b Book
	if err := json.Unmarshal(raw, &b); err != nil {
		return Book{}, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return b, nil
}

// List returns the summaries of all books, most recently imported first.
func (l *Library) List(ctx context.Context) ([]Summary, error) {
	keys, err := l.store.List(ctx, booksPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}

	var out []Summary
	for _, k := range keys {
		if path.Base(k) != metaFile {
			continue
		}
		var s Summary
		if err := l.getJSON(ctx, k, &s); err != nil {
			l.logger.Warn("skipping unreadable book", "key", k, "err", err)
			continue
		}
		out = append(out, s)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].ImportedAt.Equal(out[j].ImportedAt) {
			return out[i].ImportedAt.After(out[j].ImportedAt)
		}
		return out[i].Title < out[j].Title
	})
	return out, nil
}

// Delete removes a book and its progress.
func (l *Library) Delete(ctx context.Context, id string) error {
	ok, err := l.store.Exists(ctx, key(id, metaFile))
	if err != nil {
		return fmt.Errorf("failed to check book: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrBookNotFound, id)
	}

	for _, f := range []string{bookFile, progressFile, metaFile} {
		if err := l.store.Delete(ctx, key(id, f)); err != nil {
			return fmt.Errorf("failed to delete book: %w", err)
		}
	}
	return nil
}

// Find resolves a query to a book: an exact id, a unique id prefix, then the
// best fuzzy match on titles.
func (l *Library) Find(ctx context.Context, query string) (Summary, error) {
	books, err := l.List(ctx)
	if err != nil {
		return Summary{}, err
	}
	return find(books, query)
}

func find(books []Summary, query string) (Summary, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Summary{}, ErrBookNotFound
	}

	var prefixed []Summary
	for _, b := range books {
		if b.ID == query {
			return b, nil
		}
		if strings.HasPrefix(b.ID, query) {
			prefixed = append(prefixed, b)
		}
	}
	switch len(prefixed) {
	case 0:
	case 1:
		return prefixed[0], nil
	default:
		return Summary{}, fmt.Errorf("%w: %q", ErrAmbiguous, query)
	}

	for _, b := range books {
		if strings.EqualFold(b.Title, query) {
			return b, nil
		}
	}

	titles := make([]string, len(books))
	for i, b := range books {
		titles[i] = b.Title
	}
	matches := fuzzy.Find(query, titles)
	switch {
	case len(matches) == 0:
		return Summary{}, fmt.Errorf("%w: %q", ErrBookNotFound, query)
	case len(matches) > 1 && matches[0].Score == matches[1].Score:
		return Summary{}, fmt.Errorf("%w: %q", ErrAmbiguous, query)
	}
	return books[matches[0].Index], nil
}

// Progress returns the listening position of a book. A book that was never
// played has zero progress.
func (l *Library) Progress(ctx context.Context, id string) (Progress, error) {
	var p Progress
	err := l.getJSON(ctx, key(id, progressFile), &p)
	switch {
	case errors.Is(err, ErrBookNotFound):
		return Progress{Current: 1, Chapters: map[int]ChapterProgress{}}, nil
	case err != nil:
		return Progress{}, err
	}
	if p.Chapters == nil {
		p.Chapters = map[int]ChapterProgress{}
	}
	if p.Current < 1 {
		p.Current = 1
	}
	return p, nil
}

// SetProgress stores the listening position of a book.
func (l *Library) SetProgress(ctx context.Context, id string, p Progress) error {
	p.UpdatedAt = l.now().UTC()
	return l.putJSON(ctx, key(id, progressFile), p)
}

func (l *Library) putJSON(ctx context.Context, k string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path.Base(k), err)
	}
	if err := l.store.Put(ctx, k, bytes.NewReader(b)); err != nil {
		return fmt.Errorf("failed to store %s: %w", path.Base(k), err)
	}
	return nil
}

func (l *Library) getJSON(ctx context.Context, k string, v any) error {
	b, err := l.read(ctx, k)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return nil
}

// read loads an object, mapping missing objects to ErrBookNotFound.
func (l *Library) read(ctx context.Context, k string) ([]byte, error) {
	rc, err := l.store.Get(ctx, k)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrBookNotFound, path.Base(path.Dir(k)))
		}
		return nil, err
	}
	defer rc.Close() //nolint:errcheck

	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", k, err)
	}
	return b, nil
}
