package library

import "errors"

var (
	// ErrBookNotFound is returned when no book matches an id or query.
	ErrBookNotFound = errors.New("book not found")
	// ErrAmbiguous is returned when a query matches several books equally.
	ErrAmbiguous = errors.New("query matches more than one book")
	// ErrChapterNotFound is returned for ordinals outside a book.
	ErrChapterNotFound = errors.New("chapter not found")
	// ErrCorrupt is returned when a stored object cannot be decoded.
	ErrCorrupt = errors.New("stored book is corrupt")
)
