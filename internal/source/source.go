// Package source reads documents to import from files, stdin, URLs and the
// clipboard.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/atotto/clipboard"
	"golang.org/x/text/unicode/norm"
)

var (
	// ErrEmptyDocument is returned when a source contains no readable text.
	ErrEmptyDocument = errors.New("document is empty")
	// ErrUnsupportedScheme is returned for URLs other than http and https.
	ErrUnsupportedScheme = errors.New("unsupported protocol")
	// ErrNotText is returned for binary input.
	ErrNotText = errors.New("document is not valid UTF-8 text")
)

// Format is the markup of a document.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
)

// Document is normalized plain text ready for chapter detection.
type Document struct {
	Title  string
	Text   string
	Origin string // Absolute path, URL, "stdin" or "clipboard"
	Format Format
}

// maxSize bounds what is read from any source.
const maxSize = 64 << 20

// Load reads a document from a path, "-" for stdin, or an http(s) URL.
func Load(ctx context.Context, arg string) (Document, error) {
	switch {
	case arg == "-":
		return read(os.Stdin, "stdin", "", FormatText)
	case strings.Contains(arg, "://"):
		return fetch(ctx, arg)
	default:
		return LoadFile(arg)
	}
}

// LoadFile reads a document from the local filesystem.
func LoadFile(path string) (Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return Document{}, fmt.Errorf("unable to open file: %w", err)
	}
	defer f.Close() //nolint:errcheck

	abs, err := filepath.Abs(path)
	if err != nil {
		return Document{}, fmt.Errorf("unable to get absolute path: %w", err)
	}
	return read(f, abs, titleFromPath(abs), formatOf(abs))
}

// FromClipboard reads the system clipboard.
func FromClipboard() (Document, error) {
	s, err := clipboard.ReadAll()
	if err != nil {
		return Document{}, fmt.Errorf("unable to read clipboard: %w", err)
	}
	return parse([]byte(s), "clipboard", "", FormatText)
}

func fetch(ctx context.Context, raw string) (Document, error) {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return Document{}, fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Document{}, fmt.Errorf("%w: %s", ErrUnsupportedScheme, u.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Document{}, fmt.Errorf("unable to create request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return Document{}, fmt.Errorf("unable to get url: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return Document{}, fmt.Errorf("HTTP status %d", resp.StatusCode)
	}

	format := formatOf(u.Path)
	if strings.Contains(resp.Header.Get("Content-Type"), "markdown") {
		format = FormatMarkdown
	}
	return read(resp.Body, u.String(), titleFromPath(u.Path), format)
}

func read(r io.Reader, origin, title string, format Format) (Document, error) {
	b, err := io.ReadAll(io.LimitReader(r, maxSize))
	if err != nil {
		return Document{}, fmt.Errorf("unable to read from reader: %w", err)
	}
	return parse(b, origin, title, format)
}

func parse(b []byte, origin, title string, format Format) (Document, error) {
	if !utf8.Valid(b) {
		return Document{}, ErrNotText
	}

	text := string(b)
	if format == FormatMarkdown {
		text = PlainText(RemoveFrontmatter(b))
	}
	text = Normalize(text)
	if strings.TrimSpace(text) == "" {
		return Document{}, ErrEmptyDocument
	}

	return Document{
		Title:  title,
		Text:   text,
		Origin: origin,
		Format: format,
	}, nil
}

// Normalize folds line endings to LF, drops a byte order mark and composes
// the text to NFC.
func Normalize(text string) string {
	text = strings.TrimPrefix(text, "\ufeff")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return norm.NFC.String(text)
}

func formatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown", ".mdown", ".mkd":
		return FormatMarkdown
	default:
		return FormatText
	}
}

// titleFromPath turns "/books/the_time-machine.txt" into "the time machine".
func titleFromPath(path string) string {
	base := filepath.Base(path)
	if base == "." || base == "/" {
		return ""
	}
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return strings.Join(strings.FieldsFunc(base, func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	}), " ")
}
