package library

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
	"unicode/utf8"

	"github.com/dgnsrekt/recite/chapter"
)

// idLength is the number of hex digits of the content hash used as id.
const idLength = 12

// Book is an imported document split into chapters.
type Book struct {
	ID         string            `json:"id" yaml:"id"`
	Title      string            `json:"title" yaml:"title"`
	Source     string            `json:"source" yaml:"source"`
	Language   string            `json:"language" yaml:"language"`
	ImportedAt time.Time         `json:"imported_at" yaml:"imported_at"`
	Characters int               `json:"characters" yaml:"characters"`
	Chapters   []chapter.Chapter `json:"chapters" yaml:"chapters"`
	Skipped    []Skipped         `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

// Skipped is a chapter candidate left out of the book as front or back
// matter.
type Skipped struct {
	Title      string `json:"title" yaml:"title"`
	Reason     string `json:"reason" yaml:"reason"`
	Characters int    `json:"characters" yaml:"characters"`
}

// SkippedFrom lists the excluded candidates.
func SkippedFrom(candidates []chapter.Candidate) []Skipped {
	var out []Skipped
	for _, c := range candidates {
		if !c.Excluded {
			continue
		}
		out = append(out, Skipped{
			Title:      c.Title,
			Reason:     c.Reason,
			Characters: utf8.RuneCountInString(c.Body),
		})
	}
	return out
}

// Summary is the listing entry of a book.
type Summary struct {
	ID         string    `json:"id" yaml:"id"`
	Title      string    `json:"title" yaml:"title"`
	Source     string    `json:"source" yaml:"source"`
	Language   string    `json:"language" yaml:"language"`
	ImportedAt time.Time `json:"imported_at" yaml:"imported_at"`
	Characters int       `json:"characters" yaml:"characters"`
	Chapters   int       `json:"chapters" yaml:"chapters"`
	Size       int64     `json:"size" yaml:"size"` // Compressed bytes
}

// NewBook creates a book whose id is derived from the text, so importing
// the same text twice yields the same book.
func NewBook(title, source, language, text string, chapters []chapter.Chapter) Book {
	if title == "" {
		title = "Untitled"
	}
	return Book{
		ID:         ContentID(text),
		Title:      title,
		Source:     source,
		Language:   language,
		ImportedAt: time.Now().UTC().Truncate(time.Second),
		Characters: utf8.RuneCountInString(text),
		Chapters:   chapters,
	}
}

// ContentID returns the id of a book with the given text.
func ContentID(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])[:idLength]
}

// Chapter returns the chapter with the given 1-based ordinal.
func (b Book) Chapter(ordinal int) (chapter.Chapter, error) {
	if ordinal < 1 || ordinal > len(b.Chapters) {
		return chapter.Chapter{}, ErrChapterNotFound
	}
	return b.Chapters[ordinal-1], nil
}

func (b Book) summary(size int64) Summary {
	return Summary{
		ID:         b.ID,
		Title:      b.Title,
		Source:     b.Source,
		Language:   b.Language,
		ImportedAt: b.ImportedAt,
		Characters: b.Characters,
		Chapters:   len(b.Chapters),
		Size:       size,
	}
}

// ChapterProgress is the listening position within one chapter.
type ChapterProgress struct {
	Chunk    int     `json:"chunk"`    // Index of the next chunk to speak
	Fraction float64 `json:"fraction"` // 0..1
	Finished bool    `json:"finished"`
}

// Progress is the listening position within a book.
type Progress struct {
	Current   int                     `json:"current"` // Ordinal of the chapter being read
	Chapters  map[int]ChapterProgress `json:"chapters"`
	UpdatedAt time.Time               `json:"updated_at"`
}

// Chapter returns the progress of a chapter.
func (p Progress) Chapter(ordinal int) ChapterProgress {
	return p.Chapters[ordinal]
}

// Set records the position within a chapter and makes it current.
func (p *Progress) Set(ordinal int, cp ChapterProgress) {
	if p.Chapters == nil {
		p.Chapters = make(map[int]ChapterProgress)
	}
	p.Current = ordinal
	p.Chapters[ordinal] = cp
}

// Fraction returns the share of the book listened to, weighting chapters
// by their length.
func (p Progress) Fraction(b Book) float64 {
	total, done := 0, 0.0
	for _, c := range b.Chapters {
		n := utf8.RuneCountInString(c.Body)
		total += n
		cp := p.Chapters[c.Ordinal]
		if cp.Finished {
			done += float64(n)
		} else {
			done += float64(n) * cp.Fraction
		}
	}
	if total == 0 {
		return 0
	}
	return done / float64(total)
}
