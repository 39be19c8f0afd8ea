// Package chapter splits documents into chapters.
package chapter

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
)

// WindowSize is the length, in runes, of fallback chapters.
const WindowSize = 4000

// Chapter is a titled slice of a document.
type Chapter struct {
	Title   string `json:"title" yaml:"title"`
	Body    string `json:"body" yaml:"body"`
	Ordinal int    `json:"ordinal" yaml:"ordinal"`
}

// Candidate is a chapter before exclusion filtering.
type Candidate struct {
	Chapter
	Excluded bool
	Reason   string
}

var (
	markerPattern = regexp.MustCompile(`(?im)^[ \t]*(?:(?:chapter|part|section|book|act|scene|canto|stanza)[ \t]+(\d+|[ivxlcdm]+)|prologue|epilogue)\b`)
	romanPattern  = regexp.MustCompile(`^m{0,4}(?:cm|cd|d?c{0,3})(?:xc|xl|l?x{0,3})(?:ix|iv|v?i{0,3})$`)
)

// Option configures a Detector.
type Option func(*Detector)

// WithLogger sets the detector logger.
func WithLogger(l *log.Logger) Option {
	return func(d *Detector) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithRules replaces the exclusion rules.
func WithRules(rules []Rule) Option {
	return func(d *Detector) {
		d.rules = rules
	}
}

// Detector finds chapter boundaries.
type Detector struct {
	logger *log.Logger
	rules  []Rule
}

// New creates a detector with the default exclusion rules.
func New(opts ...Option) *Detector {
	d := &Detector{
		logger: log.Default().WithPrefix("chapter"),
		rules:  DefaultRules(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Split splits text into chapters with the default detector.
func Split(text string) []Chapter {
	return New().Split(text)
}

// Split returns the chapters of text. Non-empty text always yields at least
// one chapter.
func (d *Detector) Split(text string) []Chapter {
	if text == "" {
		return nil
	}

	candidates := d.Candidates(text)

	var chapters []Chapter
	for _, c := range candidates {
		if c.Excluded {
			d.logger.Debug("excluding candidate", "title", c.Title, "reason", c.Reason)
			continue
		}
		ch := c.Chapter
		ch.Ordinal = len(chapters) + 1
		chapters = append(chapters, ch)
	}

	if len(chapters) == 0 {
		d.logger.Info("every candidate excluded, splitting into windows", "candidates", len(candidates))
		return Windows(text)
	}

	return chapters
}

// Candidates returns every chapter candidate of text with its exclusion
// verdict. Bodies concatenate to text.
func (d *Detector) Candidates(text string) []Candidate {
	if text == "" {
		return nil
	}

	starts := markerStarts(text)
	if len(starts) == 0 {
		d.logger.Debug("no chapter markers found", "length", len(text))
		var out []Candidate
		for _, w := range Windows(text) {
			out = append(out, Candidate{Chapter: w})
		}
		return out
	}

	var chapters []Chapter
	if preamble := text[:starts[0]]; strings.TrimSpace(preamble) != "" {
		chapters = append(chapters, Chapter{Title: firstLine(preamble), Body: preamble})
	} else {
		starts[0] = 0
	}

	for i, start := range starts {
		end := len(text)
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		body := text[start:end]
		chapters = append(chapters, Chapter{Title: firstLine(body), Body: body})
	}

	out := make([]Candidate, len(chapters))
	for i, ch := range chapters {
		ch.Ordinal = i + 1
		excluded, reason := d.Classify(ch)
		out[i] = Candidate{Chapter: ch, Excluded: excluded, Reason: reason}
	}
	return out
}

// Classify reports whether c is front or back matter and which rule said so.
func (d *Detector) Classify(c Chapter) (bool, string) {
	for _, r := range d.rules {
		if r.Match(c) {
			return true, r.Name
		}
	}
	return false, ""
}

// Windows cuts text into WindowSize-rune chapters.
func Windows(text string) []Chapter {
	var chapters []Chapter
	start, runes := 0, 0
	for i := range text {
		if runes == WindowSize {
			chapters = append(chapters, window(text[start:i], len(chapters)+1))
			start, runes = i, 0
		}
		runes++
	}
	if start < len(text) {
		chapters = append(chapters, window(text[start:], len(chapters)+1))
	}
	return chapters
}

func window(body string, ordinal int) Chapter {
	return Chapter{Title: fmt.Sprintf("Chapter %d", ordinal), Body: body, Ordinal: ordinal}
}

// markerStarts returns the sorted byte offsets of the lines holding chapter
// markers.
func markerStarts(text string) []int {
	var starts []int
	for _, m := range markerPattern.FindAllStringSubmatchIndex(text, -1) {
		if m[2] >= 0 {
			numeral := strings.ToLower(text[m[2]:m[3]])
			if numeral[0] < '0' || numeral[0] > '9' {
				if !romanPattern.MatchString(numeral) {
					continue
				}
			}
		}
		starts = append(starts, lineStart(text, m[0]))
	}
	sort.Ints(starts)
	return starts
}

// lineStart returns the offset of the line containing pos.
func lineStart(text string, pos int) int {
	return strings.LastIndexByte(text[:pos], '\n') + 1
}

// firstLine returns the first non-blank line of s, trimmed.
func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
