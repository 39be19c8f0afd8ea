package ui

import (
	"strings"

	"github.com/muesli/reflow/wordwrap"
)

// locate finds chunk in body, searching forward from hint first so that
// repeated phrases resolve to the occurrence being spoken. It returns the
// byte range of the chunk or -1, -1.
func locate(body, chunk string, hint int) (int, int) {
	chunk = strings.TrimSpace(chunk)
	if chunk == "" {
		return -1, -1
	}
	if hint < 0 || hint > len(body) {
		hint = 0
	}
	if i := strings.Index(body[hint:], chunk); i >= 0 {
		return hint + i, hint + i + len(chunk)
	}
	if i := strings.Index(body, chunk); i >= 0 {
		return i, i + len(chunk)
	}
	return -1, -1
}

// highlight wraps body at width and renders the range [start, end) with the
// highlight style. It returns the text and the line the range starts on.
func highlight(body string, start, end int, width uint) (string, int) {
	wrap := func(s string) string {
		if width == 0 {
			return s
		}
		return wordwrap.String(s, int(width))
	}

	if start < 0 || end > len(body) || start >= end {
		return wrap(body), 0
	}

	// Greedy wrapping gives the prefix the same lines as the full text, so
	// counting the line breaks up to the first highlighted word finds the
	// highlighted line.
	first := body[start:end]
	if i := strings.IndexAny(first, " \t\n"); i > 0 {
		first = first[:i]
	}
	line := strings.Count(wrap(body[:start]+first), "\n")

	var b strings.Builder
	b.WriteString(body[:start])
	for i, l := range strings.Split(body[start:end], "\n") {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(highlightStyle(l))
	}
	b.WriteString(body[end:])
	return wrap(b.String()), line
}
