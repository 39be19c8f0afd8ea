// Package segment turns plain text into speech chunks with pause hints.
package segment

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dgnsrekt/recite/tts"
	"github.com/dgnsrekt/recite/tts/sentence"
)

// Option configures a Segmenter.
type Option func(*Segmenter)

// WithMaxChunkLength splits chunks longer than n runes at word boundaries.
// Zero disables the limit.
func WithMaxChunkLength(n int) Option {
	return func(s *Segmenter) {
		if n > 0 {
			s.maxLen = n
		}
	}
}

// Segmenter splits text into speech chunks.
type Segmenter struct {
	tokenizer tts.Tokenizer
	maxLen    int
}

// New creates a segmenter that finds sentences with tokenizer.
func New(tokenizer tts.Tokenizer, opts ...Option) *Segmenter {
	s := &Segmenter{tokenizer: tokenizer}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Text segments text with the English tokenizer.
func Text(text string) []tts.SpeechChunk {
	return New(sentence.Default()).Segment(text)
}

// Segment returns the speech chunks of text in source order.
// Invalid UTF-8 is replaced with U+FFFD first.
func (s *Segmenter) Segment(text string) []tts.SpeechChunk {
	text = strings.ToValidUTF8(text, "\uFFFD")
	spans := s.tokenizer.Sentences(text)

	var chunks []tts.SpeechChunk
	for i, span := range spans {
		gapEnd := len(text)
		if i+1 < len(spans) {
			gapEnd = spans[i+1].Start
		}

		final := tts.ChunkSentence
		if isParagraphBreak(text[span.End:gapEnd], gapEnd == len(text)) {
			final = tts.ChunkParagraph
		}

		chunks = append(chunks, splitSentence(text[span.Start:span.End], final)...)
	}

	if s.maxLen > 0 {
		chunks = limitLength(chunks, s.maxLen)
	}

	return chunks
}

// isParagraphBreak reports whether the whitespace following a sentence
// separates paragraphs.
func isParagraphBreak(gap string, atEnd bool) bool {
	if atEnd && strings.TrimSpace(gap) == "" {
		return true
	}
	if strings.Count(gap, "\n") >= 2 {
		return true
	}

	n := 0
	for _, r := range gap {
		if !unicode.IsSpace(r) {
			return false
		}
		n++
		if n == 3 {
			return true
		}
	}
	return false
}

// splitSentence breaks one sentence at delimiters outside parentheses and
// quotes. The last piece takes final as its type.
func splitSentence(text string, final tts.ChunkType) []tts.SpeechChunk {
	runes := []rune(text)

	var chunks []tts.SpeechChunk
	depth, quotes := 0, 0
	pieceStart := 0

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch r {
		case '(', '[':
			depth++
			continue
		case ')', ']':
			if depth > 0 {
				depth--
			}
			continue
		case '"', '“', '”', '«', '»':
			quotes++
			continue
		}

		if depth > 0 || quotes%2 != 0 {
			continue
		}

		typ, width, ok := delimiterAt(runes, i)
		if !ok {
			continue
		}

		if piece := strings.TrimSpace(string(runes[pieceStart:i])); piece != "" {
			chunks = append(chunks, tts.NewChunk(piece, typ))
		}
		pieceStart = i + width
		i += width - 1
	}

	if piece := strings.TrimSpace(string(runes[pieceStart:])); piece != "" {
		chunks = append(chunks, tts.NewChunk(piece, final))
	} else if len(chunks) > 0 {
		last := &chunks[len(chunks)-1]
		*last = tts.NewChunk(last.Text, final)
	}

	return chunks
}

// delimiterAt classifies the rune at i. It returns the chunk type of the
// piece it ends and the number of runes the delimiter spans.
func delimiterAt(runes []rune, i int) (tts.ChunkType, int, bool) {
	r := runes[i]
	switch r {
	case ',':
		if betweenDigits(runes, i) {
			return 0, 0, false
		}
		return tts.ChunkComma, 1, true
	case ';':
		return tts.ChunkColonSemicolon, 1, true
	case ':':
		if betweenDigits(runes, i) {
			return 0, 0, false
		}
		return tts.ChunkColonSemicolon, 1, true
	case '–', '—':
		return tts.ChunkHyphenDash, 1, true
	case '-':
		if i+1 < len(runes) && runes[i+1] == '-' {
			width := 2
			for i+width < len(runes) && runes[i+width] == '-' {
				width++
			}
			return tts.ChunkHyphenDash, width, true
		}
		before := i == 0 || unicode.IsSpace(runes[i-1])
		after := i+1 == len(runes) || unicode.IsSpace(runes[i+1])
		if before || after {
			return tts.ChunkHyphenDash, 1, true
		}
	}
	return 0, 0, false
}

func betweenDigits(runes []rune, i int) bool {
	return i > 0 && i+1 < len(runes) && unicode.IsDigit(runes[i-1]) && unicode.IsDigit(runes[i+1])
}

// limitLength splits chunks longer than max runes. Leading pieces become
// regular chunks and the last piece keeps the original type.
func limitLength(chunks []tts.SpeechChunk, max int) []tts.SpeechChunk {
	out := make([]tts.SpeechChunk, 0, len(chunks))
	for _, c := range chunks {
		if utf8.RuneCountInString(c.Text) <= max {
			out = append(out, c)
			continue
		}

		pieces := wrapWords(c.Text, max)
		for i, p := range pieces {
			if i == len(pieces)-1 {
				out = append(out, tts.NewChunk(p, c.Type))
			} else {
				out = append(out, tts.NewChunk(p, tts.ChunkRegular))
			}
		}
	}
	return out
}

// wrapWords groups the words of text into lines of at most max runes. Words
// longer than max are cut.
func wrapWords(text string, max int) []string {
	var lines []string
	var line strings.Builder
	lineLen := 0

	flush := func() {
		if lineLen > 0 {
			lines = append(lines, line.String())
			line.Reset()
			lineLen = 0
		}
	}

	for _, word := range strings.Fields(text) {
		w := []rune(word)
		for len(w) > max {
			flush()
			lines = append(lines, string(w[:max]))
			w = w[max:]
		}
		if len(w) == 0 {
			continue
		}

		if lineLen > 0 && lineLen+1+len(w) > max {
			flush()
		}
		if lineLen > 0 {
			line.WriteByte(' ')
			lineLen++
		}
		line.WriteString(string(w))
		lineLen += len(w)
	}
	flush()

	return lines
}
