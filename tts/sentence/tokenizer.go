// Package sentence splits plain text into sentences.
package sentence

import (
	"strings"
	"unicode"

	"golang.org/x/text/language"

	"github.com/dgnsrekt/recite/tts"
)

var supported = []language.Tag{
	language.English,
	language.German,
	language.French,
	language.Spanish,
}

var matcher = language.NewMatcher(supported)

// Abbreviations that do not end a sentence, without their final period.
var abbreviationsByLanguage = map[string][]string{
	"en": {
		"mr", "mrs", "ms", "dr", "prof", "sr", "jr", "st", "rev", "gen", "col", "capt", "lt", "sgt",
		"ph.d", "m.d", "b.a", "m.a", "b.s",
		"llc", "inc", "ltd", "co", "corp",
		"i.e", "e.g", "etc", "vs", "cf", "al", "approx", "dept", "est", "fig", "no", "vol", "pp",
		"jan", "feb", "mar", "apr", "jun", "jul", "aug", "sep", "sept", "oct", "nov", "dec",
		"mon", "tue", "wed", "thu", "fri", "sat", "sun",
		"rd", "ave", "blvd", "ln", "ct", "mt",
		"u.s", "u.k", "u.n", "e.u", "n.y", "l.a",
		"ft", "lbs", "oz", "kg", "km", "cm", "mm", "mi", "yd",
		"hr", "hrs", "min", "mins", "sec", "secs",
	},
	"de": {
		"hr", "fr", "dr", "prof", "nr", "str", "ca", "vgl", "bzw", "usw", "etc", "evtl", "ggf",
		"z.b", "d.h", "u.a", "u.s.w", "s.o", "s.u", "z.t", "o.ä",
		"jan", "feb", "jun", "jul", "aug", "sep", "okt", "nov", "dez",
		"mo", "di", "mi", "do", "fr", "sa", "so", "bd", "abs", "kap",
	},
	"fr": {
		"m", "mm", "mme", "mmes", "mlle", "mlles", "dr", "pr", "me", "st", "ste",
		"p.ex", "etc", "cf", "env", "av", "bd", "vol", "chap", "éd", "p",
		"janv", "févr", "avr", "juil", "sept", "oct", "nov", "déc",
	},
	"es": {
		"sr", "sra", "srta", "dr", "dra", "ud", "uds", "d", "dña", "lic", "ing", "prof",
		"etc", "p.ej", "ej", "pág", "págs", "núm", "av", "avda", "cap", "vol", "aprox",
		"ene", "feb", "abr", "jun", "jul", "ago", "sept", "oct", "nov", "dic",
	},
}

// Tokenizer finds sentence boundaries in plain text.
type Tokenizer struct {
	lang          language.Tag
	base          string
	abbreviations map[string]bool
}

// New creates a tokenizer for the closest supported language.
func New(lang language.Tag) *Tokenizer {
	_, idx, _ := matcher.Match(lang)
	tag := supported[idx]
	base, _ := tag.Base()

	return &Tokenizer{
		lang:          tag,
		base:          base.String(),
		abbreviations: makeAbbreviationMap(abbreviationsByLanguage[base.String()]),
	}
}

// Default returns the English tokenizer.
func Default() *Tokenizer {
	return New(language.English)
}

// Language returns the language the tokenizer matched.
func (t *Tokenizer) Language() language.Tag {
	return t.lang
}

// Sentences returns the byte spans of the sentences in text. Text between
// spans is whitespace.
func (t *Tokenizer) Sentences(text string) []tts.Span {
	// Byte offset of every rune plus the end of text. Ranging over the
	// string keeps offsets exact when an invalid byte decodes to U+FFFD.
	runes := make([]rune, 0, len(text))
	offsets := make([]int, 0, len(text)+1)
	for off, r := range text {
		runes = append(runes, r)
		offsets = append(offsets, off)
	}
	n := len(runes)
	offsets = append(offsets, len(text))

	var spans []tts.Span
	emit := func(start, end int) {
		for end > start && unicode.IsSpace(runes[end-1]) {
			end--
		}
		if end > start {
			spans = append(spans, tts.Span{Start: offsets[start], End: offsets[end]})
		}
	}

	start := skipSpace(runes, 0)
	for i := start; i < n; i++ {
		r := runes[i]

		if r == '\n' && blankLineAt(runes, i) {
			emit(start, i)
			start = skipSpace(runes, i)
			i = start - 1
			continue
		}

		if !isTerminal(r) {
			continue
		}

		termEnd := i + 1
		for termEnd < n && isTerminal(runes[termEnd]) {
			termEnd++
		}
		punctEnd := termEnd
		for punctEnd < n && isCloser(runes[punctEnd]) {
			punctEnd++
		}

		if t.isBoundary(runes, start, i, termEnd, punctEnd) {
			emit(start, punctEnd)
			start = skipSpace(runes, punctEnd)
			i = start - 1
			continue
		}
		i = punctEnd - 1
	}

	if start < n {
		emit(start, n)
	}

	return spans
}

// isBoundary reports whether the terminal run runes[pos:termEnd], followed by
// closers up to punctEnd, ends the sentence that began at start.
func (t *Tokenizer) isBoundary(runes []rune, start, pos, termEnd, punctEnd int) bool {
	n := len(runes)
	if punctEnd >= n {
		return true
	}
	if !unicode.IsSpace(runes[punctEnd]) {
		return false
	}

	next := skipSpace(runes, punctEnd)
	if next >= n {
		return true
	}

	run := string(runes[pos:termEnd])
	if strings.ContainsAny(run, "!?") {
		return true
	}

	// Ellipses trail off inside a sentence.
	if termEnd-pos > 1 || runes[pos] == '…' {
		return false
	}

	// A single period.
	if punctEnd == termEnd {
		word := wordBefore(runes, start, pos)
		lower := strings.ToLower(word)
		if t.abbreviations[lower] {
			return false
		}
		if strings.Contains(word, ".") && strings.IndexFunc(word, unicode.IsLetter) >= 0 {
			return false
		}
		if r := []rune(word); len(r) == 1 && unicode.IsUpper(r[0]) && !(t.base == "en" && word == "I") {
			return false
		}
	}

	return startsSentence(runes[next])
}

// wordBefore returns the word ending right before pos, without leading
// opening punctuation.
func wordBefore(runes []rune, start, pos int) string {
	i := pos
	for i > start && !unicode.IsSpace(runes[i-1]) {
		i--
	}
	for i < pos && isOpener(runes[i]) {
		i++
	}
	return string(runes[i:pos])
}

// blankLineAt reports whether the newline at i is followed by another
// newline with only horizontal whitespace between them.
func blankLineAt(runes []rune, i int) bool {
	for j := i + 1; j < len(runes); j++ {
		switch {
		case runes[j] == '\n':
			return true
		case unicode.IsSpace(runes[j]):
		default:
			return false
		}
	}
	return false
}

func skipSpace(runes []rune, i int) int {
	for i < len(runes) && unicode.IsSpace(runes[i]) {
		i++
	}
	return i
}

func startsSentence(r rune) bool {
	return unicode.IsUpper(r) || unicode.IsDigit(r) || isOpener(r)
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?' || r == '…'
}

func isCloser(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '”', '’', '»':
		return true
	}
	return false
}

func isOpener(r rune) bool {
	switch r {
	case '"', '\'', '(', '[', '“', '‘', '«', '¿', '¡':
		return true
	}
	return false
}

// makeAbbreviationMap creates a lookup of abbreviations.
func makeAbbreviationMap(abbrevs []string) map[string]bool {
	m := make(map[string]bool, len(abbrevs))
	for _, abbrev := range abbrevs {
		m[abbrev] = true
	}
	return m
}
