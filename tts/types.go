package tts

import "fmt"

// ChunkType classifies the pause that follows a chunk.
type ChunkType int

const (
	// ChunkRegular is a boundary without punctuation.
	ChunkRegular ChunkType = iota
	// ChunkComma is followed by a comma.
	ChunkComma
	// ChunkColonSemicolon is followed by a colon or semicolon.
	ChunkColonSemicolon
	// ChunkHyphenDash is followed by a hyphen, en-dash or em-dash.
	ChunkHyphenDash
	// ChunkSentence ends a sentence.
	ChunkSentence
	// ChunkParagraph ends a paragraph.
	ChunkParagraph
)

// Pause durations in seconds.
const (
	PauseRegular        = 0.0
	PauseComma          = 0.15
	PauseColonSemicolon = 0.25
	PauseHyphenDash     = 0.20
	PauseSentence       = 0.6
	PauseParagraph      = 1.0
)

// Rate multipliers applied by the playback engine.
const (
	RateMultiplierComma    = 0.9
	RateMultiplierSentence = 0.95
)

// String returns the string representation of the chunk type.
func (t ChunkType) String() string {
	switch t {
	case ChunkRegular:
		return "regular"
	case ChunkComma:
		return "comma"
	case ChunkColonSemicolon:
		return "colon_semicolon"
	case ChunkHyphenDash:
		return "hyphen_dash"
	case ChunkSentence:
		return "sentence"
	case ChunkParagraph:
		return "paragraph"
	default:
		return "unknown"
	}
}

// PauseDuration returns the pause in seconds that follows a chunk of this type.
func (t ChunkType) PauseDuration() float64 {
	switch t {
	case ChunkComma:
		return PauseComma
	case ChunkColonSemicolon:
		return PauseColonSemicolon
	case ChunkHyphenDash:
		return PauseHyphenDash
	case ChunkSentence:
		return PauseSentence
	case ChunkParagraph:
		return PauseParagraph
	default:
		return PauseRegular
	}
}

// RateMultiplier returns the speaking-rate multiplier for the chunk type.
func (t ChunkType) RateMultiplier() float64 {
	switch t {
	case ChunkComma:
		return RateMultiplierComma
	case ChunkSentence:
		return RateMultiplierSentence
	default:
		return 1.0
	}
}

// SpeechChunk is the smallest unit dispatched to a renderer.
type SpeechChunk struct {
	Text                 string    `json:"text" yaml:"text"`
	PauseDurationSeconds float64   `json:"pause" yaml:"pause"`
	Type                 ChunkType `json:"type" yaml:"type"`
}

// NewChunk creates a chunk with the pause of its type.
func NewChunk(text string, t ChunkType) SpeechChunk {
	return SpeechChunk{
		Text:                 text,
		PauseDurationSeconds: t.PauseDuration(),
		Type:                 t,
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t ChunkType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *ChunkType) UnmarshalText(b []byte) error {
	parsed, ok := ParseChunkType(string(b))
	if !ok {
		return fmt.Errorf("unknown chunk type %q", b)
	}
	*t = parsed
	return nil
}

// ParseChunkType returns the chunk type with the given name.
func ParseChunkType(name string) (ChunkType, bool) {
	for t := ChunkRegular; t <= ChunkParagraph; t++ {
		if t.String() == name {
			return t, true
		}
	}
	return ChunkRegular, false
}
