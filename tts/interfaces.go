package tts

// Renderer vocalizes one utterance at a time and reports what happened to it
// asynchronously on Events.
type Renderer interface {
	// Speak starts rendering the utterance. It must not block until the
	// utterance has finished; completion is reported on Events.
	Speak(u Utterance) error

	// Pause suspends the active utterance.
	Pause() error

	// Resume continues a paused utterance.
	Resume() error

	// Stop cancels the active utterance immediately.
	Stop() error

	// Adjust changes rate and pitch of the active utterance. Renderers that
	// report LiveAdjust=false may return ErrNotSupported.
	Adjust(rate, pitch float64) error

	// IsSpeaking reports whether an utterance is in progress (paused counts).
	IsSpeaking() bool

	// Voices enumerates the voices the renderer can use.
	Voices() []Voice

	// Capabilities describes optional renderer features.
	Capabilities() Capabilities

	// Events delivers Started, Finished and Cancelled notifications.
	Events() <-chan Event

	// Close releases renderer resources.
	Close() error
}

// Tokenizer splits text into sentences.
type Tokenizer interface {
	// Sentences returns ordered, non-overlapping sentence spans. Text between
	// spans carries no speech.
	Sentences(text string) []Span
}

// Segmenter turns prose into speakable chunks.
type Segmenter interface {
	Segment(text string) []SpeechChunk
}

// Span is a byte range [Start, End) of a sentence within its source text.
type Span struct {
	Start int
	End   int
}

// Utterance is a single request to the renderer.
type Utterance struct {
	ID      string  // Chunk identity, echoed back in events
	Text    string  // Text to speak
	VoiceID string  // Voice identifier, empty for the renderer default
	Rate    float64 // Speech rate multiplier (1.0 = normal)
	Pitch   float64 // Pitch multiplier (1.0 = normal)
}

// Voice describes a renderer voice.
type Voice struct {
	ID       string // Voice identifier
	Name     string // Human-readable name
	Language string // Language code (e.g., "en-US")
}

// Capabilities describes what a renderer can do.
type Capabilities struct {
	LiveAdjust    bool // Rate/pitch changes apply to the active utterance
	MaxTextLength int  // Maximum utterance length in characters, 0 for unlimited
}
