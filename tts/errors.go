package tts

import "errors"

// Common errors for the TTS system.
var (
	// Renderer errors
	ErrRendererClosed = errors.New("speech renderer is closed")
	ErrRendererBusy   = errors.New("speech renderer is busy")
	ErrNotSpeaking    = errors.New("no utterance is active")
	ErrNotSupported   = errors.New("operation not supported by renderer")
	ErrVoiceNotFound  = errors.New("requested voice not found")

	// Configuration errors
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrUnknownEngine = errors.New("unknown TTS engine")
)

// RendererError records which renderer action failed.
type RendererError struct {
	Err     error  // The underlying error
	Action  string // Action being performed when the error occurred
	ChunkID string // Chunk involved, if any
}

// Error implements the error interface.
func (e *RendererError) Error() string {
	if e.Err == nil {
		return "renderer " + e.Action + " failed"
	}
	return "renderer " + e.Action + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *RendererError) Unwrap() error {
	return e.Err
}
