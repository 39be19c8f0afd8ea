// Package mock provides a simulated speech renderer.
package mock

import (
	"sync"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/recite/tts"
)

// utterance is the utterance being simulated.
type utterance struct {
	id        string
	rate      float64
	remaining time.Duration
	started   time.Time
	timer     *time.Timer
}

// Renderer pretends to speak by waiting as long as speech would take.
type Renderer struct {
	cfg    tts.MockConfig
	logger *log.Logger

	mu      sync.Mutex
	current *utterance
	paused  bool
	gen     int
	closed  bool

	// Control for testing
	shouldFail   bool
	failureError error
	callCount    int

	events chan tts.Event
	done   chan struct{}
}

// New creates a simulated renderer.
func New(cfg tts.MockConfig) *Renderer {
	if cfg.CharsPerSecond <= 0 {
		cfg.CharsPerSecond = tts.CharactersPerSecond
	}
	if cfg.Speedup <= 0 {
		cfg.Speedup = 1
	}
	return &Renderer{
		cfg:    cfg,
		logger: log.Default().WithPrefix("mock"),
		events: make(chan tts.Event, 64),
		done:   make(chan struct{}),
	}
}

// Speak starts simulating u.
func (r *Renderer) Speak(u tts.Utterance) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.callCount++
	if r.closed {
		return tts.ErrRendererClosed
	}
	if r.shouldFail {
		return r.failureError
	}
	if r.current != nil {
		return tts.ErrRendererBusy
	}

	rate := u.Rate
	if rate <= 0 {
		rate = 1
	}

	r.paused = false
	r.current = &utterance{
		id:        u.ID,
		rate:      rate,
		remaining: r.Duration(u.Text, rate),
	}
	r.logger.Debug("speaking", "id", u.ID, "duration", r.current.remaining, "voice", u.VoiceID)
	r.post(tts.Started(u.ID))
	r.startTimerLocked()

	return nil
}

// Duration returns how long text takes at rate.
func (r *Renderer) Duration(text string, rate float64) time.Duration {
	seconds := float64(utf8.RuneCountInString(text)) / r.cfg.CharsPerSecond / rate / r.cfg.Speedup
	return time.Duration(seconds * float64(time.Second))
}

// Pause holds the current utterance.
func (r *Renderer) Pause() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current == nil {
		return tts.ErrNotSpeaking
	}
	if r.paused {
		return nil
	}
	r.current.timer.Stop()
	r.current.remaining -= time.Since(r.current.started)
	r.paused = true
	return nil
}

// Resume continues a held utterance.
func (r *Renderer) Resume() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current == nil {
		return tts.ErrNotSpeaking
	}
	if !r.paused {
		return nil
	}
	r.paused = false
	r.startTimerLocked()
	return nil
}

// Stop cancels the current utterance.
func (r *Renderer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stopLocked()
	return nil
}

// Adjust rescales the time left on the current utterance.
func (r *Renderer) Adjust(rate, pitch float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current == nil {
		return tts.ErrNotSpeaking
	}
	if rate <= 0 {
		return nil
	}

	c := r.current
	if !r.paused {
		c.timer.Stop()
		c.remaining -= time.Since(c.started)
	}
	c.remaining = time.Duration(float64(c.remaining) * c.rate / rate)
	c.rate = rate
	if !r.paused {
		r.startTimerLocked()
	}
	return nil
}

// IsSpeaking reports whether an utterance is active, paused or not.
func (r *Renderer) IsSpeaking() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current != nil
}

// Voices returns the simulated voices.
func (r *Renderer) Voices() []tts.Voice {
	return []tts.Voice{
		{ID: "mock-1", Name: "Mock Voice 1", Language: "en-US"},
		{ID: "mock-2", Name: "Mock Voice 2", Language: "en-GB"},
		{ID: "mock-3", Name: "Mock Voice 3", Language: "de-DE"},
	}
}

// Capabilities returns the renderer capabilities.
func (r *Renderer) Capabilities() tts.Capabilities {
	return tts.Capabilities{LiveAdjust: true}
}

// Events returns the renderer notifications. The channel is never closed.
func (r *Renderer) Events() <-chan tts.Event {
	return r.events
}

// Close cancels any utterance and rejects further work.
func (r *Renderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.stopLocked()
	r.closed = true
	close(r.done)
	return nil
}

// Test control methods

// SetFailure makes Speak fail with err.
func (r *Renderer) SetFailure(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shouldFail = true
	r.failureError = err
}

// ClearFailure resets the renderer to normal operation.
func (r *Renderer) ClearFailure() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shouldFail = false
	r.failureError = nil
}

// CallCount returns the number of Speak calls.
func (r *Renderer) CallCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.callCount
}

func (r *Renderer) stopLocked() {
	if r.current == nil {
		return
	}
	r.current.timer.Stop()
	r.gen++
	r.post(tts.Cancelled(r.current.id))
	r.current = nil
	r.paused = false
}

// startTimerLocked arms a timer for the remaining time. Timers armed
// earlier become stale.
func (r *Renderer) startTimerLocked() {
	r.gen++
	gen := r.gen
	r.current.started = time.Now()
	r.current.timer = time.AfterFunc(r.current.remaining, func() {
		r.complete(gen)
	})
}

// complete finishes the utterance of generation gen.
func (r *Renderer) complete(gen int) {
	r.mu.Lock()
	if gen != r.gen || r.current == nil || r.paused {
		r.mu.Unlock()
		return
	}
	id := r.current.id
	r.current = nil
	r.mu.Unlock()

	select {
	case r.events <- tts.Finished(id):
	case <-r.done:
	}
}

// post sends an informational event without blocking.
func (r *Renderer) post(ev tts.Event) {
	select {
	case r.events <- ev:
	default:
		r.logger.Warn("event dropped", "event", ev)
	}
}
