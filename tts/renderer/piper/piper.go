// Package piper renders speech with the Piper neural synthesizer and plays it
// through an audio sink.
package piper

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/recite/tts"
	"github.com/dgnsrekt/recite/tts/audio"
)

// job is the utterance being synthesized or played.
type job struct {
	id      string
	cancel  context.CancelFunc
	pcm     []byte // synthesized audio waiting for playback
	playing bool
}

// Renderer speaks utterances by synthesizing each one with a Synthesizer and
// playing the result on a Sink. Rate applies from the next utterance; pitch
// is not supported by Piper and is ignored.
type Renderer struct {
	cfg    tts.PiperConfig
	synth  Synthesizer
	sink   audio.Sink
	logger *log.Logger

	mu      sync.Mutex
	current *job
	paused  bool
	gen     int
	closed  bool

	events chan tts.Event
	done   chan struct{}
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithLogger sets the renderer logger.
func WithLogger(l *log.Logger) Option {
	return func(r *Renderer) {
		r.logger = l
	}
}

// WithSynthesizer replaces the Piper subprocess.
func WithSynthesizer(s Synthesizer) Option {
	return func(r *Renderer) {
		r.synth = s
	}
}

// New creates a renderer playing on sink. Without WithSynthesizer the Piper
// binary named in cfg must be installed.
func New(cfg tts.PiperConfig, sink audio.Sink, opts ...Option) (*Renderer, error) {
	r := &Renderer{
		cfg:    cfg,
		sink:   sink,
		logger: log.Default().WithPrefix("piper"),
		events: make(chan tts.Event, 64),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.synth == nil {
		p, err := NewProcess(cfg)
		if err != nil {
			return nil, err
		}
		r.synth = p
	}
	return r, nil
}

// Speak starts synthesizing u and plays it when ready.
func (r *Renderer) Speak(u tts.Utterance) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return tts.ErrRendererClosed
	}
	if r.current != nil {
		return tts.ErrRendererBusy
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.Timeout)
	r.gen++
	r.paused = false
	r.current = &job{id: u.ID, cancel: cancel}

	req := Request{
		Text:    u.Text,
		Model:   ModelPath(r.cfg.DataDir, r.model(u.VoiceID)),
		Rate:    u.Rate,
		Speaker: r.cfg.SpeakerID,
	}
	r.logger.Debug("synthesizing", "id", u.ID, "model", req.Model, "rate", req.Rate)
	r.post(tts.Started(u.ID))

	go r.render(ctx, r.gen, req)
	return nil
}

func (r *Renderer) model(voiceID string) string {
	if voiceID == "" {
		return r.cfg.Model
	}
	return voiceID
}

// render synthesizes the utterance of generation gen and starts playback.
func (r *Renderer) render(ctx context.Context, gen int, req Request) {
	pcm, err := r.synth.Synthesize(ctx, req)

	r.mu.Lock()
	if gen != r.gen || r.current == nil {
		r.mu.Unlock()
		return
	}
	r.current.cancel()

	switch {
	case err != nil:
		r.logger.Error("synthesis failed", "id", r.current.id, "err", err)
		r.finishLocked()
		return
	case len(pcm) == 0:
		r.logger.Warn("synthesis produced no audio", "id", r.current.id)
		r.finishLocked()
		return
	}

	r.current.pcm = pcm
	if r.paused {
		r.mu.Unlock()
		return
	}
	if err := r.playLocked(gen); err != nil {
		r.logger.Error("playback failed", "id", r.current.id, "err", err)
		r.finishLocked()
		return
	}
	r.mu.Unlock()
}

// playLocked hands the synthesized audio to the sink.
func (r *Renderer) playLocked(gen int) error {
	c := r.current
	pcm := c.pcm
	c.pcm = nil

	if err := r.sink.Play(pcm, func() { r.complete(gen) }); err != nil {
		return err
	}
	c.playing = true
	return nil
}

// finishLocked ends the current utterance as finished and unlocks r.mu. A
// failed chunk counts as spoken so the session moves on.
func (r *Renderer) finishLocked() {
	id := r.current.id
	r.current = nil
	r.paused = false
	r.mu.Unlock()

	r.send(tts.Finished(id))
}

// complete finishes the utterance of generation gen once playback drains.
func (r *Renderer) complete(gen int) {
	r.mu.Lock()
	if gen != r.gen || r.current == nil {
		r.mu.Unlock()
		return
	}
	r.finishLocked()
}

// Pause holds the current utterance. Audio synthesized while paused waits
// for Resume.
func (r *Renderer) Pause() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current == nil {
		return tts.ErrNotSpeaking
	}
	if r.paused {
		return nil
	}
	if r.current.playing {
		if err := r.sink.Pause(); err != nil {
			return err
		}
	}
	r.paused = true
	return nil
}

// Resume continues a held utterance.
func (r *Renderer) Resume() error {
	r.mu.Lock()

	if r.current == nil {
		r.mu.Unlock()
		return tts.ErrNotSpeaking
	}
	if !r.paused {
		r.mu.Unlock()
		return nil
	}
	r.paused = false

	if r.current.playing {
		err := r.sink.Resume()
		r.mu.Unlock()
		return err
	}
	if r.current.pcm != nil {
		if err := r.playLocked(r.gen); err != nil {
			r.logger.Error("playback failed", "id", r.current.id, "err", err)
			r.finishLocked()
			return nil
		}
	}
	r.mu.Unlock()
	return nil
}

// Stop cancels synthesis and playback of the current utterance.
func (r *Renderer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stopLocked()
	return nil
}

func (r *Renderer) stopLocked() {
	if r.current == nil {
		return
	}
	c := r.current
	c.cancel()
	r.gen++
	if c.playing {
		if err := r.sink.Stop(); err != nil {
			r.logger.Warn("failed to stop playback", "err", err)
		}
	}
	r.current = nil
	r.paused = false
	r.post(tts.Cancelled(c.id))
}

// Adjust is not supported; a new rate applies from the next utterance.
func (r *Renderer) Adjust(rate, pitch float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current == nil {
		return tts.ErrNotSpeaking
	}
	return tts.ErrNotSupported
}

// IsSpeaking reports whether an utterance is being synthesized or played.
func (r *Renderer) IsSpeaking() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current != nil
}

// Voices returns the models installed in the data directory.
func (r *Renderer) Voices() []tts.Voice {
	voices, err := ListVoices(r.cfg.DataDir)
	if err != nil {
		r.logger.Warn("failed to list voices", "dir", r.cfg.DataDir, "err", err)
	}
	return voices
}

// Capabilities returns the renderer capabilities.
func (r *Renderer) Capabilities() tts.Capabilities {
	return tts.Capabilities{
		LiveAdjust:    false,
		MaxTextLength: r.cfg.MaxTextSize,
	}
}

// Events returns the renderer notifications. The channel is never closed.
func (r *Renderer) Events() <-chan tts.Event {
	return r.events
}

// Close cancels any utterance and releases the sink.
func (r *Renderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.stopLocked()
	r.closed = true
	close(r.done)
	return r.sink.Close()
}

// send delivers a completion, giving up once the renderer is closed.
func (r *Renderer) send(ev tts.Event) {
	select {
	case r.events <- ev:
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
