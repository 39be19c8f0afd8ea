// Package tts provides chunked text-to-speech playback for recite.
package tts

import (
	"context"
	"sync"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// CharactersPerSecond is the speech speed assumed by time estimates.
const CharactersPerSecond = 10.0

// Rate and pitch bounds accepted by the engine.
const (
	MinRate  = 0.1
	MaxRate  = 4.0
	MinPitch = 0.5
	MaxPitch = 2.0
)

// queuedChunk is a chunk of the active session with its own identity.
type queuedChunk struct {
	id    string
	chunk SpeechChunk
	rate  float64
	pitch float64
}

// Snapshot is a read-only view of the engine state.
type Snapshot struct {
	State              StateType
	Index              int         // Position of the tracked chunk in the session
	Total              int         // Number of chunks in the session
	Progress           float64     // Index / Total
	Chunk              SpeechChunk // Tracked chunk, zero when none
	Rate               float64     // Base speech rate
	Pitch              float64     // Pitch multiplier
	EstimatedTotal     float64     // Seconds of speech left in the queue
	EstimatedRemaining float64     // EstimatedTotal scaled by remaining progress
	Completed          bool        // The session ran through every chunk
	Err                error       // Last renderer failure
}

// Engine sequences speech chunks through a Renderer. All state is owned by
// the engine and guarded by one mutex; renderer events are applied through
// Handle, normally from Run.
type Engine struct {
	renderer  Renderer
	segmenter Segmenter
	logger    *log.Logger
	newID     func() string

	mu      sync.Mutex
	machine *StateMachine

	// Session
	queue      []queuedChunk
	cursor     int
	inFlight   string // chunk being tracked, "" when none
	pending    bool   // tracked chunk has not been handed to the renderer yet
	dispatched map[string]struct{}
	voiceID    string
	rate       float64
	pitch      float64
	completed  bool
	lastErr    error

	updates chan Snapshot
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *log.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithIDGenerator replaces the chunk identity generator.
func WithIDGenerator(fn func() string) EngineOption {
	return func(e *Engine) {
		if fn != nil {
			e.newID = fn
		}
	}
}

// NewEngine creates a playback engine bound to a renderer and segmenter.
func NewEngine(renderer Renderer, segmenter Segmenter, opts ...EngineOption) *Engine {
	e := &Engine{
		renderer:   renderer,
		segmenter:  segmenter,
		logger:     log.Default().WithPrefix("engine"),
		newID:      uuid.NewString,
		machine:    NewStateMachine(),
		dispatched: make(map[string]struct{}),
		rate:       1.0,
		pitch:      1.0,
		updates:    make(chan Snapshot, 1),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.setupStateMachine()

	return e
}

func (e *Engine) setupStateMachine() {
	for _, s := range []StateType{StateIdle, StateSpeaking, StatePaused, StateStopped} {
		e.machine.OnEnter(s, func(from StateType) {
			if from != e.machine.Current() {
				e.logger.Debug("state changed", "from", from, "to", e.machine.Current())
			}
		})
	}
}

// Run drains renderer events until ctx is done or the event channel closes.
func (e *Engine) Run(ctx context.Context) error {
	events := e.renderer.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			e.Handle(ev)
		}
	}
}

// Updates delivers the latest snapshot after every change. Only the most
// recent snapshot is kept.
func (e *Engine) Updates() <-chan Snapshot {
	return e.updates
}

// Speak replaces any session with a new one for text and starts speaking.
func (e *Engine) Speak(text, voiceID string, rate, pitch float64) {
	e.SpeakFrom(text, voiceID, rate, pitch, 0)
}

// SpeakFrom is Speak starting at chunk index start.
func (e *Engine) SpeakFrom(text, voiceID string, rate, pitch float64, start int) {
	chunks := e.segmenter.Segment(text)

	e.mu.Lock()
	defer e.mu.Unlock()

	e.resetLocked()
	e.rate = clamp(rate, MinRate, MaxRate, 1.0)
	e.pitch = clamp(pitch, MinPitch, MaxPitch, 1.0)

	if len(chunks) == 0 {
		e.logger.Debug("nothing to speak")
		e.machine.Transition(StateIdle)
		e.publishLocked()
		return
	}

	e.voiceID = e.resolveVoice(voiceID)
	e.queue = make([]queuedChunk, len(chunks))
	for i, c := range chunks {
		e.queue[i] = queuedChunk{
			id:    e.newID(),
			chunk: c,
			rate:  e.rate * c.Type.RateMultiplier(),
			pitch: e.pitch,
		}
	}

	if start < 0 || start >= len(e.queue) {
		start = 0
	}
	e.cursor = start

	e.logger.Info("speaking", "chunks", len(e.queue), "start", start, "voice", e.voiceID, "rate", e.rate)
	e.machine.Transition(StateSpeaking)
	e.dispatchLocked(e.cursor, true)
	e.publishLocked()
}

// Pause pauses the in-flight chunk.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.machine.Current() != StateSpeaking || e.inFlight == "" {
		return
	}
	if err := e.renderer.Pause(); err != nil {
		e.logger.Warn("renderer pause failed", "error", err)
	}
	e.machine.Transition(StatePaused)
	e.publishLocked()
}

// Resume continues a paused session. It does nothing unless a chunk is
// tracked.
func (e *Engine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.machine.Current() != StatePaused || e.inFlight == "" {
		return
	}
	e.machine.Transition(StateSpeaking)
	if e.pending {
		e.dispatchLocked(e.cursor, true)
	} else if err := e.renderer.Resume(); err != nil {
		e.logger.Warn("renderer resume failed", "error", err)
	}
	e.publishLocked()
}

// Stop cancels output and discards the session.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.resetLocked()
	e.machine.Transition(StateStopped)
	e.publishLocked()
}

// SkipToNext cancels the in-flight chunk and speaks the next one.
func (e *Engine) SkipToNext() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.machine.Current().IsActive() || e.cursor+1 >= len(e.queue) {
		return
	}
	e.skipLocked(e.cursor + 1)
}

// SkipToPrevious cancels the in-flight chunk and speaks the previous one.
func (e *Engine) SkipToPrevious() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.machine.Current().IsActive() || e.cursor <= 0 || e.cursor > len(e.queue) {
		return
	}
	e.skipLocked(e.cursor - 1)
}

// SkipToChunk cancels the in-flight chunk and speaks chunk index. Out of
// range indices are ignored.
func (e *Engine) SkipToChunk(index int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if index < 0 || index >= len(e.queue) {
		return
	}
	e.skipLocked(index)
}

// UpdateRate changes the base rate for chunks not yet spoken.
func (e *Engine) UpdateRate(rate float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.rate = clamp(rate, MinRate, MaxRate, e.rate)
	e.adjustLocked(func(q *queuedChunk) {
		q.rate = e.rate * q.chunk.Type.RateMultiplier()
	})
	e.publishLocked()
}

// UpdatePitch changes the pitch for chunks not yet spoken.
func (e *Engine) UpdatePitch(pitch float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.pitch = clamp(pitch, MinPitch, MaxPitch, e.pitch)
	e.adjustLocked(func(q *queuedChunk) {
		q.pitch = e.pitch
	})
	e.publishLocked()
}

// Handle applies one renderer event.
func (e *Engine) Handle(ev Event) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch ev.Kind {
	case EventStarted:
		e.logger.Debug("chunk started", "id", ev.ChunkID)
	case EventCancelled:
		e.logger.Debug("chunk cancelled", "id", ev.ChunkID, "tracked", ev.ChunkID == e.inFlight)
	case EventFinished:
		if ev.ChunkID == "" || ev.ChunkID != e.inFlight || e.pending {
			e.logger.Debug("ignoring stale completion", "id", ev.ChunkID)
			return
		}
		e.advanceLocked()
		e.publishLocked()
	}
}

// State returns the current engine state.
func (e *Engine) State() StateType {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.machine.Current()
}

// CurrentChunkIndex returns the position of the tracked chunk in the
// session.
func (e *Engine) CurrentChunkIndex() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cursor
}

// TotalChunks returns the number of chunks in the session.
func (e *Engine) TotalChunks() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}

// SpeakingProgress returns CurrentChunkIndex / TotalChunks.
func (e *Engine) SpeakingProgress() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.progressLocked()
}

// EstimatedTotalSeconds estimates the speech left in the queue.
func (e *Engine) EstimatedTotalSeconds() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.estimatedTotalLocked()
}

// EstimatedRemainingSeconds scales EstimatedTotalSeconds by the remaining
// progress.
func (e *Engine) EstimatedRemainingSeconds() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.estimatedTotalLocked() * (1 - e.progressLocked())
}

// CurrentChunk returns the tracked chunk.
func (e *Engine) CurrentChunk() (SpeechChunk, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cursor < 0 || e.cursor >= len(e.queue) {
		return SpeechChunk{}, false
	}
	return e.queue[e.cursor].chunk, true
}

// Snapshot returns the current engine state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) advanceLocked() {
	e.cursor++
	e.inFlight = ""

	if e.cursor >= len(e.queue) {
		e.logger.Info("session complete", "chunks", len(e.queue))
		e.cursor = len(e.queue)
		e.dispatched = make(map[string]struct{})
		e.completed = true
		e.machine.Transition(StateIdle)
		return
	}

	switch e.machine.Current() {
	case StateSpeaking:
		e.dispatchLocked(e.cursor, false)
	case StatePaused:
		// Finished raced the pause; hold the next chunk until Resume.
		e.inFlight = e.queue[e.cursor].id
		e.pending = true
	}
}

func (e *Engine) skipLocked(target int) {
	if e.inFlight != "" && !e.pending {
		delete(e.dispatched, e.inFlight)
		if err := e.renderer.Stop(); err != nil {
			e.logger.Warn("renderer stop failed", "error", err)
		}
	}
	e.logger.Debug("skipping", "from", e.cursor, "to", target)

	// Chunks from the target on are spoken again after a backward skip.
	for _, q := range e.queue[target:] {
		delete(e.dispatched, q.id)
	}
	e.cursor = target
	e.completed = false
	e.machine.Transition(StateSpeaking)
	e.dispatchLocked(target, true)
	e.publishLocked()
}

// dispatchLocked hands chunk index to the renderer. Unless forced, a chunk
// that was already dispatched is not sent again while the renderer is busy.
func (e *Engine) dispatchLocked(index int, force bool) {
	q := e.queue[index]
	if _, seen := e.dispatched[q.id]; seen && !force && e.renderer.IsSpeaking() {
		e.logger.Debug("suppressed duplicate dispatch", "index", index, "id", q.id)
		return
	}

	e.dispatched[q.id] = struct{}{}
	e.inFlight = q.id
	e.pending = false

	err := e.renderer.Speak(Utterance{
		ID:      q.id,
		Text:    q.chunk.Text,
		VoiceID: e.voiceID,
		Rate:    q.rate,
		Pitch:   q.pitch,
	})
	if err != nil {
		e.lastErr = &RendererError{Err: err, Action: "speak", ChunkID: q.id}
		e.logger.Error("renderer speak failed", "index", index, "error", err)
		delete(e.dispatched, q.id)
		e.inFlight = ""
		e.machine.Transition(StateIdle)
		return
	}
	e.lastErr = nil
}

func (e *Engine) adjustLocked(apply func(*queuedChunk)) {
	if e.cursor >= len(e.queue) {
		return
	}
	for i := e.cursor + 1; i < len(e.queue); i++ {
		apply(&e.queue[i])
	}

	current := &e.queue[e.cursor]
	switch {
	case e.inFlight == "" || e.pending:
		apply(current)
	case e.renderer.Capabilities().LiveAdjust:
		apply(current)
		if err := e.renderer.Adjust(current.rate, current.pitch); err != nil {
			e.logger.Warn("renderer adjust failed", "error", err)
		}
	}
}

func (e *Engine) resetLocked() {
	if e.inFlight != "" || e.renderer.IsSpeaking() {
		if err := e.renderer.Stop(); err != nil {
			e.logger.Warn("renderer stop failed", "error", err)
		}
	}
	e.queue = nil
	e.cursor = 0
	e.inFlight = ""
	e.pending = false
	e.completed = false
	e.lastErr = nil
	e.dispatched = make(map[string]struct{})
}

func (e *Engine) resolveVoice(id string) string {
	if id == "" {
		return ""
	}
	for _, v := range e.renderer.Voices() {
		if v.ID == id {
			return id
		}
	}
	e.logger.Warn("voice not found, using default", "voice", id)
	return ""
}

func (e *Engine) progressLocked() float64 {
	if len(e.queue) == 0 {
		return 0
	}
	return float64(e.cursor) / float64(len(e.queue))
}

func (e *Engine) estimatedTotalLocked() float64 {
	total := 0.0
	for i := e.cursor; i < len(e.queue); i++ {
		c := e.queue[i].chunk
		total += float64(utf8.RuneCountInString(c.Text))/CharactersPerSecond + c.PauseDurationSeconds
	}
	return total
}

func (e *Engine) snapshotLocked() Snapshot {
	s := Snapshot{
		State:          e.machine.Current(),
		Index:          e.cursor,
		Total:          len(e.queue),
		Progress:       e.progressLocked(),
		Rate:           e.rate,
		Pitch:          e.pitch,
		EstimatedTotal: e.estimatedTotalLocked(),
		Completed:      e.completed,
		Err:            e.lastErr,
	}
	s.EstimatedRemaining = s.EstimatedTotal * (1 - s.Progress)
	if e.cursor < len(e.queue) {
		s.Chunk = e.queue[e.cursor].chunk
	}
	return s
}

func (e *Engine) publishLocked() {
	s := e.snapshotLocked()
	select {
	case <-e.updates:
	default:
	}
	select {
	case e.updates <- s:
	default:
	}
}

func clamp(v, lo, hi, fallback float64) float64 {
	if v <= 0 {
		return fallback
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
