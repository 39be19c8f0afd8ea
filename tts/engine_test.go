package tts

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeRenderer records every call made by the engine.
type fakeRenderer struct {
	mu       sync.Mutex
	spoken   []Utterance
	speaking bool
	stops    int
	pauses   int
	resumes  int
	adjusts  [][2]float64
	caps     Capabilities
	voices   []Voice
	speakErr error
	events   chan Event
}

func newFakeRenderer() *fakeRenderer {
	return &fakeRenderer{
		voices: []Voice{{ID: "alice", Name: "Alice", Language: "en"}},
		events: make(chan Event, 16),
	}
}

func (r *fakeRenderer) Speak(u Utterance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.speakErr != nil {
		return r.speakErr
	}
	r.spoken = append(r.spoken, u)
	r.speaking = true
	return nil
}

func (r *fakeRenderer) Pause() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pauses++
	return nil
}

func (r *fakeRenderer) Resume() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resumes++
	return nil
}

func (r *fakeRenderer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stops++
	r.speaking = false
	return nil
}

func (r *fakeRenderer) Adjust(rate, pitch float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adjusts = append(r.adjusts, [2]float64{rate, pitch})
	return nil
}

func (r *fakeRenderer) IsSpeaking() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.speaking
}

func (r *fakeRenderer) Voices() []Voice {
	return r.voices
}

func (r *fakeRenderer) Capabilities() Capabilities {
	return r.caps
}

func (r *fakeRenderer) Events() <-chan Event {
	return r.events
}

func (r *fakeRenderer) Close() error {
	return nil
}

// last returns the most recent utterance.
func (r *fakeRenderer) last() Utterance {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.spoken) == 0 {
		return Utterance{}
	}
	return r.spoken[len(r.spoken)-1]
}

func (r *fakeRenderer) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.spoken)
}

// finish completes the current utterance the way a renderer would.
func (r *fakeRenderer) finish(e *Engine) Utterance {
	u := r.last()
	r.mu.Lock()
	r.speaking = false
	r.mu.Unlock()
	e.Handle(Finished(u.ID))
	return u
}

// listSegmenter returns fixed chunks regardless of input.
type listSegmenter []SpeechChunk

func (s listSegmenter) Segment(text string) []SpeechChunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return s
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("chunk-%d", n)
	}
}

func threeChunks() listSegmenter {
	return listSegmenter{
		NewChunk("Hello", ChunkComma),
		NewChunk("world", ChunkColonSemicolon),
		NewChunk("wait", ChunkSentence),
	}
}

func newTestEngine(seg Segmenter) (*Engine, *fakeRenderer) {
	r := newFakeRenderer()
	return NewEngine(r, seg, WithIDGenerator(sequentialIDs())), r
}

// TestEngineSpeak tests starting a session.
func TestEngineSpeak(t *testing.T) {
	e, r := newTestEngine(threeChunks())

	e.Speak("text", "", 1.0, 1.0)

	if e.State() != StateSpeaking {
		t.Errorf("State() = %s, want speaking", e.State())
	}
	if e.TotalChunks() != 3 {
		t.Errorf("TotalChunks() = %d, want 3", e.TotalChunks())
	}
	if e.CurrentChunkIndex() != 0 {
		t.Errorf("CurrentChunkIndex() = %d, want 0", e.CurrentChunkIndex())
	}
	if e.SpeakingProgress() != 0 {
		t.Errorf("SpeakingProgress() = %f, want 0", e.SpeakingProgress())
	}
	if r.count() != 1 || r.last().Text != "Hello" {
		t.Fatalf("renderer got %v, want one utterance of Hello", r.spoken)
	}
}

// TestEngineCompletionSequence tests that completions walk the whole queue.
func TestEngineCompletionSequence(t *testing.T) {
	e, r := newTestEngine(threeChunks())
	e.Speak("text", "", 1.0, 1.0)

	prev := e.SpeakingProgress()
	for i := 0; i < 3; i++ {
		if got := e.CurrentChunkIndex(); got != i {
			t.Fatalf("CurrentChunkIndex() = %d, want %d", got, i)
		}
		r.finish(e)
		if p := e.SpeakingProgress(); p < prev {
			t.Fatalf("progress decreased from %f to %f", prev, p)
		}
		prev = e.SpeakingProgress()
	}

	if e.State() != StateIdle {
		t.Errorf("State() = %s, want idle", e.State())
	}
	if e.CurrentChunkIndex() != 3 {
		t.Errorf("CurrentChunkIndex() = %d, want 3", e.CurrentChunkIndex())
	}
	if e.SpeakingProgress() != 1 {
		t.Errorf("SpeakingProgress() = %f, want 1", e.SpeakingProgress())
	}
	if r.count() != 3 {
		t.Errorf("dispatched %d utterances, want 3", r.count())
	}

	seen := map[string]bool{}
	for _, u := range r.spoken {
		if seen[u.ID] {
			t.Errorf("chunk %s dispatched twice", u.ID)
		}
		seen[u.ID] = true
	}
	if !e.Snapshot().Completed {
		t.Error("Snapshot().Completed = false, want true")
	}
}

// TestEngineIgnoresStaleCompletions tests duplicate and unknown Finished events.
func TestEngineIgnoresStaleCompletions(t *testing.T) {
	tests := []struct {
		name  string
		event func(first Utterance) Event
	}{
		{"unknown id", func(Utterance) Event { return Finished("nope") }},
		{"empty id", func(Utterance) Event { return Finished("") }},
		{"duplicate", func(first Utterance) Event { return Finished(first.ID) }},
		{"cancelled", func(Utterance) Event { return Cancelled("chunk-2") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, r := newTestEngine(threeChunks())
			e.Speak("text", "", 1.0, 1.0)
			first := r.finish(e)

			e.Handle(tt.event(first))

			if e.CurrentChunkIndex() != 1 {
				t.Errorf("CurrentChunkIndex() = %d, want 1", e.CurrentChunkIndex())
			}
			if r.count() != 2 {
				t.Errorf("dispatched %d utterances, want 2", r.count())
			}
		})
	}
}

// TestEnginePauseResume tests pausing and resuming the in-flight chunk.
func TestEnginePauseResume(t *testing.T) {
	e, r := newTestEngine(threeChunks())

	e.Pause()
	if r.pauses != 0 {
		t.Error("Pause() without a session should not reach the renderer")
	}

	e.Speak("text", "", 1.0, 1.0)
	e.Pause()
	if e.State() != StatePaused || r.pauses != 1 {
		t.Errorf("after Pause: state=%s pauses=%d", e.State(), r.pauses)
	}

	e.Resume()
	if e.State() != StateSpeaking || r.resumes != 1 {
		t.Errorf("after Resume: state=%s resumes=%d", e.State(), r.resumes)
	}
	if r.count() != 1 {
		t.Errorf("Resume() should not redispatch, got %d utterances", r.count())
	}
}

// TestEngineFinishWhilePaused tests a completion that races a pause.
func TestEngineFinishWhilePaused(t *testing.T) {
	e, r := newTestEngine(threeChunks())
	e.Speak("text", "", 1.0, 1.0)
	e.Pause()

	r.finish(e)

	if e.State() != StatePaused {
		t.Errorf("State() = %s, want paused", e.State())
	}
	if e.CurrentChunkIndex() != 1 {
		t.Errorf("CurrentChunkIndex() = %d, want 1", e.CurrentChunkIndex())
	}
	if r.count() != 1 {
		t.Fatalf("next chunk dispatched while paused")
	}

	e.Resume()
	if r.count() != 2 || r.last().Text != "world" {
		t.Errorf("Resume() should dispatch the held chunk, got %v", r.spoken)
	}
	if r.resumes != 0 {
		t.Errorf("renderer Resume called %d times, want 0", r.resumes)
	}
}

// TestEngineSkip tests navigation.
func TestEngineSkip(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(e *Engine, r *fakeRenderer)
		skip      func(e *Engine)
		wantIndex int
		wantCount int
		wantStops int
	}{
		{
			name:      "next",
			skip:      func(e *Engine) { e.SkipToNext() },
			wantIndex: 1,
			wantCount: 2,
			wantStops: 1,
		},
		{
			name:      "previous at first chunk",
			skip:      func(e *Engine) { e.SkipToPrevious() },
			wantIndex: 0,
			wantCount: 1,
		},
		{
			name:      "previous",
			setup:     func(e *Engine, r *fakeRenderer) { r.finish(e) },
			skip:      func(e *Engine) { e.SkipToPrevious() },
			wantIndex: 0,
			wantCount: 3,
			wantStops: 1,
		},
		{
			name: "next at last chunk",
			setup: func(e *Engine, r *fakeRenderer) {
				r.finish(e)
				r.finish(e)
			},
			skip:      func(e *Engine) { e.SkipToNext() },
			wantIndex: 2,
			wantCount: 3,
		},
		{
			name:      "to chunk",
			skip:      func(e *Engine) { e.SkipToChunk(2) },
			wantIndex: 2,
			wantCount: 2,
			wantStops: 1,
		},
		{
			name:      "to chunk out of range",
			skip:      func(e *Engine) { e.SkipToChunk(3) },
			wantIndex: 0,
			wantCount: 1,
		},
		{
			name:      "to negative chunk",
			skip:      func(e *Engine) { e.SkipToChunk(-1) },
			wantIndex: 0,
			wantCount: 1,
		},
		{
			name:      "next while paused",
			setup:     func(e *Engine, r *fakeRenderer) { e.Pause() },
			skip:      func(e *Engine) { e.SkipToNext() },
			wantIndex: 1,
			wantCount: 2,
			wantStops: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, r := newTestEngine(threeChunks())
			e.Speak("text", "", 1.0, 1.0)
			if tt.setup != nil {
				tt.setup(e, r)
			}

			tt.skip(e)

			if got := e.CurrentChunkIndex(); got != tt.wantIndex {
				t.Errorf("CurrentChunkIndex() = %d, want %d", got, tt.wantIndex)
			}
			if got := r.count(); got != tt.wantCount {
				t.Errorf("dispatched %d utterances, want %d", got, tt.wantCount)
			}
			if r.stops != tt.wantStops {
				t.Errorf("renderer stops = %d, want %d", r.stops, tt.wantStops)
			}
			if e.State() != StateSpeaking {
				t.Errorf("State() = %s, want speaking", e.State())
			}
		})
	}
}

// TestEngineSkipIgnoresCancelledCompletion tests that the skipped chunk's
// late completion does not advance the queue.
func TestEngineSkipIgnoresCancelledCompletion(t *testing.T) {
	e, r := newTestEngine(threeChunks())
	e.Speak("text", "", 1.0, 1.0)
	skipped := r.last()

	e.SkipToNext()
	e.Handle(Cancelled(skipped.ID))
	e.Handle(Finished(skipped.ID))

	if e.CurrentChunkIndex() != 1 {
		t.Errorf("CurrentChunkIndex() = %d, want 1", e.CurrentChunkIndex())
	}
	if r.count() != 2 {
		t.Errorf("dispatched %d utterances, want 2", r.count())
	}
}

// busyRenderer reports an utterance in progress at all times.
type busyRenderer struct {
	*fakeRenderer
}

func (r busyRenderer) IsSpeaking() bool {
	return true
}

// TestEngineBackwardSkipReplaysChunks tests that chunks spoken before a
// backward skip are dispatched again while the renderer reports busy.
func TestEngineBackwardSkipReplaysChunks(t *testing.T) {
	r := busyRenderer{newFakeRenderer()}
	e := NewEngine(r, threeChunks(), WithIDGenerator(sequentialIDs()))

	e.Speak("text", "", 1, 1)
	r.finish(e)
	r.finish(e)
	e.SkipToChunk(0)
	if got := r.last().Text; got != "Hello" {
		t.Fatalf("expected skip to dispatch %q, got %q", "Hello", got)
	}

	r.finish(e)
	if got := r.last().Text; got != "world" {
		t.Fatalf("expected %q after the replayed chunk, got %q", "world", got)
	}
	if idx := e.CurrentChunkIndex(); idx != 1 {
		t.Errorf("expected index 1, got %d", idx)
	}

	r.finish(e)
	r.finish(e)
	snap := e.Snapshot()
	if !snap.Completed || snap.State != StateIdle || snap.Index != 3 {
		t.Errorf("expected completed idle session at index 3, got %+v", snap)
	}
	if n := r.count(); n != 6 {
		t.Errorf("expected 6 utterances, got %d", n)
	}
}

// TestEngineReplayAfterCompletion tests SkipToChunk once the queue is done.
func TestEngineReplayAfterCompletion(t *testing.T) {
	e, r := newTestEngine(threeChunks())
	e.Speak("text", "", 1.0, 1.0)
	for i := 0; i < 3; i++ {
		r.finish(e)
	}

	e.SkipToChunk(1)

	if e.State() != StateSpeaking || e.CurrentChunkIndex() != 1 {
		t.Errorf("state=%s index=%d, want speaking at 1", e.State(), e.CurrentChunkIndex())
	}
	if r.last().Text != "world" {
		t.Errorf("last utterance = %q, want world", r.last().Text)
	}
}

// TestEngineStop tests discarding the session.
func TestEngineStop(t *testing.T) {
	e, r := newTestEngine(threeChunks())
	e.Speak("text", "", 1.0, 1.0)
	r.finish(e)

	e.Stop()

	if e.State() != StateStopped {
		t.Errorf("State() = %s, want stopped", e.State())
	}
	if e.TotalChunks() != 0 || e.CurrentChunkIndex() != 0 || e.SpeakingProgress() != 0 {
		t.Errorf("session not cleared: total=%d index=%d", e.TotalChunks(), e.CurrentChunkIndex())
	}
	if r.stops != 1 {
		t.Errorf("renderer stops = %d, want 1", r.stops)
	}

	e.SkipToNext()
	e.SkipToChunk(0)
	if r.count() != 2 {
		t.Errorf("navigation after Stop dispatched, got %d utterances", r.count())
	}
}

// TestEngineSpeakReplacesSession tests that Speak stops the previous session.
func TestEngineSpeakReplacesSession(t *testing.T) {
	e, r := newTestEngine(threeChunks())
	e.Speak("text", "", 1.0, 1.0)
	old := r.last()

	e.Speak("other", "", 1.0, 1.0)
	if r.stops != 1 {
		t.Errorf("renderer stops = %d, want 1", r.stops)
	}

	e.Handle(Finished(old.ID))
	if e.CurrentChunkIndex() != 0 {
		t.Errorf("old completion advanced the new session")
	}
	if r.last().ID == old.ID {
		t.Error("new session reused chunk identity")
	}
}

// TestEngineSpeakEmpty tests that empty text leaves the engine idle.
func TestEngineSpeakEmpty(t *testing.T) {
	e, r := newTestEngine(threeChunks())

	e.Speak("   ", "", 1.0, 1.0)

	if e.State() != StateIdle {
		t.Errorf("State() = %s, want idle", e.State())
	}
	if r.count() != 0 {
		t.Errorf("dispatched %d utterances, want 0", r.count())
	}
}

// TestEngineSpeakFrom tests starting mid-queue.
func TestEngineSpeakFrom(t *testing.T) {
	tests := []struct {
		start int
		want  int
	}{
		{start: 2, want: 2},
		{start: 7, want: 0},
		{start: -1, want: 0},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.start), func(t *testing.T) {
			e, _ := newTestEngine(threeChunks())
			e.SpeakFrom("text", "", 1.0, 1.0, tt.start)
			if got := e.CurrentChunkIndex(); got != tt.want {
				t.Errorf("CurrentChunkIndex() = %d, want %d", got, tt.want)
			}
		})
	}
}

// TestEngineVoiceResolution tests voice fallback.
func TestEngineVoiceResolution(t *testing.T) {
	tests := []struct {
		voice string
		want  string
	}{
		{"alice", "alice"},
		{"bob", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.voice, func(t *testing.T) {
			e, r := newTestEngine(threeChunks())
			e.Speak("text", tt.voice, 1.0, 1.0)
			if got := r.last().VoiceID; got != tt.want {
				t.Errorf("VoiceID = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestEngineRateMultipliers tests per-type rate scaling.
func TestEngineRateMultipliers(t *testing.T) {
	e, r := newTestEngine(threeChunks())
	e.Speak("text", "", 2.0, 1.2)

	want := []float64{2.0 * 0.9, 2.0, 2.0 * 0.95}
	for i, rate := range want {
		u := r.last()
		if math.Abs(u.Rate-rate) > 1e-9 {
			t.Errorf("chunk %d rate = %f, want %f", i, u.Rate, rate)
		}
		if u.Pitch != 1.2 {
			t.Errorf("chunk %d pitch = %f, want 1.2", i, u.Pitch)
		}
		r.finish(e)
	}
}

// TestEngineUpdateRate tests rate changes mid-session.
func TestEngineUpdateRate(t *testing.T) {
	t.Run("without live adjust", func(t *testing.T) {
		e, r := newTestEngine(threeChunks())
		e.Speak("text", "", 1.0, 1.0)

		e.UpdateRate(2.0)
		if len(r.adjusts) != 0 {
			t.Errorf("Adjust called without LiveAdjust")
		}

		r.finish(e)
		if got := r.last().Rate; got != 2.0 {
			t.Errorf("next chunk rate = %f, want 2", got)
		}
	})

	t.Run("with live adjust", func(t *testing.T) {
		e, r := newTestEngine(threeChunks())
		r.caps.LiveAdjust = true
		e.Speak("text", "", 1.0, 1.0)

		e.UpdatePitch(1.5)
		if len(r.adjusts) != 1 || r.adjusts[0] != [2]float64{0.9, 1.5} {
			t.Errorf("adjusts = %v, want [[0.9 1.5]]", r.adjusts)
		}
	})
}

// TestEngineEstimates tests the time estimates.
func TestEngineEstimates(t *testing.T) {
	seg := listSegmenter{
		NewChunk(strings.Repeat("a", 20), ChunkComma),
		NewChunk(strings.Repeat("b", 10), ChunkSentence),
	}
	e, r := newTestEngine(seg)
	e.Speak("text", "", 1.0, 1.0)

	total := 2.0 + PauseComma + 1.0 + PauseSentence
	if got := e.EstimatedTotalSeconds(); math.Abs(got-total) > 1e-9 {
		t.Errorf("EstimatedTotalSeconds() = %f, want %f", got, total)
	}
	if got := e.EstimatedRemainingSeconds(); math.Abs(got-total) > 1e-9 {
		t.Errorf("EstimatedRemainingSeconds() = %f, want %f", got, total)
	}

	r.finish(e)

	total = 1.0 + PauseSentence
	if got := e.EstimatedTotalSeconds(); math.Abs(got-total) > 1e-9 {
		t.Errorf("EstimatedTotalSeconds() = %f, want %f", got, total)
	}
	if got := e.EstimatedRemainingSeconds(); math.Abs(got-total*0.5) > 1e-9 {
		t.Errorf("EstimatedRemainingSeconds() = %f, want %f", got, total*0.5)
	}
}

// TestEngineSpeakError tests a renderer that refuses an utterance.
func TestEngineSpeakError(t *testing.T) {
	e, r := newTestEngine(threeChunks())
	r.speakErr = ErrRendererClosed

	e.Speak("text", "", 1.0, 1.0)

	snap := e.Snapshot()
	if snap.State != StateIdle {
		t.Errorf("State = %s, want idle", snap.State)
	}
	var rerr *RendererError
	if !errors.As(snap.Err, &rerr) || !errors.Is(snap.Err, ErrRendererClosed) {
		t.Errorf("Snapshot().Err = %v, want RendererError wrapping ErrRendererClosed", snap.Err)
	}
}

// TestEngineUpdates tests the latest-value update channel.
func TestEngineUpdates(t *testing.T) {
	e, r := newTestEngine(threeChunks())
	e.Speak("text", "", 1.0, 1.0)
	r.finish(e)
	r.finish(e)

	snap := <-e.Updates()
	if snap.Index != 2 {
		t.Errorf("latest snapshot index = %d, want 2", snap.Index)
	}

	select {
	case s := <-e.Updates():
		t.Errorf("unexpected extra snapshot %+v", s)
	default:
	}
}

// TestEngineRun tests that Run applies renderer events.
func TestEngineRun(t *testing.T) {
	e, r := newTestEngine(threeChunks())
	e.Speak("text", "", 1.0, 1.0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	r.events <- Started(r.last().ID)
	r.events <- Finished(r.last().ID)

	deadline := time.After(2 * time.Second)
	for e.CurrentChunkIndex() != 1 {
		select {
		case <-deadline:
			t.Fatal("Run did not apply the completion")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}
