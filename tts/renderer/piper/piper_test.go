package piper

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/dgnsrekt/recite/tts"
)

// fakeSink records playback and lets tests drain clips.
type fakeSink struct {
	mu      sync.Mutex
	plays   chan func()
	paused  int
	resumed int
	stopped int
	closed  bool
	playErr error
}

func newFakeSink() *fakeSink {
	return &fakeSink{plays: make(chan func(), 8)}
}

func (s *fakeSink) Play(pcm []byte, onDone func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.playErr != nil {
		return s.playErr
	}
	s.plays <- onDone
	return nil
}

func (s *fakeSink) Pause() error  { s.mu.Lock(); s.paused++; s.mu.Unlock(); return nil }
func (s *fakeSink) Resume() error { s.mu.Lock(); s.resumed++; s.mu.Unlock(); return nil }
func (s *fakeSink) Stop() error   { s.mu.Lock(); s.stopped++; s.mu.Unlock(); return nil }
func (s *fakeSink) Close() error  { s.mu.Lock(); s.closed = true; s.mu.Unlock(); return nil }

func (s *fakeSink) nextPlay(t *testing.T) func() {
	t.Helper()
	select {
	case done := <-s.plays:
		return done
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for playback")
		return nil
	}
}

func testConfig() tts.PiperConfig {
	cfg := tts.DefaultPiperConfig()
	cfg.DataDir = "/voices"
	return cfg
}

func instant(pcm []byte) Synthesizer {
	return SynthesizerFunc(func(context.Context, Request) ([]byte, error) {
		return pcm, nil
	})
}

func newRenderer(t *testing.T, synth Synthesizer, sink *fakeSink) *Renderer {
	t.Helper()
	r, err := New(testConfig(), sink, WithSynthesizer(synth))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func nextEvent(t *testing.T, r *Renderer) tts.Event {
	t.Helper()
	select {
	case ev := <-r.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return tts.Event{}
	}
}

func TestSpeakPlaysSynthesizedAudio(t *testing.T) {
	var got Request
	synth := SynthesizerFunc(func(_ context.Context, req Request) ([]byte, error) {
		got = req
		return []byte{1, 2, 3, 4}, nil
	})
	sink := newFakeSink()
	r := newRenderer(t, synth, sink)

	if err := r.Speak(tts.Utterance{ID: "a", Text: "Hello.", VoiceID: "de_DE-thorsten-low", Rate: 1.5}); err != nil {
		t.Fatalf("Speak failed: %v", err)
	}
	if ev := nextEvent(t, r); ev != tts.Started("a") {
		t.Fatalf("event = %s, want started(a)", ev)
	}

	done := sink.nextPlay(t)
	if got.Model != "/voices/de_DE-thorsten-low.onnx" || got.Rate != 1.5 || got.Text != "Hello." {
		t.Errorf("request = %+v", got)
	}
	if !r.IsSpeaking() {
		t.Error("IsSpeaking() = false during playback")
	}

	done()
	if ev := nextEvent(t, r); ev != tts.Finished("a") {
		t.Errorf("event = %s, want finished(a)", ev)
	}
	if r.IsSpeaking() {
		t.Error("IsSpeaking() = true after playback")
	}
}

func TestSpeakDefaultModel(t *testing.T) {
	models := make(chan string, 1)
	synth := SynthesizerFunc(func(_ context.Context, req Request) ([]byte, error) {
		models <- req.Model
		return []byte{0, 0}, nil
	})
	r := newRenderer(t, synth, newFakeSink())

	_ = r.Speak(tts.Utterance{ID: "a", Text: "x"})
	if got := <-models; got != "/voices/en_US-lessac-medium.onnx" {
		t.Errorf("model = %q", got)
	}
}

func TestSpeakBusyAndClosed(t *testing.T) {
	sink := newFakeSink()
	r := newRenderer(t, instant([]byte{0, 0}), sink)

	_ = r.Speak(tts.Utterance{ID: "a", Text: "x"})
	if err := r.Speak(tts.Utterance{ID: "b", Text: "y"}); !errors.Is(err, tts.ErrRendererBusy) {
		t.Errorf("Speak while busy error = %v", err)
	}

	_ = r.Close()
	if err := r.Speak(tts.Utterance{ID: "c", Text: "z"}); !errors.Is(err, tts.ErrRendererClosed) {
		t.Errorf("Speak after Close error = %v", err)
	}
	if !sink.closed {
		t.Error("sink not closed")
	}
}

func TestStopDuringSynthesis(t *testing.T) {
	cancelled := make(chan struct{})
	synth := SynthesizerFunc(func(ctx context.Context, _ Request) ([]byte, error) {
		<-ctx.Done()
		close(cancelled)
		return nil, ctx.Err()
	})
	sink := newFakeSink()
	r := newRenderer(t, synth, sink)

	_ = r.Speak(tts.Utterance{ID: "a", Text: "x"})
	nextEvent(t, r)

	_ = r.Stop()
	if ev := nextEvent(t, r); ev != tts.Cancelled("a") {
		t.Errorf("event = %s, want cancelled(a)", ev)
	}

	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("synthesis was not cancelled")
	}

	select {
	case ev := <-r.Events():
		t.Errorf("unexpected event after Stop: %s", ev)
	case <-time.After(50 * time.Millisecond):
	}
	if sink.stopped != 0 {
		t.Error("sink stopped although nothing was playing")
	}
}

func TestStopDuringPlayback(t *testing.T) {
	sink := newFakeSink()
	r := newRenderer(t, instant([]byte{0, 0}), sink)

	_ = r.Speak(tts.Utterance{ID: "a", Text: "x"})
	nextEvent(t, r)
	done := sink.nextPlay(t)

	_ = r.Stop()
	if ev := nextEvent(t, r); ev != tts.Cancelled("a") {
		t.Errorf("event = %s, want cancelled(a)", ev)
	}
	if sink.stopped != 1 {
		t.Errorf("sink stopped %d times, want 1", sink.stopped)
	}

	// A late drain of the stopped clip is ignored.
	done()
	select {
	case ev := <-r.Events():
		t.Errorf("unexpected event: %s", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSynthesisFailureFinishes(t *testing.T) {
	synth := SynthesizerFunc(func(context.Context, Request) ([]byte, error) {
		return nil, errors.New("model missing")
	})
	r := newRenderer(t, synth, newFakeSink())

	_ = r.Speak(tts.Utterance{ID: "a", Text: "x"})
	nextEvent(t, r)
	if ev := nextEvent(t, r); ev != tts.Finished("a") {
		t.Errorf("event = %s, want finished(a)", ev)
	}
}

func TestPlaybackFailureFinishes(t *testing.T) {
	sink := newFakeSink()
	sink.playErr = errors.New("no device")
	r := newRenderer(t, instant([]byte{0, 0}), sink)

	_ = r.Speak(tts.Utterance{ID: "a", Text: "x"})
	nextEvent(t, r)
	if ev := nextEvent(t, r); ev != tts.Finished("a") {
		t.Errorf("event = %s, want finished(a)", ev)
	}
}

func TestPauseBeforePlayback(t *testing.T) {
	release := make(chan struct{})
	synthesized := make(chan struct{})
	synth := SynthesizerFunc(func(context.Context, Request) ([]byte, error) {
		<-release
		defer close(synthesized)
		return []byte{0, 0}, nil
	})
	sink := newFakeSink()
	r := newRenderer(t, synth, sink)

	_ = r.Speak(tts.Utterance{ID: "a", Text: "x"})
	nextEvent(t, r)

	if err := r.Pause(); err != nil {
		t.Fatalf("Pause failed: %v", err)
	}
	close(release)
	<-synthesized

	select {
	case <-sink.plays:
		t.Fatal("played while paused")
	case <-time.After(50 * time.Millisecond):
	}

	if err := r.Resume(); err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	sink.nextPlay(t)()
	if ev := nextEvent(t, r); ev != tts.Finished("a") {
		t.Errorf("event = %s, want finished(a)", ev)
	}
}

func TestPauseDuringPlayback(t *testing.T) {
	sink := newFakeSink()
	r := newRenderer(t, instant([]byte{0, 0}), sink)

	_ = r.Speak(tts.Utterance{ID: "a", Text: "x"})
	nextEvent(t, r)
	sink.nextPlay(t)

	_ = r.Pause()
	_ = r.Pause()
	_ = r.Resume()
	if sink.paused != 1 || sink.resumed != 1 {
		t.Errorf("paused %d, resumed %d, want 1 and 1", sink.paused, sink.resumed)
	}
}

func TestControlsWithoutUtterance(t *testing.T) {
	r := newRenderer(t, instant(nil), newFakeSink())

	for name, fn := range map[string]func() error{
		"pause":  r.Pause,
		"resume": r.Resume,
		"adjust": func() error { return r.Adjust(2, 1) },
	} {
		if err := fn(); !errors.Is(err, tts.ErrNotSpeaking) {
			t.Errorf("%s error = %v, want ErrNotSpeaking", name, err)
		}
	}
}

func TestAdjustNotSupported(t *testing.T) {
	sink := newFakeSink()
	r := newRenderer(t, instant([]byte{0, 0}), sink)

	_ = r.Speak(tts.Utterance{ID: "a", Text: "x"})
	if err := r.Adjust(2, 1); !errors.Is(err, tts.ErrNotSupported) {
		t.Errorf("Adjust error = %v, want ErrNotSupported", err)
	}
	if caps := r.Capabilities(); caps.LiveAdjust || caps.MaxTextLength != 1000 {
		t.Errorf("Capabilities() = %+v", caps)
	}
}

func TestArgs(t *testing.T) {
	p := &Process{binary: "piper", cfg: testConfig()}

	tests := []struct {
		name string
		req  Request
		want []string
	}{
		{
			name: "normal rate",
			req:  Request{Model: "/v/m.onnx", Rate: 1},
			want: []string{"--model", "/v/m.onnx", "--output_raw", "--length_scale", "1.000", "--noise_scale", "0.667", "--noise_w", "0.800"},
		},
		{
			name: "double rate with speaker",
			req:  Request{Model: "/v/m.onnx", Rate: 2, Speaker: 3},
			want: []string{"--model", "/v/m.onnx", "--output_raw", "--length_scale", "0.500", "--noise_scale", "0.667", "--noise_w", "0.800", "--speaker", "3"},
		},
		{
			name: "zero rate",
			req:  Request{Model: "/v/m.onnx"},
			want: []string{"--model", "/v/m.onnx", "--output_raw", "--length_scale", "1.000", "--noise_scale", "0.667", "--noise_w", "0.800"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.args(tt.req); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("args() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestModelPath(t *testing.T) {
	tests := []struct {
		voice string
		want  string
	}{
		{"en_US-amy-low", "/voices/en_US-amy-low.onnx"},
		{"custom.onnx", "custom.onnx"},
		{"/opt/models/x", "/opt/models/x"},
	}
	for _, tt := range tests {
		if got := ModelPath("/voices", tt.voice); got != tt.want {
			t.Errorf("ModelPath(%q) = %q, want %q", tt.voice, got, tt.want)
		}
	}
}

func TestListVoices(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"fr_FR-siwis-low.onnx", "en_US-amy-low.onnx", "en_US-amy-low.onnx.json", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o600); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.onnx"), 0o700); err != nil {
		t.Fatal(err)
	}

	voices, err := ListVoices(dir)
	if err != nil {
		t.Fatalf("ListVoices failed: %v", err)
	}
	want := []tts.Voice{
		{ID: "en_US-amy-low", Name: "en_US-amy-low", Language: "en-US"},
		{ID: "fr_FR-siwis-low", Name: "fr_FR-siwis-low", Language: "fr-FR"},
	}
	if !reflect.DeepEqual(voices, want) {
		t.Errorf("ListVoices() = %+v, want %+v", voices, want)
	}

	if _, err := ListVoices(filepath.Join(dir, "missing")); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestFindBinary(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "piper")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o700); err != nil {
		t.Fatal(err)
	}

	if got, err := findBinary(bin); err != nil || got != bin {
		t.Errorf("findBinary(%q) = %q, %v", bin, got, err)
	}
	if _, err := findBinary(filepath.Join(dir, "missing")); !errors.Is(err, ErrBinaryNotFound) {
		t.Errorf("missing path error = %v", err)
	}
	if _, err := findBinary("recite-no-such-piper"); !errors.Is(err, ErrBinaryNotFound) {
		t.Errorf("missing name error = %v", err)
	}
}

func TestNewWithoutBinary(t *testing.T) {
	cfg := testConfig()
	cfg.Binary = "recite-no-such-piper"
	if _, err := New(cfg, newFakeSink()); !errors.Is(err, ErrBinaryNotFound) {
		t.Errorf("New error = %v, want ErrBinaryNotFound", err)
	}
}
