package audio

import (
	"testing"
	"time"
)

// TestConfigValidate tests configuration validation.
func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"default", func(*Config) {}, false},
		{"stereo", func(c *Config) { c.Channels = 2 }, false},
		{"low sample rate", func(c *Config) { c.SampleRate = 4000 }, true},
		{"high sample rate", func(c *Config) { c.SampleRate = 192000 }, true},
		{"no channels", func(c *Config) { c.Channels = 0 }, true},
		{"surround", func(c *Config) { c.Channels = 6 }, true},
		{"zero poll", func(c *Config) { c.Poll = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// TestConfigDuration tests the playing time of PCM buffers.
func TestConfigDuration(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		bytes    int
		expected time.Duration
	}{
		{"one second mono", Config{SampleRate: 22050, Channels: 1}, 44100, time.Second},
		{"half second stereo", Config{SampleRate: 16000, Channels: 2}, 32000, 500 * time.Millisecond},
		{"empty", Config{SampleRate: 22050, Channels: 1}, 0, 0},
		{"odd byte", Config{SampleRate: 1000, Channels: 1}, 3, time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.Duration(make([]byte, tt.bytes)); got != tt.expected {
				t.Errorf("Duration() = %v, want %v", got, tt.expected)
			}
		})
	}
}

// TestStateString tests state names.
func TestStateString(t *testing.T) {
	tests := map[State]string{
		StateStopped: "stopped",
		StatePlaying: "playing",
		StatePaused:  "paused",
		StateClosed:  "closed",
		State(42):    "unknown",
	}
	for state, want := range tests {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", int(state), got, want)
		}
	}
}

// TestNewPlayerInvalidConfig tests that the device is not opened for a bad config.
func TestNewPlayerInvalidConfig(t *testing.T) {
	if _, err := NewPlayer(Config{SampleRate: 1, Channels: 1, Poll: time.Millisecond}); err == nil {
		t.Error("expected error for invalid config")
	}
}
