// Package audio plays raw PCM speech through the system audio device.
package audio

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// Sink plays one PCM clip at a time.
type Sink interface {
	// Play starts pcm and calls onDone when it plays to the end. onDone is
	// not called for clips that are stopped.
	Play(pcm []byte, onDone func()) error
	Pause() error
	Resume() error
	Stop() error
	Close() error
}

// State is the playback state of a Player.
type State int

const (
	StateStopped State = iota
	StatePlaying
	StatePaused
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Config contains configuration for the audio player.
type Config struct {
	SampleRate int           // Hz, must match the synthesizer output
	Channels   int           // 1 = mono, 2 = stereo
	BufferSize time.Duration // Device buffer
	Poll       time.Duration // Completion polling interval
}

// DefaultConfig returns the default player configuration.
func DefaultConfig() Config {
	return Config{
		SampleRate: 22050,
		Channels:   1,
		BufferSize: 100 * time.Millisecond,
		Poll:       20 * time.Millisecond,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.SampleRate < 8000 || c.SampleRate > 96000 {
		return fmt.Errorf("sample rate must be between 8000 and 96000 Hz, got %d", c.SampleRate)
	}
	if c.Channels != 1 && c.Channels != 2 {
		return fmt.Errorf("channels must be 1 (mono) or 2 (stereo), got %d", c.Channels)
	}
	if c.Poll <= 0 {
		return errors.New("poll interval must be positive")
	}
	return nil
}

// Duration returns the playing time of 16-bit pcm.
func (c Config) Duration(pcm []byte) time.Duration {
	samples := len(pcm) / (c.Channels * 2)
	return time.Duration(samples) * time.Second / time.Duration(c.SampleRate)
}

// The device allows a single context per process.
var (
	contextOnce sync.Once
	context     *oto.Context
	contextRate int
	contextErr  error
)

func sharedContext(cfg Config) (*oto.Context, error) {
	contextOnce.Do(func() {
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   cfg.SampleRate,
			ChannelCount: cfg.Channels,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   cfg.BufferSize,
		})
		if err != nil {
			contextErr = fmt.Errorf("failed to create oto context: %w", err)
			return
		}
		<-ready
		context, contextRate = ctx, cfg.SampleRate
	})
	if contextErr != nil {
		return nil, contextErr
	}
	if contextRate != cfg.SampleRate {
		return nil, fmt.Errorf("audio device already opened at %d Hz, want %d Hz", contextRate, cfg.SampleRate)
	}
	return context, nil
}

// Player plays PCM through oto.
type Player struct {
	cfg     Config
	context *oto.Context

	mu     sync.Mutex
	player *oto.Player
	data   []byte // kept alive while oto reads it
	state  State
	gen    int
	volume float64
}

// NewPlayer opens the audio device.
func NewPlayer(cfg Config) (*Player, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	ctx, err := sharedContext(cfg)
	if err != nil {
		return nil, err
	}

	return &Player{
		cfg:     cfg,
		context: ctx,
		volume:  1.0,
	}, nil
}

// Play replaces the current clip with pcm.
func (p *Player) Play(pcm []byte, onDone func()) error {
	if len(pcm) == 0 {
		return errors.New("audio data is empty")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == StateClosed {
		return errors.New("player is closed")
	}
	p.stopLocked()

	p.data = make([]byte, len(pcm))
	copy(p.data, pcm)

	pl := p.context.NewPlayer(bytes.NewReader(p.data))
	pl.SetVolume(p.volume)
	pl.Play()

	p.player = pl
	p.state = StatePlaying
	p.gen++
	go p.watch(p.gen, onDone)

	return nil
}

// watch calls onDone once the clip of generation gen drains.
func (p *Player) watch(gen int, onDone func()) {
	ticker := time.NewTicker(p.cfg.Poll)
	defer ticker.Stop()

	for range ticker.C {
		p.mu.Lock()
		if gen != p.gen || p.state == StateStopped || p.state == StateClosed {
			p.mu.Unlock()
			return
		}
		if p.state == StatePaused || p.player.IsPlaying() {
			p.mu.Unlock()
			continue
		}

		p.stopLocked()
		p.mu.Unlock()

		if onDone != nil {
			onDone()
		}
		return
	}
}

// Pause pauses the current clip.
func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StatePlaying {
		return fmt.Errorf("cannot pause: player is %s", p.state)
	}
	p.player.Pause()
	p.state = StatePaused
	return nil
}

// Resume continues a paused clip.
func (p *Player) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StatePaused {
		return fmt.Errorf("cannot resume: player is %s", p.state)
	}
	p.player.Play()
	p.state = StatePlaying
	return nil
}

// Stop discards the current clip.
func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()
	return nil
}

// SetVolume sets the playback volume (0.0 to 1.0).
func (p *Player) SetVolume(volume float64) error {
	if volume < 0.0 || volume > 1.0 {
		return fmt.Errorf("volume must be between 0.0 and 1.0, got %f", volume)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.volume = volume
	if p.player != nil {
		p.player.SetVolume(volume)
	}
	return nil
}

// State returns the playback state.
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Close releases the player. The shared device stays open.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()
	p.state = StateClosed
	return nil
}

func (p *Player) stopLocked() {
	if p.player != nil {
		p.player.Pause()
		_ = p.player.Close()
		p.player = nil
	}
	p.data = nil
	p.gen++
	if p.state != StateClosed {
		p.state = StateStopped
	}
}
