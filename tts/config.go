package tts

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	gap "github.com/muesli/go-app-paths"
)

// Engine names accepted by the configuration.
const (
	EngineMock  = "mock"
	EnginePiper = "piper"
)

// Config contains all speech configuration options.
type Config struct {
	// Renderer selection
	Engine string `yaml:"engine"`
	Voice  string `yaml:"voice"`

	// Playback settings
	Rate           float64 `yaml:"rate"`
	Pitch          float64 `yaml:"pitch"`
	Language       string  `yaml:"language"`
	MaxChunkLength int     `yaml:"max_chunk_length"`

	// Renderer-specific configurations
	Piper PiperConfig `yaml:"piper"`
	Mock  MockConfig  `yaml:"mock"`
}

// PiperConfig contains Piper renderer settings.
type PiperConfig struct {
	Binary      string        `yaml:"binary"`
	DataDir     string        `yaml:"data_dir"`
	Model       string        `yaml:"model"`
	SpeakerID   int           `yaml:"speaker_id"`
	SampleRate  int           `yaml:"sample_rate"`
	NoiseScale  float64       `yaml:"noise_scale"`
	NoiseW      float64       `yaml:"noise_w"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxTextSize int           `yaml:"max_text_size"`
}

// MockConfig contains settings of the simulated renderer.
type MockConfig struct {
	CharsPerSecond float64 `yaml:"chars_per_second"`
	Speedup        float64 `yaml:"speedup"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Engine:         EngineMock,
		Rate:           1.0,
		Pitch:          1.0,
		Language:       "en",
		MaxChunkLength: 400,

		Piper: DefaultPiperConfig(),
		Mock:  DefaultMockConfig(),
	}
}

// DefaultPiperConfig returns default Piper configuration.
func DefaultPiperConfig() PiperConfig {
	scope := gap.NewScope(gap.User, "recite")
	dir, err := scope.DataPath("voices")
	if err != nil {
		dir = filepath.Join("~", ".local", "share", "recite", "voices")
	}

	return PiperConfig{
		Binary:      "piper",
		DataDir:     dir,
		Model:       "en_US-lessac-medium",
		SampleRate:  22050,
		NoiseScale:  0.667,
		NoiseW:      0.8,
		Timeout:     30 * time.Second,
		MaxTextSize: 1000,
	}
}

// DefaultMockConfig returns default mock renderer configuration.
func DefaultMockConfig() MockConfig {
	return MockConfig{
		CharsPerSecond: CharactersPerSecond,
		Speedup:        1.0,
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	validEngines := []string{EngineMock, EnginePiper}
	engineValid := false
	for _, e := range validEngines {
		if strings.EqualFold(c.Engine, e) {
			engineValid = true
			c.Engine = strings.ToLower(c.Engine)
			break
		}
	}
	if !engineValid {
		return fmt.Errorf("%w: engine %q must be one of %v", ErrUnknownEngine, c.Engine, validEngines)
	}

	if c.Rate < MinRate || c.Rate > MaxRate {
		return fmt.Errorf("%w: rate must be between %.1f and %.1f, got %f", ErrInvalidConfig, MinRate, MaxRate, c.Rate)
	}
	if c.Pitch < MinPitch || c.Pitch > MaxPitch {
		return fmt.Errorf("%w: pitch must be between %.1f and %.1f, got %f", ErrInvalidConfig, MinPitch, MaxPitch, c.Pitch)
	}
	if c.MaxChunkLength < 0 {
		return fmt.Errorf("%w: max_chunk_length cannot be negative", ErrInvalidConfig)
	}
	if c.Language == "" {
		c.Language = "en"
	}

	switch c.Engine {
	case EnginePiper:
		if err := c.Piper.Validate(); err != nil {
			return fmt.Errorf("piper config: %w", err)
		}
	case EngineMock:
		if err := c.Mock.Validate(); err != nil {
			return fmt.Errorf("mock config: %w", err)
		}
	}

	return nil
}

// Validate checks if the Piper configuration is valid.
func (c *PiperConfig) Validate() error {
	if c.Binary == "" {
		return fmt.Errorf("%w: piper binary path cannot be empty", ErrInvalidConfig)
	}
	if c.Model == "" {
		return fmt.Errorf("%w: piper model cannot be empty", ErrInvalidConfig)
	}

	validSampleRates := []int{16000, 22050, 24000, 44100, 48000}
	sampleRateValid := false
	for _, sr := range validSampleRates {
		if c.SampleRate == sr {
			sampleRateValid = true
			break
		}
	}
	if !sampleRateValid {
		return fmt.Errorf("%w: sample rate %d must be one of %v", ErrInvalidConfig, c.SampleRate, validSampleRates)
	}

	if c.NoiseScale < 0 || c.NoiseScale > 2.0 {
		return fmt.Errorf("%w: noise_scale must be between 0.0 and 2.0, got %f", ErrInvalidConfig, c.NoiseScale)
	}
	if c.NoiseW < 0 || c.NoiseW > 2.0 {
		return fmt.Errorf("%w: noise_w must be between 0.0 and 2.0, got %f", ErrInvalidConfig, c.NoiseW)
	}
	if c.Timeout < time.Second {
		return fmt.Errorf("%w: timeout must be at least 1 second, got %v", ErrInvalidConfig, c.Timeout)
	}

	return nil
}

// Validate checks if the mock configuration is valid.
func (c *MockConfig) Validate() error {
	if c.CharsPerSecond <= 0 {
		return fmt.Errorf("%w: chars_per_second must be positive", ErrInvalidConfig)
	}
	if c.Speedup <= 0 {
		return fmt.Errorf("%w: speedup must be positive", ErrInvalidConfig)
	}
	return nil
}
