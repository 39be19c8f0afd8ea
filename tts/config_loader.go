package tts

import (
	"fmt"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// LoadConfigFromViper loads speech configuration from Viper.
func LoadConfigFromViper() (Config, error) {
	cfg := DefaultConfig()

	if viper.IsSet("tts.engine") {
		cfg.Engine = viper.GetString("tts.engine")
	}
	if viper.IsSet("tts.voice") {
		cfg.Voice = viper.GetString("tts.voice")
	}

	// Playback settings
	if viper.IsSet("tts.rate") {
		cfg.Rate = viper.GetFloat64("tts.rate")
	}
	if viper.IsSet("tts.pitch") {
		cfg.Pitch = viper.GetFloat64("tts.pitch")
	}
	if viper.IsSet("tts.language") {
		cfg.Language = viper.GetString("tts.language")
	}
	if viper.IsSet("tts.max_chunk_length") {
		cfg.MaxChunkLength = viper.GetInt("tts.max_chunk_length")
	}

	cfg.Piper = loadPiperConfig()
	cfg.Mock = loadMockConfig()

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid speech configuration: %w", err)
	}

	return cfg, nil
}

// loadPiperConfig loads Piper-specific configuration from Viper.
func loadPiperConfig() PiperConfig {
	cfg := DefaultPiperConfig()

	if viper.IsSet("tts.piper.binary") {
		cfg.Binary = viper.GetString("tts.piper.binary")
	}
	if viper.IsSet("tts.piper.data_dir") {
		cfg.DataDir = viper.GetString("tts.piper.data_dir")
	}
	if viper.IsSet("tts.piper.model") {
		cfg.Model = viper.GetString("tts.piper.model")
	}
	if viper.IsSet("tts.piper.speaker_id") {
		cfg.SpeakerID = viper.GetInt("tts.piper.speaker_id")
	}
	if viper.IsSet("tts.piper.sample_rate") {
		cfg.SampleRate = viper.GetInt("tts.piper.sample_rate")
	}
	if viper.IsSet("tts.piper.noise_scale") {
		cfg.NoiseScale = viper.GetFloat64("tts.piper.noise_scale")
	}
	if viper.IsSet("tts.piper.noise_w") {
		cfg.NoiseW = viper.GetFloat64("tts.piper.noise_w")
	}
	if viper.IsSet("tts.piper.timeout") {
		if d, err := time.ParseDuration(viper.GetString("tts.piper.timeout")); err == nil {
			cfg.Timeout = d
		}
	}
	if viper.IsSet("tts.piper.max_text_size") {
		cfg.MaxTextSize = viper.GetInt("tts.piper.max_text_size")
	}

	if dir, err := homedir.Expand(cfg.DataDir); err == nil {
		cfg.DataDir = dir
	}

	return cfg
}

// loadMockConfig loads mock renderer configuration from Viper.
func loadMockConfig() MockConfig {
	cfg := DefaultMockConfig()

	if viper.IsSet("tts.mock.chars_per_second") {
		cfg.CharsPerSecond = viper.GetFloat64("tts.mock.chars_per_second")
	}
	if viper.IsSet("tts.mock.speedup") {
		cfg.Speedup = viper.GetFloat64("tts.mock.speedup")
	}

	return cfg
}

// SetDefaults sets default values in Viper for the speech configuration.
func SetDefaults() {
	defaults := DefaultConfig()

	viper.SetDefault("tts.engine", defaults.Engine)
	viper.SetDefault("tts.rate", defaults.Rate)
	viper.SetDefault("tts.pitch", defaults.Pitch)
	viper.SetDefault("tts.language", defaults.Language)
	viper.SetDefault("tts.max_chunk_length", defaults.MaxChunkLength)

	// Piper defaults
	viper.SetDefault("tts.piper.binary", defaults.Piper.Binary)
	viper.SetDefault("tts.piper.data_dir", defaults.Piper.DataDir)
	viper.SetDefault("tts.piper.model", defaults.Piper.Model)
	viper.SetDefault("tts.piper.speaker_id", defaults.Piper.SpeakerID)
	viper.SetDefault("tts.piper.sample_rate", defaults.Piper.SampleRate)
	viper.SetDefault("tts.piper.noise_scale", defaults.Piper.NoiseScale)
	viper.SetDefault("tts.piper.noise_w", defaults.Piper.NoiseW)
	viper.SetDefault("tts.piper.timeout", defaults.Piper.Timeout.String())
	viper.SetDefault("tts.piper.max_text_size", defaults.Piper.MaxTextSize)

	// Mock defaults
	viper.SetDefault("tts.mock.chars_per_second", defaults.Mock.CharsPerSecond)
	viper.SetDefault("tts.mock.speedup", defaults.Mock.Speedup)
}
