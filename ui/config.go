package ui

import "time"

// Config contains TUI-specific configuration.
type Config struct {
	// Wrap the chapter text at this width (0 follows the terminal)
	Width uint `env:"RECITE_WIDTH" envDefault:"80"`

	// How often progress is written to the library while playing
	SaveInterval time.Duration `env:"RECITE_SAVE_INTERVAL" envDefault:"5s"`

	EnableMouse bool `env:"RECITE_MOUSE"`
	AltScreen   bool `env:"RECITE_ALT_SCREEN" envDefault:"true"`

	// Rate and pitch change per key press
	RateStep  float64 `env:"RECITE_RATE_STEP"  envDefault:"0.1"`
	PitchStep float64 `env:"RECITE_PITCH_STEP" envDefault:"0.05"`
}
