package tts

import (
	"errors"
	"testing"
)

func TestRendererError(t *testing.T) {
	tests := []struct {
		name string
		err  *RendererError
		msg  string
	}{
		{"wrapped", &RendererError{Err: ErrRendererBusy, Action: "speak", ChunkID: "c1"}, "renderer speak: speech renderer is busy"},
		{"bare", &RendererError{Action: "pause"}, "renderer pause failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.msg {
				t.Errorf("expected %q, got %q", tt.msg, got)
			}
		})
	}

	var err error = &RendererError{Err: ErrNotSupported, Action: "adjust"}
	if !errors.Is(err, ErrNotSupported) {
		t.Error("expected errors.Is to see through RendererError")
	}
	var re *RendererError
	if !errors.As(err, &re) || re.Action != "adjust" {
		t.Error("expected errors.As to find the RendererError")
	}
}
