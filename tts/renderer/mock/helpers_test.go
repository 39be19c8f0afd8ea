package mock

import (
	"context"
	"testing"
	"time"

	"github.com/dgnsrekt/recite/tts"
)

type segmenterFunc func(string) []tts.SpeechChunk

func (f segmenterFunc) Segment(text string) []tts.SpeechChunk { return f(text) }

func contextWithTimeout(t *testing.T) (context.Context, context.CancelFunc) {
	t.Helper()
	return context.WithTimeout(context.Background(), 5*time.Second)
}
