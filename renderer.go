package main

import (
	"fmt"

	"github.com/charmbracelet/log"
	"golang.org/x/text/language"

	"github.com/dgnsrekt/recite/tts"
	"github.com/dgnsrekt/recite/tts/audio"
	"github.com/dgnsrekt/recite/tts/renderer/mock"
	"github.com/dgnsrekt/recite/tts/renderer/piper"
	"github.com/dgnsrekt/recite/tts/segment"
	"github.com/dgnsrekt/recite/tts/sentence"
)

// newRenderer creates the renderer named by cfg.Engine. The caller closes it.
func newRenderer(cfg tts.Config) (tts.Renderer, error) {
	switch cfg.Engine {
	case tts.EngineMock:
		return mock.New(cfg.Mock), nil

	case tts.EnginePiper:
		acfg := audio.DefaultConfig()
		acfg.SampleRate = cfg.Piper.SampleRate
		player, err := audio.NewPlayer(acfg)
		if err != nil {
			return nil, fmt.Errorf("unable to open audio device: %w", err)
		}
		r, err := piper.New(cfg.Piper, player, piper.WithLogger(log.Default().WithPrefix("piper")))
		if err != nil {
			_ = player.Close()
			return nil, fmt.Errorf("unable to start piper: %w", err)
		}
		return r, nil

	default:
		return nil, fmt.Errorf("%w: %s", tts.ErrUnknownEngine, cfg.Engine)
	}
}

// newSegmenter builds the chunk segmenter for a language. Chunks never
// exceed what the renderer accepts.
func newSegmenter(lang string, maxChunk int, caps tts.Capabilities) *segment.Segmenter {
	tag, err := language.Parse(lang)
	if err != nil {
		log.Warn("unknown language, using English sentence rules", "language", lang)
		tag = language.English
	}

	if caps.MaxTextLength > 0 && (maxChunk == 0 || caps.MaxTextLength < maxChunk) {
		maxChunk = caps.MaxTextLength
	}
	return segment.New(sentence.New(tag), segment.WithMaxChunkLength(maxChunk))
}
