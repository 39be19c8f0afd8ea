package ui

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/recite/tts"
)

// RunHeadless plays a book without a terminal UI, writing each chunk to w as
// it is spoken. It returns when the last chapter finishes or ctx is done;
// progress is saved after every chapter and on the way out.
func RunHeadless(ctx context.Context, w io.Writer, engine *tts.Engine, opts Options) error {
	s := newSession(opts)
	if len(s.book.Chapters) == 0 {
		return errors.New("book has no chapters")
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		if err := engine.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("engine stopped", "error", err)
		}
	}()

	save := func() {
		if err := s.save(context.WithoutCancel(ctx), opts.Store); err != nil {
			log.Error("could not save progress", "book", s.book.ID, "error", err)
		}
	}
	defer save()

	play := func() {
		c := s.chapter()
		_, _ = fmt.Fprintf(w, "\n== %s (%d/%d) ==\n\n", c.Title, s.ordinal, len(s.book.Chapters))
		engine.SpeakFrom(c.Body, opts.Voice, opts.Rate, opts.Pitch, s.startChunk(s.ordinal))
	}
	play()

	printed := -1
	for {
		select {
		case <-ctx.Done():
			engine.Stop()
			return nil

		case snap := <-engine.Updates():
			if snap.Err != nil {
				engine.Stop()
				return fmt.Errorf("speech failed: %w", snap.Err)
			}

			if snap.State == tts.StateSpeaking && snap.Index != printed {
				printed = snap.Index
				_, _ = fmt.Fprintf(w, "[%d/%d] %s\n", snap.Index+1, snap.Total, snap.Chunk.Text)
			}

			if !s.record(snap) {
				if snap.State == tts.StateIdle && snap.Total == 0 {
					// Nothing speakable in this chapter.
					s.finish()
				} else {
					continue
				}
			}

			save()
			if !s.hasNext() {
				return nil
			}
			s.seek(s.ordinal + 1)
			printed = -1
			play()
		}
	}
}
