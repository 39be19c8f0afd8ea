package ui

import (
	"context"
	"maps"

	"github.com/dgnsrekt/recite/chapter"
	"github.com/dgnsrekt/recite/internal/library"
	"github.com/dgnsrekt/recite/tts"
)

// ProgressStore persists listening progress.
type ProgressStore interface {
	SetProgress(ctx context.Context, id string, p library.Progress) error
}

// Options describe what to play.
type Options struct {
	Book     library.Book
	Progress library.Progress
	Chapter  int // 1-based; 0 continues from the stored progress
	Voice    string
	Rate     float64
	Pitch    float64
	Store    ProgressStore // nil disables saving
}

// session tracks the chapter being played and the progress through the
// book. It is shared by the TUI and the headless player.
type session struct {
	book     library.Book
	progress library.Progress
	ordinal  int
}

func newSession(opts Options) *session {
	p := opts.Progress
	if p.Chapters == nil {
		p.Chapters = make(map[int]library.ChapterProgress)
	}

	ord := opts.Chapter
	if ord == 0 {
		ord = p.Current
	}
	if ord < 1 || ord > len(opts.Book.Chapters) {
		ord = 1
	}
	return &session{book: opts.Book, progress: p, ordinal: ord}
}

func (s *session) chapter() chapter.Chapter {
	c, _ := s.book.Chapter(s.ordinal)
	return c
}

// startChunk is where playback of a chapter resumes. Finished chapters
// start over.
func (s *session) startChunk(ord int) int {
	cp := s.progress.Chapter(ord)
	if cp.Finished {
		return 0
	}
	return cp.Chunk
}

func (s *session) hasNext() bool {
	return s.ordinal < len(s.book.Chapters)
}

// record folds a snapshot into the progress. It reports whether the
// chapter has just been spoken to the end.
func (s *session) record(snap tts.Snapshot) bool {
	switch {
	case snap.Completed:
		s.finish()
		return true
	case snap.State.IsActive() && snap.Total > 0:
		s.progress.Set(s.ordinal, library.ChapterProgress{Chunk: snap.Index, Fraction: snap.Progress})
	}
	return false
}

func (s *session) finish() {
	s.progress.Set(s.ordinal, library.ChapterProgress{Finished: true, Fraction: 1})
}

// seek moves to another chapter, keeping the current chapter's position.
func (s *session) seek(ord int) bool {
	if ord < 1 || ord > len(s.book.Chapters) {
		return false
	}
	s.ordinal = ord
	s.progress.Current = ord
	return true
}

// snapshot returns a copy of the progress that is safe to hand to another
// goroutine.
func (s *session) snapshot() library.Progress {
	p := s.progress
	p.Chapters = maps.Clone(s.progress.Chapters)
	return p
}

func (s *session) save(ctx context.Context, store ProgressStore) error {
	if store == nil || s.book.ID == "" {
		return nil
	}
	return store.SetProgress(ctx, s.book.ID, s.snapshot())
}
