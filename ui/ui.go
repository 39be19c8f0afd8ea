// Package ui provides the player TUI for recite.
package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/muesli/reflow/ansi"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/termenv"
	"golang.org/x/time/rate"

	"github.com/dgnsrekt/recite/tts"
)

const (
	statusMessageTimeout = time.Second * 3 // how long to show status messages like "copied"
	saveTimeout          = time.Second * 5
	ellipsis             = "…"
	headerHeight         = 2
	footerHeight         = 2 // progress bar and status bar
)

// NewProgram returns a new Tea program playing a book on engine. The engine's
// renderer stays owned by the caller.
func NewProgram(cfg Config, engine *tts.Engine, opts Options) *tea.Program {
	log.Debug("starting player",
		"book", opts.Book.ID,
		"chapter", opts.Chapter,
		"save_interval", cfg.SaveInterval,
	)

	var popts []tea.ProgramOption
	if cfg.AltScreen {
		popts = append(popts, tea.WithAltScreen())
	}
	if cfg.EnableMouse {
		popts = append(popts, tea.WithMouseCellMotion())
	}
	return tea.NewProgram(newModel(cfg, engine, opts), popts...)
}

type (
	statusMessageTimeoutMsg struct{ id int }
	progressSavedMsg        struct {
		err   error
		final bool
	}
)

type model struct {
	cfg     Config
	engine  *tts.Engine
	store   ProgressStore
	session *session
	voice   string
	rate    float64
	pitch   float64

	ctx    context.Context
	cancel context.CancelFunc
	saver  *rate.Limiter

	keys     keyMap
	help     help.Model
	spinner  spinner.Model
	progress progress.Model
	viewport viewport.Model

	width    int
	height   int
	snap     tts.Snapshot
	offset   int // byte offset of the highlighted chunk in the chapter body
	finished bool
	quitting bool

	statusMessage string
	statusIsError bool
	statusID      int
}

func newModel(cfg Config, engine *tts.Engine, opts Options) model {
	ctx, cancel := context.WithCancel(context.Background())

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(fuchsia)

	if opts.Rate <= 0 {
		opts.Rate = 1
	}
	if opts.Pitch <= 0 {
		opts.Pitch = 1
	}

	m := model{
		cfg:      cfg,
		engine:   engine,
		store:    opts.Store,
		session:  newSession(opts),
		voice:    opts.Voice,
		rate:     opts.Rate,
		pitch:    opts.Pitch,
		ctx:      ctx,
		cancel:   cancel,
		saver:    rate.NewLimiter(rate.Every(cfg.SaveInterval), 1),
		keys:     newKeyMap(),
		help:     help.New(),
		spinner:  sp,
		progress: progress.New(progress.WithDefaultGradient()),
		viewport: viewport.New(0, 0),
	}
	m.render()
	return m
}

func (m model) Init() tea.Cmd {
	c := m.session.chapter()
	return tea.Batch(
		tts.RunEngineCmd(m.ctx, m.engine),
		tts.WaitForUpdateCmd(m.engine),
		tts.SpeakCmd(m.engine, c.Body, m.voice, m.rate, m.pitch, m.session.startChunk(m.session.ordinal)),
		m.spinner.Tick,
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.setSize()
		m.render()

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)

	case tts.UpdateMsg:
		cmds = append(cmds, m.handleSnapshot(msg.Snapshot), tts.WaitForUpdateCmd(m.engine))

	case tts.ErrorMsg:
		log.Error("speech error", "action", msg.Action, "error", msg.Error)
		cmds = append(cmds, m.showStatusMessage(msg.Action+" failed: "+msg.Error.Error(), true))

	case tts.EngineStoppedMsg:
		if msg.Err != nil && !errors.Is(msg.Err, context.Canceled) {
			log.Error("engine stopped", "error", msg.Err)
		}
		if !m.quitting {
			m.quitting = true
			return m, m.saveCmd(true)
		}

	case progressSavedMsg:
		if msg.err != nil {
			log.Error("could not save progress", "book", m.session.book.ID, "error", msg.err)
			cmds = append(cmds, m.showStatusMessage("Could not save progress", true))
		}
		if m.quitting && msg.final {
			m.cancel()
			return m, tea.Quit
		}

	case statusMessageTimeoutMsg:
		if msg.id == m.statusID {
			m.statusMessage = ""
			m.statusIsError = false
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		m.engine.Stop()
		return m, m.saveCmd(true)

	case key.Matches(msg, m.keys.PlayPause):
		switch m.snap.State {
		case tts.StateSpeaking:
			m.engine.Pause()
		case tts.StatePaused:
			m.engine.Resume()
		default:
			m.play(m.session.startChunk(m.session.ordinal))
		}

	case key.Matches(msg, m.keys.Next):
		m.engine.SkipToNext()

	case key.Matches(msg, m.keys.Prev):
		m.engine.SkipToPrevious()

	case key.Matches(msg, m.keys.NextChapter):
		return m, m.changeChapter(1)

	case key.Matches(msg, m.keys.PrevChapter):
		return m, m.changeChapter(-1)

	case key.Matches(msg, m.keys.Faster):
		m.engine.UpdateRate(m.rate + m.cfg.RateStep)

	case key.Matches(msg, m.keys.Slower):
		m.engine.UpdateRate(m.rate - m.cfg.RateStep)

	case key.Matches(msg, m.keys.PitchUp):
		m.engine.UpdatePitch(m.pitch + m.cfg.PitchStep)

	case key.Matches(msg, m.keys.PitchDown):
		m.engine.UpdatePitch(m.pitch - m.cfg.PitchStep)

	case key.Matches(msg, m.keys.Stop):
		m.engine.Stop()
		return m, m.saveCmd(false)

	case key.Matches(msg, m.keys.Restart):
		m.play(0)

	case key.Matches(msg, m.keys.Copy):
		text := strings.TrimSpace(m.snap.Chunk.Text)
		if text == "" {
			return m, nil
		}
		// Copy using OSC 52
		termenv.Copy(text)
		// Copy using native system clipboard
		_ = clipboard.WriteAll(text)
		return m, m.showStatusMessage("Copied chunk", false)

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.setSize()

	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	return m, nil
}

// handleSnapshot records progress and moves on to the next chapter when the
// current one has been spoken to the end.
func (m *model) handleSnapshot(snap tts.Snapshot) tea.Cmd {
	m.snap = snap
	if snap.Rate > 0 {
		m.rate = snap.Rate
	}
	if snap.Pitch > 0 {
		m.pitch = snap.Pitch
	}

	var cmds []tea.Cmd
	if snap.Err != nil {
		cmds = append(cmds, m.showStatusMessage("Speech failed: "+snap.Err.Error(), true))
	}

	finished := m.session.record(snap)
	if !finished && snap.State == tts.StateIdle && snap.Total == 0 {
		// Nothing speakable in this chapter.
		m.session.finish()
		finished = true
	}
	if !finished {
		m.render()
		if snap.State.IsActive() && m.saver.Allow() {
			cmds = append(cmds, m.saveCmd(false))
		}
		return tea.Batch(cmds...)
	}

	log.Debug("chapter finished", "book", m.session.book.ID, "chapter", m.session.ordinal)
	if !m.session.hasNext() {
		m.finished = true
		m.render()
		return tea.Batch(append(cmds, m.saveCmd(false), m.showStatusMessage("Finished "+m.session.book.Title, false))...)
	}

	m.session.seek(m.session.ordinal + 1)
	m.play(m.session.startChunk(m.session.ordinal))
	return tea.Batch(append(cmds, m.saveCmd(false))...)
}

// play speaks the current chapter from chunk start.
func (m *model) play(start int) {
	c := m.session.chapter()
	m.finished = false
	m.offset = 0
	m.snap.Chunk = tts.SpeechChunk{}
	m.engine.SpeakFrom(c.Body, m.voice, m.rate, m.pitch, start)
	m.render()
	m.viewport.GotoTop()
}

func (m *model) changeChapter(delta int) tea.Cmd {
	ord := m.session.ordinal + delta
	if !m.session.seek(ord) {
		if delta > 0 {
			return m.showStatusMessage("Last chapter", false)
		}
		return m.showStatusMessage("First chapter", false)
	}
	m.play(m.session.startChunk(ord))
	return m.saveCmd(false)
}

// saveCmd writes a copy of the progress in the background.
func (m model) saveCmd(final bool) tea.Cmd {
	store, id := m.store, m.session.book.ID
	p := m.session.snapshot()
	return func() tea.Msg {
		if store == nil || id == "" {
			return progressSavedMsg{final: final}
		}
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		return progressSavedMsg{err: store.SetProgress(ctx, id, p), final: final}
	}
}

func (m *model) showStatusMessage(msg string, isError bool) tea.Cmd {
	m.statusID++
	m.statusMessage = msg
	m.statusIsError = isError
	id := m.statusID
	return tea.Tick(statusMessageTimeout, func(time.Time) tea.Msg {
		return statusMessageTimeoutMsg{id: id}
	})
}

func (m *model) setSize() {
	m.viewport.Width = m.width
	m.viewport.Height = max(0, m.height-headerHeight-footerHeight-lipgloss.Height(m.helpView()))
	m.progress.Width = max(10, m.width-2)
	m.help.Width = m.width
}

func (m model) wrapWidth() uint {
	w := m.cfg.Width
	if m.width > 2 && (w == 0 || w > uint(m.width-2)) { //nolint:gosec
		w = uint(m.width - 2) //nolint:gosec
	}
	return w
}

// render puts the chapter text into the viewport with the chunk being
// spoken highlighted, scrolled so the chunk sits in the upper third.
func (m *model) render() {
	body := m.session.chapter().Body
	start, end := locate(body, m.snap.Chunk.Text, m.offset)
	if start >= 0 {
		m.offset = start
	}

	content, line := highlight(body, start, end, m.wrapWidth())
	m.viewport.SetContent(content)
	if start >= 0 {
		m.viewport.SetYOffset(max(0, line-m.viewport.Height/3))
	}
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.headerView() + "\n\n")
	b.WriteString(m.viewport.View() + "\n")
	b.WriteString(" " + m.progress.ViewAs(m.chapterFraction()) + "\n")
	b.WriteString(m.statusBarView())
	if h := m.helpView(); h != "" {
		b.WriteString("\n" + h)
	}
	return b.String()
}

func (m model) headerView() string {
	c := m.session.chapter()
	title := titleStyle(truncate.StringWithTail(m.session.book.Title, uint(max(10, m.width/2)), ellipsis)) //nolint:gosec
	chap := chapterStyle(fmt.Sprintf("%d/%d · %s", m.session.ordinal, len(m.session.book.Chapters), c.Title))
	return truncate.StringWithTail(title+chap, uint(max(0, m.width)), ellipsis) //nolint:gosec
}

func (m model) chapterFraction() float64 {
	if m.finished || m.snap.Completed {
		return 1
	}
	return m.session.progress.Chapter(m.session.ordinal).Fraction
}

func (m model) statusBarView() string {
	style := statusBarNoteStyle
	note := statusLine(m.snap)
	switch {
	case m.statusMessage != "" && m.statusIsError:
		style, note = statusBarErrorStyle, m.statusMessage
	case m.statusMessage != "":
		style, note = statusBarMessageStyle, m.statusMessage
	case m.finished:
		note = "finished · space to listen again"
	}

	prefix := "  "
	if m.snap.State == tts.StateSpeaking {
		prefix = m.spinner.View() + " "
	}

	note = truncate.StringWithTail(" "+note+" ", uint(max(0, m.width-ansi.PrintableRuneWidth(prefix))), ellipsis) //nolint:gosec
	padding := max(0, m.width-ansi.PrintableRuneWidth(prefix)-ansi.PrintableRuneWidth(note))
	return prefix + style(note+strings.Repeat(" ", padding))
}

func (m model) helpView() string {
	return helpViewStyle(m.help.View(m.keys))
}
