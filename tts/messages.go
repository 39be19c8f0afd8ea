package tts

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// Messages for Bubble Tea communication between the engine and the UI.

// UpdateMsg carries the latest engine snapshot.
type UpdateMsg struct {
	Snapshot Snapshot
}

// EngineStoppedMsg indicates the engine event loop has exited.
type EngineStoppedMsg struct {
	Err error
}

// ErrorMsg indicates an error occurred while driving the engine.
type ErrorMsg struct {
	Error       error
	Recoverable bool
	Action      string // What action was being performed
}

// WaitForUpdateCmd waits for the next engine snapshot.
func WaitForUpdateCmd(e *Engine) tea.Cmd {
	return func() tea.Msg {
		return UpdateMsg{Snapshot: <-e.Updates()}
	}
}

// RunEngineCmd runs the engine event loop until ctx is done.
func RunEngineCmd(ctx context.Context, e *Engine) tea.Cmd {
	return func() tea.Msg {
		return EngineStoppedMsg{Err: e.Run(ctx)}
	}
}

// SpeakCmd starts a session from the given chunk.
func SpeakCmd(e *Engine, text, voiceID string, rate, pitch float64, start int) tea.Cmd {
	return func() tea.Msg {
		e.SpeakFrom(text, voiceID, rate, pitch, start)
		snap := e.Snapshot()
		if snap.Err != nil {
			return ErrorMsg{Error: snap.Err, Recoverable: true, Action: "speak"}
		}
		return nil
	}
}
