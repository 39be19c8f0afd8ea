package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/dgnsrekt/recite/tts"
)

// stateIcon returns an icon for the engine state.
func stateIcon(s tts.StateType) string {
	switch s {
	case tts.StateSpeaking:
		return "▶"
	case tts.StatePaused:
		return "⏸"
	case tts.StateStopped:
		return "◼"
	default:
		return "■"
	}
}

// stateColor returns the appropriate color for the engine state.
func stateColor(s tts.StateType) lipgloss.TerminalColor {
	switch s {
	case tts.StateSpeaking:
		return lipgloss.Color("#04B575")
	case tts.StatePaused:
		return lipgloss.Color("#FFAA00")
	case tts.StateStopped:
		return lipgloss.Color("#FF8800")
	default:
		return lipgloss.Color("#888888")
	}
}

// statusLine summarizes a snapshot: state, chunk counter, rate, pitch and
// time left.
func statusLine(snap tts.Snapshot) string {
	parts := []string{
		lipgloss.NewStyle().Foreground(stateColor(snap.State)).Render(stateIcon(snap.State) + " " + snap.State.String()),
	}
	if snap.Total > 0 {
		parts = append(parts, fmt.Sprintf("%d/%d", min(snap.Index+1, snap.Total), snap.Total))
	}
	parts = append(parts, fmt.Sprintf("%.1fx", snap.Rate))
	if snap.Pitch != 1 {
		parts = append(parts, fmt.Sprintf("pitch %.2f", snap.Pitch))
	}
	if snap.State.IsActive() && snap.Rate > 0 {
		parts = append(parts, remaining(snap.EstimatedRemaining/snap.Rate)+" left")
	}
	return strings.Join(parts, " · ")
}

// remaining formats an estimate in seconds, e.g. "3 minutes".
func remaining(seconds float64) string {
	if seconds < 1 {
		return "a moment"
	}
	d := time.Duration(seconds * float64(time.Second))
	var zero time.Time
	return strings.TrimSpace(humanize.RelTime(zero, zero.Add(d), "", ""))
}
