package tui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/ormasoftchile/flowgraph/pkg/kernel/status"
)

// Node status glyphs convey meaning without relying on color alone.
const (
	GlyphPending  = "○"
	GlyphRunning  = "◉"
	GlyphPaused   = "⏸"
	GlyphPassed   = "✓"
	GlyphUnstable = "!"
	GlyphFailed   = "✗"
	GlyphSkipped  = "⏭"
)

var (
	colorGreen  = lipgloss.Color("42")
	colorRed    = lipgloss.Color("196")
	colorYellow = lipgloss.Color("214")
	colorBlue   = lipgloss.Color("39")
	colorCyan   = lipgloss.Color("51")
	colorDim    = lipgloss.Color("240")
	colorWhite  = lipgloss.Color("255")
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorCyan).Padding(0, 1)
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	dimStyle      = lipgloss.NewStyle().Foreground(colorDim)
	errorStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorRed)
)

func statusStyle(s status.RunStatus) lipgloss.Style {
	st := lipgloss.NewStyle().Foreground(colorWhite)
	if s.Unset() {
		return st.Foreground(colorDim)
	}
	switch s.State {
	case status.StateRunning:
		return st.Foreground(colorBlue)
	case status.StatePaused, status.StateQueued:
		return st.Foreground(colorYellow)
	case status.StateSkipped, status.StateNotBuilt:
		return st.Foreground(colorDim)
	}
	switch s.Result {
	case status.ResultSuccess:
		return st.Foreground(colorGreen)
	case status.ResultUnstable:
		return st.Foreground(colorYellow)
	case status.ResultFailure, status.ResultAborted:
		return st.Foreground(colorRed)
	}
	return st
}

// keyMap holds the watch key bindings.
type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Steps   key.Binding
	Refresh key.Binding
	Quit    key.Binding
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Steps: key.NewBinding(
		key.WithKeys("enter", " "),
		key.WithHelp("enter", "toggle steps"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "refresh"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}
