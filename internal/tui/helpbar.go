package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"

	"girder/internal/conn"
)

// HelpBar displays keyboard shortcuts at the bottom of the dashboard.
type HelpBar struct {
	width int
	keys  KeyBindings

	connState conn.State
}

// NewHelpBar creates a new help bar component.
func NewHelpBar() HelpBar {
	return HelpBar{
		keys: DefaultKeyBindings(),
	}
}

// SetWidth updates the help bar width.
func (h *HelpBar) SetWidth(width int) {
	h.width = width
}

// SetConnState updates the connection state used to choose shortcuts.
func (h *HelpBar) SetConnState(state conn.State) {
	h.connState = state
}

// View renders the help bar.
func (h HelpBar) View() string {
	var bindings []key.Binding
	switch h.connState {
	case conn.StateConnected:
		bindings = []key.Binding{h.keys.Down, h.keys.Start, h.keys.Stop, h.keys.Ping, h.keys.ClearNotices, h.keys.Quit}
	default:
		bindings = []key.Binding{h.keys.Down, h.keys.Reconnect, h.keys.ClearNotices, h.keys.Quit}
	}
	return statusStyle.Width(h.width).Render(formatHelp(bindings))
}

// formatHelp formats a list of key bindings as help text.
func formatHelp(bindings []key.Binding) string {
	var parts []string
	for _, b := range bindings {
		help := b.Help()
		parts = append(parts, help.Key+": "+help.Desc)
	}
	return strings.Join(parts, "  ")
}
