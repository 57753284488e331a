package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"girder/internal/conn"
)

// Header displays the dashboard header with branding, connection state
// and agent counts.
type Header struct {
	width int

	agentCount   int
	runningCount int

	connState conn.State
	attempt   int // current reconnect attempt, shown while connecting
}

// NewHeader creates a new header component.
func NewHeader() Header {
	return Header{connState: conn.StateDisconnected}
}

// SetWidth updates the header width.
func (h *Header) SetWidth(width int) {
	h.width = width
}

// SetAgentCounts updates the agent statistics.
func (h *Header) SetAgentCounts(total, running int) {
	h.agentCount = total
	h.runningCount = running
}

// SetConnectionState updates the connection state display.
func (h *Header) SetConnectionState(state conn.State, attempt int) {
	h.connState = state
	h.attempt = attempt
}

// View renders the header.
func (h Header) View() string {
	brand := headerBrandStyle.Render("⚙ girder")

	var connStatus string
	switch h.connState {
	case conn.StateConnected:
		connStatus = headerConnConnectedStyle.Render(" ● connected")
	case conn.StateConnecting:
		label := " ◌ connecting..."
		if h.attempt > 0 {
			label = fmt.Sprintf(" ◌ reconnecting (%d)...", h.attempt)
		}
		connStatus = headerConnConnectingStyle.Render(label)
	case conn.StateError:
		connStatus = headerConnDisconnectedStyle.Render(" ✗ connection failed")
	default:
		connStatus = headerConnDisconnectedStyle.Render(" ● disconnected")
	}

	var statsParts []string
	if h.agentCount > 0 {
		statsParts = append(statsParts, fmt.Sprintf("%d/%d running", h.runningCount, h.agentCount))
	}

	var stats string
	if len(statsParts) > 0 {
		stats = headerStatsStyle.Render("  " + strings.Join(statsParts, "  •  "))
	}

	brandWidth := lipgloss.Width(brand)
	connStatusWidth := lipgloss.Width(connStatus)
	statsWidth := lipgloss.Width(stats)
	spacerWidth := h.width - brandWidth - connStatusWidth - statsWidth
	if spacerWidth < 0 {
		spacerWidth = 0
	}
	spacer := lipgloss.NewStyle().Width(spacerWidth).Render("")

	content := lipgloss.JoinHorizontal(lipgloss.Top, brand, connStatus, spacer, stats)
	return headerContainerStyle.Width(h.width).Render(content)
}
