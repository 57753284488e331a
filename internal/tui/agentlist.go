package tui

import (
	"fmt"
	"strings"
	"time"

	"girder/internal/protocol"
	"girder/internal/registry"
)

// Spinner frames for the running-state indicator.
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// AgentList displays a navigable list of agents with status indicators.
type AgentList struct {
	width        int
	height       int
	agents       []registry.Agent
	selected     int
	spinnerFrame int
}

// NewAgentList creates a new agent list component.
func NewAgentList() AgentList {
	return AgentList{}
}

// SetSize updates the component dimensions.
func (l *AgentList) SetSize(width, height int) {
	l.width = width
	l.height = height
}

// SetAgents replaces the displayed agents, preserving the selection
// where possible.
func (l *AgentList) SetAgents(agents []registry.Agent) {
	var selectedID string
	if s := l.Selected(); s != nil {
		selectedID = s.ID
	}

	l.agents = agents
	if selectedID != "" {
		for i, a := range agents {
			if a.ID == selectedID {
				l.selected = i
				return
			}
		}
	}
	if l.selected >= len(agents) {
		l.selected = max(0, len(agents)-1)
	}
}

// Selected returns the currently selected agent, or nil.
func (l *AgentList) Selected() *registry.Agent {
	if len(l.agents) == 0 || l.selected < 0 || l.selected >= len(l.agents) {
		return nil
	}
	return &l.agents[l.selected]
}

// MoveUp moves selection up one item.
func (l *AgentList) MoveUp() {
	if l.selected > 0 {
		l.selected--
	}
}

// MoveDown moves selection down one item.
func (l *AgentList) MoveDown() {
	if l.selected < len(l.agents)-1 {
		l.selected++
	}
}

// MoveToTop moves selection to the first item.
func (l *AgentList) MoveToTop() {
	l.selected = 0
}

// MoveToBottom moves selection to the last item.
func (l *AgentList) MoveToBottom() {
	if len(l.agents) > 0 {
		l.selected = len(l.agents) - 1
	}
}

// Tick advances the spinner animation.
func (l *AgentList) Tick() {
	l.spinnerFrame = (l.spinnerFrame + 1) % len(spinnerFrames)
}

// View renders the agent list.
func (l AgentList) View() string {
	if len(l.agents) == 0 {
		return agentListEmptyStyle.Width(l.width).Render("No agents configured")
	}

	var rows []string
	for i, a := range l.agents {
		rows = append(rows, l.renderRow(a, i == l.selected))
		if len(rows) >= l.height && l.height > 0 {
			break
		}
	}
	return strings.Join(rows, "\n")
}

func (l AgentList) renderRow(a registry.Agent, selected bool) string {
	icon := l.statusIcon(a)

	name := agentNameStyle.Render(a.Name)
	typ := agentTypeStyle.Render(string(a.Type))

	var detail string
	switch {
	case a.Status == protocol.StatusRunning:
		detail = agentMessageStyle.Render(fmt.Sprintf("%d%% %s", a.Progress, a.Message))
	case a.Message != "":
		detail = agentMessageStyle.Render(a.Message)
	default:
		detail = agentMetaStyle.Render("last run " + registry.LastRunDisplay(a, time.Now()))
	}

	// Mark state the supervisor has not confirmed yet.
	var pending string
	if a.Source == registry.SourceOptimistic {
		pending = agentMetaStyle.Render(" ~")
	}

	row := fmt.Sprintf("%s %s %s%s  %s", icon, name, typ, pending, detail)

	style := agentRowStyle
	if selected {
		style = agentRowSelectedStyle
	}
	return style.Width(l.width).MaxWidth(l.width).Render(row)
}

// statusIcon maps agent status to a colored glyph.
func (l AgentList) statusIcon(a registry.Agent) string {
	switch a.Status {
	case protocol.StatusRunning:
		return statusRunningStyle.Render(spinnerFrames[l.spinnerFrame])
	case protocol.StatusCompleted:
		return statusCompletedStyle.Render("✓")
	case protocol.StatusError:
		return statusErrorStyle.Render("✗")
	default:
		return statusIdleStyle.Render("●")
	}
}
