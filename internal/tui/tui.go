// Package tui provides the Bubbletea-based terminal dashboard for girder.
package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"girder/internal/conn"
	"girder/internal/dispatch"
	"girder/internal/notify"
	"girder/internal/protocol"
	"girder/internal/registry"
	"girder/internal/router"
)

// feedSize is how many recent updates the activity feed shows.
const feedSize = 50

// Deps bundles the wired services the dashboard renders and drives.
type Deps struct {
	Conn     *conn.Manager
	Registry *registry.Registry
	Dispatch *dispatch.Dispatcher
	Notify   *notify.Center
	Router   *router.Router
}

// Model is the main Bubbletea model for the girder dashboard.
type Model struct {
	deps Deps

	// Window dimensions
	width  int
	height int
	ready  bool

	// Components
	header        Header
	agentList     AgentList
	feed          Feed
	notifications Notifications
	helpBar       HelpBar

	// Events funneled from service callbacks into the update loop.
	events chan tea.Msg

	// Last observed reconnect attempt, for the header.
	reconnectAttempt int

	keys KeyBindings
}

// New creates a dashboard model and subscribes it to the services in
// deps. Callbacks may fire from any goroutine; they post coalesced
// messages onto the events channel.
func New(deps Deps) Model {
	m := Model{
		deps:          deps,
		header:        NewHeader(),
		agentList:     NewAgentList(),
		feed:          NewFeed(),
		notifications: NewNotifications(),
		helpBar:       NewHelpBar(),
		events:        make(chan tea.Msg, 64),
		keys:          DefaultKeyBindings(),
	}

	deps.Conn.OnEvent(func(e conn.Event) {
		m.post(connEventMsg(e))
	})
	deps.Registry.OnChange(func(string) {
		m.post(registryChangedMsg{})
	})
	deps.Notify.OnChange(func() {
		m.post(notifyChangedMsg{})
	})

	return m
}

// post delivers a message to the update loop without blocking the
// caller. Dropped messages are fine: every message kind is a coalesced
// "refresh" signal or is re-derived from service state on render.
func (m Model) post(msg tea.Msg) {
	select {
	case m.events <- msg:
	default:
	}
}

// waitEvent returns a command that delivers the next service event.
func (m Model) waitEvent() tea.Cmd {
	return func() tea.Msg {
		return <-m.events
	}
}

// tickCmd returns a command that sends a tick message after a delay.
func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.waitEvent(), m.tickCmd())
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.layout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickMsg:
		m.agentList.Tick()
		return m, m.tickCmd()

	case connEventMsg:
		m.handleConnEvent(conn.Event(msg))
		m.refresh()
		return m, m.waitEvent()

	case registryChangedMsg, notifyChangedMsg:
		m.refresh()
		return m, m.waitEvent()
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.deps.Conn.Disconnect()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		m.agentList.MoveUp()
	case key.Matches(msg, m.keys.Down):
		m.agentList.MoveDown()
	case key.Matches(msg, m.keys.Top):
		m.agentList.MoveToTop()
	case key.Matches(msg, m.keys.Bottom):
		m.agentList.MoveToBottom()

	case key.Matches(msg, m.keys.Start):
		if a := m.agentList.Selected(); a != nil {
			m.deps.Dispatch.StartAgent(a.ID, "", nil)
		}
	case key.Matches(msg, m.keys.Stop):
		if a := m.agentList.Selected(); a != nil {
			m.deps.Dispatch.StopAgent(a.ID)
		}
	case key.Matches(msg, m.keys.Ping):
		m.deps.Dispatch.Ping()

	case key.Matches(msg, m.keys.Reconnect):
		switch m.deps.Conn.State() {
		case conn.StateDisconnected, conn.StateError:
			m.reconnectAttempt = 0
			go m.deps.Conn.Connect(context.Background())
		}

	case key.Matches(msg, m.keys.ClearNotices):
		m.deps.Notify.Clear()
	}
	m.refresh()
	return m, nil
}

func (m *Model) handleConnEvent(e conn.Event) {
	switch e.Kind {
	case conn.EventMessage:
		m.deps.Router.Dispatch(e.Data)
	case conn.EventOpened:
		m.reconnectAttempt = 0
	case conn.EventReconnecting:
		m.reconnectAttempt = e.Attempt
		m.deps.Notify.Warningf("Connection lost",
			fmt.Sprintf("Reconnecting (attempt %d) in %s", e.Attempt, e.Delay))
	case conn.EventFailed:
		m.deps.Notify.Errorf("Connection failed",
			"Reconnect attempts exhausted. Press r to retry.")
	}
}

// refresh re-reads service state into the view components.
func (m *Model) refresh() {
	agents := m.deps.Registry.Agents()
	running := 0
	for _, a := range agents {
		if a.Status == protocol.StatusRunning {
			running++
		}
	}
	m.agentList.SetAgents(agents)
	m.header.SetAgentCounts(len(agents), running)
	m.header.SetConnectionState(m.deps.Conn.State(), m.reconnectAttempt)
	m.helpBar.SetConnState(m.deps.Conn.State())
	m.feed.SetUpdates(m.deps.Registry.RecentUpdates(feedSize))
	m.notifications.SetItems(m.deps.Notify.List())
}

// layout distributes the window between the components.
func (m *Model) layout() {
	m.header.SetWidth(m.width)
	m.helpBar.SetWidth(m.width)
	m.notifications.SetWidth(m.width)

	listWidth := m.width * 3 / 5
	feedWidth := m.width - listWidth
	bodyHeight := m.height - 2 // header + help bar
	if bodyHeight < 3 {
		bodyHeight = 3
	}
	m.agentList.SetSize(listWidth, bodyHeight)
	m.feed.SetSize(feedWidth, bodyHeight)
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top, m.agentList.View(), m.feed.View())

	sections := []string{m.header.View(), body}
	if overlay := m.notifications.View(); overlay != "" {
		sections = append(sections, overlay)
	}
	sections = append(sections, m.helpBar.View())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// Run starts the dashboard and blocks until the user quits.
func Run(deps Deps) error {
	m := New(deps)
	m.refresh()
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
