package tui

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	primaryColor = lipgloss.Color("#2563EB") // Blue
	successColor = lipgloss.Color("#10B981") // Green
	mutedColor   = lipgloss.Color("#6B7280") // Gray
	errorColor   = lipgloss.Color("#EF4444") // Red
	warningColor = lipgloss.Color("#F59E0B") // Amber

	// Header styles
	headerContainerStyle = lipgloss.NewStyle().
				Background(primaryColor)

	headerBrandStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#FFFFFF")).
				Background(primaryColor).
				Padding(0, 1)

	headerStatsStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#E0E0E0")).
				Background(primaryColor).
				Padding(0, 1)

	headerConnConnectedStyle = lipgloss.NewStyle().
					Foreground(successColor).
					Background(primaryColor)

	headerConnDisconnectedStyle = lipgloss.NewStyle().
					Foreground(errorColor).
					Background(primaryColor)

	headerConnConnectingStyle = lipgloss.NewStyle().
					Foreground(warningColor).
					Background(primaryColor)

	// Status bar style
	statusStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Padding(0, 1)

	// Agent list styles
	agentListEmptyStyle = lipgloss.NewStyle().
				Foreground(mutedColor).
				Padding(1, 2)

	agentRowStyle = lipgloss.NewStyle().
			Padding(0, 1)

	agentRowSelectedStyle = lipgloss.NewStyle().
				Background(lipgloss.Color("#3B3B3B")).
				Padding(0, 1)

	agentNameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Bold(true)

	agentTypeStyle = lipgloss.NewStyle().
			Foreground(primaryColor)

	agentMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#A0A0A0"))

	agentMetaStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	// Status icon styles
	statusIdleStyle      = lipgloss.NewStyle().Foreground(mutedColor)
	statusRunningStyle   = lipgloss.NewStyle().Foreground(primaryColor)
	statusCompletedStyle = lipgloss.NewStyle().Foreground(successColor)
	statusErrorStyle     = lipgloss.NewStyle().Foreground(errorColor)

	// Activity feed styles
	feedContainerStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(mutedColor)

	feedTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Bold(true).
			Padding(0, 1)

	feedTimeStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	feedEmptyStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Padding(1, 2)

	// Notification styles
	notifySuccessStyle = lipgloss.NewStyle().Foreground(successColor)
	notifyErrorStyle   = lipgloss.NewStyle().Foreground(errorColor)
	notifyWarningStyle = lipgloss.NewStyle().Foreground(warningColor)
	notifyInfoStyle    = lipgloss.NewStyle().Foreground(primaryColor)
)
