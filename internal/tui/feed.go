package tui

import (
	"fmt"
	"strings"

	"github.com/muesli/reflow/wordwrap"

	"girder/internal/protocol"
)

// Feed displays the most recent agent updates, newest first.
type Feed struct {
	width   int
	height  int
	updates []protocol.AgentUpdate
}

// NewFeed creates a new activity feed component.
func NewFeed() Feed {
	return Feed{}
}

// SetSize updates the component dimensions.
func (f *Feed) SetSize(width, height int) {
	f.width = width
	f.height = height
}

// SetUpdates replaces the displayed updates. Callers pass newest-first
// slices straight from the registry.
func (f *Feed) SetUpdates(updates []protocol.AgentUpdate) {
	f.updates = updates
}

// View renders the feed.
func (f Feed) View() string {
	title := feedTitleStyle.Render("Activity")

	inner := f.width - 2 // border
	if inner < 10 {
		inner = 10
	}

	var lines []string
	for _, u := range f.updates {
		entry := fmt.Sprintf("%s %s %s",
			feedTimeStyle.Render(u.Timestamp.Local().Format("15:04:05")),
			f.statusLabel(u.Status),
			u.Message)
		if u.Status == protocol.StatusRunning {
			entry = fmt.Sprintf("%s %s %3d%% %s",
				feedTimeStyle.Render(u.Timestamp.Local().Format("15:04:05")),
				f.statusLabel(u.Status),
				u.Progress,
				u.Message)
		}
		lines = append(lines, wordwrap.String(entry, inner))
	}

	body := strings.Join(lines, "\n")
	if body == "" {
		body = feedEmptyStyle.Render("No activity yet")
	}

	// Trim to fit the pane, keeping the newest entries at the top.
	if f.height > 2 {
		all := strings.Split(body, "\n")
		if len(all) > f.height-2 {
			all = all[:f.height-2]
		}
		body = strings.Join(all, "\n")
	}

	return feedContainerStyle.Width(f.width - 2).Render(title + "\n" + body)
}

func (f Feed) statusLabel(s protocol.AgentStatus) string {
	switch s {
	case protocol.StatusRunning:
		return statusRunningStyle.Render("run ")
	case protocol.StatusCompleted:
		return statusCompletedStyle.Render("done")
	case protocol.StatusError:
		return statusErrorStyle.Render("err ")
	default:
		return statusIdleStyle.Render("idle")
	}
}
