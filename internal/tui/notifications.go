package tui

import (
	"fmt"
	"strings"

	"github.com/muesli/reflow/truncate"

	"girder/internal/notify"
)

// maxVisibleNotifications caps how many notifications the overlay shows
// at once. Older ones remain in the center and reappear as newer ones
// expire.
const maxVisibleNotifications = 4

// Notifications renders the live notification overlay.
type Notifications struct {
	width int
	items []notify.Notification
}

// NewNotifications creates a notification overlay component.
func NewNotifications() Notifications {
	return Notifications{}
}

// SetWidth updates the component width.
func (n *Notifications) SetWidth(width int) {
	n.width = width
}

// SetItems replaces the displayed notifications.
func (n *Notifications) SetItems(items []notify.Notification) {
	n.items = items
}

// View renders the overlay, newest last. Returns the empty string when
// there is nothing to show so the caller can skip the pane entirely.
func (n Notifications) View() string {
	if len(n.items) == 0 {
		return ""
	}

	items := n.items
	if len(items) > maxVisibleNotifications {
		items = items[len(items)-maxVisibleNotifications:]
	}

	var lines []string
	for _, item := range items {
		line := fmt.Sprintf("%s %s", n.icon(item.Type), item.Title)
		if item.Message != "" {
			line += ": " + item.Message
		}
		if n.width > 4 {
			line = truncate.StringWithTail(line, uint(n.width-2), "…")
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (n Notifications) icon(t notify.Type) string {
	switch t {
	case notify.Success:
		return notifySuccessStyle.Render("✓")
	case notify.Error:
		return notifyErrorStyle.Render("✗")
	case notify.Warning:
		return notifyWarningStyle.Render("!")
	default:
		return notifyInfoStyle.Render("•")
	}
}
