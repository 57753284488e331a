package tui

import (
	"time"

	"girder/internal/conn"
)

// connEventMsg carries a connection lifecycle or inbound frame event
// into the Bubbletea update loop.
type connEventMsg conn.Event

// registryChangedMsg signals that agent state changed and the list and
// feed should re-render.
type registryChangedMsg struct{}

// notifyChangedMsg signals that the notification set changed.
type notifyChangedMsg struct{}

// tickMsg drives the spinner animation.
type tickMsg time.Time
