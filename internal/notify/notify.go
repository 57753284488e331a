// Package notify provides the transient user-facing notification layer.
//
// Notifications are advisory and ephemeral, not an audit trail: there is
// no deduplication and no persistence. A notification with a non-zero
// Duration removes itself when the duration elapses.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"girder/internal/event"
)

// Type classifies a notification for display purposes.
type Type string

// Notification types.
const (
	Success Type = "success"
	Error   Type = "error"
	Warning Type = "warning"
	Info    Type = "info"
)

// Default auto-expiry durations per type. Errors are sticky until
// dismissed.
const (
	DefaultSuccessDuration = 3 * time.Second
	DefaultInfoDuration    = 4 * time.Second
	DefaultWarningDuration = 5 * time.Second
)

// Notification is a single transient message shown to the user.
type Notification struct {
	ID        string
	Type      Type
	Title     string
	Message   string
	Timestamp time.Time
	Duration  time.Duration // 0 means no auto-expiry
}

// TimerFunc schedules f to run after d and returns a cancel function.
// The default implementation wraps time.AfterFunc; tests inject a fake.
type TimerFunc func(d time.Duration, f func()) (cancel func())

// Center owns the set of live notifications. It is safe for concurrent
// use; the connection read loop and the UI both post to it.
type Center struct {
	timer TimerFunc

	mu sync.Mutex
	// +checklocks:mu
	items map[string]Notification
	// +checklocks:mu
	order []string
	// +checklocks:mu
	cancels map[string]func()

	changed event.Emitter[struct{}]
}

// NewCenter creates a notification center using real timers.
func NewCenter() *Center {
	return NewCenterWithTimer(func(d time.Duration, f func()) func() {
		t := time.AfterFunc(d, f)
		return func() { t.Stop() }
	})
}

// NewCenterWithTimer creates a notification center with a custom timer
// implementation. Used by tests to control expiry deterministically.
func NewCenterWithTimer(timer TimerFunc) *Center {
	return &Center{
		timer:   timer,
		items:   make(map[string]Notification),
		cancels: make(map[string]func()),
	}
}

// OnChange registers a handler invoked after every add, remove or clear.
func (c *Center) OnChange(handler func()) {
	c.changed.OnEvent(func(struct{}) { handler() })
}

// Add inserts a notification and returns its generated id. If the
// notification has a positive Duration, a removal timer is armed before
// Add returns.
func (c *Center) Add(n Notification) string {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now()
	}

	c.mu.Lock()
	c.items[n.ID] = n
	c.order = append(c.order, n.ID)
	if n.Duration > 0 {
		id := n.ID
		c.cancels[id] = c.timer(n.Duration, func() { c.Remove(id) })
	}
	c.mu.Unlock()

	c.changed.Emit(struct{}{})
	return n.ID
}

// Post is a convenience wrapper building a Notification from parts.
func (c *Center) Post(typ Type, title, message string, duration time.Duration) string {
	return c.Add(Notification{Type: typ, Title: title, Message: message, Duration: duration})
}

// Successf posts a success notification with the default expiry.
func (c *Center) Successf(title, message string) string {
	return c.Post(Success, title, message, DefaultSuccessDuration)
}

// Infof posts an info notification with the default expiry.
func (c *Center) Infof(title, message string) string {
	return c.Post(Info, title, message, DefaultInfoDuration)
}

// Warningf posts a warning notification with the default expiry.
func (c *Center) Warningf(title, message string) string {
	return c.Post(Warning, title, message, DefaultWarningDuration)
}

// Errorf posts a sticky error notification.
func (c *Center) Errorf(title, message string) string {
	return c.Post(Error, title, message, 0)
}

// Remove deletes a notification by id, cancelling any pending expiry
// timer. Removing an unknown id is a no-op.
func (c *Center) Remove(id string) {
	c.mu.Lock()
	_, ok := c.items[id]
	if !ok {
		c.mu.Unlock()
		return
	}
	delete(c.items, id)
	if cancel, ok := c.cancels[id]; ok {
		cancel()
		delete(c.cancels, id)
	}
	for i, oid := range c.order {
		if oid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.mu.Unlock()

	c.changed.Emit(struct{}{})
}

// Clear removes all notifications.
func (c *Center) Clear() {
	c.mu.Lock()
	for _, cancel := range c.cancels {
		cancel()
	}
	c.items = make(map[string]Notification)
	c.cancels = make(map[string]func())
	c.order = nil
	c.mu.Unlock()

	c.changed.Emit(struct{}{})
}

// List returns the live notifications in insertion order.
func (c *Center) List() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Notification, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.items[id])
	}
	return out
}

// Len returns the number of live notifications.
func (c *Center) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
