// Package conn manages the WebSocket connection to the supervisor.
//
// The manager owns the socket lifecycle: dialing, the read loop, and
// reconnection with exponential backoff. Consumers observe it through
// events and never touch the socket directly. Sends are fail-fast:
// when the connection is down, Send returns ErrNotConnected instead of
// queueing.
package conn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"girder/internal/event"
)

// Errors returned by connection operations.
var (
	// ErrNotConnected is returned by Send when no connection is
	// established. Messages are never queued for later delivery.
	ErrNotConnected = errors.New("not connected to supervisor")
	// ErrAlreadyConnected is returned by Connect on a live connection.
	ErrAlreadyConnected = errors.New("already connected")
)

// State describes the connection lifecycle.
type State string

// Connection states.
const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	// StateError means reconnection attempts are exhausted. Only an
	// explicit Connect leaves this state.
	StateError State = "error"
)

// Default reconnection parameters.
const (
	DefaultMaxReconnectAttempts = 5
	DefaultBaseDelay            = time.Second
	DefaultMaxDelay             = 30 * time.Second
)

// Config holds connection parameters. Zero values fall back to the
// defaults above.
type Config struct {
	URL                  string
	MaxReconnectAttempts int
	BaseDelay            time.Duration
	MaxDelay             time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxReconnectAttempts == 0 {
		c.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if c.BaseDelay == 0 {
		c.BaseDelay = DefaultBaseDelay
	}
	if c.MaxDelay == 0 {
		c.MaxDelay = DefaultMaxDelay
	}
	return c
}

// Backoff returns the delay before reconnect attempt n (0-based):
// BaseDelay doubled per attempt, capped at MaxDelay.
func (c Config) Backoff(attempt int) time.Duration {
	d := c.BaseDelay << uint(attempt)
	if d > c.MaxDelay || d <= 0 {
		d = c.MaxDelay
	}
	return d
}

// EventKind discriminates connection events.
type EventKind string

// Event kinds.
const (
	EventOpened       EventKind = "opened"
	EventMessage      EventKind = "message"
	EventClosed       EventKind = "closed"
	EventReconnecting EventKind = "reconnecting"
	EventFailed       EventKind = "failed"
)

// Event is a connection lifecycle or inbound-message event.
type Event struct {
	Kind    EventKind
	Data    []byte        // set for EventMessage
	Attempt int           // set for EventReconnecting, 1-based
	Delay   time.Duration // set for EventReconnecting
	Err     error         // set for EventClosed and EventFailed
}

// Socket is the minimal surface the manager needs from a WebSocket.
type Socket interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close() error
}

// DialFunc establishes a socket. Tests inject a fake; production uses
// gorilla's dialer.
type DialFunc func(ctx context.Context, url string) (Socket, error)

// AfterFunc schedules f after d and returns a cancel function.
type AfterFunc func(d time.Duration, f func()) (cancel func())

// Manager owns one logical connection to the supervisor, reconnecting
// across socket failures. It is safe for concurrent use.
type Manager struct {
	cfg   Config
	dial  DialFunc
	after AfterFunc
	log   *slog.Logger

	mu sync.Mutex
	// +checklocks:mu
	state State
	// +checklocks:mu
	sock Socket
	// +checklocks:mu
	attempt int
	// +checklocks:mu
	manual bool // Disconnect was requested; suppress reconnection
	// +checklocks:mu
	cancelRetry func()
	// +checklocks:mu
	gen int // connection generation, invalidates stale read loops

	events event.Emitter[Event]
}

// New creates a manager dialing real WebSockets.
func New(cfg Config, log *slog.Logger) *Manager {
	return NewWithDialer(cfg, gorillaDial, nil, log)
}

// NewWithDialer creates a manager with a custom dialer and scheduler.
// A nil after uses real timers.
func NewWithDialer(cfg Config, dial DialFunc, after AfterFunc, log *slog.Logger) *Manager {
	if after == nil {
		after = func(d time.Duration, f func()) func() {
			t := time.AfterFunc(d, f)
			return func() { t.Stop() }
		}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		cfg:   cfg.withDefaults(),
		dial:  dial,
		after: after,
		log:   log,
		state: StateDisconnected,
	}
}

// OnEvent registers a handler for connection events. Handlers run on
// the read loop goroutine and must not block.
func (m *Manager) OnEvent(handler func(Event)) {
	m.events.OnEvent(handler)
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connect dials the supervisor. On failure the manager schedules
// reconnection attempts itself; the returned error reports only the
// initial dial. Connect also resets a manager in the error state.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.state == StateConnected || m.state == StateConnecting {
		m.mu.Unlock()
		return ErrAlreadyConnected
	}
	m.manual = false
	m.attempt = 0
	m.state = StateConnecting
	m.mu.Unlock()

	if err := m.dialOnce(ctx); err != nil {
		m.scheduleReconnect(err)
		return fmt.Errorf("connect %s: %w", m.cfg.URL, err)
	}
	return nil
}

// dialOnce attempts a single dial and, on success, installs the socket
// and starts the read loop.
func (m *Manager) dialOnce(ctx context.Context) error {
	sock, err := m.dial(ctx, m.cfg.URL)
	if err != nil {
		return err
	}

	m.mu.Lock()
	if m.manual {
		m.mu.Unlock()
		sock.Close()
		return nil
	}
	m.sock = sock
	m.state = StateConnected
	m.attempt = 0
	m.gen++
	gen := m.gen
	m.mu.Unlock()

	m.log.Info("connected", "url", m.cfg.URL)
	m.events.Emit(Event{Kind: EventOpened})

	go m.readLoop(sock, gen)
	return nil
}

// readLoop pumps inbound frames into events until the socket fails.
func (m *Manager) readLoop(sock Socket, gen int) {
	for {
		data, err := sock.ReadMessage()
		if err != nil {
			m.handleClosed(gen, err)
			return
		}
		m.events.Emit(Event{Kind: EventMessage, Data: data})
	}
}

// handleClosed reacts to a socket failure observed by the read loop.
func (m *Manager) handleClosed(gen int, err error) {
	m.mu.Lock()
	if gen != m.gen {
		// A newer connection replaced this one; stale loop, ignore.
		m.mu.Unlock()
		return
	}
	manual := m.manual
	m.sock = nil
	if m.state == StateConnected {
		m.state = StateDisconnected
	}
	m.mu.Unlock()

	if manual || isNormalClose(err) {
		m.log.Info("connection closed")
		m.events.Emit(Event{Kind: EventClosed})
		return
	}

	m.log.Warn("connection lost", "error", err)
	m.events.Emit(Event{Kind: EventClosed, Err: err})
	m.scheduleReconnect(err)
}

// scheduleReconnect arms the next backoff timer, or gives up once the
// attempt budget is spent.
func (m *Manager) scheduleReconnect(cause error) {
	m.mu.Lock()
	if m.manual {
		m.mu.Unlock()
		return
	}
	if m.attempt >= m.cfg.MaxReconnectAttempts {
		m.state = StateError
		m.mu.Unlock()
		m.log.Error("reconnection attempts exhausted", "attempts", m.cfg.MaxReconnectAttempts, "cause", cause)
		m.events.Emit(Event{Kind: EventFailed, Err: cause})
		return
	}
	delay := m.cfg.Backoff(m.attempt)
	m.attempt++
	attempt := m.attempt
	m.state = StateConnecting
	m.cancelRetry = m.after(delay, func() { m.redial() })
	m.mu.Unlock()

	m.log.Info("reconnecting", "attempt", attempt, "delay", delay)
	m.events.Emit(Event{Kind: EventReconnecting, Attempt: attempt, Delay: delay})
}

// redial runs when a backoff timer fires.
func (m *Manager) redial() {
	m.mu.Lock()
	if m.manual {
		m.mu.Unlock()
		return
	}
	m.cancelRetry = nil
	m.mu.Unlock()

	if err := m.dialOnce(context.Background()); err != nil {
		m.scheduleReconnect(err)
	}
}

// Send marshals v to JSON and writes it as a single text frame. It
// fails immediately when no connection is established.
func (m *Manager) Send(v any) error {
	m.mu.Lock()
	sock := m.sock
	state := m.state
	m.mu.Unlock()

	if state != StateConnected || sock == nil {
		return ErrNotConnected
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	if err := sock.WriteMessage(data); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// Disconnect closes the connection and suppresses reconnection. It is
// a no-op when already disconnected.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.manual = true
	m.state = StateDisconnected
	sock := m.sock
	m.sock = nil
	m.gen++
	if m.cancelRetry != nil {
		m.cancelRetry()
		m.cancelRetry = nil
	}
	m.mu.Unlock()

	if sock != nil {
		sock.Close()
		m.events.Emit(Event{Kind: EventClosed})
	}
}

func isNormalClose(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}

// gorillaSocket adapts a gorilla connection to the Socket interface.
type gorillaSocket struct {
	c *websocket.Conn
}

func gorillaDial(ctx context.Context, url string) (Socket, error) {
	c, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return &gorillaSocket{c: c}, nil
}

func (s *gorillaSocket) ReadMessage() ([]byte, error) {
	_, data, err := s.c.ReadMessage()
	return data, err
}

func (s *gorillaSocket) WriteMessage(data []byte) error {
	return s.c.WriteMessage(websocket.TextMessage, data)
}

func (s *gorillaSocket) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	deadline := time.Now().Add(time.Second)
	_ = s.c.WriteControl(websocket.CloseMessage, msg, deadline)
	return s.c.Close()
}
