package conn

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"girder/internal/logging"
)

// fakeSocket is a scriptable Socket. ReadMessage blocks on the inbox
// channel; closing the socket unblocks it with errClosed.
type fakeSocket struct {
	inbox chan []byte

	mu     sync.Mutex
	sent   [][]byte
	closed bool
}

var errClosed = errors.New("socket closed")

func newFakeSocket() *fakeSocket {
	return &fakeSocket{inbox: make(chan []byte, 16)}
}

func (s *fakeSocket) ReadMessage() ([]byte, error) {
	data, ok := <-s.inbox
	if !ok {
		return nil, errClosed
	}
	return data, nil
}

func (s *fakeSocket) WriteMessage(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosed
	}
	s.sent = append(s.sent, data)
	return nil
}

func (s *fakeSocket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.inbox)
	}
	return nil
}

// fakeClock records scheduled callbacks so tests fire them manually.
type fakeClock struct {
	mu    sync.Mutex
	fires []fakeFire
}

type fakeFire struct {
	delay time.Duration
	f     func()
}

func (c *fakeClock) after(d time.Duration, f func()) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fires = append(c.fires, fakeFire{delay: d, f: f})
	return func() {}
}

func (c *fakeClock) pop(t *testing.T) fakeFire {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.fires) == 0 {
		t.Fatal("no timer scheduled")
	}
	f := c.fires[0]
	c.fires = c.fires[1:]
	return f
}

func (c *fakeClock) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.fires)
}

func collectEvents(m *Manager) (func() []Event, func(kind EventKind) Event) {
	var mu sync.Mutex
	var events []Event
	m.OnEvent(func(e Event) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	})
	all := func() []Event {
		mu.Lock()
		defer mu.Unlock()
		return append([]Event(nil), events...)
	}
	last := func(kind EventKind) Event {
		mu.Lock()
		defer mu.Unlock()
		for i := len(events) - 1; i >= 0; i-- {
			if events[i].Kind == kind {
				return events[i]
			}
		}
		return Event{}
	}
	return all, last
}

func TestConfig_Backoff(t *testing.T) {
	cfg := Config{}.withDefaults()

	want := []time.Duration{
		time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
	}
	for i, w := range want {
		if got := cfg.Backoff(i); got != w {
			t.Errorf("Backoff(%d) = %v, want %v", i, got, w)
		}
	}

	// Growth is capped.
	if got := cfg.Backoff(5); got != 30*time.Second {
		t.Errorf("Backoff(5) = %v, want 30s cap", got)
	}
	if got := cfg.Backoff(20); got != 30*time.Second {
		t.Errorf("Backoff(20) = %v, want 30s cap", got)
	}
}

func TestManager_ReconnectBackoffSequence(t *testing.T) {
	clock := &fakeClock{}
	dialErr := errors.New("connection refused")
	m := NewWithDialer(Config{URL: "ws://127.0.0.1:8765/ws"},
		func(ctx context.Context, url string) (Socket, error) { return nil, dialErr },
		clock.after, logging.SetupTest(nil))
	all, _ := collectEvents(m)

	if err := m.Connect(context.Background()); err == nil {
		t.Fatal("Connect() error = nil with failing dialer")
	}

	// Five retries, doubling from 1s, then permanent failure.
	wantDelays := []time.Duration{
		time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
	}
	for i, want := range wantDelays {
		fire := clock.pop(t)
		if fire.delay != want {
			t.Errorf("retry %d delay = %v, want %v", i+1, fire.delay, want)
		}
		fire.f()
	}

	if clock.pending() != 0 {
		t.Errorf("%d extra retries scheduled after budget spent", clock.pending())
	}
	if m.State() != StateError {
		t.Errorf("State() = %q, want error", m.State())
	}

	var reconnects, failures int
	for _, e := range all() {
		switch e.Kind {
		case EventReconnecting:
			reconnects++
		case EventFailed:
			failures++
		}
	}
	if reconnects != 5 || failures != 1 {
		t.Errorf("events: %d reconnecting, %d failed; want 5 and 1", reconnects, failures)
	}
}

func TestManager_SendFailFastWhenDisconnected(t *testing.T) {
	m := NewWithDialer(Config{URL: "ws://x/ws"},
		func(ctx context.Context, url string) (Socket, error) { return nil, io.EOF },
		(&fakeClock{}).after, logging.SetupTest(nil))

	err := m.Send(map[string]string{"type": "ping"})
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("Send() error = %v, want ErrNotConnected", err)
	}
}

func TestManager_SendWritesJSONFrame(t *testing.T) {
	sock := newFakeSocket()
	m := NewWithDialer(Config{URL: "ws://x/ws"},
		func(ctx context.Context, url string) (Socket, error) { return sock, nil },
		(&fakeClock{}).after, logging.SetupTest(nil))

	if err := m.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if m.State() != StateConnected {
		t.Fatalf("State() = %q, want connected", m.State())
	}

	if err := m.Send(map[string]string{"type": "ping"}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	sock.mu.Lock()
	defer sock.mu.Unlock()
	if len(sock.sent) != 1 {
		t.Fatalf("frames sent = %d, want 1", len(sock.sent))
	}
	var frame map[string]string
	if err := json.Unmarshal(sock.sent[0], &frame); err != nil {
		t.Fatalf("frame is not valid JSON: %v", err)
	}
	if frame["type"] != "ping" {
		t.Errorf("frame = %v", frame)
	}
}

func TestManager_InboundFramesBecomeEvents(t *testing.T) {
	sock := newFakeSocket()
	m := NewWithDialer(Config{URL: "ws://x/ws"},
		func(ctx context.Context, url string) (Socket, error) { return sock, nil },
		(&fakeClock{}).after, logging.SetupTest(nil))

	msgs := make(chan []byte, 1)
	m.OnEvent(func(e Event) {
		if e.Kind == EventMessage {
			msgs <- e.Data
		}
	})

	if err := m.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	sock.inbox <- []byte(`{"type":"pong"}`)

	select {
	case data := <-msgs:
		if string(data) != `{"type":"pong"}` {
			t.Errorf("message = %s", data)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message event")
	}
}

func TestManager_DisconnectSuppressesReconnect(t *testing.T) {
	sock := newFakeSocket()
	clock := &fakeClock{}
	m := NewWithDialer(Config{URL: "ws://x/ws"},
		func(ctx context.Context, url string) (Socket, error) { return sock, nil },
		clock.after, logging.SetupTest(nil))

	closed := make(chan struct{}, 1)
	m.OnEvent(func(e Event) {
		if e.Kind == EventClosed {
			closed <- struct{}{}
		}
	})

	if err := m.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	m.Disconnect()

	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for closed event")
	}

	if m.State() != StateDisconnected {
		t.Errorf("State() = %q, want disconnected", m.State())
	}
	if clock.pending() != 0 {
		t.Error("reconnect scheduled after manual disconnect")
	}
	if !errors.Is(m.Send("x"), ErrNotConnected) {
		t.Error("Send() after Disconnect did not fail fast")
	}
}

func TestManager_LostConnectionReconnects(t *testing.T) {
	sock := newFakeSocket()
	clock := &fakeClock{}
	var dials int
	var mu sync.Mutex
	m := NewWithDialer(Config{URL: "ws://x/ws"},
		func(ctx context.Context, url string) (Socket, error) {
			mu.Lock()
			dials++
			mu.Unlock()
			return sock, nil
		},
		clock.after, logging.SetupTest(nil))

	reconnecting := make(chan Event, 1)
	m.OnEvent(func(e Event) {
		if e.Kind == EventReconnecting {
			reconnecting <- e
		}
	})

	if err := m.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	// Server-side drop: the read loop sees an abnormal close.
	sock.Close()

	select {
	case e := <-reconnecting:
		if e.Attempt != 1 || e.Delay != time.Second {
			t.Errorf("reconnecting event = %+v, want attempt 1 delay 1s", e)
		}
	case <-time.After(time.Second):
		t.Fatal("no reconnect scheduled after connection loss")
	}
}
