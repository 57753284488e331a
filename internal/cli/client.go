package cli

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/gorilla/websocket"

	"girder/internal/config"
	"girder/internal/protocol"
)

// defaultTimeout bounds one-shot command round trips.
const defaultTimeout = 5 * time.Second

// wsClient is a short-lived supervisor connection used by one-shot
// commands. The dashboard uses the reconnecting manager instead.
type wsClient struct {
	conn *websocket.Conn
}

// dialSupervisor connects to the supervisor and consumes the welcome
// frame.
func dialSupervisor(cfg *config.Config) (*wsClient, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	c, _, err := websocket.DefaultDialer.DialContext(ctx, cfg.URL(), nil)
	if err != nil {
		return nil, fmt.Errorf("connect to supervisor at %s: %w", cfg.URL(), err)
	}

	w := &wsClient{conn: c}
	if _, err := w.waitFor(protocol.MsgConnectionEstablished); err != nil {
		_ = c.Close()
		return nil, err
	}
	return w, nil
}

// send writes one JSON frame.
func (w *wsClient) send(v any) error {
	_ = w.conn.SetWriteDeadline(time.Now().Add(defaultTimeout))
	if err := w.conn.WriteJSON(v); err != nil {
		return fmt.Errorf("send command: %w", err)
	}
	return nil
}

// waitFor reads frames until one of the wanted types arrives. Other
// frame types (broadcast agent updates, mainly) are skipped. Error
// frames surface as errors.
func (w *wsClient) waitFor(types ...protocol.MessageType) (*protocol.Envelope, error) {
	_ = w.conn.SetReadDeadline(time.Now().Add(defaultTimeout))
	for {
		_, raw, err := w.conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("read supervisor reply: %w", err)
		}
		env, err := protocol.Decode(raw)
		if err != nil {
			continue
		}
		if env.Type == protocol.MsgError {
			return nil, fmt.Errorf("supervisor error: %s", env.Message)
		}
		if slices.Contains(types, env.Type) {
			return env, nil
		}
	}
}

// close performs a clean websocket shutdown.
func (w *wsClient) close() {
	_ = w.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	_ = w.conn.Close()
}
