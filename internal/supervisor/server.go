package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"girder/internal/logging"
	"girder/internal/protocol"
)

// client is one connected dashboard.
type client struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex // serializes writes
}

// send writes one JSON frame. Concurrent broadcasts and replies share
// the socket, so writes are serialized per client.
func (c *client) send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteJSON(v)
}

// Server exposes the supervisor over WebSocket.
type Server struct {
	sup *Supervisor
	log *slog.Logger

	path     string
	upgrader websocket.Upgrader
	http     *http.Server
	listener net.Listener

	mu sync.Mutex
	// +checklocks:mu
	clients map[*client]struct{}
}

// NewServer creates a WebSocket server serving the supervisor at the
// given HTTP path.
func NewServer(sup *Supervisor, path string, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	if path == "" {
		path = "/ws"
	}
	s := &Server{
		sup:  sup,
		log:  log,
		path: path,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Local tool: the dashboard connects from file:// and
			// localhost origins.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}

	sup.OnUpdate(func(u protocol.AgentUpdate) {
		s.Broadcast(protocol.NewUpdateMessage(u))
	})
	return s
}

// Start binds addr and begins serving. Use port 0 to bind an ephemeral
// port; Addr reports the bound address.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	s.listener = listener

	mux := http.NewServeMux()
	mux.HandleFunc(s.path, s.handleWS)
	s.http = &http.Server{Handler: mux}

	go func() {
		defer logging.LogPanic("ws-server", nil)
		if err := s.http.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("server stopped", "error", err)
		}
	}()

	s.log.Info("listening", "addr", listener.Addr().String(), "path", s.path)
	return nil
}

// Addr returns the bound listen address.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// URL returns the WebSocket URL clients should dial.
func (s *Server) URL() string {
	return "ws://" + s.Addr() + s.path
}

// Shutdown closes the listener and all client connections, then waits
// for in-flight tasks.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.http.Shutdown(ctx)

	s.mu.Lock()
	for c := range s.clients {
		c.conn.Close()
	}
	s.clients = make(map[*client]struct{})
	s.mu.Unlock()

	s.sup.Wait()
	return err
}

// Broadcast sends a frame to every connected client. Clients that fail
// to accept the write are dropped.
func (s *Server) Broadcast(v any) {
	s.mu.Lock()
	conns := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		if err := c.send(v); err != nil {
			s.log.Warn("dropping client", "client_id", c.id, "error", err)
			s.removeClient(c)
		}
	}
}

// ClientCount returns the number of connected clients.
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) removeClient(c *client) {
	s.mu.Lock()
	_, ok := s.clients[c]
	delete(s.clients, c)
	s.mu.Unlock()

	if ok {
		c.conn.Close()
		s.log.Info("client disconnected", "client_id", c.id)
	}
}

// handleWS upgrades the connection and runs the per-client read loop.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("upgrade failed", "error", err)
		return
	}

	c := &client{id: uuid.NewString(), conn: conn}
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	s.log.Info("client connected", "client_id", c.id, "remote", r.RemoteAddr)

	// Welcome frame with the assigned client id.
	c.send(protocol.ConnectionEstablished{
		Type:      protocol.MsgConnectionEstablished,
		ClientID:  c.id,
		Timestamp: s.sup.now().Format(time.RFC3339),
	})

	go s.readClient(c)
}

// readClient consumes frames from one client until the socket closes.
func (s *Server) readClient(c *client) {
	defer logging.LogPanic("ws-client", nil)
	defer s.removeClient(c)

	c.conn.SetReadLimit(64 * 1024)
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Warn("client read error", "client_id", c.id, "error", err)
			}
			return
		}
		s.handleMessage(c, raw)
	}
}

// handleMessage processes one inbound command frame.
func (s *Server) handleMessage(c *client, raw []byte) {
	env, err := protocol.Decode(raw)
	if err != nil {
		s.log.Warn("invalid frame", "client_id", c.id, "error", err)
		s.sendError(c, "Invalid JSON format")
		return
	}

	switch env.Type {
	case protocol.MsgPing:
		c.send(protocol.Pong{
			Type:      protocol.MsgPong,
			Timestamp: s.sup.now().Format(time.RFC3339),
		})

	case protocol.MsgStartAgent:
		if env.AgentID == "" {
			s.sendError(c, "agent_id is required for start_agent command")
			return
		}
		if err := s.sup.StartTask(env.AgentID, env.TaskType, env.Config); err != nil {
			s.sendError(c, err.Error())
			return
		}
		s.sendAck(c, "start_agent", env.AgentID, "Agent start command received")

	case protocol.MsgStopAgent:
		if env.AgentID == "" {
			s.sendError(c, "agent_id is required for stop_agent command")
			return
		}
		if err := s.sup.StopTask(env.AgentID); err != nil {
			// Stop for an idle agent is acknowledged as a no-op.
			if !errors.Is(err, ErrNotRunning) {
				s.sendError(c, err.Error())
				return
			}
			s.log.Warn("stop for idle agent", "agent_id", env.AgentID)
		}
		s.sendAck(c, "stop_agent", env.AgentID, "Agent stop command received")

	default:
		s.sendError(c, fmt.Sprintf("Unknown message type: %s", env.Type))
	}
}

func (s *Server) sendAck(c *client, command, agentID, message string) {
	c.send(protocol.CommandReceived{
		Type:      protocol.MsgCommandReceived,
		Command:   command,
		AgentID:   agentID,
		Message:   message,
		Timestamp: s.sup.now().Format(time.RFC3339),
	})
}

func (s *Server) sendError(c *client, message string) {
	c.send(protocol.ErrorMessage{
		Type:      protocol.MsgError,
		Message:   message,
		Timestamp: s.sup.now().Format(time.RFC3339),
	})
}
