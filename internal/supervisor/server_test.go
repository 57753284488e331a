package supervisor

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"girder/internal/agent"
	"girder/internal/logging"
	"girder/internal/protocol"
)

// startTestServer brings up a supervisor and WebSocket server on an
// ephemeral port.
func startTestServer(t *testing.T, runner agent.Runner) *Server {
	t.Helper()

	sup := New(testAgents(), nil, logging.SetupTest(nil))
	sup.SetRunnerFactory(func(protocol.AgentType, map[string]any) agent.Runner { return runner })

	srv := NewServer(sup, "/ws", logging.SetupTest(nil))
	if err := srv.Start("127.0.0.1:0"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})
	return srv
}

func dialTestServer(t *testing.T, srv *Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(srv.URL(), nil)
	if err != nil {
		t.Fatalf("Dial(%s) error = %v", srv.URL(), err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readFrame reads frames until one of the wanted type arrives.
func readFrame(t *testing.T, conn *websocket.Conn, want protocol.MessageType) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("ReadMessage() error = %v (waiting for %q)", err, want)
		}
		var frame map[string]any
		if err := json.Unmarshal(raw, &frame); err != nil {
			t.Fatalf("frame is not JSON: %v\n%s", err, raw)
		}
		if frame["type"] == string(want) {
			return frame
		}
	}
}

func writeFrame(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	if err := conn.WriteJSON(v); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
}

func TestServer_WelcomeFrame(t *testing.T) {
	srv := startTestServer(t, &scriptRunner{})
	conn := dialTestServer(t, srv)

	frame := readFrame(t, conn, protocol.MsgConnectionEstablished)
	if frame["client_id"] == "" || frame["client_id"] == nil {
		t.Errorf("welcome frame missing client_id: %v", frame)
	}
	if frame["timestamp"] == nil {
		t.Errorf("welcome frame missing timestamp: %v", frame)
	}
}

func TestServer_PingPong(t *testing.T) {
	srv := startTestServer(t, &scriptRunner{})
	conn := dialTestServer(t, srv)
	readFrame(t, conn, protocol.MsgConnectionEstablished)

	writeFrame(t, conn, protocol.NewPing(time.Now()))

	frame := readFrame(t, conn, protocol.MsgPong)
	if frame["timestamp"] == nil {
		t.Errorf("pong missing timestamp: %v", frame)
	}
}

func TestServer_StartAgentFlow(t *testing.T) {
	srv := startTestServer(t, &scriptRunner{})
	conn := dialTestServer(t, srv)
	readFrame(t, conn, protocol.MsgConnectionEstablished)

	writeFrame(t, conn, protocol.NewStartAgent("demo-agent-1", protocol.TypeDemo, "simulate_data_extraction", nil))

	ack := readFrame(t, conn, protocol.MsgCommandReceived)
	if ack["command"] != "start_agent" || ack["agent_id"] != "demo-agent-1" {
		t.Errorf("ack = %v", ack)
	}

	// The broadcastable lifecycle: running updates then completion.
	sawRunning := false
	for {
		frame := readFrame(t, conn, protocol.MsgAgentUpdate)
		data := frame["data"].(map[string]any)
		if data["agentId"] != "demo-agent-1" {
			t.Fatalf("update for wrong agent: %v", data)
		}
		switch data["status"] {
		case "running":
			sawRunning = true
		case "completed":
			if !sawRunning {
				t.Error("completed before any running update")
			}
			if data["progress"] != float64(100) {
				t.Errorf("completed progress = %v", data["progress"])
			}
			return
		}
	}
}

func TestServer_StartAgentErrors(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	srv := startTestServer(t, &scriptRunner{block: block})
	conn := dialTestServer(t, srv)
	readFrame(t, conn, protocol.MsgConnectionEstablished)

	// Missing agent_id.
	writeFrame(t, conn, map[string]any{"type": "start_agent"})
	frame := readFrame(t, conn, protocol.MsgError)
	if frame["message"] != "agent_id is required for start_agent command" {
		t.Errorf("error = %v", frame["message"])
	}

	// Unknown agent.
	writeFrame(t, conn, protocol.NewStartAgent("ghost", "", "", nil))
	frame = readFrame(t, conn, protocol.MsgError)
	if frame["message"] == "" {
		t.Error("unknown agent produced empty error")
	}

	// Busy agent.
	writeFrame(t, conn, protocol.NewStartAgent("demo-agent-1", protocol.TypeDemo, "", nil))
	readFrame(t, conn, protocol.MsgCommandReceived)
	writeFrame(t, conn, protocol.NewStartAgent("demo-agent-1", protocol.TypeDemo, "", nil))
	frame = readFrame(t, conn, protocol.MsgError)
	if frame["message"] == "" {
		t.Error("busy agent produced empty error")
	}
}

func TestServer_StopAgent(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	srv := startTestServer(t, &scriptRunner{block: block})
	conn := dialTestServer(t, srv)
	readFrame(t, conn, protocol.MsgConnectionEstablished)

	writeFrame(t, conn, protocol.NewStartAgent("demo-agent-1", protocol.TypeDemo, "", nil))
	readFrame(t, conn, protocol.MsgCommandReceived)

	writeFrame(t, conn, protocol.NewStopAgent("demo-agent-1"))
	ack := readFrame(t, conn, protocol.MsgCommandReceived)
	if ack["command"] != "stop_agent" {
		t.Errorf("ack = %v", ack)
	}

	for {
		frame := readFrame(t, conn, protocol.MsgAgentUpdate)
		data := frame["data"].(map[string]any)
		if data["status"] == "idle" {
			if data["message"] != "Task stopped by user" {
				t.Errorf("stop message = %v", data["message"])
			}
			return
		}
	}
}

func TestServer_StopIdleAgentAcked(t *testing.T) {
	srv := startTestServer(t, &scriptRunner{})
	conn := dialTestServer(t, srv)
	readFrame(t, conn, protocol.MsgConnectionEstablished)

	// No task is running; the stop is acknowledged as a no-op.
	writeFrame(t, conn, protocol.NewStopAgent("demo-agent-1"))
	ack := readFrame(t, conn, protocol.MsgCommandReceived)
	if ack["command"] != "stop_agent" || ack["agent_id"] != "demo-agent-1" {
		t.Errorf("ack = %v", ack)
	}
}

func TestServer_MalformedJSON(t *testing.T) {
	srv := startTestServer(t, &scriptRunner{})
	conn := dialTestServer(t, srv)
	readFrame(t, conn, protocol.MsgConnectionEstablished)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}

	frame := readFrame(t, conn, protocol.MsgError)
	if frame["message"] != "Invalid JSON format" {
		t.Errorf("error = %v", frame["message"])
	}
}

func TestServer_UnknownMessageType(t *testing.T) {
	srv := startTestServer(t, &scriptRunner{})
	conn := dialTestServer(t, srv)
	readFrame(t, conn, protocol.MsgConnectionEstablished)

	writeFrame(t, conn, map[string]any{"type": "reticulate_splines"})

	frame := readFrame(t, conn, protocol.MsgError)
	if frame["message"] != "Unknown message type: reticulate_splines" {
		t.Errorf("error = %v", frame["message"])
	}
}

func TestServer_BroadcastReachesAllClients(t *testing.T) {
	srv := startTestServer(t, &scriptRunner{})

	a := dialTestServer(t, srv)
	b := dialTestServer(t, srv)
	readFrame(t, a, protocol.MsgConnectionEstablished)
	readFrame(t, b, protocol.MsgConnectionEstablished)

	if got := srv.ClientCount(); got != 2 {
		t.Fatalf("ClientCount() = %d, want 2", got)
	}

	// A command from client A produces updates on both connections.
	writeFrame(t, a, protocol.NewStartAgent("demo-agent-1", protocol.TypeDemo, "", nil))

	for _, conn := range []*websocket.Conn{a, b} {
		frame := readFrame(t, conn, protocol.MsgAgentUpdate)
		data := frame["data"].(map[string]any)
		if data["agentId"] != "demo-agent-1" {
			t.Errorf("update = %v", data)
		}
	}
}
