// Package router dispatches inbound supervisor frames by message type.
//
// The router is the single consumer of raw frames from the connection
// manager. Each frame is decoded once and handed to the component that
// owns its type: agent updates go to the registry, acknowledgements and
// errors become notifications, protocol housekeeping goes to callbacks.
// Unknown types are logged and dropped so protocol additions never
// break older clients.
package router

import (
	"fmt"
	"log/slog"

	"girder/internal/notify"
	"girder/internal/protocol"
	"girder/internal/registry"
)

// Router routes decoded frames to their handlers.
type Router struct {
	reg   *registry.Registry
	notes *notify.Center
	log   *slog.Logger

	onEstablished func(clientID string)
	onPong        func(timestamp string)
}

// New creates a router feeding the given registry and notification
// center.
func New(reg *registry.Registry, notes *notify.Center, log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}
	return &Router{reg: reg, notes: notes, log: log}
}

// OnConnectionEstablished registers a callback for the supervisor's
// welcome frame. The callback receives the assigned client id.
func (r *Router) OnConnectionEstablished(f func(clientID string)) {
	r.onEstablished = f
}

// OnPong registers a callback for pong frames.
func (r *Router) OnPong(f func(timestamp string)) {
	r.onPong = f
}

// Dispatch decodes one raw frame and routes it. Malformed frames are
// surfaced as error notifications and dropped; Dispatch never returns
// an error for wire content because the read loop cannot do anything
// about it.
func (r *Router) Dispatch(raw []byte) {
	env, err := protocol.Decode(raw)
	if err != nil {
		r.log.Warn("dropping malformed frame", "error", err)
		r.notes.Errorf("Protocol error", "Received a malformed message from the supervisor")
		return
	}

	switch env.Type {
	case protocol.MsgConnectionEstablished:
		r.log.Info("connection established", "client_id", env.ClientID)
		if r.onEstablished != nil {
			r.onEstablished(env.ClientID)
		}

	case protocol.MsgAgentUpdate:
		u, err := protocol.ParseAgentUpdate(env)
		if err != nil {
			r.log.Warn("dropping invalid agent update", "error", err)
			r.notes.Errorf("Protocol error", "Received an invalid agent update")
			return
		}
		r.reg.ApplyUpdate(*u)

	case protocol.MsgCommandReceived:
		r.log.Debug("command acknowledged", "command", env.Command, "agent_id", env.AgentID)
		msg := env.Message
		if msg == "" {
			msg = fmt.Sprintf("%s acknowledged for %s", env.Command, env.AgentID)
		}
		r.notes.Infof("Command received", msg)

	case protocol.MsgError:
		r.log.Warn("supervisor error", "message", env.Message)
		r.notes.Errorf("Supervisor error", env.Message)

	case protocol.MsgPong:
		r.log.Debug("pong", "timestamp", env.Timestamp)
		if r.onPong != nil {
			r.onPong(env.Timestamp)
		}

	default:
		// Forward compatibility: ignore types this client predates.
		r.log.Debug("ignoring unknown message type", "type", env.Type)
	}
}
