// Package dispatch sends agent commands to the supervisor.
//
// Commands are fail-fast: when the connection is down the dispatcher
// reports the failure immediately and leaves agent state untouched.
// Only a command that was actually written to the wire earns an
// optimistic registry transition, which the supervisor's authoritative
// updates later confirm or correct.
package dispatch

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"girder/internal/conn"
	"girder/internal/notify"
	"girder/internal/protocol"
	"girder/internal/registry"
)

// Connection is the transport surface the dispatcher needs.
type Connection interface {
	Send(v any) error
	State() conn.State
}

// Dispatcher issues start, stop and ping commands.
type Dispatcher struct {
	conn  Connection
	reg   *registry.Registry
	notes *notify.Center
	log   *slog.Logger
	now   func() time.Time
}

// New creates a dispatcher.
func New(c Connection, reg *registry.Registry, notes *notify.Center, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{conn: c, reg: reg, notes: notes, log: log, now: time.Now}
}

// StartAgent asks the supervisor to start a task run for the agent.
// An empty taskType falls back to the agent's scheduled task, then to
// the supervisor's default for the agent type. On success the agent is
// optimistically marked running.
func (d *Dispatcher) StartAgent(agentID, taskType string, config map[string]any) error {
	var agentType protocol.AgentType
	if a, ok := d.reg.Agent(agentID); ok {
		agentType = a.Type
		if taskType == "" && a.Schedule != nil {
			taskType = a.Schedule.TaskType
		}
	}

	if err := d.send("start_agent", agentID, protocol.NewStartAgent(agentID, agentType, taskType, config)); err != nil {
		return err
	}

	// Optimistic transition, corrected by the next authoritative
	// update. Agents unknown locally are left for the supervisor's
	// update to materialize.
	if err := d.reg.UpdateAgent(agentID, protocol.StatusRunning, 0, "Starting"); err != nil && !errors.Is(err, registry.ErrUnknownAgent) {
		return err
	}
	return nil
}

// StopAgent asks the supervisor to stop the agent's current task run.
// On success the agent is optimistically marked idle.
func (d *Dispatcher) StopAgent(agentID string) error {
	if err := d.send("stop_agent", agentID, protocol.NewStopAgent(agentID)); err != nil {
		return err
	}

	if err := d.reg.UpdateAgent(agentID, protocol.StatusIdle, 0, "Stopping"); err != nil && !errors.Is(err, registry.ErrUnknownAgent) {
		return err
	}
	return nil
}

// Ping sends a liveness probe. The supervisor answers with a pong.
func (d *Dispatcher) Ping() error {
	return d.send("ping", "", protocol.NewPing(d.now()))
}

// send performs the connection-state check and the write. There is no
// queueing: a command issued while disconnected fails now, not later.
func (d *Dispatcher) send(command, agentID string, msg any) error {
	if state := d.conn.State(); state != conn.StateConnected {
		d.log.Warn("command rejected, not connected", "command", command, "agent_id", agentID, "state", state)
		d.notes.Errorf("Not connected", fmt.Sprintf("Cannot send %s while %s", command, state))
		return conn.ErrNotConnected
	}

	if err := d.conn.Send(msg); err != nil {
		d.log.Error("command send failed", "command", command, "agent_id", agentID, "error", err)
		d.notes.Errorf("Send failed", fmt.Sprintf("Failed to send %s: %v", command, err))
		return fmt.Errorf("send %s: %w", command, err)
	}

	d.log.Info("command sent", "command", command, "agent_id", agentID)
	return nil
}
