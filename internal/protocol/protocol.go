// Package protocol defines the wire protocol between the girder supervisor
// and its dashboard clients, along with the shared agent data model.
//
// Messages are UTF-8 text frames, each containing one JSON object with a
// mandatory "type" discriminant. Unknown inbound types must be tolerated
// by both sides.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// AgentType identifies the platform integration an agent targets.
type AgentType string

// Supported agent types.
const (
	TypeProcore   AgentType = "procore"
	TypeAutodesk  AgentType = "autodesk"
	TypePrimavera AgentType = "primavera"
	TypeMSProject AgentType = "msproject"
	TypeEmail     AgentType = "email"
	TypeDemo      AgentType = "demo"

	// TypeUnknown is used for placeholder agents materialized from updates
	// that reference an id the client has never seen.
	TypeUnknown AgentType = "unknown"
)

// AgentStatus is the execution state of an agent.
type AgentStatus string

// Agent execution states.
const (
	StatusIdle      AgentStatus = "idle"
	StatusRunning   AgentStatus = "running"
	StatusError     AgentStatus = "error"
	StatusCompleted AgentStatus = "completed"
)

// Valid reports whether s is one of the defined agent states.
func (s AgentStatus) Valid() bool {
	switch s {
	case StatusIdle, StatusRunning, StatusError, StatusCompleted:
		return true
	}
	return false
}

// Terminal reports whether s ends a task run (completed or error).
func (s AgentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Schedule is an optional recurring-run configuration for an agent.
// It is owned by the configuration layer and passed through to the
// supervisor unmodified.
type Schedule struct {
	Interval string `json:"interval,omitempty" yaml:"interval,omitempty"` // e.g. "30m", "6h"
	TaskType string `json:"task_type,omitempty" yaml:"task_type,omitempty"`
}

// Agent is a named, typed automation worker.
type Agent struct {
	ID       string         `json:"id" yaml:"id"`
	Name     string         `json:"name" yaml:"name"`
	Type     AgentType      `json:"type" yaml:"type"`
	Status   AgentStatus    `json:"status" yaml:"-"`
	Progress int            `json:"progress" yaml:"-"` // 0-100, meaningful while running
	Message  string         `json:"message,omitempty" yaml:"-"`
	LastRun  *time.Time     `json:"last_run,omitempty" yaml:"-"`
	Config   map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
	Schedule *Schedule      `json:"schedule,omitempty" yaml:"schedule,omitempty"`
}

// AgentUpdate is an inbound event describing a change to one agent.
type AgentUpdate struct {
	AgentID   string         `json:"agentId"`
	Status    AgentStatus    `json:"status"`
	Progress  int            `json:"progress"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"` // event time, not receipt time
}

// MessageType is the wire discriminant carried in every frame.
type MessageType string

// Client → supervisor message types.
const (
	MsgStartAgent MessageType = "start_agent"
	MsgStopAgent  MessageType = "stop_agent"
	MsgPing       MessageType = "ping"
)

// Supervisor → client message types.
const (
	MsgConnectionEstablished MessageType = "connection_established"
	MsgAgentUpdate           MessageType = "agent_update"
	MsgCommandReceived       MessageType = "command_received"
	MsgError                 MessageType = "error"
	MsgPong                  MessageType = "pong"
)

// StartAgent is the client → supervisor command to start an agent task.
type StartAgent struct {
	Type      MessageType    `json:"type"`
	AgentID   string         `json:"agent_id"`
	AgentType AgentType      `json:"agent_type"`
	TaskType  string         `json:"task_type"`
	Config    map[string]any `json:"config"`
}

// NewStartAgent builds a well-formed start_agent message.
func NewStartAgent(agentID string, agentType AgentType, taskType string, config map[string]any) StartAgent {
	if config == nil {
		config = map[string]any{}
	}
	return StartAgent{
		Type:      MsgStartAgent,
		AgentID:   agentID,
		AgentType: agentType,
		TaskType:  taskType,
		Config:    config,
	}
}

// StopAgent is the client → supervisor command to stop a running agent.
type StopAgent struct {
	Type    MessageType `json:"type"`
	AgentID string      `json:"agent_id"`
}

// NewStopAgent builds a well-formed stop_agent message.
func NewStopAgent(agentID string) StopAgent {
	return StopAgent{Type: MsgStopAgent, AgentID: agentID}
}

// Ping is the client → supervisor liveness probe.
type Ping struct {
	Type      MessageType `json:"type"`
	Timestamp string      `json:"timestamp"`
}

// NewPing builds a ping message stamped with the current time.
func NewPing(now time.Time) Ping {
	return Ping{Type: MsgPing, Timestamp: now.Format(time.RFC3339)}
}

// Envelope is the decoded form of any inbound frame. Only Type is
// guaranteed; the remaining fields are populated per message type.
type Envelope struct {
	Type      MessageType     `json:"type"`
	ClientID  string          `json:"client_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Message   string          `json:"message,omitempty"`
	Command   string          `json:"command,omitempty"`
	AgentID   string          `json:"agent_id,omitempty"`
	AgentType AgentType       `json:"agent_type,omitempty"`
	TaskType  string          `json:"task_type,omitempty"`
	Config    map[string]any  `json:"config,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
}

// Decode parses a raw frame into an Envelope.
func Decode(raw []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("decode message: missing type field")
	}
	return &env, nil
}

// updatePayload is the raw shape of the agent_update "data" object.
// Progress is a pointer so an absent field can be defaulted separately
// from an explicit zero.
type updatePayload struct {
	AgentID  string         `json:"agentId"`
	Status   string         `json:"status"`
	Progress *int           `json:"progress"`
	Message  string         `json:"message"`
	Data     map[string]any `json:"data"`
}

// ParseAgentUpdate extracts an AgentUpdate from an agent_update envelope,
// applying the field defaults the protocol mandates: progress 0 when
// absent, empty message when absent, timestamp parsed from the outer
// ISO-8601 string. A timestamp that is absent or malformed falls back to
// the receipt time so the update is never dropped.
func ParseAgentUpdate(env *Envelope) (*AgentUpdate, error) {
	if env.Type != MsgAgentUpdate {
		return nil, fmt.Errorf("parse agent update: unexpected type %q", env.Type)
	}
	if len(env.Data) == 0 {
		return nil, fmt.Errorf("parse agent update: missing data payload")
	}

	var p updatePayload
	if err := json.Unmarshal(env.Data, &p); err != nil {
		return nil, fmt.Errorf("parse agent update: %w", err)
	}
	if p.AgentID == "" {
		return nil, fmt.Errorf("parse agent update: missing agentId")
	}

	status := AgentStatus(p.Status)
	if !status.Valid() {
		return nil, fmt.Errorf("parse agent update: invalid status %q", p.Status)
	}

	progress := 0
	if p.Progress != nil {
		progress = *p.Progress
	}

	ts, err := time.Parse(time.RFC3339, env.Timestamp)
	if err != nil {
		ts = time.Now()
	}

	return &AgentUpdate{
		AgentID:   p.AgentID,
		Status:    status,
		Progress:  progress,
		Message:   p.Message,
		Data:      p.Data,
		Timestamp: ts,
	}, nil
}

// UpdateMessage is the supervisor → client agent_update frame.
type UpdateMessage struct {
	Type      MessageType   `json:"type"`
	Data      updateOutData `json:"data"`
	Timestamp string        `json:"timestamp"`
}

// updateOutData mirrors updatePayload for encoding.
type updateOutData struct {
	AgentID  string         `json:"agentId"`
	Status   AgentStatus    `json:"status"`
	Progress int            `json:"progress"`
	Message  string         `json:"message"`
	Data     map[string]any `json:"data,omitempty"`
}

// NewUpdateMessage builds an agent_update frame from an AgentUpdate.
func NewUpdateMessage(u AgentUpdate) UpdateMessage {
	return UpdateMessage{
		Type: MsgAgentUpdate,
		Data: updateOutData{
			AgentID:  u.AgentID,
			Status:   u.Status,
			Progress: u.Progress,
			Message:  u.Message,
			Data:     u.Data,
		},
		Timestamp: u.Timestamp.Format(time.RFC3339),
	}
}

// ConnectionEstablished is the supervisor's welcome frame.
type ConnectionEstablished struct {
	Type      MessageType `json:"type"`
	ClientID  string      `json:"client_id"`
	Timestamp string      `json:"timestamp"`
}

// CommandReceived acknowledges a start/stop command.
type CommandReceived struct {
	Type      MessageType `json:"type"`
	Command   string      `json:"command,omitempty"`
	AgentID   string      `json:"agent_id,omitempty"`
	Message   string      `json:"message"`
	Timestamp string      `json:"timestamp"`
}

// ErrorMessage carries a human-readable supervisor-side error.
type ErrorMessage struct {
	Type      MessageType `json:"type"`
	Message   string      `json:"message"`
	Timestamp string      `json:"timestamp"`
}

// Pong is the supervisor's reply to a ping.
type Pong struct {
	Type      MessageType `json:"type"`
	Timestamp string      `json:"timestamp"`
}
