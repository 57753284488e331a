// Package supervisor runs agents and broadcasts their status.
//
// The supervisor owns the authoritative agent state. Dashboards connect
// over WebSocket, issue start/stop commands, and receive every status
// transition as an agent_update broadcast. One task per agent runs at a
// time; a second start is rejected while the first is in flight.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"

	"girder/internal/agent"
	"girder/internal/event"
	"girder/internal/history"
	"girder/internal/logging"
	"girder/internal/protocol"
)

// Errors returned by command handling.
var (
	ErrUnknownAgent = errors.New("unknown agent")
	ErrAgentBusy    = errors.New("agent is already running")
	ErrNotRunning   = errors.New("agent is not running")
)

// RunnerFactory builds the runner for an agent. Swapped in tests for
// instant runners.
type RunnerFactory func(agentType protocol.AgentType, config map[string]any) agent.Runner

// agentState is the supervisor-side record for one agent.
type agentState struct {
	def      protocol.Agent
	status   protocol.AgentStatus
	progress int
	message  string

	cancel  context.CancelFunc // non-nil while a task is running
	stopped bool               // user requested the running task to stop
}

// Supervisor executes tasks and emits authoritative status updates.
type Supervisor struct {
	log     *slog.Logger
	hist    *history.Store // may be nil
	runners RunnerFactory
	now     func() time.Time

	mu sync.Mutex
	// +checklocks:mu
	agents map[string]*agentState

	updates event.Emitter[protocol.AgentUpdate]
	wg      sync.WaitGroup
}

// New creates a supervisor for the given agent catalog. hist may be
// nil to disable run history.
func New(agents []protocol.Agent, hist *history.Store, log *slog.Logger) *Supervisor {
	if log == nil {
		log = slog.Default()
	}
	s := &Supervisor{
		log:     log,
		hist:    hist,
		runners: agent.NewRunner,
		now:     time.Now,
		agents:  make(map[string]*agentState),
	}
	s.SetAgents(agents)
	return s
}

// SetRunnerFactory replaces the runner factory. Must be called before
// any task starts.
func (s *Supervisor) SetRunnerFactory(f RunnerFactory) {
	s.runners = f
}

// OnUpdate registers a handler for every status transition. The server
// layer subscribes here to broadcast updates to connected clients.
func (s *Supervisor) OnUpdate(handler func(protocol.AgentUpdate)) {
	s.updates.OnEvent(handler)
}

// SetAgents replaces the agent catalog. Agents with a task in flight
// keep their live state; removed agents disappear once idle.
func (s *Supervisor) SetAgents(agents []protocol.Agent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]*agentState, len(agents))
	for _, def := range agents {
		if prev, ok := s.agents[def.ID]; ok {
			prev.def = def
			next[def.ID] = prev
			continue
		}
		next[def.ID] = &agentState{def: def, status: protocol.StatusIdle}
	}
	// Keep removed agents until their task finishes.
	for id, st := range s.agents {
		if _, ok := next[id]; !ok && st.cancel != nil {
			next[id] = st
		}
	}
	s.agents = next
	s.log.Info("agent catalog loaded", "agents", len(next))
}

// Agents returns the catalog with live status applied.
func (s *Supervisor) Agents() []protocol.Agent {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]protocol.Agent, 0, len(s.agents))
	for _, st := range s.agents {
		def := st.def
		def.Status = st.status
		def.Progress = st.progress
		def.Message = st.message
		out = append(out, def)
	}
	return out
}

// StartTask begins a task run for the agent. An empty taskType falls
// back to the agent's configured schedule; config overrides the
// agent's configured defaults key by key.
func (s *Supervisor) StartTask(agentID, taskType string, config map[string]any) error {
	s.mu.Lock()
	st, ok := s.agents[agentID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownAgent, agentID)
	}
	if st.cancel != nil {
		s.mu.Unlock()
		return fmt.Errorf("agent %s: %w", agentID, ErrAgentBusy)
	}

	merged := make(map[string]any, len(st.def.Config)+len(config))
	maps.Copy(merged, st.def.Config)
	maps.Copy(merged, config)

	if taskType == "" {
		taskType = agent.ConfigString(merged, "task_type", "")
	}
	if taskType == "" && st.def.Schedule != nil {
		taskType = st.def.Schedule.TaskType
	}

	ctx, cancel := context.WithCancel(context.Background())
	st.cancel = cancel
	st.stopped = false

	task := agent.Task{ID: uuid.NewString(), Type: taskType, Params: merged}
	runner := s.runners(st.def.Type, merged)
	s.mu.Unlock()

	s.log.Info("task starting", "agent_id", agentID, "task_id", task.ID, "task_type", taskType)
	s.setStatus(agentID, protocol.StatusRunning, 0, fmt.Sprintf("Starting %s", displayTaskType(taskType)), nil)
	s.recordStart(task.ID, agentID, taskType)

	s.wg.Add(1)
	go s.runTask(ctx, st, task, runner)
	return nil
}

// StopTask cancels the agent's running task. Stopping an idle agent
// returns ErrNotRunning.
func (s *Supervisor) StopTask(agentID string) error {
	s.mu.Lock()
	st, ok := s.agents[agentID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownAgent, agentID)
	}
	if st.cancel == nil {
		s.mu.Unlock()
		return fmt.Errorf("agent %s: %w", agentID, ErrNotRunning)
	}
	st.stopped = true
	cancel := st.cancel
	progress := st.progress
	s.mu.Unlock()

	s.log.Info("task stopping", "agent_id", agentID)
	s.setStatus(agentID, protocol.StatusRunning, progress, "Stopping", nil)
	cancel()
	return nil
}

// runTask drives one task to completion and emits the terminal update.
func (s *Supervisor) runTask(ctx context.Context, st *agentState, task agent.Task, runner agent.Runner) {
	defer s.wg.Done()
	defer logging.LogPanic("task-runner", nil)

	agentID := st.def.ID
	report := func(status protocol.AgentStatus, progress int, message string, data map[string]any) {
		s.setStatus(agentID, status, progress, message, data)
	}

	err := runner.Run(ctx, task, report)

	s.mu.Lock()
	stopped := st.stopped
	st.cancel = nil
	st.stopped = false
	progress := st.progress
	s.mu.Unlock()

	switch {
	case stopped || errors.Is(err, context.Canceled):
		s.log.Info("task stopped", "agent_id", agentID, "task_id", task.ID)
		s.setStatus(agentID, protocol.StatusIdle, 0, "Task stopped by user", nil)
		s.recordFinish(task.ID, protocol.StatusIdle, "Task stopped by user")
	case err != nil:
		msg := fmt.Sprintf("Task failed: %v", err)
		s.log.Error("task failed", "agent_id", agentID, "task_id", task.ID, "error", err)
		s.setStatus(agentID, protocol.StatusError, progress, msg, nil)
		s.recordFinish(task.ID, protocol.StatusError, msg)
	default:
		s.log.Info("task completed", "agent_id", agentID, "task_id", task.ID)
		s.setStatus(agentID, protocol.StatusCompleted, 100, "Task completed successfully", nil)
		s.recordFinish(task.ID, protocol.StatusCompleted, "Task completed successfully")
	}
}

// setStatus updates the agent record and emits the update.
func (s *Supervisor) setStatus(agentID string, status protocol.AgentStatus, progress int, message string, data map[string]any) {
	s.mu.Lock()
	if st, ok := s.agents[agentID]; ok {
		st.status = status
		st.progress = progress
		st.message = message
	}
	s.mu.Unlock()

	s.updates.Emit(protocol.AgentUpdate{
		AgentID:   agentID,
		Status:    status,
		Progress:  progress,
		Message:   message,
		Data:      data,
		Timestamp: s.now(),
	})
}

func (s *Supervisor) recordStart(runID, agentID, taskType string) {
	if s.hist == nil {
		return
	}
	if taskType == "" {
		taskType = agent.TaskDataExtraction
	}
	if err := s.hist.RecordStart(context.Background(), runID, agentID, taskType, s.now()); err != nil {
		s.log.Warn("history write failed", "error", err)
	}
}

func (s *Supervisor) recordFinish(runID string, status protocol.AgentStatus, message string) {
	if s.hist == nil {
		return
	}
	if err := s.hist.RecordFinish(context.Background(), runID, status, message, s.now()); err != nil {
		s.log.Warn("history write failed", "error", err)
	}
}

// Wait blocks until all in-flight tasks have finished. Used during
// shutdown and in tests.
func (s *Supervisor) Wait() {
	s.wg.Wait()
}

func displayTaskType(taskType string) string {
	if taskType == "" {
		return agent.TaskDataExtraction
	}
	return taskType
}
