// Package registry maintains the client-side projection of agent state.
//
// The registry is a last-write-wins view fed from two directions: the
// command dispatcher applies optimistic local transitions, and the
// connection read loop applies authoritative updates from the
// supervisor. Authoritative updates always replace optimistic state.
package registry

import (
	"errors"
	"sort"
	"sync"
	"time"

	"girder/internal/event"
	"girder/internal/protocol"
)

// Errors returned by registry operations.
var (
	// ErrUnknownAgent is returned when an optimistic update names an
	// agent the registry has never seen.
	ErrUnknownAgent = errors.New("unknown agent")
)

// Source records which side of the protocol last wrote an agent's state.
type Source string

// Sources, in increasing order of authority.
const (
	// SourceLocal marks state seeded from configuration, before any
	// update has been applied.
	SourceLocal Source = "local"
	// SourceOptimistic marks a local transition applied by the command
	// dispatcher ahead of supervisor confirmation.
	SourceOptimistic Source = "optimistic"
	// SourceAuthoritative marks state confirmed by a supervisor update.
	SourceAuthoritative Source = "authoritative"
)

// Agent is a protocol agent annotated with the provenance of its
// current status.
type Agent struct {
	protocol.Agent
	Source Source
}

// Registry holds the known agents and a bounded log of recent updates.
// It is safe for concurrent use.
type Registry struct {
	mu sync.RWMutex
	// +checklocks:mu
	agents map[string]*Agent

	ring    *UpdateRing
	changed event.Emitter[string]
}

// New creates an empty registry retaining up to DefaultRingSize recent
// updates.
func New() *Registry {
	return NewWithRingSize(DefaultRingSize)
}

// NewWithRingSize creates an empty registry with a custom update-log
// capacity.
func NewWithRingSize(size int) *Registry {
	return &Registry{
		agents: make(map[string]*Agent),
		ring:   NewUpdateRing(size),
	}
}

// OnChange registers a handler invoked with the agent id after every
// mutation. An empty id means the whole set was replaced.
func (r *Registry) OnChange(handler func(agentID string)) {
	r.changed.OnEvent(handler)
}

// SetAgents replaces the known agent set. Status fields carried by the
// input are preserved; agents present before the call and absent from
// the input are dropped. Calling SetAgents twice with the same input
// yields the same state.
func (r *Registry) SetAgents(agents []protocol.Agent) {
	r.mu.Lock()
	next := make(map[string]*Agent, len(agents))
	for _, a := range agents {
		if a.Status == "" {
			a.Status = protocol.StatusIdle
		}
		next[a.ID] = &Agent{Agent: a, Source: SourceLocal}
	}
	r.agents = next
	r.mu.Unlock()

	r.changed.Emit("")
}

// UpdateAgent applies an optimistic local transition to a known agent.
// It returns ErrUnknownAgent if the agent has never been seen; callers
// must not materialize agents from local guesses.
func (r *Registry) UpdateAgent(id string, status protocol.AgentStatus, progress int, message string) error {
	r.mu.Lock()
	a, ok := r.agents[id]
	if !ok {
		r.mu.Unlock()
		return ErrUnknownAgent
	}
	a.Status = status
	a.Progress = progress
	a.Message = message
	a.Source = SourceOptimistic
	r.mu.Unlock()

	r.changed.Emit(id)
	return nil
}

// ApplyUpdate applies an authoritative supervisor update. Updates for
// an unknown agent materialize a placeholder entry named after its id,
// so late subscribers and misordered registrations still render. The
// update is also appended to the recent-updates log.
func (r *Registry) ApplyUpdate(u protocol.AgentUpdate) {
	r.mu.Lock()
	a, ok := r.agents[u.AgentID]
	if !ok {
		a = &Agent{Agent: protocol.Agent{
			ID:   u.AgentID,
			Name: u.AgentID,
			Type: protocol.TypeUnknown,
		}}
		r.agents[u.AgentID] = a
	}
	a.Status = u.Status
	a.Progress = u.Progress
	a.Message = u.Message
	a.Source = SourceAuthoritative
	if u.Status.Terminal() {
		t := u.Timestamp
		a.LastRun = &t
	}
	r.mu.Unlock()

	r.ring.Push(u)
	r.changed.Emit(u.AgentID)
}

// Agent returns a copy of the agent with the given id.
func (r *Registry) Agent(id string) (Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.agents[id]
	if !ok {
		return Agent{}, false
	}
	return *a, true
}

// Agents returns copies of all known agents, sorted by name then id for
// stable display.
func (r *Registry) Agents() []Agent {
	r.mu.RLock()
	out := make([]Agent, 0, len(r.agents))
	for _, a := range r.agents {
		out = append(out, *a)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ActiveAgents returns the agents currently in the running state.
// The result is derived on demand, never stored.
func (r *Registry) ActiveAgents() []Agent {
	all := r.Agents()
	active := all[:0:0]
	for _, a := range all {
		if a.Status == protocol.StatusRunning {
			active = append(active, a)
		}
	}
	return active
}

// RecentUpdates returns up to n recent updates, newest first.
func (r *Registry) RecentUpdates(n int) []protocol.AgentUpdate {
	return r.ring.Recent(n)
}

// Len returns the number of known agents.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}

// LastRunDisplay formats an agent's last run time for display, or "never".
func LastRunDisplay(a Agent, now time.Time) string {
	if a.LastRun == nil {
		return "never"
	}
	d := now.Sub(*a.LastRun).Round(time.Second)
	if d < time.Minute {
		return d.String() + " ago"
	}
	return a.LastRun.Local().Format("Jan 2 15:04")
}
