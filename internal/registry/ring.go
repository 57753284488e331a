package registry

import (
	"sync"

	"girder/internal/protocol"
)

// DefaultRingSize is the default number of recent updates to retain.
const DefaultRingSize = 100

// UpdateRing is a thread-safe circular buffer of agent status updates.
// It stores a fixed number of updates and overwrites the oldest when full.
type UpdateRing struct {
	// +checklocks:mu
	updates []protocol.AgentUpdate
	size    int // Immutable after creation
	// +checklocks:mu
	head int // Next write position
	// +checklocks:mu
	count int
	mu    sync.RWMutex
}

// NewUpdateRing creates a ring with the specified capacity.
// If size <= 0, DefaultRingSize is used.
func NewUpdateRing(size int) *UpdateRing {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &UpdateRing{
		updates: make([]protocol.AgentUpdate, size),
		size:    size,
	}
}

// Push appends an update, evicting the oldest when the ring is full.
func (r *UpdateRing) Push(u protocol.AgentUpdate) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.updates[r.head] = u
	r.head = (r.head + 1) % r.size
	if r.count < r.size {
		r.count++
	}
}

// Recent returns the last n updates, newest first. If n <= 0 or
// n > count, all stored updates are returned.
func (r *UpdateRing) Recent(n int) []protocol.AgentUpdate {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if n <= 0 || n > r.count {
		n = r.count
	}
	if n == 0 {
		return nil
	}

	result := make([]protocol.AgentUpdate, n)
	for i := 0; i < n; i++ {
		// Newest first: walk backwards from the last write.
		idx := (r.head - 1 - i + r.size) % r.size
		result[i] = r.updates[idx]
	}
	return result
}

// Len returns the number of updates currently stored.
func (r *UpdateRing) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.count
}

// Cap returns the maximum number of updates the ring can hold.
func (r *UpdateRing) Cap() int {
	return r.size
}

// Clear removes all stored updates.
func (r *UpdateRing) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.updates {
		r.updates[i] = protocol.AgentUpdate{}
	}
	r.head = 0
	r.count = 0
}
