// Package agent provides task runners for automation agents.
//
// A runner executes one task at a time and streams progress through a
// report callback; the supervisor owns scheduling, state projection and
// broadcasting. Runners never touch the wire protocol directly.
package agent

import (
	"context"

	"girder/internal/protocol"
)

// Task describes one unit of work handed to a runner.
type Task struct {
	ID     string
	Type   string
	Params map[string]any
}

// ReportFunc delivers a progress update. Implementations must be safe
// to call from the runner's goroutine.
type ReportFunc func(status protocol.AgentStatus, progress int, message string, data map[string]any)

// Runner executes tasks for a single agent. Run blocks until the task
// finishes, fails, or ctx is cancelled.
type Runner interface {
	Run(ctx context.Context, task Task, report ReportFunc) error
}

// NewRunner returns the runner for an agent type. Platform runners
// drive external browser sessions and live out of process; every
// in-process type is served by the demo simulation.
func NewRunner(agentType protocol.AgentType, config map[string]any) Runner {
	return NewDemoRunner(config)
}

// ConfigInt reads an integer from a loosely-typed agent config map.
// JSON and YAML decoding produce different numeric types, so both are
// accepted.
func ConfigInt(config map[string]any, key string, fallback int) int {
	if config == nil {
		return fallback
	}
	switch v := config[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return fallback
}

// ConfigBool reads a boolean from an agent config map.
func ConfigBool(config map[string]any, key string, fallback bool) bool {
	if config == nil {
		return fallback
	}
	if v, ok := config[key].(bool); ok {
		return v
	}
	return fallback
}

// ConfigString reads a string from an agent config map.
func ConfigString(config map[string]any, key, fallback string) string {
	if config == nil {
		return fallback
	}
	if v, ok := config[key].(string); ok {
		return v
	}
	return fallback
}

// ConfigStrings reads a string list from an agent config map. JSON
// decoding delivers lists as []any, so both forms are accepted;
// non-string elements are skipped.
func ConfigStrings(config map[string]any, key string, fallback []string) []string {
	if config == nil {
		return fallback
	}
	switch v := config[key].(type) {
	case []string:
		if len(v) > 0 {
			return v
		}
	case []any:
		var out []string
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return fallback
}
