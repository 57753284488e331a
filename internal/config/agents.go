package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"girder/internal/protocol"
)

// Agent catalog errors.
var (
	ErrEmptyAgentID     = errors.New("agent id cannot be empty")
	ErrDuplicateAgentID = errors.New("duplicate agent id")
)

// agentCatalog is the on-disk shape of the agents file.
type agentCatalog struct {
	Agents []protocol.Agent `yaml:"agents"`
}

// LoadAgents reads the YAML agent catalog at path. A missing file
// yields the built-in demo set so a fresh install has something to
// show.
func LoadAgents(path string) ([]protocol.Agent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultAgents(), nil
		}
		return nil, fmt.Errorf("load agents %s: %w", path, err)
	}

	var catalog agentCatalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("load agents %s: %w", path, err)
	}
	if err := validateAgents(catalog.Agents); err != nil {
		return nil, fmt.Errorf("agents %s: %w", path, err)
	}
	return catalog.Agents, nil
}

func validateAgents(agents []protocol.Agent) error {
	seen := make(map[string]bool, len(agents))
	for i, a := range agents {
		if a.ID == "" {
			return fmt.Errorf("agent %d: %w", i, ErrEmptyAgentID)
		}
		if seen[a.ID] {
			return fmt.Errorf("agent %q: %w", a.ID, ErrDuplicateAgentID)
		}
		seen[a.ID] = true
	}
	return nil
}

// DefaultAgents returns the built-in demo agent set.
func DefaultAgents() []protocol.Agent {
	return []protocol.Agent{
		{
			ID:   "demo-agent-1",
			Name: "Demo Data Extraction Agent",
			Type: protocol.TypeDemo,
			Config: map[string]any{
				"simulation_duration": 8,
				"step_count":          5,
				"should_fail":         false,
			},
		},
		{
			ID:   "demo-agent-2",
			Name: "Demo Multi-Platform Agent",
			Type: protocol.TypeDemo,
			Config: map[string]any{
				"simulation_duration": 12,
				"step_count":          8,
				"should_fail":         false,
			},
		},
		{
			ID:   "demo-agent-3",
			Name: "Demo Error Handling Agent",
			Type: protocol.TypeDemo,
			Config: map[string]any{
				"simulation_duration": 6,
				"step_count":          4,
				"should_fail":         false,
			},
		},
	}
}
