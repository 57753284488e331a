package config

import (
	"errors"
	"path/filepath"
	"testing"

	"girder/internal/protocol"
)

func TestLoadAgents(t *testing.T) {
	path := writeFile(t, "agents.yaml", `
agents:
  - id: procore-sync
    name: Procore Sync
    type: procore
    config:
      project: riverside-tower
    schedule:
      interval: 30m
      task_type: sync_rfis
  - id: primavera-export
    name: Primavera Export
    type: primavera
`)

	agents, err := LoadAgents(path)
	if err != nil {
		t.Fatalf("LoadAgents() error = %v", err)
	}
	if len(agents) != 2 {
		t.Fatalf("len = %d, want 2", len(agents))
	}

	a := agents[0]
	if a.ID != "procore-sync" || a.Type != protocol.TypeProcore {
		t.Errorf("agent = %+v", a)
	}
	if a.Config["project"] != "riverside-tower" {
		t.Errorf("config = %v", a.Config)
	}
	if a.Schedule == nil || a.Schedule.Interval != "30m" {
		t.Errorf("schedule = %+v", a.Schedule)
	}
}

func TestLoadAgents_MissingFileYieldsDemoSet(t *testing.T) {
	agents, err := LoadAgents(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadAgents() error = %v", err)
	}
	if len(agents) != 3 {
		t.Fatalf("len = %d, want 3 demo agents", len(agents))
	}
	for _, a := range agents {
		if a.Type != protocol.TypeDemo {
			t.Errorf("agent %s type = %q, want demo", a.ID, a.Type)
		}
		if a.Config["step_count"] == nil {
			t.Errorf("agent %s missing simulation config", a.ID)
		}
	}
}

func TestLoadAgents_DuplicateID(t *testing.T) {
	path := writeFile(t, "agents.yaml", `
agents:
  - id: one
    name: One
    type: demo
  - id: one
    name: Also One
    type: demo
`)

	_, err := LoadAgents(path)
	if !errors.Is(err, ErrDuplicateAgentID) {
		t.Errorf("LoadAgents() error = %v, want ErrDuplicateAgentID", err)
	}
}

func TestLoadAgents_EmptyID(t *testing.T) {
	path := writeFile(t, "agents.yaml", `
agents:
  - name: Anonymous
    type: demo
`)

	_, err := LoadAgents(path)
	if !errors.Is(err, ErrEmptyAgentID) {
		t.Errorf("LoadAgents() error = %v, want ErrEmptyAgentID", err)
	}
}
