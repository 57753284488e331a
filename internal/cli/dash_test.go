package cli

import (
	"context"
	"testing"
	"time"

	"girder/internal/agent"
	"girder/internal/conn"
	"girder/internal/dispatch"
	"girder/internal/logging"
	"girder/internal/notify"
	"girder/internal/protocol"
	"girder/internal/registry"
	"girder/internal/router"
)

// progressRunner reports a mid-task progress update and then parks
// until the test releases it.
type progressRunner struct {
	block chan struct{}
}

func (r *progressRunner) Run(ctx context.Context, task agent.Task, report agent.ReportFunc) error {
	report(protocol.StatusRunning, 40, "Extracting project data", nil)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-r.block:
		return nil
	}
}

// Exercises the full dashboard pipeline against a real supervisor:
// fail-fast while disconnected, then connect, dispatch, and reconcile
// the authoritative update into the registry.
func TestDashPipeline_EndToEnd(t *testing.T) {
	runner := &progressRunner{block: make(chan struct{})}
	cfg := startTestSupervisor(t, runner)
	t.Cleanup(func() { close(runner.block) })

	log := logging.SetupTest(nil)

	reg := registry.New()
	reg.SetAgents([]protocol.Agent{
		{ID: "a1", Name: "Procore Sync", Type: protocol.TypeProcore},
	})

	notes := notify.NewCenterWithTimer(func(time.Duration, func()) func() {
		return func() {}
	})

	rtr := router.New(reg, notes, log)

	mgr := conn.New(conn.Config{URL: cfg.URL()}, log)
	mgr.OnEvent(func(e conn.Event) {
		if e.Kind == conn.EventMessage {
			rtr.Dispatch(e.Data)
		}
	})
	t.Cleanup(mgr.Disconnect)

	disp := dispatch.New(mgr, reg, notes, log)

	// Disconnected: no send, no optimistic transition, one error notice.
	if err := disp.StartAgent("a1", "", nil); err == nil {
		t.Fatal("StartAgent() while disconnected error = nil, want error")
	}
	a, ok := reg.Agent("a1")
	if !ok {
		t.Fatal("Agent(a1) not found")
	}
	if a.Status != protocol.StatusIdle || a.Source != registry.SourceLocal {
		t.Fatalf("agent after failed dispatch = %s/%s, want idle/local", a.Status, a.Source)
	}
	if notes.Len() != 1 {
		t.Fatalf("notes.Len() = %d, want 1", notes.Len())
	}

	if err := mgr.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	// Retry succeeds. The agent is running immediately, either from the
	// optimistic transition or from an already-arrived broadcast.
	if err := disp.StartAgent("a1", "", nil); err != nil {
		t.Fatalf("StartAgent() error = %v", err)
	}
	a, _ = reg.Agent("a1")
	if a.Status != protocol.StatusRunning {
		t.Fatalf("agent status after dispatch = %s, want running", a.Status)
	}

	// The authoritative progress update arrives over the wire.
	deadline := time.Now().Add(2 * time.Second)
	for {
		a, _ = reg.Agent("a1")
		if a.Source == registry.SourceAuthoritative && a.Progress == 40 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("agent = %s/%s progress %d, want authoritative progress 40",
				a.Status, a.Source, a.Progress)
		}
		time.Sleep(10 * time.Millisecond)
	}

	active := reg.ActiveAgents()
	if len(active) != 1 || active[0].ID != "a1" {
		t.Fatalf("ActiveAgents() = %v, want [a1]", active)
	}
}
