package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"girder/internal/history"
	"girder/internal/protocol"
	"girder/internal/registry"
)

func sampleReport() Report {
	started := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	finished := started.Add(8 * time.Second)
	return Report{
		GeneratedAt: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
		Agents: []registry.Agent{
			{Agent: protocol.Agent{ID: "procore-sync", Name: "Procore Sync", Type: protocol.TypeProcore, Status: protocol.StatusIdle}},
		},
		Runs: []history.Run{
			{
				ID: "run-1", AgentID: "procore-sync", TaskType: "simulate_data_extraction",
				Status: protocol.StatusCompleted, Message: "Task completed successfully",
				StartedAt: started, FinishedAt: &finished,
			},
			{
				ID: "run-2", AgentID: "procore-sync", TaskType: "simulate_data_extraction",
				Status: protocol.StatusRunning, StartedAt: started.Add(time.Hour),
			},
		},
	}
}

func TestMarkdown(t *testing.T) {
	md := string(Markdown(sampleReport()))

	for _, want := range []string{
		"# Agent Activity Report",
		"| Procore Sync | procore | idle |",
		"| procore-sync | simulate_data_extraction | completed |",
		"Task completed successfully",
		"8s",
		"in progress",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("Markdown() missing %q\n%s", want, md)
		}
	}
}

func TestMarkdown_Empty(t *testing.T) {
	md := string(Markdown(Report{GeneratedAt: time.Now()}))

	if !strings.Contains(md, "No agents configured.") || !strings.Contains(md, "No runs recorded.") {
		t.Errorf("empty report markdown:\n%s", md)
	}
}

func TestMarkdown_EscapesPipes(t *testing.T) {
	r := sampleReport()
	r.Runs[0].Message = "a | b"

	if !strings.Contains(string(Markdown(r)), `a \| b`) {
		t.Error("pipe in message not escaped")
	}
}

func TestHTML(t *testing.T) {
	out, err := HTML(sampleReport())
	if err != nil {
		t.Fatalf("HTML() error = %v", err)
	}

	page := string(out)
	for _, want := range []string{
		"<!DOCTYPE html>",
		"<table>",
		"Procore Sync",
		"Agent Activity Report",
	} {
		if !strings.Contains(page, want) {
			t.Errorf("HTML() missing %q", want)
		}
	}
}

func TestWriteHTML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.html")

	if err := WriteHTML(path, sampleReport()); err != nil {
		t.Fatalf("WriteHTML() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), "<table>") {
		t.Error("written report missing table markup")
	}
}
