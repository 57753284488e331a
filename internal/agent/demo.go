package agent

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"girder/internal/protocol"
)

// Demo task types.
const (
	TaskDataExtraction      = "simulate_data_extraction"
	TaskPlatformIntegration = "simulate_platform_integration"
	TaskErrorHandling       = "test_error_handling"
)

// Demo configuration defaults.
const (
	DefaultSimulationDuration = 10 * time.Second
	DefaultStepCount          = 5
)

// DemoRunner simulates construction-platform work: staged progress,
// fabricated extraction results, and scripted failure scenarios. It
// exists so the full status pipeline can be exercised without live
// platform credentials.
type DemoRunner struct {
	duration   time.Duration
	stepCount  int
	shouldFail bool

	// sleep is replaced in tests to avoid real waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewDemoRunner builds a runner from an agent config map. Recognized
// keys: simulation_duration (seconds), step_count, should_fail.
func NewDemoRunner(config map[string]any) *DemoRunner {
	duration := time.Duration(ConfigInt(config, "simulation_duration", 0)) * time.Second
	if duration <= 0 {
		duration = DefaultSimulationDuration
	}
	steps := ConfigInt(config, "step_count", DefaultStepCount)
	if steps <= 0 {
		steps = DefaultStepCount
	}
	return &DemoRunner{
		duration:   duration,
		stepCount:  steps,
		shouldFail: ConfigBool(config, "should_fail", false),
		sleep:      ctxSleep,
	}
}

// Run executes one demo task. An empty task type runs the data
// extraction simulation.
func (r *DemoRunner) Run(ctx context.Context, task Task, report ReportFunc) error {
	taskType := task.Type
	if taskType == "" {
		taskType = TaskDataExtraction
	}

	switch taskType {
	case TaskDataExtraction:
		return r.runDataExtraction(ctx, task, report)
	case TaskPlatformIntegration:
		return r.runPlatformIntegration(ctx, task, report)
	case TaskErrorHandling:
		return r.runErrorHandling(ctx, task, report)
	default:
		return fmt.Errorf("task type %q not supported by demo agent", taskType)
	}
}

func (r *DemoRunner) runDataExtraction(ctx context.Context, task Task, report ReportFunc) error {
	report(protocol.StatusRunning, 0, "Connecting to demo platform", nil)
	if err := r.sleep(ctx, r.stepDelay()); err != nil {
		return err
	}

	report(protocol.StatusRunning, 10, "Authenticating with demo platform", nil)
	if err := r.sleep(ctx, r.stepDelay()); err != nil {
		return err
	}
	if r.shouldFail {
		return fmt.Errorf("demo authentication failed")
	}

	steps := []struct {
		progress int
		message  string
	}{
		{20, "Extracting project list"},
		{40, "Processing project data"},
		{60, "Extracting RFIs"},
		{80, "Processing budget information"},
		{100, "Data extraction completed"},
	}

	projects := 3 + rand.Intn(5)
	rfis := 5 + rand.Intn(20)
	budgetItems := 10 + rand.Intn(30)

	for _, step := range steps {
		var data map[string]any
		if step.progress == 100 {
			data = map[string]any{
				"task_completed":     true,
				"total_projects":     projects,
				"total_rfis":         rfis,
				"total_budget_items": budgetItems,
			}
		}
		report(protocol.StatusRunning, step.progress, step.message, data)
		if err := r.sleep(ctx, r.stepDelay()); err != nil {
			return err
		}
	}
	return nil
}

func (r *DemoRunner) runPlatformIntegration(ctx context.Context, task Task, report ReportFunc) error {
	platforms := ConfigStrings(task.Params, "platforms", []string{"procore", "autodesk", "primavera"})

	report(protocol.StatusRunning, 0, "Starting multi-platform integration", nil)

	results := make(map[string]any, len(platforms))
	stepSize := 100 / len(platforms)

	for i, platform := range platforms {
		progress := i * stepSize

		report(protocol.StatusRunning, progress, fmt.Sprintf("Connecting to %s", platform), nil)
		if err := r.sleep(ctx, r.stepDelay()); err != nil {
			return err
		}

		report(protocol.StatusRunning, progress+stepSize/2, fmt.Sprintf("Extracting data from %s", platform), nil)
		if err := r.sleep(ctx, r.stepDelay()); err != nil {
			return err
		}

		results[platform] = map[string]any{
			"status":         "connected",
			"projects_found": 1 + rand.Intn(10),
		}
	}

	report(protocol.StatusRunning, 100, "Integration completed successfully", map[string]any{
		"task_completed":       true,
		"platforms_integrated": len(platforms),
		"platform_results":     results,
	})
	return nil
}

func (r *DemoRunner) runErrorHandling(ctx context.Context, task Task, report ReportFunc) error {
	errorType := ConfigString(task.Params, "error_type", "network_timeout")

	report(protocol.StatusRunning, 0, "Starting error handling test", nil)
	if err := r.sleep(ctx, r.stepDelay()); err != nil {
		return err
	}

	report(protocol.StatusRunning, 30, "Simulating normal operation", nil)
	if err := r.sleep(ctx, r.stepDelay()); err != nil {
		return err
	}

	switch errorType {
	case "network_timeout":
		report(protocol.StatusRunning, 50, "Network timeout occurred, retrying", nil)
		if err := r.sleep(ctx, r.stepDelay()); err != nil {
			return err
		}
		report(protocol.StatusRunning, 75, "Retry successful, continuing", nil)
	case "authentication_failure":
		report(protocol.StatusRunning, 50, "Authentication failed, refreshing credentials", nil)
		if err := r.sleep(ctx, r.stepDelay()); err != nil {
			return err
		}
		report(protocol.StatusRunning, 75, "Credentials refreshed, continuing", nil)
	case "critical_failure":
		report(protocol.StatusRunning, 50, "Critical error encountered", nil)
		if err := r.sleep(ctx, r.stepDelay()); err != nil {
			return err
		}
		return fmt.Errorf("simulated critical failure: %s", errorType)
	}

	report(protocol.StatusRunning, 100, "Error handling test completed", map[string]any{
		"task_completed":      true,
		"error_type_tested":   errorType,
		"recovery_successful": true,
	})
	return nil
}

// stepDelay spreads the configured duration over the step count.
func (r *DemoRunner) stepDelay() time.Duration {
	return r.duration / time.Duration(r.stepCount)
}

// ctxSleep sleeps for d or until ctx is cancelled.
func ctxSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
