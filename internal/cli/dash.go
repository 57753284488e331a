package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"girder/internal/config"
	"girder/internal/conn"
	"girder/internal/dispatch"
	"girder/internal/logging"
	"girder/internal/notify"
	"girder/internal/registry"
	"girder/internal/router"
	"girder/internal/tui"
)

var dashCmd = &cobra.Command{
	Use:   "dash",
	Short: "Launch the agent dashboard",
	Long:  "Launch the interactive terminal dashboard for monitoring and controlling agents via the supervisor.",
	Args:  cobra.NoArgs,
	RunE:  runDash,
}

func runDash(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Log to file only. The dashboard owns the terminal.
	cleanup, err := logging.Setup(cfg.Log.File, logging.ParseLevel(cfg.Log.Level))
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	defer cleanup()

	reg := registry.New()

	// Seed the agent list from the local catalog so the dashboard is
	// usable before the first update arrives.
	agentsPath, err := cfg.AgentsPath()
	if err != nil {
		return err
	}
	agents, err := config.LoadAgents(agentsPath)
	if err != nil {
		return fmt.Errorf("load agents: %w", err)
	}
	reg.SetAgents(agents)

	notes := notify.NewCenter()

	rtr := router.New(reg, notes, slog.Default())
	rtr.OnConnectionEstablished(func(clientID string) {
		notes.Successf("Connected", "Supervisor assigned client "+clientID)
	})
	rtr.OnPong(func(string) {
		notes.Successf("Pong", "Supervisor is responsive")
	})

	mgr := conn.New(conn.Config{
		URL:                  cfg.URL(),
		MaxReconnectAttempts: cfg.Reconnect.MaxAttempts,
		BaseDelay:            cfg.Reconnect.BaseDelay(),
		MaxDelay:             cfg.Reconnect.MaxDelay(),
	}, slog.Default())

	disp := dispatch.New(mgr, reg, notes, slog.Default())

	go func() {
		defer logging.LogPanic("dash.connect", nil)
		if err := mgr.Connect(context.Background()); err != nil {
			slog.Warn("initial connect failed", "error", err)
		}
	}()

	return tui.Run(tui.Deps{
		Conn:     mgr,
		Registry: reg,
		Dispatch: disp,
		Notify:   notes,
		Router:   rtr,
	})
}

func init() {
	rootCmd.AddCommand(dashCmd)
}
