package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"girder/internal/config"
	"girder/internal/history"
	"girder/internal/logging"
	"girder/internal/supervisor"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the agent supervisor",
	Long:  "Run the girder supervisor: hosts the agents, executes their tasks and serves the WebSocket endpoint the dashboard connects to.",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	cleanup, err := logging.SetupConsole(cfg.Log.File, logging.ParseLevel(cfg.Log.Level))
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	defer cleanup()

	histPath, err := cfg.HistoryPath()
	if err != nil {
		return err
	}
	hist, err := history.Open(histPath)
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	defer hist.Close()

	agentsPath, err := cfg.AgentsPath()
	if err != nil {
		return err
	}
	agents, err := config.LoadAgents(agentsPath)
	if err != nil {
		return fmt.Errorf("load agents: %w", err)
	}

	sup := supervisor.New(agents, hist, slog.Default())

	stopWatch, err := sup.WatchAgents(agentsPath, slog.Default())
	if err != nil {
		slog.Warn("agent file watching disabled", "error", err)
	} else {
		defer stopWatch()
	}

	srv := supervisor.NewServer(sup, cfg.Server.Path, slog.Default())
	if err := srv.Start(cfg.ListenAddr()); err != nil {
		return fmt.Errorf("start server: %w", err)
	}

	fmt.Printf("girder supervisor listening on %s (%d agents)\n", srv.URL(), len(agents))
	slog.Info("supervisor started", "url", srv.URL(), "agents", len(agents))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
