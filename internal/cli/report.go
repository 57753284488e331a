package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"girder/internal/config"
	"girder/internal/history"
	"girder/internal/registry"
	"girder/internal/report"
)

var (
	reportOut   string
	reportLimit int
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate an activity report",
	Long:  "Generate a report of configured agents and recent task runs. Markdown goes to stdout; use --html to write an HTML file instead.",
	Args:  cobra.NoArgs,
	RunE:  runReport,
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	agentsPath, err := cfg.AgentsPath()
	if err != nil {
		return err
	}
	agents, err := config.LoadAgents(agentsPath)
	if err != nil {
		return fmt.Errorf("load agents: %w", err)
	}
	reg := registry.New()
	reg.SetAgents(agents)

	histPath, err := cfg.HistoryPath()
	if err != nil {
		return err
	}
	store, err := history.Open(histPath)
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	defer store.Close()

	runs, err := store.Recent(cmd.Context(), "", reportLimit)
	if err != nil {
		return fmt.Errorf("query history: %w", err)
	}

	r := report.Report{
		GeneratedAt: time.Now(),
		Agents:      reg.Agents(),
		Runs:        runs,
	}

	if reportOut != "" {
		if err := report.WriteHTML(reportOut, r); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		fmt.Printf("report written to %s\n", reportOut)
		return nil
	}

	_, err = os.Stdout.Write(report.Markdown(r))
	return err
}

func init() {
	reportCmd.Flags().StringVarP(&reportOut, "html", "o", "", "write an HTML report to this path")
	reportCmd.Flags().IntVarP(&reportLimit, "limit", "n", 50, "maximum runs to include")
	rootCmd.AddCommand(reportCmd)
}
