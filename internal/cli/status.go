package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"girder/internal/config"
	"girder/internal/protocol"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show supervisor status",
	Long:  "Check whether the supervisor is reachable and list the configured agents.",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	client, err := dialSupervisor(cfg)
	if err != nil {
		color.Red("✗ supervisor unreachable at %s", cfg.URL())
		fmt.Println("  Start it with: girder serve")
		return nil
	}
	defer client.close()

	start := time.Now()
	if err := client.send(protocol.NewPing(start)); err != nil {
		return err
	}
	if _, err := client.waitFor(protocol.MsgPong); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	rtt := time.Since(start).Truncate(time.Millisecond)

	color.Green("● supervisor running at %s (ping %s)", cfg.URL(), rtt)
	fmt.Println()

	agentsPath, err := cfg.AgentsPath()
	if err != nil {
		return err
	}
	agents, err := config.LoadAgents(agentsPath)
	if err != nil {
		return fmt.Errorf("load agents: %w", err)
	}
	if len(agents) == 0 {
		fmt.Println("No agents configured.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tTYPE\tSCHEDULE")
	for _, a := range agents {
		schedule := "-"
		if a.Schedule != nil && a.Schedule.Interval != "" {
			schedule = a.Schedule.Interval
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", a.ID, a.Name, a.Type, schedule)
	}
	return w.Flush()
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
