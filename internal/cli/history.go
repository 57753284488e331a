package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"girder/internal/history"
)

var (
	historyAgent string
	historyLimit int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent task runs",
	Long:  "List recent task runs recorded by the supervisor, newest first.",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	histPath, err := cfg.HistoryPath()
	if err != nil {
		return err
	}
	store, err := history.Open(histPath)
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	defer store.Close()

	runs, err := store.Recent(cmd.Context(), historyAgent, historyLimit)
	if err != nil {
		return fmt.Errorf("query history: %w", err)
	}
	if len(runs) == 0 {
		fmt.Println("No task runs recorded.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "STARTED\tAGENT\tTASK\tSTATUS\tDURATION\tMESSAGE")
	for _, r := range runs {
		duration := "-"
		if r.FinishedAt != nil {
			duration = r.FinishedAt.Sub(r.StartedAt).Truncate(time.Millisecond).String()
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.AgentID, r.TaskType, r.Status, duration, r.Message)
	}
	return w.Flush()
}

func init() {
	historyCmd.Flags().StringVarP(&historyAgent, "agent", "a", "", "filter by agent id")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum runs to show")
	rootCmd.AddCommand(historyCmd)
}
