package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"girder/internal/protocol"
)

var (
	startTaskType string
	startParams   []string
)

var startCmd = &cobra.Command{
	Use:   "start <agent-id>",
	Short: "Start an agent task",
	Long:  "Send a start command for the given agent to the supervisor.",
	Args:  cobra.ExactArgs(1),
	RunE:  runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	agentID := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	config := make(map[string]any, len(startParams))
	for _, p := range startParams {
		k, v, ok := strings.Cut(p, "=")
		if !ok {
			return fmt.Errorf("invalid --param %q, want key=value", p)
		}
		config[k] = v
	}

	client, err := dialSupervisor(cfg)
	if err != nil {
		return err
	}
	defer client.close()

	if err := client.send(protocol.NewStartAgent(agentID, "", startTaskType, config)); err != nil {
		return err
	}
	ack, err := client.waitFor(protocol.MsgCommandReceived)
	if err != nil {
		return fmt.Errorf("start %s: %w", agentID, err)
	}

	fmt.Printf("%s: %s\n", agentID, ack.Message)
	return nil
}

func init() {
	startCmd.Flags().StringVarP(&startTaskType, "task", "t", "", "task type to run (defaults to the agent's configured task)")
	startCmd.Flags().StringArrayVarP(&startParams, "param", "p", nil, "task config override, key=value (repeatable)")
	rootCmd.AddCommand(startCmd)
}
