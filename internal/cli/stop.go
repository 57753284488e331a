package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"girder/internal/protocol"
)

var stopCmd = &cobra.Command{
	Use:   "stop <agent-id>",
	Short: "Stop a running agent task",
	Long:  "Send a stop command for the given agent to the supervisor.",
	Args:  cobra.ExactArgs(1),
	RunE:  runStop,
}

func runStop(cmd *cobra.Command, args []string) error {
	agentID := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	client, err := dialSupervisor(cfg)
	if err != nil {
		return err
	}
	defer client.close()

	if err := client.send(protocol.NewStopAgent(agentID)); err != nil {
		return err
	}
	ack, err := client.waitFor(protocol.MsgCommandReceived)
	if err != nil {
		return fmt.Errorf("stop %s: %w", agentID, err)
	}

	fmt.Printf("%s: %s\n", agentID, ack.Message)
	return nil
}

func init() {
	rootCmd.AddCommand(stopCmd)
}
