package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"girder/internal/protocol"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Ping the supervisor",
	Long:  "Measure the round-trip time to the supervisor.",
	Args:  cobra.NoArgs,
	RunE:  runPing,
}

func runPing(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	client, err := dialSupervisor(cfg)
	if err != nil {
		return err
	}
	defer client.close()

	start := time.Now()
	if err := client.send(protocol.NewPing(start)); err != nil {
		return err
	}
	if _, err := client.waitFor(protocol.MsgPong); err != nil {
		return fmt.Errorf("ping: %w", err)
	}

	fmt.Printf("pong from %s in %s\n", cfg.URL(), time.Since(start).Truncate(time.Millisecond))
	return nil
}

func init() {
	rootCmd.AddCommand(pingCmd)
}
