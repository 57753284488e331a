// Package cli implements the girder command-line interface.
package cli

import (
	"github.com/spf13/cobra"

	"girder/internal/config"
)

// configPath is the global --config flag value.
var configPath string

var rootCmd = &cobra.Command{
	Use:   "girder",
	Short: "Construction automation agent supervisor",
	Long:  "girder supervises browser-automation agents for construction platforms and provides a real-time dashboard for monitoring and control.",
}

// loadConfig loads the configuration honoring the --config flag.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromPath(configPath)
	}
	return config.Load()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default ~/.girder/config.toml)")
}

func Execute() error {
	return rootCmd.Execute()
}
