// Command girder supervises construction automation agents and provides
// a real-time dashboard for monitoring and control.
package main

import (
	"fmt"
	"os"

	"girder/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
