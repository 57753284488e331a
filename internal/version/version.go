// Package version provides build and version information.
package version

import "fmt"

// Build information set via ldflags.
var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// Date is the build date (set via -ldflags).
	Date = "unknown"
)

// Full returns a human-readable version string including commit and date.
func Full() string {
	return fmt.Sprintf("girder %s (commit %s, built %s)", Version, Commit, Date)
}
