// Package version exposes build metadata injected via ldflags.
package version

import "fmt"

var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// String returns the full version line printed by --version.
func String() string {
	return fmt.Sprintf("viafoto %s (commit %s, built %s)", Version, GitCommit, BuildDate)
}
