// Package version holds build metadata, set with -ldflags "-X" at release time.
package version

import "fmt"

var (
	Version   = "dev"
	GitSHA    = "unknown"
	BuildTime = "unknown"
)

// String formats the metadata for the -version flag.
func String() string {
	return fmt.Sprintf("parking %s (git %s, built %s)", Version, GitSHA, BuildTime)
}
