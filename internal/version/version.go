// Package version carries build identification, overridden at link time via
//
//	-ldflags "-X .../internal/version.Version=v1.2.3 ..."
package version

import "fmt"

var (
	// Version is the release version.
	Version = "dev"
	// GitSHA is the git commit SHA.
	GitSHA = "unknown"
	// BuildTime is the build timestamp.
	BuildTime = "unknown"
)

// String returns a one-line description for version output.
func String() string {
	return fmt.Sprintf("quadsim %s (commit %s, built %s)", Version, GitSHA, BuildTime)
}
