// Package version carries build metadata injected with -ldflags, e.g.
//
//	go build -ldflags "-X github.com/Lab-CORO/VR-Robotic-Manipulation/internal/version.Version=v0.3.0"
package version

import "fmt"

var (
	Version   = "dev"
	GitSHA    = "unknown"
	BuildTime = "unknown"
)

// String renders the build metadata on one line.
func String() string {
	return fmt.Sprintf("cloudbridge %s (%s, built %s)", Version, GitSHA, BuildTime)
}
