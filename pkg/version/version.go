// Package version holds build information injected with -ldflags, e.g.
//
//	go build -ldflags "-X github.com/coral-mesh/dwarfsql/pkg/version.Version=v0.3.0"
package version

import (
	"fmt"
	"runtime"
)

var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"

	// GoVersion is the Go version used to build.
	GoVersion = runtime.Version()
)

// String returns a one-line summary such as "v0.3.0 (abc1234, go1.25.0)".
func String() string {
	commit := GitCommit
	if len(commit) > 7 {
		commit = commit[:7]
	}
	return fmt.Sprintf("%s (%s, %s)", Version, commit, GoVersion)
}
