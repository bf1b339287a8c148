// Package version carries build information.
package version

import "fmt"

// Version, GitCommit, and BuildDate are set at build time via ldflags:
//
//	go build -ldflags "-X github.com/newtron-network/saimeta/pkg/version.Version=v0.3.0 \
//	  -X github.com/newtron-network/saimeta/pkg/version.GitCommit=abc1234 \
//	  -X github.com/newtron-network/saimeta/pkg/version.BuildDate=2026-01-01T00:00:00Z"
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// String returns the version line printed by a tool.
func String(tool string) string {
	if Version == "dev" {
		return tool + " dev build"
	}
	return fmt.Sprintf("%s %s (%s) built %s", tool, Version, GitCommit, BuildDate)
}
