// Package version exposes build metadata for the version subcommand.
package version

import (
	"fmt"
	"runtime/debug"
)

// Overridable via -ldflags at build time; otherwise filled from the
// module's embedded VCS info.
var (
	Version    = "dev"
	CommitHash = ""
	BuildTime  = ""
)

// GetInfo returns the version string, with a short commit hash when known.
func GetInfo() string {
	if CommitHash == "" {
		if info, ok := debug.ReadBuildInfo(); ok {
			for _, setting := range info.Settings {
				switch setting.Key {
				case "vcs.revision":
					CommitHash = setting.Value
				case "vcs.time":
					BuildTime = setting.Value
				}
			}
		}
	}
	res := Version
	if CommitHash != "" {
		shortHash := CommitHash
		if len(shortHash) > 7 {
			shortHash = shortHash[:7]
		}
		res = fmt.Sprintf("%s (%s)", res, shortHash)
	}
	return res
}
