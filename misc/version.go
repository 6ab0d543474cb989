// Package misc keeps build time information about the program.
package misc

import (
	"runtime/debug"
)

const appName = "hsplit"

// set by the linker: -X hsplit/misc.version=... -X hsplit/misc.githash=...
var (
	version = "dev"
	githash = ""
)

func GetAppName() string {
	return appName
}

func GetVersion() string {
	return version
}

// GetGitHash returns commit hash either set at link time or recorded by go
// build in module information.
func GetGitHash() string {
	if githash != "" {
		return githash
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" {
				return s.Value
			}
		}
	}
	return "unknown"
}
