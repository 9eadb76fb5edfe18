package version

import (
	"runtime/debug"
)

// Version information for spinach
var (
	// Version is the current semantic version
	Version = "0.3.0"

	// BuildDate is set during build time (use -ldflags)
	BuildDate = "development"

	// GitCommit is set during build time (use -ldflags)
	GitCommit = "unknown"
)

// Info returns version information as a string
func Info() string {
	return Version
}

// FullInfo returns detailed version information. A binary built from a VCS
// checkout without ldflags reports the embedded revision.
func FullInfo() string {
	commit := GitCommit
	if commit == "unknown" {
		commit = vcsRevision()
	}
	return "spinach " + Version + " (commit: " + commit + ", built: " + BuildDate + ")"
}

func vcsRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && len(s.Value) >= 7 {
			return s.Value[:7]
		}
	}
	return "unknown"
}
