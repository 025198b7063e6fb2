package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	// Version is the semantic version of the build. It can be overridden via ldflags.
	Version = "0.1.0"
	// Commit is the short git SHA embedded at build time (or "none").
	Commit = "none"
	// BuildTime is the UTC build timestamp embedded at build time.
	BuildTime = "unknown"
)

// shortCommitLength is the number of SHA characters shown for VCS builds.
const shortCommitLength = 7

// Short returns only the semantic version string.
func Short() string {
	return Version
}

// Full returns a human-readable version string with commit, build time and Go version.
func Full() string {
	commit, buildTime := Commit, BuildTime

	// Plain `go build` leaves the ldflags defaults; fall back to the VCS stamp.
	if info, ok := debug.ReadBuildInfo(); ok {
		commit, buildTime = fromBuildSettings(info.Settings, commit, buildTime)
	}

	return fmt.Sprintf("motion-stream %s, commit: %s, built at: %s, %s", Version, commit, buildTime, runtime.Version())
}

// fromBuildSettings fills unset commit and build time values from the VCS build settings.
func fromBuildSettings(settings []debug.BuildSetting, commit, buildTime string) (string, string) {
	for _, setting := range settings {
		switch setting.Key {
		case "vcs.revision":
			if commit == "none" && setting.Value != "" {
				commit = setting.Value[:min(len(setting.Value), shortCommitLength)]
			}
		case "vcs.time":
			if buildTime == "unknown" && setting.Value != "" {
				buildTime = setting.Value
			}
		}
	}

	return commit, buildTime
}
