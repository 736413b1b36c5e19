// Package version reports the build version of the echo server.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"time"
)

// Set at build time:
//
//	go build -ldflags="-X github.com/muurk/echoserver/internal/version.Version=v1.2.3 \
//	                   -X github.com/muurk/echoserver/internal/version.Commit=abc123"
//
// Unset values are filled from the module's VCS stamp, then from a dev
// fallback.
var (
	Version = ""
	Commit  = ""
)

func init() {
	if Version == "" || Commit == "" {
		info, ok := debug.ReadBuildInfo()
		if ok {
			Version, Commit = fromBuildInfo(info, Version, Commit)
		}
	}

	if Version == "" {
		Version = fmt.Sprintf("dev-%s", time.Now().Format("20060102-150405"))
	}
	if Commit == "" {
		Commit = "unknown"
	}
}

// fromBuildInfo fills whichever of version and commit is empty from the
// vcs.* build settings.
func fromBuildInfo(info *debug.BuildInfo, version, commit string) (string, string) {
	settings := make(map[string]string, len(info.Settings))
	for _, s := range info.Settings {
		settings[s.Key] = s.Value
	}

	if commit == "" {
		if rev := settings["vcs.revision"]; rev != "" {
			commit = rev
			if len(commit) > 7 {
				commit = commit[:7]
			}
			if settings["vcs.modified"] == "true" {
				commit += "-dirty"
			}
		}
	}

	if version == "" {
		// A tagged module build carries its version; local builds report (devel)
		if v := info.Main.Version; v != "" && v != "(devel)" {
			version = v
		} else if t, err := time.Parse(time.RFC3339, settings["vcs.time"]); err == nil {
			version = fmt.Sprintf("dev-%s", t.Format("20060102"))
		}
	}

	return version, commit
}

// Get returns the version string advertised to clients.
func Get() string {
	return Version
}

// Full returns the version with commit and toolchain, for the version command.
func Full() string {
	return fmt.Sprintf("%s (commit: %s, %s %s/%s)", Version, Commit, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
