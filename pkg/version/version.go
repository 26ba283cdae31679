// Package version reports build metadata.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

var (
	Version   string // Set via ldflags.
	BuildDate string // Set via ldflags.

	Revision  = getRevision()
	GoVersion = runtime.Version()
	GoOS      = runtime.GOOS
	GoArch    = runtime.GOARCH
)

// GetVersion returns [Version], or the VCS revision for development builds.
func GetVersion() string {
	if Version != "" {
		return Version
	}

	return Revision
}

// String describes the build on one line, e.g.
// "v1.2.0 (a1b2c3d, 2025-01-01, go1.25.0 linux/amd64)".
func String() string {
	details := []string{}
	if Version != "" && Revision != "unknown" {
		details = append(details, Revision)
	}
	if BuildDate != "" {
		details = append(details, BuildDate)
	}

	details = append(details, fmt.Sprintf("%s %s/%s", GoVersion, GoOS, GoArch))

	return fmt.Sprintf("%s (%s)", GetVersion(), strings.Join(details, ", "))
}

func getRevision() string {
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}

	return revisionFrom(buildInfo.Settings)
}

func revisionFrom(settings []debug.BuildSetting) string {
	rev := "unknown"
	modified := false

	for _, v := range settings {
		switch v.Key {
		case "vcs.revision":
			rev = v.Value[:min(len(v.Value), 7)]

		case "vcs.modified":
			modified = v.Value == "true"
		}
	}

	if modified {
		return rev + "-dirty"
	}

	return rev
}
