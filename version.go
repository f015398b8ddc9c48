package orchestrator

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Version is overridden at release build time via -ldflags; the default
// below only shows up in `go run`/`go install @latest` builds.
var Version = "0.1.0-dev"

// Info is the version/build report the orchestrator CLI's version command
// prints.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// GetVersion reports the module version, preferring the VCS commit
// recorded in the binary's build info over the compiled-in default.
func GetVersion() Info {
	info := Info{
		Version:   Version,
		GitCommit: "unknown",
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		if bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			info.Version = bi.Main.Version
		}
		for _, setting := range bi.Settings {
			if setting.Key == "vcs.revision" {
				info.GitCommit = setting.Value
			}
		}
	}
	return info
}

// String returns a formatted version string.
func (i Info) String() string {
	return fmt.Sprintf("orchestrator %s (commit %s, %s %s)",
		i.Version, i.GitCommit, i.GoVersion, i.Platform)
}
