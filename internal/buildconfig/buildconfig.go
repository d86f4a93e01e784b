package buildconfig

import (
	"runtime/debug"
	"sync"
)

// Set with -ldflags "-X github.com/Harshitk-cp/clawguild/internal/buildconfig.version=...".
var (
	version   = "dev"
	commit    = ""
	buildTime = ""
)

var readVCS = sync.OnceValues(func() (string, string) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "", ""
	}
	var rev, at string
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.time":
			at = s.Value
		}
	}
	return rev, at
})

func Version() string {
	return version
}

// Commit falls back to the revision stamped by the go tool, then "unknown".
func Commit() string {
	if commit != "" {
		return commit
	}
	if rev, _ := readVCS(); rev != "" {
		return rev
	}
	return "unknown"
}

func BuildTime() string {
	if buildTime != "" {
		return buildTime
	}
	_, at := readVCS()
	return at
}

// VersionInfo is reported by /health and the startup log.
func VersionInfo() map[string]string {
	info := map[string]string{
		"service": "clawguild",
		"version": Version(),
		"commit":  Commit(),
	}
	if at := BuildTime(); at != "" {
		info["built_at"] = at
	}
	return info
}
