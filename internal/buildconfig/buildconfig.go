package buildconfig

import "runtime/debug"

// Set with -ldflags "-X github.com/Harshitk-cp/reliefpath/internal/buildconfig.version=..."
var (
	version   = "dev"
	commit    = ""
	buildDate = ""
)

func Version() string {
	return version
}

// Commit returns the injected commit, falling back to the VCS revision the
// Go toolchain embeds in module builds.
func Commit() string {
	if commit != "" {
		return commit
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && s.Value != "" {
				return s.Value
			}
		}
	}
	return "unknown"
}

func VersionInfo() map[string]string {
	info := map[string]string{
		"service": "reliefpath",
		"version": Version(),
		"commit":  Commit(),
	}
	if buildDate != "" {
		info["build_date"] = buildDate
	}
	return info
}
