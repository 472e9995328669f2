package version

import "runtime/debug"

// Version is stamped at build time via -ldflags. It falls back to module
// build info for go-installed binaries.
var Version = "dev"

// Get returns the best available version string.
func Get() string {
	if Version != "dev" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return Version
}
