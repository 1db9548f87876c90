// Package version reports the version of pxjit linked into the running binary.
package version

import (
	"runtime/debug"
)

// Default is the version reported when none was found.
const Default = "dev"

const modulePath = "github.com/swrast/pxjit"

// version is set with -ldflags "-X github.com/swrast/pxjit/internal/version.version=..."
// when building the pxjit command.
var version string

// GetPxjitVersion returns the version of pxjit: the ldflag value, or the one
// recorded in the build info of the main module or of its dependencies.
func GetPxjitVersion() string {
	if version != "" {
		return version
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return Default
	}
	return fromBuildInfo(info)
}

func fromBuildInfo(info *debug.BuildInfo) (ret string) {
	for _, dep := range info.Deps {
		if dep.Path == modulePath {
			ret = dep.Version
		}
	}
	// In the pxjit command, pxjit is the main module.
	if versionMissing(ret) && info.Main.Path == modulePath {
		ret = info.Main.Version
	}
	if versionMissing(ret) {
		return Default
	}
	return ret
}

func versionMissing(ret string) bool {
	return ret == "" || ret == "(devel)"
}
