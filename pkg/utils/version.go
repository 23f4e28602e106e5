// Package utils holds small helpers shared by frames packages.
package utils

import "runtime/debug"

// Set with -ldflags "-X github.com/papercomputeco/frames/pkg/utils.Version=..."
var (
	Version   = "dev"
	Sha       = "HEAD"
	Buildtime = "dev"
)

// ResolvedVersion is Version, or the module version recorded by
// `go install` when the binary was built without ldflags.
func ResolvedVersion() string {
	if Version != "dev" {
		return Version
	}
	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		return bi.Main.Version
	}
	return Version
}
