package version

import "runtime"

// Populated at build time via -ldflags, see Makefile
var (
	Version   = "dev"
	GitCommit = ""
	BuildDate = ""
	GoVersion = runtime.Version()
	OsArch    = runtime.GOOS + " / " + runtime.GOARCH
)
