package autowire

import "github.com/itsneelabh/autowire/core"

// Version information for the autowire framework
var (
	// Version is the current framework version
	Version = core.Version

	// BuildDate is set during build time
	BuildDate = "development"

	// GitCommit is set during build time
	GitCommit = "unknown"
)
