package version

import "fmt"

// Service is the name reported by the health endpoint.
const Service = "kubernetes-actions"

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func String() string {
	return fmt.Sprintf("%s %s (commit: %s, built: %s)", Service, Version, Commit, BuildTime)
}
