package version

import "fmt"

// Stamped at link time; the defaults mark a local development build.
var (
	Version   = "0.1.0-dev"
	Commit    = "none"
	BuildTime = "unknown"
)

// Short is the bare version, as attached to publish logs.
func Short() string {
	return Version
}

// Full names the binary together with its version, commit and build time.
func Full() string {
	return fmt.Sprintf("release-publisher %s (commit %s, built %s)", Version, Commit, BuildTime)
}
