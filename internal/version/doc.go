// Package version holds the release-publisher build stamp. Release builds set
// it with, for example:
//
//	go build -ldflags "-X github.com/su6nl/release-publisher/internal/version.Version=1.4.0 \
//	  -X github.com/su6nl/release-publisher/internal/version.Commit=$(git rev-parse --short HEAD)"
//
// The stamp is printed by the version subcommand and logged with every run,
// so a download index change can be traced to the publisher that wrote it.
package version
