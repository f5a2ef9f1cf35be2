// Package publisher releases one compiled binary.
//
// A run reads the [package] table of the build manifest, builds every target
// triple with cargo, uploads each binary to {bucket}/{arch}/ with rclone, and
// merges the package metadata and download URLs into the JSON download index
// kept in the same bucket. Every stage must succeed before the next starts.
package publisher
