// Package release models what gets published: target triples, the
// architectures derived from them, package metadata read from the build
// manifest, and the JSON download index stored next to the binaries.
package release
