// Package cargo reads package metadata from a Cargo.toml build manifest.
package cargo
