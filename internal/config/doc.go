// Package config defines the publisher settings and resolves them from, in
// increasing precedence: built-in defaults, a YAML settings file,
// RELEASE_PUBLISHER_* environment variables and explicitly set flags.
package config
