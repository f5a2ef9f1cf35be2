// Package command runs external tools and reports their outcome as a Result.
//
// A non-zero exit status is not an error: callers inspect Result.ExitCode and
// decide whether it is fatal. Errors are reserved for commands that could not
// be started or were interrupted.
package command
