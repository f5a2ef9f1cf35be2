package publisher

import (
	"errors"
	"fmt"

	"github.com/su6nl/release-publisher/internal/command"
	"github.com/su6nl/release-publisher/internal/domain/release"
)

var (
	// ErrAlreadyRunning is returned when another publish holds the lock.
	ErrAlreadyRunning = errors.New("another release-publisher run is in progress")
	// ErrManifestChanged is returned when the download index changed between fetch and upload.
	ErrManifestChanged = errors.New("download index changed on the remote while publishing")
	// ErrArtifactMissing is returned when a build did not leave the expected binary behind.
	ErrArtifactMissing = errors.New("build artifact not found")

	errConfigRequired = errors.New("configuration must be provided")
)

// BuildError reports a target whose build did not succeed.
type BuildError struct {
	// Target is the triple that failed.
	Target release.Target
	// Result is the build command outcome; ExitCode is -1 if it never ran.
	Result *command.Result
	// Err is set when the build tool could not be started.
	Err error
}

// Error implements error.
func (e *BuildError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("build %s: %v", e.Target, e.Err)
	}

	return fmt.Sprintf("build %s: %q exited with status %d", e.Target, e.Result.Command, e.Result.ExitCode)
}

// Unwrap returns the start error, if any.
func (e *BuildError) Unwrap() error {
	return e.Err
}

// ExitCode is the status the process should exit with.
func (e *BuildError) ExitCode() int {
	if e.Err == nil && e.Result != nil && e.Result.ExitCode > 0 {
		return e.Result.ExitCode
	}

	return 1
}

// UploadError reports an artifact that could not be uploaded.
type UploadError struct {
	// Target is the triple whose artifact failed.
	Target release.Target
	// Err is the underlying cause.
	Err error
}

// Error implements error.
func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %s: %v", e.Target, e.Err)
}

// Unwrap returns the underlying cause.
func (e *UploadError) Unwrap() error {
	return e.Err
}

// ExitCode maps a Run error to a process exit status: 0 on success, the
// build tool's status for build failures, 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	var buildErr *BuildError
	if errors.As(err, &buildErr) {
		return buildErr.ExitCode()
	}

	return 1
}
