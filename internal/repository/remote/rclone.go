package remote

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/su6nl/release-publisher/internal/command"
	"github.com/su6nl/release-publisher/internal/logger"
)

// Store is the subset of object-store operations the publisher needs.
type Store interface {
	// CopyToPrefix uploads a local file into prefix, keeping its base name.
	CopyToPrefix(ctx context.Context, localPath, prefix string) error
	// Fetch downloads key into localPath. It reports false when the object does not exist.
	Fetch(ctx context.Context, key, localPath string) (bool, error)
	// Put uploads localPath to key, overwriting the previous object.
	Put(ctx context.Context, localPath, key string) error
}

// DefaultBinary is the rclone executable looked up in PATH.
const DefaultBinary = "rclone"

// rclone exit codes meaning the source object is absent.
const (
	exitDirectoryNotFound = 3
	exitFileNotFound      = 4
)

var (
	// ErrEndpointRequired is returned when no rclone remote is configured.
	ErrEndpointRequired = errors.New("rclone endpoint must be provided")
	// ErrBucketRequired is returned when no bucket is configured.
	ErrBucketRequired = errors.New("bucket must be provided")
)

// CommandError describes an rclone invocation that exited with a non-zero status.
type CommandError struct {
	// Op is the store operation that failed.
	Op string
	// Result is the outcome of the rclone command.
	Result *command.Result
}

// Error implements error.
func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s: %q exited with status %d", e.Op, e.Result.Command, e.Result.ExitCode)
	if stderr := strings.TrimSpace(e.Result.Stderr); stderr != "" {
		msg += ": " + lastLine(stderr)
	}

	return msg
}

// RcloneStore implements Store with rclone copy and copyto.
type RcloneStore struct {
	runner   command.Runner
	binary   string
	endpoint string
	bucket   string
	progress bool
}

// Option configures an RcloneStore.
type Option func(*RcloneStore)

// WithBinary overrides the rclone executable.
func WithBinary(binary string) Option {
	return func(s *RcloneStore) {
		if binary != "" {
			s.binary = binary
		}
	}
}

// WithProgress passes --progress to every transfer.
func WithProgress(enabled bool) Option {
	return func(s *RcloneStore) {
		s.progress = enabled
	}
}

// NewRcloneStore creates a store for bucket on the rclone remote named endpoint.
func NewRcloneStore(runner command.Runner, endpoint, bucket string, opts ...Option) (*RcloneStore, error) {
	if endpoint == "" {
		return nil, ErrEndpointRequired
	}

	if bucket == "" {
		return nil, ErrBucketRequired
	}

	s := &RcloneStore{
		runner:   runner,
		binary:   DefaultBinary,
		endpoint: strings.TrimSuffix(endpoint, ":"),
		bucket:   strings.Trim(bucket, "/"),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Path returns the rclone address of key inside the bucket.
func (s *RcloneStore) Path(key string) string {
	return s.endpoint + ":" + s.bucket + "/" + strings.TrimLeft(key, "/")
}

// CopyToPrefix uploads localPath into {bucket}/{prefix}/.
func (s *RcloneStore) CopyToPrefix(ctx context.Context, localPath, prefix string) error {
	destination := s.Path(strings.Trim(prefix, "/")) + "/"

	res, err := s.run(ctx, "copy", localPath, destination)
	if err != nil {
		return fmt.Errorf("upload %s: %w", localPath, err)
	}

	if !res.Success() {
		return &CommandError{Op: "upload " + localPath, Result: res}
	}

	logger.InfoKV(ctx, "Uploaded file", "source", localPath, "destination", destination)

	return nil
}

// Fetch copies the object at key into localPath, overwriting it.
func (s *RcloneStore) Fetch(ctx context.Context, key, localPath string) (bool, error) {
	source := s.Path(key)

	res, err := s.run(ctx, "copyto", source, localPath)
	if err != nil {
		return false, fmt.Errorf("fetch %s: %w", source, err)
	}

	switch res.ExitCode {
	case 0:
		return true, nil
	case exitDirectoryNotFound, exitFileNotFound:
		logger.InfoKV(ctx, "Remote object does not exist yet", "source", source)
		return false, nil
	default:
		return false, &CommandError{Op: "fetch " + source, Result: res}
	}
}

// Put copies localPath to the object at key, overwriting it.
func (s *RcloneStore) Put(ctx context.Context, localPath, key string) error {
	destination := s.Path(key)

	res, err := s.run(ctx, "copyto", localPath, destination)
	if err != nil {
		return fmt.Errorf("put %s: %w", destination, err)
	}

	if !res.Success() {
		return &CommandError{Op: "put " + destination, Result: res}
	}

	logger.InfoKV(ctx, "Uploaded object", "destination", destination)

	return nil
}

func (s *RcloneStore) run(ctx context.Context, subcommand string, args ...string) (*command.Result, error) {
	full := make([]string, 0, len(args)+2)
	full = append(full, subcommand)

	if s.progress {
		full = append(full, "--progress")
	}

	full = append(full, args...)

	return s.runner.Run(ctx, s.binary, full...)
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}

	return s
}
