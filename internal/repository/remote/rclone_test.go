package remote

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/su6nl/release-publisher/internal/command"
)

// scriptedRunner records invocations and answers with queued exit codes.
type scriptedRunner struct {
	calls [][]string
	codes []int
	err   error
}

func (r *scriptedRunner) Run(_ context.Context, name string, args ...string) (*command.Result, error) {
	r.calls = append(r.calls, append([]string{name}, args...))

	if r.err != nil {
		return &command.Result{ExitCode: -1}, r.err
	}

	code := 0
	if len(r.codes) > 0 {
		code, r.codes = r.codes[0], r.codes[1:]
	}

	return &command.Result{
		Command:  command.Format(name, args...),
		Stderr:   "NOTICE: something\nERROR : boom",
		ExitCode: code,
	}, nil
}

func newStore(t *testing.T, runner command.Runner, opts ...Option) *RcloneStore {
	t.Helper()

	s, err := NewRcloneStore(runner, "garage-s3-ntfy-log", "ntfy-log", opts...)
	require.NoError(t, err)

	return s
}

// TestNewRcloneStore_Validates rejects missing endpoint or bucket.
func TestNewRcloneStore_Validates(t *testing.T) {
	t.Parallel()

	_, err := NewRcloneStore(new(scriptedRunner), "", "bucket")
	require.ErrorIs(t, err, ErrEndpointRequired)

	_, err = NewRcloneStore(new(scriptedRunner), "remote", "")
	require.ErrorIs(t, err, ErrBucketRequired)
}

// TestRcloneStore_Path joins endpoint, bucket and key.
func TestRcloneStore_Path(t *testing.T) {
	t.Parallel()

	s, err := NewRcloneStore(new(scriptedRunner), "garage:", "/ntfy-log/")
	require.NoError(t, err)
	require.Equal(t, "garage:ntfy-log/index.json", s.Path("/index.json"))
}

// TestRcloneStore_CopyToPrefix builds the copy command line.
func TestRcloneStore_CopyToPrefix(t *testing.T) {
	t.Parallel()

	runner := new(scriptedRunner)
	s := newStore(t, runner, WithProgress(true), WithBinary("/opt/rclone"))

	err := s.CopyToPrefix(context.Background(), "./target/x86_64-unknown-linux-gnu/release/ntfy-log", "x86_64")
	require.NoError(t, err)
	require.Equal(t, [][]string{{
		"/opt/rclone", "copy", "--progress",
		"./target/x86_64-unknown-linux-gnu/release/ntfy-log",
		"garage-s3-ntfy-log:ntfy-log/x86_64/",
	}}, runner.calls)
}

// TestRcloneStore_CopyToPrefix_Failure returns a CommandError with the last stderr line.
func TestRcloneStore_CopyToPrefix_Failure(t *testing.T) {
	t.Parallel()

	s := newStore(t, &scriptedRunner{codes: []int{1}})

	err := s.CopyToPrefix(context.Background(), "bin", "aarch64")

	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
	require.Equal(t, 1, cmdErr.Result.ExitCode)
	require.True(t, strings.HasSuffix(err.Error(), "ERROR : boom"))
}

// TestRcloneStore_Fetch distinguishes found, missing and failed fetches.
func TestRcloneStore_Fetch(t *testing.T) {
	t.Parallel()

	runner := &scriptedRunner{codes: []int{0, 3, 4, 7}}
	s := newStore(t, runner)
	ctx := context.Background()

	found, err := s.Fetch(ctx, "index.json", "/tmp/x.json")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []string{"rclone", "copyto", "garage-s3-ntfy-log:ntfy-log/index.json", "/tmp/x.json"}, runner.calls[0])

	for range 2 {
		found, err = s.Fetch(ctx, "index.json", "/tmp/x.json")
		require.NoError(t, err)
		require.False(t, found)
	}

	_, err = s.Fetch(ctx, "index.json", "/tmp/x.json")

	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
	require.Equal(t, 7, cmdErr.Result.ExitCode)
}

// TestRcloneStore_Put uploads with copyto and propagates runner errors.
func TestRcloneStore_Put(t *testing.T) {
	t.Parallel()

	runner := new(scriptedRunner)
	s := newStore(t, runner)

	require.NoError(t, s.Put(context.Background(), "/tmp/x.json", "index.json"))
	require.Equal(t, []string{"rclone", "copyto", "/tmp/x.json", "garage-s3-ntfy-log:ntfy-log/index.json"}, runner.calls[0])

	boom := errors.New("exec: not found")
	s = newStore(t, &scriptedRunner{err: boom})
	require.ErrorIs(t, s.Put(context.Background(), "/tmp/x.json", "index.json"), boom)
}
