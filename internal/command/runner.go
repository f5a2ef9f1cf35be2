package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"github.com/su6nl/release-publisher/internal/logger"
)

// Result is the outcome of a finished command.
type Result struct {
	// Command is the command line as it would be typed in a shell.
	Command string
	// Stdout is everything the command wrote to standard output.
	Stdout string
	// Stderr is everything the command wrote to standard error.
	Stderr string
	// ExitCode is the exit status, or -1 when there is none.
	ExitCode int
}

// Success reports whether the command exited with status 0.
func (r *Result) Success() bool {
	return r != nil && r.ExitCode == 0
}

// Runner executes external commands.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (*Result, error)
}

// ExecRunner runs commands as child processes.
type ExecRunner struct {
	// dir is the working directory of every command; empty means the current one.
	dir string
	// stream receives a live copy of the command output when set.
	stream io.Writer
}

// Option configures an ExecRunner.
type Option func(*ExecRunner)

// WithDir runs commands inside dir.
func WithDir(dir string) Option {
	return func(r *ExecRunner) {
		r.dir = dir
	}
}

// WithStream copies command output to w while it is produced.
func WithStream(w io.Writer) Option {
	return func(r *ExecRunner) {
		r.stream = w
	}
}

// NewExecRunner creates a runner backed by os/exec.
func NewExecRunner(opts ...Option) *ExecRunner {
	r := new(ExecRunner)
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Run executes name with args and waits for it to exit.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (*Result, error) {
	result := &Result{
		Command:  Format(name, args...),
		ExitCode: -1,
	}

	logger.DebugKV(ctx, "Running command", "command", result.Command, "dir", r.dir)

	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = r.dir
	cmd.Stdout = r.tee(&stdout)
	cmd.Stderr = r.tee(&stderr)

	err := cmd.Run()

	result.Stdout = stdout.String()
	result.Stderr = stderr.String()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return result, fmt.Errorf("%s: %w", result.Command, ctxErr)
	}

	if err == nil {
		result.ExitCode = 0
		return result, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		logger.DebugKV(ctx, "Command exited with non-zero status",
			"command", result.Command, "exit_code", result.ExitCode)

		return result, nil
	}

	return result, fmt.Errorf("start %s: %w", name, err)
}

func (r *ExecRunner) tee(buf *bytes.Buffer) io.Writer {
	if r.stream == nil {
		return buf
	}

	return io.MultiWriter(buf, r.stream)
}

// DryRunner logs commands instead of running them and reports success.
type DryRunner struct {
	// commands lists every command line received, in order.
	commands []string
}

// Run records the command and returns a successful Result.
func (r *DryRunner) Run(ctx context.Context, name string, args ...string) (*Result, error) {
	line := Format(name, args...)
	r.commands = append(r.commands, line)

	logger.InfoKV(ctx, "Dry run, skipping command", "command", line)

	return &Result{Command: line}, nil
}

// Commands returns the command lines received so far.
func (r *DryRunner) Commands() []string {
	return append([]string(nil), r.commands...)
}

// Format renders a command line, quoting arguments that need it.
func Format(name string, args ...string) string {
	parts := make([]string, 0, len(args)+1)
	for _, part := range append([]string{name}, args...) {
		if part == "" || strings.ContainsAny(part, " \t\n\"'\\$") {
			part = strconv.Quote(part)
		}

		parts = append(parts, part)
	}

	return strings.Join(parts, " ")
}
