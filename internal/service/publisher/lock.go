package publisher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/su6nl/release-publisher/internal/logger"
)

// LockFilename marks a publish in progress inside the project directory.
const LockFilename = ".release-publisher.lock"

// commLength is how much of an executable name Linux keeps in /proc/<pid>/stat.
const commLength = 15

// publishLock keeps two publishers from racing on the same project.
// The lock file holds the owner's PID; it is stale once that process is gone.
type publishLock struct {
	// path is the lock file location.
	path string
	// executable is the process name expected for a live owner.
	executable string
}

func newPublishLock(dir string) *publishLock {
	return &publishLock{
		path:       filepath.Join(dir, LockFilename),
		executable: filepath.Base(os.Args[0]),
	}
}

// Acquire takes the lock and returns the function releasing it.
func (l *publishLock) Acquire(ctx context.Context) (func(), error) {
	logger.Debug(ctx, "Checking for the presence of a publish lock")

	if err := l.clearStale(ctx); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, ErrAlreadyRunning
		}

		return nil, fmt.Errorf("create publish lock: %w", err)
	}

	_, writeErr := file.WriteString(strconv.Itoa(os.Getpid()))
	if closeErr := file.Close(); writeErr == nil {
		writeErr = closeErr
	}

	if writeErr != nil {
		_ = os.Remove(l.path)
		return nil, fmt.Errorf("write publish lock: %w", writeErr)
	}

	return func() {
		if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.WarnKV(ctx, "Unable to remove publish lock", "path", l.path, "error", err)
		}
	}, nil
}

// clearStale removes a lock left behind by a process that no longer runs.
func (l *publishLock) clearStale(ctx context.Context) error {
	contents, err := os.ReadFile(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("read publish lock: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(contents)))
	if err == nil && l.holderAlive(pid) {
		return fmt.Errorf("%w (pid %d, lock %s)", ErrAlreadyRunning, pid, l.path)
	}

	logger.InfoKV(ctx, "Removing stale publish lock", "path", l.path)

	if err = os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale publish lock: %w", err)
	}

	return nil
}

// holderAlive reports whether pid is another running instance of this tool.
func (l *publishLock) holderAlive(pid int) bool {
	if pid <= 0 || pid == os.Getpid() {
		return false
	}

	process, err := ps.FindProcess(pid)
	if err != nil {
		// Unknown state, keep the lock.
		return true
	}

	if process == nil {
		return false
	}

	return sameExecutable(process.Executable(), l.executable)
}

func sameExecutable(running, want string) bool {
	if running == want {
		return true
	}

	return len(running) == commLength && strings.HasPrefix(want, running)
}
