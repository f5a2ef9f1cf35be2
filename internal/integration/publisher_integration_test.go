package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/su6nl/release-publisher/internal/config"
	"github.com/su6nl/release-publisher/internal/service/publisher"
)

const (
	bucketName = "releases"
	baseURL    = "https://downloads.example.org"
)

// fakeRclone maps "<remote>:<path>" to "<root>/<path>" and answers a missing
// source with exit status 3 like rclone does.
const fakeRclone = `#!/bin/sh
sub=$1
shift
if [ "$1" = "--progress" ]; then
	shift
fi
resolve() {
	case "$1" in
	*:*) printf '%%s/%%s' '%s' "${1#*:}" ;;
	*) printf '%%s' "$1" ;;
	esac
}
src=$(resolve "$1")
dst=$(resolve "$2")
if [ ! -e "$src" ]; then
	echo "ERROR : $1: directory not found" >&2
	exit 3
fi
case "$sub" in
copy) mkdir -p "$dst" && cp "$src" "$dst" ;;
copyto) mkdir -p "$(dirname "$dst")" && cp "$src" "$dst" ;;
*) echo "unsupported command $sub" >&2; exit 1 ;;
esac
`

// fakeCargo handles "build --release --target <triple>" by writing a binary
// where cargo would leave it.
const fakeCargo = `#!/bin/sh
target=$4
mkdir -p "target/$target/release"
printf 'binary for %s\n' "$target" > "target/$target/release/ntfy-log"
`

const failingCargo = `#!/bin/sh
echo "error[E0425]: cannot find value" >&2
exit 101
`

const cargoManifest = `[package]
name = "ntfy-log"
version = "%s"
description = "Forward log lines to ntfy"
license = "MIT"
`

type fixture struct {
	project string
	remote  string
	cfg     *config.Config
}

func newFixture(t *testing.T, cargoScript string) *fixture {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("stub tools are shell scripts")
	}

	root := t.TempDir()
	f := &fixture{
		project: filepath.Join(root, "project"),
		remote:  filepath.Join(root, "remote"),
	}

	bin := filepath.Join(root, "bin")
	for _, dir := range []string{f.project, f.remote, bin} {
		require.NoError(t, os.MkdirAll(dir, 0o755))
	}

	rclonePath := writeScript(t, bin, "rclone", fmt.Sprintf(fakeRclone, f.remote))
	cargoPath := writeScript(t, bin, "cargo", cargoScript)

	f.writeManifest(t, "1.0.0")

	cfg := config.Default()
	cfg.Endpoint = "fake"
	cfg.Bucket = bucketName
	cfg.BaseURL = baseURL
	cfg.ProjectDir = f.project
	cfg.CargoBinary = cargoPath
	cfg.RcloneBinary = rclonePath
	cfg.Progress = false
	cfg.Targets = []string{"x86_64-unknown-linux-musl", "aarch64-unknown-linux-musl"}
	require.NoError(t, config.Validate(cfg))

	f.cfg = cfg

	return f
}

func (f *fixture) writeManifest(t *testing.T, version string) {
	t.Helper()

	path := filepath.Join(f.project, "Cargo.toml")
	require.NoError(t, os.WriteFile(path, fmt.Appendf(nil, cargoManifest, version), 0o600))
}

func (f *fixture) bucketPath(parts ...string) string {
	return filepath.Join(append([]string{f.remote, bucketName}, parts...)...)
}

func (f *fixture) readIndex(t *testing.T) map[string]any {
	t.Helper()

	data, err := os.ReadFile(f.bucketPath(config.DefaultManifestKey))
	require.NoError(t, err)

	var index map[string]any
	require.NoError(t, json.Unmarshal(data, &index))

	return index
}

func (f *fixture) run(t *testing.T) error {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return publisher.Run(ctx, &publisher.Options{Config: f.cfg, Output: os.Stdout})
}

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o700)) //nolint:gosec // Test stub must be executable.

	return path
}

// TestPublisher_EndToEnd publishes twice through real child processes and
// checks the bucket layout and the merged download index.
func TestPublisher_EndToEnd(t *testing.T) {
	t.Parallel()

	f := newFixture(t, fakeCargo)

	// Another binary already listed in the index must survive the merge.
	require.NoError(t, os.MkdirAll(f.bucketPath(), 0o755))
	require.NoError(t, os.WriteFile(f.bucketPath(config.DefaultManifestKey),
		[]byte(`{"other-tool": {"name": "other-tool", "version": "0.3.0"}}`), 0o600))

	require.NoError(t, f.run(t))

	for _, arch := range []string{"x86_64", "aarch64"} {
		data, err := os.ReadFile(f.bucketPath(arch, "ntfy-log"))
		require.NoError(t, err)
		require.Contains(t, string(data), arch+"-unknown-linux-musl")
	}

	index := f.readIndex(t)
	require.Contains(t, index, "other-tool")

	entry, ok := index["ntfy-log"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "1.0.0", entry["version"])
	require.Equal(t, "MIT", entry["license"])
	require.Equal(t, map[string]any{
		"x86_64":  baseURL + "/x86_64/ntfy-log",
		"aarch64": baseURL + "/aarch64/ntfy-log",
	}, entry["downloads"])

	// A second release replaces the entry in place.
	f.writeManifest(t, "1.1.0")
	require.NoError(t, f.run(t))

	index = f.readIndex(t)
	require.Len(t, index, 2)

	entry, ok = index["ntfy-log"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "1.1.0", entry["version"])

	_, err := os.Stat(filepath.Join(f.project, publisher.LockFilename))
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestPublisher_BuildFailureExitCode checks that a failed build uploads nothing
// and surfaces the build tool's exit status.
func TestPublisher_BuildFailureExitCode(t *testing.T) {
	t.Parallel()

	f := newFixture(t, failingCargo)

	err := f.run(t)
	require.Error(t, err)

	var buildErr *publisher.BuildError
	require.ErrorAs(t, err, &buildErr)
	require.Equal(t, 101, publisher.ExitCode(err))

	entries, err := os.ReadDir(f.remote)
	require.NoError(t, err)
	require.Empty(t, entries)

	_, err = os.Stat(filepath.Join(f.project, publisher.LockFilename))
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestPublisher_MalformedRemoteIndex leaves a broken index untouched.
func TestPublisher_MalformedRemoteIndex(t *testing.T) {
	t.Parallel()

	f := newFixture(t, fakeCargo)

	broken := []byte(`{"ntfy-log": `)
	require.NoError(t, os.MkdirAll(f.bucketPath(), 0o755))
	require.NoError(t, os.WriteFile(f.bucketPath(config.DefaultManifestKey), broken, 0o600))

	require.Error(t, f.run(t))

	data, err := os.ReadFile(f.bucketPath(config.DefaultManifestKey))
	require.NoError(t, err)
	require.Equal(t, broken, data)
}

// TestPublisher_DryRunTouchesNothing runs without building or uploading.
func TestPublisher_DryRunTouchesNothing(t *testing.T) {
	t.Parallel()

	f := newFixture(t, failingCargo)
	f.cfg.DryRun = true

	require.NoError(t, f.run(t))

	entries, err := os.ReadDir(f.remote)
	require.NoError(t, err)
	require.Empty(t, entries)
}
