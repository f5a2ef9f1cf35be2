package publisher

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/su6nl/release-publisher/internal/domain/release"
	"github.com/su6nl/release-publisher/internal/logger"
)

// uploadArtifacts copies each built binary to {bucket}/{arch}/.
// Any failure stops the remaining uploads and the manifest stage.
func (p *publisher) uploadArtifacts(ctx context.Context) error {
	for _, target := range p.targets {
		artifact := p.artifactPath(target)
		arch := target.Architecture()

		if !p.cfg.DryRun {
			if err := describeArtifact(ctx, artifact); err != nil {
				return &UploadError{Target: target, Err: err}
			}
		}

		logger.InfoKV(ctx, "Uploading artifact", "target", target, "arch", arch, "path", artifact)

		if err := p.store.CopyToPrefix(ctx, artifact, string(arch)); err != nil {
			return &UploadError{Target: target, Err: err}
		}
	}

	return nil
}

// artifactPath is where cargo leaves the release binary for target.
func (p *publisher) artifactPath(target release.Target) string {
	return p.cfg.LocalPath(filepath.Join(p.cfg.TargetDir, target.String(), "release", p.binary))
}

// describeArtifact checks the artifact is a regular file and logs its size and SHA-512.
func describeArtifact(ctx context.Context, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", path, ErrArtifactMissing, err)
	}

	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file: %w", path, ErrArtifactMissing)
	}

	sum, err := fileChecksum(path)
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Artifact ready", "path", path, "size", info.Size(), "sha512", sum)

	return nil
}

// fileChecksum returns the hex SHA-512 digest of the file at path.
func fileChecksum(path string) (string, error) {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return "", err
	}

	defer func() {
		_ = file.Close()
	}()

	hasher := sha512.New()
	if _, err = io.Copy(hasher, file); err != nil {
		return "", fmt.Errorf("calculate checksum: %w", err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// digest returns the hex SHA-512 digest of data.
func digest(data []byte) string {
	sum := sha512.Sum512(data)

	return hex.EncodeToString(sum[:])
}
