package publisher

import (
	"context"
	"fmt"
	"os"

	"github.com/su6nl/release-publisher/internal/domain/release"
	"github.com/su6nl/release-publisher/internal/logger"
	"github.com/su6nl/release-publisher/internal/repository/remote"
)

// tempPattern names the scratch files used for the download index.
const tempPattern = "release-publisher-*.json"

// publishManifest merges this release into the remote download index and
// uploads it back to the same key.
func (p *publisher) publishManifest(ctx context.Context) error {
	key := p.cfg.ManifestKey

	scratch, cleanup, err := scopedTempFile()
	if err != nil {
		return err
	}

	defer cleanup()

	logger.InfoKV(ctx, "Downloading the download index", "key", key)

	original, err := fetchObject(ctx, p.store, key, scratch)
	if err != nil {
		return err
	}

	index, err := release.DecodeIndex(original)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}

	downloads := release.NewDownloads(p.cfg.BaseURL, p.binary, p.targets)
	index.SetEntry(p.binary, p.pkg, downloads)

	data, err := index.Encode()
	if err != nil {
		return err
	}

	if err = os.WriteFile(scratch, data, 0o600); err != nil {
		return fmt.Errorf("write download index: %w", err)
	}

	if p.cfg.DryRun {
		if _, err = p.output.Write(data); err != nil {
			return fmt.Errorf("print download index: %w", err)
		}
	}

	if p.cfg.VerifyRemoteUnchanged {
		if err = p.ensureRemoteUnchanged(ctx, original); err != nil {
			return err
		}
	}

	if err = p.store.Put(ctx, scratch, key); err != nil {
		return fmt.Errorf("upload download index: %w", err)
	}

	logger.InfoKV(ctx, "Download index updated",
		"key", key, "binary", p.binary, "entries", len(index), "downloads", downloads)

	return nil
}

// ensureRemoteUnchanged fetches the index again and compares it with what the
// merge was based on. The remote offers no conditional write, so a writer
// slipping in between this check and the upload still goes unnoticed.
func (p *publisher) ensureRemoteUnchanged(ctx context.Context, original []byte) error {
	scratch, cleanup, err := scopedTempFile()
	if err != nil {
		return err
	}

	defer cleanup()

	current, err := fetchObject(ctx, p.store, p.cfg.ManifestKey, scratch)
	if err != nil {
		return fmt.Errorf("re-check download index: %w", err)
	}

	before, after := digest(original), digest(current)
	if before != after {
		logger.ErrorKV(ctx, "Download index changed while publishing",
			"fetched_sha512", before, "current_sha512", after)

		return ErrManifestChanged
	}

	logger.DebugKV(ctx, "Download index unchanged", "sha512", before)

	return nil
}

// fetchObject downloads key into path and returns its contents.
// A missing object yields nil contents.
func fetchObject(ctx context.Context, store remote.Store, key, path string) ([]byte, error) {
	found, err := store.Fetch(ctx, key, path)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", key, err)
	}

	if !found {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read downloaded %s: %w", key, err)
	}

	return data, nil
}

// scopedTempFile creates an empty scratch file and returns the cleanup removing it.
func scopedTempFile() (string, func(), error) {
	file, err := os.CreateTemp("", tempPattern)
	if err != nil {
		return "", nil, fmt.Errorf("create temporary file: %w", err)
	}

	path := file.Name()

	cleanup := func() {
		_ = os.Remove(path)
	}

	if err = file.Close(); err != nil {
		cleanup()

		return "", nil, fmt.Errorf("close temporary file: %w", err)
	}

	return path, cleanup, nil
}

// ShowManifest prints the remote download index as indented JSON.
func ShowManifest(ctx context.Context, opts *Options) error {
	if opts == nil || opts.Config == nil {
		return errConfigRequired
	}

	ctx = logger.WithName(ctx, "release-publisher")

	store, err := newStore(opts)
	if err != nil {
		return err
	}

	scratch, cleanup, err := scopedTempFile()
	if err != nil {
		return err
	}

	defer cleanup()

	data, err := fetchObject(ctx, store, opts.Config.ManifestKey, scratch)
	if err != nil {
		return err
	}

	index, err := release.DecodeIndex(data)
	if err != nil {
		return fmt.Errorf("%s: %w", opts.Config.ManifestKey, err)
	}

	encoded, err := index.Encode()
	if err != nil {
		return err
	}

	if _, err = outputOf(opts).Write(encoded); err != nil {
		return fmt.Errorf("print download index: %w", err)
	}

	return nil
}
