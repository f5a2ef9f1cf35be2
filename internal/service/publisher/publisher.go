package publisher

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"

	"github.com/su6nl/release-publisher/internal/command"
	"github.com/su6nl/release-publisher/internal/config"
	"github.com/su6nl/release-publisher/internal/domain/release"
	"github.com/su6nl/release-publisher/internal/logger"
	"github.com/su6nl/release-publisher/internal/repository/cargo"
	"github.com/su6nl/release-publisher/internal/repository/remote"
	"github.com/su6nl/release-publisher/internal/version"
)

// Options contains inputs for the publisher entry points.
type Options struct {
	// Config holds resolved and validated settings.
	Config *config.Config
	// Runner executes the build tool. Nil means child processes, or a
	// DryRunner when Config.DryRun is set.
	Runner command.Runner
	// Store is the remote object store. Nil means rclone.
	Store remote.Store
	// Stream receives live output of external commands. Nil discards it.
	Stream io.Writer
	// Output receives printed download indexes. Nil means stdout.
	Output io.Writer
}

// publisher runs one release: preflight, build, upload, manifest.
// It is unexported; callers use Run.
type publisher struct {
	// cfg holds the publish settings.
	cfg *config.Config
	// runner executes the build tool.
	runner command.Runner
	// store reads and writes the bucket.
	store remote.Store
	// output receives the merged index in dry-run mode.
	output io.Writer
	// targets are the parsed target triples, in build order.
	targets []release.Target
	// pkg is the [package] table read during preflight.
	pkg release.Package
	// binary is the published binary name.
	binary string
}

// Run executes the release pipeline. Nothing is built or uploaded unless the
// build manifest is valid and the publish lock is free.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "release-publisher")
	ctx = logger.WithKV(ctx, "run_id", uuid.NewString())

	if who, err := detectActor(); err != nil {
		logger.WarnKV(ctx, "Unable to identify the publishing user", "error", err)
	} else {
		logger.InfoKV(ctx, "Starting release",
			"publisher_version", version.Short(), "host", who.Hostname, "user", who.Username)
	}

	p, err := newPublisher(ctx, opts)
	if err != nil {
		return fmt.Errorf("preflight: %w", err)
	}

	unlock, err := newPublishLock(p.cfg.ProjectDir).Acquire(ctx)
	if err != nil {
		return fmt.Errorf("preflight: %w", err)
	}

	defer unlock()

	if err = p.Run(ctx); err != nil {
		logger.ErrorKV(ctx, "Release failed", "error", err)
		return err
	}

	if dry, ok := p.runner.(*command.DryRunner); ok {
		logger.InfoKV(ctx, "Dry run finished, nothing was built or uploaded",
			"skipped_commands", dry.Commands())

		return nil
	}

	logger.InfoKV(ctx, "Release published",
		"binary", p.binary, "version", p.pkg.Version(), "targets", len(p.targets))

	return nil
}

// newPublisher validates settings and reads package metadata.
func newPublisher(ctx context.Context, opts *Options) (*publisher, error) {
	if opts == nil || opts.Config == nil {
		return nil, errConfigRequired
	}

	cfg := opts.Config

	targets, err := cfg.ParsedTargets()
	if err != nil {
		return nil, err
	}

	manifestPath := cfg.LocalPath(cfg.CargoManifest)
	logger.InfoKV(ctx, "Reading package metadata", "path", manifestPath)

	pkg, err := cargo.ReadPackage(manifestPath)
	if err != nil {
		return nil, err
	}

	if err = pkg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", manifestPath, err)
	}

	store, err := newStore(opts)
	if err != nil {
		return nil, err
	}

	p := &publisher{
		cfg:     cfg,
		runner:  newRunner(opts),
		store:   store,
		output:  outputOf(opts),
		targets: targets,
		pkg:     pkg,
		binary:  cfg.BinaryName,
	}

	if p.binary == "" {
		p.binary = pkg.Name()
	}

	logger.InfoKV(ctx, "Package metadata is valid",
		"name", pkg.Name(), "version", pkg.Version(), "binary", p.binary, "dry_run", cfg.DryRun)

	return p, nil
}

// Run executes the stages in order and stops at the first failure.
func (p *publisher) Run(ctx context.Context) error {
	if err := p.buildAllTargets(ctx); err != nil {
		return err
	}

	if err := p.uploadArtifacts(ctx); err != nil {
		return err
	}

	return p.publishManifest(ctx)
}

func newRunner(opts *Options) command.Runner {
	switch {
	case opts.Runner != nil:
		return opts.Runner
	case opts.Config.DryRun:
		return new(command.DryRunner)
	default:
		return command.NewExecRunner(
			command.WithDir(opts.Config.ProjectDir),
			command.WithStream(opts.Stream),
		)
	}
}

// newStore builds the rclone store. In dry-run mode writes are only logged.
func newStore(opts *Options) (remote.Store, error) {
	store := opts.Store

	if store == nil {
		cfg := opts.Config

		rclone, err := remote.NewRcloneStore(
			command.NewExecRunner(command.WithDir(cfg.ProjectDir), command.WithStream(opts.Stream)),
			cfg.Endpoint,
			cfg.Bucket,
			remote.WithBinary(cfg.RcloneBinary),
			remote.WithProgress(cfg.Progress),
		)
		if err != nil {
			return nil, err
		}

		store = rclone
	}

	if opts.Config.DryRun {
		return &dryStore{Store: store}, nil
	}

	return store, nil
}

func outputOf(opts *Options) io.Writer {
	if opts.Output != nil {
		return opts.Output
	}

	return os.Stdout
}

// dryStore reads from the wrapped store and skips every write.
type dryStore struct {
	remote.Store
}

func (s *dryStore) CopyToPrefix(ctx context.Context, localPath, prefix string) error {
	logger.InfoKV(ctx, "Dry run, skipping upload", "source", localPath, "prefix", prefix)
	return nil
}

func (s *dryStore) Put(ctx context.Context, localPath, key string) error {
	logger.InfoKV(ctx, "Dry run, skipping upload", "source", localPath, "key", key)
	return nil
}
