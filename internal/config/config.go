package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/su6nl/release-publisher/internal/domain/release"
	"github.com/su6nl/release-publisher/internal/logger"
	"github.com/su6nl/release-publisher/internal/repository/cargo"
	"github.com/su6nl/release-publisher/internal/repository/remote"
)

// Config describes where a binary is built and where it is published.
type Config struct {
	// Endpoint is the rclone remote name, as listed by `rclone listremotes`.
	Endpoint string `yaml:"endpoint"`
	// Bucket is the bucket holding binaries and the download index.
	Bucket string `yaml:"bucket"`
	// BinaryName is the compiled binary; empty means the package name.
	BinaryName string `yaml:"binary_name,omitempty"`
	// BaseURL is the public URL the bucket is served from.
	BaseURL string `yaml:"base_url"`
	// ManifestKey is the object key of the download index.
	ManifestKey string `yaml:"manifest_key"`
	// Targets are the target triples to build, in order.
	Targets []string `yaml:"targets"`
	// ProjectDir is where the build tool runs; other local paths are relative to it.
	ProjectDir string `yaml:"project_dir"`
	// CargoManifest is the build manifest holding the [package] table.
	CargoManifest string `yaml:"cargo_manifest"`
	// TargetDir is the build output directory.
	TargetDir string `yaml:"target_dir"`
	// CargoBinary is the build tool executable.
	CargoBinary string `yaml:"cargo_bin"`
	// RcloneBinary is the sync tool executable.
	RcloneBinary string `yaml:"rclone_bin"`
	// Progress passes --progress to rclone transfers.
	Progress bool `yaml:"progress"`
	// VerifyRemoteUnchanged re-reads the index right before overwriting it
	// and aborts when someone else changed it in the meantime.
	VerifyRemoteUnchanged bool `yaml:"verify_remote_unchanged"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
	// LogFile, when set, receives a JSON copy of every log entry.
	LogFile string `yaml:"log_file,omitempty"`
	// DryRun prints external commands instead of running them. Flag only.
	DryRun bool `yaml:"-"`
}

const (
	// DefaultConfigFilename is the settings file looked up in the working directory.
	DefaultConfigFilename = "release-publisher.yaml"

	// DefaultManifestKey is the object key of the download index.
	DefaultManifestKey = "index.json"

	// DefaultTargetDir is where cargo writes build output.
	DefaultTargetDir = "target"

	// DefaultCargoBinary is the build tool executable.
	DefaultCargoBinary = "cargo"

	// DefaultFilePermissions is the permission for written settings files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errEndpointRequired is returned when the rclone remote is missing.
	errEndpointRequired = errors.New("endpoint must be provided")
	// errBucketRequired is returned when the bucket is missing.
	errBucketRequired = errors.New("bucket must be provided")
	// errTargetsRequired is returned when no target triple is configured.
	errTargetsRequired = errors.New("at least one target must be provided")
	// errInvalidBaseURL is returned when base_url is not an absolute http(s) URL.
	errInvalidBaseURL = errors.New("base_url must be an absolute http or https URL")
	// errInvalidManifestKey is returned when manifest_key cannot name an object.
	errInvalidManifestKey = errors.New("manifest_key must name an object")
	// errInvalidBinaryName is returned when binary_name is not a plain file name.
	errInvalidBinaryName = errors.New("binary_name must be a plain file name")
	// errInvalidLogLevel is returned for unknown log levels.
	errInvalidLogLevel = errors.New("unknown log level")
)

// Default returns the settings used for the ntfy-log release bucket.
func Default() *Config {
	targets := release.DefaultTargets()
	raw := make([]string, 0, len(targets))

	for _, target := range targets {
		raw = append(raw, target.String())
	}

	return &Config{
		Endpoint:              "garage-s3-ntfy-log",
		Bucket:                "ntfy-log",
		BaseURL:               "https://download.s3.su6.nl",
		ManifestKey:           DefaultManifestKey,
		Targets:               raw,
		ProjectDir:            ".",
		CargoManifest:         cargo.DefaultManifestFilename,
		TargetDir:             DefaultTargetDir,
		CargoBinary:           DefaultCargoBinary,
		RcloneBinary:          remote.DefaultBinary,
		Progress:              true,
		VerifyRemoteUnchanged: true,
		LogLevel:              "info",
	}
}

// Load reads settings from path on top of Default.
// A missing file at the default location is not an error.
// The result is not validated, since overrides are usually applied afterwards.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && path == DefaultConfigFilename {
			return cfg, nil
		}

		return nil, fmt.Errorf("read settings: %w", err)
	}

	if err = yaml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	return cfg, nil
}

// Save writes settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err = os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills optional fields with defaults and reports every invalid field.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	applyDefaults(cfg)

	var err error

	if cfg.Endpoint == "" {
		err = multierr.Append(err, errEndpointRequired)
	}

	if cfg.Bucket == "" {
		err = multierr.Append(err, errBucketRequired)
	}

	if baseErr := validateBaseURL(cfg.BaseURL); baseErr != nil {
		err = multierr.Append(err, baseErr)
	}

	if strings.Trim(cfg.ManifestKey, "/") == "" || strings.HasSuffix(cfg.ManifestKey, "/") {
		err = multierr.Append(err, fmt.Errorf("%q: %w", cfg.ManifestKey, errInvalidManifestKey))
	}

	if cfg.BinaryName != "" && (strings.ContainsAny(cfg.BinaryName, `/\`) || strings.TrimSpace(cfg.BinaryName) != cfg.BinaryName) {
		err = multierr.Append(err, fmt.Errorf("%q: %w", cfg.BinaryName, errInvalidBinaryName))
	}

	if len(cfg.Targets) == 0 {
		err = multierr.Append(err, errTargetsRequired)
	} else if _, targetErr := release.ParseTargets(cfg.Targets); targetErr != nil {
		err = multierr.Append(err, targetErr)
	}

	if _, ok := logger.ParseLogLevel(cfg.LogLevel); !ok {
		err = multierr.Append(err, fmt.Errorf("%q: %w", cfg.LogLevel, errInvalidLogLevel))
	}

	return err
}

// ParsedTargets returns the configured targets as release targets.
func (c *Config) ParsedTargets() ([]release.Target, error) {
	if len(c.Targets) == 0 {
		return nil, errTargetsRequired
	}

	return release.ParseTargets(c.Targets)
}

// LocalPath resolves p against ProjectDir unless it is absolute.
func (c *Config) LocalPath(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}

	return filepath.Join(c.ProjectDir, p)
}

func applyDefaults(cfg *Config) {
	defaults := Default()

	for _, field := range []struct {
		value    *string
		fallback string
	}{
		{&cfg.ManifestKey, defaults.ManifestKey},
		{&cfg.ProjectDir, defaults.ProjectDir},
		{&cfg.CargoManifest, defaults.CargoManifest},
		{&cfg.TargetDir, defaults.TargetDir},
		{&cfg.CargoBinary, defaults.CargoBinary},
		{&cfg.RcloneBinary, defaults.RcloneBinary},
		{&cfg.LogLevel, defaults.LogLevel},
	} {
		if strings.TrimSpace(*field.value) == "" {
			*field.value = field.fallback
		}
	}
}

func validateBaseURL(raw string) error {
	parsed, err := url.ParseRequestURI(raw)
	if err != nil {
		return fmt.Errorf("%w: %w", errInvalidBaseURL, err)
	}

	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("%q: %w", raw, errInvalidBaseURL)
	}

	return nil
}
