package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. RELEASE_PUBLISHER_BUCKET.
const EnvPrefix = "RELEASE_PUBLISHER"

// Settings keys shared by the YAML file, environment variables and flags.
const (
	KeyEndpoint              = "endpoint"
	KeyBucket                = "bucket"
	KeyBinaryName            = "binary_name"
	KeyBaseURL               = "base_url"
	KeyManifestKey           = "manifest_key"
	KeyTargets               = "targets"
	KeyProjectDir            = "project_dir"
	KeyCargoManifest         = "cargo_manifest"
	KeyTargetDir             = "target_dir"
	KeyCargoBinary           = "cargo_bin"
	KeyRcloneBinary          = "rclone_bin"
	KeyProgress              = "progress"
	KeyVerifyRemoteUnchanged = "verify_remote_unchanged"
	KeyLogLevel              = "log_level"
	KeyLogFile               = "log_file"
	KeyDryRun                = "dry_run"
)

// flagNames maps settings keys to their command-line flags.
//
//nolint:gochecknoglobals // Static lookup table.
var flagNames = map[string]string{
	KeyEndpoint:              "endpoint",
	KeyBucket:                "bucket",
	KeyBinaryName:            "binary-name",
	KeyBaseURL:               "base-url",
	KeyManifestKey:           "manifest-key",
	KeyTargets:               "target",
	KeyProjectDir:            "project-dir",
	KeyCargoManifest:         "cargo-manifest",
	KeyTargetDir:             "target-dir",
	KeyCargoBinary:           "cargo-bin",
	KeyRcloneBinary:          "rclone-bin",
	KeyProgress:              "progress",
	KeyVerifyRemoteUnchanged: "verify-remote-unchanged",
	KeyLogLevel:              "log-level",
	KeyLogFile:               "log-file",
	KeyDryRun:                "dry-run",
}

// RegisterFlags declares one flag per setting. Defaults only feed the help
// text; a flag overrides the file and environment when it is set explicitly.
func RegisterFlags(flags *pflag.FlagSet) {
	d := Default()

	flags.String(flagNames[KeyEndpoint], d.Endpoint, "rclone remote name")
	flags.String(flagNames[KeyBucket], d.Bucket, "bucket for binaries and the download index")
	flags.String(flagNames[KeyBinaryName], d.BinaryName, "binary name (defaults to the package name)")
	flags.String(flagNames[KeyBaseURL], d.BaseURL, "public base URL of the bucket")
	flags.String(flagNames[KeyManifestKey], d.ManifestKey, "object key of the download index")
	flags.StringSlice(flagNames[KeyTargets], d.Targets, "target triple to build (repeatable)")
	flags.String(flagNames[KeyProjectDir], d.ProjectDir, "directory holding the build manifest")
	flags.String(flagNames[KeyCargoManifest], d.CargoManifest, "build manifest path")
	flags.String(flagNames[KeyTargetDir], d.TargetDir, "build output directory")
	flags.String(flagNames[KeyCargoBinary], d.CargoBinary, "build tool executable")
	flags.String(flagNames[KeyRcloneBinary], d.RcloneBinary, "rclone executable")
	flags.Bool(flagNames[KeyProgress], d.Progress, "show rclone transfer progress")
	flags.Bool(flagNames[KeyVerifyRemoteUnchanged], d.VerifyRemoteUnchanged,
		"abort when the download index changed while publishing")
	flags.String(flagNames[KeyLogLevel], d.LogLevel, "log level: debug, info, warn, error")
	flags.String(flagNames[KeyLogFile], d.LogFile, "also write JSON logs to this rotating file")
	flags.Bool(flagNames[KeyDryRun], false, "print external commands instead of running them")
}

// Resolve loads the file at path, applies environment variables and then
// explicitly set flags, and validates the result.
func Resolve(path string, flags *pflag.FlagSet) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	return overlay(cfg, flags)
}

// FromFlags is Resolve without a settings file: defaults, environment, flags.
func FromFlags(flags *pflag.FlagSet) (*Config, error) {
	return overlay(Default(), flags)
}

func overlay(cfg *Config, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if flags != nil {
		for key, name := range flagNames {
			flag := flags.Lookup(name)
			if flag == nil {
				continue
			}

			if err := v.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	applyOverrides(cfg, v)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	return cfg, nil
}

func applyOverrides(cfg *Config, v *viper.Viper) {
	for key, dst := range map[string]*string{
		KeyEndpoint:      &cfg.Endpoint,
		KeyBucket:        &cfg.Bucket,
		KeyBinaryName:    &cfg.BinaryName,
		KeyBaseURL:       &cfg.BaseURL,
		KeyManifestKey:   &cfg.ManifestKey,
		KeyProjectDir:    &cfg.ProjectDir,
		KeyCargoManifest: &cfg.CargoManifest,
		KeyTargetDir:     &cfg.TargetDir,
		KeyCargoBinary:   &cfg.CargoBinary,
		KeyRcloneBinary:  &cfg.RcloneBinary,
		KeyLogLevel:      &cfg.LogLevel,
		KeyLogFile:       &cfg.LogFile,
	} {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}

	for key, dst := range map[string]*bool{
		KeyProgress:              &cfg.Progress,
		KeyVerifyRemoteUnchanged: &cfg.VerifyRemoteUnchanged,
		KeyDryRun:                &cfg.DryRun,
	} {
		if v.IsSet(key) {
			*dst = v.GetBool(key)
		}
	}

	if v.IsSet(KeyTargets) {
		cfg.Targets = splitList(v.Get(KeyTargets))
	}
}

// splitList accepts a flag slice or a comma-separated environment value.
func splitList(value any) []string {
	var raw []string

	switch typed := value.(type) {
	case []string:
		raw = typed
	case string:
		raw = []string{typed}
	case []any:
		for _, item := range typed {
			raw = append(raw, fmt.Sprint(item))
		}
	}

	result := make([]string, 0, len(raw))

	for _, item := range raw {
		for part := range strings.SplitSeq(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				result = append(result, part)
			}
		}
	}

	return result
}
