package cargo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/su6nl/release-publisher/internal/domain/release"
)

// DefaultManifestFilename is the build manifest at the project root.
const DefaultManifestFilename = "Cargo.toml"

// packageSection is the table holding name, version and friends.
const packageSection = "package"

var (
	// ErrParse is returned when the manifest is missing, unreadable or not valid TOML.
	ErrParse = errors.New("parse build manifest")
	// ErrMissingSection is returned when the manifest has no [package] table.
	ErrMissingSection = errors.New("build manifest has no [package] section")
)

// ReadPackage parses the manifest at path and returns its [package] table verbatim.
func ReadPackage(path string) (release.Package, error) {
	if path == "" {
		path = DefaultManifestFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}

	return DecodePackage(contents)
}

// DecodePackage extracts the [package] table from manifest contents.
func DecodePackage(contents []byte) (release.Package, error) {
	var manifest map[string]any
	if err := toml.Unmarshal(contents, &manifest); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}

	section, ok := manifest[packageSection]
	if !ok {
		return nil, ErrMissingSection
	}

	table, ok := section.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: [%s] is %T, not a table", ErrMissingSection, packageSection, section)
	}

	return release.Package(table), nil
}
