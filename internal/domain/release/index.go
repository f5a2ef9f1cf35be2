package release

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"strings"

	"go.uber.org/multierr"
)

// DownloadsKey is the entry field holding per-architecture download URLs.
const DownloadsKey = "downloads"

var (
	// ErrMalformedIndex is returned when a non-empty manifest is not a JSON object.
	ErrMalformedIndex = errors.New("malformed download index")
	// ErrMissingPackageField is returned when a required package field is absent or not a string.
	ErrMissingPackageField = errors.New("missing package field")
)

// Package is the [package] table of the build manifest, kept verbatim.
type Package map[string]any

// Name returns the package name, or "" if it is absent or not a string.
func (p Package) Name() string {
	return p.stringField("name")
}

// Version returns the package version, or "" if it is absent or not a string.
func (p Package) Version() string {
	return p.stringField("version")
}

// Validate checks that name and version are present, reporting both when missing.
func (p Package) Validate() error {
	var err error

	for _, field := range []string{"name", "version"} {
		if p.stringField(field) == "" {
			err = multierr.Append(err, fmt.Errorf("%s: %w", field, ErrMissingPackageField))
		}
	}

	return err
}

func (p Package) stringField(key string) string {
	value, _ := p[key].(string)

	return value
}

// Downloads maps an architecture to the public URL of its binary.
type Downloads map[Architecture]string

// NewDownloads builds {baseURL}/{arch}/{binary} for every target.
func NewDownloads(baseURL, binary string, targets []Target) Downloads {
	base := strings.TrimRight(baseURL, "/")
	downloads := make(Downloads, len(targets))

	for _, target := range targets {
		arch := target.Architecture()
		downloads[arch] = base + "/" + string(arch) + "/" + binary
	}

	return downloads
}

// Index is the download manifest: binary name to release entry.
// Entries are kept as decoded JSON so fields written by other tools survive.
type Index map[string]any

// DecodeIndex parses a manifest document. Empty or whitespace-only input is
// the empty index.
func DecodeIndex(data []byte) (Index, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Index{}, nil
	}

	// Numbers stay json.Number so integers beyond float64 precision written
	// by other tools are re-encoded unchanged.
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var index Index
	if err := decoder.Decode(&index); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedIndex, err)
	}

	if err := decoder.Decode(new(json.RawMessage)); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: unexpected data after the top-level object", ErrMalformedIndex)
	}

	// A literal null decodes into a nil map without error.
	if index == nil {
		return nil, fmt.Errorf("%w: top-level value is not an object", ErrMalformedIndex)
	}

	return index, nil
}

// Encode renders the index as indented JSON with a trailing newline.
// Keys are emitted in sorted order.
func (i Index) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(i, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode download index: %w", err)
	}

	return append(data, '\n'), nil
}

// SetEntry stores pkg plus downloads under binary, replacing any previous
// entry for that binary. pkg itself is not modified.
func (i Index) SetEntry(binary string, pkg Package, downloads Downloads) {
	entry := make(map[string]any, len(pkg)+1)
	maps.Copy(entry, pkg)

	urls := make(map[string]any, len(downloads))
	for arch, url := range downloads {
		urls[string(arch)] = url
	}

	entry[DownloadsKey] = urls
	i[binary] = entry
}
