package release

import (
	"errors"
	"fmt"
	"strings"
)

// Target is a compile target triple such as "x86_64-unknown-linux-gnu".
type Target string

// Architecture is the leading component of a target triple, e.g. "x86_64".
// It names the remote path segment and the manifest downloads key.
type Architecture string

// tripleSeparator splits the components of a target triple.
const tripleSeparator = "-"

var (
	// ErrInvalidTarget is returned for target triples without an architecture.
	ErrInvalidTarget = errors.New("invalid target triple")
	// ErrDuplicateTarget is returned when a target appears twice.
	ErrDuplicateTarget = errors.New("duplicate target triple")
	// ErrArchitectureClash is returned when two targets share an architecture,
	// since both would upload to the same remote prefix.
	ErrArchitectureClash = errors.New("targets share an architecture")
)

// DefaultTargets returns the triples published when nothing else is configured.
func DefaultTargets() []Target {
	return []Target{
		"x86_64-unknown-linux-gnu",
		"aarch64-unknown-linux-gnu",
	}
}

// Architecture returns the substring before the first separator.
// A triple without a separator is its own architecture.
func (t Target) Architecture() Architecture {
	arch, _, _ := strings.Cut(string(t), tripleSeparator)

	return Architecture(arch)
}

// String implements fmt.Stringer.
func (t Target) String() string {
	return string(t)
}

// Validate reports whether the triple yields a usable architecture.
func (t Target) Validate() error {
	trimmed := strings.TrimSpace(string(t))
	if trimmed == "" || trimmed != string(t) || strings.ContainsAny(trimmed, " \t/") {
		return fmt.Errorf("%q: %w", string(t), ErrInvalidTarget)
	}

	if t.Architecture() == "" {
		return fmt.Errorf("%q: %w", string(t), ErrInvalidTarget)
	}

	return nil
}

// ParseTargets converts raw triples into targets, keeping their order.
// Every triple must be valid and map to its own architecture.
func ParseTargets(raw []string) ([]Target, error) {
	targets := make([]Target, 0, len(raw))
	seen := make(map[Target]struct{}, len(raw))
	owners := make(map[Architecture]Target, len(raw))

	for _, value := range raw {
		target := Target(value)
		if err := target.Validate(); err != nil {
			return nil, err
		}

		if _, ok := seen[target]; ok {
			return nil, fmt.Errorf("%q: %w", value, ErrDuplicateTarget)
		}

		arch := target.Architecture()
		if owner, ok := owners[arch]; ok {
			return nil, fmt.Errorf("%q and %q: %w", owner, value, ErrArchitectureClash)
		}

		seen[target] = struct{}{}
		owners[arch] = target
		targets = append(targets, target)
	}

	return targets, nil
}
