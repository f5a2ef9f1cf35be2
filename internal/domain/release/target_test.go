package release

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestTarget_Architecture checks the architecture is the part before the first separator.
func TestTarget_Architecture(t *testing.T) {
	t.Parallel()

	cases := map[Target]Architecture{
		"x86_64-unknown-linux-gnu":      "x86_64",
		"aarch64-unknown-linux-gnu":     "aarch64",
		"wasm32":                        "wasm32",
		"armv7-unknown-linux-gnueabihf": "armv7",
	}
	for target, want := range cases {
		require.Equal(t, want, target.Architecture(), string(target))
	}
}

// TestTarget_Validate rejects triples that cannot name a remote prefix.
func TestTarget_Validate(t *testing.T) {
	t.Parallel()

	for _, bad := range []Target{"", "-unknown-linux-gnu", " x86_64-linux", "x86_64/linux"} {
		require.ErrorIs(t, bad.Validate(), ErrInvalidTarget, string(bad))
	}

	require.NoError(t, Target("x86_64-unknown-linux-gnu").Validate())
}

// TestParseTargets keeps order and rejects duplicates and clashing architectures.
func TestParseTargets(t *testing.T) {
	t.Parallel()

	targets, err := ParseTargets([]string{"aarch64-unknown-linux-gnu", "x86_64-unknown-linux-gnu"})
	require.NoError(t, err)
	require.Equal(t, []Target{"aarch64-unknown-linux-gnu", "x86_64-unknown-linux-gnu"}, targets)

	_, err = ParseTargets([]string{"x86_64-unknown-linux-gnu", "x86_64-unknown-linux-gnu"})
	require.ErrorIs(t, err, ErrDuplicateTarget)

	_, err = ParseTargets([]string{"x86_64-unknown-linux-gnu", "x86_64-unknown-linux-musl"})
	require.ErrorIs(t, err, ErrArchitectureClash)

	_, err = ParseTargets([]string{""})
	require.ErrorIs(t, err, ErrInvalidTarget)
}

// TestDefaultTargets ensures the default set parses cleanly.
func TestDefaultTargets(t *testing.T) {
	t.Parallel()

	raw := make([]string, 0, len(DefaultTargets()))
	for _, target := range DefaultTargets() {
		raw = append(raw, target.String())
	}

	_, err := ParseTargets(raw)
	require.NoError(t, err)
}
