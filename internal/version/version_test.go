package version

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// TestFull_NamesBinaryAndStamp checks the printed stamp carries every build field.
func TestFull_NamesBinaryAndStamp(t *testing.T) {
	t.Parallel()

	full := Full()
	require.True(t, strings.HasPrefix(full, "release-publisher "+Short()+" "), full)
	require.Contains(t, full, "commit "+Commit)
	require.Contains(t, full, "built "+BuildTime)
}

// TestAttachCobraVersionCommand runs the attached subcommand and checks its output.
func TestAttachCobraVersionCommand(t *testing.T) {
	t.Parallel()

	root := &cobra.Command{Use: "release-publisher"}
	AttachCobraVersionCommand(root)

	var out bytes.Buffer

	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	require.Equal(t, Full()+"\n", out.String())
}
