package buildinfo

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPrint_DefaultsAndSet(t *testing.T) {
	ov, od, oc := BuildVersion, BuildDate, BuildCommit
	t.Cleanup(func() { BuildVersion, BuildDate, BuildCommit = ov, od, oc })

	var buf bytes.Buffer
	BuildVersion, BuildDate, BuildCommit = "", "", ""
	Print(&buf, "ping")
	require.Equal(t, "ping\nBuild version: N/A\nBuild date: N/A\nBuild commit: N/A\n", buf.String())

	buf.Reset()
	BuildVersion, BuildDate, BuildCommit = "v1", "2025-09-06", "deadbeef"
	Print(&buf, "ping")
	require.Contains(t, buf.String(), "Build version: v1\n")
	require.Contains(t, buf.String(), "Build commit: deadbeef\n")
}
