package rlog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenWritesAndGates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mountd.log")

	require.NoError(t, Open(path))
	defer Close()

	SetLevel(Verbose)
	Log(Terse, "init complete")
	Log(Debug, "this is gated out")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "init complete")
	require.NotContains(t, string(data), "gated out")
}

func TestLogtStampsElapsed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mountd.log")
	require.NoError(t, Open(path))
	defer Close()

	SetLevel(Debug)
	Logt(Debug, "tick %d", 1)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "tick 1")
}
