package mailer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlertNoOpWithoutTarget(t *testing.T) {
	Target = ""
	Command = "/bin/false"
	Alert("subject", "body")
	// no panic, no error surfaced: success is simply "did not block"
}

func TestAlertInvokesCommandWithBodyOnStdin(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "out.txt")
	script := filepath.Join(dir, "fakemail.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\ncat > "+outPath+"\n"), 0755))

	Target = "ops@example.com"
	Command = script
	Alert("Mount error", "axis RA hardware fault")

	got, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, "axis RA hardware fault", string(got))
}
