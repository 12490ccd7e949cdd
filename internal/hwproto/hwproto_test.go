package hwproto

import (
	"testing"

	"github.com/nicolas-erasmus/rotse/internal/config"
	"github.com/nicolas-erasmus/rotse/internal/serial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMount(t *testing.T) *Mount {
	t.Helper()
	cfg := config.New()
	cfg.Testmode = config.TestmodeNoMount
	p, err := serial.OpenMount("/dev/nonexistent", 9600, cfg)
	require.NoError(t, err)
	return NewMount(p)
}

func TestStatus1ReturnsZeroedAxesInTestMode(t *testing.T) {
	m := testMount(t)
	cmdPos, actPos, err := m.Status1(RA)
	require.NoError(t, err)
	assert.Equal(t, 0, cmdPos)
	assert.Equal(t, 0, actPos)
}

func TestStatus2DecodesNoFaultsInTestMode(t *testing.T) {
	m := testMount(t)
	bits, err := m.Status2(Dec)
	require.NoError(t, err)
	assert.False(t, bits.Any())
}

func TestStopConfirmsNoFaultBits(t *testing.T) {
	m := testMount(t)
	require.NoError(t, m.Stop(RA))
}

func TestAxisSuffixes(t *testing.T) {
	assert.Equal(t, "RA", RA.suffix())
	assert.Equal(t, "Dec", Dec.suffix())
}
