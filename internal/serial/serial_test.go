package serial

import (
	"testing"

	"github.com/nicolas-erasmus/rotse/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCRC16Deterministic(t *testing.T) {
	a := crc16([]byte("$MOVETO,12345"))
	b := crc16([]byte("$MOVETO,12345"))
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, crc16([]byte("$MOVETO,12346")))
}

func TestVerifyMountResponseRoundTrip(t *testing.T) {
	body := "@RAresp,100"
	frame := body + hex4(crc16([]byte(body)))
	got, err := verifyMountResponse(frame)
	require.NoError(t, err)
	assert.Equal(t, body, got)
}

func TestVerifyMountResponseBadCRC(t *testing.T) {
	_, err := verifyMountResponse("@RAresp,100FFFF")
	require.ErrorIs(t, err, ErrBadCRC)
}

func TestCheckEchoRequiresRAAndDec(t *testing.T) {
	require.NoError(t, checkEcho("MOVETORADec", "@RADecOK"))
	require.ErrorIs(t, checkEcho("MOVETORADec", "@DecOK"), ErrEchoMismatch)
	require.ErrorIs(t, checkEcho("MOVETORADec", "@RAOK"), ErrEchoMismatch)
}

func TestOpenMountTestModeBypassesHardware(t *testing.T) {
	cfg := config.New()
	cfg.Testmode = config.TestmodeNoMount
	p, err := OpenMount("/dev/nonexistent", 9600, cfg)
	require.NoError(t, err)
	resp, err := p.SendMount("STATUS1", "")
	require.NoError(t, err)
	assert.Contains(t, resp, "STATUS1")
}

func hex4(v uint16) string {
	const hexdigits = "0123456789ABCDEF"
	return string([]byte{
		hexdigits[(v>>12)&0xF],
		hexdigits[(v>>8)&0xF],
		hexdigits[(v>>4)&0xF],
		hexdigits[v&0xF],
	})
}
