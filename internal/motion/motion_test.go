package motion

import (
	"math"
	"testing"

	"github.com/nicolas-erasmus/rotse/internal/config"
	"github.com/nicolas-erasmus/rotse/internal/hwproto"
	"github.com/nicolas-erasmus/rotse/internal/serial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testController(t *testing.T) (*Controller, *config.MountConfig) {
	t.Helper()
	cfg := config.New()
	cfg.Testmode = config.TestmodeNoMount | config.TestmodeNoFocus
	cfg.Deg2Enc = [2]float64{1000, 1000}
	cfg.RARange = [2]float64{-180, 180}
	cfg.DecRange = [2]float64{-90, 90}
	cfg.MaxVel = [2]float64{5, 5}
	cfg.HomeVel = [2]float64{1, 1}
	cfg.SlwAcc = [2]float64{1, 1}
	cfg.Zeropt = [2]int{0, 0}
	cfg.StandbyPos = [2]float64{0, 45}

	mp, err := serial.OpenMount("/dev/nonexistent", 9600, cfg)
	require.NoError(t, err)
	fp, err := serial.OpenFocus("/dev/nonexistent", 9600, cfg)
	require.NoError(t, err)

	return New(hwproto.NewMount(mp), hwproto.NewFocus(fp), cfg), cfg
}

func TestInitMountSucceedsInTestMode(t *testing.T) {
	c, _ := testController(t)
	require.NoError(t, c.InitMount())
}

func TestMoveToRejectsOutOfRange(t *testing.T) {
	c, cfg := testController(t)
	outOfRange := int(math.Round((cfg.RARange[1]+10)*cfg.Deg2Enc[0])) + cfg.Zeropt[0]
	err := c.MoveTo([2]int{outOfRange, 0}, [2]float64{1, 1}, false)
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestMoveToAcceptsInRangeTarget(t *testing.T) {
	c, _ := testController(t)
	require.NoError(t, c.MoveTo([2]int{0, 0}, [2]float64{1, 1}, true))
}

func TestSyncClearsZeropt(t *testing.T) {
	c, cfg := testController(t)
	cfg.Zeropt = [2]int{42, 42}
	require.NoError(t, c.Sync())
	assert.Equal(t, config.NoZero, cfg.Zeropt[0])
	assert.True(t, math.IsNaN(cfg.ZeroMJD))
}

func TestTrackRASiderealSucceedsBothHemispheres(t *testing.T) {
	cN, cfgN := testController(t)
	cfgN.Latitude = 33 * math.Pi / 180
	require.NoError(t, cN.TrackRASidereal())

	cS, cfgS := testController(t)
	cfgS.Latitude = -33 * math.Pi / 180
	require.NoError(t, cS.TrackRASidereal())
}
