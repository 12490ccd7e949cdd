package pointing

import (
	"math"
	"testing"

	"github.com/nicolas-erasmus/rotse/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func identityConfig() *config.MountConfig {
	cfg := config.New()
	cfg.Deg2Enc = [2]float64{1000, 1000}
	cfg.RARange = [2]float64{-180, 180}
	cfg.DecRange = [2]float64{-90, 90}
	cfg.Latitude = 33 * math.Pi / 180
	cfg.CooMat = [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	cfg.Zeropt = [2]int{0, 0}
	return cfg
}

func TestMatrixIdentityRoundTrip(t *testing.T) {
	cfg := identityConfig()
	ha := 10 * math.Pi / 180
	dec := 20 * math.Pi / 180

	res, err := Matrix(ha, dec, cfg)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, res.RADeg, 1e-6)
	assert.InDelta(t, 20.0, res.DecDeg, 1e-6)
	assert.Equal(t, int(math.Round(10*1000)), res.Enc[0])
}

func TestMatrixSouthernHemisphereSignFlip(t *testing.T) {
	north := identityConfig()
	south := identityConfig()
	south.Latitude = -33 * math.Pi / 180

	ha := 10 * math.Pi / 180
	dec := 20 * math.Pi / 180

	rn, err := Matrix(ha, dec, north)
	require.NoError(t, err)
	rs, err := Matrix(ha, dec, south)
	require.NoError(t, err)

	assert.InDelta(t, -rn.RADeg, rs.RADeg, 1e-6)
}

func TestMatrixMeridianFlip(t *testing.T) {
	cfg := identityConfig()
	cfg.RARange = [2]float64{-90, 90}
	ha := 170 * math.Pi / 180
	dec := 20 * math.Pi / 180

	res, err := Matrix(ha, dec, cfg)
	require.NoError(t, err)
	assert.LessOrEqual(t, res.RADeg, cfg.RARange[1])
}

func TestTPointAllZeroTermsMatchesNone(t *testing.T) {
	cfg := identityConfig()
	cfg.TPointModel.Method = 'T'
	cfg.TPointModel.Terms = []config.TPointTerm{
		{Kind: config.IH, Value: 0},
		{Kind: config.ID, Value: 0},
	}

	ha := 10 * math.Pi / 180
	dec := 20 * math.Pi / 180

	res, err := TPoint(ha, dec, cfg)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, res.RADeg, 1e-6)
	assert.InDelta(t, 20.0, res.DecDeg, 1e-6)
}

func TestTPointMethodTAcceptsUnconditionally(t *testing.T) {
	cfg := identityConfig()
	cfg.RARange = [2]float64{-10, 10}
	cfg.TPointModel.Method = 'T'
	cfg.TPointModel.Terms = []config.TPointTerm{{Kind: config.IH, Value: 3600 * 50}} // +50 deg

	ha := 10 * math.Pi / 180
	dec := 0.0

	res, err := TPoint(ha, dec, cfg)
	require.NoError(t, err)
	// method 'T' accepts the single pass even though dha (60deg) exceeds rarange[1].
	assert.InDelta(t, 60.0, res.RADeg, 1e-6)
}

func TestAcceptanceNorthernFlippedAttemptAcceptsWithOffset(t *testing.T) {
	cfg := identityConfig()
	cfg.RARange = [2]float64{-90, 90}

	good, dha := acceptance(280, cfg, true, 1)
	require.True(t, good)
	assert.Equal(t, -80.0, dha)
}

func TestAcceptanceNorthernFlippedAttemptRejects(t *testing.T) {
	cfg := identityConfig()
	cfg.RARange = [2]float64{-90, 90}

	good, _ := acceptance(200, cfg, true, 1)
	assert.False(t, good)
}

func TestAcceptanceSouthernFlippedAttemptAcceptsWithOffset(t *testing.T) {
	cfg := identityConfig()
	cfg.Latitude = -33 * math.Pi / 180
	cfg.RARange = [2]float64{-90, 90}

	good, dha := acceptance(-300, cfg, true, 1)
	require.True(t, good)
	assert.Equal(t, 60.0, dha)
}

func TestAcceptanceSouthernFlippedAttemptRejects(t *testing.T) {
	cfg := identityConfig()
	cfg.Latitude = -33 * math.Pi / 180
	cfg.RARange = [2]float64{-90, 90}

	good, _ := acceptance(200, cfg, true, 1)
	assert.False(t, good)
}

func TestTPointMethodSFlippedSecondPassAccepts(t *testing.T) {
	cfg := identityConfig()
	cfg.RARange = [2]float64{-90, 90}
	cfg.TPointModel.Method = 'S'
	cfg.TPointModel.Terms = []config.TPointTerm{{Kind: config.IH, Value: 0}}

	// First pass dha=100 (deg) rejects (>=ramax); the flipped second
	// pass lands at 280, which the compound test accepts with a -360
	// wrap to -80, inside rarange.
	ha := 100 * math.Pi / 180
	dec := 0.0

	res, err := TPoint(ha, dec, cfg)
	require.NoError(t, err)
	assert.InDelta(t, -80.0, res.RADeg, 1e-6)
}

func TestFocusModelConstantTerm(t *testing.T) {
	fm := config.FocusModel{Terms: []config.FocusTerm{{Pattern: "1", Coefficient: 42.0}}}
	v, err := ApplyFocusModel(fm, 0, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 42.0, v)
}

func TestFocusModelTemperatureTerm(t *testing.T) {
	fm := config.FocusModel{Terms: []config.FocusTerm{{Pattern: "t", Coefficient: 2.0}}}
	v, err := ApplyFocusModel(fm, 0, 0, 5.0)
	require.NoError(t, err)
	assert.Equal(t, 10.0, v)
}
