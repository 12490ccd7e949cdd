package calibration

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/nicolas-erasmus/rotse/internal/config"
	"github.com/nicolas-erasmus/rotse/internal/statfile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.MountConfig {
	cfg := config.New()
	cfg.Method = config.MethodMatrix
	cfg.Deg2Enc = [2]float64{1000, 1000}
	cfg.RARange = [2]float64{-180, 180}
	cfg.DecRange = [2]float64{-90, 90}
	cfg.Latitude = 33 * math.Pi / 180
	cfg.Longitude = -110 * math.Pi / 180
	cfg.CooMat = [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	cfg.Zeropt = [2]int{0, 0}
	return cfg
}

func TestPollPointingSkippedWhenUnsynced(t *testing.T) {
	dir := t.TempDir()
	store := statfile.Open(filepath.Join(dir, "run.fit"))
	loop := New(store, filepath.Join(dir, "focus.dat"))

	cfg := testConfig()
	applied, err := loop.PollPointing(cfg, 61000.0)
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestPollFocusSkippedWithoutFile(t *testing.T) {
	dir := t.TempDir()
	store := statfile.Open(filepath.Join(dir, "run.fit"))
	loop := New(store, filepath.Join(dir, "nonexistent.dat"))

	cfg := testConfig()
	applied, err := loop.PollFocus(cfg)
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestPollFocusAppliesDeltaToConstantTerm(t *testing.T) {
	dir := t.TempDir()
	focusPath := filepath.Join(dir, "focus.dat")
	require.NoError(t, os.WriteFile(focusPath, []byte("61000.0 105.0 0.1 1.2 10.0 45.0 20.0 5.0\n"), 0644))

	store := statfile.Open(filepath.Join(dir, "run.fit"))
	loop := New(store, focusPath)

	cfg := testConfig()
	cfg.FocusModel.Terms = []config.FocusTerm{{Pattern: "1", Coefficient: 100.0}}

	applied, err := loop.PollFocus(cfg)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.InDelta(t, 105.0, cfg.FocusModel.Terms[0].Coefficient, 1e-9)
}
