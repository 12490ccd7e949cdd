package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadMinimalConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "mountd.conf", `
latitude 33.0
longitude -110.0
deg2enc 1000 1000
rarange -180 180
decrange -90 90
enctol 5
poll_time 0.5
sample_time 2.0
testmode 3
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, cfg.Deg2Enc[0])
	assert.Equal(t, 5, cfg.EncTol)
	assert.Equal(t, TestmodeNoMount|TestmodeNoFocus, cfg.Testmode)
	assert.False(t, cfg.Synced())
	assert.True(t, math.IsNaN(cfg.ZeroMJD))
}

func TestLoadMissingRequiredFails(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.conf", "loglevel 1\n")
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadMatrixFile(t *testing.T) {
	dir := t.TempDir()
	matPath := writeFile(t, dir, "mat.dat", "0.5 1 0 0 0 1 0 0 0 1\n")
	cfg := New()
	require.NoError(t, loadMatrixFile(matPath, cfg))
	assert.Equal(t, 0.5, cfg.PoleOff)
	assert.Equal(t, [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}, cfg.CooMat)
}

func TestLoadModelFile(t *testing.T) {
	dir := t.TempDir()
	modPath := writeFile(t, dir, "model.dat", "caption\nT 100 2.5 0.1 0.2\n IH        12.300000  0.500000\nEND\n")
	m, err := loadModelFile(modPath)
	require.NoError(t, err)
	assert.Equal(t, byte('T'), m.Method)
	require.Len(t, m.Terms, 1)
	assert.Equal(t, IH, m.Terms[0].Kind)
	assert.InDelta(t, 12.3, m.Terms[0].Value, 1e-9)
}

func TestLoadFocusModelFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "focus.dat", "term 1 100.0\nterm t 0.5\n")
	fm, err := loadFocusModelFile(path)
	require.NoError(t, err)
	require.Len(t, fm.Terms, 2)
	assert.Equal(t, "1", fm.Terms[0].Pattern)
}
