package engine

import (
	"math"
	"testing"

	"github.com/nicolas-erasmus/rotse/internal/calibration"
	"github.com/nicolas-erasmus/rotse/internal/config"
	"github.com/nicolas-erasmus/rotse/internal/coord"
	"github.com/nicolas-erasmus/rotse/internal/hwproto"
	"github.com/nicolas-erasmus/rotse/internal/serial"
	"github.com/nicolas-erasmus/rotse/internal/statfile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testChannel is a minimal CommandSource+StatusSink double, kept local
// to this package rather than reusing internal/ipc's MemChannel: ipc
// imports engine, so a test file inside package engine importing ipc
// back would form a compile-time cycle.
type testChannel struct {
	cmd     CommandParam
	pending bool
}

func (c *testChannel) Submit(cmd CommandParam) {
	c.cmd = cmd
	c.pending = true
}

func (c *testChannel) Pending() bool { return c.pending }

func (c *testChannel) Take() CommandParam {
	c.pending = false
	return c.cmd
}

func (c *testChannel) Publish(MountStatus) bool { return true }

func TestStackPushTopPop(t *testing.T) {
	s := NewStack()
	assert.True(t, s.Empty())

	require.NoError(t, s.Push(CommandParam{MoveMode: ModeSlew}))
	require.NoError(t, s.Push(CommandParam{MoveMode: ModeTrack}))

	top := s.Top()
	require.NotNil(t, top)
	assert.Equal(t, ModeTrack, top.MoveMode)
	assert.Equal(t, 2, s.Len())

	s.Pop()
	top = s.Top()
	require.NotNil(t, top)
	assert.Equal(t, ModeSlew, top.MoveMode)
}

func TestStackPushFullReturnsError(t *testing.T) {
	s := NewStack()
	for i := 0; i < MaxStack; i++ {
		require.NoError(t, s.Push(CommandParam{}))
	}
	assert.ErrorIs(t, s.Push(CommandParam{}), ErrStackFull)
}

func TestStackClearEmpties(t *testing.T) {
	s := NewStack()
	require.NoError(t, s.Push(CommandParam{}))
	s.Clear()
	assert.True(t, s.Empty())
	assert.Nil(t, s.Top())
}

func testConfig(t *testing.T) *config.MountConfig {
	cfg := config.New()
	cfg.Method = config.MethodMatrix
	cfg.Deg2Enc = [2]float64{1000, 1000}
	cfg.RARange = [2]float64{-180, 180}
	cfg.DecRange = [2]float64{-90, 90}
	cfg.StandbyPos = [2]float64{0, 45}
	cfg.StowPos = [2]float64{0, 0}
	cfg.MaxVel = [2]float64{2, 2}
	cfg.SlwAcc = [2]float64{1, 1}
	cfg.HomeVel = [2]float64{1, 1}
	cfg.EncTol = 5
	cfg.FocTol = 0.01
	cfg.SampleTime = 1
	cfg.Latitude = 33 * math.Pi / 180
	cfg.Longitude = -110 * math.Pi / 180
	cfg.CooMat = [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	cfg.Testmode = config.TestmodeNoMount | config.TestmodeNoFocus
	cfg.StatDir = t.TempDir()
	cfg.StatRoot = "test"
	return cfg
}

func testEngine(t *testing.T) (*Engine, *testChannel) {
	cfg := testConfig(t)

	mountPort, err := serial.OpenMount("", 0, cfg)
	require.NoError(t, err)
	focusPort, err := serial.OpenFocus("", 0, cfg)
	require.NoError(t, err)

	mount := hwproto.NewMount(mountPort)
	focus := hwproto.NewFocus(focusPort)

	store := statfile.Open(cfg.StatDir + "/run.fit")
	calib := calibration.New(store, cfg.StatDir+"/focus.dat")

	channel := &testChannel{}
	return New(cfg, mount, focus, channel, channel, calib), channel
}

func TestTickIdleInTestModeIsQuiet(t *testing.T) {
	e, _ := testEngine(t)
	require.NoError(t, e.Tick())
	assert.True(t, e.stack.Empty())
}

func TestTickActivatesSyncCommand(t *testing.T) {
	e, _ := testEngine(t)
	require.NoError(t, e.stack.Push(CommandParam{MoveMode: ModeSync}))

	require.NoError(t, e.Tick())

	assert.Equal(t, [2]int{config.NoZero, config.NoZero}, e.cfg.Zeropt)
}

func TestAcceptUpstreamInsertsZerosBeforeUnsyncedSlew(t *testing.T) {
	e, channel := testEngine(t)
	channel.Submit(CommandParam{MoveMode: ModeSlew, RA: 10, Dec: 20})

	e.acceptUpstream()

	require.Equal(t, 3, e.stack.Len())
	assert.Equal(t, ModeZeros, e.stack.entries[2].MoveMode)
	assert.Equal(t, ModeTrack, e.stack.entries[1].MoveMode)
	assert.Equal(t, ModeSlew, e.stack.entries[0].MoveMode)
}

func TestSlewEncoderTargetMethodNone(t *testing.T) {
	e, _ := testEngine(t)
	e.cfg.Method = config.MethodNone

	cmd := CommandParam{MoveMode: ModeSlew, RA: 180, Dec: 30}
	enc, err := e.slewEncoderTarget(&cmd)
	require.NoError(t, err)

	want, err := coord.ToEnc(180, 30, e.cfg, 0)
	require.NoError(t, err)
	assert.Equal(t, want.Enc, enc)
}

func TestAcceptUpstreamAlertMoveClearsStack(t *testing.T) {
	e, channel := testEngine(t)
	require.NoError(t, e.stack.Push(CommandParam{MoveMode: ModeTrack}))

	channel.Submit(CommandParam{MoveMode: ModeHalt, ModeBits: AlertMove})

	e.acceptUpstream()

	require.Equal(t, 1, e.stack.Len())
	assert.Equal(t, ModeHalt, e.stack.Top().MoveMode)
}
