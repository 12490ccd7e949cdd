package recovery

import (
	"testing"

	"github.com/nicolas-erasmus/rotse/internal/cmdparam"
	"github.com/nicolas-erasmus/rotse/internal/hwproto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopHalt(hwproto.Axis) error { return nil }

func TestLimitOnlyPushesRetreatShift(t *testing.T) {
	c := &Counters{}
	failed := cmdparam.CommandParam{MoveMode: cmdparam.ModeSlew, StatBits: [2]int{4, 0}}
	out := ClassifyMount(failed, [2]int{4, 0}, c, false, false, noopHalt)
	require.False(t, out.Fatal)
	require.Len(t, out.Pushes, 1)
	assert.Equal(t, cmdparam.ModeShift, out.Pushes[0].MoveMode)
	assert.Equal(t, 1, c.MountRetry)
}

func TestLimitOnlyEscalatesAtMaxRecovery(t *testing.T) {
	c := &Counters{MountRetry: MaxRecovery}
	failed := cmdparam.CommandParam{MoveMode: cmdparam.ModeSlew, StatBits: [2]int{4, 0}}
	out := ClassifyMount(failed, [2]int{4, 0}, c, false, false, noopHalt)
	assert.True(t, out.Fatal)
}

func TestBadSlewClearsStackAndRepushesCommandWithTracker(t *testing.T) {
	c := &Counters{}
	failed := cmdparam.CommandParam{MoveMode: cmdparam.ModeSlew, StatBits: [2]int{0, 0}}
	out := ClassifyMount(failed, [2]int{0, 0}, c, false, false, noopHalt)
	assert.True(t, out.ClearStack)
	require.Len(t, out.Pushes, 2)
	assert.Equal(t, cmdparam.ModeTrack, out.Pushes[0].MoveMode)
	assert.Equal(t, cmdparam.ModeSlew, out.Pushes[1].MoveMode)
	assert.Equal(t, 1, c.MountRetry)
}

func TestHardwareFaultEStopIsFatal(t *testing.T) {
	c := &Counters{}
	failed := cmdparam.CommandParam{MoveMode: cmdparam.ModeHalt, StatBits: [2]int{1, 0}}
	out := ClassifyMount(failed, [2]int{0, 0}, c, false, false, noopHalt)
	assert.True(t, out.Fatal)
}

func TestFocusRecoveryFatalAtMax(t *testing.T) {
	c := &Counters{FocusRetry: MaxFocusRecovery - 1}
	out := ClassifyFocus(c)
	assert.True(t, out.Fatal)
}

func TestCountersReset(t *testing.T) {
	c := &Counters{MountRetry: 2, FocusRetry: 1}
	c.Reset()
	assert.Zero(t, c.MountRetry)
	assert.Zero(t, c.FocusRetry)
}
