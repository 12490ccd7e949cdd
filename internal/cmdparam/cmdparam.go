// Package cmdparam defines the command and status shapes shared by the
// command engine, the recovery state machine and the IPC layer — split
// out from the engine package itself so that the recovery state
// machine (which the engine dispatches into) can describe its inputs
// and outputs in terms of a command without importing the engine's
// tick loop, grounded on the CommandParam/CommandStack shapes around
// mountd_main.c's control loop.
package cmdparam

import (
	"time"

	"github.com/google/uuid"
)

// MoveMode identifies a command's kind. Mount modes are numbered below
// NMount so a simple comparison separates mount from focus dispatch.
type MoveMode int

const (
	ModeIdle MoveMode = iota
	ModeSync
	ModeSlew
	ModeShift
	ModeStow
	ModePark
	ModeStandby
	ModeTrack
	ModeTrackRA
	ModeZeros
	ModeHalt
	ModeInit
	ModeRun

	// NMount separates the mount modes below it from the focus modes above it.
	NMount

	ModeFocusOn
	ModeFocusOff
	ModeFocusSync
	ModeFocusMove
	ModeFocusQuery
	ModeFocusZeros
	ModeFocusInit
)

// IsFocus reports whether a mode dispatches through the focus path.
func (m MoveMode) IsFocus() bool { return m >= NMount }

// ActiveState is a command's position in the activate/poll/complete
// lifecycle.
type ActiveState int

const (
	Inactive ActiveState = iota
	Running
	Complete
)

// Mode bits carried on an incoming command.
const (
	AlertMove = 1 << iota
	AutoFocus
	UserFocus
	OffsetFocus
	RecordVoltage
)

// CommandParam is one entry on the command stack.
type CommandParam struct {
	ID       uuid.UUID // assigned on push, carried through logs for traceability
	MoveMode MoveMode
	RA, Dec  float64 // degrees
	Foc      float64
	SlewSpd  float64 // percent, 0-100
	DecTrack float64
	EncPos   [2]int
	ModeBits int
	StatBits [2]int
	Active   ActiveState
	NoZero   bool
	Temp     float64
}

// MountStatus is published to the IPC sink on each sendstat.
type MountStatus struct {
	StateBits int
	MoveMode  MoveMode
	AlarmType AlarmType
	EncPos    [2]int
	EncRA     int
	EncDec    int
	VRA, VDec float64
	Foc       float64
	SlewSpd   float64
	TrkSpd    float64
	TLast     time.Time
}

// State bits for MountStatus.StateBits.
const (
	StateInit = 1 << iota
	StateMove
	StateAlarm
)

// AlarmType classifies why ALARM was raised, mirroring the original's
// alarm_type enumeration.
type AlarmType int

const (
	AlarmOff AlarmType = iota
	AlarmLimit
	AlarmBadSlew
	AlarmHardwareFault
	AlarmFocus
)

// AxisEvalResult is the outcome of evaluating one tick's paired status1
// reads plus status2 for both axes.
type AxisEvalResult int

const (
	EvalIdle AxisEvalResult = iota
	EvalMoving
	EvalError
	EvalErrorShutdown
)

// CommandSource is polled each tick for an upstream command. Pending
// reports whether a new command has arrived since the last Take.
type CommandSource interface {
	Pending() bool
	Take() CommandParam
}

// StatusSink receives published status. Publish returns false if the
// previous status has not yet been observed (oreq still high); the
// engine treats repeated false returns as grounds for shutdown after
// NROTSETimeoutTicks.
type StatusSink interface {
	Publish(MountStatus) bool
}
