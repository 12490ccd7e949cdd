// Package engine implements the command stack and the single-threaded
// cooperative tick loop that activates, polls and completes mount and
// focus commands, grounded on mountd_main.c's control loop and the
// CommandParam/CommandStack shapes described around it.
package engine

import "github.com/nicolas-erasmus/rotse/internal/cmdparam"

// The command/status vocabulary lives in cmdparam so that the recovery
// state machine can speak it without importing the engine's tick loop;
// these aliases let the engine refer to it by its own short names.
type (
	MoveMode       = cmdparam.MoveMode
	ActiveState    = cmdparam.ActiveState
	CommandParam   = cmdparam.CommandParam
	MountStatus    = cmdparam.MountStatus
	AlarmType      = cmdparam.AlarmType
	AxisEvalResult = cmdparam.AxisEvalResult
	CommandSource  = cmdparam.CommandSource
	StatusSink     = cmdparam.StatusSink
)

const (
	ModeIdle      = cmdparam.ModeIdle
	ModeSync      = cmdparam.ModeSync
	ModeSlew      = cmdparam.ModeSlew
	ModeShift     = cmdparam.ModeShift
	ModeStow      = cmdparam.ModeStow
	ModePark      = cmdparam.ModePark
	ModeStandby   = cmdparam.ModeStandby
	ModeTrack     = cmdparam.ModeTrack
	ModeTrackRA   = cmdparam.ModeTrackRA
	ModeZeros     = cmdparam.ModeZeros
	ModeHalt      = cmdparam.ModeHalt
	ModeInit      = cmdparam.ModeInit
	ModeRun       = cmdparam.ModeRun
	NMount        = cmdparam.NMount
	ModeFocusOn   = cmdparam.ModeFocusOn
	ModeFocusOff  = cmdparam.ModeFocusOff
	ModeFocusSync = cmdparam.ModeFocusSync
	ModeFocusMove = cmdparam.ModeFocusMove
	ModeFocusQuery = cmdparam.ModeFocusQuery
	ModeFocusZeros = cmdparam.ModeFocusZeros
	ModeFocusInit  = cmdparam.ModeFocusInit

	Inactive = cmdparam.Inactive
	Running  = cmdparam.Running
	Complete = cmdparam.Complete

	AlertMove     = cmdparam.AlertMove
	AutoFocus     = cmdparam.AutoFocus
	UserFocus     = cmdparam.UserFocus
	OffsetFocus   = cmdparam.OffsetFocus
	RecordVoltage = cmdparam.RecordVoltage

	StateInit  = cmdparam.StateInit
	StateMove  = cmdparam.StateMove
	StateAlarm = cmdparam.StateAlarm

	AlarmOff           = cmdparam.AlarmOff
	AlarmLimit         = cmdparam.AlarmLimit
	AlarmBadSlew       = cmdparam.AlarmBadSlew
	AlarmHardwareFault = cmdparam.AlarmHardwareFault
	AlarmFocus         = cmdparam.AlarmFocus

	EvalIdle          = cmdparam.EvalIdle
	EvalMoving        = cmdparam.EvalMoving
	EvalError         = cmdparam.EvalError
	EvalErrorShutdown = cmdparam.EvalErrorShutdown
)
