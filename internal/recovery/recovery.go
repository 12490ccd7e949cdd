// Package recovery implements the multi-level error-recovery state
// machine: limit-only back-out, bad-slew resend, and hardware-fault
// escalation, grounded on the priority-ordered fault classification in
// mount_comm.c's evalstat and the recovery dispatch surrounding it in
// mountd_main.c.
package recovery

import (
	"time"

	"github.com/nicolas-erasmus/rotse/internal/cmdparam"
	"github.com/nicolas-erasmus/rotse/internal/hwproto"
	"github.com/nicolas-erasmus/rotse/internal/mailer"
	"github.com/nicolas-erasmus/rotse/internal/rlog"
)

// MaxRecovery bounds mount recovery attempts before a fatal shutdown.
const MaxRecovery = 3

// MaxFocusRecovery bounds focus recovery attempts before a fatal
// shutdown.
const MaxFocusRecovery = 3

// RetreatDeg is the back-out distance used for a limit-only recovery.
const RetreatDeg = 2.0

// RetreatSlewSpd is the slew speed percentage used for the retreat
// move.
const RetreatSlewSpd = 10.0

// Counters tracks mount and focus recovery attempt counts.
type Counters struct {
	MountRetry int
	FocusRetry int
}

// Reset clears both counters after a successful move.
func (c *Counters) Reset() {
	c.MountRetry = 0
	c.FocusRetry = 0
}

// Outcome is what the recovery classifier decided to do.
type Outcome struct {
	Fatal      bool
	ZAlarm     bool // benign re-move, suppress the user-visible ALARM bit
	RaiseAlarm bool
	ClearStack bool // drop everything below Pushes rather than just the failed top
	Pushes     []cmdparam.CommandParam
}

// ClassifyMount runs the priority-ordered classification of §4.8 over
// a failed command's status bits.
func ClassifyMount(failed cmdparam.CommandParam, limitStatus [2]int, counters *Counters, mountRun, estab bool, halt func(hwproto.Axis) error) Outcome {
	if counters.MountRetry >= MaxRecovery {
		return Outcome{Fatal: true}
	}

	if isLimitOnly(failed.StatBits, limitStatus) {
		return classifyLimitOnly(failed, limitStatus, counters)
	}

	if isBadSlew(failed) {
		counters.MountRetry++
		return Outcome{
			ZAlarm:     true,
			ClearStack: true,
			Pushes:     []cmdparam.CommandParam{{MoveMode: cmdparam.ModeTrack}, failed},
		}
	}

	return classifyHardwareFault(failed, counters, mountRun, estab, halt)
}

func isLimitOnly(statBits, limitStatus [2]int) bool {
	if limitStatus[0] == 0 && limitStatus[1] == 0 {
		return false
	}
	return statBits[0] == limitStatus[0] && statBits[1] == limitStatus[1]
}

func classifyLimitOnly(failed cmdparam.CommandParam, limitStatus [2]int, counters *Counters) Outcome {
	if counters.MountRetry >= MaxRecovery {
		return Outcome{Fatal: true}
	}
	delta := -RetreatDeg
	if limitStatus[0] < 0 || limitStatus[1] < 0 {
		delta = RetreatDeg
	}
	counters.MountRetry++
	shift := cmdparam.CommandParam{
		MoveMode: cmdparam.ModeShift,
		RA:       delta,
		SlewSpd:  RetreatSlewSpd,
	}
	return Outcome{ZAlarm: true, Pushes: []cmdparam.CommandParam{shift}}
}

func isBadSlew(failed cmdparam.CommandParam) bool {
	allZero := failed.StatBits[0] == 0 && failed.StatBits[1] == 0
	return allZero && (failed.MoveMode == cmdparam.ModeSlew || failed.MoveMode == cmdparam.ModeShift)
}

func classifyHardwareFault(failed cmdparam.CommandParam, counters *Counters, mountRun, estab bool, halt func(hwproto.Axis) error) Outcome {
	if hasEStop(failed.StatBits) {
		return Outcome{Fatal: true}
	}

	rlog.Log(rlog.Terse, "recovery: hardware fault statbits=%v, halting and waiting 3s", failed.StatBits)
	if halt != nil {
		_ = halt(hwproto.RA)
		_ = halt(hwproto.Dec)
	}
	time.Sleep(3 * time.Second)

	counters.MountRetry++
	mailer.Alert("mount hardware fault", "mount reported a hardware fault, attempting recovery")

	var pushes []cmdparam.CommandParam
	if mountRun && estab {
		pushes = []cmdparam.CommandParam{
			{MoveMode: cmdparam.ModeInit},
			{MoveMode: cmdparam.ModeRun},
		}
	} else {
		pushes = []cmdparam.CommandParam{
			{MoveMode: cmdparam.ModeSync},
			{MoveMode: cmdparam.ModeZeros},
		}
	}

	if counters.MountRetry >= MaxRecovery {
		return Outcome{Fatal: true}
	}
	return Outcome{RaiseAlarm: true, Pushes: pushes}
}

func hasEStop(statBits [2]int) bool {
	const eStopBit = 1 << 0
	return statBits[0]&eStopBit != 0 || statBits[1]&eStopBit != 0
}

// ClassifyFocus handles any focus error: clear the stack, push
// FOCUS_INIT, and go fatal once the retry count reaches MaxFocusRecovery.
func ClassifyFocus(counters *Counters) Outcome {
	counters.FocusRetry++
	if counters.FocusRetry >= MaxFocusRecovery {
		return Outcome{Fatal: true}
	}
	return Outcome{
		RaiseAlarm: true,
		ClearStack: true,
		Pushes:     []cmdparam.CommandParam{{MoveMode: cmdparam.ModeFocusInit}},
	}
}
