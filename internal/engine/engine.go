package engine

import (
	"math"
	"strings"
	"time"

	"github.com/nicolas-erasmus/rotse/internal/astro"
	"github.com/nicolas-erasmus/rotse/internal/calibration"
	"github.com/nicolas-erasmus/rotse/internal/config"
	"github.com/nicolas-erasmus/rotse/internal/coord"
	"github.com/nicolas-erasmus/rotse/internal/hwproto"
	"github.com/nicolas-erasmus/rotse/internal/motion"
	"github.com/nicolas-erasmus/rotse/internal/pointing"
	"github.com/nicolas-erasmus/rotse/internal/recovery"
	"github.com/nicolas-erasmus/rotse/internal/rlog"
)

// MaxStopCount bounds how many consecutive off-target polls are
// tolerated before a running SLEW/SHIFT is declared a bad slew.
const MaxStopCount = 5

// NROTSETimeoutTicks is the number of consecutive ignored status
// publications that trigger shutdown for IPC-consumer absence.
const NROTSETimeoutTicks = 30

// Shutdown is returned by Tick when the engine has decided to exit;
// the process shell (A2) is responsible for the actual process exit.
type Shutdown struct {
	Reason string
	Fatal  bool
}

func (s *Shutdown) Error() string { return s.Reason }

// Engine runs the single-threaded cooperative tick loop of §4.7.
type Engine struct {
	cfg    *config.MountConfig
	stack  *Stack
	mount  *hwproto.Mount
	focus  *hwproto.Focus
	motion *motion.Controller

	src  CommandSource
	sink StatusSink

	calib *calibration.Loop

	counters    recovery.Counters
	limitStatus [2]int
	stopCount   [2]int
	focStopCount int
	estab       bool

	lastPublish time.Time
	lastOffset  time.Time
	lastFocusOffset time.Time

	status MountStatus

	resetPending bool
	alertMoveSeen bool
}

// New builds an Engine over the already-open hardware handles and
// configuration.
func New(cfg *config.MountConfig, mount *hwproto.Mount, focus *hwproto.Focus, src CommandSource, sink StatusSink, calib *calibration.Loop) *Engine {
	return &Engine{
		cfg:    cfg,
		stack:  NewStack(),
		mount:  mount,
		focus:  focus,
		motion: motion.New(mount, focus, cfg),
		src:    src,
		sink:   sink,
		calib:  calib,
	}
}

// Reset records an asynchronous SIG_ROTSE signal for the next tick to
// handle.
func (e *Engine) Reset() { e.resetPending = true }

// Submit pushes cmd directly onto the command stack, bypassing the
// upstream IPC source; the process shell uses this to issue the
// startup INIT and the pre-exit STOW.
func (e *Engine) Submit(cmd CommandParam) error { return e.stack.Push(cmd) }

// Idle reports whether the command stack is empty, meaning no move is
// in progress.
func (e *Engine) Idle() bool { return e.stack.Empty() }

// Tick runs one iteration of the main loop. A non-nil *Shutdown
// return means the process shell must exit (code 1 if Fatal).
func (e *Engine) Tick() error {
	if e.resetPending {
		e.handleReset()
	}

	if err := e.advanceStack(); err != nil {
		return err
	}

	evalResult := e.pollStatus()
	if err := e.handleEval(evalResult); err != nil {
		return err
	}

	e.pollFocus()

	e.acceptUpstream()

	e.publishStatus()
	if sink, ok := e.sink.(interface{ ConsumerAbsent(int) bool }); ok && sink.ConsumerAbsent(NROTSETimeoutTicks) {
		return &Shutdown{Reason: "ipc consumer absent", Fatal: true}
	}

	e.runCalibration()

	return nil
}

// advanceStack implements step 1: activate/poll/complete dispatch on
// the top of the stack.
func (e *Engine) advanceStack() error {
	top := e.stack.Top()
	if top == nil {
		return nil
	}

	switch top.Active {
	case Inactive:
		if err := e.activate(top); err != nil {
			return err
		}
		top.Active = Running
	case Running:
		e.status.MoveMode = top.MoveMode
	case Complete:
		if !top.NoZero {
			e.status.StateBits &^= StateMove
		}
		switch top.MoveMode {
		case ModeInit:
			e.status.StateBits &^= StateInit
		case ModeZeros, ModeRun:
			e.status.StateBits &^= StateAlarm
			e.status.AlarmType = AlarmOff
		}
		e.stack.Pop()
	}
	return nil
}

func (e *Engine) activate(cmd *CommandParam) error {
	rlog.Log(rlog.Verbose, "engine: activating %s move_mode=%d", cmd.ID, cmd.MoveMode)
	if cmd.MoveMode == ModeSync {
		e.estab = false
	}
	if cmd.MoveMode < NMount {
		e.status.StateBits |= StateMove
	}

	switch cmd.MoveMode {
	case ModeSync:
		return e.motion.Sync()
	case ModeZeros:
		e.cfg.Zeropt = [2]int{0, 0}
		e.cfg.ZeroMJD = astro.NowUTCMJD()
		e.estab = true
		return nil
	case ModeStandby:
		return e.motion.Standby()
	case ModeStow:
		return e.motion.Stow()
	case ModePark:
		if err := e.motion.Stow(); err != nil {
			return err
		}
		return e.focus.Off()
	case ModeTrackRA:
		return e.motion.TrackRASidereal()
	case ModeSlew, ModeShift:
		enc, err := e.slewEncoderTarget(cmd)
		if err != nil {
			return err
		}
		cmd.EncPos = enc
		return e.motion.MoveTo(enc, [2]float64{velPercent(cmd.SlewSpd, e.cfg.MaxVel[0]), velPercent(cmd.SlewSpd, e.cfg.MaxVel[1])}, true)
	case ModeInit:
		return e.motion.InitMount()
	case ModeRun:
		if err := e.mount.Run(hwproto.RA); err != nil {
			return err
		}
		return e.mount.Run(hwproto.Dec)
	case ModeHalt:
		if err := e.mount.Halt(hwproto.RA); err != nil {
			return err
		}
		return e.mount.Halt(hwproto.Dec)
	case ModeFocusOn:
		return e.focus.On()
	case ModeFocusOff:
		return e.focus.Off()
	case ModeFocusSync:
		return e.focus.Sync()
	case ModeFocusMove:
		return e.focus.SetPos(int(cmd.Foc))
	case ModeFocusZeros:
		return e.focus.Zero()
	case ModeFocusInit:
		return e.focus.On()
	}
	return nil
}

func velPercent(pct, maxVel float64) float64 {
	return maxVel * pct / 100.0
}

// slewEncoderTarget resolves a catalog ra/dec command into an encoder
// target, applying the tracking-over-limit guard of §4.7 step 5.
func (e *Engine) slewEncoderTarget(cmd *CommandParam) ([2]int, error) {
	if cmd.MoveMode == ModeShift {
		top := e.stack.Top()
		enc := e.status.EncPos
		if top != nil {
			enc = top.EncPos
		}
		return coord.ShiftDelta(cmd.RA, cmd.Dec, enc, e.cfg), nil
	}

	now, err := coord.ToEnc(cmd.RA, cmd.Dec, e.cfg, 0)
	if err != nil {
		return [2]int{}, err
	}
	future, err := coord.ToEnc(cmd.RA, cmd.Dec, e.cfg, 60.0/86400.0)
	if err != nil {
		return [2]int{}, err
	}

	const overLimitCounts = 10.0
	if math.Abs(float64(future.Enc[0]-now.Enc[0])) > overLimitCounts*e.cfg.Deg2Enc[0] ||
		math.Abs(float64(future.Enc[1]-now.Enc[1])) > overLimitCounts*e.cfg.Deg2Enc[1] {
		standby, err := coord.ToEnc(e.cfg.StandbyPos[0], e.cfg.StandbyPos[1], e.cfg, 0)
		if err != nil {
			return [2]int{}, err
		}
		return standby.Enc, nil
	}

	return now.Enc, nil
}

// pollStatus implements step 2: query status1 twice per axis with
// status2/status3 interleaved, then evaluate.
func (e *Engine) pollStatus() AxisEvalResult {
	var cmdPos1, actPos1, cmdPos2, actPos2 [2]int
	for _, axis := range []hwproto.Axis{hwproto.RA, hwproto.Dec} {
		c, a, err := e.mount.Status1(axis)
		if err != nil {
			rlog.Log(rlog.Terse, "engine: status1 axis %v: %v", axis, err)
			return EvalError
		}
		cmdPos1[axis], actPos1[axis] = c, a
	}

	var bits [2]hwproto.AxisStatusBits
	for _, axis := range []hwproto.Axis{hwproto.RA, hwproto.Dec} {
		b, err := e.mount.Status2(axis)
		if err != nil {
			return EvalError
		}
		bits[axis] = b
	}
	for _, axis := range []hwproto.Axis{hwproto.RA, hwproto.Dec} {
		if _, _, err := e.mount.Status3(axis); err != nil {
			return EvalError
		}
	}

	for _, axis := range []hwproto.Axis{hwproto.RA, hwproto.Dec} {
		c, a, err := e.mount.Status1(axis)
		if err != nil {
			return EvalError
		}
		cmdPos2[axis], actPos2[axis] = c, a
	}

	e.status.EncPos = [2]int{actPos2[0], actPos2[1]}
	e.status.EncRA = actPos2[0]
	e.status.EncDec = actPos2[1]

	if bits[0].EStop || bits[1].EStop {
		return EvalErrorShutdown
	}

	fault, err := e.mount.LastFault()
	if err == nil && containsHighOutput(fault) {
		return EvalErrorShutdown
	}

	anyFault := false
	for axis, b := range bits {
		if b.PosLim || b.NegLim {
			if e.stack.Top() == nil || e.stack.Top().MoveMode != ModeSync {
				e.limitStatus[axis] = limitSign(b)
				anyFault = true
			}
		}
		if b.AmpDisabled || b.BrakeOn {
			anyFault = true
		}
	}
	if anyFault {
		return EvalError
	}

	moving := cmdPos1 != cmdPos2
	top := e.stack.Top()
	for axis := 0; axis < 2; axis++ {
		if moving {
			e.stopCount[axis] = 0
			continue
		}
		if top != nil && top.Active == Running && (top.MoveMode == ModeSlew || top.MoveMode == ModeShift) {
			if abs(actPos2[axis]-top.EncPos[axis]) > e.cfg.EncTol {
				e.stopCount[axis]++
				if e.stopCount[axis] >= MaxStopCount {
					return EvalError
				}
			}
		}
	}
	if moving {
		return EvalMoving
	}
	return EvalIdle
}

func containsHighOutput(fault string) bool {
	return strings.Contains(fault, "High Output I^2")
}

func limitSign(b hwproto.AxisStatusBits) int {
	if b.PosLim {
		return 1
	}
	return -1
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// handleEval implements step 3: dispatch on the poll's classification.
func (e *Engine) handleEval(result AxisEvalResult) error {
	top := e.stack.Top()

	switch result {
	case EvalIdle:
		if top != nil && top.Active == Running {
			top.Active = Complete
			if e.counters.MountRetry > 0 && (top.MoveMode == ModeSlew || top.MoveMode == ModeShift) {
				e.counters.MountRetry--
			}
		}
	case EvalError:
		if top == nil {
			return nil
		}
		rlog.Log(rlog.Terse, "engine: %s failed, entering recovery", top.ID)
		out := recovery.ClassifyMount(*top, e.limitStatus, &e.counters, e.cfg.MountRun, e.estab, e.mount.Halt)
		if out.Fatal {
			return &Shutdown{Reason: "mount recovery exhausted", Fatal: true}
		}
		if !out.ZAlarm {
			e.status.StateBits |= StateAlarm
		}
		if out.ClearStack {
			e.stack.Clear()
		} else {
			e.stack.Pop()
		}
		for _, p := range out.Pushes {
			_ = e.stack.Push(p)
		}
	case EvalErrorShutdown:
		return &Shutdown{Reason: "hardware fault (E_STOP or high output current)", Fatal: true}
	}
	return nil
}

// pollFocus implements step 4: focus motor/position poll and off-target
// classification.
func (e *Engine) pollFocus() {
	on, err := e.focus.QueryMotor()
	if err != nil || !on {
		return
	}
	p1, err := e.focus.QueryPos()
	if err != nil {
		return
	}
	time.Sleep(50 * time.Millisecond)
	p2, err := e.focus.QueryPos()
	if err != nil {
		return
	}
	e.status.Foc = p2

	top := e.stack.Top()
	if top == nil || top.Active != Running || top.MoveMode != ModeFocusMove {
		e.focStopCount = 0
		return
	}
	if p1 == p2 {
		if math.Abs(p2-top.Foc) > e.cfg.FocTol {
			e.focStopCount++
			if e.focStopCount >= MaxStopCount {
				top.Active = Complete
				e.focStopCount = 0
				rlog.Log(rlog.Terse, "engine: focus move settled off target, forcing complete")
			}
		} else {
			top.Active = Complete
		}
	}
}

// acceptUpstream implements step 5: consume a pending command and
// insert the ZEROS/FOCUS_MOVE/TRACK wrapper commands it requires.
func (e *Engine) acceptUpstream() {
	if !e.src.Pending() {
		return
	}
	cmd := e.src.Take()

	if cmd.ModeBits&AlertMove != 0 {
		e.stack.Clear()
		e.alertMoveSeen = true
	}

	if (cmd.MoveMode == ModeSlew || cmd.MoveMode == ModeSync) && !e.cfg.Synced() {
		_ = e.stack.Push(CommandParam{MoveMode: ModeZeros})
	}

	if cmd.MoveMode == ModeSlew && cmd.ModeBits&(AutoFocus|UserFocus|OffsetFocus) != 0 {
		focusTarget := e.resolveFocusTarget(cmd)
		_ = e.stack.Push(CommandParam{MoveMode: ModeFocusMove, Foc: focusTarget})
	}

	if cmd.MoveMode == ModeSlew {
		_ = e.stack.Push(CommandParam{MoveMode: ModeTrack})
		cmd.NoZero = true
	}

	_ = e.stack.Push(cmd)
}

func (e *Engine) resolveFocusTarget(cmd CommandParam) float64 {
	ha := astro.RangePi(astro.LMST(astro.NowUTCMJD(), e.cfg.Longitude) - cmd.RA*astro.Deg2Rad)
	auto, err := pointing.CalcFocus(ha, cmd.Dec*astro.Deg2Rad, cmd.Temp, e.cfg)
	if err != nil {
		auto = 0
	}
	switch {
	case cmd.ModeBits&AutoFocus != 0:
		return auto
	case cmd.ModeBits&UserFocus != 0:
		return cmd.Foc
	case cmd.ModeBits&OffsetFocus != 0:
		return auto + cmd.Foc
	}
	return cmd.Foc
}

// publishStatus implements step 6: publish to the IPC sink on the
// sample_time cadence.
func (e *Engine) publishStatus() {
	now := time.Now()
	if now.Sub(e.lastPublish) < time.Duration(e.cfg.SampleTime*float64(time.Second)) {
		return
	}
	e.status.TLast = now
	if e.sink.Publish(e.status) {
		e.lastPublish = now
	}
}

// runCalibration implements step 7: the slow-cadence pointing and
// focus recalibration feeds.
func (e *Engine) runCalibration() {
	if e.calib == nil {
		return
	}
	now := time.Now()
	if now.Sub(e.lastOffset) >= calibration.OffsetDelay {
		e.lastOffset = now
		if _, err := e.calib.PollPointing(e.cfg, astro.NowUTCMJD()); err != nil {
			rlog.Log(rlog.Terse, "engine: pointing calibration: %v", err)
		}
	}
	if now.Sub(e.lastFocusOffset) >= calibration.FocusOffsetDelay {
		e.lastFocusOffset = now
		if _, err := e.calib.PollFocus(e.cfg); err != nil {
			rlog.Log(rlog.Terse, "engine: focus calibration: %v", err)
		}
	}
}

// handleReset implements the Reset ("SIG_ROTSE") signal: if MOVE is set
// and alertMoveSeen is false, it clears the stack and the MOVE bit. It
// does not push or execute a MOUNT_IDLE command. alertMoveSeen is
// toggled on every call.
func (e *Engine) handleReset() {
	e.resetPending = false
	if e.status.StateBits&StateMove != 0 && !e.alertMoveSeen {
		e.stack.Clear()
		e.status.StateBits &^= StateMove
	}
	e.alertMoveSeen = !e.alertMoveSeen
}
