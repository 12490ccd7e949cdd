// Package hwproto exposes typed hardware operations over the framed
// serial transport, grounded on mount_comm.c's comm2mount/comm2focus
// family: each function here builds one keyword/argument request and
// parses its response into the shape C6 needs.
package hwproto

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nicolas-erasmus/rotse/internal/serial"
)

// Axis selects RA or Dec for a per-axis operation.
type Axis int

const (
	RA Axis = iota
	Dec
)

func (a Axis) suffix() string {
	if a == RA {
		return "RA"
	}
	return "Dec"
}

// AxisStatusBits decodes the status2 hardware word for one axis,
// grounded on parsestat2's SCHIER_* bit mapping.
type AxisStatusBits struct {
	EStop       bool
	NegLim      bool
	PosLim      bool
	BrakeOn     bool
	AmpDisabled bool
}

// Any reports whether any fault bit is set.
func (b AxisStatusBits) Any() bool {
	return b.EStop || b.NegLim || b.PosLim || b.BrakeOn || b.AmpDisabled
}

const (
	bitEStop       = 1 << 0
	bitNegLim      = 1 << 1
	bitPosLim      = 1 << 2
	bitBrakeOn     = 1 << 3
	bitAmpDisabled = 1 << 4
)

// Mount wraps the mount command port with the typed operations table.
type Mount struct {
	port *serial.Port
}

// NewMount adopts an already-open mount port.
func NewMount(p *serial.Port) *Mount { return &Mount{port: p} }

func (m *Mount) ack(keyword string, axis Axis, arg string) error {
	_, err := m.port.SendMount(keyword+axis.suffix(), arg)
	return err
}

// SetVel commands a target velocity in encoder counts/second.
func (m *Mount) SetVel(axis Axis, countsPerSec float64) error {
	return m.ack("Vel", axis, fmt.Sprintf("%.3f", countsPerSec))
}

// SetAccel commands a target acceleration in encoder counts/second^2.
func (m *Mount) SetAccel(axis Axis, countsPerSec2 float64) error {
	return m.ack("Accel", axis, fmt.Sprintf("%.3f", countsPerSec2))
}

// SetMaxVel commands the axis velocity ceiling.
func (m *Mount) SetMaxVel(axis Axis, countsPerSec float64) error {
	return m.ack("MaxVel", axis, fmt.Sprintf("%.3f", countsPerSec))
}

// SetPos commands a target encoder position.
func (m *Mount) SetPos(axis Axis, counts int) error {
	return m.ack("Pos", axis, strconv.Itoa(counts))
}

// Halt issues an immediate stop, leaving servo loops engaged.
func (m *Mount) Halt(axis Axis) error {
	return m.ack("Halt", axis, "")
}

// Stop commands a controlled stop and confirms via status2 that no
// E_STOP, AMP_DISABLED or BRAKE_ON bit is set afterward.
func (m *Mount) Stop(axis Axis) error {
	if err := m.ack("Stop", axis, ""); err != nil {
		return err
	}
	bits, err := m.Status2(axis)
	if err != nil {
		return err
	}
	if bits.EStop || bits.AmpDisabled || bits.BrakeOn {
		return fmt.Errorf("hwproto: stop(%v) did not clear fault bits: %+v", axis, bits)
	}
	return nil
}

// Home starts a homing sequence.
func (m *Mount) Home(axis Axis) error {
	return m.ack("Home", axis, "")
}

// Run releases the axis to execute its queued velocity/position profile.
func (m *Mount) Run(axis Axis) error {
	return m.ack("Run", axis, "")
}

// Status1 returns the commanded and actual encoder positions.
func (m *Mount) Status1(axis Axis) (commandPos, actualPos int, err error) {
	resp, err := m.port.SendMount("Status1"+axis.suffix(), "")
	if err != nil {
		return 0, 0, err
	}
	fields := strings.Split(strings.TrimPrefix(resp, "@"), ",")
	if len(fields) < 3 {
		return 0, 0, fmt.Errorf("hwproto: malformed status1 response %q", resp)
	}
	commandPos, err = strconv.Atoi(strings.TrimSpace(fields[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("hwproto: status1 command_pos: %w", err)
	}
	actualPos, err = strconv.Atoi(strings.TrimSpace(fields[2]))
	if err != nil {
		return 0, 0, fmt.Errorf("hwproto: status1 actual_pos: %w", err)
	}
	return commandPos, actualPos, nil
}

// Status2 returns the decoded fault bits for one axis.
func (m *Mount) Status2(axis Axis) (AxisStatusBits, error) {
	resp, err := m.port.SendMount("Status2"+axis.suffix(), "")
	if err != nil {
		return AxisStatusBits{}, err
	}
	fields := strings.Split(strings.TrimPrefix(resp, "@"), ",")
	if len(fields) < 3 {
		return AxisStatusBits{}, fmt.Errorf("hwproto: malformed status2 response %q", resp)
	}
	w1, err := strconv.ParseUint(strings.TrimSpace(fields[1]), 16, 32)
	if err != nil {
		return AxisStatusBits{}, fmt.Errorf("hwproto: status2 word1: %w", err)
	}
	w2, err := strconv.ParseUint(strings.TrimSpace(fields[2]), 16, 32)
	if err != nil {
		return AxisStatusBits{}, fmt.Errorf("hwproto: status2 word2: %w", err)
	}
	word := w1 | w2
	return AxisStatusBits{
		EStop:       word&bitEStop != 0,
		NegLim:      word&bitNegLim != 0,
		PosLim:      word&bitPosLim != 0,
		BrakeOn:     word&bitBrakeOn != 0,
		AmpDisabled: word&bitAmpDisabled != 0,
	}, nil
}

// Status3 returns the axis's bus voltage and integrator value.
func (m *Mount) Status3(axis Axis) (voltage, integrator float64, err error) {
	resp, err := m.port.SendMount("Status3"+axis.suffix(), "")
	if err != nil {
		return 0, 0, err
	}
	fields := strings.Split(strings.TrimPrefix(resp, "@"), ",")
	if len(fields) < 3 {
		return 0, 0, fmt.Errorf("hwproto: malformed status3 response %q", resp)
	}
	voltage, err = strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("hwproto: status3 voltage: %w", err)
	}
	integrator, err = strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("hwproto: status3 integrator: %w", err)
	}
	return voltage, integrator, nil
}

// LastFault returns the free-form recent-faults string, which the
// engine's status poll scans for "High Output I^2".
func (m *Mount) LastFault() (string, error) {
	return m.port.SendMount("RecentFaults", "")
}

// Focus wraps the focus port with its seven-operation protocol.
type Focus struct {
	port *serial.Port
}

// NewFocus adopts an already-open focus port.
func NewFocus(p *serial.Port) *Focus { return &Focus{port: p} }

// On energizes the focus motor.
func (f *Focus) On() error {
	_, err := f.port.SendFocus("1MO", false)
	return err
}

// Off de-energizes the focus motor.
func (f *Focus) Off() error {
	_, err := f.port.SendFocus("1MF", false)
	return err
}

// SetPos commands an absolute focus position.
func (f *Focus) SetPos(pos int) error {
	_, err := f.port.SendFocus(fmt.Sprintf("1PA%d", pos), false)
	return err
}

// Sync commands an absolute move to focus position -100.
func (f *Focus) Sync() error {
	_, err := f.port.SendFocus("1PA-100", false)
	return err
}

// QueryMotor reports whether the focus motor is energized.
func (f *Focus) QueryMotor() (bool, error) {
	v, err := f.port.SendFocus("1MO?", true)
	if err != nil {
		return false, err
	}
	return v == 1, nil
}

// QueryPos reports the current focus position.
func (f *Focus) QueryPos() (float64, error) {
	return f.port.SendFocus("1TP?", true)
}

// Zero redefines the home position.
func (f *Focus) Zero() error {
	_, err := f.port.SendFocus("1DH", false)
	return err
}
