// Package motion implements the mount's primitive moves (init, slew,
// sync, standby, sidereal tracking) on top of the typed hardware
// protocol, grounded on mount_comm.c's init_mount/move_to/mount_sync
// family.
package motion

import (
	"fmt"
	"math"

	"github.com/nicolas-erasmus/rotse/internal/config"
	"github.com/nicolas-erasmus/rotse/internal/hwproto"
)

// siderealDaySeconds is the sidereal day length used for the tracking
// velocity, matching mount_comm.c's constant rather than the more
// precise 86164.0905s mean sidereal day.
const siderealDaySeconds = 86636.55

// standbySpeedPct is the fraction of max velocity used to drive to
// standby.
const standbySpeedPct = 0.5

// ErrOutOfRange reports a move_to target outside rarange/decrange.
var ErrOutOfRange = fmt.Errorf("motion: target out of range")

// Controller drives the two-axis mount over the hardware protocol.
type Controller struct {
	mount *hwproto.Mount
	focus *hwproto.Focus
	cfg   *config.MountConfig
}

// New builds a Controller over already-open mount and focus ports.
func New(mount *hwproto.Mount, focus *hwproto.Focus, cfg *config.MountConfig) *Controller {
	return &Controller{mount: mount, focus: focus, cfg: cfg}
}

// InitMount zeroes velocities, applies configured accelerations and
// overspeed-scaled max velocities, halts and stops both axes
// (engaging amplifiers), then energizes the focus motor.
func (c *Controller) InitMount() error {
	for _, axis := range []hwproto.Axis{hwproto.RA, hwproto.Dec} {
		if err := c.mount.SetVel(axis, 0); err != nil {
			return err
		}
		if err := c.mount.SetAccel(axis, c.cfg.SlwAcc[axis]); err != nil {
			return err
		}
		if err := c.mount.SetMaxVel(axis, c.cfg.MaxVel[axis]*c.cfg.Overspeed); err != nil {
			return err
		}
		if err := c.mount.Halt(axis); err != nil {
			return err
		}
		if err := c.mount.Stop(axis); err != nil {
			return err
		}
	}
	return c.focus.On()
}

// MoveTo range-checks and commands a slew to an absolute encoder
// position at the given per-axis velocity, optionally zeroing
// velocities first to avoid a commanded-position jump while moving.
func (c *Controller) MoveTo(enc [2]int, vel [2]float64, stopFirst bool) error {
	if stopFirst {
		if err := c.mount.SetVel(hwproto.RA, 0); err != nil {
			return err
		}
		if err := c.mount.SetVel(hwproto.Dec, 0); err != nil {
			return err
		}
	}

	raLo := int(math.Round(c.cfg.RARange[0]*c.cfg.Deg2Enc[0])) + c.cfg.Zeropt[0] + c.cfg.PtgOffset[0]
	raHi := int(math.Round(c.cfg.RARange[1]*c.cfg.Deg2Enc[0])) + c.cfg.Zeropt[0] + c.cfg.PtgOffset[0]
	decLo := int(math.Round(c.cfg.DecRange[0]*c.cfg.Deg2Enc[1])) + c.cfg.Zeropt[1] + c.cfg.PtgOffset[1]
	decHi := int(math.Round(c.cfg.DecRange[1]*c.cfg.Deg2Enc[1])) + c.cfg.Zeropt[1] + c.cfg.PtgOffset[1]

	if enc[0] < raLo || enc[0] > raHi || enc[1] < decLo || enc[1] > decHi {
		return ErrOutOfRange
	}

	if err := c.mount.SetPos(hwproto.RA, enc[0]); err != nil {
		return err
	}
	if err := c.mount.SetPos(hwproto.Dec, enc[1]); err != nil {
		return err
	}
	if err := c.mount.SetVel(hwproto.RA, vel[0]); err != nil {
		return err
	}
	return c.mount.SetVel(hwproto.Dec, vel[1])
}

// Sync clears the zeropoint, pointing offset and zero-epoch, then
// drives both axes home at the configured homing velocity.
func (c *Controller) Sync() error {
	c.cfg.Zeropt = [2]int{config.NoZero, config.NoZero}
	c.cfg.PtgOffset = [2]int{0, 0}
	c.cfg.ZeroMJD = math.NaN()

	if err := c.mount.SetVel(hwproto.RA, c.cfg.HomeVel[0]); err != nil {
		return err
	}
	if err := c.mount.SetVel(hwproto.Dec, c.cfg.HomeVel[1]); err != nil {
		return err
	}
	if err := c.mount.Stop(hwproto.RA); err != nil {
		return err
	}
	if err := c.mount.Stop(hwproto.Dec); err != nil {
		return err
	}
	if err := c.mount.Home(hwproto.RA); err != nil {
		return err
	}
	return c.mount.Home(hwproto.Dec)
}

// Standby slews to the configured standby position at a fraction of
// max velocity.
func (c *Controller) Standby() error {
	enc := [2]int{
		int(math.Round(c.cfg.StandbyPos[0]*c.cfg.Deg2Enc[0])) + c.cfg.Zeropt[0] + c.cfg.PtgOffset[0],
		int(math.Round(c.cfg.StandbyPos[1]*c.cfg.Deg2Enc[1])) + c.cfg.Zeropt[1] + c.cfg.PtgOffset[1],
	}
	vel := [2]float64{
		c.cfg.MaxVel[0] * standbySpeedPct,
		c.cfg.MaxVel[1] * standbySpeedPct,
	}
	return c.MoveTo(enc, vel, true)
}

// Stow slews to the configured stow position at a fraction of max
// velocity, the move the process shell commands before exiting.
func (c *Controller) Stow() error {
	enc := [2]int{
		int(math.Round(c.cfg.StowPos[0]*c.cfg.Deg2Enc[0])) + c.cfg.Zeropt[0] + c.cfg.PtgOffset[0],
		int(math.Round(c.cfg.StowPos[1]*c.cfg.Deg2Enc[1])) + c.cfg.Zeropt[1] + c.cfg.PtgOffset[1],
	}
	vel := [2]float64{
		c.cfg.MaxVel[0] * standbySpeedPct,
		c.cfg.MaxVel[1] * standbySpeedPct,
	}
	return c.MoveTo(enc, vel, true)
}

// TrackRASidereal commands continuous sidereal-rate RA tracking to
// the top of the configured RA range, with the tracking velocity's
// sign flipped in the southern hemisphere.
func (c *Controller) TrackRASidereal() error {
	vel := (360.0 / siderealDaySeconds) * c.cfg.Deg2Enc[0]
	if c.cfg.Latitude < 0 {
		vel = -vel
	}
	target := int(math.Round(c.cfg.RARange[1]*c.cfg.Deg2Enc[0])) + c.cfg.Zeropt[0] + c.cfg.PtgOffset[0]
	decEnc := int(math.Round(c.cfg.DecRange[1]*c.cfg.Deg2Enc[1])) + c.cfg.Zeropt[1] + c.cfg.PtgOffset[1]
	return c.MoveTo([2]int{target, decEnc}, [2]float64{vel, 0}, true)
}
