// Package coord implements the coordinate pipeline that sits between
// the command engine and the pointing models: turning a catalog ra/dec
// into encoder counts and back, grounded on coord2enc.c and
// enc2radec.c of the original mount daemon.
package coord

import (
	"fmt"
	"math"

	"github.com/nicolas-erasmus/rotse/internal/astro"
	"github.com/nicolas-erasmus/rotse/internal/config"
	"github.com/nicolas-erasmus/rotse/internal/pointing"
)

const j2000Epoch = 2000.0

// ToEnc resolves a J2000 ra/dec (degrees) to encoder counts at
// current_utc_mjd + timeOffsetMJD: precess to date, form the hour
// angle from local sidereal time, then dispatch to whichever pointing
// model cfg.Method selects.
func ToEnc(raDeg, decDeg float64, cfg *config.MountConfig, timeOffsetMJD float64) (pointing.Result, error) {
	now := astro.NowUTCMJD() + timeOffsetMJD

	raRad, decRad := astro.Precess(raDeg*astro.Deg2Rad, decDeg*astro.Deg2Rad, j2000Epoch, epochOfMJD(now))

	lmst := astro.LMST(now, cfg.Longitude)
	ha := astro.RangePi(lmst - raRad)

	switch cfg.Method {
	case config.MethodMatrix:
		return pointing.Matrix(ha, decRad, cfg)
	case config.MethodTPoint:
		return pointing.TPoint(ha, decRad, cfg)
	case config.MethodNone:
		// No model file configured: identity conversion, the same
		// tail as finishTPoint but with no hemisphere mirroring or
		// term corrections applied.
		haDeg := ha * astro.Rad2Deg
		outDecDeg := decRad * astro.Rad2Deg
		enc := [2]int{
			int(math.Round(haDeg*cfg.Deg2Enc[0])) + cfg.Zeropt[0] + cfg.PtgOffset[0],
			int(math.Round(outDecDeg*cfg.Deg2Enc[1])) + cfg.Zeropt[1] + cfg.PtgOffset[1],
		}
		return pointing.Result{RADeg: haDeg, DecDeg: outDecDeg, Enc: enc}, nil
	default:
		return pointing.Result{}, fmt.Errorf("coord: unknown pointing method %v", cfg.Method)
	}
}

// FromEnc approximates the ra/dec currently commanded by a pair of
// encoder counts, for status display only. It does not invert the
// pointing model's analytic terms; callers must not rely on it to
// recover the exact catalog position.
func FromEnc(enc [2]int, cfg *config.MountConfig) (raDeg, decDeg float64) {
	haDeg := float64(enc[0]) / cfg.Deg2Enc[0]
	decDeg = float64(enc[1]) / cfg.Deg2Enc[1]

	if cfg.Latitude < 0 {
		haDeg = -haDeg
		decDeg = -decDeg
	}

	now := astro.NowUTCMJD()
	lmst := astro.LMST(now, cfg.Longitude) * astro.Rad2Deg
	raDeg = lmst - haDeg
	raDeg = math.Mod(raDeg, 360.0)
	if raDeg < 0 {
		raDeg += 360.0
	}
	return raDeg, decDeg
}

// ToEncRaw reconstructs the encoder position that would have been
// commanded for the given ra/dec (already in mount-frame degrees, not
// catalog J2000) at the supplied mjd: used by the calibration loop to
// recompute what was actually pointed at when an offset observation
// was logged.
func ToEncRaw(raDeg, decDeg, mjd float64, cfg *config.MountConfig) [2]int {
	lmst := astro.LMST(mjd, cfg.Longitude) * astro.Rad2Deg
	haDeg := lmst - raDeg
	haDeg = wrapRange(haDeg, cfg.RARange[0], cfg.RARange[1])

	if cfg.Latitude < 0 {
		haDeg = -haDeg
		decDeg = -decDeg
	}

	return [2]int{
		int(math.Round(haDeg*cfg.Deg2Enc[0])) + cfg.Zeropt[0],
		int(math.Round(decDeg*cfg.Deg2Enc[1])) + cfg.Zeropt[1],
	}
}

// ShiftDelta nudges an encoder position by a ra/dec delta in degrees.
// It does not range-check the result; the caller validates the
// post-shift position before commanding a move.
func ShiftDelta(deltaRADeg, deltaDecDeg float64, enc [2]int, cfg *config.MountConfig) [2]int {
	return [2]int{
		enc[0] + int(math.Round(deltaRADeg*cfg.Deg2Enc[0])),
		enc[1] + int(math.Round(deltaDecDeg*cfg.Deg2Enc[1])),
	}
}

func epochOfMJD(mjd float64) float64 {
	return j2000Epoch + (mjd-51544.5)/365.25
}

func wrapRange(v, lo, hi float64) float64 {
	span := hi - lo
	if span <= 0 {
		return v
	}
	for v > hi {
		v -= span
	}
	for v < lo {
		v += span
	}
	return v
}
