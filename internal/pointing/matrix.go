// Package pointing implements the two alternative pointing models (a
// two-star 3x3 rotation matrix and a TPOINT analytic term model) and the
// focus polynomial, grounded on apply_matrix.c, apply_model.c and
// calc_focus.c of the original mount daemon. Matrices are fixed-size
// [3][3]float64/[3]float64 arrays since the shape is known at compile
// time — no dynamic allocation, matching common.go's MatPrint family,
// which already favors flat, pre-sized slices over per-call allocation.
package pointing

import (
	"fmt"
	"math"

	"github.com/nicolas-erasmus/rotse/internal/config"
	"github.com/nicolas-erasmus/rotse/internal/rlog"
)

// Result is the output of a pointing-model solve: raw ra/dec in
// degrees after meridian-flip resolution and hemisphere handling, plus
// the final encoder counts.
type Result struct {
	RADeg, DecDeg float64
	Enc           [2]int
}

// ErrNoSolution indicates the model could not resolve a target into a
// legal encoder position (engine surfaces this as a slew rejection).
var ErrNoSolution = fmt.Errorf("pointing: no solution")

// Matrix solves the two-star rotation-matrix pointing model for a given
// hour angle and declination, both in radians.
func Matrix(haRad, decRad float64, cfg *config.MountConfig) (Result, error) {
	v := [3]float64{
		math.Cos(haRad) * math.Cos(decRad),
		math.Sin(haRad) * math.Cos(decRad),
		math.Sin(decRad),
	}
	vp := rotate(cfg.CooMat, v)

	decDeg := math.Asin(clamp(vp[2], -1, 1)) * 180 / math.Pi
	raDeg := math.Atan2(vp[1], vp[0]) * 180 / math.Pi
	if raDeg < 0 {
		raDeg += 360
	}

	// Meridian-flip resolution: at most two attempts.
	for attempt := 0; attempt < 2 && raDeg > cfg.RARange[1]; attempt++ {
		raDeg -= 180
		// Grounded nuance from apply_matrix.c: dec is recomputed as
		// 180-dec on every flip attempt without restoring the prior
		// value first; preserved exactly rather than "fixed".
		decDeg = 180 - decDeg
		if attempt == 1 {
			rlog.Log(rlog.Terse, "pointing: matrix model required a second meridian flip, ra=%.3f dec=%.3f", raDeg, decDeg)
		}
	}

	decDeg -= cfg.PoleOff

	if cfg.Latitude < 0 {
		if decDeg > 0 {
			decDeg -= 360
		}
		raDeg = -raDeg
		decDeg = -decDeg
	}

	enc := [2]int{
		int(math.Round(raDeg*cfg.Deg2Enc[0])) + cfg.Zeropt[0] + cfg.PtgOffset[0],
		int(math.Round(decDeg*cfg.Deg2Enc[1])) + cfg.Zeropt[1] + cfg.PtgOffset[1],
	}
	return Result{RADeg: raDeg, DecDeg: decDeg, Enc: enc}, nil
}

func rotate(m [3][3]float64, v [3]float64) [3]float64 {
	var out [3]float64
	for r := 0; r < 3; r++ {
		out[r] = m[r][0]*v[0] + m[r][1]*v[1] + m[r][2]*v[2]
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
