package pointing

import (
	"fmt"
	"math"

	"github.com/nicolas-erasmus/rotse/internal/astro"
	"github.com/nicolas-erasmus/rotse/internal/config"
)

// ApplyFocusModel evaluates the additive focus polynomial at the given
// azimuth, elevation (radians) and temperature, grounded on
// calc_focus.c's apply_focus_model(): each term contributes
// coefficient * product(factor(c) for c in pattern).
func ApplyFocusModel(fm config.FocusModel, azRad, elRad, temp float64) (float64, error) {
	total := 0.0
	for _, term := range fm.Terms {
		factor := 1.0
		for _, c := range term.Pattern {
			switch c {
			case '1':
				// factor stays 1
			case 't':
				factor *= temp
			case 'e':
				factor *= elRad * astro.Rad2Deg
			case 'a':
				factor *= azRad * astro.Rad2Deg
			default:
				return 0, fmt.Errorf("pointing: unrecognized focus pattern char %q", c)
			}
		}
		total += term.Coefficient * factor
	}
	if math.IsNaN(total) {
		return 0, fmt.Errorf("pointing: focus model produced NaN")
	}
	return total, nil
}

// CalcFocus computes the target focus for a given hour angle and
// declination (radians, of date) and temperature, following
// calc_focus.c: convert to az/el, then evaluate the focus model there.
func CalcFocus(haRad, decRad, temp float64, cfg *config.MountConfig) (float64, error) {
	az, el := astro.HADecToAzEl(haRad, decRad, cfg.Latitude)
	return ApplyFocusModel(cfg.FocusModel, az, el, temp)
}
