package pointing

import (
	"fmt"
	"math"

	"github.com/nicolas-erasmus/rotse/internal/astro"
	"github.com/nicolas-erasmus/rotse/internal/config"
)

const arcsecToDeg = 1.0 / 3600.0

// TPoint solves the TPOINT analytic pointing model for hour angle and
// declination (radians), following the nine term formulas of
// apply_model.c. Method 'S' both reverses term-scan order and negates
// every correction (sign = -1).
func TPoint(haRad, decRad float64, cfg *config.MountConfig) (Result, error) {
	dha := haRad * astro.Rad2Deg
	ddec := decRad * astro.Rad2Deg

	sign := 1.0
	terms := cfg.TPointModel.Terms
	if cfg.TPointModel.Method == 'S' {
		sign = -1.0
		terms = reversed(terms)
	}

	flip := false
	for attempt := 0; attempt < 2; attempt++ {
		workDha, workDdec := dha, ddec
		if flip {
			workDha += 180
			workDdec = 180 - workDdec
		}

		newDha, newDdec, err := applyTerms(terms, workDha, workDdec, cfg, sign)
		if err != nil {
			return Result{}, err
		}

		// Grounded nuance (apply_model.c): the acceptance/retry loop below
		// only runs a second pass when the model's method is 'S'. For
		// method 'T' the first pass's solution is accepted unconditionally.
		if cfg.TPointModel.Method != 'S' {
			return finishTPoint(newDha, newDdec, cfg)
		}

		good, accepted := acceptance(newDha, cfg, flip, attempt)
		if good {
			return finishTPoint(accepted, newDdec, cfg)
		}
		flip = !flip
	}

	// Neither attempt accepted: fall back to standby position.
	return Result{
		RADeg:  cfg.StandbyPos[0],
		DecDeg: cfg.StandbyPos[1],
		Enc: [2]int{
			int(math.Round(cfg.StandbyPos[0]*cfg.Deg2Enc[0])) + cfg.Zeropt[0] + cfg.PtgOffset[0],
			int(math.Round(cfg.StandbyPos[1]*cfg.Deg2Enc[1])) + cfg.Zeropt[1] + cfg.PtgOffset[1],
		},
	}, nil
}

// acceptance implements the northern/southern acceptance tests of
// apply_model.c's flip-retry loop. The compound boolean's precedence is
// ambiguous in the source and is preserved verbatim; only the flipped
// second attempt (attempt==1, the only one that ever reaches it given
// TPoint's flip-after-reject loop) gates genuinely distinct outcomes:
// the compound true rejects to the standby fallback, false accepts
// with the -360 wrap.
func acceptance(dha float64, cfg *config.MountConfig, flip bool, attempt int) (good bool, resultDha float64) {
	ramin, ramax := cfg.RARange[0], cfg.RARange[1]

	if cfg.Latitude >= 0 {
		if dha < ramax {
			return true, dha
		}
		if flip && attempt == 1 {
			if ((dha-360) > ramax) || ((dha - 180) < ramax) {
				return false, dha
			}
			return true, dha - 360
		}
		return false, dha
	}

	// southern hemisphere
	if ramin < dha && dha < ramax {
		return true, dha
	}
	if attempt == 1 {
		if (dha + 360) > ramax {
			return false, dha
		}
		return true, dha + 360
	}
	return false, dha
}

func finishTPoint(dha, ddec float64, cfg *config.MountConfig) (Result, error) {
	if cfg.Latitude < 0 {
		if ddec > 0 {
			ddec -= 360
		}
		dha = -dha
		ddec = -ddec
	}
	enc := [2]int{
		int(math.Round(dha*cfg.Deg2Enc[0])) + cfg.Zeropt[0] + cfg.PtgOffset[0],
		int(math.Round(ddec*cfg.Deg2Enc[1])) + cfg.Zeropt[1] + cfg.PtgOffset[1],
	}
	return Result{RADeg: dha, DecDeg: ddec, Enc: enc}, nil
}

func applyTerms(terms []config.TPointTerm, dha, ddec float64, cfg *config.MountConfig, sign float64) (float64, float64, error) {
	phi := cfg.Latitude
	for _, term := range terms {
		v := term.Value * arcsecToDeg * sign
		dhaRad := dha * astro.Deg2Rad
		ddecRad := ddec * astro.Deg2Rad

		var dDha, dDdec float64
		switch term.Kind {
		case config.IH:
			dDha = v + cfg.PtgOffset[0]/cfg.Deg2Enc[0]
		case config.ID:
			dDdec = v + cfg.PtgOffset[1]/cfg.Deg2Enc[1]
		case config.NP:
			dDha = v * math.Tan(ddecRad)
		case config.CH:
			dDha = v / math.Cos(ddecRad)
		case config.ME:
			dDha = v * math.Sin(dhaRad) * math.Tan(ddecRad)
			dDdec = v * math.Cos(dhaRad)
		case config.MA:
			dDha = -v * math.Cos(dhaRad) * math.Tan(ddecRad)
			dDdec = v * math.Sin(dhaRad)
		case config.FO:
			dDdec = v * math.Cos(dhaRad)
		case config.TF:
			dDha = v * math.Cos(phi) * math.Sin(dhaRad) / math.Cos(ddecRad)
			dDdec = v * (math.Cos(phi)*math.Cos(dhaRad)*math.Sin(ddecRad) - math.Sin(phi)*math.Cos(ddecRad))
		case config.TX:
			denom := math.Sin(ddecRad)*math.Sin(phi) + math.Cos(ddecRad)*math.Cos(dhaRad)*math.Cos(phi)
			numDha := v * math.Cos(phi) * math.Sin(dhaRad)
			numDdec := v * (math.Cos(phi)*math.Cos(dhaRad)*math.Sin(ddecRad) - math.Sin(phi)*math.Cos(ddecRad))
			if denom == 0 {
				return 0, 0, fmt.Errorf("%w: TX term singular at pole", ErrNoSolution)
			}
			dDha = numDha / denom
			dDdec = numDdec / denom
		default:
			return 0, 0, fmt.Errorf("%w: unrecognized term kind %v", ErrNoSolution, term.Kind)
		}
		dha += dDha
		ddec += dDdec
	}
	return dha, ddec, nil
}

func reversed(in []config.TPointTerm) []config.TPointTerm {
	out := make([]config.TPointTerm, len(in))
	for i, t := range in {
		out[len(in)-1-i] = t
	}
	return out
}
