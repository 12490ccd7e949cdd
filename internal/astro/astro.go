// Package astro provides the deterministic astronomical primitives the
// pointing pipeline builds on: MJD conversion, GMST, the equation of the
// equinoxes, local mean sidereal time, precession, and the ha/dec to
// az/el transform. GMST follows the IAU 1982 (Meeus) polynomial, the
// same family of formula used by the astronomy packages in this corpus
// (compare anupshinde-goeph/coord.GMST); the equation of the equinoxes
// uses the standard low-precision nutation-in-longitude approximation
// rather than a full IAU2000A series, since the daemon only needs
// sub-arcsecond sidereal time, not nutation for its own sake.
package astro

import (
	"math"
	"time"
)

const (
	Deg2Rad  = math.Pi / 180.0
	Rad2Deg  = 180.0 / math.Pi
	mjdEpoch = 2400000.5 // JD at MJD 0
	j2000MJD = 51544.5
)

// NowUTCMJD returns the current UTC instant as a Modified Julian Date.
func NowUTCMJD() float64 {
	return TimeToMJD(time.Now().UTC())
}

// TimeToMJD converts a civil UTC time into MJD = integer-day MJD plus
// the fractional day, via the standard Julian day number formula.
func TimeToMJD(t time.Time) float64 {
	t = t.UTC()
	y, m, d := t.Date()
	year, month, day := y, int(m), d
	if month <= 2 {
		year--
		month += 12
	}
	a := year / 100
	b := 2 - a + a/4
	jd := math.Floor(365.25*float64(year+4716)) +
		math.Floor(30.6001*float64(month+1)) +
		float64(day) + float64(b) - 1524.5
	mjd := jd - mjdEpoch
	frac := (float64(t.Hour())*3600 + float64(t.Minute())*60 + float64(t.Second()) +
		float64(t.Nanosecond())/1e9) / 86400.0
	return math.Floor(mjd) + frac
}

// GMST returns Greenwich Mean Sidereal Time in radians for the given MJD
// (UT1 treated as UTC — the daemon does not track UT1-UTC).
func GMST(mjd float64) float64 {
	du := mjd - j2000MJD
	tCent := du / 36525.0

	gmstDeg := 280.46061837 + 360.98564736629*du +
		0.000387933*tCent*tCent - tCent*tCent*tCent/38710000.0

	gmstDeg = math.Mod(gmstDeg, 360.0)
	if gmstDeg < 0 {
		gmstDeg += 360.0
	}
	return gmstDeg * Deg2Rad
}

// EqEqx returns the equation of the equinoxes in radians: the nutation
// in longitude projected onto the equator, dpsi*cos(mean obliquity).
func EqEqx(mjd float64) float64 {
	tCent := (mjd - j2000MJD) / 36525.0

	// Mean obliquity of the ecliptic (IAU 1980, Lieske 1979), arcsec -> rad.
	eps0 := (84381.448 - 46.8150*tCent - 0.00059*tCent*tCent + 0.001813*tCent*tCent*tCent) *
		(Deg2Rad / 3600.0)

	// Low-precision nutation in longitude (Meeus 22.2): dominant terms only.
	omega := (125.04452 - 1934.136261*tCent) * Deg2Rad
	lSun := (280.4665 + 36000.7698*tCent) * Deg2Rad
	lMoon := (218.3165 + 481267.8813*tCent) * Deg2Rad

	dpsiArcsec := -17.20*math.Sin(omega) - 1.32*math.Sin(2*lSun) -
		0.23*math.Sin(2*lMoon) + 0.21*math.Sin(2*omega)
	dpsi := dpsiArcsec * (Deg2Rad / 3600.0)

	return dpsi * math.Cos(eps0)
}

// LMST returns local mean sidereal time in radians, wrapped to [0, 2π).
func LMST(mjd, longitudeRad float64) float64 {
	lmst := GMST(mjd) + EqEqx(mjd) + longitudeRad
	lmst = math.Mod(lmst, 2*math.Pi)
	if lmst < 0 {
		lmst += 2 * math.Pi
	}
	return lmst
}

// RangePi wraps an angle in radians into (-π, π].
func RangePi(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a <= -math.Pi {
		a += 2 * math.Pi
	} else if a > math.Pi {
		a -= 2 * math.Pi
	}
	return a
}

// Precess applies general precession to move (ra, dec) in radians from
// fromEpoch to toEpoch (both Julian epochs, e.g. 2000.0), using the
// IAU 1976 precession angles (low-order, adequate for the sub-arcminute
// pointing accuracy this daemon targets).
func Precess(ra, dec, fromEpoch, toEpoch float64) (float64, float64) {
	t0 := (fromEpoch - 2000.0) / 100.0
	t := (toEpoch - fromEpoch) / 100.0

	arcsec := Deg2Rad / 3600.0
	zeta := (2306.2181+1.39656*t0-0.000139*t0*t0)*t +
		(0.30188-0.000344*t0)*t*t + 0.017998*t*t*t
	z := (2306.2181+1.39656*t0-0.000139*t0*t0)*t +
		(1.09468+0.000066*t0)*t*t + 0.018203*t*t*t
	theta := (2004.3109-0.85330*t0-0.000217*t0*t0)*t -
		(0.42665+0.000217*t0)*t*t - 0.041833*t*t*t
	zeta *= arcsec
	z *= arcsec
	theta *= arcsec

	a := math.Cos(dec) * math.Sin(ra+zeta)
	b := math.Cos(theta)*math.Cos(dec)*math.Cos(ra+zeta) - math.Sin(theta)*math.Sin(dec)
	c := math.Sin(theta)*math.Cos(dec)*math.Cos(ra+zeta) + math.Cos(theta)*math.Sin(dec)

	newRA := math.Mod(math.Atan2(a, b)+z, 2*math.Pi)
	if newRA < 0 {
		newRA += 2 * math.Pi
	}
	newDec := math.Asin(clamp(c, -1, 1))
	return newRA, newDec
}

// HADecToAzEl converts hour angle / declination (radians) at the given
// latitude (radians) to azimuth / elevation (radians), azimuth measured
// from north through east.
func HADecToAzEl(ha, dec, latitude float64) (az, el float64) {
	sinEl := math.Sin(dec)*math.Sin(latitude) + math.Cos(dec)*math.Cos(latitude)*math.Cos(ha)
	el = math.Asin(clamp(sinEl, -1, 1))

	cosAz := (math.Sin(dec) - math.Sin(el)*math.Sin(latitude)) / (math.Cos(el) * math.Cos(latitude))
	sinAz := -math.Sin(ha) * math.Cos(dec) / math.Cos(el)
	az = math.Atan2(sinAz, clamp(cosAz, -1, 1))
	az = math.Mod(az+2*math.Pi, 2*math.Pi)
	return az, el
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
