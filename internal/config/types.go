// Package config defines the mount daemon's configuration data model and
// the keyword-table file loader that populates it, generalizing
// options.go's SysOpts/Opt/LoadOpts pattern from RTKLIB's "key=value"
// option set to this daemon's whitespace-separated keyword records.
package config

import "math"

// TermKind names one of the nine TPOINT analytic pointing terms.
type TermKind int

const (
	IH TermKind = iota
	ID
	NP
	CH
	ME
	MA
	FO
	TF
	TX
)

var termNames = map[string]TermKind{
	"IH": IH, "ID": ID, "NP": NP, "CH": CH, "ME": ME,
	"MA": MA, "FO": FO, "TF": TF, "TX": TX,
}

// TermKindFromName translates a two-letter TPOINT term name into its
// TermKind, reporting ok=false for an unrecognized name.
func TermKindFromName(name string) (TermKind, bool) {
	k, ok := termNames[name]
	return k, ok
}

// TPointTerm is one coefficient of the TPOINT analytic pointing model.
type TPointTerm struct {
	Kind     TermKind
	Value    float64 // arcseconds
	Sigma    float64 // arcseconds
	Parallel bool
}

// PointingMethod selects how coord_to_enc resolves ra/dec to encoder
// counts.
type PointingMethod int

const (
	MethodNone PointingMethod = iota
	MethodMatrix
	MethodTPoint
)

// Model holds a loaded TPOINT model file's contents.
type Model struct {
	Caption      string
	Method       byte // 'T' (forward) or 'S' (reverse)
	Observations int
	SkyRMS       float64
	RefrA, RefrB float64
	Terms        []TPointTerm
}

// FocusTerm is one term of the additive focus polynomial: coefficient
// times the product of factor(c) for c in Pattern, where '1'->1,
// 't'->temperature, 'e'->elevation, 'a'->azimuth.
type FocusTerm struct {
	Pattern     string
	Coefficient float64
}

// FocusModel is the ordered list of focus polynomial terms.
type FocusModel struct {
	Terms []FocusTerm
}

// Testmode bits gate serial I/O bypass for the mount and focus ports.
const (
	TestmodeNoMount = 1 << 0
	TestmodeNoFocus = 1 << 1
)

// NoZero is the zeropt sentinel meaning "not yet synced".
const NoZero = math.MinInt32

// MountConfig is the validated, process-wide configuration produced by
// Load. It is read-mostly: only Load, SYNC, a completed MOUNT_ZEROS, and
// the calibration loop mutate it after startup, and all such mutation
// happens on the engine's tick goroutine.
type MountConfig struct {
	Latitude, Longitude, Altitude float64 // radians, radians, meters

	RARange  [2]float64 // degrees
	DecRange [2]float64
	FocRange [2]float64

	Deg2Enc [2]float64 // encoder counts per degree

	MaxVel  [2]float64 // degrees/s
	SlwAcc  [2]float64 // degrees/s^2
	HomeVel [2]float64 // degrees/s

	Overspeed float64

	StowPos     [2]float64 // degrees
	StandbyPos  [2]float64 // degrees

	EncTol int
	FocTol float64

	PollTime   float64 // seconds
	SampleTime float64
	ErrTout    float64

	Method  PointingMethod
	PoleOff float64 // degrees
	CooMat  [3][3]float64

	TPointModel Model
	FocusModel  FocusModel

	Testmode int

	Zeropt     [2]int
	PtgOffset  [2]int
	ZeroMJD    float64 // NaN until sync

	MountRun bool

	LogLevel    int
	LogFile     string
	StatDir     string
	StatRoot    string
	FocusUpdate string
	ObsFile     string
	ErrorMail   string

	MountPort string
	FocusPort string
	Baud      int
}

// New returns a MountConfig with the sentinels the engine expects before
// a config file is loaded over it: zeropt unset, zero_mjd undefined.
func New() *MountConfig {
	return &MountConfig{
		Zeropt:    [2]int{NoZero, NoZero},
		ZeroMJD:   math.NaN(),
		Overspeed: 1.0,
	}
}

// Synced reports whether a MOUNT_ZEROS has established the zeropoint.
func (c *MountConfig) Synced() bool {
	return c.Zeropt[0] != NoZero && c.Zeropt[1] != NoZero
}
