// Package calibration implements the two independent recalibration
// feeds the engine polls on a slow sub-tick: pointing-offset updates
// from an upstream image-reduction pipeline, and focus updates from an
// external focus-measurement process, grounded on update_offsets.c and
// update_focus.c of the original mount daemon.
package calibration

import (
	"errors"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/nicolas-erasmus/rotse/internal/config"
	"github.com/nicolas-erasmus/rotse/internal/coord"
	"github.com/nicolas-erasmus/rotse/internal/pointing"
	"github.com/nicolas-erasmus/rotse/internal/rlog"
	"github.com/nicolas-erasmus/rotse/internal/statfile"
)

// MaxOffsetDeg bounds any single pointing-offset update, in degrees of
// encoder motion per axis.
const MaxOffsetDeg = 1.0

// OffsetDelay is the pointing-update poll period.
const OffsetDelay = 5 * time.Minute

// FocusOffsetDelay is the focus-update poll period.
const FocusOffsetDelay = 1 * time.Minute

// Loop owns the slow-cadence recalibration state: the status-file
// store and the last-seen focus-update timestamp.
type Loop struct {
	store           *statfile.Store
	focusUpdatePath string
	lastFocusATime  time.Time
	lastFocusMJD    float64
}

// New builds a Loop backed by the given status file and focus-update
// path.
func New(store *statfile.Store, focusUpdatePath string) *Loop {
	return &Loop{store: store, focusUpdatePath: focusUpdatePath, lastFocusMJD: math.Inf(-1)}
}

// PollPointing runs one pointing-update cycle, gated on zero_mjd being
// set. It is a no-op (applied=false) if there is no fresh calibration row.
func (l *Loop) PollPointing(cfg *config.MountConfig, nowMJD float64) (applied bool, err error) {
	if math.IsNaN(cfg.ZeroMJD) {
		return false, nil
	}

	row, ok, err := l.store.LatestCalibration()
	if err != nil || !ok {
		return false, err
	}
	if row.MJD <= cfg.ZeroMJD || row.MLim < 0 {
		return false, nil
	}

	encOrig := coord.ToEncRaw(row.EncRA, row.EncDec, row.MJD, cfg)
	encNew, err := coord.ToEnc(row.RRA, row.RDec, cfg, nowMJD-row.MJD)
	if err != nil {
		if errors.Is(err, pointing.ErrNoSolution) {
			return false, nil
		}
		return false, err
	}

	delta := [2]int{
		encOrig[0] - encNew.Enc[0],
		encOrig[1] - encNew.Enc[1],
	}

	for i, maxCounts := range []float64{MaxOffsetDeg * cfg.Deg2Enc[0], MaxOffsetDeg * cfg.Deg2Enc[1]} {
		if math.Abs(float64(delta[i])) > maxCounts {
			rlog.Log(rlog.Terse, "calibration: offset update axis %d clipped, |delta|=%d exceeds %.1f counts", i, delta[i], maxCounts)
			delta[i] = 0
		}
	}

	cfg.PtgOffset[0] += delta[0]
	cfg.PtgOffset[1] += delta[1]
	cfg.ZeroMJD = nowMJD

	err = l.store.AppendOffset(statfile.OffsetLogRow{
		MJD:    nowMJD,
		OFocus: -1,
		NFocus: -1,
		ORA:    row.PRA,
		NRA:    row.RRA,
		ODec:   row.PDec,
		NDec:   row.RDec,
	})
	return true, err
}

// FocusUpdateRow is one line of the external focus-measurement file.
type FocusUpdateRow struct {
	MJD, Focus, FocErr, ChiSq, Az, El, Temp, WSpd float64
}

// PollFocus runs one focus-update cycle, gated on the focus-update
// file's mtime having advanced since the last check, grounded on
// update_focus.c's `stat_buf.st_atime > last_atime` gate (this
// implementation checks ModTime rather than atime, since Go's
// os.Stat does not portably expose access time, but the gating
// semantics — skip unless the external writer has touched the file
// since the last poll — are preserved).
func (l *Loop) PollFocus(cfg *config.MountConfig) (applied bool, err error) {
	fi, err := os.Stat(l.focusUpdatePath)
	if err != nil {
		return false, nil
	}
	if !fi.ModTime().After(l.lastFocusATime) {
		return false, nil
	}
	l.lastFocusATime = fi.ModTime()

	row, err := readFocusUpdateRow(l.focusUpdatePath)
	if err != nil {
		return false, err
	}
	if row.MJD <= l.lastFocusMJD || row.Focus <= 0 {
		return false, nil
	}
	l.lastFocusMJD = row.MJD

	oldFocus, err := pointing.ApplyFocusModel(cfg.FocusModel, row.Az, row.El, row.Temp)
	if err != nil {
		return false, err
	}
	delta := row.Focus - oldFocus

	for i := range cfg.FocusModel.Terms {
		if strings.HasPrefix(cfg.FocusModel.Terms[i].Pattern, "1") {
			cfg.FocusModel.Terms[i].Coefficient += delta
			break
		}
	}

	err = l.store.AppendOffset(statfile.OffsetLogRow{
		MJD:    row.MJD,
		OFocus: oldFocus,
		NFocus: row.Focus,
		ORA:    -1,
		NRA:    -1,
		ODec:   -100,
		NDec:   -100,
	})
	return true, err
}

func readFocusUpdateRow(path string) (FocusUpdateRow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FocusUpdateRow{}, err
	}
	fields := strings.Fields(string(data))
	if len(fields) < 8 {
		return FocusUpdateRow{}, os.ErrInvalid
	}
	vals := make([]float64, 8)
	for i := 0; i < 8; i++ {
		v, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return FocusUpdateRow{}, err
		}
		vals[i] = v
	}
	return FocusUpdateRow{
		MJD: vals[0], Focus: vals[1], FocErr: vals[2], ChiSq: vals[3],
		Az: vals[4], El: vals[5], Temp: vals[6], WSpd: vals[7],
	}, nil
}
