// Package statfile persists the pointing-update and focus-update logs
// into a single per-night FITS file, grounded on update_statfile_offset
// in the original source: the pointing table lives in HDU 2, the
// offset-update log in HDU 3. The original used cfitsio; this daemon's
// only FITS library candidate anywhere in the reference corpus is
// github.com/astrogo/fitsio, so that is what backs this package rather
// than a hand-rolled binary-table writer.
package statfile

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/astrogo/fitsio"

	"github.com/nicolas-erasmus/rotse/internal/config"
)

// CalibrationRow is one row of the pointing status table an upstream
// image-reduction pipeline appends to HDU 2.
type CalibrationRow struct {
	MJD                  float64
	PRA, PDec, RRA, RDec float64
	EncRA, EncDec        float64
	MLim                 float64
}

// OffsetLogRow is one row C9 appends to HDU 3 on every accepted
// pointing or focus update.
type OffsetLogRow struct {
	MJD                  float64
	OFocus, NFocus       float64
	ORA, NRA, ODec, NDec float64
}

// Path returns the per-UT-date status file path, matching the
// original's per-night file naming.
func Path(cfg *config.MountConfig, date time.Time) string {
	name := fmt.Sprintf("%s_%s_run.fit", date.UTC().Format("20060102"), cfg.StatRoot)
	return filepath.Join(cfg.StatDir, name)
}

// Store wraps a single night's status file, acquiring an advisory
// flock for the duration of each read/write to satisfy the shared
// storage locking discipline of §4.9.
type Store struct {
	path string
}

// Open returns a Store bound to path without touching the file; the
// file is created lazily on the first AppendOffset/LatestCalibration
// call if it does not yet exist.
func Open(path string) *Store {
	return &Store{path: path}
}

// AppendOffset appends one row to the HDU 3 offset-update log. It
// skips the cycle (returning nil) rather than blocking if the
// advisory lock cannot be acquired immediately, per §4.9's
// non-blocking file I/O policy.
func (s *Store) AppendOffset(row OffsetLogRow) error {
	unlock, ok, err := s.tryLock()
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	defer unlock()

	f, hdus, err := s.openOrCreate()
	if err != nil {
		return err
	}
	defer f.Close()

	tbl, err := offsetTable(hdus)
	if err != nil {
		return err
	}
	return tbl.Write(&row)
}

// LatestCalibration reads the most recent row of HDU 2, the pointing
// status table an upstream pipeline appends to. It returns ok=false
// if the table is empty or the lock could not be acquired.
func (s *Store) LatestCalibration() (CalibrationRow, bool, error) {
	unlock, ok, err := s.tryLock()
	if err != nil {
		return CalibrationRow{}, false, err
	}
	if !ok {
		return CalibrationRow{}, false, nil
	}
	defer unlock()

	f, hdus, err := s.openOrCreate()
	if err != nil {
		return CalibrationRow{}, false, err
	}
	defer f.Close()

	tbl, err := pointingTable(hdus)
	if err != nil {
		return CalibrationRow{}, false, err
	}
	n := tbl.NumRows()
	if n == 0 {
		return CalibrationRow{}, false, nil
	}

	var row CalibrationRow
	rows, err := tbl.Read(n-1, n)
	if err != nil {
		return CalibrationRow{}, false, err
	}
	defer rows.Close()
	if !rows.Next() {
		return CalibrationRow{}, false, nil
	}
	if err := rows.Scan(&row); err != nil {
		return CalibrationRow{}, false, err
	}
	return row, true, nil
}

func pointingTable(hdus []fitsio.HDU) (*fitsio.Table, error) {
	for _, h := range hdus {
		if h.Name() == "POINTING" {
			if t, ok := h.(*fitsio.Table); ok {
				return t, nil
			}
		}
	}
	return nil, fmt.Errorf("statfile: POINTING table not found")
}

func offsetTable(hdus []fitsio.HDU) (*fitsio.Table, error) {
	for _, h := range hdus {
		if h.Name() == "OFFSETS" {
			if t, ok := h.(*fitsio.Table); ok {
				return t, nil
			}
		}
	}
	return nil, fmt.Errorf("statfile: OFFSETS table not found")
}

func (s *Store) openOrCreate() (*fitsio.File, []fitsio.HDU, error) {
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		if err := s.create(); err != nil {
			return nil, nil, err
		}
	}
	osf, err := os.OpenFile(s.path, os.O_RDWR, 0644)
	if err != nil {
		return nil, nil, err
	}
	f, err := fitsio.Open(osf, fitsio.ReadWrite)
	if err != nil {
		osf.Close()
		return nil, nil, err
	}
	return f, f.HDUs(), nil
}

func (s *Store) create() error {
	osf, err := os.Create(s.path)
	if err != nil {
		return err
	}
	defer osf.Close()

	f, err := fitsio.Create(osf)
	if err != nil {
		return err
	}
	defer f.Close()

	pointingCols := []fitsio.Column{
		{Name: "mjd", Format: "D"},
		{Name: "pra", Format: "D"},
		{Name: "pdec", Format: "D"},
		{Name: "rra", Format: "D"},
		{Name: "rdec", Format: "D"},
		{Name: "encra", Format: "D"},
		{Name: "encdec", Format: "D"},
		{Name: "mlim", Format: "D"},
	}
	pointing, err := fitsio.NewTable("POINTING", pointingCols, fitsio.BinaryTable)
	if err != nil {
		return err
	}
	if err := f.Write(pointing); err != nil {
		return err
	}

	offsetCols := []fitsio.Column{
		{Name: "mjd", Format: "D"},
		{Name: "ofocus", Format: "D"},
		{Name: "nfocus", Format: "D"},
		{Name: "ora", Format: "D"},
		{Name: "nra", Format: "D"},
		{Name: "odec", Format: "D"},
		{Name: "ndec", Format: "D"},
	}
	offsets, err := fitsio.NewTable("OFFSETS", offsetCols, fitsio.BinaryTable)
	if err != nil {
		return err
	}
	return f.Write(offsets)
}

// tryLock attempts a non-blocking advisory flock on the sibling
// "<path>.lock" file, creating that lock file if necessary. ok is false (not an error) if the
// lock is currently held elsewhere, signaling the caller to skip this
// cycle per §4.9.
func (s *Store) tryLock() (unlock func(), ok bool, err error) {
	lockPath := s.path + ".lock"
	fd, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, false, err
	}
	if err := syscall.Flock(int(fd.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		fd.Close()
		if err == syscall.EWOULDBLOCK {
			return nil, false, nil
		}
		return nil, false, err
	}
	return func() {
		syscall.Flock(int(fd.Fd()), syscall.LOCK_UN)
		fd.Close()
	}, true, nil
}
