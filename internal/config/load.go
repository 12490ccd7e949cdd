package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/nicolas-erasmus/rotse/internal/astro"
	"github.com/nicolas-erasmus/rotse/internal/rlog"
)

// kind discriminates how many tokens after the keyword a record carries
// and how they are parsed, mirroring options.go's Opt.Format tag.
type kind int

const (
	kindFloat1 kind = iota
	kindFloat2
	kindInt1
	kindString
)

// opt is one entry of the keyword table, a pointer into the MountConfig
// under construction — directly generalizing options.go's
// map[string]*Opt / Opt{name, format, intPtr, floatPtr, stringPtr}
// pattern to this daemon's keyword set.
type opt struct {
	kind   kind
	ints   []*int
	floats []*float64
	str    *string
}

func buildTable(cfg *MountConfig) map[string]*opt {
	return map[string]*opt{
		"loglevel":     {kind: kindInt1, ints: []*int{&cfg.LogLevel}},
		"logfile":      {kind: kindString, str: &cfg.LogFile},
		"sample_time":  {kind: kindFloat1, floats: []*float64{&cfg.SampleTime}},
		"poll_time":    {kind: kindFloat1, floats: []*float64{&cfg.PollTime}},
		"err_tout":     {kind: kindFloat1, floats: []*float64{&cfg.ErrTout}},
		"enctol":       {kind: kindInt1, ints: []*int{&cfg.EncTol}},
		"foctol":       {kind: kindFloat1, floats: []*float64{&cfg.FocTol}},
		"errormail":    {kind: kindString, str: &cfg.ErrorMail},
		"slewacc":      {kind: kindFloat2, floats: []*float64{&cfg.SlwAcc[0], &cfg.SlwAcc[1]}},
		"maxvel":       {kind: kindFloat2, floats: []*float64{&cfg.MaxVel[0], &cfg.MaxVel[1]}},
		"homevel":      {kind: kindFloat2, floats: []*float64{&cfg.HomeVel[0], &cfg.HomeVel[1]}},
		"stowpos":      {kind: kindFloat2, floats: []*float64{&cfg.StowPos[0], &cfg.StowPos[1]}},
		"standbypos":   {kind: kindFloat2, floats: []*float64{&cfg.StandbyPos[0], &cfg.StandbyPos[1]}},
		"deg2enc":      {kind: kindFloat2, floats: []*float64{&cfg.Deg2Enc[0], &cfg.Deg2Enc[1]}},
		"rarange":      {kind: kindFloat2, floats: []*float64{&cfg.RARange[0], &cfg.RARange[1]}},
		"decrange":     {kind: kindFloat2, floats: []*float64{&cfg.DecRange[0], &cfg.DecRange[1]}},
		"focrange":     {kind: kindFloat2, floats: []*float64{&cfg.FocRange[0], &cfg.FocRange[1]}},
		"overspeed":    {kind: kindFloat1, floats: []*float64{&cfg.Overspeed}},
		"obsfile":      {kind: kindString, str: &cfg.ObsFile},
		"statdir":      {kind: kindString, str: &cfg.StatDir},
		"statroot":     {kind: kindString, str: &cfg.StatRoot},
		"focus_update": {kind: kindString, str: &cfg.FocusUpdate},
		"testmode":     {kind: kindInt1, ints: []*int{&cfg.Testmode}},
		"mountport":    {kind: kindString, str: &cfg.MountPort},
		"focusport":    {kind: kindString, str: &cfg.FocusPort},
		"baud":         {kind: kindInt1, ints: []*int{&cfg.Baud}},
	}
}

// matFile, modFile, focusModFile are recorded separately from the
// keyword table above because loading them requires cfg (they populate
// CooMat/PoleOff, TPointModel and FocusModel respectively) and because
// mntmodel selects which of Matrix/TPoint is active.
type fileRefs struct {
	matFile, modFile, focusModFile string
	mountRun                       int
	mntModel                       string
}

// Load reads a mount daemon configuration file and returns a validated
// MountConfig, or an error if a required keyword is missing or a
// referenced model file cannot be parsed: a configuration error is
// detected at load time and the daemon must not start.
func Load(path string) (*MountConfig, error) {
	cfg := New()
	table := buildTable(cfg)
	var refs fileRefs

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		key := fields[0]
		args := fields[1:]

		switch key {
		case "latitude":
			v, e := strconv.ParseFloat(args[0], 64)
			if e != nil {
				return nil, fmt.Errorf("config:%d: bad latitude: %w", lineNo, e)
			}
			cfg.Latitude = v * astro.Deg2Rad
			continue
		case "longitude":
			v, e := strconv.ParseFloat(args[0], 64)
			if e != nil {
				return nil, fmt.Errorf("config:%d: bad longitude: %w", lineNo, e)
			}
			cfg.Longitude = v * astro.Deg2Rad
			continue
		case "altitude":
			v, e := strconv.ParseFloat(args[0], 64)
			if e != nil {
				return nil, fmt.Errorf("config:%d: bad altitude: %w", lineNo, e)
			}
			cfg.Altitude = v
			continue
		case "matfile":
			refs.matFile = args[0]
			continue
		case "modfile":
			refs.modFile = args[0]
			continue
		case "focusmodfile":
			refs.focusModFile = args[0]
			continue
		case "mntmodel":
			refs.mntModel = args[0]
			continue
		case "mount_run":
			v, e := strconv.Atoi(args[0])
			if e != nil {
				return nil, fmt.Errorf("config:%d: bad mount_run: %w", lineNo, e)
			}
			refs.mountRun = v
			continue
		case "mntman", "mntsn":
			continue // recognized, informational only
		}

		o, ok := table[key]
		if !ok {
			rlog.Log(rlog.Terse, "config:%d: unrecognized keyword %q, skipped", lineNo, key)
			continue
		}
		if err := o.apply(args); err != nil {
			return nil, fmt.Errorf("config:%d: %w", lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	cfg.MountRun = refs.mountRun != 0

	switch refs.mntModel {
	case "matrix":
		cfg.Method = MethodMatrix
		if refs.matFile == "" {
			return nil, fmt.Errorf("config: mntmodel matrix requires matfile")
		}
		if err := loadMatrixFile(refs.matFile, cfg); err != nil {
			return nil, err
		}
	case "tpoint":
		cfg.Method = MethodTPoint
		if refs.modFile == "" {
			return nil, fmt.Errorf("config: mntmodel tpoint requires modfile")
		}
		m, err := loadModelFile(refs.modFile)
		if err != nil {
			return nil, err
		}
		cfg.TPointModel = *m
	case "", "none":
		cfg.Method = MethodNone
	default:
		return nil, fmt.Errorf("config: unrecognized mntmodel %q", refs.mntModel)
	}

	if refs.focusModFile != "" {
		fm, err := loadFocusModelFile(refs.focusModFile)
		if err != nil {
			return nil, err
		}
		cfg.FocusModel = *fm
	}

	if cfg.Deg2Enc[0] == 0 || cfg.Deg2Enc[1] == 0 {
		return nil, fmt.Errorf("config: deg2enc must be set and nonzero")
	}
	if cfg.RARange[0] == 0 && cfg.RARange[1] == 0 {
		return nil, fmt.Errorf("config: rarange must be set")
	}

	return cfg, nil
}

func (o *opt) apply(args []string) error {
	switch o.kind {
	case kindFloat1:
		if len(args) < 1 {
			return fmt.Errorf("expected 1 value, got %d", len(args))
		}
		v, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return err
		}
		*o.floats[0] = v
	case kindFloat2:
		if len(args) < 2 {
			return fmt.Errorf("expected 2 values, got %d", len(args))
		}
		for i := 0; i < 2; i++ {
			v, err := strconv.ParseFloat(args[i], 64)
			if err != nil {
				return err
			}
			*o.floats[i] = v
		}
	case kindInt1:
		if len(args) < 1 {
			return fmt.Errorf("expected 1 value, got %d", len(args))
		}
		v, err := strconv.Atoi(args[0])
		if err != nil {
			return err
		}
		*o.ints[0] = v
	case kindString:
		if len(args) < 1 {
			return fmt.Errorf("expected a value")
		}
		*o.str = strings.Join(args, " ")
	}
	return nil
}
