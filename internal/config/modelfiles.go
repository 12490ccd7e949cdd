package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// loadMatrixFile reads the matrix-model file (§6): first float is
// poleoff, followed by the 3x3 rotation matrix in column-major order.
func loadMatrixFile(path string, cfg *MountConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("matfile: %w", err)
	}
	defer f.Close()

	var vals []float64
	scanner := bufio.NewScanner(f)
	scanner.Split(bufio.ScanWords)
	for scanner.Scan() {
		v, err := strconv.ParseFloat(scanner.Text(), 64)
		if err != nil {
			return fmt.Errorf("matfile: bad value %q: %w", scanner.Text(), err)
		}
		vals = append(vals, v)
	}
	if len(vals) < 10 {
		return fmt.Errorf("matfile: expected 10 values (poleoff + 3x3 matrix), got %d", len(vals))
	}
	cfg.PoleOff = vals[0]
	idx := 1
	for col := 0; col < 3; col++ {
		for row := 0; row < 3; row++ {
			cfg.CooMat[row][col] = vals[idx]
			idx++
		}
	}
	return nil
}

// loadModelFile reads a TPOINT model file (§6), generalizing the
// teacher-adjacent load_model() parser from the original source: a
// caption line, a method/stats line, then one line per term until a
// line starting with "END".
func loadModelFile(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("modfile: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	m := &Model{}

	if !scanner.Scan() {
		return nil, fmt.Errorf("modfile: missing caption line")
	}
	m.Caption = strings.TrimSpace(scanner.Text())

	if !scanner.Scan() {
		return nil, fmt.Errorf("modfile: missing method/stats line")
	}
	fields := strings.Fields(scanner.Text())
	if len(fields) < 5 {
		return nil, fmt.Errorf("modfile: method/stats line needs 5 fields, got %d", len(fields))
	}
	m.Method = fields[0][0]
	if m.Observations, err = strconv.Atoi(fields[1]); err != nil {
		return nil, fmt.Errorf("modfile: bad observations: %w", err)
	}
	if m.SkyRMS, err = strconv.ParseFloat(fields[2], 64); err != nil {
		return nil, fmt.Errorf("modfile: bad sky_rms: %w", err)
	}
	if m.RefrA, err = strconv.ParseFloat(fields[3], 64); err != nil {
		return nil, fmt.Errorf("modfile: bad refr_a: %w", err)
	}
	if m.RefrB, err = strconv.ParseFloat(fields[4], 64); err != nil {
		return nil, fmt.Errorf("modfile: bad refr_b: %w", err)
	}

	const maxTerms = 16
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(strings.TrimSpace(line), "END") {
			break
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			return nil, fmt.Errorf("modfile: malformed term line %q", line)
		}
		// <parallel_char><sign_char><name><value><sigma>: tolerate either
		// the fixed-width original layout or whitespace-separated tokens.
		parallelMark := line[0]
		name := fields[len(fields)-3]
		if len(fields) == 3 {
			// name glued to the parallel/sign marker column; split by eye.
			name = strings.TrimLeft(fields[0], "&+- \t")
		}
		kind, ok := TermKindFromName(strings.ToUpper(name))
		if !ok {
			return nil, fmt.Errorf("modfile: unrecognized term %q", name)
		}
		value, err := strconv.ParseFloat(fields[len(fields)-2], 64)
		if err != nil {
			return nil, fmt.Errorf("modfile: bad term value: %w", err)
		}
		sigma, err := strconv.ParseFloat(fields[len(fields)-1], 64)
		if err != nil {
			return nil, fmt.Errorf("modfile: bad term sigma: %w", err)
		}
		m.Terms = append(m.Terms, TPointTerm{
			Kind:     kind,
			Value:    value,
			Sigma:    sigma,
			Parallel: parallelMark == '&',
		})
		if len(m.Terms) > maxTerms {
			return nil, fmt.Errorf("modfile: exceeded maximum number of terms")
		}
	}
	return m, nil
}

// loadFocusModelFile reads the focus-model file (§6): one "term
// <pattern> <coefficient>" record per line.
func loadFocusModelFile(path string) (*FocusModel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("focusmodfile: %w", err)
	}
	defer f.Close()

	fm := &FocusModel{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 || fields[0] != "term" {
			return nil, fmt.Errorf("focusmodfile: malformed line %q", line)
		}
		coef, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, fmt.Errorf("focusmodfile: bad coefficient: %w", err)
		}
		fm.Terms = append(fm.Terms, FocusTerm{Pattern: fields[1], Coefficient: coef})
	}
	return fm, nil
}
