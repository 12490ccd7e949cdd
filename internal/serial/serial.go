// Package serial implements the framed ASCII protocol the mount and
// focus controllers speak, grounded on stream.go's OpenSerial/
// ReadSerial/WriteSerial, rewired from a generic streaming transport
// onto the two fixed ports this daemon owns, plus the request/response
// framing, retry and echo-check rules of mount_comm.c's
// check_resp/get1stat family.
package serial

import (
	"bufio"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	goserial "github.com/tarm/goserial"

	"github.com/nicolas-erasmus/rotse/internal/config"
	"github.com/nicolas-erasmus/rotse/internal/rlog"
)

// MaxTry bounds the total number of send attempts (including the
// first) before a command fails fatally.
const MaxTry = 3

var (
	// ErrTimeout reports a write or read phase that did not complete
	// within the port's one-second select window.
	ErrTimeout = errors.New("serial: timeout")
	// ErrBadCRC reports a mount response whose trailing 4 hex digits
	// did not match the recomputed CRC-16 over the preceding text.
	ErrBadCRC = errors.New("serial: bad CRC")
	// ErrEchoMismatch reports a response that dropped a keyword (RA,
	// Dec) present in the outbound command.
	ErrEchoMismatch = errors.New("serial: echo mismatch")
	// ErrExhausted reports that MaxTry attempts all failed.
	ErrExhausted = errors.New("serial: retries exhausted")
)

// Port is one exclusively-owned serial link (mount or focus).
type Port struct {
	mu       sync.Mutex
	rw       readWriteCloser
	testMode bool
	name     string
	reader   *bufio.Reader
}

type readWriteCloser interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// OpenMount opens the mount command port at the configured baud rate,
// bypassing real I/O when cfg.Testmode has TestmodeNoMount set.
func OpenMount(path string, baud int, cfg *config.MountConfig) (*Port, error) {
	return open("mount", path, baud, cfg.Testmode&config.TestmodeNoMount != 0)
}

// OpenFocus opens the focus controller port, bypassing real I/O when
// cfg.Testmode has TestmodeNoFocus set.
func OpenFocus(path string, baud int, cfg *config.MountConfig) (*Port, error) {
	return open("focus", path, baud, cfg.Testmode&config.TestmodeNoFocus != 0)
}

func open(name, path string, baud int, testMode bool) (*Port, error) {
	if testMode {
		rlog.Log(rlog.Verbose, "serial: %s port opened in test mode, no hardware I/O", name)
		return &Port{name: name, testMode: true}, nil
	}

	c := &goserial.Config{Name: path, Baud: baud}
	s, err := goserial.OpenPort(c)
	if err != nil {
		return nil, fmt.Errorf("serial: open %s (%s): %w", name, path, err)
	}

	// Baud-rate toggle on open: the controller firmware resyncs its
	// UART framing on a brief zero-baud pulse. goserial has no ioctl
	// escape hatch for ispeed/ospeed=0, so the toggle is approximated
	// by closing and reopening the port after a one-second settle,
	// which produces the same DTR/line-state transition on most USB
	// serial adapters.
	s.Close()
	time.Sleep(1 * time.Second)
	s, err = goserial.OpenPort(c)
	if err != nil {
		return nil, fmt.Errorf("serial: reopen %s (%s) after baud toggle: %w", name, path, err)
	}

	return &Port{name: name, rw: s, reader: bufio.NewReader(s)}, nil
}

// Close releases the underlying port, a no-op in test mode.
func (p *Port) Close() error {
	if p.testMode || p.rw == nil {
		return nil
	}
	return p.rw.Close()
}

// SendMount writes a mount command framed as "$<keyword>[,<arg>]<crc4hex>\r"
// and returns the verified response body (with its leading '@', without
// the trailing CRC), retrying up to MaxTry times on timeout, bad CRC or
// echo mismatch.
func (p *Port) SendMount(keyword, arg string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.testMode {
		return cannedMountResponse(keyword), nil
	}

	body := "$" + keyword
	if arg != "" {
		body += "," + arg
	}
	frame := body + fmt.Sprintf("%04X", crc16([]byte(body))) + "\r"

	var lastErr error
	for attempt := 0; attempt < MaxTry; attempt++ {
		if attempt > 0 {
			p.clearPort()
		}
		if err := p.writeTimeout([]byte(frame)); err != nil {
			lastErr = err
			continue
		}
		resp, err := p.readUntil('\r', 256)
		if err != nil {
			lastErr = err
			continue
		}
		body, err := verifyMountResponse(resp)
		if err != nil {
			lastErr = err
			continue
		}
		if err := checkEcho(keyword+arg, body); err != nil {
			lastErr = err
			continue
		}
		return body, nil
	}
	rlog.Log(rlog.Terse, "serial: %s send %q failed after %d attempts: %v", p.name, keyword, MaxTry, lastErr)
	return "", fmt.Errorf("%w: %v", ErrExhausted, lastErr)
}

// SendFocus writes an unframed focus command ("<cmd>\r") and, if
// wantReply is set, reads back a float response.
func (p *Port) SendFocus(cmd string, wantReply bool) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.testMode {
		return 0, nil
	}

	if err := p.writeTimeout([]byte(cmd + "\r")); err != nil {
		return 0, err
	}
	if !wantReply {
		return 0, nil
	}
	resp, err := p.readUntil('\r', 64)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(resp), 64)
	if err != nil {
		return 0, fmt.Errorf("serial: focus reply %q not numeric: %w", resp, err)
	}
	return v, nil
}

func verifyMountResponse(resp string) (string, error) {
	if len(resp) < 5 || resp[0] != '@' {
		return "", fmt.Errorf("serial: malformed response %q", resp)
	}
	body := resp[:len(resp)-4]
	gotHex := resp[len(resp)-4:]
	want := fmt.Sprintf("%04X", crc16([]byte(body)))
	if !strings.EqualFold(gotHex, want) {
		return "", ErrBadCRC
	}
	return body, nil
}

func checkEcho(cmd, body string) error {
	if strings.Contains(cmd, "RA") && !strings.Contains(body, "RA") {
		return ErrEchoMismatch
	}
	if strings.Contains(cmd, "Dec") && !strings.Contains(body, "Dec") {
		return ErrEchoMismatch
	}
	return nil
}

// clearPort drains pending input, sends a lone terminator and drains
// again, per mount_comm.c's clear_port retry recovery.
func (p *Port) clearPort() {
	if p.rw == nil {
		return
	}
	p.drain()
	_ = p.writeTimeout([]byte("\r"))
	p.drain()
}

func (p *Port) drain() {
	buf := make([]byte, 256)
	deadline := time.Now().Add(200 * time.Millisecond)
	for time.Now().Before(deadline) {
		n, err := p.reader.Read(buf)
		if n == 0 || err != nil {
			return
		}
	}
}

func (p *Port) writeTimeout(b []byte) error {
	done := make(chan error, 1)
	go func() {
		_, err := p.rw.Write(b)
		done <- err
	}()
	select {
	case err := <-done:
		return err
	case <-time.After(1 * time.Second):
		return ErrTimeout
	}
}

func (p *Port) readUntil(term byte, maxlen int) (string, error) {
	type result struct {
		s   string
		err error
	}
	done := make(chan result, 1)
	go func() {
		s, err := p.reader.ReadString(term)
		done <- result{s, err}
	}()
	select {
	case r := <-done:
		if r.err != nil {
			return "", r.err
		}
		s := strings.TrimSuffix(r.s, string(term))
		if len(s) > maxlen {
			return "", fmt.Errorf("serial: response exceeds maxlen %d", maxlen)
		}
		return s, nil
	case <-time.After(1 * time.Second):
		return "", ErrTimeout
	}
}

// cannedMountResponse synthesizes a zero-valued status reply for test
// mode so status polls succeed without hardware attached.
func cannedMountResponse(keyword string) string {
	switch {
	case strings.HasPrefix(keyword, "Status1"):
		return "@" + keyword + ",0,0"
	case strings.HasPrefix(keyword, "Status2"):
		return "@" + keyword + ",0,0"
	case strings.HasPrefix(keyword, "Status3"):
		return "@" + keyword + ",0.0,0.0"
	default:
		return "@" + keyword + ",OK"
	}
}
