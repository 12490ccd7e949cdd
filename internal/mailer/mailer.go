// Package mailer dispatches operator alert mail, grounded on
// mountd_main.c's mailalert(): shell out to a mail transfer command
// with the message piped on stdin rather than built inline on the
// command line.
package mailer

import (
	"bytes"
	"fmt"
	"os/exec"

	"github.com/nicolas-erasmus/rotse/internal/rlog"
)

// Target is the address alerts are sent to; cmd/mountd sets it from the
// errormail keyword at startup and on reload. Alert is a no-op when empty.
var Target string

// Command is the mail transfer agent invoked, overridable in tests.
var Command = "mailx"

// Alert sends subject/body to Target via Command, grounded on the
// original's `popen("mailx -s '<subject>' <targ>", "w")`. Failures are
// logged, not propagated. Alert waits for Command to exit before it
// returns.
func Alert(subject, body string) {
	if Target == "" {
		return
	}
	cmd := exec.Command(Command, "-s", subject, Target)
	cmd.Stdin = bytes.NewBufferString(body)
	if err := cmd.Run(); err != nil {
		rlog.Log(rlog.Terse, "mailer: alert dispatch failed: %v", err)
	}
}

// AlertF formats body and sends it, a convenience the recovery state
// machine uses for per-bit fault logs.
func AlertF(subject, format string, args ...interface{}) {
	Alert(subject, fmt.Sprintf(format, args...))
}
