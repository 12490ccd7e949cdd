// Command mountd is the telescope mount control daemon's process
// shell: it loads configuration, opens the mount and focus serial
// ports, constructs the command engine and drives its tick loop,
// dispatching signals the way rtkrcv.go drives rtksvrthread from a
// goroutine fed by signal.Notify.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nicolas-erasmus/rotse/internal/calibration"
	"github.com/nicolas-erasmus/rotse/internal/config"
	"github.com/nicolas-erasmus/rotse/internal/engine"
	"github.com/nicolas-erasmus/rotse/internal/hwproto"
	"github.com/nicolas-erasmus/rotse/internal/ipc"
	"github.com/nicolas-erasmus/rotse/internal/mailer"
	"github.com/nicolas-erasmus/rotse/internal/rlog"
	"github.com/nicolas-erasmus/rotse/internal/serial"
	"github.com/nicolas-erasmus/rotse/internal/statfile"
)

const prgname = "mountd"
const defaultConfFile = "mountd.conf"

func main() {
	var (
		confFile string
		testOverride bool
		verbose      bool
	)
	flag.StringVar(&confFile, "c", defaultConfFile, "configuration file")
	flag.BoolVar(&testOverride, "t", false, "force hardware test mode (bypass serial I/O)")
	flag.BoolVar(&verbose, "v", false, "verbose logging")
	flag.Parse()

	cfg, err := config.Load(confFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", prgname, err)
		os.Exit(1)
	}
	if testOverride {
		cfg.Testmode |= config.TestmodeNoMount | config.TestmodeNoFocus
	}

	if err := rlog.Open(cfg.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "%s: open logfile: %v\n", prgname, err)
		os.Exit(1)
	}
	level := rlog.Level(cfg.LogLevel)
	if verbose && level < rlog.Verbose {
		level = rlog.Verbose
	}
	rlog.SetLevel(level)
	mailer.Target = cfg.ErrorMail

	mountPort, err := serial.OpenMount(cfg.MountPort, cfg.Baud, cfg)
	if err != nil {
		rlog.Log(rlog.Terse, "%s: open mount port: %v", prgname, err)
		os.Exit(1)
	}
	focusPort, err := serial.OpenFocus(cfg.FocusPort, cfg.Baud, cfg)
	if err != nil {
		rlog.Log(rlog.Terse, "%s: open focus port: %v", prgname, err)
		os.Exit(1)
	}

	mount := hwproto.NewMount(mountPort)
	focus := hwproto.NewFocus(focusPort)

	store := statfile.Open(statfile.Path(cfg, time.Now()))
	calib := calibration.New(store, cfg.FocusUpdate)

	channel := ipc.NewMemChannel()
	eng := engine.New(cfg, mount, focus, channel, channel, calib)

	if err := eng.Submit(engine.CommandParam{MoveMode: engine.ModeInit}); err != nil {
		rlog.Log(rlog.Terse, "%s: startup: %v", prgname, err)
		os.Exit(1)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGUSR1)
	reload := make(chan string, 1)
	shutdown := make(chan struct{})
	go func() {
		for s := range sig {
			switch s {
			case syscall.SIGHUP:
				select {
				case reload <- confFile:
				default:
				}
			case syscall.SIGUSR1:
				eng.Reset()
			case syscall.SIGINT, syscall.SIGTERM:
				close(shutdown)
				return
			}
		}
	}()

	exitCode := runLoop(eng, cfg, shutdown, reload)

	parkMount(eng)
	mountPort.Close()
	focusPort.Close()
	rlog.Close()
	os.Exit(exitCode)
}

// runLoop drives the engine's tick at cfg.PollTime cadence until a
// shutdown signal arrives or the engine itself decides to exit,
// mirroring rtksvrthread's "tick, step, sleep the remainder" shape.
func runLoop(eng *engine.Engine, cfg *config.MountConfig, shutdown <-chan struct{}, reload <-chan string) int {
	for {
		select {
		case <-shutdown:
			return 1
		case path := <-reload:
			newCfg, err := config.Load(path)
			if err != nil {
				rlog.Log(rlog.Terse, "%s: reload of %s failed, keeping running config: %v", prgname, path, err)
				continue
			}
			*cfg = *newCfg
			mailer.Target = cfg.ErrorMail
			rlog.Log(rlog.Terse, "%s: configuration reloaded from %s", prgname, path)
		default:
		}

		tickStart := time.Now()
		if err := eng.Tick(); err != nil {
			var sd *engine.Shutdown
			if errors.As(err, &sd) {
				rlog.Log(rlog.Terse, "%s: shutting down: %s", prgname, sd.Reason)
				if sd.Fatal {
					return 1
				}
				return 0
			}
			rlog.Log(rlog.Terse, "%s: tick error: %v", prgname, err)
		}

		if sleepFor := time.Duration(cfg.PollTime*float64(time.Second)) - time.Since(tickStart); sleepFor > 0 {
			time.Sleep(sleepFor)
		}
	}
}

// parkMount drives the mount to its stow position before exit,
// running a bounded number of extra ticks so the move has a chance to
// complete; a mount that is still moving when the process exits is no
// worse off than one that received no stow command at all.
func parkMount(eng *engine.Engine) {
	eng.Submit(engine.CommandParam{MoveMode: engine.ModeStow})
	const maxParkTicks = 50
	for i := 0; i < maxParkTicks; i++ {
		if err := eng.Tick(); err != nil {
			return
		}
		if eng.Idle() {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
}
