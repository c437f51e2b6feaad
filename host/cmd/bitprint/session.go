package main

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"bitprint/core"
	"bitprint/host/serial"
	"bitprint/standalone"
	"bitprint/standalone/config"
	"bitprint/standalone/console"
	"bitprint/standalone/machine"
	"bitprint/standalone/player"
	"bitprint/standalone/storage"
)

var opts struct {
	configPath   string
	dir          string
	verbose      bool
	realtime     bool
	serialDevice string
	baud         int
}

// session is one initialized machine on simulated pins
type session struct {
	cfg   *config.Machine
	log   *zap.Logger
	store storage.Provider
	gpio  *core.SimGPIO
	clock core.Clock
	mgr   *machine.Manager
}

func openSession() (*session, error) {
	log := core.NewLogger(os.Stderr, opts.verbose)

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.dir != "" {
		cfg.Storage.Dir = opts.dir
	}
	if opts.baud > 0 {
		cfg.Console.Baud = opts.baud
	}

	store, err := storage.NewOS(cfg.Storage.Dir)
	if err != nil {
		log.Error("storage init failed", zap.Error(err))
		return nil, err
	}

	gpio := core.NewSimGPIO()
	if err := closeLimitSwitches(gpio, cfg); err != nil {
		return nil, err
	}

	var clock core.Clock = core.NewSimClock()
	if opts.realtime {
		clock = core.NewRealClock()
	}

	mgr := machine.New(cfg, store, log)
	if err := mgr.Initialize(gpio, clock, core.GPIOBackendFactory(gpio, clock)); err != nil {
		return nil, err
	}
	// Count only the pulses of the command being run
	gpio.ResetCounts()

	return &session{cfg: cfg, log: log, store: store, gpio: gpio, clock: clock, mgr: mgr}, nil
}

// closeLimitSwitches makes every simulated limit switch read triggered, so
// homing finds the origin at once
func closeLimitSwitches(gpio *core.SimGPIO, cfg *config.Machine) error {
	for _, a := range standalone.Axes {
		ac := cfg.Axis(a)
		if ac.LimitPin == "" {
			continue
		}
		pin, err := core.ParsePin(ac.LimitPin)
		if err != nil {
			return err
		}
		level := !ac.LimitActiveLow
		gpio.SetInput(pin, func() bool { return level })
	}
	return nil
}

// console opens the operator console: the serial device when one is set,
// stdin/stdout otherwise. The returned closer releases the port.
func (s *session) console() (*console.Console, io.Closer, error) {
	if opts.serialDevice == "" && s.cfg.Console.Device == "" {
		return console.New(s.store, s.cfg.Storage, os.Stdin, os.Stdout), io.NopCloser(os.Stdin), nil
	}

	port, err := serial.Open(serial.FromConsole(s.cfg.Console, opts.serialDevice))
	if err != nil {
		return nil, nil, err
	}
	if err := port.Flush(); err != nil {
		s.log.Warn("failed to flush console input", zap.Error(err))
	}
	return console.New(s.store, s.cfg.Storage, port, port), port, nil
}

// printSummary reports a playback, the pulses each axis received and the
// machine position
func (s *session) printSummary(w io.Writer, rep player.Report) {
	fmt.Fprintf(w, "lines %d, moves %d, homes %d, enables %d, skipped %d, refused %d\n",
		rep.Lines, rep.Moves, rep.Homes, rep.Enables, rep.Skipped, rep.Refused)
	s.printPulses(w)
	s.printPosition(w)
	if sim, ok := s.clock.(*core.SimClock); ok {
		fmt.Fprintf(w, "simulated time %v\n", sim.Elapsed())
	}
}

func (s *session) printPulses(w io.Writer) {
	pins, err := s.mgr.StepPins()
	if err != nil {
		return
	}
	fmt.Fprint(w, "pulses")
	for _, a := range standalone.Axes {
		fmt.Fprintf(w, " %c=%d", a.Tag(), s.gpio.Rises(pins[a]))
	}
	fmt.Fprintln(w)
}

func (s *session) printPosition(w io.Writer) {
	pos, err := s.mgr.Positions()
	if err != nil {
		return
	}
	fmt.Fprintf(w, "position X=%.3f Y=%.3f Z=%.3f E=%.3f\n",
		pos[standalone.AxisX], pos[standalone.AxisY], pos[standalone.AxisZ], pos[standalone.AxisE])
}
