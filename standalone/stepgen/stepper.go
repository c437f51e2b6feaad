package stepgen

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"bitprint/core"
	"bitprint/standalone"
	"bitprint/standalone/config"
)

// Stepper represents a single stepper motor and owns its axis state
type Stepper struct {
	name   string
	config config.AxisConfig
	homing config.HomingConfig

	gpio    core.GPIODriver
	clock   core.Clock
	backend core.StepperBackend
	log     *zap.Logger

	stepPin  core.GPIOPin
	dirPin   core.GPIOPin
	enPin    core.GPIOPin
	limitPin core.GPIOPin
	hasEn    bool
	hasLimit bool

	pulseWidth int // Minimum step pulse width (us)

	// Current state
	position float64 // Current position (mm), valid while no move is in flight
	enabled  bool
}

// NewStepper creates a new stepper motor controller
func NewStepper(name string, axis config.AxisConfig, cfg *config.Machine, log *zap.Logger) *Stepper {
	if log == nil {
		log = zap.NewNop()
	}
	return &Stepper{
		name:       name,
		config:     axis,
		homing:     cfg.Homing,
		pulseWidth: cfg.MinPulseWidthMicros,
		log:        log.With(zap.String("axis", name)),
	}
}

// InitPins initializes the pins for this stepper through the given backend.
// The driver starts disabled.
func (s *Stepper) InitPins(gpio core.GPIODriver, clock core.Clock, backend core.StepperBackend) error {
	s.gpio = gpio
	s.clock = clock
	s.backend = backend

	var err error
	if s.stepPin, err = core.ParsePin(s.config.StepPin); err != nil {
		return err
	}
	if s.dirPin, err = core.ParsePin(s.config.DirPin); err != nil {
		return err
	}
	if err := backend.Init(s.stepPin, s.dirPin, s.config.InvertDir); err != nil {
		return fmt.Errorf("%s axis backend: %w", s.name, err)
	}

	// Get enable pin (optional)
	if s.config.EnablePin != "" {
		if s.enPin, err = core.ParsePin(s.config.EnablePin); err != nil {
			return err
		}
		if err := gpio.ConfigureOutput(s.enPin); err != nil {
			return err
		}
		s.hasEn = true
	}

	// Get limit switch pin (optional)
	if s.config.LimitPin != "" {
		if s.limitPin, err = core.ParsePin(s.config.LimitPin); err != nil {
			return err
		}
		if s.config.LimitActiveLow {
			err = gpio.ConfigureInputPullUp(s.limitPin)
		} else {
			err = gpio.ConfigureInputPullDown(s.limitPin)
		}
		if err != nil {
			return err
		}
		s.hasLimit = true
	}

	s.Disable()
	return nil
}

// Enable enables the stepper motor
func (s *Stepper) Enable() {
	s.setEnableLine(true)
	s.enabled = true
}

// Disable disables the stepper motor
func (s *Stepper) Disable() {
	s.setEnableLine(false)
	s.enabled = false
}

func (s *Stepper) setEnableLine(on bool) {
	if !s.hasEn {
		return
	}
	level := on
	if s.config.EnableActiveLow {
		level = !on
	}
	if err := s.gpio.SetPin(s.enPin, level); err != nil {
		s.log.Error("driver enable line write failed", zap.Bool("enable", on), zap.Error(err))
	}
}

// CheckFault logs and returns the first step or direction line failure the
// backend saw since the last call. Backends that cannot fail report nil.
func (s *Stepper) CheckFault() error {
	fr, ok := s.backend.(core.FaultReporter)
	if !ok {
		return nil
	}
	err := fr.TakeFault()
	if err != nil {
		s.log.Error("step line write failed", zap.Error(err))
	}
	return err
}

// SetDirection drives the direction line; forward moves towards positive coordinates
func (s *Stepper) SetDirection(forward bool) {
	s.backend.SetDirection(forward)
}

// Pulse emits one step: the step line is held high for the minimum pulse
// width, then low for the rest of delayMicros. Callers must pass a delay
// larger than the pulse width.
func (s *Stepper) Pulse(delayMicros int) {
	s.backend.Step(s.pulseWidth)
	s.clock.DelayMicros(delayMicros - s.pulseWidth)
}

// MoveDirect moves this axis alone to targetMM, ignoring the other axes.
// Targets outside the configured travel range are refused and the position
// is left unchanged.
func (s *Stepper) MoveDirect(targetMM float64, delayMicros int) error {
	if delayMicros <= s.pulseWidth {
		return fmt.Errorf("%w: %dus on %s axis", standalone.ErrPulseDelay, delayMicros, s.name)
	}
	if err := s.CheckTravel(targetMM); err != nil {
		return err
	}

	distance := targetMM - s.position
	s.SetDirection(distance >= 0)

	steps := int(math.Round(math.Abs(distance) * s.config.StepsPerMM))
	for i := 0; i < steps; i++ {
		s.Pulse(delayMicros)
	}

	s.CheckFault()
	s.position = targetMM
	s.log.Debug("direct move complete", zap.Int("steps", steps), zap.Float64("position", s.position))
	return nil
}

// CheckTravel returns a travel-limit error when targetMM is outside the
// configured range. Axes without limits accept any target.
func (s *Stepper) CheckTravel(targetMM float64) error {
	if !s.config.HasTravelLimits() {
		return nil
	}
	if targetMM < s.config.MinPosition || targetMM > s.config.MaxPosition {
		return fmt.Errorf("%w: %s axis target %.3fmm outside [%.3f, %.3f]",
			standalone.ErrTravelLimit, s.name, targetMM, s.config.MinPosition, s.config.MaxPosition)
	}
	return nil
}

// limitTriggered reads the limit switch, honoring its polarity
func (s *Stepper) limitTriggered() bool {
	high := s.gpio.ReadPin(s.limitPin)
	if s.config.LimitActiveLow {
		return !high
	}
	return high
}

// Home seeks the limit switch, backs off it and zeroes the position.
// Seeking is bounded by the homing timeout; on timeout the position is
// left unchanged.
func (s *Stepper) Home() error {
	if !s.hasLimit {
		return fmt.Errorf("%w: %s", standalone.ErrNoLimitSwitch, s.name)
	}
	if !s.enabled {
		s.log.Warn("homing with driver disabled")
	}

	s.log.Info("homing started")

	// Phase 1: drive towards the switch
	s.SetDirection(false)
	deadline := s.clock.NowMicros() + s.homing.Timeout.Microseconds()
	seek := 0
	for !s.limitTriggered() {
		if s.clock.NowMicros() >= deadline {
			s.backend.Stop()
			s.log.Error("limit switch never triggered", zap.Int("pulses", seek))
			return fmt.Errorf("%w: %s axis after %d pulses", standalone.ErrHomingTimeout, s.name, seek)
		}
		s.Pulse(s.homing.DelayMicros)
		seek++
	}
	s.clock.DelayMicros(int(s.homing.Settle.Microseconds()))

	// Phase 2: back off to release the switch
	s.SetDirection(true)
	for i := 0; i < s.homing.BackoffPulses; i++ {
		s.Pulse(s.homing.DelayMicros)
	}
	s.clock.DelayMicros(int(s.homing.BackoffSettle.Microseconds()))

	// Phase 3: this is the new origin
	s.CheckFault()
	s.position = 0
	s.log.Info("homing complete", zap.Int("seek_pulses", seek))
	return nil
}

// Name returns the logical axis name
func (s *Stepper) Name() string {
	return s.name
}

// Position returns the current position in millimeters
func (s *Stepper) Position() float64 {
	return s.position
}

// SetPosition sets the current position without moving
func (s *Stepper) SetPosition(posMM float64) {
	s.position = posMM
}

// Limits returns the travel range and whether one is configured
func (s *Stepper) Limits() (minMM, maxMM float64, ok bool) {
	return s.config.MinPosition, s.config.MaxPosition, s.config.HasTravelLimits()
}

// StepsPerMM returns the axis calibration
func (s *Stepper) StepsPerMM() float64 {
	return s.config.StepsPerMM
}

// DirPin returns the direction line identifier
func (s *Stepper) DirPin() core.GPIOPin {
	return s.dirPin
}

// StepPin returns the step line identifier
func (s *Stepper) StepPin() core.GPIOPin {
	return s.stepPin
}

// IsEnabled returns whether the driver is enabled
func (s *Stepper) IsEnabled() bool {
	return s.enabled
}

// PulseWidth returns the minimum step pulse width in microseconds
func (s *Stepper) PulseWidth() int {
	return s.pulseWidth
}

// Stop leaves the step line released
func (s *Stepper) Stop() {
	s.backend.Stop()
}
