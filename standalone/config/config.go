package config

import (
	"fmt"
	"strings"
	"time"

	"bitprint/core"
	"bitprint/standalone"
)

// AxisConfig represents configuration for a single axis
type AxisConfig struct {
	StepPin         string  `mapstructure:"step_pin"`          // GPIO pin for step pulses
	DirPin          string  `mapstructure:"dir_pin"`           // GPIO pin for direction
	EnablePin       string  `mapstructure:"enable_pin"`        // GPIO pin for enable (optional)
	LimitPin        string  `mapstructure:"limit_pin"`         // Limit switch input (optional)
	StepsPerMM      float64 `mapstructure:"steps_per_mm"`      // Steps per millimeter
	MinPosition     float64 `mapstructure:"min_position"`      // Minimum position (mm)
	MaxPosition     float64 `mapstructure:"max_position"`      // Maximum position (mm)
	InvertDir       bool    `mapstructure:"invert_dir"`        // Invert direction signal
	EnableActiveLow bool    `mapstructure:"enable_active_low"` // Driver enabled while the enable line is low
	LimitActiveLow  bool    `mapstructure:"limit_active_low"`  // Limit switch pulls its line low when triggered
}

// HasTravelLimits reports whether a travel range is configured.
// An empty range (max <= min) leaves the axis unbounded.
func (a AxisConfig) HasTravelLimits() bool {
	return a.MaxPosition > a.MinPosition
}

// HomingConfig controls the limit-switch homing cycle
type HomingConfig struct {
	DelayMicros   int           `mapstructure:"delay_us"`       // Pulse delay while seeking and backing off
	BackoffPulses int           `mapstructure:"backoff_pulses"` // Pulses emitted to clear the switch
	Settle        time.Duration `mapstructure:"settle"`         // Pause after the switch triggers
	BackoffSettle time.Duration `mapstructure:"backoff_settle"` // Pause after backing off
	Timeout       time.Duration `mapstructure:"timeout"`        // Give up seeking after this long
}

// StorageConfig locates source and cache files
type StorageConfig struct {
	Dir       string   `mapstructure:"dir"`        // Directory holding the files
	SourceExt []string `mapstructure:"source_ext"` // Extensions of source command files
	CacheExt  string   `mapstructure:"cache_ext"`  // Extension of translated files
}

// ConsoleConfig selects the interactive console
type ConsoleConfig struct {
	Device string `mapstructure:"device"` // Serial device; empty for stdin/stdout
	Baud   int    `mapstructure:"baud"`
}

// Machine is the complete, immutable machine configuration. It is built once
// at startup and handed to every component that needs it.
type Machine struct {
	X AxisConfig `mapstructure:"x"`
	Y AxisConfig `mapstructure:"y"`
	Z AxisConfig `mapstructure:"z"`
	E AxisConfig `mapstructure:"e"`

	ZOffset            float64 `mapstructure:"z_offset"`          // Added to every translated Z coordinate
	MinPulseWidthMicros int    `mapstructure:"min_pulse_width_us"` // Step line high time
	DefaultDelayMicros  int    `mapstructure:"default_delay_us"`   // Playback delay until a speed token is seen

	Homing  HomingConfig  `mapstructure:"homing"`
	Storage StorageConfig `mapstructure:"storage"`
	Console ConsoleConfig `mapstructure:"console"`
}

// Axis returns the configuration of one axis
func (m *Machine) Axis(a standalone.Axis) AxisConfig {
	switch a {
	case standalone.AxisX:
		return m.X
	case standalone.AxisY:
		return m.Y
	case standalone.AxisZ:
		return m.Z
	default:
		return m.E
	}
}

// BeltStepsPerMM computes the calibration of a belt-driven axis
func BeltStepsPerMM(motorRevSteps, microSteps, pulleyTeeth int, beltPitch float64) float64 {
	return float64(motorRevSteps*microSteps) / (float64(pulleyTeeth) * beltPitch)
}

// Default returns the configuration of the reference machine:
// 200-step motors at 4 microsteps on 20-tooth GT2 pulleys.
func Default() *Machine {
	stepsPerMM := BeltStepsPerMM(200, 4, 20, 2.0)
	axis := func(step, dir, enable, limit string) AxisConfig {
		return AxisConfig{
			StepPin:         step,
			DirPin:          dir,
			EnablePin:       enable,
			LimitPin:        limit,
			StepsPerMM:      stepsPerMM,
			EnableActiveLow: true,
			LimitActiveLow:  true,
		}
	}

	return &Machine{
		X:                   axis("gpio28", "gpio26", "gpio5", "gpio40"),
		Y:                   axis("gpio24", "gpio22", "gpio8", "gpio40"),
		Z:                   axis("gpio32", "gpio30", "gpio9", "gpio40"),
		E:                   axis("gpio50", "gpio50", "gpio50", ""),
		ZOffset:             0,
		MinPulseWidthMicros: 10,
		DefaultDelayMicros:  500,
		Homing: HomingConfig{
			DelayMicros:   400,
			BackoffPulses: 10,
			Settle:        200 * time.Millisecond,
			BackoffSettle: 500 * time.Millisecond,
			Timeout:       30 * time.Second,
		},
		Storage: StorageConfig{
			Dir:       ".",
			SourceExt: []string{".gco", ".GCO"},
			CacheExt:  ".TXT",
		},
		Console: ConsoleConfig{
			Baud: 115200,
		},
	}
}

// Validate checks the configuration once at startup
func (m *Machine) Validate() error {
	for _, a := range standalone.Axes {
		ac := m.Axis(a)
		if ac.StepsPerMM <= 0 {
			return fmt.Errorf("%w: %s axis steps_per_mm must be positive", standalone.ErrConfig, a)
		}
		if _, err := core.ParsePin(ac.StepPin); err != nil {
			return fmt.Errorf("%w: %s axis step_pin: %v", standalone.ErrConfig, a, err)
		}
		if _, err := core.ParsePin(ac.DirPin); err != nil {
			return fmt.Errorf("%w: %s axis dir_pin: %v", standalone.ErrConfig, a, err)
		}
		for _, opt := range []struct{ name, pin string }{{"enable_pin", ac.EnablePin}, {"limit_pin", ac.LimitPin}} {
			if opt.pin == "" {
				continue
			}
			if _, err := core.ParsePin(opt.pin); err != nil {
				return fmt.Errorf("%w: %s axis %s: %v", standalone.ErrConfig, a, opt.name, err)
			}
		}
	}

	if m.MinPulseWidthMicros <= 0 {
		return fmt.Errorf("%w: min_pulse_width_us must be positive", standalone.ErrConfig)
	}
	if m.DefaultDelayMicros <= m.MinPulseWidthMicros {
		return fmt.Errorf("%w: default_delay_us must exceed min_pulse_width_us", standalone.ErrConfig)
	}
	if m.Homing.DelayMicros <= m.MinPulseWidthMicros {
		return fmt.Errorf("%w: homing.delay_us must exceed min_pulse_width_us", standalone.ErrConfig)
	}
	if m.Homing.BackoffPulses < 0 {
		return fmt.Errorf("%w: homing.backoff_pulses must not be negative", standalone.ErrConfig)
	}
	if m.Homing.Timeout <= 0 {
		return fmt.Errorf("%w: homing.timeout must be positive", standalone.ErrConfig)
	}
	if len(m.Storage.SourceExt) == 0 || m.Storage.CacheExt == "" {
		return fmt.Errorf("%w: storage extensions must be set", standalone.ErrConfig)
	}
	for _, ext := range m.Storage.SourceExt {
		if strings.EqualFold(ext, m.Storage.CacheExt) {
			return fmt.Errorf("%w: source extension %q collides with cache_ext", standalone.ErrConfig, ext)
		}
	}
	return nil
}
