//go:build !tinygo

package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"bitprint/standalone"
)

// Load reads a YAML or JSON configuration file on top of Default.
// Environment variables prefixed BITPRINT_ override file values
// (BITPRINT_Z_OFFSET, BITPRINT_HOMING_TIMEOUT, ...).
func Load(path string) (*Machine, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix("BITPRINT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		switch strings.ToLower(filepath.Ext(path)) {
		case ".json":
			v.SetConfigType("json")
		default:
			v.SetConfigType("yaml")
		}
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w: failed to read config: %v", standalone.ErrConfig, err)
		}
	}

	var cfg Machine
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal config: %v", standalone.ErrConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults registers every field of d so file and environment values
// are layered on top of it
func setDefaults(v *viper.Viper, d *Machine) {
	for _, a := range standalone.Axes {
		ac := d.Axis(a)
		p := a.String() + "."
		v.SetDefault(p+"step_pin", ac.StepPin)
		v.SetDefault(p+"dir_pin", ac.DirPin)
		v.SetDefault(p+"enable_pin", ac.EnablePin)
		v.SetDefault(p+"limit_pin", ac.LimitPin)
		v.SetDefault(p+"steps_per_mm", ac.StepsPerMM)
		v.SetDefault(p+"min_position", ac.MinPosition)
		v.SetDefault(p+"max_position", ac.MaxPosition)
		v.SetDefault(p+"invert_dir", ac.InvertDir)
		v.SetDefault(p+"enable_active_low", ac.EnableActiveLow)
		v.SetDefault(p+"limit_active_low", ac.LimitActiveLow)
	}

	v.SetDefault("z_offset", d.ZOffset)
	v.SetDefault("min_pulse_width_us", d.MinPulseWidthMicros)
	v.SetDefault("default_delay_us", d.DefaultDelayMicros)

	v.SetDefault("homing.delay_us", d.Homing.DelayMicros)
	v.SetDefault("homing.backoff_pulses", d.Homing.BackoffPulses)
	v.SetDefault("homing.settle", d.Homing.Settle.String())
	v.SetDefault("homing.backoff_settle", d.Homing.BackoffSettle.String())
	v.SetDefault("homing.timeout", d.Homing.Timeout.String())

	v.SetDefault("storage.dir", d.Storage.Dir)
	v.SetDefault("storage.source_ext", d.Storage.SourceExt)
	v.SetDefault("storage.cache_ext", d.Storage.CacheExt)

	v.SetDefault("console.device", d.Console.Device)
	v.SetDefault("console.baud", d.Console.Baud)
}
