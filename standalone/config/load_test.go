//go:build !tinygo

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bitprint/standalone"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, "machine.yaml", `
x:
  steps_per_mm: 80
  min_position: 0
  max_position: 200
  invert_dir: true
z_offset: 0.2
homing:
  timeout: 5s
  backoff_pulses: 20
storage:
  dir: /sd
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 80.0, cfg.X.StepsPerMM)
	assert.True(t, cfg.X.InvertDir)
	assert.True(t, cfg.X.HasTravelLimits())
	assert.Equal(t, "gpio28", cfg.X.StepPin, "unset keys keep their defaults")
	assert.Equal(t, 0.2, cfg.ZOffset)
	assert.Equal(t, 5*time.Second, cfg.Homing.Timeout)
	assert.Equal(t, 20, cfg.Homing.BackoffPulses)
	assert.Equal(t, 200*time.Millisecond, cfg.Homing.Settle)
	assert.Equal(t, "/sd", cfg.Storage.Dir)
	assert.Equal(t, 20.0, cfg.Y.StepsPerMM)
}

func TestLoadJSON(t *testing.T) {
	path := writeConfig(t, "machine.json", `{"e": {"steps_per_mm": 93}, "default_delay_us": 800}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 93.0, cfg.E.StepsPerMM)
	assert.Equal(t, 800, cfg.DefaultDelayMicros)
}

func TestLoadEnvironmentOverride(t *testing.T) {
	t.Setenv("BITPRINT_Z_OFFSET", "1.5")
	t.Setenv("BITPRINT_HOMING_TIMEOUT", "2s")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 1.5, cfg.ZOffset)
	assert.Equal(t, 2*time.Second, cfg.Homing.Timeout)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, standalone.ErrConfig)

	path := writeConfig(t, "bad.yaml", "y:\n  steps_per_mm: 0\n")
	_, err = Load(path)
	assert.ErrorIs(t, err, standalone.ErrConfig)
}
