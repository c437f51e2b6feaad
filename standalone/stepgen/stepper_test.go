package stepgen

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"bitprint/core"
	"bitprint/standalone"
	"bitprint/standalone/config"
)

type rig struct {
	s     *Stepper
	gpio  *core.SimGPIO
	clock *core.SimClock
	axis  config.AxisConfig
}

func newRig(t *testing.T, axis config.AxisConfig, cfg *config.Machine) *rig {
	t.Helper()
	r := &rig{gpio: core.NewSimGPIO(), clock: core.NewSimClock(), axis: axis}
	r.s = NewStepper("x", axis, cfg, nil)
	require.NoError(t, r.s.InitPins(r.gpio, r.clock, core.NewGPIOStepperBackend(r.gpio, r.clock)))
	r.gpio.ResetCounts()
	return r
}

func (r *rig) pin(t *testing.T, name string) core.GPIOPin {
	t.Helper()
	p, err := core.ParsePin(name)
	require.NoError(t, err)
	return p
}

func (r *rig) setLimit(t *testing.T, fn func() bool) {
	r.gpio.SetInput(r.pin(t, r.axis.LimitPin), fn)
}

func TestInitPinsStartsDisabled(t *testing.T) {
	cfg := config.Default()
	r := newRig(t, cfg.X, cfg)

	assert.False(t, r.s.IsEnabled())
	_, _, limited := r.s.Limits()
	assert.False(t, limited)
	// Active-low enable: disabled drives the line high
	assert.True(t, r.gpio.Level(r.pin(t, cfg.X.EnablePin)))
	assert.Equal(t, core.PinInputPullUp, r.gpio.Mode(r.pin(t, cfg.X.LimitPin)))
	assert.Equal(t, core.PinOutput, r.gpio.Mode(r.s.StepPin()))

	r.s.Enable()
	assert.True(t, r.s.IsEnabled())
	assert.False(t, r.gpio.Level(r.pin(t, cfg.X.EnablePin)))
}

func TestInitPinsRejectsBadPin(t *testing.T) {
	cfg := config.Default()
	axis := cfg.X
	axis.StepPin = "bogus"

	s := NewStepper("x", axis, cfg, nil)
	gpio := core.NewSimGPIO()
	clock := core.NewSimClock()
	assert.ErrorIs(t, s.InitPins(gpio, clock, core.NewGPIOStepperBackend(gpio, clock)), core.ErrInvalidPin)
}

func TestPulseTiming(t *testing.T) {
	cfg := config.Default()
	r := newRig(t, cfg.X, cfg)
	start := r.clock.NowMicros()

	r.s.Pulse(500)
	assert.Equal(t, 1, r.gpio.Rises(r.s.StepPin()))
	assert.False(t, r.gpio.Level(r.s.StepPin()))
	assert.Equal(t, int64(500), r.clock.NowMicros()-start)
}

func TestMoveDirect(t *testing.T) {
	cfg := config.Default()
	r := newRig(t, cfg.X, cfg)

	require.NoError(t, r.s.MoveDirect(2.5, 100))
	assert.Equal(t, 50, r.gpio.Rises(r.s.StepPin()))
	assert.True(t, r.gpio.Level(r.s.DirPin()), "forward drives direction high")
	assert.Equal(t, 2.5, r.s.Position())

	r.gpio.ResetCounts()
	require.NoError(t, r.s.MoveDirect(1, 100))
	assert.Equal(t, 30, r.gpio.Rises(r.s.StepPin()))
	assert.False(t, r.gpio.Level(r.s.DirPin()))
	assert.Equal(t, 1.0, r.s.Position())
}

func TestMoveDirectInvertedDirection(t *testing.T) {
	cfg := config.Default()
	axis := cfg.X
	axis.InvertDir = true
	r := newRig(t, axis, cfg)

	require.NoError(t, r.s.MoveDirect(1, 100))
	assert.False(t, r.gpio.Level(r.s.DirPin()))
}

func TestMoveDirectRefusals(t *testing.T) {
	cfg := config.Default()
	axis := cfg.X
	axis.MinPosition = 0
	axis.MaxPosition = 100
	r := newRig(t, axis, cfg)

	lo, hi, ok := r.s.Limits()
	require.True(t, ok)
	assert.Equal(t, [2]float64{0, 100}, [2]float64{lo, hi})

	err := r.s.MoveDirect(150, 100)
	assert.ErrorIs(t, err, standalone.ErrTravelLimit)
	err = r.s.MoveDirect(-1, 100)
	assert.ErrorIs(t, err, standalone.ErrTravelLimit)
	err = r.s.MoveDirect(10, cfg.MinPulseWidthMicros)
	assert.ErrorIs(t, err, standalone.ErrPulseDelay)

	assert.Equal(t, 0, r.gpio.Rises(r.s.StepPin()))
	assert.Equal(t, 0.0, r.s.Position())
}

func TestHome(t *testing.T) {
	cfg := config.Default()
	r := newRig(t, cfg.X, cfg)
	r.s.SetPosition(42)

	// Active-low switch closes after 25 reads
	reads := 0
	r.setLimit(t, func() bool {
		reads++
		return reads <= 25
	})

	require.NoError(t, r.s.Home())
	assert.Equal(t, 0.0, r.s.Position())
	assert.Equal(t, 25+cfg.Homing.BackoffPulses, r.gpio.Rises(r.s.StepPin()))
	assert.True(t, r.gpio.Level(r.s.DirPin()), "backoff drives forward")
}

func TestHomeTimeout(t *testing.T) {
	cfg := config.Default()
	cfg.Homing.Timeout = 10 * time.Millisecond
	r := newRig(t, cfg.X, cfg)
	r.s.SetPosition(7)
	r.setLimit(t, func() bool { return true })

	err := r.s.Home()
	assert.ErrorIs(t, err, standalone.ErrHomingTimeout)
	assert.Equal(t, 7.0, r.s.Position())
	// 10ms at 400us per pulse
	assert.Equal(t, 25, r.gpio.Rises(r.s.StepPin()))
}

func TestHomeWithoutLimitSwitch(t *testing.T) {
	cfg := config.Default()
	r := newRig(t, cfg.E, cfg)

	assert.ErrorIs(t, r.s.Home(), standalone.ErrNoLimitSwitch)
}

func TestHomeActiveHighSwitch(t *testing.T) {
	cfg := config.Default()
	axis := cfg.Y
	axis.LimitActiveLow = false
	r := newRig(t, axis, cfg)
	assert.Equal(t, core.PinInputPullDown, r.gpio.Mode(r.pin(t, axis.LimitPin)))

	r.setLimit(t, func() bool { return true })
	require.NoError(t, r.s.Home())
	assert.Equal(t, cfg.Homing.BackoffPulses, r.gpio.Rises(r.s.StepPin()))
}

func TestLineFailuresAreLogged(t *testing.T) {
	cfg := config.Default()
	obsCore, logs := observer.New(zap.ErrorLevel)

	gpio := core.NewSimGPIO()
	clock := core.NewSimClock()
	s := NewStepper("x", cfg.X, cfg, zap.New(obsCore))
	require.NoError(t, s.InitPins(gpio, clock, core.NewGPIOStepperBackend(gpio, clock)))
	require.Zero(t, logs.Len())

	dead := errors.New("driver unplugged")
	enPin, err := core.ParsePin(cfg.X.EnablePin)
	require.NoError(t, err)
	gpio.FailWrites(enPin, dead)

	s.Enable()
	entries := logs.FilterMessage("driver enable line write failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "x", entries[0].ContextMap()["axis"])
	assert.Equal(t, true, entries[0].ContextMap()["enable"])

	gpio.FailWrites(s.StepPin(), dead)
	require.NoError(t, s.MoveDirect(1, 100))
	assert.Equal(t, 1, logs.FilterMessage("step line write failed").Len())
	assert.NoError(t, s.CheckFault())
}
