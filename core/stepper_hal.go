package core

import "fmt"

// StepperBackend defines the hardware abstraction for stepper control
// Implementations can use GPIO, PIO, or other methods
type StepperBackend interface {
	// Init initializes the stepper hardware
	// stepPin: GPIO pin for step pulses
	// dirPin: GPIO pin for direction signal
	// invertDir: invert direction pin polarity
	Init(stepPin, dirPin GPIOPin, invertDir bool) error

	// Step asserts the step line for widthMicros and releases it
	Step(widthMicros int)

	// SetDirection sets the direction output
	// forward: true drives the axis towards positive coordinates
	SetDirection(forward bool)

	// Stop leaves the step line released
	Stop()

	// GetName returns backend implementation name
	GetName() string
}

// FaultReporter is implemented by backends whose line writes can fail
type FaultReporter interface {
	// TakeFault returns the first write failure since the last call
	TakeFault() error
}

// StepperBackendFactory creates a backend for the named axis
type StepperBackendFactory func(axis string) StepperBackend

// GPIOStepperBackend drives step and direction lines through a GPIODriver,
// timing the pulse width with a Clock.
type GPIOStepperBackend struct {
	gpio      GPIODriver
	clock     Clock
	stepPin   GPIOPin
	dirPin    GPIOPin
	invertDir bool
	fault     error
}

// NewGPIOStepperBackend creates a software-timed backend
func NewGPIOStepperBackend(gpio GPIODriver, clock Clock) *GPIOStepperBackend {
	return &GPIOStepperBackend{gpio: gpio, clock: clock}
}

// GPIOBackendFactory returns a factory producing software-timed backends
func GPIOBackendFactory(gpio GPIODriver, clock Clock) StepperBackendFactory {
	return func(string) StepperBackend {
		return NewGPIOStepperBackend(gpio, clock)
	}
}

// Init configures both lines as outputs and drives them low
func (b *GPIOStepperBackend) Init(stepPin, dirPin GPIOPin, invertDir bool) error {
	b.stepPin = stepPin
	b.dirPin = dirPin
	b.invertDir = invertDir

	if err := b.gpio.ConfigureOutput(stepPin); err != nil {
		return err
	}
	if err := b.gpio.ConfigureOutput(dirPin); err != nil {
		return err
	}
	if err := b.gpio.SetPin(stepPin, false); err != nil {
		return err
	}
	return b.gpio.SetPin(dirPin, false)
}

// Step generates a single step pulse
func (b *GPIOStepperBackend) Step(widthMicros int) {
	b.set(b.stepPin, true)
	b.clock.DelayMicros(widthMicros)
	b.set(b.stepPin, false)
}

// SetDirection sets the direction output
func (b *GPIOStepperBackend) SetDirection(forward bool) {
	b.set(b.dirPin, forward != b.invertDir)
}

// Stop ensures the step pin is low
func (b *GPIOStepperBackend) Stop() {
	b.set(b.stepPin, false)
}

// TakeFault implements FaultReporter
func (b *GPIOStepperBackend) TakeFault() error {
	err := b.fault
	b.fault = nil
	return err
}

// set writes a line, keeping the first failure for TakeFault
func (b *GPIOStepperBackend) set(pin GPIOPin, level bool) {
	if err := b.gpio.SetPin(pin, level); err != nil && b.fault == nil {
		b.fault = fmt.Errorf("pin %d: %w", pin, err)
	}
}

// GetName returns the backend name
func (b *GPIOStepperBackend) GetName() string {
	return "GPIO"
}
