//go:build rp2040

package main

import (
	"fmt"
	"machine"

	"bitprint/core"
)

// numGPIO is the number of user GPIOs on the RP2040 (GPIO0-GPIO29)
const numGPIO = 30

// RPGPIODriver implements the GPIODriver interface for RP2040
type RPGPIODriver struct {
	// Track configured pins to prevent conflicts
	configuredPins map[core.GPIOPin]machine.Pin
}

// NewRPGPIODriver creates a new RP2040 GPIO driver
func NewRPGPIODriver() *RPGPIODriver {
	return &RPGPIODriver{
		configuredPins: make(map[core.GPIOPin]machine.Pin),
	}
}

func (d *RPGPIODriver) configure(pin core.GPIOPin, mode machine.PinMode) error {
	if pin >= numGPIO {
		return fmt.Errorf("%w: gpio%d (RP2040 has gpio0-gpio%d)", core.ErrInvalidPin, pin, numGPIO-1)
	}
	// For RP2040, pins map directly to GPIO numbers
	machinePin := machine.Pin(pin)
	machinePin.Configure(machine.PinConfig{Mode: mode})
	d.configuredPins[pin] = machinePin
	return nil
}

// ConfigureOutput configures a pin as a digital output
func (d *RPGPIODriver) ConfigureOutput(pin core.GPIOPin) error {
	return d.configure(pin, machine.PinOutput)
}

// ConfigureInputPullUp configures a pin as an input with pull-up resistor
func (d *RPGPIODriver) ConfigureInputPullUp(pin core.GPIOPin) error {
	return d.configure(pin, machine.PinInputPullup)
}

// ConfigureInputPullDown configures a pin as an input with pull-down resistor
func (d *RPGPIODriver) ConfigureInputPullDown(pin core.GPIOPin) error {
	return d.configure(pin, machine.PinInputPulldown)
}

// SetPin sets the pin to high (true) or low (false)
func (d *RPGPIODriver) SetPin(pin core.GPIOPin, value bool) error {
	machinePin, exists := d.configuredPins[pin]
	if !exists {
		// Pin isn't configured - configure it first
		if err := d.ConfigureOutput(pin); err != nil {
			return err
		}
		machinePin = d.configuredPins[pin]
	}

	machinePin.Set(value)
	return nil
}

// GetPin reads the current pin state
func (d *RPGPIODriver) GetPin(pin core.GPIOPin) (bool, error) {
	machinePin, exists := d.configuredPins[pin]
	if !exists {
		return false, fmt.Errorf("gpio%d not configured", pin)
	}
	return machinePin.Get(), nil
}

// ReadPin is a convenience wrapper around GetPin that returns just the bool value
func (d *RPGPIODriver) ReadPin(pin core.GPIOPin) bool {
	value, _ := d.GetPin(pin)
	return value
}
