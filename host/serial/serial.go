package serial

import (
	"io"

	"bitprint/standalone/config"
)

// Port represents a serial port interface.
// The native implementation uses github.com/tarm/serial; tests can hand the
// console any io.ReadWriter instead.
type Port interface {
	io.ReadWriteCloser

	// Flush discards data received but not yet read
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyACM0", "COM3")
	Device string

	// Baud rate (the board's console runs at 115200)
	Baud int

	// Read timeout in milliseconds (0 = blocking)
	ReadTimeout int
}

// DefaultConfig returns the configuration of the board's console port
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        115200,
		ReadTimeout: 0, // The operator types at their own pace
	}
}

// FromConsole builds a port configuration from the machine's console
// settings. The device argument, when set, overrides the configured one.
func FromConsole(cc config.ConsoleConfig, device string) *Config {
	cfg := DefaultConfig(cc.Device)
	if device != "" {
		cfg.Device = device
	}
	if cc.Baud > 0 {
		cfg.Baud = cc.Baud
	}
	return cfg
}
