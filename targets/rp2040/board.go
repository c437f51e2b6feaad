//go:build rp2040

package main

import (
	"machine"

	"bitprint/standalone/config"
)

// SD card wiring
var (
	sdBus = machine.SPI0
	sdSCK = machine.GPIO18
	sdSDO = machine.GPIO19
	sdSDI = machine.GPIO16
	sdCS  = machine.GPIO17
)

// boardConfig returns the machine configuration for the RP2040 controller
// board. Calibration and timing follow the reference machine; only the
// pins differ, since the RP2040 has GPIO0-GPIO29.
func boardConfig() *config.Machine {
	cfg := config.Default()

	cfg.X.StepPin, cfg.X.DirPin, cfg.X.EnablePin, cfg.X.LimitPin = "gpio2", "gpio3", "gpio4", "gpio26"
	cfg.Y.StepPin, cfg.Y.DirPin, cfg.Y.EnablePin, cfg.Y.LimitPin = "gpio5", "gpio6", "gpio7", "gpio27"
	cfg.Z.StepPin, cfg.Z.DirPin, cfg.Z.EnablePin, cfg.Z.LimitPin = "gpio8", "gpio9", "gpio10", "gpio28"
	cfg.E.StepPin, cfg.E.DirPin, cfg.E.EnablePin, cfg.E.LimitPin = "gpio11", "gpio12", "gpio13", ""

	cfg.Storage.Dir = "/"
	return cfg
}
