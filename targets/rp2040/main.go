//go:build rp2040

// Firmware for an RP2040 controller board: files live on an SD card and the
// operator picks one over the USB serial console.
package main

import (
	"context"
	"machine"
	"time"

	"go.uber.org/zap"

	"bitprint/core"
	"bitprint/standalone/console"
	bpmachine "bitprint/standalone/machine"
)

func main() {
	InitUSB()
	usb := usbConsole{}
	log := core.NewLogger(usb, false)

	cfg := boardConfig()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid board configuration", zap.Error(err))
		halt()
	}

	log.Info("initializing SD card")
	store, err := MountSD(sdBus, sdSCK, sdSDO, sdSDI, sdCS, cfg.Storage.Dir)
	if err != nil {
		log.Error("SD init failed", zap.Error(err))
		halt()
	}
	log.Info("SD card ready")

	gpio := NewRPGPIODriver()
	clock := HardwareClock{}
	mgr := bpmachine.New(cfg, store, log)
	if err := mgr.Initialize(gpio, clock, PIOBackendFactory(gpio, clock, cfg.MinPulseWidthMicros)); err != nil {
		log.Error("axis init failed", zap.Error(err))
		halt()
	}

	term := console.New(store, cfg.Storage, usb, usb)
	for {
		file, err := term.Select()
		if err != nil {
			log.Warn("no file selected", zap.Error(err))
			continue
		}

		rep, status, err := mgr.Run(context.Background(), file)
		if err != nil {
			log.Error("print aborted", zap.String("file", file), zap.Error(err))
		} else {
			log.Info("print finished",
				zap.String("file", file),
				zap.Stringer("cache", status),
				zap.Int("moves", rep.Moves),
				zap.Int("refused", rep.Refused))
		}
		if err := mgr.DisableAll(); err != nil {
			log.Error("disable failed", zap.Error(err))
		}
	}
}

// halt flashes the LED rapidly forever to indicate a fatal error
func halt() {
	led := machine.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})
	for {
		led.High()
		time.Sleep(100 * time.Millisecond)
		led.Low()
		time.Sleep(100 * time.Millisecond)
	}
}
