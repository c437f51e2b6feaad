//go:build rp2040

package main

import (
	"machine"
	"time"
)

// InitUSB initializes USB serial communication.
// On RP2040, machine.Serial is USB CDC, not UART.
func InitUSB() {
	machine.Serial.Configure(machine.UARTConfig{})
}

// usbConsole adapts machine.Serial to io.ReadWriter. Read blocks until at
// least one byte has arrived, so a line reader waits for the operator.
type usbConsole struct{}

func (usbConsole) Read(p []byte) (int, error) {
	for machine.Serial.Buffered() == 0 {
		time.Sleep(time.Millisecond)
	}
	n := 0
	for n < len(p) && machine.Serial.Buffered() > 0 {
		b, err := machine.Serial.ReadByte()
		if err != nil {
			return n, err
		}
		p[n] = b
		n++
	}
	return n, nil
}

func (usbConsole) Write(p []byte) (int, error) {
	return machine.Serial.Write(p)
}
