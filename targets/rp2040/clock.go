//go:build rp2040

package main

import (
	"runtime/volatile"
	"unsafe"
)

// RP2040 Timer peripheral memory map
const (
	timerBase     = 0x40054000
	timerTIMERAWH = timerBase + 0x24 // Raw timer high word
	timerTIMERAWL = timerBase + 0x28 // Raw timer low word
)

var (
	timerRAWH = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWH)))
	timerRAWL = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWL)))
)

// HardwareClock implements core.Clock on the RP2040's free-running 1MHz timer
type HardwareClock struct{}

// GetHardwareUptime reads the full 64-bit RP2040 hardware timer
func GetHardwareUptime() uint64 {
	// Must read high first, then low, then high again to detect rollover
	for {
		high1 := timerRAWH.Get()
		low := timerRAWL.Get()
		high2 := timerRAWH.Get()

		// If high didn't change, we got a consistent reading
		if high1 == high2 {
			return (uint64(high1) << 32) | uint64(low)
		}
	}
}

// NowMicros returns microseconds since boot
func (HardwareClock) NowMicros() int64 {
	return int64(GetHardwareUptime())
}

// DelayMicros spins on the hardware timer
func (HardwareClock) DelayMicros(us int) {
	if us <= 0 {
		return
	}
	deadline := GetHardwareUptime() + uint64(us)
	for GetHardwareUptime() < deadline {
	}
}
