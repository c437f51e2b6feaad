//go:build rp2040

package main

// PIO Stepper Backend using tinygo-org/pio package
// This provides hardware-timed step pulses of a fixed width

import (
	"machine"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"

	"bitprint/core"
)

// PIO program for step pulse generation
// Command word format:
//
//	Bits 0-15:  pulse count minus one
//	Bits 16-23: delay loops between pulses
//	Bit 24:     direction line level
//
// Program flow:
//  1. Pull 32-bit command from FIFO
//  2. Extract pulse count into X register
//  3. Extract delay loops into Y register
//  4. Set direction pin
//  5. Generate X+1 pulses with Y loop delays between them
//
// buildStepperProgram creates the stepper PIO program using AssemblerV0
func buildStepperProgram() []uint16 {
	asm := rp2pio.AssemblerV0{SidesetBits: 0}
	return []uint16{
		// .wrap_target
		asm.Pull(false, true).Encode(),          // 0: pull block
		asm.Out(rp2pio.OutDestX, 16).Encode(),   // 1: out x, 16 (pulse count)
		asm.Out(rp2pio.OutDestY, 8).Encode(),    // 2: out y, 8 (delay loops)
		asm.Out(rp2pio.OutDestPins, 1).Encode(), // 3: out pins, 1 (direction)
		// step_loop:
		asm.Set(rp2pio.SetDestPins, 1).Delay(stepHighCycles - 1).Encode(), // 4: set pins, 1 [7]
		asm.Set(rp2pio.SetDestPins, 0).Encode(),                          // 5: set pins, 0
		// delay_loop:
		asm.Jmp(6, rp2pio.JmpYNZeroDec).Encode(), // 6: jmp y--, 6
		asm.Jmp(4, rp2pio.JmpXNZeroDec).Encode(), // 7: jmp x--, 4
		// .wrap
	}
}

const (
	stepperPIOOrigin = 0 // Load at offset 0 for correct jump addresses
	stepHighCycles   = 8 // PIO cycles the step line stays high
	dirBit           = 24
)

// PIO allocation tracking
// RP2040 has 2 PIO blocks (PIO0, PIO1) with 4 state machines each
var (
	pioAllocations = [2][4]bool{} // [pioNum][smNum]
	programLoaded  = [2]bool{}
	programOffset  = [2]uint8{}
)

// PIOStepperBackend implements core.StepperBackend on one PIO state machine
type PIOStepperBackend struct {
	pio        *rp2pio.PIO
	sm         rp2pio.StateMachine
	pioNum     uint8
	stepPin    machine.Pin
	dirPin     machine.Pin
	invertDir  bool
	dirLevel   bool
	widthMicro int
}

// NewPIOStepperBackend creates a new PIO-based stepper backend
// pioNum: 0 for PIO0, 1 for PIO1
// smNum: 0-3 for state machine number
func NewPIOStepperBackend(pioNum, smNum uint8, widthMicros int) *PIOStepperBackend {
	pioHW := rp2pio.PIO0
	if pioNum != 0 {
		pioHW = rp2pio.PIO1
	}

	return &PIOStepperBackend{
		pio:        pioHW,
		sm:         pioHW.StateMachine(smNum),
		pioNum:     pioNum,
		widthMicro: widthMicros,
	}
}

// PIOBackendFactory hands out one state machine per axis, falling back to
// software-timed GPIO pulses once every state machine is taken
func PIOBackendFactory(gpio core.GPIODriver, clock core.Clock, widthMicros int) core.StepperBackendFactory {
	return func(axis string) core.StepperBackend {
		pioNum, smNum, ok := allocatePIO()
		if !ok {
			return core.NewGPIOStepperBackend(gpio, clock)
		}
		return NewPIOStepperBackend(pioNum, smNum, widthMicros)
	}
}

// allocatePIO allocates a free PIO state machine
func allocatePIO() (uint8, uint8, bool) {
	for pioNum := range pioAllocations {
		for smNum := range pioAllocations[pioNum] {
			if !pioAllocations[pioNum][smNum] {
				pioAllocations[pioNum][smNum] = true
				return uint8(pioNum), uint8(smNum), true
			}
		}
	}
	return 0, 0, false
}

// Init initializes the PIO stepper backend
func (b *PIOStepperBackend) Init(stepPin, dirPin core.GPIOPin, invertDir bool) error {
	b.stepPin = machine.Pin(stepPin)
	b.dirPin = machine.Pin(dirPin)
	b.invertDir = invertDir

	// Claim the state machine first
	b.sm.TryClaim()

	// Every state machine of a block shares one copy of the program
	if !programLoaded[b.pioNum] {
		offset, err := b.pio.AddProgram(buildStepperProgram(), stepperPIOOrigin)
		if err != nil {
			return err
		}
		programOffset[b.pioNum] = offset
		programLoaded[b.pioNum] = true
	}
	offset := programOffset[b.pioNum]
	programLen := uint8(len(buildStepperProgram()))

	// Configure pins for PIO
	b.stepPin.Configure(machine.PinConfig{Mode: b.pio.PinMode()})
	b.dirPin.Configure(machine.PinConfig{Mode: b.pio.PinMode()})

	cfg := rp2pio.DefaultStateMachineConfig()
	cfg.SetSetPins(b.stepPin, 1)
	cfg.SetOutPins(b.dirPin, 1)

	// Shift right, explicit PULL, 32-bit threshold
	cfg.SetOutShift(true, false, 32)
	cfg.SetWrap(offset+programLen-1, offset)

	// Slow the state machine so stepHighCycles last the configured pulse width
	whole, frac := clockDivider(machine.CPUFrequency(), b.widthMicro)
	cfg.SetClkDivIntFrac(whole, frac)

	// Initialize state machine before setting pin directions
	b.sm.Init(offset, cfg)
	b.sm.SetPindirsConsecutive(b.stepPin, 1, true)
	b.sm.SetPindirsConsecutive(b.dirPin, 1, true)
	b.sm.SetPinsConsecutive(b.stepPin, 1, false)
	b.sm.SetPinsConsecutive(b.dirPin, 1, false)

	b.sm.SetEnabled(true)
	return nil
}

// clockDivider returns the integer and 1/256 fractional divider that makes
// stepHighCycles span widthMicros
func clockDivider(cpuHz uint32, widthMicros int) (uint16, uint8) {
	div := float64(cpuHz) / 1e6 * float64(widthMicros) / stepHighCycles
	if div < 1 {
		return 1, 0
	}
	if div > 65535 {
		return 65535, 0
	}
	whole := uint16(div)
	frac := uint8((div - float64(whole)) * 256)
	return whole, frac
}

// Step queues a single pulse. The width is fixed by the state machine clock.
func (b *PIOStepperBackend) Step(widthMicros int) {
	cmd := uint32(0) // one pulse, no trailing delay
	if b.dirLevel {
		cmd |= 1 << dirBit
	}

	// Wait for FIFO space and write
	for b.sm.IsTxFIFOFull() {
	}
	b.sm.TxPut(cmd)
}

// SetDirection sets the direction level sent with the next pulse
func (b *PIOStepperBackend) SetDirection(forward bool) {
	b.dirLevel = forward != b.invertDir
}

// Stop halts the PIO state machine and drops queued pulses
func (b *PIOStepperBackend) Stop() {
	b.sm.SetEnabled(false)
	b.sm.ClearFIFOs()
	b.sm.Restart()
	b.sm.SetEnabled(true)
}

// GetName returns the backend name
func (b *PIOStepperBackend) GetName() string {
	return "PIO"
}
