package core

// PinMode records how a simulated pin was configured
type PinMode uint8

const (
	PinUnconfigured PinMode = iota
	PinOutput
	PinInputPullUp
	PinInputPullDown
)

// SimGPIO is an in-memory GPIODriver. It records output levels and rising
// edges, and lets callers script input levels. Host dry runs and tests use it.
type SimGPIO struct {
	modes  map[GPIOPin]PinMode
	levels map[GPIOPin]bool
	rises  map[GPIOPin]int
	inputs map[GPIOPin]func() bool
	fails  map[GPIOPin]error
}

// NewSimGPIO creates an empty simulated GPIO bank
func NewSimGPIO() *SimGPIO {
	return &SimGPIO{
		modes:  make(map[GPIOPin]PinMode),
		levels: make(map[GPIOPin]bool),
		rises:  make(map[GPIOPin]int),
		inputs: make(map[GPIOPin]func() bool),
		fails:  make(map[GPIOPin]error),
	}
}

// ConfigureOutput configures a pin as a digital output
func (g *SimGPIO) ConfigureOutput(pin GPIOPin) error {
	return g.configure(pin, PinOutput)
}

// ConfigureInputPullUp configures a pin as an input idling high
func (g *SimGPIO) ConfigureInputPullUp(pin GPIOPin) error {
	if err := g.configure(pin, PinInputPullUp); err != nil {
		return err
	}
	if _, ok := g.inputs[pin]; !ok {
		g.levels[pin] = true
	}
	return nil
}

// ConfigureInputPullDown configures a pin as an input idling low
func (g *SimGPIO) ConfigureInputPullDown(pin GPIOPin) error {
	return g.configure(pin, PinInputPullDown)
}

// configure records the mode; the last configuration of a shared pin wins,
// as on the microcontroller
func (g *SimGPIO) configure(pin GPIOPin, mode PinMode) error {
	g.modes[pin] = mode
	return nil
}

// SetPin sets the pin to high (true) or low (false), counting rising edges
func (g *SimGPIO) SetPin(pin GPIOPin, value bool) error {
	if err := g.fails[pin]; err != nil {
		return err
	}
	if value && !g.levels[pin] {
		g.rises[pin]++
	}
	g.levels[pin] = value
	return nil
}

// GetPin reads the current pin state, consulting scripted inputs first
func (g *SimGPIO) GetPin(pin GPIOPin) (bool, error) {
	if fn, ok := g.inputs[pin]; ok {
		return fn(), nil
	}
	return g.levels[pin], nil
}

// ReadPin reads the current pin state
func (g *SimGPIO) ReadPin(pin GPIOPin) bool {
	v, _ := g.GetPin(pin)
	return v
}

// SetInput scripts the level reported for pin
func (g *SimGPIO) SetInput(pin GPIOPin, fn func() bool) {
	g.inputs[pin] = fn
}

// FailWrites makes every later SetPin on pin return err; nil clears it
func (g *SimGPIO) FailWrites(pin GPIOPin, err error) {
	if err == nil {
		delete(g.fails, pin)
		return
	}
	g.fails[pin] = err
}

// Level returns the last level driven onto pin
func (g *SimGPIO) Level(pin GPIOPin) bool {
	return g.levels[pin]
}

// Mode returns how pin was configured
func (g *SimGPIO) Mode(pin GPIOPin) PinMode {
	return g.modes[pin]
}

// Rises returns the number of low-to-high transitions driven onto pin
func (g *SimGPIO) Rises(pin GPIOPin) int {
	return g.rises[pin]
}

// ResetCounts clears all rising-edge counters
func (g *SimGPIO) ResetCounts() {
	g.rises = make(map[GPIOPin]int)
}
