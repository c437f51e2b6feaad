package planner

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"bitprint/standalone"
	"bitprint/standalone/kinematics"
	"bitprint/standalone/stepgen"
)

// Ramp shape. The delay ramp is linear in the delay domain and starts and
// ends at 1.5x the base delay.
const (
	rampSlowFactor = 1.5
	minRampSteps   = 5
	rampDivisor    = 10
)

// axisMove is the per-axis Bresenham state of one coordinated move
type axisMove struct {
	motor *stepgen.Stepper
	steps int // magnitude
	err   int // interpolation error term
}

// Planner moves up to four axes together so they start and stop at the same time
type Planner struct {
	axes       [standalone.NumAxes]*stepgen.Stepper
	kinematics kinematics.Kinematics
	log        *zap.Logger
}

// NewPlanner creates a new motion planner over the given axes
func NewPlanner(axes [standalone.NumAxes]*stepgen.Stepper, kin kinematics.Kinematics, log *zap.Logger) *Planner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Planner{
		axes:       axes,
		kinematics: kin,
		log:        log,
	}
}

// ComputeSteps returns the signed step count taking axis from fromMM to toMM
func ComputeSteps(stepsPerMM, fromMM, toMM float64) int {
	delta := toMM - fromMM
	if delta == 0 {
		return 0
	}
	steps := int(math.Round(math.Abs(delta) * stepsPerMM))
	if delta < 0 {
		return -steps
	}
	return steps
}

// ComputeSteps returns the signed step count for axis a between two positions
func (p *Planner) ComputeSteps(a standalone.Axis, fromMM, toMM float64) int {
	return ComputeSteps(p.axes[a].StepsPerMM(), fromMM, toMM)
}

// RampSteps returns the length of each ramp for a move of maxSteps iterations
func RampSteps(maxSteps int) int {
	return max(minRampSteps, maxSteps/rampDivisor)
}

// RampDelay returns the inter-pulse delay at iteration i of a move of
// maxSteps iterations. The ramp-down is the exact mirror of the ramp-up:
// RampDelay(i) == RampDelay(maxSteps-1-i) whenever the ramps do not overlap.
// On short moves the ramps overlap and the ramp-up takes precedence.
func RampDelay(i, maxSteps, baseDelay int) int {
	accel := RampSteps(maxSteps)
	slow := int(float64(baseDelay) * rampSlowFactor)

	var t float64
	switch {
	case i < accel:
		t = float64(i) / float64(accel)
	case maxSteps-1-i < accel:
		t = float64(maxSteps-1-i) / float64(accel)
	default:
		return baseDelay
	}
	return int(float64(slow) - float64(slow-baseDelay)*t)
}

// MoveCoordinated moves all four axes by the given signed step counts using
// Bresenham interpolation on the axis with the most steps. Every axis
// receives exactly |steps| pulses within the same maxSteps iterations.
//
// The move is refused before any pulse when an axis would leave its travel
// range or when baseDelay does not exceed the pulse width.
func (p *Planner) MoveCoordinated(stepsX, stepsY, stepsZ, stepsE, baseDelay int) error {
	signed := [standalone.NumAxes]int{stepsX, stepsY, stepsZ, stepsE}

	// Resulting positions, for the travel check
	var start, target standalone.Position
	for i, a := range p.axes {
		start[i] = a.Position()
		target[i] = start[i] + float64(signed[i])/a.StepsPerMM()
	}

	var moves [standalone.NumAxes]axisMove
	maxSteps := 0
	for i, a := range p.axes {
		moves[i] = axisMove{motor: a, steps: abs(signed[i])}
		if moves[i].steps > maxSteps {
			maxSteps = moves[i].steps
		}
	}
	if maxSteps == 0 {
		return nil
	}

	if width := p.axes[standalone.AxisX].PulseWidth(); baseDelay <= width {
		return fmt.Errorf("%w: %dus (pulse width %dus)", standalone.ErrPulseDelay, baseDelay, width)
	}
	if p.kinematics != nil {
		if err := p.kinematics.CheckLimits(start, target); err != nil {
			return err
		}
	}

	for i := range moves {
		moves[i].motor.SetDirection(signed[i] > 0)
		moves[i].err = maxSteps / 2
	}

	for i := 0; i < maxSteps; i++ {
		delay := RampDelay(i, maxSteps, baseDelay)

		// Step all axes using Bresenham
		for j := range moves {
			m := &moves[j]
			m.err -= m.steps
			if m.err < 0 {
				m.motor.Pulse(delay)
				m.err += maxSteps
			}
		}
	}

	for i, a := range p.axes {
		a.CheckFault()
		a.SetPosition(target[i])
	}

	p.log.Debug("coordinated move complete",
		zap.Ints("steps", signed[:]),
		zap.Int("iterations", maxSteps),
		zap.Int("base_delay_us", baseDelay))
	return nil
}

// Move executes a decoded step command with the given delay
func (p *Planner) Move(cmd standalone.StepCommand, delay int) error {
	s := cmd.Steps
	return p.MoveCoordinated(s[0], s[1], s[2], s[3], delay)
}

// HomeAllAxes homes X, Y and Z in that order; the extruder is never homed.
// It stops at the first axis that fails.
func (p *Planner) HomeAllAxes() error {
	for _, a := range standalone.PositionalAxes {
		if err := p.axes[a].Home(); err != nil {
			return err
		}
	}
	return nil
}

// EnableAllAxes enables every driver
func (p *Planner) EnableAllAxes() {
	for _, a := range p.axes {
		a.Enable()
	}
}

// DisableAllAxes disables every driver
func (p *Planner) DisableAllAxes() {
	for _, a := range p.axes {
		a.Disable()
	}
}

// Axis returns the actuator for a
func (p *Planner) Axis(a standalone.Axis) *stepgen.Stepper {
	return p.axes[a]
}

// GetCurrentPosition returns the current position
func (p *Planner) GetCurrentPosition() standalone.Position {
	var pos standalone.Position
	for i, a := range p.axes {
		pos[i] = a.Position()
	}
	return pos
}

// SetPosition sets the current position without moving
func (p *Planner) SetPosition(pos standalone.Position) {
	for i, a := range p.axes {
		a.SetPosition(pos[i])
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
