package kinematics

import (
	"fmt"

	"bitprint/standalone"
	"bitprint/standalone/config"
)

// Kinematics defines the interface for coordinate transformations
type Kinematics interface {
	// CheckLimits validates that every axis moving from start to end
	// stays within configured limits
	CheckLimits(start, end standalone.Position) error
}

// Cartesian implements basic Cartesian kinematics (one motor per axis)
type Cartesian struct {
	config *config.Machine
}

// NewCartesian creates a new Cartesian kinematics instance
func NewCartesian(cfg *config.Machine) *Cartesian {
	return &Cartesian{config: cfg}
}

// CheckLimits validates that the end of a move is within configured limits.
// Axes that do not move, and axes without a travel range, are never out of bounds.
func (k *Cartesian) CheckLimits(start, end standalone.Position) error {
	for _, a := range standalone.Axes {
		ac := k.config.Axis(a)
		if !ac.HasTravelLimits() || start[a] == end[a] {
			continue
		}
		if end[a] < ac.MinPosition || end[a] > ac.MaxPosition {
			return fmt.Errorf("%w: %c position %.3fmm outside [%.3f, %.3f]",
				standalone.ErrTravelLimit, a.Tag(), end[a], ac.MinPosition, ac.MaxPosition)
		}
	}
	return nil
}
