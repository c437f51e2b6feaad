package standalone

// Axis indexes one of the four driven axes
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
	AxisE // Extruder
)

// NumAxes is the number of driven axes
const NumAxes = 4

// Axes lists every axis in encoding order
var Axes = [NumAxes]Axis{AxisX, AxisY, AxisZ, AxisE}

// PositionalAxes are the axes homed by a home-all directive
var PositionalAxes = []Axis{AxisX, AxisY, AxisZ}

var axisTags = [NumAxes]byte{'X', 'Y', 'Z', 'E'}

// Tag returns the single-letter tag used in G-code and step-code lines
func (a Axis) Tag() byte {
	if a < 0 || int(a) >= NumAxes {
		return '?'
	}
	return axisTags[a]
}

// String returns the lowercase axis name used in configuration
func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	case AxisE:
		return "e"
	}
	return "?"
}

// AxisFromTag maps an upper- or lowercase tag letter to its axis
func AxisFromTag(c byte) (Axis, bool) {
	if c >= 'a' && c <= 'z' {
		c -= 'a' - 'A'
	}
	for i, t := range axisTags {
		if t == c {
			return Axis(i), true
		}
	}
	return 0, false
}

// AxisFromName maps a configuration name ("x", "Y", ...) to its axis
func AxisFromName(name string) (Axis, bool) {
	if len(name) != 1 {
		return 0, false
	}
	return AxisFromTag(name[0])
}

// Position is a position in machine coordinates (mm), indexed by Axis
type Position [NumAxes]float64

// StepCommand carries signed step counts for every axis and an optional
// pulse-delay override. It is produced and consumed immediately; only its
// textual encoding is ever stored.
type StepCommand struct {
	Steps       [NumAxes]int
	DelayMicros int  // Pulse-delay override
	HasDelay    bool // DelayMicros is only meaningful when set
}

// IsZero reports whether no axis moves
func (c StepCommand) IsZero() bool {
	for _, s := range c.Steps {
		if s != 0 {
			return false
		}
	}
	return true
}

// LineKind classifies a translated stream line
type LineKind uint8

const (
	LineStep    LineKind = iota + 1 // Coordinated step command
	LineHomeAll                     // Home X, Y and Z
	LineEnableAll                   // Enable every driver
)

// Directive spellings shared by source and translated streams
const (
	HomeAllCode   = "G28"
	EnableAllCode = "M84"
)

// Line is one decoded line of a translated stream
type Line struct {
	Kind LineKind
	Step StepCommand // Only valid for LineStep
}
