// Package stepcode encodes and decodes the lines of a translated stream.
//
// A step command is the marker "M" followed by space-separated tagged
// integers: "M X400 Y-20 S2500". Axes with zero steps are omitted. Fields
// may appear in any order when decoding; each tag is allowed once.
// The home-all and enable-all directives are stored as "G28" and "M84".
package stepcode

import (
	"fmt"
	"strconv"
	"strings"

	"bitprint/standalone"
)

// StepMarker introduces a step-command line
const StepMarker = "M"

// SpeedTag introduces the pulse-delay override field
const SpeedTag = 'S'

// Encode renders cmd as a step-command line. Axis fields are written in
// X, Y, Z, E order.
func Encode(cmd standalone.StepCommand) string {
	var b strings.Builder
	b.WriteString(StepMarker)
	for _, a := range standalone.Axes {
		if cmd.Steps[a] == 0 {
			continue
		}
		b.WriteByte(' ')
		b.WriteByte(a.Tag())
		b.WriteString(strconv.Itoa(cmd.Steps[a]))
	}
	if cmd.HasDelay {
		b.WriteByte(' ')
		b.WriteByte(SpeedTag)
		b.WriteString(strconv.Itoa(cmd.DelayMicros))
	}
	return b.String()
}

// Decode classifies and parses one non-blank translated line.
// Lines it cannot interpret return an error wrapping ErrMalformedLine.
func Decode(line string) (standalone.Line, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return standalone.Line{}, fmt.Errorf("%w: empty line", standalone.ErrMalformedLine)
	}

	switch fields[0] {
	case standalone.HomeAllCode:
		return standalone.Line{Kind: standalone.LineHomeAll}, nil
	case standalone.EnableAllCode:
		return standalone.Line{Kind: standalone.LineEnableAll}, nil
	case StepMarker:
		cmd, err := decodeStep(fields[1:])
		if err != nil {
			return standalone.Line{}, fmt.Errorf("%w: %q: %v", standalone.ErrMalformedLine, line, err)
		}
		return standalone.Line{Kind: standalone.LineStep, Step: cmd}, nil
	}
	return standalone.Line{}, fmt.Errorf("%w: unknown command %q", standalone.ErrMalformedLine, fields[0])
}

func decodeStep(fields []string) (standalone.StepCommand, error) {
	var cmd standalone.StepCommand
	var seen [standalone.NumAxes]bool

	for _, f := range fields {
		if len(f) < 2 {
			return cmd, fmt.Errorf("field %q has no value", f)
		}
		n, err := strconv.Atoi(f[1:])
		if err != nil {
			return cmd, fmt.Errorf("field %q: %v", f, err)
		}

		if f[0] == SpeedTag {
			if cmd.HasDelay {
				return cmd, fmt.Errorf("duplicate %c field", SpeedTag)
			}
			cmd.DelayMicros = n
			cmd.HasDelay = true
			continue
		}

		a, ok := standalone.AxisFromTag(f[0])
		if !ok || f[0] != a.Tag() {
			return cmd, fmt.Errorf("unknown field tag %q", f[0])
		}
		if seen[a] {
			return cmd, fmt.Errorf("duplicate %c field", a.Tag())
		}
		seen[a] = true
		cmd.Steps[a] = n
	}
	return cmd, nil
}
