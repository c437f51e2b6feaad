package gcode

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bitprint/standalone"
	"bitprint/standalone/config"
)

// fakeAxes is a PositionTracker over plain arrays
type fakeAxes struct {
	pos standalone.Position
	cal [standalone.NumAxes]float64
}

func newFakeAxes(stepsPerMM float64) *fakeAxes {
	f := &fakeAxes{}
	for i := range f.cal {
		f.cal[i] = stepsPerMM
	}
	return f
}

func (f *fakeAxes) Position(a standalone.Axis) float64 { return f.pos[a] }
func (f *fakeAxes) SetPosition(a standalone.Axis, mm float64) { f.pos[a] = mm }
func (f *fakeAxes) StepsPerMM(a standalone.Axis) float64 { return f.cal[a] }

func newTestTranslator(stepsPerMM float64) (*Translator, *fakeAxes) {
	axes := newFakeAxes(stepsPerMM)
	return NewTranslator(config.Default(), axes, nil), axes
}

func TestTranslateLineFeedAndOmission(t *testing.T) {
	tr, axes := newTestTranslator(40)

	out, ok := tr.TranslateLine("G1 X10 Y0 F600")
	require.True(t, ok)
	assert.Equal(t, "M X400 S2500", out)
	assert.Equal(t, 10.0, axes.pos[standalone.AxisX])
	assert.Equal(t, 0.0, axes.pos[standalone.AxisY])
}

func TestTranslateLineZeroDeltaNotEmitted(t *testing.T) {
	tr, axes := newTestTranslator(40)
	axes.pos[standalone.AxisX] = 5

	_, ok := tr.TranslateLine("G1 X5")
	assert.False(t, ok)
	assert.Equal(t, 5.0, axes.pos[standalone.AxisX])
}

func TestTranslateLineAbsentAxesUntouched(t *testing.T) {
	tr, axes := newTestTranslator(20)
	axes.pos = standalone.Position{1, 2, 3, 4}

	out, ok := tr.TranslateLine("G0 Y7")
	require.True(t, ok)
	assert.Equal(t, "M Y100", out)
	assert.Equal(t, standalone.Position{1, 7, 3, 4}, axes.pos)
}

func TestTranslateLineNegativeAndExtruder(t *testing.T) {
	tr, axes := newTestTranslator(20)
	axes.pos[standalone.AxisX] = 10

	out, ok := tr.TranslateLine("G1 X9 E0.5")
	require.True(t, ok)
	assert.Equal(t, "M X-20 E10", out)
}

func TestTranslateLineZOffset(t *testing.T) {
	cfg := config.Default()
	cfg.ZOffset = 0.25
	axes := newFakeAxes(20)
	tr := NewTranslator(cfg, axes, nil)

	out, ok := tr.TranslateLine("G1 Z1")
	require.True(t, ok)
	assert.Equal(t, "M Z25", out)
	assert.Equal(t, 1.25, axes.pos[standalone.AxisZ])
}

func TestTranslateLineFeedCarriesToNextMove(t *testing.T) {
	tr, _ := newTestTranslator(40)

	_, ok := tr.TranslateLine("G1 F1200")
	assert.False(t, ok)

	out, ok := tr.TranslateLine("G1 X1")
	require.True(t, ok)
	assert.Equal(t, "M X40 S1250", out)

	// The carried speed is consumed once
	out, ok = tr.TranslateLine("G1 X2")
	require.True(t, ok)
	assert.Equal(t, "M X40", out)
}

func TestTranslateLineNonPositiveFeedIgnored(t *testing.T) {
	tr, _ := newTestTranslator(40)

	out, ok := tr.TranslateLine("G1 X1 F0")
	require.True(t, ok)
	assert.Equal(t, "M X40", out)

	out, ok = tr.TranslateLine("G1 X2 F-60")
	require.True(t, ok)
	assert.Equal(t, "M X40", out)
}

func TestTranslateLineSlowFeedClamped(t *testing.T) {
	tr, _ := newTestTranslator(40)

	out, ok := tr.TranslateLine("G1 X1 F0.0001")
	require.True(t, ok)
	assert.Equal(t, "M X40 S1000000", out)

	out, ok = tr.TranslateLine("G1 X2 F60")
	require.True(t, ok)
	assert.Equal(t, "M X40 S25000", out)
}

func TestTranslateLineInlineComment(t *testing.T) {
	tr, _ := newTestTranslator(20)

	out, ok := tr.TranslateLine("G1 (perimeter) X10 (fast) F1200")
	require.True(t, ok)
	assert.Equal(t, "M X200 S2500", out)
}

func TestTranslateLineDirectives(t *testing.T) {
	tr, axes := newTestTranslator(20)
	axes.pos = standalone.Position{10, 20, 30, 40}

	out, ok := tr.TranslateLine("G28")
	require.True(t, ok)
	assert.Equal(t, "G28", out)
	assert.Equal(t, standalone.Position{0, 0, 0, 40}, axes.pos)

	out, ok = tr.TranslateLine("m84")
	require.True(t, ok)
	assert.Equal(t, "M84", out)
}

func TestTranslateLineIgnored(t *testing.T) {
	tr, axes := newTestTranslator(20)

	for _, line := range []string{
		"",
		"   ",
		"; generated by slicer",
		"(comment)",
		"M104 S200",
		"G92 X0",
		"G21",
		"T0",
		"X10 Y10",
	} {
		_, ok := tr.TranslateLine(line)
		assert.False(t, ok, "line %q", line)
	}
	assert.Equal(t, standalone.Position{}, axes.pos)
}

func TestTranslateStream(t *testing.T) {
	tr, _ := newTestTranslator(40)
	src := strings.Join([]string{
		"; identity 42",
		"G28",
		"M84",
		"G1 X10 Y0 F600",
		"G1 X10",
		"M106 S255",
		"G1 X0 Y5",
	}, "\n")

	var dst strings.Builder
	stats, err := tr.Translate(strings.NewReader(src), &dst)
	require.NoError(t, err)

	assert.Equal(t, "G28\nM84\nM X400 S2500\nM X-400 Y200\n", dst.String())
	assert.Equal(t, Stats{Lines: 7, Emitted: 4, Ignored: 3}, stats)
}
