package gcode

import (
	"bufio"
	"fmt"
	"io"

	"go.uber.org/zap"

	"bitprint/standalone"
	"bitprint/standalone/config"
	"bitprint/standalone/planner"
	"bitprint/standalone/stepcode"
)

// maxFeedDelayMicros bounds the delay derived from a feed rate so very slow
// feeds stay representable on 32-bit targets
const maxFeedDelayMicros = 1000000

// PositionTracker gives the translator access to each axis's recorded
// position and calibration. The machine coordinator implements it.
type PositionTracker interface {
	Position(a standalone.Axis) float64
	SetPosition(a standalone.Axis, mm float64)
	StepsPerMM(a standalone.Axis) float64
}

// Stats summarizes one bulk translation
type Stats struct {
	Lines   int // Source lines read
	Emitted int // Translated lines written
	Ignored int // Source lines skipped
}

// Translator converts G-code into step-command lines
type Translator struct {
	parser  *Parser
	axes    PositionTracker
	zOffset float64
	log     *zap.Logger

	// Speed from a feed rate on a line that did not move, carried to the
	// next emitted step command
	pendingDelay int
	hasPending   bool
}

// NewTranslator creates a translator working against the given axes
func NewTranslator(cfg *config.Machine, axes PositionTracker, log *zap.Logger) *Translator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Translator{
		parser:  NewParser(),
		axes:    axes,
		zOffset: cfg.ZOffset,
		log:     log,
	}
}

// TranslateLine converts one source line. It returns the translated line
// and true when the line produces output.
func (t *Translator) TranslateLine(line string) (string, bool) {
	cmd, err := t.parser.ParseLine(line)
	if err != nil || cmd == nil {
		return "", false
	}

	switch {
	case cmd.Is('G', 0), cmd.Is('G', 1):
		return t.translateMove(cmd)
	case cmd.Is('G', 28):
		// Homing zeroes the positional axes at playback; track that here so
		// later deltas are measured from the new origin
		for _, a := range standalone.PositionalAxes {
			t.axes.SetPosition(a, 0)
		}
		return standalone.HomeAllCode, true
	case cmd.Is('M', 84):
		return standalone.EnableAllCode, true
	}

	if cmd.Type != 0 {
		t.log.Debug("no matching start code, ignoring line", zap.String("code", cmd.Code()))
	}
	return "", false
}

// translateMove converts a linear move. Absent coordinates leave their axis
// untouched; present ones update the recorded position even when the
// resulting step count is zero.
func (t *Translator) translateMove(cmd *Command) (string, bool) {
	var out standalone.StepCommand
	moved := false

	for _, a := range standalone.Axes {
		if !cmd.HasParameter(a.Tag()) {
			continue
		}
		target := cmd.GetParameter(a.Tag(), 0)
		if a == standalone.AxisZ {
			target += t.zOffset
		}

		steps := planner.ComputeSteps(t.axes.StepsPerMM(a), t.axes.Position(a), target)
		t.axes.SetPosition(a, target)
		if steps != 0 {
			out.Steps[a] = steps
			moved = true
		}
	}

	if cmd.HasParameter('F') {
		if delay, ok := t.feedDelay(cmd.GetParameter('F', 0)); ok {
			t.pendingDelay = delay
			t.hasPending = true
		}
	}

	if !moved {
		return "", false
	}

	if t.hasPending {
		out.DelayMicros = t.pendingDelay
		out.HasDelay = true
		t.hasPending = false
	}
	return stepcode.Encode(out), true
}

// feedDelay converts a feed rate (mm/min) to the inter-pulse delay (us)
// of the X axis at that speed, capped at maxFeedDelayMicros.
func (t *Translator) feedDelay(feed float64) (int, bool) {
	if feed <= 0 {
		t.log.Warn("ignoring non-positive feed rate", zap.Float64("feed", feed))
		return 0, false
	}
	delay := 1000000 / ((feed / 60) * t.axes.StepsPerMM(standalone.AxisX))
	if delay > maxFeedDelayMicros {
		t.log.Warn("feed rate too slow, clamping pulse delay",
			zap.Float64("feed", feed),
			zap.Int("delay_us", maxFeedDelayMicros))
		return maxFeedDelayMicros, true
	}
	return int(delay), true
}

// Translate streams every line of src through TranslateLine and writes the
// output lines to dst. Output line count is not 1:1 with input.
func (t *Translator) Translate(src io.Reader, dst io.Writer) (Stats, error) {
	var stats Stats
	scanner := bufio.NewScanner(src)
	w := bufio.NewWriter(dst)

	for scanner.Scan() {
		stats.Lines++
		out, ok := t.TranslateLine(scanner.Text())
		if !ok {
			stats.Ignored++
			continue
		}
		if _, err := fmt.Fprintln(w, out); err != nil {
			return stats, fmt.Errorf("write translated line: %w", err)
		}
		stats.Emitted++
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("read source: %w", err)
	}
	if err := w.Flush(); err != nil {
		return stats, fmt.Errorf("write translated line: %w", err)
	}

	t.log.Info("translating done",
		zap.Int("lines", stats.Lines),
		zap.Int("emitted", stats.Emitted))
	return stats, nil
}
