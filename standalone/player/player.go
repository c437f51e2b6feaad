package player

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"bitprint/standalone"
	"bitprint/standalone/config"
	"bitprint/standalone/stepcode"
)

// Engine executes decoded lines
type Engine interface {
	Move(cmd standalone.StepCommand, delayMicros int) error
	HomeAllAxes() error
	EnableAllAxes()
}

// Report counts what one playback did
type Report struct {
	Lines   int // Non-blank lines read
	Moves   int // Step commands executed
	Homes   int // Home-all directives executed
	Enables int // Enable-all directives executed
	Skipped int // Unknown or malformed lines
	Refused int // Step commands the engine refused
}

// Player streams a translated file into the motion engine
type Player struct {
	engine       Engine
	defaultDelay int
	log          *zap.Logger
}

// New creates a player. Playback starts at the configured default delay.
func New(engine Engine, cfg *config.Machine, log *zap.Logger) *Player {
	if log == nil {
		log = zap.NewNop()
	}
	return &Player{
		engine:       engine,
		defaultDelay: cfg.DefaultDelayMicros,
		log:          log,
	}
}

// Play executes every line of r, which must be positioned after the identity
// line. A speed override applies to its own line and every later line
// without one. Cancellation is checked between lines; a started move or
// homing pass always completes. A homing failure aborts playback.
func (p *Player) Play(ctx context.Context, r io.Reader) (Report, error) {
	var rep Report
	delay := p.defaultDelay
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return rep, err
		}

		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		rep.Lines++
		p.log.Debug("executing line", zap.Int("line", rep.Lines), zap.String("text", text))

		line, err := stepcode.Decode(text)
		if err != nil {
			p.log.Warn("skipping line", zap.Int("line", rep.Lines), zap.Error(err))
			rep.Skipped++
			continue
		}

		switch line.Kind {
		case standalone.LineEnableAll:
			p.engine.EnableAllAxes()
			rep.Enables++

		case standalone.LineHomeAll:
			p.log.Info("homing all axes")
			if err := p.engine.HomeAllAxes(); err != nil {
				return rep, fmt.Errorf("line %d: %w", rep.Lines, err)
			}
			rep.Homes++

		case standalone.LineStep:
			if line.Step.HasDelay {
				delay = line.Step.DelayMicros
			}
			if err := p.engine.Move(line.Step, delay); err != nil {
				if !refusal(err) {
					return rep, fmt.Errorf("line %d: %w", rep.Lines, err)
				}
				p.log.Warn("move refused", zap.Int("line", rep.Lines), zap.Error(err))
				rep.Refused++
				continue
			}
			rep.Moves++
		}
	}
	if err := scanner.Err(); err != nil {
		return rep, fmt.Errorf("read translated file: %w", err)
	}

	p.log.Info("print finished",
		zap.Int("moves", rep.Moves),
		zap.Int("refused", rep.Refused),
		zap.Int("skipped", rep.Skipped))
	return rep, nil
}

// refusal reports whether err rejected a single move before any pulse
func refusal(err error) bool {
	return errors.Is(err, standalone.ErrTravelLimit) || errors.Is(err, standalone.ErrPulseDelay)
}
