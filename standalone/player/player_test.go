package player

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bitprint/standalone"
	"bitprint/standalone/config"
)

type call struct {
	op    string
	steps [standalone.NumAxes]int
	delay int
}

// recordingEngine records every call and can refuse moves or fail homing
type recordingEngine struct {
	calls   []call
	refuse  func(cmd standalone.StepCommand) error
	homeErr error
}

func (e *recordingEngine) Move(cmd standalone.StepCommand, delay int) error {
	if e.refuse != nil {
		if err := e.refuse(cmd); err != nil {
			return err
		}
	}
	e.calls = append(e.calls, call{op: "move", steps: cmd.Steps, delay: delay})
	return nil
}

func (e *recordingEngine) HomeAllAxes() error {
	if e.homeErr != nil {
		return e.homeErr
	}
	e.calls = append(e.calls, call{op: "home"})
	return nil
}

func (e *recordingEngine) EnableAllAxes() {
	e.calls = append(e.calls, call{op: "enable"})
}

func play(t *testing.T, e *recordingEngine, body string) (Report, error) {
	t.Helper()
	return New(e, config.Default(), nil).Play(context.Background(), strings.NewReader(body))
}

func TestPlayDispatch(t *testing.T) {
	e := &recordingEngine{}
	rep, err := play(t, e, "G28\nM84\n\nM X400 S2500\nM Y-3 X1\n")
	require.NoError(t, err)

	assert.Equal(t, []call{
		{op: "home"},
		{op: "enable"},
		{op: "move", steps: [4]int{400, 0, 0, 0}, delay: 2500},
		{op: "move", steps: [4]int{1, -3, 0, 0}, delay: 2500},
	}, e.calls)
	assert.Equal(t, Report{Lines: 4, Moves: 2, Homes: 1, Enables: 1}, rep)
}

func TestPlayDefaultDelay(t *testing.T) {
	e := &recordingEngine{}
	_, err := play(t, e, "M E5\nM E5 S900\nM E5\n")
	require.NoError(t, err)

	require.Len(t, e.calls, 3)
	assert.Equal(t, 500, e.calls[0].delay)
	assert.Equal(t, 900, e.calls[1].delay)
	assert.Equal(t, 900, e.calls[2].delay)
}

func TestPlaySkipsMalformed(t *testing.T) {
	e := &recordingEngine{}
	rep, err := play(t, e, "G1 X10\nM X1 X2\nM Xabc\nM Z2\n")
	require.NoError(t, err)

	assert.Equal(t, 3, rep.Skipped)
	assert.Equal(t, 1, rep.Moves)
	require.Len(t, e.calls, 1)
	assert.Equal(t, [4]int{0, 0, 2, 0}, e.calls[0].steps)
}

func TestPlayRefusedMoveContinues(t *testing.T) {
	e := &recordingEngine{refuse: func(cmd standalone.StepCommand) error {
		if cmd.Steps[standalone.AxisX] > 100 {
			return fmt.Errorf("%w: x", standalone.ErrTravelLimit)
		}
		return nil
	}}
	rep, err := play(t, e, "M X1000\nM X10\n")
	require.NoError(t, err)

	assert.Equal(t, 1, rep.Refused)
	assert.Equal(t, 1, rep.Moves)
}

func TestPlayHomingFailureAborts(t *testing.T) {
	e := &recordingEngine{homeErr: fmt.Errorf("%w: x", standalone.ErrHomingTimeout)}
	rep, err := play(t, e, "M84\nG28\nM X10\n")

	assert.ErrorIs(t, err, standalone.ErrHomingTimeout)
	assert.Equal(t, 0, rep.Moves)
	assert.Equal(t, 1, rep.Enables)
}

func TestPlayCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := &recordingEngine{}
	_, err := New(e, config.Default(), nil).Play(ctx, strings.NewReader("M X1\n"))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, e.calls)
}
