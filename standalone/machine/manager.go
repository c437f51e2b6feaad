package machine

import (
	"context"
	"errors"
	"io"
	"sync"

	"go.uber.org/zap"

	"bitprint/core"
	"bitprint/standalone"
	"bitprint/standalone/cache"
	"bitprint/standalone/config"
	"bitprint/standalone/gcode"
	"bitprint/standalone/kinematics"
	"bitprint/standalone/planner"
	"bitprint/standalone/player"
	"bitprint/standalone/stepgen"
	"bitprint/standalone/storage"
)

// Manager coordinates all standalone mode components. It is the only owner
// of axis state; every operation holds its lock for its whole duration.
type Manager struct {
	mu sync.Mutex

	config *config.Machine
	store  storage.Provider
	log    *zap.Logger

	axes       [standalone.NumAxes]*stepgen.Stepper
	kinematics kinematics.Kinematics
	planner    *planner.Planner
	cache      *cache.Cache
	player     *player.Player

	// Status
	initialized bool
}

// New creates a standalone mode manager over a validated configuration
func New(cfg *config.Machine, store storage.Provider, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		config: cfg,
		store:  store,
		log:    log,
	}
}

// Initialize sets up all components. Drivers start disabled.
func (m *Manager) Initialize(gpio core.GPIODriver, clock core.Clock, backends core.StepperBackendFactory) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return errors.New("already initialized")
	}

	var backendName string
	for _, a := range standalone.Axes {
		backend := backends(a.String())
		backendName = backend.GetName()

		s := stepgen.NewStepper(a.String(), m.config.Axis(a), m.config, m.log)
		if err := s.InitPins(gpio, clock, backend); err != nil {
			return err
		}
		m.axes[a] = s
	}

	m.kinematics = kinematics.NewCartesian(m.config)
	m.planner = planner.NewPlanner(m.axes, m.kinematics, m.log)
	m.cache = cache.New(m.store, m.config.Storage, m.translate, m.log)
	m.player = player.New(m.planner, m.config, m.log)

	m.initialized = true
	m.log.Info("standalone mode ready", zap.String("backend", backendName))
	return nil
}

// Run prepares the translated file of source and plays it back
func (m *Manager) Run(ctx context.Context, source string) (player.Report, cache.Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return player.Report{}, 0, standalone.ErrNotInitialized
	}

	stream, status, err := m.cache.Prepare(source)
	if err != nil {
		return player.Report{}, 0, err
	}
	defer stream.Close()

	m.log.Info("executing translated file", zap.String("file", source), zap.Stringer("cache", status))
	rep, err := m.player.Play(ctx, stream)
	return rep, status, err
}

// Translate brings the translated file of source up to date without
// playing it
func (m *Manager) Translate(source string) (cache.Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return 0, standalone.ErrNotInitialized
	}

	stream, status, err := m.cache.Prepare(source)
	if err != nil {
		return 0, err
	}
	return status, stream.Close()
}

// translate is the cache's translation step. Translating moves no motor, so
// the axis positions it advances are restored afterwards. Called with the
// lock held.
func (m *Manager) translate(src io.Reader, dst io.Writer) error {
	saved := m.planner.GetCurrentPosition()
	defer m.planner.SetPosition(saved)

	_, err := gcode.NewTranslator(m.config, tracker{m.planner}, m.log).Translate(src, dst)
	return err
}

// HomeAll homes X, Y and Z
func (m *Manager) HomeAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return standalone.ErrNotInitialized
	}
	return m.planner.HomeAllAxes()
}

// EnableAll enables every driver
func (m *Manager) EnableAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return standalone.ErrNotInitialized
	}
	m.planner.EnableAllAxes()
	return nil
}

// DisableAll disables every driver
func (m *Manager) DisableAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return standalone.ErrNotInitialized
	}
	m.planner.DisableAllAxes()
	return nil
}

// Jog moves one axis alone to targetMM
func (m *Manager) Jog(a standalone.Axis, targetMM float64, delayMicros int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return standalone.ErrNotInitialized
	}
	return m.axes[a].MoveDirect(targetMM, delayMicros)
}

// Positions returns every axis position
func (m *Manager) Positions() (standalone.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return standalone.Position{}, standalone.ErrNotInitialized
	}
	return m.planner.GetCurrentPosition(), nil
}

// StepPins returns the step line of every axis
func (m *Manager) StepPins() ([standalone.NumAxes]core.GPIOPin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var pins [standalone.NumAxes]core.GPIOPin
	if !m.initialized {
		return pins, standalone.ErrNotInitialized
	}
	for i, s := range m.axes {
		pins[i] = s.StepPin()
	}
	return pins, nil
}

// Config returns the machine configuration
func (m *Manager) Config() *config.Machine {
	return m.config
}

// tracker exposes planner axes to the translator without taking the lock
type tracker struct {
	p *planner.Planner
}

func (t tracker) Position(a standalone.Axis) float64 {
	return t.p.Axis(a).Position()
}

func (t tracker) SetPosition(a standalone.Axis, mm float64) {
	t.p.Axis(a).SetPosition(mm)
}

func (t tracker) StepsPerMM(a standalone.Axis) float64 {
	return t.p.Axis(a).StepsPerMM()
}
