package system

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zeusync/arcade/internal/core/config"
	"github.com/zeusync/arcade/internal/core/events/bus"
	"github.com/zeusync/arcade/internal/core/models"
	"github.com/zeusync/arcade/internal/core/observability/log"
	"github.com/zeusync/arcade/internal/core/systems"
	"github.com/zeusync/arcade/pkg/sequence"
)

// Manager orchestrates all systems in the game.
// Handles execution order, the system lifecycle and the frame loop.
//
// Systems run sequentially on the frame goroutine in descending priority
// order; equal priorities keep registration order. The entity store is only
// touched from that goroutine. Control methods (Pause, Resume, Stop, ...) are
// safe from any goroutine.
type Manager struct {
	cfg      config.EngineConfig
	logger   log.Log
	renderer Renderer
	store    *models.Store
	bus      bus.EventBus
	now      func() time.Time

	manualFrames bool

	mu          sync.Mutex
	systems     []systems.System
	byName      map[string]systems.System
	metrics     map[string]*Metrics
	errHandlers []func(name string, err error)
	state       State
	gameState   GameState
	startedAt   time.Time
	lastFrameAt time.Time
	frameTime   time.Duration

	cancel context.CancelFunc
	done   chan struct{}
	// initDone is open while Init runs the init hooks.
	initDone chan struct{}

	inFrame   atomic.Bool
	deltaBits atomic.Uint64
	frames    atomic.Uint64
}

// NewManager creates a manager. A nil renderer runs the game headless.
func NewManager(cfg config.EngineConfig, logger log.Log, renderer Renderer, opts ...Option) *Manager {
	if logger == nil {
		logger = log.NewNop()
	}
	if renderer == nil {
		renderer = nopRenderer{}
	}
	if cfg.TargetFPS <= 0 {
		cfg.TargetFPS = 60
	}
	if cfg.MaxDeltaTime <= 0 {
		cfg.MaxDeltaTime = 1.0 / 60.0
	}

	logger = logger.With(log.String("component", "game_manager"))
	m := &Manager{
		cfg:      cfg,
		logger:   logger,
		renderer: renderer,
		now:      time.Now,
		byName:   make(map[string]systems.System),
		metrics:  make(map[string]*Metrics),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.store == nil {
		m.store = models.NewStore(logger)
	}
	if m.bus == nil {
		m.bus = bus.New()
	}
	return m
}

// RegisterSystem adds s to the schedule. Registering a name twice is rejected
// with ErrSystemExists and leaves the schedule unchanged. A system registered
// after Init is initialised immediately.
func (m *Manager) RegisterSystem(s systems.System) error {
	m.mu.Lock()
	if m.state == StateDestroyed {
		m.mu.Unlock()
		return ErrDestroyed
	}
	if _, exists := m.byName[s.Name()]; exists {
		m.mu.Unlock()
		m.logger.Warn("system already registered", log.String("system", s.Name()))
		return fmt.Errorf("%w: %s", ErrSystemExists, s.Name())
	}

	late := m.state != StateUninitialized
	m.byName[s.Name()] = s
	m.metrics[s.Name()] = &Metrics{}
	if late {
		m.systems = insertByPriority(m.systems, s)
	} else {
		m.systems = append(m.systems, s)
	}
	m.mu.Unlock()

	m.logger.Debug("system registered",
		log.String("system", s.Name()),
		log.Int("priority", int(s.Priority())))

	if late {
		if err := m.initSystem(context.Background(), s); err != nil {
			return err
		}
	}
	return nil
}

// UnregisterSystem removes the named system and runs its Destroy hook.
func (m *Manager) UnregisterSystem(ctx context.Context, name string) error {
	m.mu.Lock()
	s, ok := m.byName[name]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrSystemNotFound, name)
	}
	delete(m.byName, name)
	delete(m.metrics, name)
	kept := make([]systems.System, 0, len(m.systems))
	for _, existing := range m.systems {
		if existing.Name() != name {
			kept = append(kept, existing)
		}
	}
	m.systems = kept
	initialized := m.state != StateUninitialized
	m.mu.Unlock()

	if !initialized {
		return nil
	}
	return m.destroySystem(ctx, s)
}

// System looks a registered system up by name.
func (m *Manager) System(name string) (systems.System, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byName[name]
	return s, ok
}

// Systems returns the registered systems in execution order.
func (m *Manager) Systems() []systems.System {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateUninitialized {
		return sortByPriority(m.systems)
	}
	return append([]systems.System(nil), m.systems...)
}

// OnSystemError registers a callback for isolated system failures.
func (m *Manager) OnSystemError(fn func(name string, err error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errHandlers = append(m.errHandlers, fn)
}

// Init initialises every system in priority order and starts the frame loop.
// Failing systems are logged and reported in the joined error, they do not
// stop later systems. Calling Init twice is a no-op. A Stop or Destroy that
// arrives while the hooks run leaves the manager stopped.
func (m *Manager) Init(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StateUninitialized {
		m.mu.Unlock()
		return nil
	}
	m.state = StateInitializing
	m.initDone = make(chan struct{})
	m.systems = sortByPriority(m.systems)
	ordered := append([]systems.System(nil), m.systems...)
	m.mu.Unlock()

	m.logger.Info("initializing systems", log.Int("count", len(ordered)))

	var errs []error
	for _, s := range ordered {
		if err := m.initSystem(ctx, s); err != nil {
			errs = append(errs, err)
		}
	}

	m.mu.Lock()
	m.startedAt = m.now()
	interrupted := m.state != StateInitializing
	if !interrupted {
		m.state = StateRunning
		m.gameState.IsRunning = true
		m.gameState.IsPaused = false
	}
	close(m.initDone)
	m.initDone = nil
	m.mu.Unlock()

	if interrupted {
		m.logger.Info("game manager stopped during init", log.Int("systems", len(ordered)))
		return errors.Join(errs...)
	}

	if !m.manualFrames {
		m.startLoop()
	}

	m.logger.Info("game manager running",
		log.Int("systems", len(ordered)),
		log.Int("target_fps", m.cfg.TargetFPS))

	return errors.Join(errs...)
}

func (m *Manager) initSystem(ctx context.Context, s systems.System) error {
	err := guard(s.Name(), "init", func() error { return s.Init(ctx) })
	if err != nil {
		m.logger.Error("system init failed", log.String("system", s.Name()), log.Error(err))
		m.reportError(s.Name(), err)
		return err
	}
	m.logger.Debug("system initialized", log.String("system", s.Name()))
	return nil
}

// Start (re)starts the frame loop after Init or Stop.
func (m *Manager) Start() error {
	m.mu.Lock()
	if m.initDone != nil {
		m.mu.Unlock()
		return ErrNotInitialized
	}
	switch m.state {
	case StateUninitialized, StateInitializing:
		m.mu.Unlock()
		return ErrNotInitialized
	case StateDestroyed:
		m.mu.Unlock()
		return ErrDestroyed
	case StateStopped:
		m.state = StateRunning
		m.gameState.IsRunning = true
		m.gameState.IsPaused = false
	}
	running := m.cancel != nil
	m.mu.Unlock()

	if !running && !m.manualFrames {
		m.startLoop()
	}
	return nil
}

// Pause suspends system updates. Paused frames still render.
func (m *Manager) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateRunning {
		return
	}
	m.state = StatePaused
	m.gameState.IsPaused = true
	m.logger.Debug("game paused")
}

func (m *Manager) Resume() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StatePaused {
		return
	}
	m.state = StateRunning
	m.gameState.IsPaused = false
	m.logger.Debug("game resumed")
}

// Stop halts the frame loop. When called from outside a frame it returns only
// after the loop goroutine has exited. From inside a frame it cannot wait for
// its own goroutine; the loop exits once that frame returns and the rest of
// that frame's updates are skipped. Stopping during Init keeps the loop from
// starting.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	if m.state == StateRunning || m.state == StatePaused || m.state == StateInitializing {
		m.state = StateStopped
		m.gameState.IsRunning = false
	}
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	if m.inFrame.Load() {
		return
	}
	<-done
	m.logger.Debug("frame loop stopped")
}

func (m *Manager) startLoop() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	m.mu.Lock()
	if m.cancel != nil || (m.state != StateRunning && m.state != StatePaused) {
		m.mu.Unlock()
		cancel()
		return
	}
	m.cancel, m.done = cancel, done
	m.mu.Unlock()

	go m.run(ctx, done)
}

func (m *Manager) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.cfg.FrameInterval())
	defer ticker.Stop()

	last := m.now()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			now := m.now()
			m.Step(now.Sub(last))
			last = now
		}
	}
}

// Step converts elapsed wall time to seconds, clamps it to MaxDeltaTime and
// runs one frame with it.
func (m *Manager) Step(elapsed time.Duration) {
	dt := elapsed.Seconds()
	if dt < 0 {
		dt = 0
	}
	if dt > m.cfg.MaxDeltaTime {
		dt = m.cfg.MaxDeltaTime
	}
	m.Tick(dt)
}

// Tick runs exactly one frame: when running, every system's Update in
// execution order, each isolated from the others' failures; then one render
// pass, also when paused.
func (m *Manager) Tick(deltaTime float64) {
	m.mu.Lock()
	state := m.state
	ordered := m.systems
	m.mu.Unlock()

	if state == StateDestroyed {
		return
	}

	m.inFrame.Store(true)
	defer m.inFrame.Store(false)

	m.deltaBits.Store(math.Float64bits(deltaTime))
	m.frames.Add(1)

	frameStart := m.now()
	if state == StateRunning {
		for _, s := range ordered {
			if m.halted() {
				break
			}
			m.updateSystem(s, deltaTime)
		}
	}

	if m.State() == StateDestroyed {
		return
	}
	if err := m.renderer.Render(); err != nil {
		m.logger.Warn("render failed", log.Error(err))
	}

	m.mu.Lock()
	m.lastFrameAt = m.now()
	m.frameTime += m.lastFrameAt.Sub(frameStart)
	m.mu.Unlock()
}

// halted reports whether a system stopped or destroyed the manager mid-frame.
func (m *Manager) halted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateStopped || m.state == StateDestroyed
}

func (m *Manager) updateSystem(s systems.System, deltaTime float64) {
	started := m.now()
	err := guard(s.Name(), "update", func() error { return s.Update(deltaTime) })
	took := m.now().Sub(started)

	m.mu.Lock()
	if metric, ok := m.metrics[s.Name()]; ok {
		metric.Updates++
		metric.LastUpdateTime = took
		metric.TotalTime += took
		if err != nil {
			metric.Errors++
			metric.LastError = err
		}
	}
	m.mu.Unlock()

	if err != nil {
		m.logger.Error("system update failed", log.String("system", s.Name()), log.Error(err))
		m.reportError(s.Name(), err)
	}
}

// Destroy stops the loop, destroys every system in execution order, closes the
// renderer and clears the bus and the entity store. An Init in progress is
// waited for first, bounded by ctx.
func (m *Manager) Destroy(ctx context.Context) error {
	m.mu.Lock()
	if m.state == StateDestroyed {
		m.mu.Unlock()
		return nil
	}
	initDone := m.initDone
	if initDone != nil {
		m.state = StateStopped
		m.gameState.IsRunning = false
	}
	m.mu.Unlock()

	if initDone != nil {
		select {
		case <-initDone:
		case <-ctx.Done():
			return fmt.Errorf("wait for init: %w", ctx.Err())
		}
	}

	m.Stop()

	m.mu.Lock()
	ordered := append([]systems.System(nil), m.systems...)
	initialized := m.state != StateUninitialized
	m.mu.Unlock()

	var errs []error
	if initialized {
		for _, s := range ordered {
			if err := m.destroySystem(ctx, s); err != nil {
				errs = append(errs, err)
			}
		}
	}

	if err := m.renderer.Close(); err != nil {
		m.logger.Warn("renderer close failed", log.Error(err))
		errs = append(errs, fmt.Errorf("close renderer: %w", err))
	}

	m.bus.Clear()
	m.store.Clear()

	m.mu.Lock()
	m.systems = nil
	m.byName = make(map[string]systems.System)
	m.metrics = make(map[string]*Metrics)
	m.state = StateDestroyed
	m.gameState.IsRunning = false
	m.mu.Unlock()

	m.logger.Info("game manager destroyed")
	return errors.Join(errs...)
}

func (m *Manager) destroySystem(ctx context.Context, s systems.System) error {
	err := guard(s.Name(), "destroy", func() error { return s.Destroy(ctx) })
	if err != nil {
		m.logger.Error("system destroy failed", log.String("system", s.Name()), log.Error(err))
		m.reportError(s.Name(), err)
	}
	return err
}

// Resize forwards new viewport dimensions to the renderer.
func (m *Manager) Resize(width, height int) {
	m.renderer.Resize(width, height)
}

func (m *Manager) reportError(name string, err error) {
	m.mu.Lock()
	handlers := slices.Clone(m.errHandlers)
	m.mu.Unlock()
	for _, h := range handlers {
		h(name, err)
	}
}

// GameState returns a copy of the session record.
func (m *Manager) GameState() GameState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gameState
}

// UpdateGameState mutates the session record under the manager lock.
func (m *Manager) UpdateGameState(fn func(*GameState)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(&m.gameState)
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// DeltaTime is the clamped delta of the latest frame, in seconds.
func (m *Manager) DeltaTime() float64 {
	return math.Float64frombits(m.deltaBits.Load())
}

func (m *Manager) FrameCount() uint64 {
	return m.frames.Load()
}

// SystemMetrics returns the update history of the named system.
func (m *Manager) SystemMetrics(name string) (Metrics, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	metric, ok := m.metrics[name]
	if !ok {
		return Metrics{}, false
	}
	return *metric, true
}

func (m *Manager) Metrics() ManagerMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := ManagerMetrics{
		RegisteredSystems: len(m.systems),
		Frames:            m.frames.Load(),
		LastFrameAt:       m.lastFrameAt,
		SystemErrorCount:  make(map[string]uint64, len(m.metrics)),
	}
	for name, metric := range m.metrics {
		out.TotalUpdateTime += metric.TotalTime
		out.SystemErrorCount[name] = metric.Errors
	}
	if out.Frames > 0 {
		out.AverageFrameTime = m.frameTime / time.Duration(out.Frames)
	}
	if !m.startedAt.IsZero() {
		out.Uptime = m.now().Sub(m.startedAt)
	}
	return out
}

func (m *Manager) Store() *models.Store { return m.store }

func (m *Manager) Bus() bus.EventBus { return m.bus }

func (m *Manager) CreateEntity(name string) *models.Entity {
	return m.store.CreateEntity(name)
}

func (m *Manager) CreateEntityWithID(name string, id models.EntityID) *models.Entity {
	return m.store.CreateEntityWithID(name, id)
}

func (m *Manager) Entity(id models.EntityID) (*models.Entity, bool) {
	return m.store.Entity(id)
}

func (m *Manager) Entities() []*models.Entity {
	return m.store.Entities()
}

func (m *Manager) RemoveEntity(id models.EntityID) {
	m.store.RemoveEntity(id)
}

// guard runs a lifecycle hook, turning a panic into ErrSystemPanic.
func guard(name, hook string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s %s: %v", ErrSystemPanic, name, hook, r)
		}
	}()
	if err = fn(); err != nil {
		return fmt.Errorf("%s %s: %w", name, hook, err)
	}
	return nil
}

func byDescendingPriority(a, b systems.System) bool {
	return a.Priority() > b.Priority()
}

func sortByPriority(in []systems.System) []systems.System {
	return sequence.From(in).Sort(byDescendingPriority).Collect()
}

// insertByPriority places s after every system of higher or equal priority.
func insertByPriority(in []systems.System, s systems.System) []systems.System {
	idx := len(in)
	for i, existing := range in {
		if existing.Priority() < s.Priority() {
			idx = i
			break
		}
	}
	out := make([]systems.System, 0, len(in)+1)
	out = append(out, in[:idx]...)
	out = append(out, s)
	return append(out, in[idx:]...)
}
