package system

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/arcade/internal/core/config"
	"github.com/zeusync/arcade/internal/core/events/bus"
	"github.com/zeusync/arcade/internal/core/systems"
)

type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func recording(r *recorder, name string, priority systems.Priority) *systems.Func {
	return &systems.Func{
		Base:      systems.NewBase(name, priority),
		InitFn:    func(context.Context) error { r.add("init:" + name); return nil },
		UpdateFn:  func(float64) error { r.add("update:" + name); return nil },
		DestroyFn: func(context.Context) error { r.add("destroy:" + name); return nil },
	}
}

type countingRenderer struct {
	mu      sync.Mutex
	renders int
	closed  bool
	width   int
	height  int
}

func (c *countingRenderer) Render() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.renders++
	return nil
}

func (c *countingRenderer) Resize(w, h int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.width, c.height = w, h
}

func (c *countingRenderer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *countingRenderer) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.renders
}

func newManual(t *testing.T, renderer Renderer) *Manager {
	t.Helper()
	return NewManager(config.Default().Engine, nil, renderer, WithManualFrames())
}

func TestInitAndUpdateFollowDescendingPriority(t *testing.T) {
	rec := &recorder{}
	m := newManual(t, nil)

	require.NoError(t, m.RegisterSystem(recording(rec, "render", 10)))
	require.NoError(t, m.RegisterSystem(recording(rec, "input", 100)))
	require.NoError(t, m.RegisterSystem(recording(rec, "physics", 50)))

	require.NoError(t, m.Init(context.Background()))
	m.Tick(1.0 / 60.0)

	assert.Equal(t, []string{
		"init:input", "init:physics", "init:render",
		"update:input", "update:physics", "update:render",
	}, rec.list())

	names := make([]string, 0, 3)
	for _, s := range m.Systems() {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{"input", "physics", "render"}, names)
}

func TestEqualPrioritiesKeepRegistrationOrder(t *testing.T) {
	rec := &recorder{}
	m := newManual(t, nil)
	require.NoError(t, m.RegisterSystem(recording(rec, "a", 40)))
	require.NoError(t, m.RegisterSystem(recording(rec, "b", 40)))
	require.NoError(t, m.RegisterSystem(recording(rec, "c", 45)))
	require.NoError(t, m.Init(context.Background()))

	assert.Equal(t, []string{"init:c", "init:a", "init:b"}, rec.list())
}

func TestDuplicateRegistrationIsRejected(t *testing.T) {
	rec := &recorder{}
	m := newManual(t, nil)
	first := recording(rec, "physics", 50)
	require.NoError(t, m.RegisterSystem(first))

	err := m.RegisterSystem(recording(rec, "physics", 90))
	assert.ErrorIs(t, err, ErrSystemExists)

	got, ok := m.System("physics")
	require.True(t, ok)
	assert.Same(t, first, got)
	assert.Len(t, m.Systems(), 1)
}

func TestFailingSystemsAreIsolated(t *testing.T) {
	rec := &recorder{}
	m := newManual(t, nil)

	var reported []string
	m.OnSystemError(func(name string, err error) { reported = append(reported, name) })

	boom := errors.New("boom")
	require.NoError(t, m.RegisterSystem(&systems.Func{
		Base:     systems.NewBase("broken-init", 90),
		InitFn:   func(context.Context) error { return boom },
		UpdateFn: func(float64) error { panic("exploded") },
	}))
	require.NoError(t, m.RegisterSystem(recording(rec, "healthy", 10)))

	err := m.Init(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, StateRunning, m.State())

	m.Tick(0.016)
	assert.Equal(t, []string{"init:healthy", "update:healthy"}, rec.list())

	metric, ok := m.SystemMetrics("broken-init")
	require.True(t, ok)
	assert.Equal(t, uint64(1), metric.Errors)
	assert.ErrorIs(t, metric.LastError, ErrSystemPanic)
	assert.Equal(t, []string{"broken-init", "broken-init"}, reported)
	assert.Equal(t, uint64(1), m.Metrics().SystemErrorCount["broken-init"])
}

func TestPausedFramesRenderWithoutUpdates(t *testing.T) {
	rec := &recorder{}
	renderer := &countingRenderer{}
	m := newManual(t, renderer)
	require.NoError(t, m.RegisterSystem(recording(rec, "physics", 50)))
	require.NoError(t, m.Init(context.Background()))

	m.Pause()
	assert.True(t, m.GameState().IsPaused)
	m.Tick(0.016)
	m.Tick(0.016)
	assert.Equal(t, []string{"init:physics"}, rec.list())
	assert.Equal(t, 2, renderer.count())

	m.Resume()
	m.Tick(0.016)
	assert.Equal(t, []string{"init:physics", "update:physics"}, rec.list())
	assert.Equal(t, 3, renderer.count())
	assert.Equal(t, uint64(3), m.FrameCount())
}

func TestStepClampsDeltaTime(t *testing.T) {
	var seen []float64
	m := newManual(t, nil)
	require.NoError(t, m.RegisterSystem(&systems.Func{
		Base:     systems.NewBase("probe", 1),
		UpdateFn: func(dt float64) error { seen = append(seen, dt); return nil },
	}))
	require.NoError(t, m.Init(context.Background()))

	m.Step(500 * time.Millisecond)
	m.Step(5 * time.Millisecond)
	m.Step(-time.Second)

	require.Len(t, seen, 3)
	assert.InDelta(t, 1.0/60.0, seen[0], 1e-12)
	assert.InDelta(t, 0.005, seen[1], 1e-12)
	assert.Zero(t, seen[2])
	assert.Zero(t, m.DeltaTime())
}

func TestLateRegistrationInitialisesImmediately(t *testing.T) {
	rec := &recorder{}
	m := newManual(t, nil)
	require.NoError(t, m.RegisterSystem(recording(rec, "input", 100)))
	require.NoError(t, m.RegisterSystem(recording(rec, "render", 10)))
	require.NoError(t, m.Init(context.Background()))

	require.NoError(t, m.RegisterSystem(recording(rec, "physics", 50)))
	m.Tick(0.01)

	assert.Equal(t, []string{
		"init:input", "init:render", "init:physics",
		"update:input", "update:physics", "update:render",
	}, rec.list())
}

func TestUnregisterSystemDestroysIt(t *testing.T) {
	rec := &recorder{}
	m := newManual(t, nil)
	require.NoError(t, m.RegisterSystem(recording(rec, "ai", 60)))
	require.NoError(t, m.Init(context.Background()))

	require.NoError(t, m.UnregisterSystem(context.Background(), "ai"))
	assert.ErrorIs(t, m.UnregisterSystem(context.Background(), "ai"), ErrSystemNotFound)
	m.Tick(0.01)
	assert.Equal(t, []string{"init:ai", "destroy:ai"}, rec.list())
}

func TestDestroyTearsEverythingDown(t *testing.T) {
	rec := &recorder{}
	renderer := &countingRenderer{}
	m := newManual(t, renderer)
	require.NoError(t, m.RegisterSystem(recording(rec, "render", 10)))
	require.NoError(t, m.RegisterSystem(recording(rec, "input", 100)))

	m.CreateEntity("player")
	m.Bus().On(bus.EventCollision, func(bus.Event) error { return nil })
	require.NoError(t, m.Init(context.Background()))

	require.NoError(t, m.Destroy(context.Background()))
	assert.Equal(t, []string{"init:input", "init:render", "destroy:input", "destroy:render"}, rec.list())
	assert.Equal(t, StateDestroyed, m.State())
	assert.True(t, renderer.closed)
	assert.Zero(t, m.Store().Len())
	assert.Zero(t, m.Bus().ListenerCount(bus.EventCollision))
	assert.Empty(t, m.Systems())

	m.Tick(0.01)
	assert.Equal(t, 0, renderer.count())
	assert.ErrorIs(t, m.RegisterSystem(recording(rec, "late", 1)), ErrDestroyed)
	assert.NoError(t, m.Destroy(context.Background()))
}

func TestInitTwiceIsNoOp(t *testing.T) {
	rec := &recorder{}
	m := newManual(t, nil)
	require.NoError(t, m.RegisterSystem(recording(rec, "input", 100)))
	require.NoError(t, m.Init(context.Background()))
	require.NoError(t, m.Init(context.Background()))
	assert.Equal(t, []string{"init:input"}, rec.list())
}

func TestFrameLoopRunsUntilStopped(t *testing.T) {
	cfg := config.Default().Engine
	cfg.TargetFPS = 200

	var (
		mu      sync.Mutex
		updates int
	)
	m := NewManager(cfg, nil, nil)
	require.NoError(t, m.RegisterSystem(&systems.Func{
		Base: systems.NewBase("counter", 1),
		UpdateFn: func(float64) error {
			mu.Lock()
			updates++
			mu.Unlock()
			return nil
		},
	}))
	require.NoError(t, m.Init(context.Background()))

	require.Eventually(t, func() bool { return m.FrameCount() >= 3 }, 2*time.Second, 5*time.Millisecond)

	m.Stop()
	assert.Equal(t, StateStopped, m.State())
	frames := m.FrameCount()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, frames, m.FrameCount())

	mu.Lock()
	assert.GreaterOrEqual(t, updates, 3)
	mu.Unlock()

	require.NoError(t, m.Start())
	require.Eventually(t, func() bool { return m.FrameCount() > frames }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, m.Destroy(context.Background()))
}

func TestStopFromInsideFrameDoesNotDeadlock(t *testing.T) {
	cfg := config.Default().Engine
	cfg.TargetFPS = 200

	m := NewManager(cfg, nil, nil)
	stopped := make(chan struct{})
	var once sync.Once
	require.NoError(t, m.RegisterSystem(&systems.Func{
		Base: systems.NewBase("stopper", 1),
		UpdateFn: func(float64) error {
			once.Do(func() {
				m.Stop()
				close(stopped)
			})
			return nil
		},
	}))
	require.NoError(t, m.Init(context.Background()))

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("stop from inside a frame blocked")
	}
	assert.Equal(t, StateStopped, m.State())
	require.NoError(t, m.Destroy(context.Background()))
}

func blockingInit(name string, entered chan<- struct{}, release <-chan struct{}) *systems.Func {
	return &systems.Func{
		Base: systems.NewBase(name, 100),
		InitFn: func(context.Context) error {
			close(entered)
			<-release
			return nil
		},
	}
}

func TestStopDuringInitKeepsLoopStopped(t *testing.T) {
	cfg := config.Default().Engine
	cfg.TargetFPS = 200

	renderer := &countingRenderer{}
	m := NewManager(cfg, nil, renderer)
	entered, release := make(chan struct{}), make(chan struct{})
	require.NoError(t, m.RegisterSystem(blockingInit("slow", entered, release)))

	initErr := make(chan error, 1)
	go func() { initErr <- m.Init(context.Background()) }()
	<-entered

	m.Stop()
	assert.Equal(t, StateStopped, m.State())
	assert.ErrorIs(t, m.Start(), ErrNotInitialized)

	close(release)
	require.NoError(t, <-initErr)

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, StateStopped, m.State())
	assert.Zero(t, m.FrameCount())
	assert.Zero(t, renderer.count())
	assert.False(t, m.GameState().IsRunning)

	require.NoError(t, m.Start())
	require.Eventually(t, func() bool { return m.FrameCount() > 0 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, m.Destroy(context.Background()))
}

func TestDestroyWaitsForInitInProgress(t *testing.T) {
	cfg := config.Default().Engine
	cfg.TargetFPS = 200

	renderer := &countingRenderer{}
	m := NewManager(cfg, nil, renderer)
	rec := &recorder{}
	entered, release := make(chan struct{}), make(chan struct{})
	slow := blockingInit("slow", entered, release)
	slow.DestroyFn = func(context.Context) error { rec.add("destroy:slow"); return nil }
	require.NoError(t, m.RegisterSystem(slow))

	initErr := make(chan error, 1)
	go func() { initErr <- m.Init(context.Background()) }()
	<-entered

	destroyErr := make(chan error, 1)
	go func() { destroyErr <- m.Destroy(context.Background()) }()

	select {
	case <-destroyErr:
		t.Fatal("destroy returned while init hooks were still running")
	case <-time.After(30 * time.Millisecond):
	}
	assert.Empty(t, rec.list())

	close(release)
	require.NoError(t, <-initErr)
	require.NoError(t, <-destroyErr)

	frames := m.FrameCount()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, StateDestroyed, m.State())
	assert.Equal(t, frames, m.FrameCount())
	assert.Zero(t, renderer.count())
	assert.True(t, renderer.closed)
	assert.Equal(t, []string{"destroy:slow"}, rec.list())
}

func TestDestroyDuringInitHonoursContext(t *testing.T) {
	m := newManual(t, nil)
	entered, release := make(chan struct{}), make(chan struct{})
	require.NoError(t, m.RegisterSystem(blockingInit("slow", entered, release)))

	initErr := make(chan error, 1)
	go func() { initErr <- m.Init(context.Background()) }()
	<-entered

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, m.Destroy(ctx), context.Canceled)

	close(release)
	require.NoError(t, <-initErr)
	assert.Equal(t, StateStopped, m.State())
	require.NoError(t, m.Destroy(context.Background()))
	assert.Equal(t, StateDestroyed, m.State())
}

func TestDestroyInsideFrameSkipsRemainingWork(t *testing.T) {
	renderer := &countingRenderer{}
	m := newManual(t, renderer)
	rec := &recorder{}
	require.NoError(t, m.RegisterSystem(&systems.Func{
		Base: systems.NewBase("quitter", 100),
		UpdateFn: func(float64) error {
			return m.Destroy(context.Background())
		},
	}))
	require.NoError(t, m.RegisterSystem(recording(rec, "late", 10)))
	require.NoError(t, m.Init(context.Background()))

	m.Tick(0.016)
	m.Tick(0.016)

	assert.Equal(t, []string{"init:late", "destroy:late"}, rec.list())
	assert.Zero(t, renderer.count())
	assert.True(t, renderer.closed)
	assert.Equal(t, StateDestroyed, m.State())
}

func TestStopInsideFrameSkipsRemainingUpdates(t *testing.T) {
	renderer := &countingRenderer{}
	m := newManual(t, renderer)
	rec := &recorder{}
	require.NoError(t, m.RegisterSystem(&systems.Func{
		Base: systems.NewBase("stopper", 100),
		UpdateFn: func(float64) error {
			m.Stop()
			return nil
		},
	}))
	require.NoError(t, m.RegisterSystem(recording(rec, "late", 10)))
	require.NoError(t, m.Init(context.Background()))

	m.Tick(0.016)

	assert.Equal(t, []string{"init:late"}, rec.list())
	assert.Equal(t, 1, renderer.count(), "a stopped manager still renders")
	assert.Equal(t, StateStopped, m.State())
}

func TestStartBeforeInit(t *testing.T) {
	m := newManual(t, nil)
	assert.ErrorIs(t, m.Start(), ErrNotInitialized)
}

func TestGameStateAndResize(t *testing.T) {
	renderer := &countingRenderer{}
	m := newManual(t, renderer)
	require.NoError(t, m.Init(context.Background()))

	m.UpdateGameState(func(s *GameState) {
		s.Score += 10
		s.Lives = 3
	})
	gs := m.GameState()
	assert.Equal(t, 10, gs.Score)
	assert.Equal(t, 3, gs.Lives)
	assert.True(t, gs.IsRunning)

	m.Resize(120, 40)
	assert.Equal(t, 120, renderer.width)
	assert.Equal(t, 40, renderer.height)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "destroyed", StateDestroyed.String())
	assert.Equal(t, "unknown", State(42).String())
}
