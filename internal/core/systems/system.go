package systems

import (
	"context"
)

// System is a named, priority-ranked unit of behaviour. It owns no entities but
// may read and write any entity's components and the event bus.
type System interface {
	// Identity

	Name() string
	Priority() Priority

	// Lifecycle

	// Init runs once, in priority order, before the first frame.
	Init(ctx context.Context) error
	// Update runs once per unpaused frame with the clamped frame delta in seconds.
	Update(deltaTime float64) error
	// Destroy runs once when the game is torn down.
	Destroy(ctx context.Context) error
}

// Priority defines execution order; higher runs earlier in a frame.
type Priority int

// Priorities of the engine and gameplay systems.
const (
	PrioritySpectator         Priority = 5
	PriorityRender            Priority = 10
	PriorityAudio             Priority = 20
	PriorityCollisionResponse Priority = 40
	PriorityRespawn           Priority = 45
	PriorityPhysics           Priority = 50
	PriorityAI                Priority = 60
	PriorityGameplayInput     Priority = 75
	PriorityInput             Priority = 100
)

// Base supplies identity and no-op lifecycle hooks. Embed it and override
// what the system needs.
type Base struct {
	name     string
	priority Priority
}

func NewBase(name string, priority Priority) Base {
	return Base{name: name, priority: priority}
}

func (b Base) Name() string                  { return b.name }
func (b Base) Priority() Priority            { return b.priority }
func (b Base) Init(context.Context) error    { return nil }
func (b Base) Update(float64) error          { return nil }
func (b Base) Destroy(context.Context) error { return nil }

// Func adapts plain functions into a System. Nil hooks are no-ops.
type Func struct {
	Base
	InitFn    func(ctx context.Context) error
	UpdateFn  func(deltaTime float64) error
	DestroyFn func(ctx context.Context) error
}

func (f *Func) Init(ctx context.Context) error {
	if f.InitFn == nil {
		return nil
	}
	return f.InitFn(ctx)
}

func (f *Func) Update(deltaTime float64) error {
	if f.UpdateFn == nil {
		return nil
	}
	return f.UpdateFn(deltaTime)
}

func (f *Func) Destroy(ctx context.Context) error {
	if f.DestroyFn == nil {
		return nil
	}
	return f.DestroyFn(ctx)
}
