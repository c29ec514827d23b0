// Package platformer is the demo game: a side-scrolling platformer built
// from engine systems plus its own gameplay systems and event listeners.
package platformer

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/zeusync/arcade/internal/core/models"
	"github.com/zeusync/arcade/internal/core/observability/log"
	"github.com/zeusync/arcade/internal/core/system"
	"github.com/zeusync/arcade/internal/core/systems"
)

// Game is a populated level registered on a manager.
type Game struct {
	Manager *system.Manager
	Level   *Level
	Session *Session
	Player  models.EntityID

	Input             *PlayerInputSystem
	EnemyAI           *EnemyAISystem
	Respawn           *RespawnSystem
	CollisionResponse *CollisionResponseSystem
}

// Options carries what Setup needs besides the manager.
type Options struct {
	Level      *Level
	Sprites    SpriteSource
	StartLives int
	// Engine holds the engine systems (input, physics, render, audio,
	// spectator). Nil entries are skipped.
	Engine []systems.System
	Logger log.Log
}

// Setup registers the engine and gameplay systems, builds the level and
// attaches the session. The manager must not be initialised yet. On a
// registration failure the systems Setup added are unregistered again.
func Setup(ctx context.Context, m *system.Manager, opts Options) (*Game, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	if opts.Level == nil {
		return nil, fmt.Errorf("%w: no level", ErrInvalidLevel)
	}
	lives := opts.StartLives
	if lives <= 0 {
		lives = 3
	}

	store, eventBus := m.Store(), m.Bus()
	g := &Game{
		Manager:           m,
		Level:             opts.Level,
		Input:             NewPlayerInputSystem(store, m),
		EnemyAI:           NewEnemyAISystem(store),
		Respawn:           NewRespawnSystem(store, eventBus, logger, opts.Level.VoidY),
		CollisionResponse: NewCollisionResponseSystem(store, eventBus, logger),
		Session:           NewSession(store, eventBus, m, logger),
	}

	gameplay := []systems.System{g.Input, g.EnemyAI, g.Respawn, g.CollisionResponse}
	if err := register(ctx, m, slices.Concat(opts.Engine, gameplay)); err != nil {
		return nil, err
	}

	player := NewBuilder(store, opts.Sprites).Level(ctx, opts.Level, lives)
	g.Player = player.ID()

	for _, s := range opts.Engine {
		if f, ok := s.(follower); ok {
			f.Follow(g.Player)
		}
	}

	g.Session.Attach(1)
	logger.Info("level ready",
		log.String("level", opts.Level.Name),
		log.Int("entities", store.Len()),
		log.Int("lives", lives))
	return g, nil
}

// register adds every non-nil system, or none of them.
func register(ctx context.Context, m *system.Manager, list []systems.System) error {
	var added []string
	for _, s := range list {
		if s == nil {
			continue
		}
		if err := m.RegisterSystem(s); err != nil {
			var errs []error
			for _, name := range added {
				errs = append(errs, m.UnregisterSystem(ctx, name))
			}
			return errors.Join(append([]error{err}, errs...)...)
		}
		added = append(added, s.Name())
	}
	return nil
}

type follower interface {
	Follow(id models.EntityID)
}

// TogglePause flips between running and paused unless the session is over.
func (g *Game) TogglePause() {
	if g.Session.Status() != "" {
		return
	}
	switch g.Manager.State() {
	case system.StateRunning:
		g.Manager.Pause()
	case system.StatePaused:
		g.Manager.Resume()
	}
}

// Close detaches the session and tears the manager down.
func (g *Game) Close(ctx context.Context) error {
	g.Session.Detach()
	return g.Manager.Destroy(ctx)
}
