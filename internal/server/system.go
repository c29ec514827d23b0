package server

import (
	"context"

	"github.com/zeusync/arcade/internal/core/models"
	"github.com/zeusync/arcade/internal/core/observability/log"
	"github.com/zeusync/arcade/internal/core/system"
	"github.com/zeusync/arcade/internal/core/systems"
)

const SystemName = "spectator"

// Broadcaster receives encoded frames.
type Broadcaster interface {
	Broadcast(frame []byte)
}

// GameStateSource is satisfied by *system.Manager.
type GameStateSource interface {
	GameState() system.GameState
}

// System runs last in a frame and publishes a snapshot whenever the world or
// the session record changed since the previous one.
type System struct {
	systems.Base

	store  *models.Store
	out    Broadcaster
	state  GameStateSource
	logger log.Log

	frame     uint64
	sent      uint64
	lastSum   uint64
	lastState system.GameState
	primed    bool
}

func NewSystem(store *models.Store, out Broadcaster, state GameStateSource, logger log.Log) *System {
	if logger == nil {
		logger = log.NewNop()
	}
	return &System{
		Base:   systems.NewBase(SystemName, systems.PrioritySpectator),
		store:  store,
		out:    out,
		state:  state,
		logger: logger.With(log.String("component", "spectator")),
	}
}

func (s *System) Update(float64) error {
	s.frame++

	var gs system.GameState
	if s.state != nil {
		gs = s.state.GameState()
	}
	sum := s.store.Checksum()
	if s.primed && sum == s.lastSum && gs == s.lastState {
		return nil
	}

	frame, err := BuildSnapshot(s.store, gs, s.frame, sum).Encode()
	if err != nil {
		return err
	}
	s.out.Broadcast(frame)
	s.primed = true
	s.lastSum = sum
	s.lastState = gs
	s.sent++
	return nil
}

func (s *System) Destroy(context.Context) error {
	s.logger.Debug("spectator feed stopped", log.Uint64("frames_sent", s.sent))
	return nil
}

// Sent returns how many snapshots were published.
func (s *System) Sent() uint64 {
	return s.sent
}
