package platformer

import (
	"math"

	"github.com/zeusync/arcade/internal/core/components"
	"github.com/zeusync/arcade/internal/core/models"
	"github.com/zeusync/arcade/internal/core/systems"
	"github.com/zeusync/arcade/internal/core/systems/input"
	"github.com/zeusync/arcade/internal/core/systems/physics"
)

const (
	PlayerInputName = "player_input"

	Acceleration        = 30.0
	MaxSpeed            = 8.0
	Deceleration        = 0.85
	GroundCheckDistance = 0.1
)

var (
	rightKeys = []string{input.KeyArrowRight, "d", "D"}
	leftKeys  = []string{input.KeyArrowLeft, "a", "A"}
	jumpKeys  = []string{input.KeySpace, "w", "W", input.KeyArrowUp}
)

// SystemLookup finds sibling systems by name; *system.Manager implements it.
type SystemLookup interface {
	System(name string) (systems.System, bool)
}

type keyState interface {
	IsAnyKeyPressed(keys ...string) bool
}

type groundProbe interface {
	IsGrounded(e *models.Entity, distance float64) bool
}

// PlayerInputSystem maps held keys onto the player's body (priority 75).
type PlayerInputSystem struct {
	systems.Base

	store   *models.Store
	systems SystemLookup
}

func NewPlayerInputSystem(store *models.Store, lookup SystemLookup) *PlayerInputSystem {
	return &PlayerInputSystem{
		Base:    systems.NewBase(PlayerInputName, systems.PriorityGameplayInput),
		store:   store,
		systems: lookup,
	}
}

func (s *PlayerInputSystem) Update(float64) error {
	found, ok := s.systems.System(input.Name)
	if !ok {
		return nil
	}
	keys, ok := found.(keyState)
	if !ok {
		return nil
	}

	player, ok := s.store.FindByName(NamePlayer)
	if !ok || !player.Active {
		return nil
	}
	body, okBody := components.BodyOf(player)
	state, okState := PlayerStateOf(player)
	if !okBody || !okState {
		return nil
	}

	var dir float64
	if keys.IsAnyKeyPressed(rightKeys...) {
		dir++
	}
	if keys.IsAnyKeyPressed(leftKeys...) {
		dir--
	}
	if dir != 0 {
		body.Acceleration[0] = dir * Acceleration
		state.IsFacingRight = dir > 0
	} else {
		body.Velocity[0] *= Deceleration
	}
	body.Velocity[0] = math.Max(-MaxSpeed, math.Min(MaxSpeed, body.Velocity[0]))

	state.IsGrounded = s.grounded(player)
	if state.IsGrounded {
		state.JumpsRemaining = state.MaxJumps
	}

	jump := keys.IsAnyKeyPressed(jumpKeys...)
	switch {
	case jump && state.JumpsRemaining > 0 && !state.WasJumping:
		body.Velocity[1] = state.JumpForce
		state.JumpsRemaining--
		state.WasJumping = true
	case !jump:
		state.WasJumping = false
	}
	return nil
}

func (s *PlayerInputSystem) grounded(player *models.Entity) bool {
	found, ok := s.systems.System(physics.Name)
	if !ok {
		return false
	}
	probe, ok := found.(groundProbe)
	return ok && probe.IsGrounded(player, GroundCheckDistance)
}
