package platformer

import (
	"errors"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/arcade/internal/core/components"
	"github.com/zeusync/arcade/internal/core/events/bus"
	"github.com/zeusync/arcade/internal/core/models"
	"github.com/zeusync/arcade/internal/core/observability/log"
	"github.com/zeusync/arcade/internal/core/systems"
)

const (
	RespawnName = "respawn"

	BlinkDuration = 1.5
	BlinkInterval = 0.1

	// Event data keys.
	KeyLives  = "lives"
	KeyScore  = "score"
	KeyValue  = "value"
	KeyEntity = "entity"
)

// RespawnSystem returns a player that fell into the void to the respawn
// point at the cost of a life, then blinks the sprite (priority 45).
type RespawnSystem struct {
	systems.Base

	store  *models.Store
	bus    bus.EventBus
	logger log.Log
	voidY  float64
}

func NewRespawnSystem(store *models.Store, eventBus bus.EventBus, logger log.Log, voidY float64) *RespawnSystem {
	if logger == nil {
		logger = log.NewNop()
	}
	if voidY == 0 {
		voidY = defaultVoidY
	}
	return &RespawnSystem{
		Base:   systems.NewBase(RespawnName, systems.PriorityRespawn),
		store:  store,
		bus:    eventBus,
		logger: logger.With(log.String("component", "respawn")),
		voidY:  voidY,
	}
}

func (s *RespawnSystem) Update(deltaTime float64) error {
	player, ok := s.store.FindByName(NamePlayer)
	if !ok || !player.Active {
		return nil
	}
	transform, okTransform := components.TransformOf(player)
	state, okState := PlayerStateOf(player)
	if !okTransform || !okState {
		return nil
	}

	var err error
	if transform.Position[1] < s.voidY && state.Lives > 0 {
		err = s.respawn(player, transform, state)
	}

	mesh, hasMesh := components.MeshOf(player)
	if state.IsRespawning {
		state.BlinkTime += deltaTime
		if state.BlinkTime < BlinkDuration {
			if hasMesh {
				mesh.Visible = math.Mod(state.BlinkTime, BlinkInterval*2) < BlinkInterval
			}
		} else {
			state.IsRespawning = false
			if hasMesh {
				mesh.Visible = true
			}
		}
	}
	return err
}

func (s *RespawnSystem) respawn(player *models.Entity, transform *components.Transform, state *PlayerState) error {
	state.Lives--
	state.IsRespawning = true
	state.BlinkTime = 0

	transform.Position = mgl64.Vec3(state.Spawn)
	transform.Dirty = true
	if body, ok := components.BodyOf(player); ok {
		body.Velocity = mgl64.Vec3{}
		body.Acceleration = mgl64.Vec3{}
	}

	s.logger.Debug("player respawned", log.Int("lives", state.Lives))

	err := s.bus.Emit(bus.NewEvent(bus.EventPlayerRespawn, RespawnName, map[string]any{
		KeyEntity: player.ID(),
		KeyLives:  state.Lives,
	}))
	if state.Lives <= 0 {
		err = errors.Join(err, s.bus.Emit(bus.NewEvent(bus.EventGameOver, RespawnName, map[string]any{
			KeyScore: state.Score,
		})))
	}
	return err
}
