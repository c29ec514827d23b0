package platformer

import (
	"context"
	"errors"

	"github.com/zeusync/arcade/internal/core/components"
	"github.com/zeusync/arcade/internal/core/events/bus"
	"github.com/zeusync/arcade/internal/core/models"
	"github.com/zeusync/arcade/internal/core/observability/log"
	"github.com/zeusync/arcade/internal/core/systems"
	"github.com/zeusync/arcade/internal/core/systems/physics"
	"github.com/zeusync/arcade/pkg/sequence"
)

const (
	CollisionResponseName = "collision_response"

	// RemovalDelay is the game time a collected coin stays in the world.
	RemovalDelay = 0.1
	// HitCooldown is the invulnerability after an enemy hit.
	HitCooldown = 1.0
	// StompScore is awarded for landing on an enemy.
	StompScore = 20
	// stompBounce scales the jump force for the bounce after a stomp.
	stompBounce = 0.6
)

// CollisionResponseSystem turns collision events into pickups, goal and
// enemy outcomes (priority 40). Removals are deferred by game time.
type CollisionResponseSystem struct {
	systems.Base

	store  *models.Store
	bus    bus.EventBus
	logger log.Log

	sub     bus.Subscription
	clock   float64
	removal *sequence.PriorityQueue[models.EntityID]
	emitErr []error
}

func NewCollisionResponseSystem(store *models.Store, eventBus bus.EventBus, logger log.Log) *CollisionResponseSystem {
	if logger == nil {
		logger = log.NewNop()
	}
	return &CollisionResponseSystem{
		Base:    systems.NewBase(CollisionResponseName, systems.PriorityCollisionResponse),
		store:   store,
		bus:     eventBus,
		logger:  logger.With(log.String("component", "collision_response")),
		removal: sequence.NewMinQueue[models.EntityID](),
	}
}

func (s *CollisionResponseSystem) Init(context.Context) error {
	s.sub = s.bus.On(bus.EventCollision, s.handleCollision)
	return nil
}

// Update advances game time, removes entities whose delay elapsed and ticks
// down the player's invulnerability.
func (s *CollisionResponseSystem) Update(deltaTime float64) error {
	s.clock += deltaTime

	for {
		_, due, ok := s.removal.Peek()
		if !ok || due > s.clock {
			break
		}
		id, _ := s.removal.Dequeue()
		s.store.RemoveEntity(id)
	}

	if player, ok := s.store.FindByName(NamePlayer); ok {
		if state, ok := PlayerStateOf(player); ok && state.Invulnerable > 0 {
			state.Invulnerable = max(0, state.Invulnerable-deltaTime)
		}
	}

	err := errors.Join(s.emitErr...)
	s.emitErr = nil
	return err
}

func (s *CollisionResponseSystem) Destroy(context.Context) error {
	if s.sub != nil {
		_ = s.sub.Cancel()
	}
	s.removal.Clear()
	return nil
}

// PendingRemovals is the number of entities waiting to be removed.
func (s *CollisionResponseSystem) PendingRemovals() int {
	return s.removal.Len()
}

func (s *CollisionResponseSystem) handleCollision(event bus.Event) error {
	info, ok := physics.CollisionFromEvent(event)
	if !ok {
		return nil
	}
	a, okA := s.store.Entity(info.EntityA)
	b, okB := s.store.Entity(info.EntityB)
	if !okA || !okB {
		return nil
	}

	player, other := a, b
	// normal from the player towards the other entity
	normal := info.Normal
	if b.Name == NamePlayer {
		player, other = b, a
		normal = normal.Mul(-1)
	}
	if player.Name != NamePlayer {
		return nil
	}

	switch other.Name {
	case NameCoin:
		s.collect(player, other)
	case NameFlag:
		s.reachGoal(player, other)
	case NameEnemy:
		// the enemy lies below the player
		if normal[1] < -0.5 {
			s.stomp(player, other)
		} else {
			s.hit(player, other)
		}
	}
	return nil
}

func (s *CollisionResponseSystem) collect(player, coin *models.Entity) {
	item, ok := ItemStateOf(coin)
	if !ok || item.Collected {
		return
	}
	item.Collected = true

	score := 0
	if state, ok := PlayerStateOf(player); ok {
		state.Score += item.Value
		score = state.Score
	}
	s.removal.Enqueue(coin.ID(), s.clock+RemovalDelay)

	s.emit(bus.EventItemCollected, map[string]any{
		KeyEntity: coin.ID(),
		KeyValue:  item.Value,
		KeyScore:  score,
	})
}

func (s *CollisionResponseSystem) reachGoal(player, flag *models.Entity) {
	goal, ok := GoalStateOf(flag)
	if !ok || goal.Reached {
		return
	}
	goal.Reached = true

	data := map[string]any{KeyEntity: flag.ID()}
	if state, ok := PlayerStateOf(player); ok {
		data[KeyScore] = state.Score
	}
	s.logger.Info("level complete")
	s.emit(bus.EventLevelComplete, data)
}

func (s *CollisionResponseSystem) stomp(player, enemy *models.Entity) {
	state, ok := EnemyStateOf(enemy)
	if !ok || state.Defeated {
		return
	}
	body, ok := components.BodyOf(player)
	if !ok || body.Velocity[1] > 0 {
		s.hit(player, enemy)
		return
	}

	state.Defeated = true
	state.Health = 0
	enemy.Active = false
	s.removal.Enqueue(enemy.ID(), s.clock+RemovalDelay)

	score := 0
	if ps, ok := PlayerStateOf(player); ok {
		ps.Score += StompScore
		score = ps.Score
		body.Velocity[1] = ps.JumpForce * stompBounce
	}
	s.emit(bus.EventEnemyDefeated, map[string]any{
		KeyEntity: enemy.ID(),
		KeyScore:  score,
	})
}

func (s *CollisionResponseSystem) hit(player, enemy *models.Entity) {
	state, ok := PlayerStateOf(player)
	if !ok || state.Lives <= 0 || state.Invulnerable > 0 || state.IsRespawning {
		return
	}
	if es, ok := EnemyStateOf(enemy); ok && es.Defeated {
		return
	}

	damage := 1
	if es, ok := EnemyStateOf(enemy); ok && es.Damage > 0 {
		damage = es.Damage
	}
	state.Lives = max(0, state.Lives-damage)
	state.Invulnerable = HitCooldown

	s.emit(bus.EventPlayerDied, map[string]any{
		KeyEntity: player.ID(),
		KeyLives:  state.Lives,
	})
	if state.Lives <= 0 {
		s.emit(bus.EventGameOver, map[string]any{KeyScore: state.Score})
	}
}

// emit runs inside a bus delivery; failures are reported from Update.
func (s *CollisionResponseSystem) emit(eventType string, data map[string]any) {
	if err := s.bus.Emit(bus.NewEvent(eventType, CollisionResponseName, data)); err != nil {
		s.emitErr = append(s.emitErr, err)
	}
}
