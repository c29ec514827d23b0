// Package physics integrates rigid bodies, detects collider overlaps and
// pushes dynamic bodies out of kinematic ones.
package physics

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/arcade/internal/core/components"
	"github.com/zeusync/arcade/internal/core/events/bus"
	"github.com/zeusync/arcade/internal/core/models"
	"github.com/zeusync/arcade/internal/core/observability/log"
	"github.com/zeusync/arcade/internal/core/systems"
)

const (
	Name = "physics"

	DefaultGravity = 20.0
	// ResolutionEpsilon is the extra separation left after a push-out.
	ResolutionEpsilon = 0.01

	// Data keys of collision events.
	KeyEntityA      = "entityA"
	KeyEntityB      = "entityB"
	KeyNormal       = "normal"
	KeyPenetration  = "penetration"
	KeyContactPoint = "contactPoint"
)

// System runs at priority 50: integration, detection, then resolution.
// Resolution re-tests each pair after the move, so the distance a body is
// pushed can differ from the Penetration reported by Collisions.
type System struct {
	systems.Base

	store   *models.Store
	bus     bus.EventBus
	logger  log.Log
	gravity float64

	collisions []CollisionInfo
}

// New creates the physics system. A gravity of zero or less uses DefaultGravity.
func New(store *models.Store, eventBus bus.EventBus, logger log.Log, gravity float64) *System {
	if logger == nil {
		logger = log.NewNop()
	}
	if gravity <= 0 {
		gravity = DefaultGravity
	}
	return &System{
		Base:    systems.NewBase(Name, systems.PriorityPhysics),
		store:   store,
		bus:     eventBus,
		logger:  logger.With(log.String("component", "physics")),
		gravity: gravity,
	}
}

func (s *System) Gravity() float64 { return s.gravity }

func (s *System) SetGravity(g float64) { s.gravity = g }

func (s *System) Update(deltaTime float64) error {
	entities := s.store.Entities()
	s.integrate(entities, deltaTime)
	s.detect(entities)
	s.resolve(entities, deltaTime)
	return nil
}

func (s *System) integrate(entities []*models.Entity, dt float64) {
	for _, e := range entities {
		if !e.Active {
			continue
		}
		body, ok := components.BodyOf(e)
		if !ok {
			continue
		}
		if body.UseGravity {
			body.Acceleration[1] -= s.gravity
		}
		body.Velocity = body.Velocity.Add(body.Acceleration.Mul(dt))

		if body.Constraints.FreezeX {
			body.Velocity[0] = 0
		}
		if body.Constraints.FreezeY {
			body.Velocity[1] = 0
		}
		if body.Constraints.FreezeZ {
			body.Velocity[2] = 0
		}
		body.Acceleration = mgl64.Vec3{}
	}
}

type candidate struct {
	entity    *models.Entity
	transform *components.Transform
	collider  *components.Collider
}

func (s *System) detect(entities []*models.Entity) {
	s.collisions = s.collisions[:0]

	candidates := make([]candidate, 0, len(entities))
	for _, e := range entities {
		if !e.Active {
			continue
		}
		collider, ok := components.ColliderOf(e)
		if !ok {
			continue
		}
		transform, ok := components.TransformOf(e)
		if !ok {
			continue
		}
		candidates = append(candidates, candidate{entity: e, transform: transform, collider: collider})
	}

	for i := 0; i < len(candidates); i++ {
		a := candidates[i]
		for j := i + 1; j < len(candidates); j++ {
			b := candidates[j]
			if !a.collider.SharesLayer(b.collider) {
				continue
			}
			c, ok := Test(
				Body{Position: a.transform.Position, Collider: a.collider},
				Body{Position: b.transform.Position, Collider: b.collider},
			)
			if !ok {
				continue
			}
			info := CollisionInfo{
				EntityA:      a.entity.ID(),
				EntityB:      b.entity.ID(),
				Normal:       c.Normal,
				Penetration:  c.Penetration,
				ContactPoint: c.Point,
			}
			s.collisions = append(s.collisions, info)
			s.publish(info)
		}
	}
}

func (s *System) publish(info CollisionInfo) {
	if s.bus == nil {
		return
	}
	event := bus.NewEvent(bus.EventCollision, Name, map[string]any{
		KeyEntityA:      info.EntityA,
		KeyEntityB:      info.EntityB,
		KeyNormal:       info.Normal,
		KeyPenetration:  info.Penetration,
		KeyContactPoint: info.ContactPoint,
	})
	if err := s.bus.Emit(event); err != nil {
		s.logger.Warn("collision listener failed",
			log.String("entity_a", info.EntityA.String()),
			log.String("entity_b", info.EntityB.String()),
			log.Error(err))
	}
}

func (s *System) resolve(entities []*models.Entity, dt float64) {
	for _, e := range entities {
		if !e.Active {
			continue
		}
		body, ok := components.BodyOf(e)
		if !ok || body.IsKinematic {
			continue
		}
		transform, ok := components.TransformOf(e)
		if !ok {
			continue
		}

		transform.Position = transform.Position.Add(body.Velocity.Mul(dt))
		transform.Dirty = true

		for _, info := range s.collisions {
			if !info.Involves(e.ID()) {
				continue
			}
			s.pushOut(e, transform, body, info)
		}
	}
}

// pushOut separates e from a kinematic counterpart. The pair is re-tested at
// the current positions, so a collision already undone by motion is skipped.
func (s *System) pushOut(e *models.Entity, transform *components.Transform, body *components.PhysicsBody, info CollisionInfo) {
	other, ok := s.store.Entity(info.Other(e.ID()))
	if !ok || !other.Active {
		return
	}
	otherBody, ok := components.BodyOf(other)
	if !ok || !otherBody.IsKinematic {
		return
	}
	collider, ok := components.ColliderOf(e)
	if !ok || collider.IsTrigger {
		return
	}
	otherCollider, ok := components.ColliderOf(other)
	if !ok || otherCollider.IsTrigger {
		return
	}
	otherTransform, ok := components.TransformOf(other)
	if !ok {
		return
	}

	self := Body{Position: transform.Position, Collider: collider}
	counterpart := Body{Position: otherTransform.Position, Collider: otherCollider}

	// Keep the recorded orientation: the normal points from A to B.
	var (
		c   Contact
		hit bool
		dir mgl64.Vec3
	)
	if info.EntityA == e.ID() {
		c, hit = Test(self, counterpart)
		dir = c.Normal.Mul(-1)
	} else {
		c, hit = Test(counterpart, self)
		dir = c.Normal
	}
	if !hit {
		return
	}

	transform.Position = transform.Position.Add(dir.Mul(c.Penetration + ResolutionEpsilon))

	if into := body.Velocity.Dot(dir); into < 0 {
		body.Velocity = body.Velocity.Sub(dir.Mul(into))
	}
}

// Collisions returns a copy of the overlaps found in the latest frame.
func (s *System) Collisions() []CollisionInfo {
	return append([]CollisionInfo(nil), s.collisions...)
}

// ApplyForce adds force/mass to the entity's acceleration for the next frame.
func (s *System) ApplyForce(e *models.Entity, force mgl64.Vec3) {
	if body, ok := components.BodyOf(e); ok {
		body.ApplyForce(force)
	}
}

func (s *System) SetVelocity(e *models.Entity, velocity mgl64.Vec3) {
	if body, ok := components.BodyOf(e); ok {
		body.Velocity = velocity
	}
}

func (s *System) Velocity(e *models.Entity) (mgl64.Vec3, bool) {
	body, ok := components.BodyOf(e)
	if !ok {
		return mgl64.Vec3{}, false
	}
	return body.Velocity, true
}

// IsGrounded probes distance units below the entity's collider for a solid,
// non-trigger collider.
func (s *System) IsGrounded(e *models.Entity, distance float64) bool {
	transform, ok := components.TransformOf(e)
	if !ok {
		return false
	}
	collider, ok := components.ColliderOf(e)
	if !ok {
		return false
	}

	center := collider.Center(transform.Position)
	feet := center[1] - collider.Size[1]/2
	probe := center[0]

	for _, other := range s.store.Entities() {
		if other.ID() == e.ID() || !other.Active {
			continue
		}
		oc, ok := components.ColliderOf(other)
		if !ok || oc.IsTrigger {
			continue
		}
		ot, ok := components.TransformOf(other)
		if !ok {
			continue
		}
		oCenter := oc.Center(ot.Position)
		half := oc.Size.Mul(0.5)
		if probe > oCenter[0]-half[0] && probe < oCenter[0]+half[0] &&
			feet-distance < oCenter[1]+half[1] && feet > oCenter[1]-half[1] {
			return true
		}
	}
	return false
}

// CollisionFromEvent decodes a collision event published by this system.
func CollisionFromEvent(event bus.Event) (CollisionInfo, bool) {
	if event.Type != bus.EventCollision {
		return CollisionInfo{}, false
	}
	a, okA := event.Data[KeyEntityA].(models.EntityID)
	b, okB := event.Data[KeyEntityB].(models.EntityID)
	if !okA || !okB {
		return CollisionInfo{}, false
	}
	info := CollisionInfo{EntityA: a, EntityB: b}
	info.Normal, _ = event.Data[KeyNormal].(mgl64.Vec3)
	info.Penetration, _ = event.Data[KeyPenetration].(float64)
	info.ContactPoint, _ = event.Data[KeyContactPoint].(mgl64.Vec3)
	return info, true
}
