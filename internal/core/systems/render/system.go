package render

import (
	"context"

	"github.com/zeusync/arcade/internal/core/assets"
	"github.com/zeusync/arcade/internal/core/components"
	"github.com/zeusync/arcade/internal/core/models"
	"github.com/zeusync/arcade/internal/core/observability/log"
	"github.com/zeusync/arcade/internal/core/systems"
)

const Name = "render"

// System copies transforms onto scene visuals once per frame (priority 10).
// An entity is drawn with its Mesh sprite when it has one, otherwise with a
// default shape sized by its collider.
type System struct {
	systems.Base

	store  *models.Store
	scene  *Scene
	logger log.Log

	follow models.EntityID
	seen   map[models.EntityID]struct{}
}

func NewSystem(store *models.Store, scene *Scene, logger log.Log) *System {
	if logger == nil {
		logger = log.NewNop()
	}
	return &System{
		Base:   systems.NewBase(Name, systems.PriorityRender),
		store:  store,
		scene:  scene,
		logger: logger.With(log.String("component", "render")),
		seen:   make(map[models.EntityID]struct{}),
	}
}

// Follow centres the camera on id every frame. An empty id stops following.
func (s *System) Follow(id models.EntityID) { s.follow = id }

func (s *System) Scene() *Scene { return s.scene }

func (s *System) Update(float64) error {
	clear(s.seen)

	for _, e := range s.store.Entities() {
		transform, ok := components.TransformOf(e)
		if !ok {
			continue
		}
		v, ok := s.visualFor(e)
		if !ok {
			continue
		}
		s.seen[e.ID()] = struct{}{}

		v.Name = e.Name
		v.Position = transform.Position
		if !e.Active {
			v.Visible = false
		}
		transform.Dirty = false

		if e.ID() == s.follow {
			s.scene.SetCamera(transform.Position[0], transform.Position[1])
		}
	}

	for _, v := range s.scene.Visuals() {
		if _, ok := s.seen[v.ID]; !ok {
			s.scene.Remove(v.ID)
		}
	}
	return nil
}

func (s *System) visualFor(e *models.Entity) (*Visual, bool) {
	mesh, hasMesh := components.MeshOf(e)
	collider, hasCollider := components.ColliderOf(e)
	if !hasMesh && !hasCollider {
		return nil, false
	}

	v := s.scene.Upsert(e.ID())
	v.Sprite = nil
	v.Visible = true
	if hasCollider {
		v.Size = collider.Size
		v.Shape = collider.Shape
	}
	if hasMesh {
		v.Visible = mesh.Visible
		if sprite, ok := mesh.Visual.(*assets.Sprite); ok {
			v.Sprite = sprite
		}
	}
	return v, true
}

func (s *System) Destroy(context.Context) error {
	s.scene.Clear()
	return nil
}
