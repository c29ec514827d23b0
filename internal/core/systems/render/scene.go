// Package render mirrors entity transforms into a scene of terminal visuals
// and draws that scene with tcell.
package render

import (
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/arcade/internal/core/assets"
	"github.com/zeusync/arcade/internal/core/components"
	"github.com/zeusync/arcade/internal/core/models"
)

// Visual is the drawable state of one entity.
type Visual struct {
	ID       models.EntityID
	Name     string
	Position mgl64.Vec3
	// Size is the world-space extent used by fill sprites and default shapes.
	Size    mgl64.Vec3
	Shape   components.Shape
	Sprite  *assets.Sprite
	Visible bool
}

// Scene holds the visuals of the current frame. It is written by the render
// system and read by the viewport, both on the frame goroutine.
type Scene struct {
	visuals map[models.EntityID]*Visual
	camera  mgl64.Vec2
}

func NewScene() *Scene {
	return &Scene{visuals: make(map[models.EntityID]*Visual)}
}

// Upsert returns the visual for id, creating it when missing.
func (s *Scene) Upsert(id models.EntityID) *Visual {
	v, ok := s.visuals[id]
	if !ok {
		v = &Visual{ID: id}
		s.visuals[id] = v
	}
	return v
}

func (s *Scene) Visual(id models.EntityID) (*Visual, bool) {
	v, ok := s.visuals[id]
	return v, ok
}

func (s *Scene) Remove(id models.EntityID) {
	delete(s.visuals, id)
}

func (s *Scene) Len() int { return len(s.visuals) }

// Visuals returns the visuals ordered back to front: larger z first, then by id.
func (s *Scene) Visuals() []*Visual {
	out := make([]*Visual, 0, len(s.visuals))
	for _, v := range s.visuals {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position[2] != out[j].Position[2] {
			return out[i].Position[2] > out[j].Position[2]
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Scene) SetCamera(x, y float64) { s.camera = mgl64.Vec2{x, y} }

func (s *Scene) Camera() mgl64.Vec2 { return s.camera }

func (s *Scene) Clear() {
	clear(s.visuals)
	s.camera = mgl64.Vec2{}
}
