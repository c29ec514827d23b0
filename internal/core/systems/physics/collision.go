package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/arcade/internal/core/components"
	"github.com/zeusync/arcade/internal/core/models"
)

// CollisionInfo is one overlapping pair found in a frame. Normal is a unit
// vector pointing from EntityA towards EntityB.
type CollisionInfo struct {
	EntityA      models.EntityID
	EntityB      models.EntityID
	Normal       mgl64.Vec3
	Penetration  float64
	ContactPoint mgl64.Vec3
}

// Involves reports whether id is one side of the pair.
func (c CollisionInfo) Involves(id models.EntityID) bool {
	return c.EntityA == id || c.EntityB == id
}

// Other returns the counterpart of id.
func (c CollisionInfo) Other(id models.EntityID) models.EntityID {
	if c.EntityA == id {
		return c.EntityB
	}
	return c.EntityA
}

// Contact is the geometric result of a pair test.
type Contact struct {
	Normal      mgl64.Vec3
	Penetration float64
	Point       mgl64.Vec3
}

// Body is a positioned collider.
type Body struct {
	Position mgl64.Vec3
	Collider *components.Collider
}

// Test checks two positioned colliders for overlap. Sphere pairs use the
// exact sphere test; every other combination, capsules included, is tested
// as axis-aligned boxes.
func Test(a, b Body) (Contact, bool) {
	if a.Collider.Shape == components.ShapeSphere && b.Collider.Shape == components.ShapeSphere {
		return sphereSphere(a, b)
	}
	return boxBox(a, b)
}

// boxBox treats touching faces as overlapping. The separating axis is the one
// of least penetration; ties prefer x, then y, then z.
func boxBox(a, b Body) (Contact, bool) {
	ca := a.Collider.Center(a.Position)
	cb := b.Collider.Center(b.Position)
	ha := a.Collider.Size.Mul(0.5)
	hb := b.Collider.Size.Mul(0.5)

	var (
		pen  [3]float64
		lo   [3]float64
		hi   [3]float64
		axis = -1
	)
	for i := 0; i < 3; i++ {
		aMin, aMax := ca[i]-ha[i], ca[i]+ha[i]
		bMin, bMax := cb[i]-hb[i], cb[i]+hb[i]
		if aMax < bMin || bMax < aMin {
			return Contact{}, false
		}
		pen[i] = math.Min(aMax-bMin, bMax-aMin)
		lo[i] = math.Max(aMin, bMin)
		hi[i] = math.Min(aMax, bMax)
		if axis < 0 || pen[i] < pen[axis] {
			axis = i
		}
	}

	var normal mgl64.Vec3
	if ca[axis] <= cb[axis] {
		normal[axis] = 1
	} else {
		normal[axis] = -1
	}

	return Contact{
		Normal:      normal,
		Penetration: pen[axis],
		Point:       mgl64.Vec3{(lo[0] + hi[0]) / 2, (lo[1] + hi[1]) / 2, (lo[2] + hi[2]) / 2},
	}, true
}

func sphereSphere(a, b Body) (Contact, bool) {
	ca := a.Collider.Center(a.Position)
	cb := b.Collider.Center(b.Position)
	ra, rb := a.Collider.Radius(), b.Collider.Radius()

	delta := cb.Sub(ca)
	distance := delta.Len()
	if distance >= ra+rb {
		return Contact{}, false
	}

	normal := mgl64.Vec3{0, 1, 0}
	if distance > 1e-9 {
		normal = delta.Mul(1 / distance)
	}
	return Contact{
		Normal:      normal,
		Penetration: ra + rb - distance,
		Point:       ca.Add(normal.Mul(ra)),
	}, true
}
