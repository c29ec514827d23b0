// Package components defines the component records the engine core reads:
// Transform, PhysicsBody, Collider and Mesh. Gameplay components live with the
// game that defines them.
package components

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/arcade/internal/core/models"
)

// Component type names used as keys in an entity's component map.
const (
	TransformType   = "Transform"
	PhysicsBodyType = "PhysicsBody"
	ColliderType    = "Collider"
	MeshType        = "Mesh"
)

// Transform places an entity in the world. Rotation holds Euler angles (XYZ, radians).
type Transform struct {
	Position mgl64.Vec3
	Rotation mgl64.Vec3
	Scale    mgl64.Vec3
	// Dirty is cleared by the renderer once the visual mirrors the transform.
	Dirty bool
}

func NewTransform(position mgl64.Vec3) *Transform {
	return &Transform{
		Position: position,
		Scale:    mgl64.Vec3{1, 1, 1},
		Dirty:    true,
	}
}

func (t *Transform) AppendChecksum(b []byte) []byte {
	b = models.AppendFloats(b, t.Position[0], t.Position[1], t.Position[2])
	b = models.AppendFloats(b, t.Rotation[0], t.Rotation[1], t.Rotation[2])
	return models.AppendFloats(b, t.Scale[0], t.Scale[1], t.Scale[2])
}

// Constraints freezes velocity along individual axes.
type Constraints struct {
	FreezeX bool
	FreezeY bool
	FreezeZ bool
}

// PhysicsBody carries motion state. Mass 0 means immovable; kinematic bodies
// collide but are never moved by integration.
type PhysicsBody struct {
	Velocity     mgl64.Vec3
	Acceleration mgl64.Vec3
	Mass         float64
	UseGravity   bool
	IsKinematic  bool
	Constraints  Constraints
}

// NewDynamicBody is a gravity-affected body of the given mass.
func NewDynamicBody(mass float64) *PhysicsBody {
	return &PhysicsBody{Mass: mass, UseGravity: true}
}

// NewKinematicBody is an immovable body that only external code repositions.
func NewKinematicBody() *PhysicsBody {
	return &PhysicsBody{IsKinematic: true}
}

// ApplyForce accumulates force/mass into the frame's acceleration.
func (b *PhysicsBody) ApplyForce(force mgl64.Vec3) {
	if b.Mass <= 0 {
		return
	}
	b.Acceleration = b.Acceleration.Add(force.Mul(1 / b.Mass))
}

func (b *PhysicsBody) AppendChecksum(buf []byte) []byte {
	return models.AppendFloats(buf, b.Velocity[0], b.Velocity[1], b.Velocity[2])
}

// Shape is the collider geometry kind.
type Shape string

const (
	ShapeBox     Shape = "box"
	ShapeSphere  Shape = "sphere"
	ShapeCapsule Shape = "capsule"
)

// Collider describes collision geometry relative to the transform origin.
// Layers is a bitmask; two colliders interact when they share a bit, and 0
// means every layer.
type Collider struct {
	Shape     Shape
	Size      mgl64.Vec3
	Offset    mgl64.Vec3
	IsTrigger bool
	Layers    uint32
}

func NewBoxCollider(size mgl64.Vec3) *Collider {
	return &Collider{Shape: ShapeBox, Size: size, Layers: 1}
}

func NewSphereCollider(diameter float64) *Collider {
	return &Collider{Shape: ShapeSphere, Size: mgl64.Vec3{diameter, diameter, diameter}, Layers: 1}
}

// Center is the collider centre in world space for the given transform position.
func (c *Collider) Center(position mgl64.Vec3) mgl64.Vec3 {
	return position.Add(c.Offset)
}

// Radius is the sphere radius; the shape's x extent is the diameter.
func (c *Collider) Radius() float64 {
	return c.Size[0] * 0.5
}

// SharesLayer reports whether two colliders should be tested against each other.
func (c *Collider) SharesLayer(other *Collider) bool {
	if c.Layers == 0 || other.Layers == 0 {
		return true
	}
	return c.Layers&other.Layers != 0
}

// Mesh attaches an explicit visual to an entity. Visual is owned by the
// rendering collaborator; the core never inspects it.
type Mesh struct {
	Visual  any
	Visible bool
}

func TransformOf(e *models.Entity) (*Transform, bool) {
	return models.GetComponent[*Transform](e, TransformType)
}

func BodyOf(e *models.Entity) (*PhysicsBody, bool) {
	return models.GetComponent[*PhysicsBody](e, PhysicsBodyType)
}

func ColliderOf(e *models.Entity) (*Collider, bool) {
	return models.GetComponent[*Collider](e, ColliderType)
}

func MeshOf(e *models.Entity) (*Mesh, bool) {
	return models.GetComponent[*Mesh](e, MeshType)
}
