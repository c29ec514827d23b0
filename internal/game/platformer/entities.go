package platformer

import (
	"context"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/arcade/internal/core/assets"
	"github.com/zeusync/arcade/internal/core/components"
	"github.com/zeusync/arcade/internal/core/models"
)

// Tunables of the demo.
const (
	CoinValue  = 10
	JumpForce  = 12.0
	MoveSpeed  = 8.0
	EnemySpeed = 3.0
)

var (
	playerSize = mgl64.Vec3{0.8, 1.6, 0.5}
	enemySize  = mgl64.Vec3{0.6, 0.6, 0.5}
	flagSize   = mgl64.Vec3{0.5, 3, 0.5}
	flagOffset = mgl64.Vec3{0, 1, 0}
)

const coinDiameter = 0.6

// SpriteSource resolves sprite paths; *assets.Loader implements it. A nil
// sprite leaves the entity on its default collider shape.
type SpriteSource interface {
	Load(ctx context.Context, path string) *assets.Sprite
}

// SpritePaths lists every sprite the level may use.
var SpritePaths = []string{
	"player.yaml", "enemy.yaml", "coin.yaml", "flag.yaml",
	"grass.yaml", "dirt.yaml", "brick.yaml",
}

// Builder creates gameplay entities in a store.
type Builder struct {
	store   *models.Store
	sprites SpriteSource
}

func NewBuilder(store *models.Store, sprites SpriteSource) *Builder {
	return &Builder{store: store, sprites: sprites}
}

func (b *Builder) mesh(ctx context.Context, e *models.Entity, name string) {
	if b.sprites == nil {
		return
	}
	if sprite := b.sprites.Load(ctx, name+".yaml"); sprite != nil {
		e.AddComponent(components.MeshType, &components.Mesh{Visual: sprite, Visible: true})
	}
}

func (b *Builder) Player(ctx context.Context, x, y float64, lives int) *models.Entity {
	e := b.store.CreateEntity(NamePlayer)
	e.AddComponent(components.TransformType, components.NewTransform(mgl64.Vec3{x, y, 0}))

	body := components.NewDynamicBody(1)
	body.Constraints.FreezeZ = true
	e.AddComponent(components.PhysicsBodyType, body)
	e.AddComponent(components.ColliderType, components.NewBoxCollider(playerSize))
	e.AddComponent(PlayerStateType, &PlayerState{
		IsFacingRight:  true,
		JumpForce:      JumpForce,
		MoveSpeed:      MoveSpeed,
		MaxJumps:       1,
		JumpsRemaining: 1,
		Lives:          lives,
		Spawn:          [3]float64{x, y, 0},
	})
	b.mesh(ctx, e, "player")
	return e
}

func (b *Builder) Platform(ctx context.Context, spec PlatformSpec) *models.Entity {
	e := b.store.CreateEntity(NamePlatform)
	e.AddComponent(components.TransformType, components.NewTransform(mgl64.Vec3{spec.X, spec.Y, 0}))
	e.AddComponent(components.PhysicsBodyType, components.NewKinematicBody())
	e.AddComponent(components.ColliderType, components.NewBoxCollider(mgl64.Vec3{spec.W, spec.H, 1}))
	kind := spec.Kind
	if kind == "" {
		kind = "grass"
	}
	b.mesh(ctx, e, kind)
	return e
}

func (b *Builder) Coin(ctx context.Context, x, y float64) *models.Entity {
	e := b.store.CreateEntity(NameCoin)
	e.AddComponent(components.TransformType, components.NewTransform(mgl64.Vec3{x, y, 0}))
	e.AddComponent(components.PhysicsBodyType, components.NewKinematicBody())
	collider := components.NewSphereCollider(coinDiameter)
	collider.IsTrigger = true
	e.AddComponent(components.ColliderType, collider)
	e.AddComponent(ItemStateType, &ItemState{Kind: "coin", Value: CoinValue})
	b.mesh(ctx, e, "coin")
	return e
}

func (b *Builder) Enemy(ctx context.Context, spec EnemySpec) *models.Entity {
	e := b.store.CreateEntity(NameEnemy)
	e.AddComponent(components.TransformType, components.NewTransform(mgl64.Vec3{spec.X, spec.Y, 0}))

	body := components.NewDynamicBody(0.5)
	body.Constraints.FreezeZ = true
	e.AddComponent(components.PhysicsBodyType, body)
	e.AddComponent(components.ColliderType, components.NewBoxCollider(enemySize))

	lo, hi := spec.Bounds()
	e.AddComponent(EnemyStateType, &EnemyState{
		Kind:      "walker",
		Speed:     EnemySpeed,
		Direction: 1,
		Health:    1,
		Damage:    1,
		PatrolMin: lo,
		PatrolMax: hi,
	})
	b.mesh(ctx, e, "enemy")
	return e
}

func (b *Builder) Flag(ctx context.Context, x, y float64) *models.Entity {
	e := b.store.CreateEntity(NameFlag)
	e.AddComponent(components.TransformType, components.NewTransform(mgl64.Vec3{x, y, 0}))
	e.AddComponent(components.PhysicsBodyType, components.NewKinematicBody())
	collider := components.NewBoxCollider(flagSize)
	collider.Offset = flagOffset
	collider.IsTrigger = true
	e.AddComponent(components.ColliderType, collider)
	e.AddComponent(GoalStateType, &GoalState{})
	b.mesh(ctx, e, "flag")
	return e
}

// Level populates the store with every entity of lvl and returns the player.
func (b *Builder) Level(ctx context.Context, lvl *Level, lives int) *models.Entity {
	player := b.Player(ctx, lvl.Spawn[0], lvl.Spawn[1], lives)
	if st, ok := PlayerStateOf(player); ok {
		st.Spawn = [3]float64{lvl.Respawn[0], lvl.Respawn[1], 0}
	}
	for _, p := range lvl.Platforms {
		b.Platform(ctx, p)
	}
	for _, c := range lvl.Coins {
		b.Coin(ctx, c[0], c[1])
	}
	for _, spec := range lvl.Enemies {
		b.Enemy(ctx, spec)
	}
	if lvl.Flag != nil {
		b.Flag(ctx, lvl.Flag[0], lvl.Flag[1])
	}
	return player
}
