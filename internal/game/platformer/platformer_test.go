package platformer

import (
	"context"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/arcade/internal/core/assets"
	"github.com/zeusync/arcade/internal/core/components"
	"github.com/zeusync/arcade/internal/core/config"
	"github.com/zeusync/arcade/internal/core/events/bus"
	"github.com/zeusync/arcade/internal/core/models"
	"github.com/zeusync/arcade/internal/core/system"
	"github.com/zeusync/arcade/internal/core/systems"
	"github.com/zeusync/arcade/internal/core/systems/input"
	"github.com/zeusync/arcade/internal/core/systems/physics"
)

const frame = 1.0 / 60.0

type harness struct {
	game    *Game
	manager *system.Manager
	input   *input.System
	events  map[string]int
}

func flatLevel() *Level {
	return &Level{
		Name:      "test",
		Spawn:     [2]float64{0, 1.31},
		Respawn:   [2]float64{0, 1.31},
		VoidY:     defaultVoidY,
		Platforms: []PlatformSpec{{X: 0, Y: 0, W: 20, H: 1, Kind: "grass"}},
	}
}

func newHarness(t *testing.T, lvl *Level) *harness {
	t.Helper()
	m := system.NewManager(config.EngineConfig{TargetFPS: 60, MaxDeltaTime: frame}, nil, nil, system.WithManualFrames())
	in := input.New(config.InputConfig{}, nil)

	sprites, err := Sprites("")
	require.NoError(t, err)

	g, err := Setup(context.Background(), m, Options{
		Level:      lvl,
		Sprites:    assets.NewLoader(sprites, nil),
		StartLives: 3,
		Engine:     []systems.System{in, physics.New(m.Store(), m.Bus(), nil, 0)},
	})
	require.NoError(t, err)

	h := &harness{game: g, manager: m, input: in, events: make(map[string]int)}
	for _, typ := range []string{
		bus.EventItemCollected, bus.EventLevelComplete, bus.EventGameOver,
		bus.EventPlayerRespawn, bus.EventPlayerDied, bus.EventEnemyDefeated,
	} {
		m.Bus().On(typ, func(e bus.Event) error {
			h.events[e.Type]++
			return nil
		})
	}
	require.NoError(t, m.Init(context.Background()))
	t.Cleanup(func() { _ = g.Close(context.Background()) })
	return h
}

func (h *harness) run(frames int) {
	for i := 0; i < frames; i++ {
		h.manager.Tick(frame)
	}
}

func (h *harness) player(t *testing.T) (*models.Entity, *components.Transform, *components.PhysicsBody, *PlayerState) {
	t.Helper()
	e, ok := h.manager.Entity(h.game.Player)
	require.True(t, ok)
	tr, _ := components.TransformOf(e)
	body, _ := components.BodyOf(e)
	st, _ := PlayerStateOf(e)
	return e, tr, body, st
}

func countByName(store *models.Store, name string) int {
	n := 0
	for _, e := range store.Entities() {
		if e.Name == name {
			n++
		}
	}
	return n
}

func TestDefaultLevel(t *testing.T) {
	lvl, err := DefaultLevel()
	require.NoError(t, err)

	assert.Equal(t, "world-1", lvl.Name)
	assert.Len(t, lvl.Platforms, 19)
	assert.Len(t, lvl.Coins, 19)
	assert.Len(t, lvl.Enemies, 6)
	require.NotNil(t, lvl.Flag)
	assert.Equal(t, [2]float64{48, 4}, *lvl.Flag)
	assert.Equal(t, -15.0, lvl.VoidY)

	lo, hi := lvl.Enemies[0].Bounds()
	assert.Equal(t, -8.0, lo)
	assert.Equal(t, 8.0, hi)
	lo, hi = EnemySpec{}.Bounds()
	assert.Equal(t, -15.0, lo)
	assert.Equal(t, 15.0, hi)

	same, err := LoadLevel("")
	require.NoError(t, err)
	assert.Equal(t, lvl, same)
}

func TestParseLevelRejectsBrokenLayouts(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"no platforms", "name: empty\n"},
		{"zero width", "platforms: [{x: 0, y: 0, w: 0, h: 1}]\n"},
		{"bad patrol", "platforms: [{x: 0, y: 0, w: 1, h: 1}]\nenemies: [{x: 0, y: 1, patrol: [1]}]\n"},
		{"empty patrol", "platforms: [{x: 0, y: 0, w: 1, h: 1}]\nenemies: [{x: 0, y: 1, patrol: [2, 1]}]\n"},
		{"respawn in void", "platforms: [{x: 0, y: 0, w: 1, h: 1}]\nrespawn: [0, -20]\n"},
		{"unknown field", "platforms: [{x: 0, y: 0, w: 1, h: 1}]\nlava: true\n"},
		{"not yaml", "platforms: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLevel([]byte(tt.doc))
			assert.ErrorIs(t, err, ErrInvalidLevel)
		})
	}

	_, err := LoadLevel("does-not-exist.yaml")
	assert.Error(t, err)
}

func TestSetupRollsBackRegistrationOnFailure(t *testing.T) {
	lvl, err := DefaultLevel()
	require.NoError(t, err)
	m := system.NewManager(config.EngineConfig{}, nil, nil, system.WithManualFrames())
	taken := &systems.Func{Base: systems.NewBase(RespawnName, 1)}
	require.NoError(t, m.RegisterSystem(taken))

	g, err := Setup(context.Background(), m, Options{
		Level:  lvl,
		Engine: []systems.System{input.New(config.InputConfig{}, nil), nil},
	})
	require.ErrorIs(t, err, system.ErrSystemExists)
	assert.Nil(t, g)

	registered := m.Systems()
	require.Len(t, registered, 1)
	assert.Same(t, taken, registered[0])
	assert.Zero(t, m.Store().Len())
}

func TestSetupBuildsDefaultLevel(t *testing.T) {
	lvl, err := DefaultLevel()
	require.NoError(t, err)
	h := newHarness(t, lvl)
	store := h.manager.Store()

	assert.Equal(t, 1, countByName(store, NamePlayer))
	assert.Equal(t, 19, countByName(store, NamePlatform))
	assert.Equal(t, 19, countByName(store, NameCoin))
	assert.Equal(t, 6, countByName(store, NameEnemy))
	assert.Equal(t, 1, countByName(store, NameFlag))

	player, tr, body, st := h.player(t)
	assert.Equal(t, mgl64.Vec3{0, 5, 0}, tr.Position)
	assert.True(t, body.Constraints.FreezeZ)
	assert.Equal(t, [3]float64{0, -8, 0}, st.Spawn)
	assert.Equal(t, 3, st.Lives)

	mesh, ok := components.MeshOf(player)
	require.True(t, ok)
	sprite, ok := mesh.Visual.(*assets.Sprite)
	require.True(t, ok)
	assert.Equal(t, "player", sprite.Name)

	flag, ok := store.FindByName(NameFlag)
	require.True(t, ok)
	col, _ := components.ColliderOf(flag)
	assert.True(t, col.IsTrigger)
	assert.Equal(t, mgl64.Vec3{0, 1, 0}, col.Offset)

	gs := h.manager.GameState()
	assert.Equal(t, 3, gs.Lives)
	assert.Equal(t, 1, gs.CurrentLevel)

	names := make([]string, 0)
	for _, s := range h.manager.Systems() {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{input.Name, PlayerInputName, EnemyAIName, physics.Name, RespawnName, CollisionResponseName}, names)
}

func TestSetupWithoutSpritesFallsBackToShapes(t *testing.T) {
	m := system.NewManager(config.EngineConfig{}, nil, nil, system.WithManualFrames())
	g, err := Setup(context.Background(), m, Options{Level: flatLevel()})
	require.NoError(t, err)

	player, ok := m.Entity(g.Player)
	require.True(t, ok)
	assert.False(t, player.HasComponent(components.MeshType))

	_, err = Setup(context.Background(), system.NewManager(config.EngineConfig{}, nil, nil), Options{})
	assert.ErrorIs(t, err, ErrInvalidLevel)
}

func TestPlayerWalksAndDecelerates(t *testing.T) {
	h := newHarness(t, flatLevel())
	h.run(30)

	_, tr, body, st := h.player(t)
	startX := tr.Position[0]
	assert.True(t, st.IsGrounded)

	h.input.KeyDown(input.KeyArrowRight)
	h.run(60)
	assert.Greater(t, tr.Position[0], startX+3)
	assert.Greater(t, body.Velocity[0], 7.0)
	assert.LessOrEqual(t, body.Velocity[0], MaxSpeed+Acceleration*frame)
	assert.True(t, st.IsFacingRight)

	h.input.KeyUp(input.KeyArrowRight)
	h.run(30)
	assert.Less(t, body.Velocity[0], 0.1)

	h.input.KeyDown("a")
	h.run(5)
	assert.False(t, st.IsFacingRight)
	assert.Less(t, body.Velocity[0], 0.0)
}

func TestJumpIsEdgeTriggered(t *testing.T) {
	h := newHarness(t, flatLevel())
	h.run(30)
	_, tr, body, st := h.player(t)
	require.True(t, st.IsGrounded)

	h.input.KeyDown(input.KeySpace)
	h.run(1)
	assert.Greater(t, body.Velocity[1], 11.0)
	assert.Zero(t, st.JumpsRemaining)

	// holding the key through the landing does not jump again
	h.run(120)
	assert.Less(t, tr.Position[1], 1.5)
	assert.Less(t, body.Velocity[1], 1.0)
	assert.True(t, st.WasJumping)

	h.input.KeyUp(input.KeySpace)
	h.run(1)
	assert.False(t, st.WasJumping)

	h.input.KeyDown("w")
	h.run(1)
	assert.Greater(t, body.Velocity[1], 11.0)
}

func TestEnemyPatrolReversesAtBounds(t *testing.T) {
	store := models.NewStore(nil)
	b := NewBuilder(store, nil)
	e := b.Enemy(context.Background(), EnemySpec{X: 0, Y: 0, Patrol: []float64{-1, 1}})
	tr, _ := components.TransformOf(e)
	body, _ := components.BodyOf(e)
	state, _ := EnemyStateOf(e)

	ai := NewEnemyAISystem(store)
	require.NoError(t, ai.Update(frame))
	assert.Equal(t, EnemySpeed, body.Velocity[0])

	tr.Position[0] = 1.2
	require.NoError(t, ai.Update(frame))
	assert.Equal(t, -1.0, state.Direction)
	assert.Equal(t, -EnemySpeed, body.Velocity[0])

	// still outside but already heading back
	require.NoError(t, ai.Update(frame))
	assert.Equal(t, -1.0, state.Direction)

	tr.Position[0] = -1.5
	require.NoError(t, ai.Update(frame))
	assert.Equal(t, 1.0, state.Direction)

	state.Defeated = true
	body.Velocity[0] = 0
	require.NoError(t, ai.Update(frame))
	assert.Zero(t, body.Velocity[0])
}

func TestRespawnCostsALifeAndBlinks(t *testing.T) {
	eventBus := bus.New()
	store := models.NewStore(nil)
	sprites, err := Sprites("")
	require.NoError(t, err)
	player := NewBuilder(store, assets.NewLoader(sprites, nil)).Player(context.Background(), 0, 5, 2)
	state, _ := PlayerStateOf(player)
	state.Spawn = [3]float64{1, 2, 0}
	tr, _ := components.TransformOf(player)
	body, _ := components.BodyOf(player)
	mesh, _ := components.MeshOf(player)

	var respawns, gameOvers, lastLives int
	eventBus.On(bus.EventPlayerRespawn, func(e bus.Event) error {
		respawns++
		lastLives, _ = e.Data[KeyLives].(int)
		return nil
	})
	eventBus.On(bus.EventGameOver, func(bus.Event) error {
		gameOvers++
		return nil
	})

	sys := NewRespawnSystem(store, eventBus, nil, 0)
	require.NoError(t, sys.Update(frame))
	assert.Zero(t, respawns)

	tr.Position = mgl64.Vec3{3, -16, 0}
	body.Velocity = mgl64.Vec3{2, -30, 0}
	require.NoError(t, sys.Update(0.15))

	assert.Equal(t, mgl64.Vec3{1, 2, 0}, tr.Position)
	assert.Equal(t, mgl64.Vec3{}, body.Velocity)
	assert.Equal(t, 1, state.Lives)
	assert.Equal(t, 1, respawns)
	assert.Equal(t, 1, lastLives)
	assert.Zero(t, gameOvers)
	assert.True(t, state.IsRespawning)
	assert.False(t, mesh.Visible, "second blink half hides the sprite")

	require.NoError(t, sys.Update(0.1))
	assert.True(t, mesh.Visible)

	require.NoError(t, sys.Update(BlinkDuration))
	assert.False(t, state.IsRespawning)
	assert.True(t, mesh.Visible)

	tr.Position[1] = -20
	require.NoError(t, sys.Update(frame))
	assert.Zero(t, state.Lives)
	assert.Equal(t, 1, gameOvers)

	// no lives left, no further respawns
	tr.Position[1] = -20
	require.NoError(t, sys.Update(frame))
	assert.Equal(t, 2, respawns)
}

func TestCoinIsCollectedOnceAndRemovedLater(t *testing.T) {
	lvl := flatLevel()
	lvl.Coins = [][2]float64{{0, 1.31}}
	h := newHarness(t, lvl)
	store := h.manager.Store()
	coin, ok := store.FindByName(NameCoin)
	require.True(t, ok)

	h.run(1)
	_, _, _, st := h.player(t)
	assert.Equal(t, CoinValue, st.Score)
	assert.Equal(t, 1, h.events[bus.EventItemCollected])
	_, present := store.Entity(coin.ID())
	assert.True(t, present, "coin stays until the removal delay elapsed")
	assert.Equal(t, 1, h.game.CollisionResponse.PendingRemovals())

	h.run(10)
	_, present = store.Entity(coin.ID())
	assert.False(t, present)
	assert.Equal(t, CoinValue, st.Score)
	assert.Equal(t, 1, h.events[bus.EventItemCollected])
	assert.Equal(t, CoinValue, h.manager.GameState().Score)
}

func TestFlagCompletesLevelOnceAndPauses(t *testing.T) {
	lvl := flatLevel()
	lvl.Flag = &[2]float64{0.5, 1}
	h := newHarness(t, lvl)

	h.run(1)
	assert.Equal(t, 1, h.events[bus.EventLevelComplete])
	assert.Equal(t, system.StatePaused, h.manager.State())
	assert.Equal(t, StatusLevelComplete, h.game.Session.Status())
	assert.Equal(t, StatusLevelComplete, h.game.Session.HUD().Status)

	h.game.TogglePause()
	assert.Equal(t, system.StatePaused, h.manager.State(), "a finished session stays paused")

	h.manager.Resume()
	h.run(5)
	assert.Equal(t, 1, h.events[bus.EventLevelComplete])
}

func TestTogglePause(t *testing.T) {
	h := newHarness(t, flatLevel())
	h.game.TogglePause()
	assert.Equal(t, system.StatePaused, h.manager.State())
	assert.Equal(t, StatusPaused, h.game.Session.HUD().Status)
	h.game.TogglePause()
	assert.Equal(t, system.StateRunning, h.manager.State())
	assert.Empty(t, h.game.Session.HUD().Status)
}

func collide(t *testing.T, eventBus bus.EventBus, a, b models.EntityID, normal mgl64.Vec3) {
	t.Helper()
	require.NoError(t, eventBus.Emit(bus.NewEvent(bus.EventCollision, physics.Name, map[string]any{
		physics.KeyEntityA:     a,
		physics.KeyEntityB:     b,
		physics.KeyNormal:      normal,
		physics.KeyPenetration: 0.1,
	})))
}

func TestEnemyHitsAreDebounced(t *testing.T) {
	h := newHarness(t, flatLevel())
	eventBus := h.manager.Bus()
	enemy := NewBuilder(h.manager.Store(), nil).Enemy(context.Background(), EnemySpec{X: 0.6, Y: 1})
	player, _, _, st := h.player(t)

	collide(t, eventBus, player.ID(), enemy.ID(), mgl64.Vec3{1, 0, 0})
	collide(t, eventBus, enemy.ID(), player.ID(), mgl64.Vec3{-1, 0, 0})
	assert.Equal(t, 2, st.Lives, "one touch costs one life")
	assert.Equal(t, 1, h.events[bus.EventPlayerDied])
	assert.Equal(t, HitCooldown, st.Invulnerable)

	require.NoError(t, h.game.CollisionResponse.Update(HitCooldown))
	assert.Zero(t, st.Invulnerable)

	collide(t, eventBus, enemy.ID(), player.ID(), mgl64.Vec3{-1, 0, 0})
	require.NoError(t, h.game.CollisionResponse.Update(HitCooldown))
	collide(t, eventBus, enemy.ID(), player.ID(), mgl64.Vec3{-1, 0, 0})
	assert.Zero(t, st.Lives)
	assert.Equal(t, 1, h.events[bus.EventGameOver])
	assert.Equal(t, StatusGameOver, h.game.Session.Status())
	assert.Equal(t, system.StatePaused, h.manager.State())
	assert.Zero(t, h.manager.GameState().Lives)

	require.NoError(t, h.game.CollisionResponse.Update(HitCooldown))
	collide(t, eventBus, enemy.ID(), player.ID(), mgl64.Vec3{-1, 0, 0})
	assert.Equal(t, 1, h.events[bus.EventGameOver])
}

func TestStompDefeatsEnemy(t *testing.T) {
	h := newHarness(t, flatLevel())
	eventBus := h.manager.Bus()
	store := h.manager.Store()
	enemy := NewBuilder(store, nil).Enemy(context.Background(), EnemySpec{X: 0, Y: 0.3})
	player, _, body, st := h.player(t)

	body.Velocity[1] = -5
	// normal points from the player down to the enemy
	collide(t, eventBus, player.ID(), enemy.ID(), mgl64.Vec3{0, -1, 0})

	es, _ := EnemyStateOf(enemy)
	assert.True(t, es.Defeated)
	assert.False(t, enemy.Active)
	assert.Equal(t, StompScore, st.Score)
	assert.Equal(t, 3, st.Lives)
	assert.InDelta(t, JumpForce*stompBounce, body.Velocity[1], 1e-9)
	assert.Equal(t, 1, h.events[bus.EventEnemyDefeated])
	assert.Equal(t, StompScore, h.manager.GameState().Score)

	require.NoError(t, h.game.CollisionResponse.Update(RemovalDelay))
	_, present := store.Entity(enemy.ID())
	assert.False(t, present)

	// touching an enemy while moving up is a hit
	other := NewBuilder(store, nil).Enemy(context.Background(), EnemySpec{X: 0, Y: 3})
	body.Velocity[1] = 4
	collide(t, eventBus, other.ID(), player.ID(), mgl64.Vec3{0, 1, 0})
	assert.Equal(t, 2, st.Lives)
}
