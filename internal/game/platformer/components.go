package platformer

import (
	"github.com/zeusync/arcade/internal/core/models"
)

// Gameplay component type names.
const (
	PlayerStateType = "PlayerState"
	EnemyStateType  = "EnemyState"
	ItemStateType   = "ItemState"
	GoalStateType   = "GoalState"
)

// Entity names the gameplay systems look up.
const (
	NamePlayer   = "player"
	NamePlatform = "platform"
	NameCoin     = "coin"
	NameEnemy    = "enemy"
	NameFlag     = "flag"
)

type PlayerState struct {
	IsGrounded     bool
	IsFacingRight  bool
	JumpForce      float64
	MoveSpeed      float64
	MaxJumps       int
	JumpsRemaining int
	// WasJumping holds the jump key state of the previous frame.
	WasJumping bool
	Score      int
	Lives      int

	Spawn        [3]float64
	IsRespawning bool
	BlinkTime    float64
	// Invulnerable counts down the seconds during which enemy hits are ignored.
	Invulnerable float64
}

type EnemyState struct {
	Kind      string
	Speed     float64
	Direction float64
	Health    int
	Damage    int
	PatrolMin float64
	PatrolMax float64
	Defeated  bool
}

type ItemState struct {
	Kind      string
	Value     int
	Collected bool
}

type GoalState struct {
	Reached bool
}

func PlayerStateOf(e *models.Entity) (*PlayerState, bool) {
	return models.GetComponent[*PlayerState](e, PlayerStateType)
}

func EnemyStateOf(e *models.Entity) (*EnemyState, bool) {
	return models.GetComponent[*EnemyState](e, EnemyStateType)
}

func ItemStateOf(e *models.Entity) (*ItemState, bool) {
	return models.GetComponent[*ItemState](e, ItemStateType)
}

func GoalStateOf(e *models.Entity) (*GoalState, bool) {
	return models.GetComponent[*GoalState](e, GoalStateType)
}
