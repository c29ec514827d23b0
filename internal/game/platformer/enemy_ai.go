package platformer

import (
	"github.com/zeusync/arcade/internal/core/components"
	"github.com/zeusync/arcade/internal/core/models"
	"github.com/zeusync/arcade/internal/core/systems"
)

const EnemyAIName = "enemy_ai"

// EnemyAISystem walks enemies back and forth between their patrol bounds
// (priority 60).
type EnemyAISystem struct {
	systems.Base

	store *models.Store
}

func NewEnemyAISystem(store *models.Store) *EnemyAISystem {
	return &EnemyAISystem{
		Base:  systems.NewBase(EnemyAIName, systems.PriorityAI),
		store: store,
	}
}

func (s *EnemyAISystem) Update(float64) error {
	for _, e := range s.store.Entities() {
		if !e.Active || e.Name != NameEnemy {
			continue
		}
		state, ok := EnemyStateOf(e)
		if !ok || state.Defeated {
			continue
		}
		body, okBody := components.BodyOf(e)
		transform, okTransform := components.TransformOf(e)
		if !okBody || !okTransform {
			continue
		}

		x := transform.Position[0]
		switch {
		case x < state.PatrolMin && state.Direction < 0:
			state.Direction = 1
		case x > state.PatrolMax && state.Direction > 0:
			state.Direction = -1
		}
		body.Velocity[0] = state.Direction * state.Speed
	}
	return nil
}
