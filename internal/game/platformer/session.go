package platformer

import (
	"sync"

	"github.com/zeusync/arcade/internal/core/events/bus"
	"github.com/zeusync/arcade/internal/core/models"
	"github.com/zeusync/arcade/internal/core/observability/log"
	"github.com/zeusync/arcade/internal/core/system"
	"github.com/zeusync/arcade/internal/core/systems/render"
)

// HUD status lines.
const (
	StatusPaused        = "PAUSED"
	StatusGameOver      = "GAME OVER"
	StatusLevelComplete = "LEVEL COMPLETE"
)

// SessionControl is the part of *system.Manager a session drives.
type SessionControl interface {
	GameState() system.GameState
	UpdateGameState(fn func(*system.GameState))
	Pause()
}

// Session mirrors the player's score and lives onto the manager's game state
// and pauses the game when it ends.
type Session struct {
	store  *models.Store
	bus    bus.EventBus
	ctl    SessionControl
	logger log.Log

	subs []bus.Subscription

	mu     sync.Mutex
	status string
}

func NewSession(store *models.Store, eventBus bus.EventBus, ctl SessionControl, logger log.Log) *Session {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Session{
		store:  store,
		bus:    eventBus,
		ctl:    ctl,
		logger: logger.With(log.String("component", "session")),
	}
}

// Attach subscribes to gameplay events and publishes the initial state.
func (s *Session) Attach(level int) {
	s.ctl.UpdateGameState(func(gs *system.GameState) {
		gs.CurrentLevel = level
	})
	s.sync()

	for _, eventType := range []string{
		bus.EventItemCollected,
		bus.EventEnemyDefeated,
		bus.EventPlayerRespawn,
		bus.EventPlayerDied,
	} {
		s.subs = append(s.subs, s.bus.On(eventType, func(bus.Event) error {
			s.sync()
			return nil
		}))
	}
	s.subs = append(s.subs,
		s.bus.On(bus.EventGameOver, func(bus.Event) error {
			s.end(StatusGameOver)
			return nil
		}),
		s.bus.On(bus.EventLevelComplete, func(bus.Event) error {
			s.end(StatusLevelComplete)
			return nil
		}),
	)
}

// Detach cancels every subscription.
func (s *Session) Detach() {
	for _, sub := range s.subs {
		_ = sub.Cancel()
	}
	s.subs = nil
}

func (s *Session) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// HUD reports the status line for the viewport.
func (s *Session) HUD() render.HUD {
	gs := s.ctl.GameState()
	status := s.Status()
	if status == "" && gs.IsPaused {
		status = StatusPaused
	}
	return render.HUD{Score: gs.Score, Lives: gs.Lives, Status: status}
}

func (s *Session) sync() {
	player, ok := s.store.FindByName(NamePlayer)
	if !ok {
		return
	}
	state, ok := PlayerStateOf(player)
	if !ok {
		return
	}
	s.ctl.UpdateGameState(func(gs *system.GameState) {
		gs.Score = state.Score
		gs.Lives = state.Lives
	})
}

func (s *Session) end(status string) {
	s.sync()

	s.mu.Lock()
	if s.status != "" {
		s.mu.Unlock()
		return
	}
	s.status = status
	s.mu.Unlock()

	gs := s.ctl.GameState()
	s.logger.Info("session ended",
		log.String("status", status),
		log.Int("score", gs.Score),
		log.Int("lives", gs.Lives))
	s.ctl.Pause()
}
