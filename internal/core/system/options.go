package system

import (
	"time"

	"github.com/zeusync/arcade/internal/core/events/bus"
	"github.com/zeusync/arcade/internal/core/models"
)

type Option func(*Manager)

// WithManualFrames disables the ticker loop; frames advance only through
// Tick or Step.
func WithManualFrames() Option {
	return func(m *Manager) {
		m.manualFrames = true
	}
}

// WithClock replaces time.Now for frame timing and metrics.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

func WithBus(b bus.EventBus) Option {
	return func(m *Manager) {
		if b != nil {
			m.bus = b
		}
	}
}

func WithStore(s *models.Store) Option {
	return func(m *Manager) {
		if s != nil {
			m.store = s
		}
	}
}
