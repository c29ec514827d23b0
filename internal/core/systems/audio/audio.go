// Package audio turns gameplay events into short synthesized sound cues.
package audio

import (
	"context"
	"sync"

	"github.com/gopxl/beep"

	"github.com/zeusync/arcade/internal/core/config"
	"github.com/zeusync/arcade/internal/core/events/bus"
	"github.com/zeusync/arcade/internal/core/observability/log"
	"github.com/zeusync/arcade/internal/core/systems"
)

const Name = "audio"

var eventCues = map[string]Cue{
	bus.EventItemCollected: CueCoin,
	bus.EventPlayerRespawn: CueRespawn,
	bus.EventPlayerDied:    CueHit,
	bus.EventLevelComplete: CueLevelComplete,
	bus.EventGameOver:      CueGameOver,
}

// System queues cues from bus events and plays them once per frame
// (priority 20). A cue raised several times in one frame plays once.
type System struct {
	systems.Base

	bus    bus.EventBus
	player Player
	logger log.Log
	rate   beep.SampleRate
	volume float64

	subs []bus.Subscription

	mu      sync.Mutex
	pending []Cue
	played  map[Cue]int
}

// NewSystem uses Silent when player is nil or audio is disabled.
func NewSystem(cfg config.AudioConfig, eventBus bus.EventBus, player Player, logger log.Log) *System {
	if logger == nil {
		logger = log.NewNop()
	}
	if player == nil || !cfg.Enabled {
		player = Silent{}
	}
	rate := cfg.SampleRate
	if rate <= 0 {
		rate = 44100
	}
	return &System{
		Base:   systems.NewBase(Name, systems.PriorityAudio),
		bus:    eventBus,
		player: player,
		logger: logger.With(log.String("component", "audio")),
		rate:   beep.SampleRate(rate),
		volume: cfg.Volume,
		played: make(map[Cue]int),
	}
}

func (s *System) Init(context.Context) error {
	for eventType, cue := range eventCues {
		s.subs = append(s.subs, s.bus.On(eventType, func(bus.Event) error {
			s.Queue(cue)
			return nil
		}))
	}
	return nil
}

// Queue schedules cue for the next Update.
func (s *System) Queue(cue Cue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.pending {
		if c == cue {
			return
		}
	}
	s.pending = append(s.pending, cue)
}

func (s *System) Update(float64) error {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, cue := range pending {
		tone, err := Tone(cue, s.rate, s.volume)
		if err != nil {
			s.logger.Warn("cue unavailable", log.String("cue", cue.String()), log.Error(err))
			continue
		}
		s.player.Play(tone)

		s.mu.Lock()
		s.played[cue]++
		s.mu.Unlock()
	}
	return nil
}

// Played reports how many times cue has been played.
func (s *System) Played(cue Cue) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.played[cue]
}

func (s *System) Destroy(context.Context) error {
	for _, sub := range s.subs {
		_ = sub.Cancel()
	}
	s.subs = nil
	return s.player.Close()
}
