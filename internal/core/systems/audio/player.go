package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
)

// Player plays finite streamers without blocking.
type Player interface {
	Play(s beep.Streamer)
	Close() error
}

// SpeakerPlayer plays through the system audio device.
type SpeakerPlayer struct {
	once sync.Once
}

// NewSpeakerPlayer initialises the speaker with a 100ms buffer.
func NewSpeakerPlayer(rate beep.SampleRate) (*SpeakerPlayer, error) {
	if err := speaker.Init(rate, rate.N(100*time.Millisecond)); err != nil {
		return nil, fmt.Errorf("init speaker: %w", err)
	}
	return &SpeakerPlayer{}, nil
}

func (p *SpeakerPlayer) Play(s beep.Streamer) {
	speaker.Play(s)
}

func (p *SpeakerPlayer) Close() error {
	p.once.Do(speaker.Close)
	return nil
}

// Silent discards everything. It stands in when no device is available.
type Silent struct{}

func (Silent) Play(beep.Streamer) {}
func (Silent) Close() error       { return nil }
