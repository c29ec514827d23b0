package audio

import (
	"math"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/generators"
)

// Cue is a short synthesized sound effect.
type Cue int

const (
	CueCoin Cue = iota
	CueRespawn
	CueHit
	CueLevelComplete
	CueGameOver
)

func (c Cue) String() string {
	switch c {
	case CueCoin:
		return "coin"
	case CueRespawn:
		return "respawn"
	case CueHit:
		return "hit"
	case CueLevelComplete:
		return "level_complete"
	case CueGameOver:
		return "game_over"
	default:
		return "unknown"
	}
}

type wave int

const (
	sine wave = iota
	square
	triangle
)

type note struct {
	freq     float64
	duration time.Duration
	wave     wave
}

var cueNotes = map[Cue][]note{
	CueCoin:          {{988, 60 * time.Millisecond, square}, {1319, 140 * time.Millisecond, square}},
	CueRespawn:       {{330, 80 * time.Millisecond, triangle}, {440, 80 * time.Millisecond, triangle}, {660, 120 * time.Millisecond, triangle}},
	CueHit:           {{140, 120 * time.Millisecond, square}},
	CueLevelComplete: {{523, 120 * time.Millisecond, sine}, {659, 120 * time.Millisecond, sine}, {784, 120 * time.Millisecond, sine}, {1047, 300 * time.Millisecond, sine}},
	CueGameOver:      {{392, 200 * time.Millisecond, triangle}, {330, 200 * time.Millisecond, triangle}, {262, 400 * time.Millisecond, triangle}},
}

// Tone builds the finite streamer of a cue at the given volume (0..1).
func Tone(cue Cue, rate beep.SampleRate, volume float64) (beep.Streamer, error) {
	notes, ok := cueNotes[cue]
	if !ok {
		return nil, ErrUnknownCue
	}
	parts := make([]beep.Streamer, 0, len(notes))
	for _, n := range notes {
		osc, err := oscillator(n.wave, rate, n.freq)
		if err != nil {
			return nil, err
		}
		parts = append(parts, beep.Take(rate.N(n.duration), osc))
	}
	return withVolume(beep.Seq(parts...), volume), nil
}

// Duration is the length of a cue.
func Duration(cue Cue) time.Duration {
	var d time.Duration
	for _, n := range cueNotes[cue] {
		d += n.duration
	}
	return d
}

func oscillator(w wave, rate beep.SampleRate, freq float64) (beep.Streamer, error) {
	switch w {
	case square:
		return generators.SquareTone(rate, freq)
	case triangle:
		return generators.TriangleTone(rate, freq)
	default:
		return generators.SineTone(rate, freq)
	}
}

// math.Log2(0) is -Inf, so zero volume is explicit silence
func withVolume(s beep.Streamer, volume float64) beep.Streamer {
	if volume <= 0 {
		return &effects.Volume{Streamer: s, Base: 2, Silent: true}
	}
	return &effects.Volume{Streamer: s, Base: 2, Volume: math.Log2(math.Min(volume, 1))}
}
