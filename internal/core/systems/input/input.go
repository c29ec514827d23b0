// Package input tracks held keys, the pointer, touches and gamepads so that
// gameplay systems can poll them once per frame.
package input

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/zeusync/arcade/internal/core/config"
	"github.com/zeusync/arcade/internal/core/observability/log"
	"github.com/zeusync/arcade/internal/core/systems"
)

const Name = "input"

// Key identifiers shared by every backend.
const (
	KeyArrowLeft  = "ArrowLeft"
	KeyArrowRight = "ArrowRight"
	KeyArrowUp    = "ArrowUp"
	KeyArrowDown  = "ArrowDown"
	KeyEnter      = "Enter"
	KeyEscape     = "Escape"
	KeySpace      = " "
	KeyTab        = "Tab"
	KeyBackspace  = "Backspace"
)

type Pointer struct {
	X, Y    int
	Buttons tcell.ButtonMask
}

type Touch struct {
	ID   int
	X, Y float64
}

type GamepadState struct {
	Connected bool
	Buttons   []bool
	Axes      []float64
}

// GamepadSource is polled once per frame. Pads reported as disconnected are dropped.
type GamepadSource interface {
	Gamepads() map[int]GamepadState
}

// State is a point-in-time copy of everything the system tracks.
type State struct {
	Keys     []string
	Pointer  Pointer
	Touches  map[int]Touch
	Gamepads map[int]GamepadState
}

type heldKey struct {
	// zero for keys reported with an explicit release
	expires time.Time
}

// System runs first in every frame (priority 100). Terminal keys carry no
// release event, so a key counts as held until it stops repeating for
// KeyHoldTimeout.
type System struct {
	systems.Base

	logger      log.Log
	holdTimeout time.Duration
	repeatDelay time.Duration
	now         func() time.Time
	source      GamepadSource

	mu       sync.RWMutex
	keys     map[string]heldKey
	pointer  Pointer
	touches  map[int]Touch
	gamepads map[int]GamepadState
}

type Option func(*System)

func WithGamepadSource(source GamepadSource) Option {
	return func(s *System) {
		s.source = source
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *System) {
		if now != nil {
			s.now = now
		}
	}
}

func New(cfg config.InputConfig, logger log.Log, opts ...Option) *System {
	if logger == nil {
		logger = log.NewNop()
	}
	if cfg.KeyHoldTimeout <= 0 {
		cfg.KeyHoldTimeout = 150 * time.Millisecond
	}
	s := &System{
		Base:        systems.NewBase(Name, systems.PriorityInput),
		logger:      logger.With(log.String("component", "input")),
		holdTimeout: cfg.KeyHoldTimeout,
		repeatDelay: cfg.RepeatDelay,
		now:         time.Now,
		keys:        make(map[string]heldKey),
		touches:     make(map[int]Touch),
		gamepads:    make(map[int]GamepadState),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *System) Init(context.Context) error {
	s.logger.Debug("input ready",
		log.Duration("key_hold_timeout", s.holdTimeout),
		log.Bool("gamepads", s.source != nil))
	return nil
}

// Update polls gamepads and releases terminal keys that stopped repeating.
func (s *System) Update(float64) error {
	var pads map[int]GamepadState
	if s.source != nil {
		pads = s.source.Gamepads()
	}

	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, held := range s.keys {
		if expired(held, now) {
			delete(s.keys, key)
		}
	}

	if s.source == nil {
		return nil
	}
	clear(s.gamepads)
	for idx, pad := range pads {
		if !pad.Connected {
			continue
		}
		s.gamepads[idx] = GamepadState{
			Connected: true,
			Buttons:   append([]bool(nil), pad.Buttons...),
			Axes:      append([]float64(nil), pad.Axes...),
		}
	}
	return nil
}

func (s *System) Destroy(context.Context) error {
	s.Reset()
	return nil
}

// HandleEvent records a terminal event. It reports whether the event was used.
func (s *System) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		name := KeyName(ev)
		if name == "" {
			return false
		}
		s.press(name)
		return true
	case *tcell.EventMouse:
		x, y := ev.Position()
		s.mu.Lock()
		s.pointer = Pointer{X: x, Y: y, Buttons: ev.Buttons()}
		s.mu.Unlock()
		return true
	}
	return false
}

func (s *System) press(name string) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	window := s.holdTimeout
	if held, ok := s.keys[name]; !ok || expired(held, now) {
		// autorepeat has not started yet
		window += s.repeatDelay
	}
	s.keys[name] = heldKey{expires: now.Add(window)}
}

// KeyDown marks key as held until KeyUp, for backends that report releases.
func (s *System) KeyDown(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[key] = heldKey{}
}

func (s *System) KeyUp(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, key)
}

func (s *System) TouchStart(id int, x, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touches[id] = Touch{ID: id, X: x, Y: y}
}

// TouchMove updates a known touch; unknown ids are ignored.
func (s *System) TouchMove(id int, x, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.touches[id]; ok {
		s.touches[id] = Touch{ID: id, X: x, Y: y}
	}
}

func (s *System) TouchEnd(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.touches, id)
}

// Reset forgets all tracked input.
func (s *System) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.keys)
	clear(s.touches)
	clear(s.gamepads)
	s.pointer = Pointer{}
}

func (s *System) IsKeyPressed(key string) bool {
	now := s.now()
	s.mu.RLock()
	defer s.mu.RUnlock()
	held, ok := s.keys[key]
	return ok && !expired(held, now)
}

func (s *System) IsAnyKeyPressed(keys ...string) bool {
	for _, key := range keys {
		if s.IsKeyPressed(key) {
			return true
		}
	}
	return false
}

func (s *System) IsGamepadButtonPressed(pad, button int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.gamepads[pad]
	if !ok || button < 0 || button >= len(state.Buttons) {
		return false
	}
	return state.Buttons[button]
}

// GamepadAxis returns 0 for unknown pads or axes.
func (s *System) GamepadAxis(pad, axis int) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.gamepads[pad]
	if !ok || axis < 0 || axis >= len(state.Axes) {
		return 0
	}
	return state.Axes[axis]
}

func (s *System) Pointer() Pointer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pointer
}

func (s *System) Touches() map[int]Touch {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int]Touch, len(s.touches))
	for id, t := range s.touches {
		out[id] = t
	}
	return out
}

// State returns a copy of the tracked input. Keys are sorted.
func (s *System) State() State {
	now := s.now()
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := State{
		Pointer:  s.pointer,
		Touches:  make(map[int]Touch, len(s.touches)),
		Gamepads: make(map[int]GamepadState, len(s.gamepads)),
	}
	for key, held := range s.keys {
		if !expired(held, now) {
			st.Keys = append(st.Keys, key)
		}
	}
	sort.Strings(st.Keys)
	for id, t := range s.touches {
		st.Touches[id] = t
	}
	for idx, pad := range s.gamepads {
		st.Gamepads[idx] = GamepadState{
			Connected: pad.Connected,
			Buttons:   append([]bool(nil), pad.Buttons...),
			Axes:      append([]float64(nil), pad.Axes...),
		}
	}
	return st
}

func expired(k heldKey, now time.Time) bool {
	return !k.expires.IsZero() && now.After(k.expires)
}

// KeyName maps a terminal key event to its identifier: DOM-style names for
// navigation keys, " " for space and the character itself for other runes.
func KeyName(ev *tcell.EventKey) string {
	switch ev.Key() {
	case tcell.KeyRune:
		return string(ev.Rune())
	case tcell.KeyLeft:
		return KeyArrowLeft
	case tcell.KeyRight:
		return KeyArrowRight
	case tcell.KeyUp:
		return KeyArrowUp
	case tcell.KeyDown:
		return KeyArrowDown
	case tcell.KeyEnter:
		return KeyEnter
	case tcell.KeyEscape:
		return KeyEscape
	case tcell.KeyTab:
		return KeyTab
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		return KeyBackspace
	}
	return ev.Name()
}
