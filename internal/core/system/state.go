package system

import "time"

// State is the lifecycle state of a Manager.
type State int32

const (
	StateUninitialized State = iota
	StateInitializing
	StateRunning
	StatePaused
	StateStopped
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// GameState is the session record shared by gameplay systems and the HUD.
type GameState struct {
	IsRunning    bool
	IsPaused     bool
	CurrentLevel int
	Score        int
	Lives        int
}

// Renderer is the per-frame rendering collaborator of a Manager.
type Renderer interface {
	Render() error
	Resize(width, height int)
	Close() error
}

type nopRenderer struct{}

func (nopRenderer) Render() error   { return nil }
func (nopRenderer) Resize(int, int) {}
func (nopRenderer) Close() error    { return nil }

// Metrics describes the update history of one system.
type Metrics struct {
	Updates        uint64
	Errors         uint64
	LastError      error
	LastUpdateTime time.Duration
	TotalTime      time.Duration
}

// AverageUpdateTime is TotalTime spread over Updates.
func (m Metrics) AverageUpdateTime() time.Duration {
	if m.Updates == 0 {
		return 0
	}
	return m.TotalTime / time.Duration(m.Updates)
}

// ManagerMetrics provides scheduler statistics.
type ManagerMetrics struct {
	RegisteredSystems int
	Frames            uint64
	TotalUpdateTime   time.Duration
	AverageFrameTime  time.Duration
	SystemErrorCount  map[string]uint64
	LastFrameAt       time.Time
	Uptime            time.Duration
}
