package platformer

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed assets
var embedded embed.FS

const (
	defaultVoidY     = -15.0
	defaultPatrolMin = -15.0
	defaultPatrolMax = 15.0
	levelFile        = "assets/level.yaml"
)

// Level is the layout of one stage. Points are [x, y] in world units.
type Level struct {
	Name      string         `yaml:"name"`
	Spawn     [2]float64     `yaml:"spawn"`
	Respawn   [2]float64     `yaml:"respawn"`
	VoidY     float64        `yaml:"void_y"`
	Platforms []PlatformSpec `yaml:"platforms"`
	Coins     [][2]float64   `yaml:"coins"`
	Enemies   []EnemySpec    `yaml:"enemies"`
	Flag      *[2]float64    `yaml:"flag"`
}

type PlatformSpec struct {
	X    float64 `yaml:"x"`
	Y    float64 `yaml:"y"`
	W    float64 `yaml:"w"`
	H    float64 `yaml:"h"`
	Kind string  `yaml:"kind"`
}

type EnemySpec struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	// Patrol is [min, max] on x; empty means ±15.
	Patrol []float64 `yaml:"patrol"`
}

// Bounds returns the patrol interval.
func (e EnemySpec) Bounds() (float64, float64) {
	if len(e.Patrol) != 2 {
		return defaultPatrolMin, defaultPatrolMax
	}
	return e.Patrol[0], e.Patrol[1]
}

// ParseLevel decodes and validates a level document.
func ParseLevel(data []byte) (*Level, error) {
	lvl := &Level{VoidY: defaultVoidY}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(lvl); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLevel, err)
	}
	if err := lvl.Validate(); err != nil {
		return nil, err
	}
	return lvl, nil
}

func (l *Level) Validate() error {
	if len(l.Platforms) == 0 {
		return fmt.Errorf("%w: %q has no platforms", ErrInvalidLevel, l.Name)
	}
	for i, p := range l.Platforms {
		if p.W <= 0 || p.H <= 0 {
			return fmt.Errorf("%w: platform %d has a non-positive size", ErrInvalidLevel, i)
		}
	}
	for i, e := range l.Enemies {
		if len(e.Patrol) != 0 && len(e.Patrol) != 2 {
			return fmt.Errorf("%w: enemy %d patrol needs [min, max]", ErrInvalidLevel, i)
		}
		if lo, hi := e.Bounds(); lo >= hi {
			return fmt.Errorf("%w: enemy %d patrol is empty", ErrInvalidLevel, i)
		}
	}
	if l.Respawn[1] <= l.VoidY {
		return fmt.Errorf("%w: respawn point is below the void", ErrInvalidLevel)
	}
	return nil
}

// DefaultLevel returns the embedded stage.
func DefaultLevel() (*Level, error) {
	data, err := embedded.ReadFile(levelFile)
	if err != nil {
		return nil, err
	}
	return ParseLevel(data)
}

// LoadLevel reads a level file, or the embedded stage when path is empty.
func LoadLevel(path string) (*Level, error) {
	if path == "" {
		return DefaultLevel()
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read level %s: %w", path, err)
	}
	return ParseLevel(data)
}

// Sprites returns the sprite file system: dir when set, the embedded set otherwise.
func Sprites(dir string) (fs.FS, error) {
	if dir != "" {
		return os.DirFS(dir), nil
	}
	return fs.Sub(embedded, "assets/sprites")
}
