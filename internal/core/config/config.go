package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration of the engine and the demo game.
type Config struct {
	Engine    EngineConfig    `yaml:"engine"`
	Viewport  ViewportConfig  `yaml:"viewport"`
	Input     InputConfig     `yaml:"input"`
	Audio     AudioConfig     `yaml:"audio"`
	Spectator SpectatorConfig `yaml:"spectator"`
	Game      GameConfig      `yaml:"game"`
	Log       LogConfig       `yaml:"log"`
}

type EngineConfig struct {
	// TargetFPS is the rate of the frame ticker.
	TargetFPS int `yaml:"target_fps"`
	// MaxDeltaTime caps the delta handed to systems, in seconds.
	MaxDeltaTime float64 `yaml:"max_delta_time"`
	// Gravity is subtracted from vertical velocity per second squared.
	Gravity float64 `yaml:"gravity"`
}

type ViewportConfig struct {
	Width      int     `yaml:"width"`
	Height     int     `yaml:"height"`
	ViewHeight float64 `yaml:"view_height"`
	Headless   bool    `yaml:"headless"`
}

type InputConfig struct {
	// KeyHoldTimeout releases a terminal key that has not repeated for this long.
	KeyHoldTimeout time.Duration `yaml:"key_hold_timeout"`
	// RepeatDelay extends the first hold window until terminal autorepeat starts.
	RepeatDelay time.Duration `yaml:"repeat_delay"`
}

type AudioConfig struct {
	Enabled    bool    `yaml:"enabled"`
	SampleRate int     `yaml:"sample_rate"`
	Volume     float64 `yaml:"volume"`
}

type SpectatorConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listen_addr"`
	Path       string `yaml:"path"`
	MaxClients int    `yaml:"max_clients"`
}

type GameConfig struct {
	// LevelFile overrides the embedded level layout when set.
	LevelFile string `yaml:"level_file"`
	// SpriteDir overrides the embedded sprite set when set.
	SpriteDir  string `yaml:"sprite_dir"`
	StartLives int    `yaml:"start_lives"`
}

type LogConfig struct {
	Level    string `yaml:"level"`
	Encoding string `yaml:"encoding"`
	Output   string `yaml:"output"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Engine: EngineConfig{
			TargetFPS:    60,
			MaxDeltaTime: 1.0 / 60.0,
			Gravity:      20,
		},
		Viewport: ViewportConfig{
			Width:      80,
			Height:     24,
			ViewHeight: 20,
		},
		Input: InputConfig{
			KeyHoldTimeout: 150 * time.Millisecond,
			RepeatDelay:    500 * time.Millisecond,
		},
		Audio: AudioConfig{
			Enabled:    true,
			SampleRate: 44100,
			Volume:     0.3,
		},
		Spectator: SpectatorConfig{
			Enabled:    false,
			ListenAddr: "127.0.0.1:8080",
			Path:       "/ws",
			MaxClients: 64,
		},
		Game: GameConfig{
			SpriteDir:  "",
			StartLives: 3,
		},
		Log: LogConfig{
			Level:    "info",
			Encoding: "json",
			Output:   "stderr",
		},
	}
}

// Load reads a YAML file on top of Default. Unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err = Decode(data, &cfg); err != nil {
		return Default(), fmt.Errorf("decode config %s: %w", path, err)
	}
	return cfg, nil
}

// Decode unmarshals YAML into cfg, keeping values the document does not set.
func Decode(data []byte, cfg *Config) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg.Validate()
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return err
	}
	return cfg.Validate()
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	var errs []error
	if c.Engine.TargetFPS <= 0 {
		errs = append(errs, fmt.Errorf("%w: engine.target_fps must be positive", ErrInvalidConfig))
	}
	if c.Engine.MaxDeltaTime <= 0 {
		errs = append(errs, fmt.Errorf("%w: engine.max_delta_time must be positive", ErrInvalidConfig))
	}
	if c.Engine.Gravity < 0 {
		errs = append(errs, fmt.Errorf("%w: engine.gravity must not be negative", ErrInvalidConfig))
	}
	if c.Viewport.ViewHeight <= 0 {
		errs = append(errs, fmt.Errorf("%w: viewport.view_height must be positive", ErrInvalidConfig))
	}
	if c.Audio.Enabled && c.Audio.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("%w: audio.sample_rate must be positive", ErrInvalidConfig))
	}
	if c.Spectator.Enabled && c.Spectator.ListenAddr == "" {
		errs = append(errs, fmt.Errorf("%w: spectator.listen_addr is required", ErrInvalidConfig))
	}
	if c.Game.StartLives <= 0 {
		errs = append(errs, fmt.Errorf("%w: game.start_lives must be positive", ErrInvalidConfig))
	}
	return errors.Join(errs...)
}

// FrameInterval is the ticker period derived from TargetFPS.
func (e EngineConfig) FrameInterval() time.Duration {
	if e.TargetFPS <= 0 {
		return time.Second / 60
	}
	return time.Second / time.Duration(e.TargetFPS)
}
