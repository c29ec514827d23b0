package injector

import (
	"context"
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/google/wire"
	"github.com/gopxl/beep"

	"github.com/zeusync/arcade/internal/core/assets"
	"github.com/zeusync/arcade/internal/core/config"
	"github.com/zeusync/arcade/internal/core/observability/log"
	"github.com/zeusync/arcade/internal/core/system"
	"github.com/zeusync/arcade/internal/core/systems"
	"github.com/zeusync/arcade/internal/core/systems/audio"
	"github.com/zeusync/arcade/internal/core/systems/input"
	"github.com/zeusync/arcade/internal/core/systems/physics"
	"github.com/zeusync/arcade/internal/core/systems/render"
	"github.com/zeusync/arcade/internal/game/platformer"
	"github.com/zeusync/arcade/internal/server"
)

// ProviderSet builds an App from a Config.
var ProviderSet = wire.NewSet(
	ProvideLogger,
	ProvideScene,
	ProvideViewport,
	ProvideRenderer,
	ProvideManager,
	ProvideInput,
	ProvidePhysics,
	ProvideRenderSystem,
	ProvideAudio,
	ProvideSpectator,
	ProvideSpectatorSystem,
	ProvideLevel,
	ProvideSprites,
	ProvideGame,
	NewApp,
)

func ProvideLogger(cfg config.Config) (log.Log, error) {
	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	output := cfg.Log.Output
	if output == "" {
		output = "stderr"
	}
	logger, err := log.Build(level, log.Encoding(cfg.Log.Encoding), output)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}

func ProvideScene() *render.Scene {
	return render.NewScene()
}

// ProvideViewport opens the terminal. It returns nil when running headless.
func ProvideViewport(cfg config.Config, scene *render.Scene, logger log.Log) (*render.Viewport, func(), error) {
	if cfg.Viewport.Headless {
		return nil, func() {}, nil
	}
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, nil, fmt.Errorf("open terminal: %w", err)
	}
	if err = screen.Init(); err != nil {
		return nil, nil, fmt.Errorf("init terminal: %w", err)
	}
	screen.EnableMouse()
	screen.HideCursor()

	vp := render.NewViewport(screen, scene, cfg.Viewport, logger)
	return vp, func() { _ = vp.Close() }, nil
}

// ProvideRenderer keeps a missing viewport a nil interface.
func ProvideRenderer(vp *render.Viewport) system.Renderer {
	if vp == nil {
		return nil
	}
	return vp
}

func ProvideManager(cfg config.Config, logger log.Log, renderer system.Renderer) *system.Manager {
	return system.NewManager(cfg.Engine, logger, renderer)
}

func ProvideInput(cfg config.Config, logger log.Log) *input.System {
	return input.New(cfg.Input, logger)
}

func ProvidePhysics(cfg config.Config, m *system.Manager, logger log.Log) *physics.System {
	return physics.New(m.Store(), m.Bus(), logger, cfg.Engine.Gravity)
}

func ProvideRenderSystem(m *system.Manager, scene *render.Scene, logger log.Log) *render.System {
	return render.NewSystem(m.Store(), scene, logger)
}

// ProvideAudio falls back to silence when the sound device is unavailable.
func ProvideAudio(cfg config.Config, m *system.Manager, logger log.Log) *audio.System {
	var player audio.Player
	if cfg.Audio.Enabled {
		sp, err := audio.NewSpeakerPlayer(beep.SampleRate(cfg.Audio.SampleRate))
		if err != nil {
			logger.Warn("audio disabled", log.Error(err))
		} else {
			player = sp
		}
	}
	return audio.NewSystem(cfg.Audio, m.Bus(), player, logger)
}

// ProvideSpectator returns nil when the spectator feed is disabled.
func ProvideSpectator(cfg config.Config, logger log.Log) *server.Server {
	if !cfg.Spectator.Enabled {
		return nil
	}
	return server.NewServer(server.ConfigFrom(cfg.Spectator), logger)
}

func ProvideSpectatorSystem(srv *server.Server, m *system.Manager, logger log.Log) *server.System {
	if srv == nil {
		return nil
	}
	return server.NewSystem(m.Store(), srv, m, logger)
}

func ProvideLevel(cfg config.Config) (*platformer.Level, error) {
	return platformer.LoadLevel(cfg.Game.LevelFile)
}

// ProvideSprites preloads the sprite set. Missing sprites only cost their
// visuals, so preload failures are logged and not returned.
func ProvideSprites(ctx context.Context, cfg config.Config, logger log.Log) (*assets.Loader, error) {
	fsys, err := platformer.Sprites(cfg.Game.SpriteDir)
	if err != nil {
		return nil, err
	}
	loader := assets.NewLoader(fsys, logger)
	_ = loader.Preload(ctx, platformer.SpritePaths)
	return loader, nil
}

func ProvideGame(
	ctx context.Context,
	cfg config.Config,
	m *system.Manager,
	lvl *platformer.Level,
	sprites *assets.Loader,
	in *input.System,
	phys *physics.System,
	rs *render.System,
	au *audio.System,
	spectator *server.System,
	vp *render.Viewport,
	logger log.Log,
) (*platformer.Game, func(), error) {
	engine := []systems.System{in, phys, rs, au}
	if spectator != nil {
		engine = append(engine, spectator)
	}

	g, err := platformer.Setup(ctx, m, platformer.Options{
		Level:      lvl,
		Sprites:    sprites,
		StartLives: cfg.Game.StartLives,
		Engine:     engine,
		Logger:     logger,
	})
	if err != nil {
		return nil, nil, err
	}
	if vp != nil {
		vp.SetHUD(g.Session.HUD)
	}
	return g, func() { _ = g.Close(context.Background()) }, nil
}
