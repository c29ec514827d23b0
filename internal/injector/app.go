package injector

import (
	"context"
	"errors"
	"time"

	"github.com/gdamore/tcell/v2"
	"golang.org/x/sync/errgroup"

	"github.com/zeusync/arcade/internal/core/config"
	"github.com/zeusync/arcade/internal/core/observability/log"
	"github.com/zeusync/arcade/internal/core/systems/input"
	"github.com/zeusync/arcade/internal/core/systems/render"
	"github.com/zeusync/arcade/internal/game/platformer"
	"github.com/zeusync/arcade/internal/server"
)

const shutdownTimeout = 5 * time.Second

// App is the assembled game process.
type App struct {
	Config    config.Config
	Logger    log.Log
	Game      *platformer.Game
	Input     *input.System
	Viewport  *render.Viewport
	Spectator *server.Server
}

func NewApp(
	cfg config.Config,
	logger log.Log,
	game *platformer.Game,
	in *input.System,
	vp *render.Viewport,
	spectator *server.Server,
) *App {
	return &App{
		Config:    cfg,
		Logger:    logger,
		Game:      game,
		Input:     in,
		Viewport:  vp,
		Spectator: spectator,
	}
}

// Run starts the frame loop, the terminal pump and the spectator feed, and
// blocks until ctx is done or the player quits.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := a.Game.Manager.Init(ctx); err != nil {
		a.Logger.Warn("game initialised with errors", log.Error(err))
	}
	defer a.Game.Manager.Stop()

	if a.Spectator != nil {
		if err := a.Spectator.Start(ctx); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	if a.Viewport != nil {
		g.Go(func() error {
			defer cancel()
			return a.Viewport.Pump(gctx, func(ev tcell.Event) {
				if a.HandleEvent(ev) {
					cancel()
				}
			})
		})
	}

	if a.Spectator != nil {
		g.Go(func() error {
			<-gctx.Done()
			stopCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
			defer stop()
			if err := a.Spectator.Stop(stopCtx); err != nil && !errors.Is(err, server.ErrServerNotRunning) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	a.Logger.Info("game running",
		log.Bool("headless", a.Viewport == nil),
		log.Bool("spectator", a.Spectator != nil))

	err := g.Wait()
	gs := a.Game.Manager.GameState()
	a.Logger.Info("game finished",
		log.Int("score", gs.Score),
		log.Int("lives", gs.Lives),
		log.Uint64("frames", a.Game.Manager.FrameCount()))
	return err
}

// HandleEvent routes a terminal event and reports whether the player asked
// to quit.
func (a *App) HandleEvent(ev tcell.Event) bool {
	if key, ok := ev.(*tcell.EventKey); ok {
		switch {
		case key.Key() == tcell.KeyEscape, key.Key() == tcell.KeyCtrlC:
			return true
		case key.Key() == tcell.KeyRune && (key.Rune() == 'p' || key.Rune() == 'P'):
			a.Game.TogglePause()
			return false
		}
	}
	a.Input.HandleEvent(ev)
	return false
}
