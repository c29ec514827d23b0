package render

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"github.com/zeusync/arcade/internal/core/components"
	"github.com/zeusync/arcade/internal/core/config"
	"github.com/zeusync/arcade/internal/core/observability/log"
)

const (
	hudRows = 1
	// terminal cells are roughly twice as tall as they are wide
	cellAspect = 2.0

	defaultViewHeight = 20.0
)

// HUD is the status line drawn above the world.
type HUD struct {
	Score  int
	Lives  int
	Status string
}

// Viewport draws a Scene onto a tcell screen through an orthographic camera
// that shows ViewHeight world units vertically.
type Viewport struct {
	screen     tcell.Screen
	scene      *Scene
	logger     log.Log
	viewHeight float64
	hud        func() HUD

	mu     sync.Mutex
	width  int
	height int
	closed bool
}

type ViewportOption func(*Viewport)

// WithHUD sets the provider of the status line.
func WithHUD(fn func() HUD) ViewportOption {
	return func(v *Viewport) {
		v.hud = fn
	}
}

// NewViewport takes ownership of an initialised screen.
func NewViewport(screen tcell.Screen, scene *Scene, cfg config.ViewportConfig, logger log.Log, opts ...ViewportOption) *Viewport {
	if logger == nil {
		logger = log.NewNop()
	}
	if cfg.ViewHeight <= 0 {
		cfg.ViewHeight = defaultViewHeight
	}
	w, h := screen.Size()
	v := &Viewport{
		screen:     screen,
		scene:      scene,
		logger:     logger.With(log.String("component", "viewport")),
		viewHeight: cfg.ViewHeight,
		width:      w,
		height:     h,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// SetHUD replaces the status line provider.
func (v *Viewport) SetHUD(fn func() HUD) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.hud = fn
}

// Render draws the scene and the HUD, then shows the frame.
func (v *Viewport) Render() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return nil
	}

	v.screen.Clear()
	for _, vis := range v.scene.Visuals() {
		if !vis.Visible {
			continue
		}
		v.drawVisual(vis)
	}
	if v.hud != nil {
		v.drawHUD(v.hud())
	}
	v.screen.Show()
	return nil
}

// Resize records new terminal dimensions.
func (v *Viewport) Resize(width, height int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if width <= 0 || height <= 0 {
		return
	}
	v.width, v.height = width, height
	if !v.closed {
		v.screen.Sync()
	}
	v.logger.Debug("viewport resized", log.Int("width", width), log.Int("height", height))
}

// Close restores the terminal. Later calls are no-ops.
func (v *Viewport) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return nil
	}
	v.closed = true
	v.screen.Fini()
	return nil
}

// Size returns the current terminal dimensions.
func (v *Viewport) Size() (int, int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.width, v.height
}

// Pump forwards terminal events to sink until ctx is done or the screen is
// finalised. Resize events also resize the viewport.
func (v *Viewport) Pump(ctx context.Context, sink func(tcell.Event)) error {
	stop := context.AfterFunc(ctx, func() {
		_ = v.screen.PostEvent(tcell.NewEventInterrupt(nil))
	})
	defer stop()

	for {
		ev := v.screen.PollEvent()
		if ev == nil {
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
		switch ev := ev.(type) {
		case *tcell.EventInterrupt:
			continue
		case *tcell.EventResize:
			v.Resize(ev.Size())
		}
		if sink != nil {
			sink(ev)
		}
	}
}

// scale returns cells per world unit on each axis.
func (v *Viewport) scale() (float64, float64) {
	rows := float64(v.height - hudRows)
	if rows < 1 {
		rows = 1
	}
	sy := rows / v.viewHeight
	return sy * cellAspect, sy
}

// WorldToScreen maps a world position to a cell. visible is false off-screen.
func (v *Viewport) WorldToScreen(x, y float64) (int, int, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.worldToScreen(x, y)
}

func (v *Viewport) worldToScreen(x, y float64) (int, int, bool) {
	sx, sy := v.scale()
	cam := v.scene.Camera()
	col := int(math.Floor(float64(v.width)/2 + (x-cam[0])*sx))
	row := int(math.Floor(float64(hudRows) + float64(v.height-hudRows)/2 - (y-cam[1])*sy))
	return col, row, col >= 0 && col < v.width && row >= hudRows && row < v.height
}

func (v *Viewport) drawVisual(vis *Visual) {
	style := styleFor(vis)
	switch {
	case vis.Sprite != nil && len(vis.Sprite.Glyphs) > 0:
		v.drawGlyphs(vis, style)
	case vis.Sprite != nil && vis.Sprite.Fill != "":
		v.fillRect(vis, []rune(vis.Sprite.Fill)[0], style)
	case vis.Shape == components.ShapeSphere:
		v.fillRect(vis, '●', style)
	default:
		v.fillRect(vis, '█', style)
	}
}

func (v *Viewport) drawGlyphs(vis *Visual, style tcell.Style) {
	col, row, _ := v.worldToScreen(vis.Position[0], vis.Position[1])
	rows := vis.Sprite.Glyphs
	top := row - len(rows)/2
	for i, line := range rows {
		left := col - runewidth.StringWidth(line)/2
		v.putString(left, top+i, line, style)
	}
}

func (v *Viewport) fillRect(vis *Visual, glyph rune, style tcell.Style) {
	sx, sy := v.scale()
	half := vis.Size.Mul(0.5)
	x0, y0, _ := v.worldToScreen(vis.Position[0]-half[0], vis.Position[1]+half[1])
	cols := max(1, int(math.Round(vis.Size[0]*sx)))
	rows := max(1, int(math.Round(vis.Size[1]*sy)))

	step := max(1, runewidth.RuneWidth(glyph))
	for r := 0; r < rows; r++ {
		for c := 0; c+step <= cols || c == 0; c += step {
			v.setCell(x0+c, y0+r, glyph, style)
		}
	}
}

func (v *Viewport) putString(x, y int, s string, style tcell.Style) int {
	for _, r := range s {
		w := runewidth.RuneWidth(r)
		if w == 0 {
			continue
		}
		v.setCell(x, y, r, style)
		x += w
	}
	return x
}

func (v *Viewport) setCell(x, y int, r rune, style tcell.Style) {
	if x < 0 || x >= v.width || y < hudRows || y >= v.height {
		return
	}
	v.screen.SetContent(x, y, r, nil, style)
}

func (v *Viewport) drawHUD(h HUD) {
	text := fmt.Sprintf(" Score: %d  Lives: %d", h.Score, h.Lives)
	if h.Status != "" {
		text += "  " + h.Status
	}
	text = runewidth.Truncate(text, v.width, "…")
	text = runewidth.FillRight(text, v.width)

	style := tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorSilver)
	x := 0
	for _, r := range text {
		w := runewidth.RuneWidth(r)
		if w == 0 {
			continue
		}
		v.screen.SetContent(x, 0, r, nil, style)
		x += w
	}
}

func styleFor(vis *Visual) tcell.Style {
	style := tcell.StyleDefault
	if vis.Sprite != nil && vis.Sprite.Color != "" {
		if c := tcell.GetColor(vis.Sprite.Color); c != tcell.ColorDefault {
			return style.Foreground(c)
		}
	}
	return style.Foreground(tcell.ColorWhite)
}
