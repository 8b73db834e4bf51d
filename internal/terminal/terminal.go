// Package terminal draws rendered frames into a tcell screen and runs the
// interactive player.
package terminal

import (
	"context"
	"image"
	"image/color"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rs/zerolog"

	"github.com/ivlev/choreo/internal/clock"
	"github.com/ivlev/choreo/internal/engine"
	"github.com/ivlev/choreo/internal/renderer"
	"github.com/ivlev/choreo/internal/scene"
)

// shades go from empty to full by luminance.
var shades = []rune{' ', '░', '▒', '▓', '█'}

// Draw samples frame at the center of each cell and writes it to s, leaving
// the last row for status.
func Draw(s tcell.Screen, frame *image.RGBA, status string) {
	cols, rows := s.Size()
	if cols <= 0 || rows <= 0 {
		return
	}
	if rows > 1 {
		rows--
	}
	b := frame.Bounds()
	for cy := 0; cy < rows; cy++ {
		for cx := 0; cx < cols; cx++ {
			px := b.Min.X + (2*cx+1)*b.Dx()/(2*cols)
			py := b.Min.Y + (2*cy+1)*b.Dy()/(2*rows)
			c := frame.RGBAAt(px, py)
			style := tcell.StyleDefault.Foreground(tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B)))
			s.SetContent(cx, cy, shade(c), nil, style)
		}
	}

	statusStyle := tcell.StyleDefault.Reverse(true)
	x := 0
	for _, r := range status {
		if x >= cols {
			break
		}
		s.SetContent(x, rows, r, nil, statusStyle)
		x++
	}
	for ; x < cols; x++ {
		s.SetContent(x, rows, ' ', nil, statusStyle)
	}
	s.Show()
}

func shade(c color.RGBA) rune {
	lum := (299*int(c.R) + 587*int(c.G) + 114*int(c.B)) / 1000
	return shades[lum*len(shades)/256]
}

// Loop is a scheduler that can run work on its frame goroutine.
type Loop interface {
	clock.Scheduler
	Post(fn func()) bool
}

// Player shows a scene live and maps keys to controller calls:
// space retriggers, s stops, q (or Esc, Ctrl-C) quits.
type Player struct {
	Screen     tcell.Screen
	Loop       Loop
	Controller *engine.Controller
	Scene      *scene.Memory
	Renderer   *renderer.Renderer
	// Trigger starts a run. It is called on the loop goroutine.
	Trigger func() (*engine.Run, error)
	// Status describes the current state for the status line.
	Status func() string
	Logger zerolog.Logger
}

// Run draws every frame and handles input until q or ctx is done.
func (p *Player) Run(ctx context.Context) error {
	unregister := p.Loop.Register(func(time.Duration) { p.redraw() })
	defer unregister()

	events := make(chan tcell.Event, 16)
	quit := make(chan struct{})
	defer close(quit)
	go func() {
		for {
			ev := p.Screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-quit:
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-events:
			if !p.HandleEvent(ev) {
				return nil
			}
		}
	}
}

// HandleEvent applies one input event. It returns false when the player
// should exit.
func (p *Player) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		return p.handleKey(ev.Key(), ev.Rune())
	case *tcell.EventResize:
		p.Screen.Sync()
	}
	return true
}

func (p *Player) handleKey(key tcell.Key, r rune) bool {
	if key == tcell.KeyEscape || key == tcell.KeyCtrlC {
		return false
	}
	if key != tcell.KeyRune {
		return true
	}
	switch r {
	case 'q':
		return false
	case ' ':
		p.Loop.Post(func() {
			if _, err := p.Trigger(); err != nil {
				p.Logger.Warn().Err(err).Msg("start failed")
			}
		})
	case 's':
		p.Loop.Post(func() {
			if run := p.Controller.Active(); run != nil {
				p.Controller.Stop(run)
			}
		})
	}
	return true
}

func (p *Player) redraw() {
	frame := p.Renderer.Frame(p.Scene.Snapshot())
	defer p.Renderer.Release(frame)
	status := ""
	if p.Status != nil {
		status = p.Status()
	}
	Draw(p.Screen, frame, status)
}
