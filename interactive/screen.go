// Package interactive is the terminal front end: a tcell player screen that
// renders playback progress and turns key presses into playback intents.
package interactive

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
	"github.com/rs/zerolog"
	"github.com/skratchdot/open-golang/open"
	"go2tv.app/castplay/playback"
	"golang.org/x/time/rate"
)

const (
	nudgeStep  = 0.05
	nudgeEvery = 150 * time.Millisecond
	connectTTL = 30 * time.Second
)

var openURL = open.Run

// Intents is the set of gestures the screen emits.
type Intents interface {
	TapButton()
	DragSlider(fraction float64)
	TapSlider(x, sliderX, width float64)
	Nudge(fraction float64)
}

// CastSession is the part of the remote session the screen drives directly.
type CastSession interface {
	Connect(ctx context.Context) error
	Reconnect(ctx context.Context) error
	Disconnect()
	HasConnectionEstablished() bool
}

// PlayerScreen renders playback state and implements playback.UISink.
type PlayerScreen struct {
	Current      tcell.Screen
	Intents      Intents
	Session      CastSession
	ThumbnailURL string
	DeviceName   string
	Logger       zerolog.Logger

	exitCTXfunc context.CancelFunc
	finiOnce    sync.Once
	nudge       *rate.Limiter

	mu         sync.RWMutex
	mediaTitle string
	slider     float64
	current    string
	total      string
	affordance playback.Affordance
	backend    playback.Backend
	lastAction string
	bar        barGeometry
	active     bool // between Init and Fini
}

type barGeometry struct {
	x, y, width int
}

var _ playback.UISink = (*PlayerScreen)(nil)

// InitPlayerScreen creates the screen. ctxCancel is called when the user
// exits.
func InitPlayerScreen(title string, ctxCancel context.CancelFunc) (*PlayerScreen, error) {
	s, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("interactive: %w", err)
	}

	return newPlayerScreen(s, title, ctxCancel), nil
}

func newPlayerScreen(s tcell.Screen, title string, ctxCancel context.CancelFunc) *PlayerScreen {
	if ctxCancel == nil {
		ctxCancel = func() {}
	}

	return &PlayerScreen{
		Current:     s,
		Logger:      zerolog.Nop(),
		exitCTXfunc: ctxCancel,
		nudge:       rate.NewLimiter(rate.Every(nudgeEvery), 1),
		mediaTitle:  title,
		current:     playback.FormatClock(0),
		total:       playback.FormatClock(0),
		lastAction:  "Waiting for media...",
	}
}

// SetSliderValue moves the progress bar.
func (p *PlayerScreen) SetSliderValue(v float64) {
	p.mu.Lock()
	p.slider = v
	p.mu.Unlock()
	p.draw()
}

// SetTimeLabels updates the elapsed and total labels.
func (p *PlayerScreen) SetTimeLabels(current, total string) {
	p.mu.Lock()
	p.current, p.total = current, total
	p.mu.Unlock()
	p.draw()
}

// SetAffordance swaps the play/pause icon.
func (p *PlayerScreen) SetAffordance(a playback.Affordance) {
	p.mu.Lock()
	p.affordance = a
	p.mu.Unlock()
	p.draw()
}

// SetBackend shows which device is playing.
func (p *PlayerScreen) SetBackend(b playback.Backend) {
	p.mu.Lock()
	p.backend = b
	p.mu.Unlock()
	p.draw()
}

// EmitMsg displays a status line.
func (p *PlayerScreen) EmitMsg(msg string) {
	p.mu.Lock()
	p.lastAction = msg
	p.mu.Unlock()
	p.draw()
}

func (p *PlayerScreen) emitStr(x, y int, style tcell.Style, str string) {
	s := p.Current
	for _, c := range str {
		var comb []rune
		w := runewidth.RuneWidth(c)
		if w == 0 {
			comb = []rune{c}
			c = ' '
			w = 1
		}
		s.SetContent(x, y, c, comb, style)
		x += w
	}
}

func (p *PlayerScreen) emitCentered(y int, style tcell.Style, str string) {
	w, _ := p.Current.Size()
	p.emitStr(w/2-runewidth.StringWidth(str)/2, y, style, str)
}

// draw holds mu for the whole frame so Fini cannot run mid-frame.
func (p *PlayerScreen) draw() {
	s := p.Current

	p.mu.Lock()
	defer p.mu.Unlock()

	w, h := s.Size()
	if !p.active || w <= 0 || h <= 0 {
		return
	}

	p.bar = barGeometry{x: 2, y: h/2 - 1, width: max(w-4, 1)}
	bar := p.bar
	where := p.backendLabel()

	boldStyle := tcell.StyleDefault.
		Background(tcell.ColorBlack).
		Foreground(tcell.ColorWhite).Bold(true)

	s.Clear()

	p.emitStr(1, 1, tcell.StyleDefault, "Press ESC / q to exit.")
	p.emitCentered(h/2-3, boldStyle, "Title: "+p.mediaTitle)
	p.emitStr(bar.x, bar.y, tcell.StyleDefault, progressBar(p.slider, bar.width))
	p.emitStr(bar.x, bar.y+1, tcell.StyleDefault, iconFor(p.affordance)+"  "+p.current+" / "+p.total)
	p.emitStr(bar.x+bar.width-runewidth.StringWidth(where), bar.y+1, tcell.StyleDefault, where)
	p.emitCentered(h/2+1, boldStyle, p.lastAction)
	p.emitCentered(h/2+3, tcell.StyleDefault, `"p" (Play/Pause)  "Left" "Right" (Seek)`)
	p.emitCentered(h/2+4, tcell.StyleDefault, `"c" (Cast on/off)  "r" (Reconnect)  "o" (Thumbnail)`)

	s.Show()
}

func (p *PlayerScreen) backendLabel() string {
	if p.backend == playback.BackendRemote {
		if p.DeviceName != "" {
			return "Casting to " + p.DeviceName
		}
		return "Casting"
	}
	return "Local"
}

func iconFor(a playback.Affordance) string {
	if a == playback.PauseIcon {
		return "||"
	}
	return "|>"
}

func progressBar(fraction float64, width int) string {
	if width <= 0 {
		return ""
	}
	fraction = min(max(fraction, 0), 1)
	filled := int(fraction * float64(width))
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// Run initialises the terminal and handles events until the user exits or
// ctx is done.
func (p *PlayerScreen) Run(ctx context.Context) error {
	s := p.Current
	if err := s.Init(); err != nil {
		return fmt.Errorf("interactive: %w", err)
	}

	defStyle := tcell.StyleDefault.
		Background(tcell.ColorBlack).
		Foreground(tcell.ColorWhite)
	s.SetStyle(defStyle)
	s.EnableMouse()

	p.mu.Lock()
	p.active = true
	p.mu.Unlock()
	p.draw()

	go func() {
		<-ctx.Done()
		p.Fini()
	}()

	for {
		switch ev := s.PollEvent().(type) {
		case nil:
			return nil
		case *tcell.EventResize:
			s.Sync()
			p.draw()
		case *tcell.EventKey:
			p.HandleKeyEvent(ctx, ev)
		case *tcell.EventMouse:
			p.HandleMouseEvent(ev)
		}
	}
}

// HandleKeyEvent maps a key press to a playback intent.
func (p *PlayerScreen) HandleKeyEvent(ctx context.Context, ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyEscape:
		p.Fini()
		return
	case tcell.KeyLeft:
		p.nudgeBy(-nudgeStep)
		return
	case tcell.KeyRight:
		p.nudgeBy(nudgeStep)
		return
	}

	switch ev.Rune() {
	case 'q':
		p.Fini()
	case 'p', ' ':
		if p.Intents != nil {
			p.Intents.TapButton()
		}
	case 'c':
		p.toggleCast(ctx)
	case 'r':
		p.reconnect(ctx)
	case 'o':
		p.openThumbnail()
	}
}

// HandleMouseEvent seeks when the progress bar is clicked.
func (p *PlayerScreen) HandleMouseEvent(ev *tcell.EventMouse) {
	if ev.Buttons()&tcell.Button1 == 0 || p.Intents == nil {
		return
	}

	x, y := ev.Position()

	p.mu.RLock()
	bar := p.bar
	p.mu.RUnlock()

	if y != bar.y || x < bar.x || x >= bar.x+bar.width {
		return
	}

	p.Intents.TapSlider(float64(x), float64(bar.x), float64(bar.width))
}

func (p *PlayerScreen) nudgeBy(fraction float64) {
	if p.Intents == nil || !p.nudge.Allow() {
		return
	}
	p.Intents.Nudge(fraction)
}

func (p *PlayerScreen) toggleCast(ctx context.Context) {
	if p.Session == nil {
		p.EmitMsg("No cast device selected")
		return
	}

	if p.Session.HasConnectionEstablished() {
		p.Session.Disconnect()
		p.EmitMsg("Cast session ended")
		return
	}

	p.EmitMsg("Connecting...")
	go p.dial(ctx, "connect", p.Session.Connect)
}

func (p *PlayerScreen) reconnect(ctx context.Context) {
	if p.Session == nil {
		p.EmitMsg("No cast device selected")
		return
	}

	p.EmitMsg("Reconnecting...")
	go p.dial(ctx, "reconnect", p.Session.Reconnect)
}

func (p *PlayerScreen) dial(ctx context.Context, method string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(ctx, connectTTL)
	defer cancel()

	if err := fn(ctx); err != nil {
		p.Logger.Error().Str("Method", method).Err(err).Msg("cast session")
		p.EmitMsg("Cast connection failed")
		return
	}
	p.EmitMsg("Connected")
}

func (p *PlayerScreen) openThumbnail() {
	if p.ThumbnailURL == "" {
		p.EmitMsg("No thumbnail")
		return
	}

	if err := openURL(p.ThumbnailURL); err != nil {
		p.Logger.Error().Str("Method", "openThumbnail").Err(err).Msg("open")
		p.EmitMsg("Could not open thumbnail")
	}
}

// Fini closes the screen and exits.
func (p *PlayerScreen) Fini() {
	p.finiOnce.Do(func() {
		p.mu.Lock()
		p.active = false
		p.mu.Unlock()
		p.Current.Fini()
		p.exitCTXfunc()
	})
}
