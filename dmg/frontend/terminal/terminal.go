// Package terminal is a host frontend that renders the emulator's
// framebuffer to a tcell screen and turns keyboard events into joypad
// input. It is the only part of this module that talks to a terminal or a
// keyboard; the emulator core has no notion of either.
package terminal

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/arledge/dmgo/dmg"
	"github.com/arledge/dmgo/dmg/memory"
	"github.com/arledge/dmgo/dmg/video"
)

const (
	scaleX    = 2
	scaleY    = 1
	frameTime = time.Second / 60
)

// shadeChars maps the four DMG shades (darkest to lightest) to block
// characters of decreasing density, since a terminal cell has no grayscale.
var shadeChars = [4]rune{'█', '▓', '▒', '░'}

// keyBindings maps keyboard runes to joypad keys. Arrow keys cover the
// d-pad; z/x/Enter/Tab cover A/B/Start/Select.
var keyBindings = map[rune]memory.JoypadKey{
	'z': memory.JoypadA,
	'x': memory.JoypadB,
}

// Renderer drives an Emulator against a tcell screen until told to stop.
type Renderer struct {
	emu    *dmg.Emulator
	screen tcell.Screen
}

// New creates a Renderer and initializes the underlying terminal screen.
func New(emu *dmg.Emulator) (*Renderer, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("creating terminal screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("initializing terminal screen: %w", err)
	}
	screen.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite))
	screen.Clear()

	return &Renderer{emu: emu, screen: screen}, nil
}

// Run drives the emulator one frame per tick until the user quits (q/Esc/
// Ctrl+C) or the screen is closed externally.
func (r *Renderer) Run() error {
	defer r.screen.Fini()

	events := make(chan tcell.Event, 16)
	go r.screen.ChannelEvents(events, nil)

	ticker := time.NewTicker(frameTime)
	defer ticker.Stop()

	for {
		select {
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if quit := r.handleKey(ev); quit {
					return nil
				}
			case *tcell.EventResize:
				r.screen.Sync()
			}
		case <-ticker.C:
			r.emu.RunUntilFrame()
			r.draw(r.emu.GetCurrentFrame())
		}
	}
}

func (r *Renderer) handleKey(ev *tcell.EventKey) (quit bool) {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyUp:
		r.press(memory.JoypadUp, ev)
		return false
	case tcell.KeyDown:
		r.press(memory.JoypadDown, ev)
		return false
	case tcell.KeyLeft:
		r.press(memory.JoypadLeft, ev)
		return false
	case tcell.KeyRight:
		r.press(memory.JoypadRight, ev)
		return false
	case tcell.KeyEnter:
		r.press(memory.JoypadStart, ev)
		return false
	case tcell.KeyTab:
		r.press(memory.JoypadSelect, ev)
		return false
	}

	if ev.Rune() == 'q' {
		return true
	}
	if key, ok := keyBindings[ev.Rune()]; ok {
		r.press(key, ev)
	}

	return false
}

// press is best-effort: tcell reports key-down events, not key-up, so every
// press is immediately released on the next frame tick. This is adequate for
// menu navigation; sustained movement needs a real input backend, which is
// out of scope here.
func (r *Renderer) press(key memory.JoypadKey, ev *tcell.EventKey) {
	r.emu.HandleKeyPress(key)
	go func() {
		time.Sleep(frameTime)
		r.emu.HandleKeyRelease(key)
	}()
}

func (r *Renderer) draw(fb *video.FrameBuffer) {
	r.screen.Clear()
	width, height := r.screen.Size()

	for ty := 0; ty < height; ty++ {
		for tx := 0; tx < width; tx++ {
			px := tx / scaleX
			py := ty / scaleY
			if px >= video.FramebufferWidth || py >= video.FramebufferHeight {
				continue
			}

			shade := shadeIndex(fb.GetPixel(uint(px), uint(py)))
			r.screen.SetContent(tx, ty, shadeChars[shade], nil, tcell.StyleDefault)
		}
	}

	r.screen.Show()
}

func shadeIndex(pixel uint32) int {
	switch video.GBColor(pixel) {
	case video.BlackColor:
		return 0
	case video.DarkGreyColor:
		return 1
	case video.LightGreyColor:
		return 2
	case video.WhiteColor:
		return 3
	default:
		return 3
	}
}
