// Package display owns the watch framebuffer and the panel transport.
//
// The framebuffer is 1 bit per pixel, column-major in 8-row pages, the
// layout the controller expects, so a commit sends it unchanged. Every
// public Surface method holds the surface lock for its whole duration;
// Batch holds it across a multi-step drawing sequence.
package display

import (
	"fmt"
	"image"
	"image/color"
	"sync"
	"sync/atomic"

	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/sweeney/kepler-watch/internal/glyph"
	"github.com/sweeney/kepler-watch/internal/metrics"
)

// Panel geometry.
const (
	Width      = 96
	Height     = 39
	Pages      = (Height + 7) / 8
	BufferSize = Width * Pages
)

// Surface is the shared framebuffer plus the transport that displays it.
type Surface struct {
	mu       sync.Mutex
	tr       Transport
	img      *image1bit.VerticalLSB
	contrast byte
	metrics  *metrics.Metrics
	canvas   Canvas

	on atomic.Bool
}

// NewSurface creates a surface with a blank framebuffer. Nothing is sent
// until Init.
func NewSurface(tr Transport, contrast byte, m *metrics.Metrics) *Surface {
	s := &Surface{
		tr:       tr,
		img:      image1bit.NewVerticalLSB(image.Rect(0, 0, Width, Pages*8)),
		contrast: contrast,
		metrics:  m,
	}
	s.canvas.s = s
	return s
}

// Init sends the controller setup, then clears and commits the blank frame.
// The panel is left off.
func (s *Surface) Init() error {
	return s.Batch(func(c *Canvas) error {
		if err := c.command(initSequence(s.contrast)...); err != nil {
			return fmt.Errorf("init panel: %w", err)
		}
		c.Clear()
		return c.Display()
	})
}

// Batch runs fn with exclusive access to the framebuffer and transport.
// The lock is released on every exit path, including a panic in fn.
func (s *Surface) Batch(fn func(c *Canvas) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&s.canvas)
}

// DrawGlyph draws g with its top-left corner at (x, y), or clears its cell
// when erase is set.
func (s *Surface) DrawGlyph(g *glyph.Glyph, x, y int, erase bool) {
	s.Batch(func(c *Canvas) error {
		c.DrawGlyph(g, x, y, erase)
		return nil
	})
}

// DrawText draws text with its cell's top-left corner at (x, y), or clears
// the cell when erase is set.
func (s *Surface) DrawText(text string, x, y int, erase bool) {
	s.Batch(func(c *Canvas) error {
		c.DrawText(text, x, y, erase)
		return nil
	})
}

// Clear zeroes the framebuffer.
func (s *Surface) Clear() {
	s.Batch(func(c *Canvas) error {
		c.Clear()
		return nil
	})
}

// Commit sends the whole framebuffer in one transport operation.
func (s *Surface) Commit() error {
	return s.Batch(func(c *Canvas) error {
		return c.Display()
	})
}

// SetPower switches the panel on or off.
func (s *Surface) SetPower(on bool) error {
	return s.Batch(func(c *Canvas) error {
		return c.SetPower(on)
	})
}

// IsOn reports whether the panel is on. Safe from any goroutine.
func (s *Surface) IsOn() bool {
	return s.on.Load()
}

// Snapshot returns a copy of the visible framebuffer.
func (s *Surface) Snapshot() *image.Gray {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := image.NewGray(image.Rect(0, 0, Width, Height))
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			if s.img.BitAt(x, y) {
				out.SetGray(x, y, color.Gray{Y: 0xFF})
			}
		}
	}
	return out
}

// Pixel reports whether (x, y) is lit in the framebuffer.
func (s *Surface) Pixel(x, y int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return bool(s.img.BitAt(x, y))
}

// Canvas is the unlocked drawing API, only handed out inside Batch.
// It implements drivers.Displayer so tinyfont can draw on it.
type Canvas struct {
	s *Surface
}

// Size implements drivers.Displayer.
func (c *Canvas) Size() (x, y int16) {
	return Width, Height
}

// SetPixel implements drivers.Displayer. Any non-black colour lights the pixel.
func (c *Canvas) SetPixel(x, y int16, col color.RGBA) {
	c.set(int(x), int(y), col.R|col.G|col.B != 0)
}

// Display implements drivers.Displayer by committing the framebuffer.
func (c *Canvas) Display() error {
	if err := c.s.tr.Command(windowSequence()...); err != nil {
		c.s.metrics.TransportError()
		return fmt.Errorf("set window: %w", err)
	}
	if err := c.s.tr.Data(c.s.img.Pix); err != nil {
		c.s.metrics.TransportError()
		return fmt.Errorf("write frame: %w", err)
	}
	c.s.metrics.Frame("data")
	return nil
}

func (c *Canvas) set(x, y int, on bool) {
	if x < 0 || y < 0 || x >= Width || y >= Height {
		return
	}
	c.s.img.SetBit(x, y, image1bit.Bit(on))
}

// FillRect sets or clears a rectangle.
func (c *Canvas) FillRect(x, y, w, h int, on bool) {
	for j := y; j < y+h; j++ {
		for i := x; i < x+w; i++ {
			c.set(i, j, on)
		}
	}
}

// DrawGlyph copies g into its cell at (x, y), set and clear pixels alike,
// or clears the cell when erase is set.
func (c *Canvas) DrawGlyph(g *glyph.Glyph, x, y int, erase bool) {
	for j := 0; j < g.H; j++ {
		for i := 0; i < g.W; i++ {
			c.set(x+i, y+j, !erase && g.At(i, j))
		}
	}
}

// DrawText clears the text cell at (x, y) and, unless erase is set, draws
// text into it.
func (c *Canvas) DrawText(text string, x, y int, erase bool) {
	w := glyph.TextWidth(text)
	if n := len(text) * glyph.CharWidth; n > w {
		w = n
	}
	c.FillRect(x, y, w, glyph.TextHeight, false)
	if !erase {
		glyph.WriteText(c, x, y, text)
	}
}

// Clear zeroes the framebuffer.
func (c *Canvas) Clear() {
	for i := range c.s.img.Pix {
		c.s.img.Pix[i] = 0
	}
}

// SetPower sends the display on or off command.
func (c *Canvas) SetPower(on bool) error {
	cmd := byte(cmdDisplayOff)
	if on {
		cmd = cmdDisplayOn
	}
	if err := c.command(cmd); err != nil {
		return fmt.Errorf("set power %v: %w", on, err)
	}
	c.s.on.Store(on)
	c.s.metrics.DisplayOn(on)
	return nil
}

func (c *Canvas) command(cmds ...byte) error {
	if err := c.s.tr.Command(cmds...); err != nil {
		c.s.metrics.TransportError()
		return err
	}
	c.s.metrics.Frame("command")
	return nil
}
