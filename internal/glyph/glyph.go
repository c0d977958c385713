// Package glyph holds the monochrome bitmaps drawn on the watch face:
// seven-segment digits, notification icons, the colon, the PM indicator
// and the full-screen alert templates.
package glyph

import (
	"image/color"
	"strings"
)

// Glyph is a monochrome bitmap. Pixels are stored row-major.
type Glyph struct {
	W, H int
	pix  []bool
}

// New returns a blank glyph of the given size.
func New(w, h int) *Glyph {
	return &Glyph{W: w, H: h, pix: make([]bool, w*h)}
}

// FromRows builds a glyph from string art, '#' for a set pixel.
// All rows must have the same length.
func FromRows(rows ...string) *Glyph {
	if len(rows) == 0 {
		return New(0, 0)
	}
	g := New(len(rows[0]), len(rows))
	for y, row := range rows {
		if len(row) != g.W {
			panic("glyph: ragged row " + row)
		}
		for x, c := range row {
			if c == '#' {
				g.pix[y*g.W+x] = true
			}
		}
	}
	return g
}

// At reports whether the pixel is set. Out-of-range reads return false.
func (g *Glyph) At(x, y int) bool {
	if x < 0 || y < 0 || x >= g.W || y >= g.H {
		return false
	}
	return g.pix[y*g.W+x]
}

// Set sets or clears a pixel. Out-of-range writes are ignored.
func (g *Glyph) Set(x, y int, on bool) {
	if x < 0 || y < 0 || x >= g.W || y >= g.H {
		return
	}
	g.pix[y*g.W+x] = on
}

// Fill sets a rectangle of pixels.
func (g *Glyph) Fill(x, y, w, h int) {
	for j := y; j < y+h; j++ {
		for i := x; i < x+w; i++ {
			g.Set(i, j, true)
		}
	}
}

// Blit copies the set pixels of src into g at (x, y).
func (g *Glyph) Blit(src *Glyph, x, y int) {
	for j := 0; j < src.H; j++ {
		for i := 0; i < src.W; i++ {
			if src.At(i, j) {
				g.Set(x+i, y+j, true)
			}
		}
	}
}

// String renders the glyph as string art, mainly for test failures.
func (g *Glyph) String() string {
	var b strings.Builder
	for y := 0; y < g.H; y++ {
		for x := 0; x < g.W; x++ {
			if g.At(x, y) {
				b.WriteByte('#')
			} else {
				b.WriteByte('.')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// Size, SetPixel and Display let tinyfont render straight into a glyph.

// Size implements drivers.Displayer.
func (g *Glyph) Size() (x, y int16) {
	return int16(g.W), int16(g.H)
}

// SetPixel implements drivers.Displayer. Any non-black colour sets the pixel.
func (g *Glyph) SetPixel(x, y int16, c color.RGBA) {
	g.Set(int(x), int(y), c.R|c.G|c.B != 0)
}

// Display implements drivers.Displayer. Glyphs have nothing to flush.
func (g *Glyph) Display() error {
	return nil
}
