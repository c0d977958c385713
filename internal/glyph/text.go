package glyph

import (
	"image/color"

	"tinygo.org/x/drivers"
	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
)

// Text metrics for Font. Coordinates passed to WriteText are the top-left
// corner of the text cell; tinyfont wants the baseline.
const (
	TextAscent = 8
	TextHeight = 11
	CharWidth  = 6
)

// Font is the face used for dates, captions and caller names.
var Font tinyfont.Fonter = &proggy.TinySZ8pt7b

var white = color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}

// WriteText draws s with its cell's top-left corner at (x, y).
func WriteText(d drivers.Displayer, x, y int, s string) {
	tinyfont.WriteLine(d, Font, int16(x), int16(y+TextAscent), s, white)
}

// TextWidth returns the advance width of s in pixels.
func TextWidth(s string) int {
	_, outbox := tinyfont.LineWidth(Font, s)
	return int(outbox)
}

// Full-screen alert template geometry.
const (
	ScreenW = 96
	ScreenH = 39
)

// Template is a full-screen alert background.
type Template int

const (
	TemplateCall Template = iota
	TemplateText
)

var templates = [2]*Glyph{
	TemplateCall: buildTemplate(Handset, "call from"),
	TemplateText: buildTemplate(icons[IconText], "text from"),
}

func buildTemplate(icon *Glyph, caption string) *Glyph {
	g := New(ScreenW, ScreenH)
	g.Blit(icon, 4, 3)
	WriteText(g, 22, 2, caption)
	for x := 0; x < ScreenW; x++ {
		g.Set(x, 16, true)
	}
	return g
}

// TemplateGlyph returns the background for a full-screen alert.
func TemplateGlyph(t Template) *Glyph {
	return templates[t]
}
