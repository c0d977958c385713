package glyph

// Digit cell sizes used on the clock face.
const (
	LargeDigitW = 15
	LargeDigitH = 25
	SmallDigitW = 9
	SmallDigitH = 13
)

// Segment bits, a..g clockwise from the top with g in the middle.
const (
	segA = 1 << iota
	segB
	segC
	segD
	segE
	segF
	segG
)

var digitSegments = [10]uint8{
	segA | segB | segC | segD | segE | segF,
	segB | segC,
	segA | segB | segD | segE | segG,
	segA | segB | segC | segD | segG,
	segB | segC | segF | segG,
	segA | segC | segD | segF | segG,
	segA | segC | segD | segE | segF | segG,
	segA | segB | segC,
	segA | segB | segC | segD | segE | segF | segG,
	segA | segB | segC | segD | segF | segG,
}

// sevenSegment draws digit n into a w x h cell with stroke t.
func sevenSegment(n, w, h, t int) *Glyph {
	g := New(w, h)
	segs := digitSegments[n]
	mid := (h - t) / 2
	if segs&segA != 0 {
		g.Fill(t, 0, w-2*t, t)
	}
	if segs&segB != 0 {
		g.Fill(w-t, t, t, mid-t)
	}
	if segs&segC != 0 {
		g.Fill(w-t, mid+t, t, h-mid-2*t)
	}
	if segs&segD != 0 {
		g.Fill(t, h-t, w-2*t, t)
	}
	if segs&segE != 0 {
		g.Fill(0, mid+t, t, h-mid-2*t)
	}
	if segs&segF != 0 {
		g.Fill(0, t, t, mid-t)
	}
	if segs&segG != 0 {
		g.Fill(t, mid, w-2*t, t)
	}
	return g
}

var (
	largeDigits [10]*Glyph
	smallDigits [10]*Glyph
)

func init() {
	for n := 0; n < 10; n++ {
		largeDigits[n] = sevenSegment(n, LargeDigitW, LargeDigitH, 3)
		smallDigits[n] = sevenSegment(n, SmallDigitW, SmallDigitH, 2)
	}
}

// LargeDigit returns the 15x25 glyph for n (0-9).
func LargeDigit(n int) *Glyph {
	return largeDigits[n%10]
}

// SmallDigit returns the 9x13 glyph for n (0-9).
func SmallDigit(n int) *Glyph {
	return smallDigits[n%10]
}
