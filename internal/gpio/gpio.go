// Package gpio provides edge-triggered button input with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import "fmt"

// ButtonID identifies one of the two physical buttons.
type ButtonID int

const (
	Button0 ButtonID = iota
	Button1

	NumButtons = 2
)

func (id ButtonID) String() string {
	return fmt.Sprintf("button%d", int(id))
}

// Edge selects which transition raises an edge event.
// Edges are logical: polarity is resolved when the line is requested.
type Edge int

const (
	EdgeNone    Edge = iota // edge detection disabled
	EdgePress               // released -> pressed
	EdgeRelease             // pressed -> released
)

func (e Edge) String() string {
	switch e {
	case EdgePress:
		return "press"
	case EdgeRelease:
		return "release"
	default:
		return "none"
	}
}

// EdgeHandler is called from the line's event goroutine when an enabled
// edge is seen. It must not block.
type EdgeHandler func(id ButtonID)

// Pins reads button lines and controls their edge detection.
type Pins interface {
	// Pressed returns the current logical level of the button.
	Pressed(id ButtonID) (bool, error)

	// SetEdge changes which transition raises an edge event.
	SetEdge(id ButtonID, e Edge) error

	// Close releases GPIO resources.
	Close() error
}

// Default line offsets on gpiochip0 (BCM numbering).
const (
	DefaultChip    = "gpiochip0"
	DefaultButton0 = 17
	DefaultButton1 = 27
)

// Polarity describes how the buttons are wired.
type Polarity int

const (
	// ActiveHigh: pull-down resistor, line reads 1 while pressed (watch board).
	ActiveHigh Polarity = iota
	// ActiveLow: pull-up resistor, line reads 0 while pressed (dev board).
	ActiveLow
)
