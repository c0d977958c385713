//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealPins reads buttons from actual hardware using the Linux GPIO character device.
type RealPins struct {
	chip     *gpiocdev.Chip
	lines    [NumButtons]*gpiocdev.Line
	polarity Polarity
}

// NewRealPins requests the two button lines with edge events delivered to h.
// Both lines start waiting for a press edge.
func NewRealPins(chipName string, offsets [NumButtons]int, polarity Polarity, h EdgeHandler) (*RealPins, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	p := &RealPins{chip: chip, polarity: polarity}
	for i, offset := range offsets {
		id := ButtonID(i)
		opts := []gpiocdev.LineReqOption{
			gpiocdev.AsInput,
			gpiocdev.WithEventHandler(func(gpiocdev.LineEvent) { h(id) }),
			gpiocdev.WithRisingEdge,
		}
		if polarity == ActiveLow {
			opts = append(opts, gpiocdev.WithPullUp, gpiocdev.AsActiveLow)
		} else {
			opts = append(opts, gpiocdev.WithPullDown)
		}

		line, err := chip.RequestLine(offset, opts...)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("request %s line %d: %w", id, offset, err)
		}
		p.lines[i] = line
	}
	return p, nil
}

// Pressed returns the logical level of the button line.
// Active-low lines are inverted by the kernel.
func (p *RealPins) Pressed(id ButtonID) (bool, error) {
	v, err := p.lines[id].Value()
	if err != nil {
		return false, fmt.Errorf("read %s: %w", id, err)
	}
	return v == 1, nil
}

// SetEdge reconfigures edge detection on the line.
func (p *RealPins) SetEdge(id ButtonID, e Edge) error {
	var opt gpiocdev.LineConfigOption
	switch e {
	case EdgePress:
		opt = gpiocdev.WithRisingEdge
	case EdgeRelease:
		opt = gpiocdev.WithFallingEdge
	default:
		opt = gpiocdev.WithoutEdges
	}
	if err := p.lines[id].Reconfigure(opt); err != nil {
		return fmt.Errorf("set %s edge %s: %w", id, e, err)
	}
	return nil
}

// Close releases the lines and the chip.
// Lines are returned to plain inputs with edge detection off before closing.
func (p *RealPins) Close() error {
	var errs []error

	for i, line := range p.lines {
		if line == nil {
			continue
		}
		if err := line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithoutEdges); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure %s: %w", ButtonID(i), err))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", ButtonID(i), err))
		}
	}
	if p.chip != nil {
		if err := p.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
