//go:build !linux

package gpio

import "errors"

// RealPins is not available on non-Linux platforms.
type RealPins struct{}

// NewRealPins returns an error on non-Linux platforms.
func NewRealPins(chipName string, offsets [NumButtons]int, polarity Polarity, h EdgeHandler) (*RealPins, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Pressed is not implemented on non-Linux platforms.
func (p *RealPins) Pressed(id ButtonID) (bool, error) {
	return false, errors.New("gpio: not supported")
}

// SetEdge is not implemented on non-Linux platforms.
func (p *RealPins) SetEdge(id ButtonID, e Edge) error {
	return errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (p *RealPins) Close() error {
	return nil
}
