// Package power decides when the display is on.
//
// A button 0 release wakes the display for a fixed idle period. A
// full-screen alert takes over the display and disarms the idle timer; when
// the alert goes away the display is turned off.
//
// Every arm of the idle timer gets a new generation. An expiry carries the
// generation it was armed with, so one that was queued before a re-arm or a
// stop has no effect.
package power

import (
	"fmt"
	"time"

	"github.com/sweeney/kepler-watch/internal/display"
	"github.com/sweeney/kepler-watch/internal/timer"
)

// DefaultIdleTimeout is how long the display stays on after a wake.
const DefaultIdleTimeout = 5 * time.Second

// Notifier is the part of the notification state the controller drives.
type Notifier interface {
	IsAlertActive() bool
	DismissForButtonOverride() error
	RedrawBar() error
}

// Face redraws the clock face on wake.
type Face interface {
	Redraw() error
}

// TimerFactory builds an idle timer. It is called once per arm.
type TimerFactory func(fn func()) timer.Timer

// Controller owns the idle-off timer. It is only used from the router goroutine.
type Controller struct {
	surface  *display.Surface
	notes    Notifier
	face     Face
	timeout  time.Duration
	newTimer TimerFactory
	onIdle   func(gen uint64)

	idle timer.Timer
	gen  uint64
}

// New creates a Controller. onIdle runs on the timer goroutine when the idle
// timer expires, with the generation it was armed for, and must only post
// an event.
func New(surface *display.Surface, notes Notifier, face Face, timeout time.Duration, newTimer TimerFactory, onIdle func(gen uint64)) *Controller {
	if newTimer == nil {
		newTimer = func(fn func()) timer.Timer { return timer.New(fn) }
	}
	return &Controller{
		surface:  surface,
		notes:    notes,
		face:     face,
		timeout:  timeout,
		newTimer: newTimer,
		onIdle:   onIdle,
		// Never started; replaced on the first arm.
		idle: newTimer(func() {}),
	}
}

func (c *Controller) arm() {
	c.idle.Stop()
	c.gen++
	gen := c.gen
	c.idle = c.newTimer(func() { c.onIdle(gen) })
	c.idle.Start(c.timeout)
}

func (c *Controller) disarm() {
	c.idle.Stop()
	c.gen++
}

// OnButtonZeroReleased dismisses an active alert, or else wakes the display.
// Either way the idle timer is restarted at its full duration.
func (c *Controller) OnButtonZeroReleased() error {
	if c.notes.IsAlertActive() {
		if err := c.notes.DismissForButtonOverride(); err != nil {
			return err
		}
		c.arm()
		return nil
	}

	if err := c.notes.RedrawBar(); err != nil {
		return fmt.Errorf("wake: %w", err)
	}
	if err := c.surface.SetPower(true); err != nil {
		return fmt.Errorf("wake: %w", err)
	}
	if c.face != nil {
		if err := c.face.Redraw(); err != nil {
			return fmt.Errorf("wake: %w", err)
		}
	}
	c.arm()
	return nil
}

// OnIdleTimeout handles expiry of the idle timer armed as gen. It turns the
// display off and reports true, unless the expiry is stale, an alert has
// taken the display over, or the display is already off.
func (c *Controller) OnIdleTimeout(gen uint64) (bool, error) {
	if gen != c.gen || c.notes.IsAlertActive() || !c.surface.IsOn() {
		return false, nil
	}
	if err := c.surface.SetPower(false); err != nil {
		return false, err
	}
	return true, nil
}

// OnAlertShown hands the display to the alert.
func (c *Controller) OnAlertShown() {
	c.disarm()
}

// OnAlertDismissed returns the display to the state it had before any
// button press: blank and off, with the idle timer disarmed.
func (c *Controller) OnAlertDismissed() error {
	c.disarm()
	return c.surface.Batch(func(cv *display.Canvas) error {
		cv.Clear()
		if err := cv.Display(); err != nil {
			return err
		}
		return cv.SetPower(false)
	})
}
