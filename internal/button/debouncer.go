// Package button debounces the two watch buttons.
//
// An edge interrupt disables edge detection on its line and arms a one-shot
// settle timer. When the timer expires the line is sampled, the opposite edge
// is re-armed and the per-button state machine advances. Only releases are
// reported outward.
package button

import (
	"log"
	"sync"
	"time"

	"github.com/sweeney/kepler-watch/internal/gpio"
	"github.com/sweeney/kepler-watch/internal/metrics"
	"github.com/sweeney/kepler-watch/internal/timer"
)

// DefaultWindow is the settle time after an edge.
const DefaultWindow = 50 * time.Millisecond

// State is the debounced state of a button.
type State string

const (
	StateReleased State = "RELEASED"
	StatePressed  State = "PRESSED"
)

// PostFunc delivers a release to the router. It returns false when the
// event could not be queued.
type PostFunc func(id gpio.ButtonID) bool

// TimerFactory builds the per-button settle timers.
type TimerFactory func(fn func()) timer.Timer

// Counts tracks confirmed transitions per button.
type Counts struct {
	Presses  [gpio.NumButtons]int
	Releases [gpio.NumButtons]int
	Dropped  int
}

// Debouncer runs the per-button Released/Pressed state machines.
type Debouncer struct {
	pins    gpio.Pins
	window  time.Duration
	post    PostFunc
	metrics *metrics.Metrics

	mu     sync.Mutex
	state  [gpio.NumButtons]State
	timers [gpio.NumButtons]timer.Timer
	counts Counts
}

// New creates a Debouncer. A nil factory uses real timers.
func New(pins gpio.Pins, window time.Duration, post PostFunc, newTimer TimerFactory, m *metrics.Metrics) *Debouncer {
	if newTimer == nil {
		newTimer = func(fn func()) timer.Timer { return timer.New(fn) }
	}
	d := &Debouncer{
		pins:    pins,
		window:  window,
		post:    post,
		metrics: m,
	}
	for i := range d.state {
		id := gpio.ButtonID(i)
		d.state[i] = StateReleased
		d.timers[i] = newTimer(func() { d.onSettled(id) })
	}
	return d
}

// OnEdge handles an edge interrupt. Edge detection stays off until the
// settle window has passed, so bounces inside the window are never seen.
func (d *Debouncer) OnEdge(id gpio.ButtonID) {
	if err := d.pins.SetEdge(id, gpio.EdgeNone); err != nil {
		log.Printf("button: disable %s edge: %v", id, err)
	}
	d.timers[id].Start(d.window)
}

func (d *Debouncer) onSettled(id gpio.ButtonID) {
	pressed, err := d.pins.Pressed(id)

	d.mu.Lock()
	if err != nil {
		log.Printf("button: read %s: %v", id, err)
		// Keep the current state and wait for its opposite edge.
		pressed = d.state[id] == StatePressed
	}

	released := false
	switch {
	case d.state[id] == StateReleased && pressed:
		d.state[id] = StatePressed
		d.counts.Presses[id]++
	case d.state[id] == StatePressed && !pressed:
		d.state[id] = StateReleased
		d.counts.Releases[id]++
		released = true
	}
	d.mu.Unlock()

	edge := gpio.EdgePress
	if pressed {
		edge = gpio.EdgeRelease
	}
	if err := d.pins.SetEdge(id, edge); err != nil {
		log.Printf("button: arm %s %s edge: %v", id, edge, err)
	}

	if !released {
		return
	}
	d.metrics.ButtonReleased(id.String())
	if !d.post(id) {
		d.mu.Lock()
		d.counts.Dropped++
		d.mu.Unlock()
		d.metrics.Dropped(metrics.QueueRouter)
		log.Printf("button: router queue full, dropped %s release", id)
	}
}

// State returns the debounced state of a button.
func (d *Debouncer) State(id gpio.ButtonID) State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state[id]
}

// Counts returns a snapshot of transition counts.
func (d *Debouncer) Counts() Counts {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.counts
}
