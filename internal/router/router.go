// Package router runs the single task that owns the watch UI state.
//
// Producers on other goroutines (BLE callbacks, button debouncing, timers)
// only enqueue events; the router goroutine is the only one that mutates the
// notification and power state. Events are handled strictly in FIFO order.
package router

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/sweeney/kepler-watch/internal/gpio"
	"github.com/sweeney/kepler-watch/internal/metrics"
	"github.com/sweeney/kepler-watch/internal/notify"
	"github.com/sweeney/kepler-watch/internal/power"
	"github.com/sweeney/kepler-watch/internal/profile"
)

// DefaultQueueSize is the router queue capacity.
const DefaultQueueSize = 16

// ClockInbox receives clock configuration. Posts never block.
type ClockInbox interface {
	SetTime(epoch uint32) bool
	SetTimeZone(tz uint16) bool
	SetHourMode(mode uint8) bool
	SetDST(dst uint8) bool
}

// Deps are the components the router drives.
type Deps struct {
	Table  *profile.Table
	Clock  ClockInbox
	Notes  *notify.State
	Power  *power.Controller
	Now    func() time.Time
	Report func(Activity) // optional, must not block
}

// Router is the event loop.
type Router struct {
	queue   chan Event
	metrics *metrics.Metrics
	deps    Deps

	mu     sync.Mutex
	counts Counts
}

// New creates a Router with an empty queue. Components are attached with
// Attach, so their timer callbacks can be built against the router first.
func New(queueSize int, m *metrics.Metrics) *Router {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Router{
		queue:   make(chan Event, queueSize),
		metrics: m,
	}
}

// Attach installs the components. Call before Run.
func (r *Router) Attach(d Deps) {
	if d.Now == nil {
		d.Now = time.Now
	}
	r.deps = d
}

// Enqueue posts an event without blocking. It returns false, and the event
// is dropped, when the queue is full.
func (r *Router) Enqueue(e Event) bool {
	select {
	case r.queue <- e:
		return true
	default:
		r.mu.Lock()
		r.counts.Dropped++
		r.mu.Unlock()
		r.metrics.Dropped(metrics.QueueRouter)
		log.Printf("router: queue full, dropped %s event", e.Kind)
		return false
	}
}

// CharacteristicChanged implements profile.Listener.
func (r *Router) CharacteristicChanged(c profile.Char) {
	r.Enqueue(Event{Kind: KindCharWrite, Char: c})
}

// PostButton queues a debounced release.
func (r *Router) PostButton(id gpio.ButtonID) bool {
	return r.Enqueue(Event{Kind: KindButton, Button: id})
}

// PostIdleTimeout queues expiry of the idle timer armed for gen.
func (r *Router) PostIdleTimeout(gen uint64) {
	r.Enqueue(Event{Kind: KindIdleTimeout, Gen: gen})
}

// PostAlertTimeout queues expiry of the alert timer armed for gen.
func (r *Router) PostAlertTimeout(gen uint64) {
	r.Enqueue(Event{Kind: KindAlertTimeout, Gen: gen})
}

// PostConnection queues a BLE connection change.
func (r *Router) PostConnection(connected bool, peer string) {
	r.Enqueue(Event{Kind: KindConnection, Connected: connected, Peer: peer})
}

// Run handles events until ctx is done. A display transport failure stops
// the loop and is returned; the caller treats it as fatal.
func (r *Router) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case e := <-r.queue:
			if err := r.Handle(e); err != nil {
				return fmt.Errorf("router: %s: %w", e.Kind, err)
			}
		}
	}
}

// Handle processes one event. Exported for tests and for draining the queue
// synchronously.
func (r *Router) Handle(e Event) error {
	r.metrics.Event(e.Kind.String())

	switch e.Kind {
	case KindCharWrite:
		return r.handleWrite(e.Char)

	case KindButton:
		r.mu.Lock()
		r.counts.ButtonReleases[e.Button]++
		r.mu.Unlock()
		r.report(ActivityButton, e.Button.String(), "")
		if e.Button != gpio.Button0 {
			// Button 1 has no UI action yet.
			log.Printf("router: %s released", e.Button)
			return nil
		}
		wasAlert := r.deps.Notes.IsAlertActive()
		if err := r.deps.Power.OnButtonZeroReleased(); err != nil {
			return err
		}
		if wasAlert {
			r.mu.Lock()
			r.counts.AlertsOverride++
			r.mu.Unlock()
			r.report(ActivityAlertDismissed, "button", "")
			r.report(ActivityDisplay, "off", "")
		} else {
			r.report(ActivityDisplay, "on", "")
		}
		return nil

	case KindIdleTimeout:
		off, err := r.deps.Power.OnIdleTimeout(e.Gen)
		if err != nil {
			return err
		}
		if !off {
			r.ignore("idle timeout without effect")
			return nil
		}
		r.report(ActivityDisplay, "off", "")
		return nil

	case KindAlertTimeout:
		if !r.deps.Notes.OnAutoDismiss(e.Gen) {
			r.ignore("stale alert timeout")
			return nil
		}
		r.mu.Lock()
		r.counts.AlertsTimedOut++
		r.mu.Unlock()
		if err := r.deps.Power.OnAlertDismissed(); err != nil {
			return err
		}
		r.report(ActivityAlertDismissed, "timeout", "")
		r.report(ActivityDisplay, "off", "")
		return nil

	case KindConnection:
		state := "disconnected"
		if e.Connected {
			state = "connected"
		}
		log.Printf("router: ble %s %s", state, e.Peer)
		r.report(ActivityConnection, state, e.Peer)
		return nil

	default:
		r.ignore("unknown event kind")
		return nil
	}
}

func (r *Router) handleWrite(c profile.Char) error {
	v, err := r.deps.Table.Get(c)
	if err != nil {
		r.ignore(err.Error())
		return nil
	}

	r.mu.Lock()
	r.counts.CharWrites++
	r.mu.Unlock()

	switch c {
	case profile.ClockTime:
		r.postClock(c, r.deps.Clock.SetTime(profile.Uint32(v)), strconv.FormatUint(uint64(profile.Uint32(v)), 10))
	case profile.ClockTimeZone:
		r.postClock(c, r.deps.Clock.SetTimeZone(profile.Uint16(v)), strconv.Itoa(int(int16(profile.Uint16(v)))))
	case profile.ClockHourMode:
		r.postClock(c, r.deps.Clock.SetHourMode(v[0]), strconv.Itoa(int(v[0])))
	case profile.ClockDST:
		r.postClock(c, r.deps.Clock.SetDST(v[0]), strconv.Itoa(int(v[0])))

	case profile.NotifyBar:
		if err := r.deps.Notes.SetBar(notify.Flags(v[0])); err != nil {
			return err
		}
		r.report(ActivityBar, "", fmt.Sprintf("0x%02x", v[0]&0x0F))

	case profile.NotifyCall, profile.NotifyText:
		kind := notify.AlertCall
		if c == profile.NotifyText {
			kind = notify.AlertText
		}
		if err := r.deps.Notes.SetAlert(kind, v); err != nil {
			return err
		}
		r.deps.Power.OnAlertShown()
		r.mu.Lock()
		r.counts.AlertsShown++
		r.mu.Unlock()
		r.report(ActivityAlertShown, kind.String(), profile.CallerText(v))

	default:
		r.ignore("unhandled characteristic " + c.String())
	}
	return nil
}

// postClock reports a forwarded clock write. A full inbox has already been
// logged and counted by the clock.
func (r *Router) postClock(c profile.Char, ok bool, value string) {
	if ok {
		r.report(ActivityClock, c.String(), value)
	}
}

func (r *Router) ignore(reason string) {
	r.mu.Lock()
	r.counts.Ignored++
	r.mu.Unlock()
	log.Printf("router: ignored: %s", reason)
}

func (r *Router) report(t ActivityType, detail, value string) {
	if r.deps.Report == nil {
		return
	}
	r.deps.Report(Activity{
		Timestamp: r.deps.Now(),
		Type:      t,
		Detail:    detail,
		Value:     value,
	})
}

// Counts returns a snapshot of the handled-event counters.
func (r *Router) Counts() Counts {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts
}

// Pending returns the number of queued events.
func (r *Router) Pending() int {
	return len(r.queue)
}
