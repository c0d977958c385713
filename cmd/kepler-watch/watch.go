package main

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/sweeney/kepler-watch/internal/button"
	"github.com/sweeney/kepler-watch/internal/clock"
	"github.com/sweeney/kepler-watch/internal/config"
	"github.com/sweeney/kepler-watch/internal/display"
	"github.com/sweeney/kepler-watch/internal/gpio"
	"github.com/sweeney/kepler-watch/internal/metrics"
	"github.com/sweeney/kepler-watch/internal/mqtt"
	"github.com/sweeney/kepler-watch/internal/notify"
	"github.com/sweeney/kepler-watch/internal/power"
	"github.com/sweeney/kepler-watch/internal/profile"
	"github.com/sweeney/kepler-watch/internal/router"
	"github.com/sweeney/kepler-watch/internal/status"
)

// hardware is what the watch drives: the panel, the time source and the
// button lines. openPins is handed the edge handler for the debouncer.
type hardware struct {
	transport display.Transport
	rtc       clock.RTC
	openPins  func(h gpio.EdgeHandler) (gpio.Pins, error)
}

// watch is the assembled application.
type watch struct {
	surface *display.Surface
	table   *profile.Table
	router  *router.Router
	clock   *clock.Clock
	notes   *notify.State
	power   *power.Controller
	buttons *button.Debouncer
	pins    gpio.Pins
	tracker *status.Tracker
	forward *mqtt.Forwarder // nil without a broker
}

// newWatch builds every component and connects them. pub may be nil.
func newWatch(cfg *config.Config, hw hardware, tracker *status.Tracker, pub mqtt.Publisher, m *metrics.Metrics) (*watch, error) {
	w := &watch{tracker: tracker}

	w.surface = display.NewSurface(hw.transport, cfg.Display.Contrast, m)
	if err := w.surface.Init(); err != nil {
		return nil, fmt.Errorf("init display: %w", err)
	}

	w.table = profile.NewTable()
	w.router = router.New(cfg.Queues.Router, m)
	w.clock = clock.New(hw.rtc, w.table, w.surface, cfg.Queues.Clock, m)
	w.notes = notify.New(w.surface, notify.DefaultLayout, cfg.Timeouts.Alert, nil, w.router.PostAlertTimeout, m)
	w.clock.SetAlertQuery(w.notes)
	w.power = power.New(w.surface, w.notes, w.clock, cfg.Timeouts.Idle, nil, w.router.PostIdleTimeout)
	if pub != nil {
		w.forward = mqtt.NewForwarder(pub, cfg.Queues.Forward, m)
	}

	w.router.Attach(router.Deps{
		Table:  w.table,
		Clock:  w.clock,
		Notes:  w.notes,
		Power:  w.power,
		Report: w.report,
	})
	w.table.SetListener(w.router)

	// The pins need the debouncer's edge handler and the debouncer needs
	// the pins. Edges seen before the debouncer exists are dropped.
	var deb atomic.Pointer[button.Debouncer]
	pins, err := hw.openPins(func(id gpio.ButtonID) {
		if d := deb.Load(); d != nil {
			d.OnEdge(id)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("init gpio: %w", err)
	}
	w.pins = pins
	w.buttons = button.New(pins, cfg.Buttons.Debounce, w.router.PostButton, nil, m)
	deb.Store(w.buttons)

	return w, nil
}

// report runs on the router goroutine and must not block.
func (w *watch) report(a router.Activity) {
	log.Printf("event: %s %s %s", a.Type, a.Detail, a.Value)
	w.tracker.Record(a)
	if w.forward != nil {
		w.forward.Report(a)
	}
}

// start launches the router, the clock and the forwarder. A display
// failure in either task is sent on the returned channel.
func (w *watch) start(ctx context.Context, tick <-chan time.Time) <-chan error {
	fault := make(chan error, 2)
	go func() {
		if err := w.router.Run(ctx); err != nil {
			fault <- err
		}
	}()
	go func() {
		if err := w.clock.Run(ctx, tick); err != nil {
			fault <- err
		}
	}()
	if w.forward != nil {
		go w.forward.Run(ctx)
	}
	return fault
}

// collect copies the component state into the tracker.
func (w *watch) collect() {
	n := w.notes.Snapshot()
	cs := w.clock.State()
	rc := w.router.Counts()
	bc := w.buttons.Counts()

	w.tracker.Update(status.Watch{
		DisplayOn: w.surface.IsOn(),
		Alert:     n.Alert.String(),
		Caller:    n.Caller,
		Bar:       uint8(n.Flags),
		Epoch:     cs.Epoch,
		Local:     cs.Local,
		TimeZone:  cs.Settings.TimeZone,
		HourMode:  cs.Settings.HourMode.String(),
		DST:       cs.Settings.DST,
	}, status.Counts{
		CharWrites:     rc.CharWrites,
		ButtonReleases: rc.ButtonReleases,
		AlertsShown:    rc.AlertsShown,
		AlertsTimedOut: rc.AlertsTimedOut,
		AlertsOverride: rc.AlertsOverride,
		Ignored:        rc.Ignored,
		RouterDropped:  rc.Dropped,
		ClockDropped:   w.clock.Dropped(),
		ButtonDropped:  bc.Dropped,
	})
}

func (w *watch) close() {
	if err := w.pins.Close(); err != nil {
		log.Printf("gpio close: %v", err)
	}
}
