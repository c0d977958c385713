package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sweeney/kepler-watch/internal/ble"
	"github.com/sweeney/kepler-watch/internal/button"
	"github.com/sweeney/kepler-watch/internal/clock"
	"github.com/sweeney/kepler-watch/internal/display"
	"github.com/sweeney/kepler-watch/internal/gpio"
	"github.com/sweeney/kepler-watch/internal/mqtt"
	"github.com/sweeney/kepler-watch/internal/notify"
	"github.com/sweeney/kepler-watch/internal/power"
	"github.com/sweeney/kepler-watch/internal/profile"
	"github.com/sweeney/kepler-watch/internal/router"
	"github.com/sweeney/kepler-watch/internal/status"
	"github.com/sweeney/kepler-watch/internal/timer"
)

// stack is the whole watch on fakes: scripted button levels, fake timers,
// an in-memory panel, a fake phone and a fake broker. Only the router and
// forwarder goroutines run for real.
type stack struct {
	tr      *display.FakeTransport
	surface *display.Surface
	table   *profile.Table
	rtc     *clock.FakeRTC
	clock   *clock.Clock
	notes   *notify.State
	power   *power.Controller
	router  *router.Router
	pins    *gpio.FakePins
	buttons *button.Debouncer
	central *ble.FakeCentral
	pub     *mqtt.FakePublisher
	tracker *status.Tracker

	alert  *timer.Fake
	idle   *timer.Fake
	settle []*timer.Fake
	faults chan error
}

func newStack(t *testing.T) *stack {
	t.Helper()
	s := &stack{
		tr:      display.NewFakeTransport(),
		table:   profile.NewTable(),
		rtc:     clock.NewFakeRTC(1700000000),
		pins:    gpio.NewFakePins(),
		pub:     mqtt.NewFakePublisher(),
		tracker: status.NewTracker(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), status.Config{}),
		faults:  make(chan error, 1),
	}
	s.surface = display.NewSurface(s.tr, display.DefaultContrast, nil)
	if err := s.surface.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}

	s.router = router.New(router.DefaultQueueSize, nil)
	s.clock = clock.New(s.rtc, s.table, s.surface, clock.DefaultInboxSize, nil)
	s.notes = notify.New(s.surface, notify.DefaultLayout, notify.DefaultAlertTimeout,
		func(fn func()) timer.Timer { s.alert = timer.NewFake(fn); return s.alert },
		s.router.PostAlertTimeout, nil)
	s.clock.SetAlertQuery(s.notes)
	s.power = power.New(s.surface, s.notes, s.clock, power.DefaultIdleTimeout,
		func(fn func()) timer.Timer { s.idle = timer.NewFake(fn); return s.idle },
		s.router.PostIdleTimeout)

	forward := mqtt.NewForwarder(s.pub, mqtt.DefaultForwardQueue, nil)
	s.router.Attach(router.Deps{
		Table: s.table,
		Clock: s.clock,
		Notes: s.notes,
		Power: s.power,
		Report: func(a router.Activity) {
			s.tracker.Record(a)
			forward.Report(a)
		},
	})
	s.table.SetListener(s.router)

	s.buttons = button.New(s.pins, button.DefaultWindow, s.router.PostButton,
		func(fn func()) timer.Timer {
			f := timer.NewFake(fn)
			s.settle = append(s.settle, f)
			return f
		}, nil)
	s.pins.SetHandler(s.buttons.OnEdge)

	s.central = ble.NewFakeCentral(s.table, s.router.PostConnection)
	if err := mqtt.NewBridge(mqtt.DefaultTopicPrefix, s.table).Start(s.pub); err != nil {
		t.Fatalf("bridge: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() {
		if err := s.router.Run(ctx); err != nil {
			s.faults <- err
		}
	}()
	go forward.Run(ctx)
	return s
}

// click presses and releases a button, letting each settle window expire.
func (s *stack) click(id gpio.ButtonID) {
	s.pins.Set(id, true)
	s.settle[id].Fire()
	s.pins.Set(id, false)
	s.settle[id].Fire()
}

// waitFor polls cond until it holds, failing the test on a router fault or
// after a deadline.
func (s *stack) waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		select {
		case err := <-s.faults:
			t.Fatalf("router fault while waiting for %s: %v", what, err)
		default:
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func (s *stack) published(typ router.ActivityType, detail string) bool {
	for _, a := range s.pub.Published() {
		if a.Type == typ && a.Detail == detail {
			return true
		}
	}
	return false
}

func TestIntegrationButtonWakeThenIdle(t *testing.T) {
	s := newStack(t)

	s.click(gpio.Button0)
	s.waitFor(t, "published display on", func() bool { return s.published(router.ActivityDisplay, "on") })
	if !s.surface.IsOn() || !s.idle.Armed() {
		t.Fatal("display should be on with the idle timer armed")
	}

	if s.idle.Duration() != power.DefaultIdleTimeout {
		t.Errorf("idle duration: got %v, want %v", s.idle.Duration(), power.DefaultIdleTimeout)
	}
	if s.buttons.Counts().Releases[gpio.Button0] != 1 {
		t.Errorf("releases: got %d, want 1", s.buttons.Counts().Releases[gpio.Button0])
	}

	s.idle.Fire()
	s.waitFor(t, "published display off", func() bool { return s.published(router.ActivityDisplay, "off") })
	if s.surface.IsOn() {
		t.Error("display should be off after idle timeout")
	}

	if !s.published(router.ActivityButton, "button0") {
		t.Error("missing BUTTON_RELEASED activity")
	}
}

func TestIntegrationBounceInsideWindowIgnored(t *testing.T) {
	s := newStack(t)

	s.pins.Set(gpio.Button0, true)
	// Edges are disabled until the window expires, so chatter is never seen.
	s.pins.Set(gpio.Button0, false)
	s.pins.Set(gpio.Button0, true)
	if s.settle[gpio.Button0].Starts != 1 {
		t.Errorf("settle starts: got %d, want 1", s.settle[gpio.Button0].Starts)
	}
	s.pins.Set(gpio.Button0, false)
	s.settle[gpio.Button0].Fire()

	if s.buttons.State(gpio.Button0) != button.StateReleased {
		t.Errorf("state: got %s, want released", s.buttons.State(gpio.Button0))
	}
	if s.router.Counts().ButtonReleases[gpio.Button0] != 0 {
		t.Error("bounce produced a release")
	}
}

func TestIntegrationCallAlertAndOverride(t *testing.T) {
	s := newStack(t)

	s.central.Connect("AA:BB:CC:DD:EE:FF")
	if err := s.central.Write(profile.NotifyCall, []byte("Alice")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	s.waitFor(t, "alert shown", func() bool { return s.published(router.ActivityAlertShown, "call") })

	if !s.surface.IsOn() {
		t.Error("alert should turn the display on")
	}
	if !s.notes.IsAlertActive() {
		t.Fatal("alert not active")
	}
	if bytes.Equal(s.tr.LastFrame(), make([]byte, display.BufferSize)) {
		t.Error("alert frame is blank")
	}
	snap := s.tracker.Snapshot()
	if !snap.BLEConnected || snap.BLEPeer != "AA:BB:CC:DD:EE:FF" {
		t.Errorf("ble: got connected=%v peer=%q", snap.BLEConnected, snap.BLEPeer)
	}

	// The clock does not draw over the alert.
	frames := s.tr.FrameCount()
	s.rtc.Advance(1)
	if err := s.clock.Tick(); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if s.tr.FrameCount() != frames {
		t.Error("clock drew during alert")
	}

	s.click(gpio.Button0)
	s.waitFor(t, "published dismissal", func() bool { return s.published(router.ActivityAlertDismissed, "button") })

	if s.notes.IsAlertActive() {
		t.Error("alert still active after override")
	}
	if s.surface.IsOn() {
		t.Error("display should be off after override")
	}
	if s.alert.Armed() {
		t.Error("alert timer still armed")
	}
	if !s.idle.Armed() || s.idle.Duration() != power.DefaultIdleTimeout {
		t.Errorf("idle timer after override: armed=%v duration=%v", s.idle.Armed(), s.idle.Duration())
	}
}

func TestIntegrationTextAlertTimesOut(t *testing.T) {
	s := newStack(t)

	if err := s.central.Write(profile.NotifyText, []byte("Bob")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	s.waitFor(t, "alert shown", func() bool { return s.published(router.ActivityAlertShown, "text") })
	if s.alert.Duration() != notify.DefaultAlertTimeout {
		t.Errorf("alert duration: got %v, want %v", s.alert.Duration(), notify.DefaultAlertTimeout)
	}

	s.alert.Fire()
	s.waitFor(t, "published timeout", func() bool { return s.published(router.ActivityAlertDismissed, "timeout") })

	if s.notes.IsAlertActive() {
		t.Error("alert still active after timeout")
	}

	if s.surface.IsOn() {
		t.Error("display should be off after timeout")
	}
	if s.idle.Armed() {
		t.Error("idle timer armed after timeout")
	}
	if !bytes.Equal(s.tr.LastFrame(), make([]byte, display.BufferSize)) {
		t.Error("display not cleared after timeout")
	}
}

func TestIntegrationClockSettingsOverMQTT(t *testing.T) {
	s := newStack(t)

	topic := mqtt.DefaultTopicPrefix + "/set/clock/hour_mode"
	if n := s.pub.Deliver(topic, []byte("1")); n != 1 {
		t.Fatalf("Deliver: got %d handlers, want 1", n)
	}
	s.pub.Deliver(mqtt.DefaultTopicPrefix+"/set/clock/timezone", []byte("-3600"))
	s.waitFor(t, "clock writes routed", func() bool { return s.router.Counts().CharWrites == 2 })

	if err := s.clock.Tick(); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	st := s.clock.State()
	if st.Settings.HourMode != clock.Hour24 {
		t.Errorf("hour mode: got %s, want 24h", st.Settings.HourMode)
	}
	if st.Settings.TimeZone != -3600 {
		t.Errorf("timezone: got %d, want -3600", st.Settings.TimeZone)
	}

	v, ok := s.central.LastNotified(profile.ClockHourMode)
	if !ok || !bytes.Equal(v, []byte{1}) {
		t.Errorf("hour mode notify: got %v (%v), want [1]", v, ok)
	}
	v, err := s.central.Read(profile.ClockTime)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if profile.Uint32(v) != 1700000000 {
		t.Errorf("time read: got %d, want 1700000000", profile.Uint32(v))
	}
}

func TestIntegrationBarInStatus(t *testing.T) {
	s := newStack(t)

	if err := s.central.Write(profile.NotifyBar, []byte{0x0A}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	s.waitFor(t, "bar published", func() bool { return s.published(router.ActivityBar, "") })

	snap := s.tracker.Snapshot()
	snap.Watch.Bar = uint8(s.notes.Snapshot().Flags)
	var body status.StatusJSON
	if err := json.Unmarshal(status.FormatJSON(snap), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	bar := body.Status.Bar
	if bar.Mask != 0x0A || !bar.Text || !bar.MissedCall || bar.Email || bar.Voicemail {
		t.Errorf("bar: got %+v", bar)
	}
	if len(body.Status.Recent) == 0 || body.Status.Recent[0].Event != string(router.ActivityBar) {
		t.Errorf("recent: got %+v", body.Status.Recent)
	}
}

func TestIntegrationRejectedWrites(t *testing.T) {
	s := newStack(t)

	if err := s.central.Write(profile.ClockTime, []byte{1, 2}); !errors.Is(err, profile.ErrInvalidLength) {
		t.Errorf("short time write: got %v, want ErrInvalidLength", err)
	}
	if err := s.central.Write(profile.NotifyCall, []byte("a caller name that is too long")); !errors.Is(err, profile.ErrInvalidLength) {
		t.Errorf("long caller write: got %v, want ErrInvalidLength", err)
	}
	if _, err := s.central.Read(profile.NotifyCall); !errors.Is(err, ble.ErrNotReadable) {
		t.Errorf("call read: got %v, want ErrNotReadable", err)
	}
	s.pub.Deliver(mqtt.DefaultTopicPrefix+"/set/notification/bar", []byte("banana"))

	if s.router.Pending() != 0 || s.router.Counts().CharWrites != 0 {
		t.Error("rejected writes reached the router")
	}
	if s.notes.IsAlertActive() || s.surface.IsOn() {
		t.Error("rejected writes changed the display")
	}
}
