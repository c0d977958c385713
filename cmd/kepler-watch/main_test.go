package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/sweeney/kepler-watch/internal/clock"
	"github.com/sweeney/kepler-watch/internal/config"
	"github.com/sweeney/kepler-watch/internal/display"
	"github.com/sweeney/kepler-watch/internal/gpio"
	"github.com/sweeney/kepler-watch/internal/mqtt"
	"github.com/sweeney/kepler-watch/internal/profile"
	"github.com/sweeney/kepler-watch/internal/router"
	"github.com/sweeney/kepler-watch/internal/status"
)

// TestEnvVarNames verifies the env var constants match what pi-helper writes
// to /run/pi-helper.env. If pi-helper changes its var names, this test fails
// and we update the constants, not the other way around.
func TestEnvVarNames(t *testing.T) {
	want := map[string]string{
		"NETWORK_TYPE":        envNetworkType,
		"NETWORK_IP":          envNetworkIP,
		"NETWORK_STATUS":      envNetworkStatus,
		"NETWORK_GATEWAY":     envNetworkGateway,
		"NETWORK_WIFI_STATUS": envNetworkWifiStatus,
		"NETWORK_WIFI_SSID":   envNetworkWifiSSID,
	}
	for canonical, got := range want {
		if got != canonical {
			t.Errorf("env var constant: got %q, want %q", got, canonical)
		}
	}
}

func TestReadNetworkInfoAllSet(t *testing.T) {
	t.Setenv(envNetworkType, "wifi")
	t.Setenv(envNetworkIP, "192.168.1.100")
	t.Setenv(envNetworkStatus, "connected")
	t.Setenv(envNetworkGateway, "192.168.1.1")
	t.Setenv(envNetworkWifiStatus, "connected")
	t.Setenv(envNetworkWifiSSID, "MyNetwork")

	info := readNetworkInfo()
	if info == nil {
		t.Fatal("expected non-nil NetworkInfo")
	}

	want := status.NetworkInfo{
		Type:       "wifi",
		IP:         "192.168.1.100",
		Status:     "connected",
		Gateway:    "192.168.1.1",
		WifiStatus: "connected",
		SSID:       "MyNetwork",
	}
	if *info != want {
		t.Errorf("got %+v, want %+v", *info, want)
	}
}

func TestReadNetworkInfoNoneSet(t *testing.T) {
	t.Setenv(envNetworkStatus, "")
	if info := readNetworkInfo(); info != nil {
		t.Errorf("expected nil when NETWORK_STATUS is unset, got %+v", info)
	}
}

func TestReadNetworkInfoPartial(t *testing.T) {
	t.Setenv(envNetworkStatus, "connected")
	t.Setenv(envNetworkIP, "")

	info := readNetworkInfo()
	if info == nil {
		t.Fatal("expected non-nil NetworkInfo when NETWORK_STATUS is set")
	}
	if info.Status != "connected" {
		t.Errorf("Status: got %q, want %q", info.Status, "connected")
	}
	if info.IP != "" {
		t.Errorf("IP: got %q, want empty", info.IP)
	}
}

func TestDisabled(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"off", ""},
		{"OFF", ""},
		{"", ""},
		{":8080", ":8080"},
		{"tcp://broker:1883", "tcp://broker:1883"},
	}
	for _, tt := range tests {
		if got := disabled(tt.in); got != tt.want {
			t.Errorf("disabled(%q): got %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStateString(t *testing.T) {
	if stateString(true) != "PRESSED" || stateString(false) != "RELEASED" {
		t.Errorf("got %q/%q", stateString(true), stateString(false))
	}
}

// --- runLoop tests ---

// fakeClock returns a function that yields start, start+step, start+2*step, ...
// on successive calls. Only called from runLoop's goroutine.
func fakeClock(start time.Time, step time.Duration) func() time.Time {
	n := 0
	return func() time.Time {
		t := start.Add(time.Duration(n) * step)
		n++
		return t
	}
}

type loopHarness struct {
	refresh   chan time.Time
	heartbeat chan time.Time
	sig       chan os.Signal
	fault     chan error
	collects  int
	tracker   *status.Tracker
	done      chan error
}

// startLoop runs runLoop on a goroutine. pub may be nil.
func startLoop(t *testing.T, pub *mqtt.FakePublisher) *loopHarness {
	t.Helper()
	h := &loopHarness{
		refresh:   make(chan time.Time),
		heartbeat: make(chan time.Time),
		sig:       make(chan os.Signal, 1),
		fault:     make(chan error, 1),
		tracker:   status.NewTracker(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), status.Config{Broker: "tcp://test:1883"}),
		done:      make(chan error, 1),
	}
	clk := fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Minute)

	var publisher mqtt.Publisher
	var conn mqtt.ConnectionStatus
	if pub != nil {
		publisher, conn = pub, pub
	}
	go func() {
		h.done <- runLoop(func() { h.collects++ }, publisher, conn, h.tracker, clk, h.refresh, h.heartbeat, h.sig, h.fault)
	}()
	return h
}

func (h *loopHarness) stop(t *testing.T, s os.Signal) error {
	t.Helper()
	h.sig <- s
	select {
	case err := <-h.done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("runLoop did not return")
		return nil
	}
}

func systemEvents(pub *mqtt.FakePublisher, name string) []mqtt.SystemEvent {
	var out []mqtt.SystemEvent
	for _, e := range pub.SystemEvents {
		if e.Event == name {
			out = append(out, e)
		}
	}
	return out
}

func TestRunLoopShutdownSIGINT(t *testing.T) {
	pub := mqtt.NewFakePublisher()
	h := startLoop(t, pub)

	if err := h.stop(t, syscall.SIGINT); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	shutdowns := systemEvents(pub, "SHUTDOWN")
	if len(shutdowns) != 1 {
		t.Fatalf("expected 1 SHUTDOWN event, got %d", len(shutdowns))
	}
	if shutdowns[0].Reason != "SIGINT" {
		t.Errorf("reason: got %q, want SIGINT", shutdowns[0].Reason)
	}
	if !shutdowns[0].Retained {
		t.Error("SHUTDOWN should be retained")
	}

	var body status.StatusJSON
	if err := json.Unmarshal(shutdowns[0].RawPayload, &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Status.Event != "SHUTDOWN" || body.Status.Reason != "SIGINT" {
		t.Errorf("payload: got event=%q reason=%q", body.Status.Event, body.Status.Reason)
	}
}

func TestRunLoopShutdownSIGTERM(t *testing.T) {
	pub := mqtt.NewFakePublisher()
	h := startLoop(t, pub)

	if err := h.stop(t, syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}
	shutdowns := systemEvents(pub, "SHUTDOWN")
	if len(shutdowns) != 1 || shutdowns[0].Reason != "SIGTERM" {
		t.Fatalf("expected one SIGTERM shutdown, got %+v", pub.SystemEvents)
	}
	if h.collects != 1 {
		t.Errorf("collects: got %d, want 1", h.collects)
	}
}

func TestRunLoopWithoutPublisher(t *testing.T) {
	h := startLoop(t, nil)
	h.heartbeat <- time.Time{}
	if err := h.stop(t, syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}
}

func TestRunLoopRefreshCollects(t *testing.T) {
	pub := mqtt.NewFakePublisher()
	pub.Connected = true
	h := startLoop(t, pub)

	for i := 0; i < 3; i++ {
		h.refresh <- time.Time{}
	}
	if err := h.stop(t, syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	// Three refreshes plus the shutdown snapshot.
	if h.collects != 4 {
		t.Errorf("collects: got %d, want 4", h.collects)
	}
	if !h.tracker.Snapshot().MQTTConnected {
		t.Error("tracker should report MQTT connected")
	}
	if len(pub.SystemEvents) != 1 {
		t.Errorf("refresh should not publish, got %d system events", len(pub.SystemEvents))
	}
}

func TestRunLoopHeartbeat(t *testing.T) {
	pub := mqtt.NewFakePublisher()
	h := startLoop(t, pub)

	h.heartbeat <- time.Time{}
	h.heartbeat <- time.Time{}
	if err := h.stop(t, syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	heartbeats := systemEvents(pub, "HEARTBEAT")
	if len(heartbeats) != 2 {
		t.Fatalf("expected 2 HEARTBEAT events, got %d", len(heartbeats))
	}
	if heartbeats[0].Retained {
		t.Error("HEARTBEAT should not be retained")
	}
	var body status.StatusJSON
	if err := json.Unmarshal(heartbeats[0].RawPayload, &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Status.Event != "HEARTBEAT" {
		t.Errorf("payload event: got %q, want HEARTBEAT", body.Status.Event)
	}
	if body.Status.Recent != nil {
		t.Error("heartbeat payload should not carry recent activity")
	}
}

func TestRunLoopHeartbeatIncludesNetworkInfo(t *testing.T) {
	t.Setenv(envNetworkType, "wifi")
	t.Setenv(envNetworkIP, "10.0.0.5")
	t.Setenv(envNetworkStatus, "connected")
	t.Setenv(envNetworkGateway, "10.0.0.1")
	t.Setenv(envNetworkWifiStatus, "connected")
	t.Setenv(envNetworkWifiSSID, "Home")

	pub := mqtt.NewFakePublisher()
	h := startLoop(t, pub)
	h.heartbeat <- time.Time{}
	if err := h.stop(t, syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	heartbeats := systemEvents(pub, "HEARTBEAT")
	if len(heartbeats) != 1 {
		t.Fatalf("expected 1 HEARTBEAT event, got %d", len(heartbeats))
	}
	var body status.StatusJSON
	if err := json.Unmarshal(heartbeats[0].RawPayload, &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Status.Network == nil {
		t.Fatal("heartbeat payload missing network")
	}
	if body.Status.Network.IP != "10.0.0.5" || body.Status.Network.SSID != "Home" {
		t.Errorf("network: got %+v", *body.Status.Network)
	}
}

func TestRunLoopPublishError(t *testing.T) {
	pub := mqtt.NewFakePublisher()
	pub.PublishSystemError = fmt.Errorf("broker unavailable")
	h := startLoop(t, pub)

	h.heartbeat <- time.Time{}
	if err := h.stop(t, syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}
	if len(pub.SystemEvents) != 0 {
		t.Errorf("expected 0 recorded events (publish failed), got %d", len(pub.SystemEvents))
	}
}

func TestRunLoopFault(t *testing.T) {
	pub := mqtt.NewFakePublisher()
	h := startLoop(t, pub)

	want := errors.New("display: i2c nack")
	h.fault <- want
	select {
	case err := <-h.done:
		if !errors.Is(err, want) {
			t.Errorf("got %v, want %v", err, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("runLoop did not return on fault")
	}
	if len(systemEvents(pub, "SHUTDOWN")) != 0 {
		t.Error("fault should not publish SHUTDOWN")
	}
}

// --- watch assembly tests ---

type simHardware struct {
	tr   *display.FakeTransport
	pins *gpio.FakePins
	rtc  *clock.FakeRTC
	hw   hardware
}

func newSimHardware() *simHardware {
	s := &simHardware{
		tr:   display.NewFakeTransport(),
		pins: gpio.NewFakePins(),
		rtc:  clock.NewFakeRTC(1700000000),
	}
	s.hw = hardware{
		transport: s.tr,
		rtc:       s.rtc,
		openPins: func(h gpio.EdgeHandler) (gpio.Pins, error) {
			s.pins.SetHandler(h)
			return s.pins, nil
		},
	}
	return s
}

func newTestWatch(t *testing.T, pub mqtt.Publisher) (*watch, *simHardware, *status.Tracker) {
	t.Helper()
	sim := newSimHardware()
	cfg := config.Default()
	cfg.Buttons.Debounce = 5 * time.Millisecond
	tracker := status.NewTracker(time.Now(), status.Config{})
	w, err := newWatch(cfg, sim.hw, tracker, pub, nil)
	if err != nil {
		t.Fatalf("newWatch: %v", err)
	}
	t.Cleanup(w.close)
	return w, sim, tracker
}

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNewWatchPinsError(t *testing.T) {
	sim := newSimHardware()
	sim.hw.openPins = func(gpio.EdgeHandler) (gpio.Pins, error) {
		return nil, errors.New("no chip")
	}
	_, err := newWatch(config.Default(), sim.hw, status.NewTracker(time.Now(), status.Config{}), nil, nil)
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestNewWatchDisplayError(t *testing.T) {
	sim := newSimHardware()
	sim.tr.Err = errors.New("i2c nack")
	_, err := newWatch(config.Default(), sim.hw, status.NewTracker(time.Now(), status.Config{}), nil, nil)
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestWatchForwardsActivity(t *testing.T) {
	pub := mqtt.NewFakePublisher()
	w, _, tracker := newTestWatch(t, pub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.start(ctx, nil)

	if err := w.table.Write(profile.NotifyCall, []byte("Alice")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	eventually(t, "published alert", func() bool { return pub.ActivityCount() > 0 })

	found := false
	for _, a := range tracker.Snapshot().Recent {
		if a.Type == router.ActivityAlertShown && a.Value == "Alice" {
			found = true
		}
	}
	if !found {
		t.Error("tracker missing alert activity")
	}

	w.collect()
	snap := tracker.Snapshot()
	if snap.Watch.Alert != "call" || snap.Watch.Caller != "Alice" {
		t.Errorf("watch: got alert=%q caller=%q", snap.Watch.Alert, snap.Watch.Caller)
	}
	if snap.Counts.AlertsShown != 1 {
		t.Errorf("alerts shown: got %d, want 1", snap.Counts.AlertsShown)
	}
}

func TestWatchButtonWakes(t *testing.T) {
	w, sim, _ := newTestWatch(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.start(ctx, nil)

	sim.pins.Set(gpio.Button0, true)
	eventually(t, "press edge re-armed", func() bool { return sim.pins.EdgeFor(gpio.Button0) == gpio.EdgeRelease })
	sim.pins.Set(gpio.Button0, false)

	eventually(t, "display on", w.surface.IsOn)
}

func TestWatchFaultOnTransportError(t *testing.T) {
	w, sim, _ := newTestWatch(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fault := w.start(ctx, nil)

	sim.tr.Err = errors.New("i2c nack")
	if err := w.table.Write(profile.NotifyBar, []byte{0x01}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	select {
	case err := <-fault:
		if !errors.Is(err, sim.tr.Err) {
			t.Errorf("fault: got %v, want wrapped %v", err, sim.tr.Err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no fault reported")
	}
}

func TestOpenHardwareSimulated(t *testing.T) {
	cfg := config.Default()
	hw, closeHW, err := openHardware(cfg, true)
	if err != nil {
		t.Fatalf("openHardware: %v", err)
	}
	defer closeHW()

	tr, ok := hw.transport.(*display.FakeTransport)
	if !ok {
		t.Fatalf("transport: got %T, want *display.FakeTransport", hw.transport)
	}
	if tr.Limit != simulatedFrames {
		t.Errorf("limit: got %d, want %d", tr.Limit, simulatedFrames)
	}
	pins, err := hw.openPins(func(gpio.ButtonID) {})
	if err != nil {
		t.Fatalf("openPins: %v", err)
	}
	if _, ok := pins.(*gpio.FakePins); !ok {
		t.Errorf("pins: got %T, want *gpio.FakePins", pins)
	}
	if got := hw.rtc.Seconds(); got != cfg.Epoch {
		t.Errorf("rtc: got %d, want %d", got, cfg.Epoch)
	}
}
