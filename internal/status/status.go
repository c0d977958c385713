// Package status provides a thread-safe status tracker for the watch daemon.
// It is read by the HTTP handlers and the MQTT heartbeat.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/kepler-watch/internal/router"
)

// DefaultRecent is how many activities the tracker remembers.
const DefaultRecent = 20

// NetworkInfo contains network state. This is a local copy to avoid
// importing internal/mqtt from status.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	Broker         string
	TopicPrefix    string
	HTTPAddr       string
	BLEName        string
	HeartbeatMs    int64
	DebounceMs     int64
	IdleTimeoutMs  int64
	AlertTimeoutMs int64
	Simulated      bool
}

// Watch is what the watch is showing and its clock settings.
type Watch struct {
	DisplayOn bool
	Alert     string // "none", "call" or "text"
	Caller    string
	Bar       uint8
	Epoch     uint32
	Local     time.Time
	TimeZone  int16
	HourMode  string
	DST       bool
}

// Counts aggregates the component counters.
type Counts struct {
	CharWrites     int
	ButtonReleases [2]int
	AlertsShown    int
	AlertsTimedOut int
	AlertsOverride int
	Ignored        int
	RouterDropped  int
	ClockDropped   int
	ButtonDropped  int
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Watch         Watch
	Counts        Counts
	BLEConnected  bool
	BLEPeer       string
	Recent        []router.Activity // newest last
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu     sync.RWMutex
	snap   Snapshot
	recent []router.Activity
	limit  int
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
			Watch:     Watch{Alert: "none", HourMode: "12h"},
		},
		limit: DefaultRecent,
	}
}

// Update sets the watch state and counters. Called from the status loop.
func (t *Tracker) Update(w Watch, c Counts) {
	t.mu.Lock()
	t.snap.Watch = w
	t.snap.Counts = c
	t.mu.Unlock()
}

// Record remembers an activity, discarding the oldest beyond the limit.
func (t *Tracker) Record(a router.Activity) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if a.Type == router.ActivityConnection {
		t.snap.BLEConnected = a.Detail == "connected"
		t.snap.BLEPeer = a.Value
	}
	t.recent = append(t.recent, a)
	if len(t.recent) > t.limit {
		t.recent = append(t.recent[:0], t.recent[len(t.recent)-t.limit:]...)
	}
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.Recent = append([]router.Activity(nil), t.recent...)
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
