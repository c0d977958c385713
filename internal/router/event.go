package router

import (
	"time"

	"github.com/sweeney/kepler-watch/internal/gpio"
	"github.com/sweeney/kepler-watch/internal/profile"
)

// Kind is the type of a queued event.
type Kind int

const (
	KindCharWrite Kind = iota
	KindButton
	KindIdleTimeout
	KindAlertTimeout
	KindConnection
)

func (k Kind) String() string {
	switch k {
	case KindCharWrite:
		return "char_write"
	case KindButton:
		return "button"
	case KindIdleTimeout:
		return "idle_timeout"
	case KindAlertTimeout:
		return "alert_timeout"
	case KindConnection:
		return "connection"
	default:
		return "unknown"
	}
}

// Event is one entry on the router queue. Only the fields for its Kind are set.
type Event struct {
	Kind      Kind
	Char      profile.Char  // KindCharWrite
	Button    gpio.ButtonID // KindButton
	Gen       uint64        // KindIdleTimeout, KindAlertTimeout
	Connected bool          // KindConnection
	Peer      string        // KindConnection
}

// ActivityType names something the watch did, for publishing.
type ActivityType string

const (
	ActivityButton         ActivityType = "BUTTON_RELEASED"
	ActivityBar            ActivityType = "BAR_UPDATED"
	ActivityAlertShown     ActivityType = "ALERT_SHOWN"
	ActivityAlertDismissed ActivityType = "ALERT_DISMISSED"
	ActivityClock          ActivityType = "CLOCK_SET"
	ActivityDisplay        ActivityType = "DISPLAY"
	ActivityConnection     ActivityType = "CONNECTION"
)

// Activity is reported after the router has handled an event.
type Activity struct {
	Timestamp time.Time
	Type      ActivityType
	Detail    string // e.g. button name, alert kind, "on"/"off"
	Value     string // e.g. caller text, bar bitmask, written value
}

// Counts tracks handled events.
type Counts struct {
	CharWrites     int
	ButtonReleases [gpio.NumButtons]int
	AlertsShown    int
	AlertsTimedOut int
	AlertsOverride int
	Dropped        int
	Ignored        int
}
