package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/kepler-watch/internal/notify"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string         `json:"event,omitempty"`
	Reason        string         `json:"reason,omitempty"`
	Display       DisplayJSON    `json:"display"`
	Bar           BarJSON        `json:"bar"`
	Clock         ClockJSON      `json:"clock"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	StartTime     string         `json:"start_time"`
	Timestamp     string         `json:"timestamp"`
	BLE           BLEStatus      `json:"ble"`
	MQTT          MQTTStatus     `json:"mqtt"`
	Counts        CountsJSON     `json:"event_counts"`
	Recent        []ActivityJSON `json:"recent,omitempty"`
	Network       *NetworkJSON   `json:"network,omitempty"`
	Config        ConfigJSON     `json:"config"`
}

// DisplayJSON reports the panel and any full-screen alert.
type DisplayJSON struct {
	On     bool   `json:"on"`
	Alert  string `json:"alert"`
	Caller string `json:"caller,omitempty"`
}

// BarJSON is the notification bar.
type BarJSON struct {
	Mask       uint8 `json:"mask"`
	Email      bool  `json:"email"`
	Text       bool  `json:"text"`
	Voicemail  bool  `json:"voicemail"`
	MissedCall bool  `json:"missed_call"`
}

// ClockJSON is the clock state.
type ClockJSON struct {
	Epoch    uint32 `json:"epoch"`
	Local    string `json:"local"`
	TimeZone int16  `json:"timezone"`
	HourMode string `json:"hour_mode"`
	DST      bool   `json:"dst"`
}

// BLEStatus reports the central connection.
type BLEStatus struct {
	Connected bool   `json:"connected"`
	Peer      string `json:"peer,omitempty"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	CharWrites     int `json:"char_writes"`
	Button0        int `json:"button0"`
	Button1        int `json:"button1"`
	AlertsShown    int `json:"alerts_shown"`
	AlertsTimedOut int `json:"alerts_timed_out"`
	AlertsOverride int `json:"alerts_override"`
	Ignored        int `json:"ignored"`
	Dropped        int `json:"dropped"`
}

// ActivityJSON is one recent activity.
type ActivityJSON struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Detail    string `json:"detail,omitempty"`
	Value     string `json:"value,omitempty"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Broker         string `json:"broker"`
	TopicPrefix    string `json:"topic_prefix"`
	HTTPAddr       string `json:"http_addr"`
	BLEName        string `json:"ble_name,omitempty"`
	HeartbeatMs    int64  `json:"heartbeat_ms"`
	DebounceMs     int64  `json:"debounce_ms"`
	IdleTimeoutMs  int64  `json:"idle_timeout_ms"`
	AlertTimeoutMs int64  `json:"alert_timeout_ms"`
	Simulated      bool   `json:"simulated,omitempty"`
}

// LocalLayout formats the watch's wall-clock time.
const LocalLayout = "2006-01-02 15:04:05"

func buildInner(snap Snapshot) StatusInner {
	w := snap.Watch
	bar := notify.Flags(w.Bar)
	c := snap.Counts

	return StatusInner{
		Display: DisplayJSON{On: w.DisplayOn, Alert: w.Alert, Caller: w.Caller},
		Bar: BarJSON{
			Mask:       w.Bar,
			Email:      bar&notify.FlagEmail != 0,
			Text:       bar&notify.FlagText != 0,
			Voicemail:  bar&notify.FlagVoicemail != 0,
			MissedCall: bar&notify.FlagMissedCall != 0,
		},
		Clock: ClockJSON{
			Epoch:    w.Epoch,
			Local:    w.Local.Format(LocalLayout),
			TimeZone: w.TimeZone,
			HourMode: w.HourMode,
			DST:      w.DST,
		},
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		BLE:           BLEStatus{Connected: snap.BLEConnected, Peer: snap.BLEPeer},
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			CharWrites:     c.CharWrites,
			Button0:        c.ButtonReleases[0],
			Button1:        c.ButtonReleases[1],
			AlertsShown:    c.AlertsShown,
			AlertsTimedOut: c.AlertsTimedOut,
			AlertsOverride: c.AlertsOverride,
			Ignored:        c.Ignored,
			Dropped:        c.RouterDropped + c.ClockDropped + c.ButtonDropped,
		},
		Config: ConfigJSON{
			Broker:         snap.Config.Broker,
			TopicPrefix:    snap.Config.TopicPrefix,
			HTTPAddr:       snap.Config.HTTPAddr,
			BLEName:        snap.Config.BLEName,
			HeartbeatMs:    snap.Config.HeartbeatMs,
			DebounceMs:     snap.Config.DebounceMs,
			IdleTimeoutMs:  snap.Config.IdleTimeoutMs,
			AlertTimeoutMs: snap.Config.AlertTimeoutMs,
			Simulated:      snap.Config.Simulated,
		},
	}
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

func buildRecent(snap Snapshot, inner *StatusInner) {
	for _, a := range snap.Recent {
		inner.Recent = append(inner.Recent, ActivityJSON{
			Timestamp: a.Timestamp.UTC().Format(time.RFC3339),
			Event:     string(a.Type),
			Detail:    a.Detail,
			Value:     a.Value,
		})
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)
	buildRecent(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event. The
// activity log is left out; it is already on the events topic.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
