// Package mqtt publishes watch activity to a broker and accepts
// characteristic writes from it, with an abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/kepler-watch/internal/router"
)

// DefaultTopicPrefix is the root of every topic the watch uses.
const DefaultTopicPrefix = "wearable/kepler"

// EventsTopic carries watch activity (button releases, alerts, bar updates).
func EventsTopic(prefix string) string { return prefix + "/events" }

// SystemTopic carries lifecycle events and status snapshots.
func SystemTopic(prefix string) string { return prefix + "/system" }

// SetTopicFilter matches <prefix>/set/<service>/<name>.
func SetTopicFilter(prefix string) string { return prefix + "/set/+/+" }

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a watch activity to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(a router.Activity) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// Subscriber delivers messages matching a topic filter.
type Subscriber interface {
	Subscribe(filter string, fn func(topic string, payload []byte)) error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload is the MQTT message payload for a watch activity.
type Payload struct {
	Watch WatchPayload `json:"watch"`
}

// WatchPayload contains the activity details.
type WatchPayload struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Detail    string `json:"detail,omitempty"`
	Value     string `json:"value,omitempty"`
}

// FormatPayload creates the JSON payload for an activity.
func FormatPayload(a router.Activity) ([]byte, error) {
	payload := Payload{
		Watch: WatchPayload{
			Timestamp: a.Timestamp.UTC().Format(time.RFC3339),
			Event:     string(a.Type),
			Detail:    a.Detail,
			Value:     a.Value,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload is the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp,omitempty"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	inner := SystemPayloadInner{
		Event:  event.Event,
		Reason: event.Reason,
	}
	if !event.Timestamp.IsZero() {
		inner.Timestamp = event.Timestamp.UTC().Format(time.RFC3339)
	}
	return json.Marshal(SystemPayload{System: inner})
}
