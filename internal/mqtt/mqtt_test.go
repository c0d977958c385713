package mqtt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sweeney/kepler-watch/internal/profile"
	"github.com/sweeney/kepler-watch/internal/router"
)

func TestFormatPayloadExactJSON(t *testing.T) {
	a := router.Activity{
		Timestamp: time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC),
		Type:      router.ActivityAlertShown,
		Detail:    "call",
		Value:     "Alice",
	}

	payload, err := FormatPayload(a)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"watch":{"timestamp":"2026-02-02T22:18:12Z","event":"ALERT_SHOWN","detail":"call","value":"Alice"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, expected)
	}
}

func TestFormatPayloadOmitsEmpty(t *testing.T) {
	payload, err := FormatPayload(router.Activity{Timestamp: time.Now(), Type: router.ActivityBar, Value: "0x05"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed map[string]map[string]any
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if _, ok := parsed["watch"]["detail"]; ok {
		t.Error("empty detail should be omitted")
	}
	if parsed["watch"]["value"] != "0x05" {
		t.Errorf("value: got %v, want 0x05", parsed["watch"]["value"])
	}
}

func TestFormatSystemPayloadExactJSON(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 3, 10, 30, 45, 0, time.UTC),
		Event:     "SHUTDOWN",
		Reason:    "SIGTERM",
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"system":{"timestamp":"2026-02-03T10:30:45Z","event":"SHUTDOWN","reason":"SIGTERM"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, expected)
	}
}

func TestFormatSystemPayloadWill(t *testing.T) {
	payload, err := FormatSystemPayload(SystemEvent{Event: "OFFLINE", Reason: "LWT"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := `{"system":{"event":"OFFLINE","reason":"LWT"}}`
	if string(payload) != expected {
		t.Errorf("got %s, want %s", payload, expected)
	}
}

func TestFormatSystemPayloadRaw(t *testing.T) {
	raw := []byte(`{"status":{}}`)
	payload, err := FormatSystemPayload(SystemEvent{Event: "HEARTBEAT", RawPayload: raw})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(payload, raw) {
		t.Errorf("got %s, want raw payload", payload)
	}
}

func TestTopics(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{EventsTopic("wearable/kepler"), "wearable/kepler/events"},
		{SystemTopic("wearable/kepler"), "wearable/kepler/system"},
		{SetTopicFilter("wearable/kepler"), "wearable/kepler/set/+/+"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %s, want %s", tt.got, tt.want)
		}
	}
}

func TestFakePublisherRecords(t *testing.T) {
	f := NewFakePublisher()
	if err := f.Publish(router.Activity{Type: router.ActivityButton, Detail: "button0"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.Activities) != 1 || len(f.Payloads) != 1 {
		t.Fatalf("got %d activities, %d payloads", len(f.Activities), len(f.Payloads))
	}

	f.PublishError = errors.New("simulated error")
	if err := f.Publish(router.Activity{}); err == nil {
		t.Error("expected error")
	}
	if f.ActivityCount() != 1 {
		t.Errorf("activity recorded on error")
	}

	f.Close()
	f.Reset()
	if f.ActivityCount() != 0 || f.Closed || f.PublishError != nil {
		t.Error("Reset did not clear state")
	}
}

func TestTopicMatches(t *testing.T) {
	tests := []struct {
		filter, topic string
		want          bool
	}{
		{"a/set/+/+", "a/set/clock/time", true},
		{"a/set/+/+", "a/set/clock", false},
		{"a/set/+/+", "a/set/clock/time/x", false},
		{"a/#", "a/set/clock/time", true},
		{"a/events", "a/system", false},
	}
	for _, tt := range tests {
		if got := topicMatches(tt.filter, tt.topic); got != tt.want {
			t.Errorf("topicMatches(%q, %q): got %v, want %v", tt.filter, tt.topic, got, tt.want)
		}
	}
}

func TestParseSetTopic(t *testing.T) {
	c, err := ParseSetTopic("wearable/kepler", "wearable/kepler/set/notification/call")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c != profile.NotifyCall {
		t.Errorf("got %s, want notification/call", c)
	}

	if _, err := ParseSetTopic("wearable/kepler", "other/set/clock/time"); !errors.Is(err, ErrBadTopic) {
		t.Errorf("foreign prefix: got %v, want ErrBadTopic", err)
	}
	if _, err := ParseSetTopic("wearable/kepler", "wearable/kepler/set/clock/alarm"); !errors.Is(err, profile.ErrUnknownCharacteristic) {
		t.Errorf("unknown name: got %v, want ErrUnknownCharacteristic", err)
	}
}

func TestEncodeValue(t *testing.T) {
	tests := []struct {
		c    profile.Char
		in   string
		want []byte
	}{
		{profile.ClockTime, "1234567890", profile.PutUint32(1234567890)},
		{profile.ClockTimeZone, "-3600", profile.PutUint16(0xF1F0)},
		{profile.ClockHourMode, "1", []byte{1}},
		{profile.ClockDST, " 0\n", []byte{0}},
		{profile.NotifyBar, "0x05", []byte{5}},
		{profile.NotifyBar, "12", []byte{12}},
		{profile.NotifyText, " Bob ", []byte(" Bob ")},
	}
	for _, tt := range tests {
		got, err := EncodeValue(tt.c, tt.in)
		if err != nil {
			t.Errorf("%s %q: %v", tt.c, tt.in, err)
			continue
		}
		if !bytes.Equal(got, tt.want) {
			t.Errorf("%s %q: got %x, want %x", tt.c, tt.in, got, tt.want)
		}
	}

	if _, err := EncodeValue(profile.ClockTime, "soon"); err == nil {
		t.Error("expected error for non-numeric time")
	}
	if _, err := EncodeValue(profile.ClockTimeZone, "99999"); err == nil {
		t.Error("expected error for out of range timezone")
	}
}

type recordingListener struct{ changed []profile.Char }

func (r *recordingListener) CharacteristicChanged(c profile.Char) {
	r.changed = append(r.changed, c)
}

func TestBridgeWritesTable(t *testing.T) {
	table := profile.NewTable()
	l := &recordingListener{}
	table.SetListener(l)

	pub := NewFakePublisher()
	b := NewBridge("wearable/kepler", table)
	if err := b.Start(pub); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if n := pub.Deliver("wearable/kepler/set/clock/time", []byte("1700000000")); n != 1 {
		t.Fatalf("delivered to %d handlers, want 1", n)
	}
	v, _ := table.Get(profile.ClockTime)
	if profile.Uint32(v) != 1700000000 {
		t.Errorf("time: got %d, want 1700000000", profile.Uint32(v))
	}
	if len(l.changed) != 1 || l.changed[0] != profile.ClockTime {
		t.Errorf("listener: got %v", l.changed)
	}
}

func TestBridgeRejectsOversizedCaller(t *testing.T) {
	table := profile.NewTable()
	l := &recordingListener{}
	table.SetListener(l)
	b := NewBridge("", table)

	b.Handle(DefaultTopicPrefix+"/set/notification/text", []byte("a caller name that is too long"))
	if len(l.changed) != 0 {
		t.Errorf("oversized write reached the listener: %v", l.changed)
	}
}

func TestForwarderPublishes(t *testing.T) {
	pub := NewFakePublisher()
	f := NewForwarder(pub, 4, nil)

	f.Report(router.Activity{Type: router.ActivityButton, Detail: "button0"})
	f.Report(router.Activity{Type: router.ActivityDisplay, Detail: "on"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f.Run(ctx) // flushes the queue and returns

	if pub.ActivityCount() != 2 {
		t.Fatalf("published: got %d, want 2", pub.ActivityCount())
	}
	if pub.Activities[1].Detail != "on" {
		t.Errorf("order: got %+v", pub.Activities)
	}
}

func TestForwarderDropsWhenFull(t *testing.T) {
	pub := NewFakePublisher()
	f := NewForwarder(pub, 1, nil)

	f.Report(router.Activity{Type: router.ActivityButton})
	f.Report(router.Activity{Type: router.ActivityBar})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f.Run(ctx)

	if pub.ActivityCount() != 1 {
		t.Errorf("published: got %d, want 1", pub.ActivityCount())
	}
}
