package mqtt

import (
	"strings"
	"sync"

	"github.com/sweeney/kepler-watch/internal/router"
)

// FakePublisher records published events for test assertions. It is safe
// for use from the forwarder goroutine.
type FakePublisher struct {
	mu sync.Mutex

	// Activities contains every watch activity that was published.
	Activities []router.Activity

	// Payloads contains the JSON payloads that were published.
	Payloads [][]byte

	// SystemEvents contains all system events that were published.
	SystemEvents []SystemEvent

	// SystemPayloads contains the JSON payloads for system events.
	SystemPayloads [][]byte

	// PublishError, if set, will be returned by Publish.
	PublishError error

	// PublishSystemError, if set, will be returned by PublishSystem.
	PublishSystemError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool

	subs map[string]func(topic string, payload []byte)
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{subs: make(map[string]func(string, []byte))}
}

// Publish records the activity.
func (f *FakePublisher) Publish(a router.Activity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}

	payload, err := FormatPayload(a)
	if err != nil {
		return err
	}
	f.Activities = append(f.Activities, a)
	f.Payloads = append(f.Payloads, payload)
	return nil
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemEvents = append(f.SystemEvents, event)
	f.SystemPayloads = append(f.SystemPayloads, payload)
	return nil
}

// Subscribe records fn for Deliver.
func (f *FakePublisher) Subscribe(filter string, fn func(topic string, payload []byte)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs[filter] = fn
	return nil
}

// Deliver hands a message to every subscription whose filter matches topic.
// It returns the number of handlers called.
func (f *FakePublisher) Deliver(topic string, payload []byte) int {
	f.mu.Lock()
	var hs []func(string, []byte)
	for filter, fn := range f.subs {
		if topicMatches(filter, topic) {
			hs = append(hs, fn)
		}
	}
	f.mu.Unlock()

	for _, fn := range hs {
		fn(topic, payload)
	}
	return len(hs)
}

// ActivityCount returns the number of published activities.
func (f *FakePublisher) ActivityCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Activities)
}

// Published returns a copy of the published activities.
func (f *FakePublisher) Published() []router.Activity {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]router.Activity(nil), f.Activities...)
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Connected
}

// Reset clears recorded events.
func (f *FakePublisher) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Activities = nil
	f.Payloads = nil
	f.SystemEvents = nil
	f.SystemPayloads = nil
	f.Closed = false
	f.PublishError = nil
	f.PublishSystemError = nil
	f.Connected = false
}

// topicMatches implements MQTT filter matching for + and #.
func topicMatches(filter, topic string) bool {
	fs := strings.Split(filter, "/")
	ts := strings.Split(topic, "/")
	for i, f := range fs {
		if f == "#" {
			return true
		}
		if i >= len(ts) {
			return false
		}
		if f != "+" && f != ts[i] {
			return false
		}
	}
	return len(fs) == len(ts)
}
