package timer

import (
	"sync"
	"time"
)

// Fake is a test double that only fires when told to.
type Fake struct {
	mu       sync.Mutex
	fn       func()
	armed    bool
	duration time.Duration

	// Starts counts calls to Start.
	Starts int
	// Stops counts calls to Stop.
	Stops int
}

// NewFake creates a Fake that calls fn from Fire.
func NewFake(fn func()) *Fake {
	return &Fake{fn: fn}
}

// SetCallback replaces the expiry callback.
func (f *Fake) SetCallback(fn func()) {
	f.mu.Lock()
	f.fn = fn
	f.mu.Unlock()
}

// Start arms the fake.
func (f *Fake) Start(d time.Duration) {
	f.mu.Lock()
	f.armed = true
	f.duration = d
	f.Starts++
	f.mu.Unlock()
}

// Stop disarms the fake.
func (f *Fake) Stop() {
	f.mu.Lock()
	f.armed = false
	f.Stops++
	f.mu.Unlock()
}

// Armed reports whether the fake is armed.
func (f *Fake) Armed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.armed
}

// Duration returns the duration of the last Start.
func (f *Fake) Duration() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.duration
}

// Fire expires the timer as if its duration elapsed. It returns false
// and does nothing if the timer is not armed.
func (f *Fake) Fire() bool {
	f.mu.Lock()
	if !f.armed {
		f.mu.Unlock()
		return false
	}
	f.armed = false
	fn := f.fn
	f.mu.Unlock()
	if fn != nil {
		fn()
	}
	return true
}

// ForceFire runs the callback even when disarmed, simulating an expiry
// that raced with Stop.
func (f *Fake) ForceFire() {
	f.mu.Lock()
	f.armed = false
	fn := f.fn
	f.mu.Unlock()
	if fn != nil {
		fn()
	}
}
