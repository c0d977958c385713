// Package timer provides one-shot timers with a fake for tests.
package timer

import (
	"sync"
	"time"
)

// Timer is a one-shot timer. The callback runs on its own goroutine and
// must only post events, never touch shared display state.
type Timer interface {
	// Start arms the timer for d, restarting it if already armed.
	Start(d time.Duration)

	// Stop disarms the timer. Safe to call when idle or already expired.
	Stop()
}

// Real wraps time.AfterFunc.
type Real struct {
	mu sync.Mutex
	fn func()
	t  *time.Timer
}

// New returns a Timer that calls fn on expiry.
func New(fn func()) *Real {
	return &Real{fn: fn}
}

// Start arms the timer, replacing any pending expiry.
func (r *Real) Start(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.t != nil {
		r.t.Stop()
	}
	r.t = time.AfterFunc(d, r.fn)
}

// Stop disarms the timer.
func (r *Real) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.t != nil {
		r.t.Stop()
		r.t = nil
	}
}
