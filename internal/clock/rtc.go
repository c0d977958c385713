package clock

import (
	"sync"
	"time"
)

// DefaultEpoch is the time shown before a client sets it: 1994-01-14 00:00:00 UTC.
const DefaultEpoch uint32 = 758505600

// RTC is a free-running seconds counter.
type RTC interface {
	Seconds() uint32
	Set(epoch uint32)
}

// SystemRTC runs off the host clock with an offset, so setting the time
// never touches the system clock.
type SystemRTC struct {
	mu     sync.Mutex
	now    func() time.Time
	offset int64
}

// NewSystemRTC creates an RTC reading start at the current instant.
func NewSystemRTC(now func() time.Time, start uint32) *SystemRTC {
	r := &SystemRTC{now: now}
	r.Set(start)
	return r
}

// Seconds returns the current epoch.
func (r *SystemRTC) Seconds() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return uint32(r.now().Unix() + r.offset)
}

// Set makes the RTC read epoch now.
func (r *SystemRTC) Set(epoch uint32) {
	r.mu.Lock()
	r.offset = int64(epoch) - r.now().Unix()
	r.mu.Unlock()
}

// FakeRTC is a settable counter for tests.
type FakeRTC struct {
	mu    sync.Mutex
	epoch uint32
}

// NewFakeRTC creates a FakeRTC reading epoch.
func NewFakeRTC(epoch uint32) *FakeRTC {
	return &FakeRTC{epoch: epoch}
}

// Seconds returns the current value.
func (f *FakeRTC) Seconds() uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.epoch
}

// Set replaces the current value.
func (f *FakeRTC) Set(epoch uint32) {
	f.mu.Lock()
	f.epoch = epoch
	f.mu.Unlock()
}

// Advance moves the counter forward by n seconds.
func (f *FakeRTC) Advance(n uint32) {
	f.mu.Lock()
	f.epoch += n
	f.mu.Unlock()
}
