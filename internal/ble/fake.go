package ble

import (
	"sync"

	"github.com/sweeney/kepler-watch/internal/profile"
)

// FakeCentral stands in for a connected phone in tests and simulation. Its
// writes take the same path as a real client's.
type FakeCentral struct {
	table  *profile.Table
	onConn ConnectionFunc

	mu        sync.Mutex
	connected bool
	peer      string
	// Notified holds every value pushed to readable characteristics.
	Notified []update
}

// NewFakeCentral creates a disconnected central bound to table.
func NewFakeCentral(table *profile.Table, onConn ConnectionFunc) *FakeCentral {
	f := &FakeCentral{table: table, onConn: onConn}
	table.Observe(f.observe)
	return f
}

func (f *FakeCentral) observe(c profile.Char, v []byte) {
	if s, err := profile.SpecFor(c); err != nil || !s.Readable {
		return
	}
	f.mu.Lock()
	f.Notified = append(f.Notified, update{char: c, value: v})
	f.mu.Unlock()
}

// Connect simulates a central connecting.
func (f *FakeCentral) Connect(peer string) {
	f.mu.Lock()
	f.connected, f.peer = true, peer
	f.mu.Unlock()
	if f.onConn != nil {
		f.onConn(true, peer)
	}
}

// Disconnect simulates the central going away.
func (f *FakeCentral) Disconnect() {
	f.mu.Lock()
	peer := f.peer
	f.connected = false
	f.mu.Unlock()
	if f.onConn != nil {
		f.onConn(false, peer)
	}
}

// Write performs a client write.
func (f *FakeCentral) Write(c profile.Char, value []byte) error {
	return f.table.Write(c, value)
}

// Read performs a client read.
func (f *FakeCentral) Read(c profile.Char) ([]byte, error) {
	s, err := profile.SpecFor(c)
	if err != nil {
		return nil, err
	}
	if !s.Readable {
		return nil, ErrNotReadable
	}
	return f.table.Get(c)
}

// LastNotified returns the most recent pushed value for c.
func (f *FakeCentral) LastNotified(c profile.Char) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.Notified) - 1; i >= 0; i-- {
		if f.Notified[i].char == c {
			return f.Notified[i].value, true
		}
	}
	return nil, false
}
