// Package ble exposes the attribute table as a GATT peripheral.
//
// Client writes go straight into profile.Table, which validates them and
// hands them to the router. Values the application mirrors back (the
// ticking time, for one) are pushed to the stack from a separate goroutine
// so a stack callback never waits on itself.
package ble

import (
	"errors"
	"log"
	"sync"

	"github.com/sweeney/kepler-watch/internal/profile"
)

// ErrNotReadable is returned when a client reads a write-only characteristic.
var ErrNotReadable = errors.New("ble: characteristic is write-only")

// ConnectionFunc is told when a central connects or disconnects. It runs on
// the stack's goroutine and must not block.
type ConnectionFunc func(connected bool, peer string)

// CharLayout is one characteristic as registered with the stack.
type CharLayout struct {
	Char     profile.Char
	UUID     string
	Readable bool
}

// ServiceLayout is one service and its characteristics, in table order.
type ServiceLayout struct {
	Service profile.Service
	UUID    string
	Chars   []CharLayout
}

// Layout groups the profile into services with full 128-bit UUIDs.
func Layout() []ServiceLayout {
	var out []ServiceLayout
	index := map[profile.Service]int{}
	for _, s := range profile.Specs() {
		i, ok := index[s.Service]
		if !ok {
			i = len(out)
			index[s.Service] = i
			out = append(out, ServiceLayout{
				Service: s.Service,
				UUID:    profile.UUID(s.Service.UUID16()),
			})
		}
		out[i].Chars = append(out[i].Chars, CharLayout{
			Char:     s.Char,
			UUID:     profile.UUID(s.UUID16),
			Readable: s.Readable,
		})
	}
	return out
}

// valueWriter is a characteristic handle in the stack.
type valueWriter interface {
	Write(p []byte) (int, error)
}

type update struct {
	char  profile.Char
	value []byte
}

// mirror pushes table changes to the stack's characteristic values.
type mirror struct {
	handles map[profile.Char]valueWriter
	updates chan update
	done    chan struct{}
	once    sync.Once
}

func newMirror(handles map[profile.Char]valueWriter, size int) *mirror {
	return &mirror{
		handles: handles,
		updates: make(chan update, size),
		done:    make(chan struct{}),
	}
}

// observe is a profile.Observer. It never blocks.
func (m *mirror) observe(c profile.Char, v []byte) {
	if _, ok := m.handles[c]; !ok {
		return
	}
	select {
	case <-m.done:
	case m.updates <- update{char: c, value: v}:
	default:
		log.Printf("ble: update queue full, dropped %s", c)
	}
}

// run writes queued values until stop is called.
func (m *mirror) run() {
	for {
		select {
		case <-m.done:
			return
		case u := <-m.updates:
			if _, err := m.handles[u.char].Write(u.value); err != nil {
				log.Printf("ble: update %s: %v", u.char, err)
			}
		}
	}
}

func (m *mirror) stop() {
	m.once.Do(func() { close(m.done) })
}
