package profile

import (
	"fmt"
	"sync"
)

// Listener is told about every accepted client write. It runs on the
// writer's goroutine and must not block; it reads the value back with Get.
type Listener interface {
	CharacteristicChanged(c Char)
}

// Observer is told about every value change, from clients or the application.
type Observer func(c Char, value []byte)

// Table holds the current value of every characteristic.
type Table struct {
	mu        sync.RWMutex
	values    [numChars][]byte
	listener  Listener
	observers []Observer
}

// NewTable creates a table with zeroed fixed-length values and empty strings.
func NewTable() *Table {
	t := &Table{}
	for _, s := range specs {
		t.values[s.Char] = make([]byte, s.MinLen)
	}
	return t
}

// SetListener installs the application listener.
func (t *Table) SetListener(l Listener) {
	t.mu.Lock()
	t.listener = l
	t.mu.Unlock()
}

// Observe registers fn for value changes.
func (t *Table) Observe(fn Observer) {
	t.mu.Lock()
	t.observers = append(t.observers, fn)
	t.mu.Unlock()
}

// Write applies a client write. Values of the wrong length are rejected and
// never reach the listener.
func (t *Table) Write(c Char, value []byte) error {
	s, err := SpecFor(c)
	if err != nil {
		return err
	}
	if len(value) < s.MinLen || len(value) > s.MaxLen {
		return fmt.Errorf("%w: %s got %d bytes, want %d..%d", ErrInvalidLength, c, len(value), s.MinLen, s.MaxLen)
	}

	l := t.store(c, value)
	if l != nil {
		l.CharacteristicChanged(c)
	}
	return nil
}

// Set mirrors an application value into the table without notifying the listener.
func (t *Table) Set(c Char, value []byte) error {
	s, err := SpecFor(c)
	if err != nil {
		return err
	}
	if len(value) < s.MinLen || len(value) > s.MaxLen {
		return fmt.Errorf("%w: %s got %d bytes", ErrInvalidLength, c, len(value))
	}
	t.store(c, value)
	return nil
}

func (t *Table) store(c Char, value []byte) Listener {
	v := append([]byte(nil), value...)

	t.mu.Lock()
	t.values[c] = v
	l := t.listener
	obs := t.observers
	t.mu.Unlock()

	for _, fn := range obs {
		fn(c, v)
	}
	return l
}

// Get returns a copy of the current value.
func (t *Table) Get(c Char) ([]byte, error) {
	if _, err := SpecFor(c); err != nil {
		return nil, err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]byte(nil), t.values[c]...), nil
}
