package gpio

import "sync"

// FakePins is a test double with settable levels.
// Level changes raise edge events only when the matching edge is enabled,
// like the kernel does.
type FakePins struct {
	mu      sync.Mutex
	pressed [NumButtons]bool
	edges   [NumButtons]Edge
	handler EdgeHandler

	// ReadError, if set, will be returned by Pressed.
	ReadError error

	// EdgeChanges records every SetEdge call in order.
	EdgeChanges []EdgeChange

	// Closed tracks if Close was called.
	Closed bool
}

// EdgeChange is one recorded SetEdge call.
type EdgeChange struct {
	ID   ButtonID
	Edge Edge
}

// NewFakePins creates FakePins with both buttons released and waiting
// for a press edge.
func NewFakePins() *FakePins {
	return &FakePins{edges: [NumButtons]Edge{EdgePress, EdgePress}}
}

// SetHandler installs the edge handler.
func (f *FakePins) SetHandler(h EdgeHandler) {
	f.mu.Lock()
	f.handler = h
	f.mu.Unlock()
}

// Pressed returns the scripted level.
func (f *FakePins) Pressed(id ButtonID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ReadError != nil {
		return false, f.ReadError
	}
	return f.pressed[id], nil
}

// SetEdge records the requested edge.
func (f *FakePins) SetEdge(id ButtonID, e Edge) error {
	f.mu.Lock()
	f.edges[id] = e
	f.EdgeChanges = append(f.EdgeChanges, EdgeChange{ID: id, Edge: e})
	f.mu.Unlock()
	return nil
}

// EdgeFor returns the currently enabled edge.
func (f *FakePins) EdgeFor(id ButtonID) Edge {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.edges[id]
}

// Set changes the level and raises an edge event if that transition is
// enabled. It reports whether the handler ran.
func (f *FakePins) Set(id ButtonID, pressed bool) bool {
	f.mu.Lock()
	was := f.pressed[id]
	f.pressed[id] = pressed
	edge := f.edges[id]
	h := f.handler
	f.mu.Unlock()

	if was == pressed || h == nil {
		return false
	}
	if (pressed && edge == EdgePress) || (!pressed && edge == EdgeRelease) {
		h(id)
		return true
	}
	return false
}

// Close marks the pins as closed.
func (f *FakePins) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}
