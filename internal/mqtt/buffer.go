package mqtt

import "log"

// pending is a serialized message held back while the broker is unreachable.
type pending struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// backlog keeps the most recent messages published while offline and
// replays them oldest first on reconnect. The caller synchronizes.
type backlog struct {
	ring    []pending
	next    int // slot the next push writes
	n       int
	dropped int // overwritten since the last flush
}

func newBacklog(size int) *backlog {
	if size < 1 {
		size = 1
	}
	return &backlog{ring: make([]pending, size)}
}

func (b *backlog) push(m pending) {
	if b.n == len(b.ring) {
		if b.dropped == 0 {
			log.Printf("mqtt: backlog full (%d messages), overwriting oldest", len(b.ring))
		}
		b.dropped++
	} else {
		b.n++
	}
	b.ring[b.next] = m
	b.next = (b.next + 1) % len(b.ring)
}

// flush empties the backlog, returning the held messages oldest first and
// how many were lost to overflow.
func (b *backlog) flush() ([]pending, int) {
	if b.n == 0 {
		return nil, 0
	}
	out := make([]pending, 0, b.n)
	first := (b.next - b.n + len(b.ring)) % len(b.ring)
	for i := 0; i < b.n; i++ {
		out = append(out, b.ring[(first+i)%len(b.ring)])
	}
	dropped := b.dropped
	b.next, b.n, b.dropped = 0, 0, 0
	return out, dropped
}

func (b *backlog) len() int {
	return b.n
}
