package mqtt

import (
	"context"
	"log"

	"github.com/sweeney/kepler-watch/internal/metrics"
	"github.com/sweeney/kepler-watch/internal/router"
)

// DefaultForwardQueue is the number of activities waiting to be published.
const DefaultForwardQueue = 32

// Forwarder moves router activity onto a Publisher from its own goroutine,
// so a slow broker never stalls the router.
type Forwarder struct {
	pub     Publisher
	queue   chan router.Activity
	metrics *metrics.Metrics
}

// NewForwarder creates a Forwarder. Call Run to start publishing.
func NewForwarder(pub Publisher, size int, m *metrics.Metrics) *Forwarder {
	if size <= 0 {
		size = DefaultForwardQueue
	}
	return &Forwarder{
		pub:     pub,
		queue:   make(chan router.Activity, size),
		metrics: m,
	}
}

// Report queues a for publishing, dropping it if the queue is full.
func (f *Forwarder) Report(a router.Activity) {
	select {
	case f.queue <- a:
	default:
		f.metrics.Dropped(metrics.QueueForward)
		log.Printf("mqtt: forward queue full, dropped %s", a.Type)
	}
}

// Run publishes queued activity until ctx is done, then flushes what is
// already queued.
func (f *Forwarder) Run(ctx context.Context) {
	for {
		select {
		case a := <-f.queue:
			f.publish(a)
		case <-ctx.Done():
			for {
				select {
				case a := <-f.queue:
					f.publish(a)
				default:
					return
				}
			}
		}
	}
}

func (f *Forwarder) publish(a router.Activity) {
	if err := f.pub.Publish(a); err != nil {
		// Don't crash on publish failure
		log.Printf("mqtt: publish %s: %v", a.Type, err)
	}
}
