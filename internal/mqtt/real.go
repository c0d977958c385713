package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/kepler-watch/internal/router"
)

// DefaultBacklog is how many messages are held while the broker is unreachable.
const DefaultBacklog = 64

// Options configure a RealPublisher.
type Options struct {
	Broker   string
	ClientID string
	Prefix   string
	Backlog  int
}

// RealPublisher publishes to an actual MQTT broker. Messages published while
// disconnected are held in a backlog and replayed on reconnect.
type RealPublisher struct {
	client paho.Client
	prefix string

	mu        sync.Mutex
	backlog   *backlog
	subs      map[string]paho.MessageHandler
	connected bool // seen at least one connect
}

// NewRealPublisher starts connecting to the broker in the background and
// returns immediately; the client retries until it succeeds.
func NewRealPublisher(o Options) *RealPublisher {
	if o.Prefix == "" {
		o.Prefix = DefaultTopicPrefix
	}
	if o.ClientID == "" {
		o.ClientID = "kepler-watch"
	}
	if o.Backlog == 0 {
		o.Backlog = DefaultBacklog
	}
	p := &RealPublisher{
		prefix:  o.Prefix,
		backlog: newBacklog(o.Backlog),
		subs:    make(map[string]paho.MessageHandler),
	}

	will, _ := FormatSystemPayload(SystemEvent{Event: "OFFLINE", Reason: "LWT"})
	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(SystemTopic(o.Prefix), string(will), 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		})

	p.client = paho.NewClient(opts)
	p.client.Connect()
	return p
}

// onConnect restores subscriptions and replays the backlog.
func (p *RealPublisher) onConnect(c paho.Client) {
	p.mu.Lock()
	reconnect := p.connected
	p.connected = true
	msgs, dropped := p.backlog.flush()
	subs := make(map[string]paho.MessageHandler, len(p.subs))
	for k, v := range p.subs {
		subs[k] = v
	}
	p.mu.Unlock()

	log.Printf("mqtt: connected")
	for filter, h := range subs {
		if t := c.Subscribe(filter, 1, h); t.WaitTimeout(5*time.Second) && t.Error() != nil {
			log.Printf("mqtt: resubscribe %s: %v", filter, t.Error())
		}
	}

	if dropped > 0 {
		log.Printf("mqtt: %d messages lost while offline", dropped)
	}
	for _, m := range msgs {
		c.Publish(m.topic, m.qos, m.retained, m.payload)
	}
	if len(msgs) > 0 {
		log.Printf("mqtt: replayed %d buffered messages", len(msgs))
	}

	if reconnect {
		payload, _ := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"})
		c.Publish(SystemTopic(p.prefix), 1, false, payload)
	}
}

func (p *RealPublisher) send(topic string, qos byte, retained bool, payload []byte) error {
	if !p.client.IsConnectionOpen() {
		p.mu.Lock()
		p.backlog.push(pending{topic: topic, payload: payload, qos: qos, retained: retained})
		p.mu.Unlock()
		return nil
	}

	token := p.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Publish sends a watch activity to the broker.
func (p *RealPublisher) Publish(a router.Activity) error {
	payload, err := FormatPayload(a)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	// QoS 0 (at-most-once), not retained
	return p.send(EventsTopic(p.prefix), 0, false, payload)
}

// PublishSystem sends a system lifecycle event to the broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	// QoS 1 (at-least-once) - lifecycle events should be delivered
	return p.send(SystemTopic(p.prefix), 1, event.Retained, payload)
}

// Subscribe registers fn for filter, now if connected and again after
// every reconnect.
func (p *RealPublisher) Subscribe(filter string, fn func(topic string, payload []byte)) error {
	h := func(_ paho.Client, m paho.Message) {
		fn(m.Topic(), m.Payload())
	}
	p.mu.Lock()
	p.subs[filter] = h
	p.mu.Unlock()

	if !p.client.IsConnectionOpen() {
		return nil
	}
	token := p.client.Subscribe(filter, 1, h)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("subscribe %s: timeout", filter)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", filter, err)
	}
	return nil
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
