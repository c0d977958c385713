package mqtt

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/sweeney/kepler-watch/internal/profile"
)

// ErrBadTopic is returned for set topics that do not name a characteristic.
var ErrBadTopic = errors.New("mqtt: bad set topic")

// Bridge feeds <prefix>/set/<service>/<name> messages into the attribute
// table, so a broker client writes characteristics the same way a BLE
// central does.
type Bridge struct {
	prefix string
	table  *profile.Table
}

// NewBridge creates a Bridge writing to table.
func NewBridge(prefix string, table *profile.Table) *Bridge {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return &Bridge{prefix: prefix, table: table}
}

// Start subscribes to the set topics.
func (b *Bridge) Start(s Subscriber) error {
	return s.Subscribe(SetTopicFilter(b.prefix), b.Handle)
}

// Handle applies one message. It runs on the client's goroutine; the table
// hands the write to the router without blocking.
func (b *Bridge) Handle(topic string, payload []byte) {
	if err := b.apply(topic, payload); err != nil {
		log.Printf("mqtt: set %s: %v", topic, err)
	}
}

func (b *Bridge) apply(topic string, payload []byte) error {
	c, err := ParseSetTopic(b.prefix, topic)
	if err != nil {
		return err
	}
	v, err := EncodeValue(c, string(payload))
	if err != nil {
		return err
	}
	return b.table.Write(c, v)
}

// ParseSetTopic maps a set topic to its characteristic.
func ParseSetTopic(prefix, topic string) (profile.Char, error) {
	rest, ok := strings.CutPrefix(topic, prefix+"/set/")
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrBadTopic, topic)
	}
	service, name, ok := strings.Cut(rest, "/")
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrBadTopic, topic)
	}
	return profile.ByName(service, name)
}

// EncodeValue converts a text payload to the characteristic's wire value.
// Numbers are decimal; the bar mask also accepts 0x hex. Caller strings are
// taken as is and length-checked by the table.
func EncodeValue(c profile.Char, s string) ([]byte, error) {
	if c == profile.NotifyCall || c == profile.NotifyText {
		return []byte(s), nil
	}

	s = strings.TrimSpace(s)
	switch c {
	case profile.ClockTime:
		n, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", c, err)
		}
		return profile.PutUint32(uint32(n)), nil
	case profile.ClockTimeZone:
		n, err := strconv.ParseInt(s, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", c, err)
		}
		return profile.PutUint16(uint16(int16(n))), nil
	case profile.ClockHourMode, profile.ClockDST:
		n, err := strconv.ParseUint(s, 10, 8)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", c, err)
		}
		return []byte{byte(n)}, nil
	case profile.NotifyBar:
		n, err := strconv.ParseUint(s, 0, 8)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", c, err)
		}
		return []byte{byte(n)}, nil
	}
	return nil, fmt.Errorf("%w: %d", profile.ErrUnknownCharacteristic, int(c))
}
