// Package profile is the watch's GATT attribute table: the clock and
// notification services, their characteristics, and the values last
// written by a client or mirrored by the application.
package profile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidLength is returned for writes whose length the characteristic does not accept.
	ErrInvalidLength = errors.New("profile: invalid attribute length")
	// ErrUnknownCharacteristic is returned for characteristics not in the table.
	ErrUnknownCharacteristic = errors.New("profile: unknown characteristic")
)

// Service is a GATT service of the watch.
type Service int

const (
	ServiceClock Service = iota
	ServiceNotification
)

func (s Service) String() string {
	switch s {
	case ServiceClock:
		return "clock"
	case ServiceNotification:
		return "notification"
	default:
		return "unknown"
	}
}

// UUID16 returns the service's short UUID.
func (s Service) UUID16() uint16 {
	if s == ServiceNotification {
		return 0xFFF0
	}
	return 0xB2F0
}

// Char is a characteristic of one of the watch services.
type Char int

const (
	ClockTime Char = iota
	ClockTimeZone
	ClockHourMode
	ClockDST
	NotifyBar
	NotifyCall
	NotifyText

	numChars
)

// MaxCallerLen is the longest caller string accepted.
const MaxCallerLen = 11

// Spec describes a characteristic.
type Spec struct {
	Char     Char
	Service  Service
	UUID16   uint16
	Name     string
	MinLen   int
	MaxLen   int
	Readable bool
}

var specs = [numChars]Spec{
	ClockTime:     {ClockTime, ServiceClock, 0xB2F1, "time", 4, 4, true},
	ClockTimeZone: {ClockTimeZone, ServiceClock, 0xB2F2, "timezone", 2, 2, true},
	ClockHourMode: {ClockHourMode, ServiceClock, 0xB2F3, "hour_mode", 1, 1, true},
	ClockDST:      {ClockDST, ServiceClock, 0xB2F4, "dst", 1, 1, true},
	NotifyBar:     {NotifyBar, ServiceNotification, 0xFFF1, "bar", 1, 1, true},
	NotifyCall:    {NotifyCall, ServiceNotification, 0xFFF2, "call", 0, MaxCallerLen, false},
	NotifyText:    {NotifyText, ServiceNotification, 0xFFF3, "text", 0, MaxCallerLen, false},
}

// Specs returns every characteristic in table order.
func Specs() []Spec {
	out := make([]Spec, len(specs))
	copy(out, specs[:])
	return out
}

// SpecFor returns the description of c.
func SpecFor(c Char) (Spec, error) {
	if c < 0 || c >= numChars {
		return Spec{}, fmt.Errorf("%w: %d", ErrUnknownCharacteristic, int(c))
	}
	return specs[c], nil
}

// ByName looks up a characteristic by service and name, e.g. ("clock", "time").
func ByName(service, name string) (Char, error) {
	for _, s := range specs {
		if s.Service.String() == service && s.Name == name {
			return s.Char, nil
		}
	}
	return 0, fmt.Errorf("%w: %s/%s", ErrUnknownCharacteristic, service, name)
}

func (c Char) String() string {
	s, err := SpecFor(c)
	if err != nil {
		return "unknown"
	}
	return s.Service.String() + "/" + s.Name
}

// Service returns the service c belongs to.
func (c Char) Service() Service {
	s, _ := SpecFor(c)
	return s.Service
}

// UUID expands a short UUID onto the watch's 128-bit base.
func UUID(short uint16) string {
	return fmt.Sprintf("fa35%04x-7989-11eb-9439-0242ac130002", short)
}

// Uint32 decodes a little-endian 4 byte value.
func Uint32(v []byte) uint32 {
	return binary.LittleEndian.Uint32(v)
}

// PutUint32 encodes a little-endian 4 byte value.
func PutUint32(n uint32) []byte {
	return binary.LittleEndian.AppendUint32(nil, n)
}

// Uint16 decodes a little-endian 2 byte value.
func Uint16(v []byte) uint16 {
	return binary.LittleEndian.Uint16(v)
}

// PutUint16 encodes a little-endian 2 byte value.
func PutUint16(n uint16) []byte {
	return binary.LittleEndian.AppendUint16(nil, n)
}

// CallerText converts a caller characteristic value to a display string,
// truncated to MaxCallerLen with trailing NULs stripped.
func CallerText(v []byte) string {
	if len(v) > MaxCallerLen {
		v = v[:MaxCallerLen]
	}
	return strings.TrimRight(string(v), "\x00")
}
