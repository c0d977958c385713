package clock

import "time"

// HourMode selects 12 or 24 hour display.
type HourMode uint8

const (
	Hour12 HourMode = 0
	Hour24 HourMode = 1
)

func (m HourMode) String() string {
	if m == Hour24 {
		return "24h"
	}
	return "12h"
}

const dstSeconds = 3600

// Local converts an epoch to wall-clock time. The timezone value is the
// offset in seconds west of UTC, carried as a signed 16 bit value.
func Local(epoch uint32, tz int16, dst bool) time.Time {
	sec := int64(epoch) - int64(tz)
	if dst {
		sec += dstSeconds
	}
	return time.Unix(sec, 0).UTC()
}

// DisplayHour maps a 0-23 hour to the value shown and whether the PM
// indicator is lit. In 24 hour mode PM is never lit.
func DisplayHour(hour int, mode HourMode) (int, bool) {
	if mode == Hour24 {
		return hour, false
	}
	switch {
	case hour == 0:
		return 12, false
	case hour < 12:
		return hour, false
	case hour == 12:
		return 12, true
	default:
		return hour - 12, true
	}
}
