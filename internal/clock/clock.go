// Package clock owns the watch time and draws the clock face.
//
// Configuration arrives from other goroutines through a bounded inbox. The
// clock task drains the inbox in arrival order at the start of every tick,
// so a change is always applied before the next render.
package clock

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/sweeney/kepler-watch/internal/display"
	"github.com/sweeney/kepler-watch/internal/glyph"
	"github.com/sweeney/kepler-watch/internal/metrics"
	"github.com/sweeney/kepler-watch/internal/profile"
)

// DefaultInboxSize is the number of pending configuration messages held.
const DefaultInboxSize = 5

// MsgKind identifies a configuration message.
type MsgKind int

const (
	MsgSetTime MsgKind = iota
	MsgSetTimeZone
	MsgSetHourMode
	MsgSetDST
)

func (k MsgKind) String() string {
	switch k {
	case MsgSetTime:
		return "set_time"
	case MsgSetTimeZone:
		return "set_timezone"
	case MsgSetHourMode:
		return "set_hour_mode"
	case MsgSetDST:
		return "set_dst"
	default:
		return "unknown"
	}
}

// Msg is one inbox entry.
type Msg struct {
	Kind  MsgKind
	Value uint32
}

// AlertQuery reports whether a full-screen alert owns the display.
type AlertQuery interface {
	IsAlertActive() bool
}

// Settings is the clock configuration.
type Settings struct {
	TimeZone int16
	HourMode HourMode
	DST      bool
}

// State is a point-in-time view of the clock.
type State struct {
	Epoch    uint32
	Settings Settings
	Local    time.Time
}

// Clock face positions.
const (
	hourTensX = 0
	hourOnesX = 17
	colonX    = 34
	minTensX  = 39
	minOnesX  = 56
	digitY    = 13
	pmX       = 74
	pmY       = 13
	secTensX  = 74
	secOnesX  = 84
	secY      = 25
	dateRight = 95
	dateY     = 1
	dateMaxX  = 64
)

// Clock is the clock task state.
type Clock struct {
	inbox   chan Msg
	rtc     RTC
	table   *profile.Table
	surface *display.Surface
	alerts  AlertQuery
	metrics *metrics.Metrics

	mu       sync.Mutex
	settings Settings
	dropped  int
}

// New creates a Clock. alerts may be set later with SetAlertQuery.
func New(rtc RTC, table *profile.Table, surface *display.Surface, inboxSize int, m *metrics.Metrics) *Clock {
	if inboxSize <= 0 {
		inboxSize = DefaultInboxSize
	}
	return &Clock{
		inbox:   make(chan Msg, inboxSize),
		rtc:     rtc,
		table:   table,
		surface: surface,
		metrics: m,
	}
}

// SetAlertQuery installs the alert gate. Call before Run.
func (c *Clock) SetAlertQuery(a AlertQuery) {
	c.alerts = a
}

// Post queues a message without blocking. It returns false, and the message
// is lost, when the inbox is full.
func (c *Clock) Post(m Msg) bool {
	select {
	case c.inbox <- m:
		return true
	default:
		c.mu.Lock()
		c.dropped++
		c.mu.Unlock()
		c.metrics.Dropped(metrics.QueueClock)
		log.Printf("clock: inbox full, dropped %s", m.Kind)
		return false
	}
}

// SetTime queues a new epoch.
func (c *Clock) SetTime(epoch uint32) bool {
	return c.Post(Msg{Kind: MsgSetTime, Value: epoch})
}

// SetTimeZone queues a new timezone offset.
func (c *Clock) SetTimeZone(tz uint16) bool {
	return c.Post(Msg{Kind: MsgSetTimeZone, Value: uint32(tz)})
}

// SetHourMode queues a new hour mode.
func (c *Clock) SetHourMode(mode uint8) bool {
	return c.Post(Msg{Kind: MsgSetHourMode, Value: uint32(mode)})
}

// SetDST queues a new DST flag.
func (c *Clock) SetDST(dst uint8) bool {
	return c.Post(Msg{Kind: MsgSetDST, Value: uint32(dst)})
}

// Run ticks the clock until ctx is done or a tick fails.
func (c *Clock) Run(ctx context.Context, tick <-chan time.Time) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick:
			if err := c.Tick(); err != nil {
				return fmt.Errorf("clock tick: %w", err)
			}
		}
	}
}

// Tick drains the inbox, publishes the current epoch and redraws the face
// unless the display is off or an alert is showing. An error means the
// display transport failed.
func (c *Clock) Tick() error {
	c.drain()

	epoch := c.rtc.Seconds()
	if err := c.table.Set(profile.ClockTime, profile.PutUint32(epoch)); err != nil {
		log.Printf("clock: publish time: %v", err)
	}

	if !c.surface.IsOn() || (c.alerts != nil && c.alerts.IsAlertActive()) {
		c.metrics.Tick(false)
		return nil
	}

	c.mu.Lock()
	s := c.settings
	c.mu.Unlock()

	if err := c.render(Local(epoch, s.TimeZone, s.DST), s.HourMode); err != nil {
		return err
	}
	c.metrics.Tick(true)
	return nil
}

// Redraw renders the face for the current time without draining the inbox.
// Used when the display comes back on between ticks.
func (c *Clock) Redraw() error {
	st := c.State()
	return c.render(st.Local, st.Settings.HourMode)
}

func (c *Clock) drain() {
	for {
		select {
		case m := <-c.inbox:
			c.apply(m)
		default:
			return
		}
	}
}

func (c *Clock) apply(m Msg) {
	var (
		ch  profile.Char
		val []byte
	)

	c.mu.Lock()
	switch m.Kind {
	case MsgSetTime:
		c.rtc.Set(m.Value)
		ch, val = profile.ClockTime, profile.PutUint32(m.Value)
	case MsgSetTimeZone:
		c.settings.TimeZone = int16(uint16(m.Value))
		ch, val = profile.ClockTimeZone, profile.PutUint16(uint16(m.Value))
	case MsgSetHourMode:
		c.settings.HourMode = Hour12
		if m.Value != 0 {
			c.settings.HourMode = Hour24
		}
		ch, val = profile.ClockHourMode, []byte{byte(c.settings.HourMode)}
	case MsgSetDST:
		c.settings.DST = m.Value != 0
		ch, val = profile.ClockDST, []byte{boolByte(c.settings.DST)}
	default:
		c.mu.Unlock()
		log.Printf("clock: unknown message kind %d", m.Kind)
		return
	}
	c.mu.Unlock()

	if err := c.table.Set(ch, val); err != nil {
		log.Printf("clock: mirror %s: %v", ch, err)
	}
}

func (c *Clock) render(t time.Time, mode HourMode) error {
	hour, pm := DisplayHour(t.Hour(), mode)
	minute, sec := t.Minute(), t.Second()
	date := fmt.Sprintf("%d/%d", int(t.Month()), t.Day())

	return c.surface.Batch(func(cv *display.Canvas) error {
		drawDigit(cv, glyph.LargeDigit, hour/10, hourTensX, digitY, hour < 10)
		drawDigit(cv, glyph.LargeDigit, hour%10, hourOnesX, digitY, false)
		cv.DrawGlyph(glyph.Colon, colonX, digitY, false)
		drawDigit(cv, glyph.LargeDigit, minute/10, minTensX, digitY, false)
		drawDigit(cv, glyph.LargeDigit, minute%10, minOnesX, digitY, false)
		cv.DrawGlyph(glyph.PM, pmX, pmY, !pm)
		drawDigit(cv, glyph.SmallDigit, sec/10, secTensX, secY, false)
		drawDigit(cv, glyph.SmallDigit, sec%10, secOnesX, secY, false)

		cv.FillRect(dateMaxX, dateY, dateRight+1-dateMaxX, glyph.TextHeight, false)
		cv.DrawText(date, dateRight-len(date)*glyph.CharWidth, dateY, false)

		return cv.Display()
	})
}

// drawDigit erases the cell, then draws n unless blank is set.
func drawDigit(cv *display.Canvas, font func(int) *glyph.Glyph, n, x, y int, blank bool) {
	g := font(n)
	cv.DrawGlyph(g, x, y, true)
	if !blank {
		cv.DrawGlyph(g, x, y, false)
	}
}

// State returns the current time and settings.
func (c *Clock) State() State {
	epoch := c.rtc.Seconds()
	c.mu.Lock()
	s := c.settings
	c.mu.Unlock()
	return State{
		Epoch:    epoch,
		Settings: s,
		Local:    Local(epoch, s.TimeZone, s.DST),
	}
}

// Dropped returns the number of messages lost to a full inbox.
func (c *Clock) Dropped() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
