// Package notify holds the notification bar flags and the full-screen
// call/text alert, and draws them.
package notify

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sweeney/kepler-watch/internal/display"
	"github.com/sweeney/kepler-watch/internal/glyph"
	"github.com/sweeney/kepler-watch/internal/metrics"
	"github.com/sweeney/kepler-watch/internal/profile"
	"github.com/sweeney/kepler-watch/internal/timer"
)

// DefaultAlertTimeout is how long a full-screen alert stays up.
const DefaultAlertTimeout = 5 * time.Second

// Kind selects what Update draws.
type Kind int

const (
	KindBar Kind = iota
	KindCall
	KindText
)

// AlertKind is the active full-screen alert.
type AlertKind int

const (
	AlertNone AlertKind = iota
	AlertCall
	AlertText
)

func (k AlertKind) String() string {
	switch k {
	case AlertCall:
		return "call"
	case AlertText:
		return "text"
	default:
		return "none"
	}
}

// Flags is the notification bar bitmask. Bits above MissedCall are ignored.
type Flags uint8

const (
	FlagEmail Flags = 1 << iota
	FlagText
	FlagVoicemail
	FlagMissedCall

	flagMask = FlagEmail | FlagText | FlagVoicemail | FlagMissedCall
)

// Has reports whether the icon's flag is set.
func (f Flags) Has(i glyph.Icon) bool {
	return f&(1<<uint(i)) != 0
}

// Layout holds the positions used for notifications.
type Layout struct {
	BarY  int
	BarX  [glyph.NumIcons]int
	NameY int
	// Caller names are centred as NameBaseX + (NameCells - len) * NameStep.
	NameBaseX int
	NameCells int
	NameStep  int
}

// DefaultLayout matches the 96x39 panel.
var DefaultLayout = Layout{
	BarY:      0,
	BarX:      [glyph.NumIcons]int{0, 14, 28, 42},
	NameY:     21,
	NameBaseX: 25,
	NameCells: 12,
	NameStep:  3,
}

// CallerX returns the x position of a caller name of n bytes.
func (l Layout) CallerX(n int) int {
	return l.NameBaseX + (l.NameCells-n)*l.NameStep
}

// TimeoutFunc receives the generation of the alert whose timer expired.
// It runs on the timer goroutine and must only post an event.
type TimeoutFunc func(gen uint64)

// TimerFactory builds an auto-dismiss timer. It is called once per alert,
// so each timer reports the generation of the alert it was armed for.
type TimerFactory func(fn func()) timer.Timer

// State is the notification state. Mutating methods are called only from
// the router goroutine; IsAlertActive is safe from anywhere.
type State struct {
	surface   *display.Surface
	layout    Layout
	timeout   time.Duration
	metrics   *metrics.Metrics
	newTimer  TimerFactory
	onTimeout TimeoutFunc
	timer     timer.Timer

	mu     sync.Mutex
	flags  Flags
	kind   AlertKind
	caller string
	gen    uint64

	active atomic.Bool
}

// New creates a State. onTimeout is called when the auto-dismiss timer expires.
func New(surface *display.Surface, layout Layout, timeout time.Duration, newTimer TimerFactory, onTimeout TimeoutFunc, m *metrics.Metrics) *State {
	if newTimer == nil {
		newTimer = func(fn func()) timer.Timer { return timer.New(fn) }
	}
	return &State{
		surface:   surface,
		layout:    layout,
		timeout:   timeout,
		metrics:   m,
		newTimer:  newTimer,
		onTimeout: onTimeout,
		// Never started; replaced by the first alert.
		timer: newTimer(func() {}),
	}
}

// SetBar replaces all four bar flags and redraws the bar.
func (s *State) SetBar(f Flags) error {
	s.mu.Lock()
	s.flags = f & flagMask
	s.mu.Unlock()
	return s.Update(KindBar)
}

// SetAlert shows a full-screen alert for kind with the caller text, replacing
// any alert already up and restarting its timer.
func (s *State) SetAlert(kind AlertKind, caller []byte) error {
	if kind == AlertNone {
		return fmt.Errorf("notify: cannot show alert kind %s", kind)
	}
	s.mu.Lock()
	s.caller = profile.CallerText(caller)
	s.mu.Unlock()

	if kind == AlertCall {
		return s.Update(KindCall)
	}
	return s.Update(KindText)
}

// Update draws the bar or the full-screen alert from the stored state.
func (s *State) Update(k Kind) error {
	switch k {
	case KindBar:
		return s.drawBar()
	case KindCall, KindText:
		return s.showAlert(k)
	default:
		return fmt.Errorf("notify: unknown update kind %d", k)
	}
}

// RedrawBar draws the bar from the stored flags.
func (s *State) RedrawBar() error {
	return s.Update(KindBar)
}

func (s *State) drawBar() error {
	// The alert owns the whole screen; the bar is redrawn on the next wake.
	if s.active.Load() {
		return nil
	}
	s.mu.Lock()
	flags := s.flags
	s.mu.Unlock()

	return s.surface.Batch(func(c *display.Canvas) error {
		for i := glyph.Icon(0); i < glyph.NumIcons; i++ {
			c.DrawGlyph(glyph.IconGlyph(i), s.layout.BarX[i], s.layout.BarY, !flags.Has(i))
		}
		return c.Display()
	})
}

func (s *State) showAlert(k Kind) error {
	tmpl := glyph.TemplateCall
	kind := AlertCall
	if k == KindText {
		tmpl = glyph.TemplateText
		kind = AlertText
	}

	s.mu.Lock()
	s.kind = kind
	caller := s.caller
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	s.active.Store(true)
	s.timer.Stop()

	err := s.surface.Batch(func(c *display.Canvas) error {
		c.Clear()
		c.DrawGlyph(glyph.TemplateGlyph(tmpl), 0, 0, false)
		c.DrawText(caller, s.layout.CallerX(len(caller)), s.layout.NameY, false)
		if err := c.Display(); err != nil {
			return err
		}
		return c.SetPower(true)
	})
	if err != nil {
		return fmt.Errorf("show %s alert: %w", kind, err)
	}

	s.timer = s.newTimer(func() { s.onTimeout(gen) })
	s.timer.Start(s.timeout)
	s.metrics.AlertShown(kind.String())
	return nil
}

// OnAutoDismiss handles expiry of the alert timer armed for gen. It reports
// whether an alert was actually dismissed; stale or late expiries are ignored.
func (s *State) OnAutoDismiss(gen uint64) bool {
	s.mu.Lock()
	if s.kind == AlertNone || gen != s.gen {
		s.mu.Unlock()
		return false
	}
	s.kind = AlertNone
	s.mu.Unlock()

	s.active.Store(false)
	s.metrics.AlertDismissed("timeout")
	return true
}

// DismissForButtonOverride removes the alert at the user's request: the
// timer is stopped and the display cleared and turned off.
func (s *State) DismissForButtonOverride() error {
	s.timer.Stop()

	s.mu.Lock()
	s.kind = AlertNone
	s.mu.Unlock()
	s.active.Store(false)
	s.metrics.AlertDismissed("button")

	return s.surface.Batch(func(c *display.Canvas) error {
		c.Clear()
		if err := c.Display(); err != nil {
			return err
		}
		return c.SetPower(false)
	})
}

// IsAlertActive reports whether a full-screen alert is showing.
func (s *State) IsAlertActive() bool {
	return s.active.Load()
}

// Snapshot is a copy of the notification state.
type Snapshot struct {
	Flags  Flags
	Alert  AlertKind
	Caller string
}

// Snapshot returns the current state.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{Flags: s.flags, Alert: s.kind, Caller: s.caller}
}
