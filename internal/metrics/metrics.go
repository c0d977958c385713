// Package metrics exposes Prometheus counters for the watch daemon.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricPrefix = "kepler_"

// Queue names used as the "queue" label.
const (
	QueueRouter  = "router"
	QueueClock   = "clock"
	QueueForward = "mqtt_forward"
)

// Metrics holds the daemon's collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	events          *prometheus.CounterVec
	dropped         *prometheus.CounterVec
	buttonReleases  *prometheus.CounterVec
	alertsShown     *prometheus.CounterVec
	alertsDismissed *prometheus.CounterVec
	ticks           *prometheus.CounterVec
	frames          *prometheus.CounterVec
	transportErrors prometheus.Counter
	displayOn       prometheus.Gauge
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "router_events_total",
				Help: "Events handled by the router by kind",
			},
			[]string{"kind"},
		),
		dropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "dropped_events_total",
				Help: "Events dropped because a queue was full",
			},
			[]string{"queue"},
		),
		buttonReleases: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "button_releases_total",
				Help: "Debounced button releases",
			},
			[]string{"button"},
		),
		alertsShown: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "alerts_shown_total",
				Help: "Full-screen alerts shown by kind",
			},
			[]string{"kind"},
		),
		alertsDismissed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "alerts_dismissed_total",
				Help: "Full-screen alerts dismissed by reason",
			},
			[]string{"reason"},
		),
		ticks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "clock_ticks_total",
				Help: "Clock ticks by outcome",
			},
			[]string{"outcome"},
		),
		frames: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "display_frames_total",
				Help: "Frames sent to the display transport by type",
			},
			[]string{"type"},
		),
		transportErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "display_transport_errors_total",
			Help: "Display transport failures",
		}),
		displayOn: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "display_on",
			Help: "1 while the display panel is on",
		}),
	}

	m.registry.MustRegister(
		m.events,
		m.dropped,
		m.buttonReleases,
		m.alertsShown,
		m.alertsDismissed,
		m.ticks,
		m.frames,
		m.transportErrors,
		m.displayOn,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Event counts one routed event.
func (m *Metrics) Event(kind string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(kind).Inc()
}

// Dropped counts one event dropped from a full queue.
func (m *Metrics) Dropped(queue string) {
	if m == nil {
		return
	}
	m.dropped.WithLabelValues(queue).Inc()
}

// ButtonReleased counts one debounced release.
func (m *Metrics) ButtonReleased(button string) {
	if m == nil {
		return
	}
	m.buttonReleases.WithLabelValues(button).Inc()
}

// AlertShown counts one full-screen alert.
func (m *Metrics) AlertShown(kind string) {
	if m == nil {
		return
	}
	m.alertsShown.WithLabelValues(kind).Inc()
}

// AlertDismissed counts one dismissal.
func (m *Metrics) AlertDismissed(reason string) {
	if m == nil {
		return
	}
	m.alertsDismissed.WithLabelValues(reason).Inc()
}

// Tick counts one clock tick, rendered or suppressed.
func (m *Metrics) Tick(rendered bool) {
	if m == nil {
		return
	}
	outcome := "suppressed"
	if rendered {
		outcome = "rendered"
	}
	m.ticks.WithLabelValues(outcome).Inc()
}

// Frame counts one transport frame ("command" or "data").
func (m *Metrics) Frame(typ string) {
	if m == nil {
		return
	}
	m.frames.WithLabelValues(typ).Inc()
}

// TransportError counts one transport failure.
func (m *Metrics) TransportError() {
	if m == nil {
		return
	}
	m.transportErrors.Inc()
}

// DisplayOn sets the display power gauge.
func (m *Metrics) DisplayOn(on bool) {
	if m == nil {
		return
	}
	v := 0.0
	if on {
		v = 1
	}
	m.displayOn.Set(v)
}
