package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m := New()
	m.Event("button")
	m.Event("button")
	m.Dropped(QueueRouter)
	m.ButtonReleased("button0")
	m.AlertShown("call")
	m.AlertDismissed("timeout")
	m.Tick(true)
	m.Tick(false)
	m.Tick(false)
	m.Frame("data")
	m.TransportError()
	m.DisplayOn(true)

	if got := testutil.ToFloat64(m.events.WithLabelValues("button")); got != 2 {
		t.Errorf("events[button]: got %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.dropped.WithLabelValues(QueueRouter)); got != 1 {
		t.Errorf("dropped[router]: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ticks.WithLabelValues("suppressed")); got != 2 {
		t.Errorf("ticks[suppressed]: got %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.transportErrors); got != 1 {
		t.Errorf("transport errors: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.displayOn); got != 1 {
		t.Errorf("display on: got %v, want 1", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.Event("x")
	m.Dropped("x")
	m.ButtonReleased("x")
	m.AlertShown("x")
	m.AlertDismissed("x")
	m.Tick(true)
	m.Frame("x")
	m.TransportError()
	m.DisplayOn(true)
}

func TestHandler(t *testing.T) {
	m := New()
	m.AlertShown("text")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `kepler_alerts_shown_total{kind="text"} 1`) {
		t.Errorf("metrics output missing alerts counter:\n%s", body)
	}
}
