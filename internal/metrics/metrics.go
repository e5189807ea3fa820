// Package metrics exposes relay counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Drop reasons.
const (
	DropMalformed          = "malformed"
	DropTooLarge           = "too_large"
	DropUnknownDestination = "unknown_destination"
	DropQueueFull          = "queue_full"
	DropInvalidIdentity    = "invalid_identity"
	DropReserved           = "reserved_identity"
)

// Metrics holds the relay's collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	sessions prometheus.Gauge
	frames   *prometheus.CounterVec
	dropped  *prometheus.CounterVec
	relayed  prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signaling_sessions",
			Help: "Currently connected signaling sessions.",
		}),
		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signaling_frames_total",
			Help: "Decoded frames received, by message type.",
		}, []string{"type"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signaling_dropped_total",
			Help: "Frames or packets dropped, by reason.",
		}, []string{"reason"}),
		relayed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signaling_relayed_total",
			Help: "Packets forwarded to another peer.",
		}),
	}
	reg.MustRegister(m.sessions, m.frames, m.dropped, m.relayed)
	return m
}

func (m *Metrics) SessionOpened() {
	if m != nil {
		m.sessions.Inc()
	}
}

func (m *Metrics) SessionClosed() {
	if m != nil {
		m.sessions.Dec()
	}
}

// Frame counts one decoded frame of the given type label.
func (m *Metrics) Frame(msgType string) {
	if m != nil {
		m.frames.WithLabelValues(msgType).Inc()
	}
}

func (m *Metrics) Drop(reason string) {
	if m != nil {
		m.dropped.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) Relayed() {
	if m != nil {
		m.relayed.Inc()
	}
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
