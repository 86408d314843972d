// Package metrics exposes Prometheus collectors for power requests
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors recorded by the power handler.
// A nil *Metrics records nothing.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	commandsTotal   *prometheus.CounterVec
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "shelver",
				Subsystem: "power",
				Name:      "requests_total",
				Help:      "Total number of power requests by action and result",
			},
			[]string{"action", "result"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "shelver",
				Subsystem: "power",
				Name:      "request_duration_seconds",
				Help:      "Duration of power requests in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 8), // 50ms to ~6s
			},
			[]string{"action"},
		),
		commandsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "shelver",
				Subsystem: "compute",
				Name:      "commands_total",
				Help:      "Total number of control commands sent to the compute API",
			},
			[]string{"command"},
		),
	}

	reg.MustRegister(m.requestsTotal, m.requestDuration, m.commandsTotal)
	return m
}

// ObserveRequest records one finished power request.
// result is the error kind, or "ok".
func (m *Metrics) ObserveRequest(action, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	if action == "" {
		action = "unknown"
	}
	m.requestsTotal.WithLabelValues(action, result).Inc()
	m.requestDuration.WithLabelValues(action).Observe(elapsed.Seconds())
}

// ObserveCommand records a control command accepted by the compute API
func (m *Metrics) ObserveCommand(command string) {
	if m == nil || command == "" {
		return
	}
	m.commandsTotal.WithLabelValues(command).Inc()
}
